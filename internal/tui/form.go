package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"

	"github.com/nikbrunner/bmtree/internal/tui/layout"
)

// Mode is the App's input mode.
type Mode int

const (
	ModeNormal Mode = iota
	ModeAddBookmark
	ModeAddFolder
	ModeEditBookmark
	ModeRenameFolder
	ModeConfirmDelete
	ModeHelp
)

// FormState holds the inputs of an add or edit modal.
type FormState struct {
	Labels []string
	Inputs []textinput.Model
	Focus  int
	Target int64  // item being edited
	Err    string // validation error shown inside the modal
	Busy   bool   // submitted, waiting for the result
}

func newInput(placeholder string, limit int, cfg layout.InputConfig) textinput.Model {
	input := textinput.New()
	input.Placeholder = placeholder
	input.CharLimit = limit
	input.Width = cfg.Width
	return input
}

// newFolderForm builds the single-field folder modal.
func newFolderForm(cfg layout.InputConfig, name string) FormState {
	input := newInput("Name", cfg.NameCharLimit, cfg)
	input.SetValue(name)
	f := FormState{Labels: []string{"Name"}, Inputs: []textinput.Model{input}}
	f.focus(0)
	return f
}

// newBookmarkForm builds the title, URL and note modal.
func newBookmarkForm(cfg layout.InputConfig, title, url, note string) FormState {
	inputs := []textinput.Model{
		newInput("Title", cfg.NameCharLimit, cfg),
		newInput("https://...", cfg.URLCharLimit, cfg),
		newInput("optional", cfg.NoteCharLimit, cfg),
	}
	inputs[0].SetValue(title)
	inputs[1].SetValue(url)
	inputs[2].SetValue(note)
	f := FormState{Labels: []string{"Title", "URL", "Note"}, Inputs: inputs}
	f.focus(0)
	return f
}

// focus moves input focus to field i, wrapping around.
func (f *FormState) focus(i int) {
	n := len(f.Inputs)
	if n == 0 {
		return
	}
	i = ((i % n) + n) % n
	for j := range f.Inputs {
		if j == i {
			// The blink command is dropped; the cursor stays visible.
			f.Inputs[j].Focus()
		} else {
			f.Inputs[j].Blur()
		}
	}
	f.Focus = i
}

// Value returns field i with surrounding whitespace trimmed.
func (f FormState) Value(i int) string {
	if i >= len(f.Inputs) {
		return ""
	}
	return strings.TrimSpace(f.Inputs[i].Value())
}
