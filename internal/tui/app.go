package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nikbrunner/bmtree/internal/model"
	"github.com/nikbrunner/bmtree/internal/session"
	"github.com/nikbrunner/bmtree/internal/tui/layout"
)

const defaultTimeout = 15 * time.Second

// MessageType is the severity of the status line message.
type MessageType int

const (
	MessageInfo MessageType = iota
	MessageSuccess
	MessageError
)

// App is the main bubbletea model. Every storage access goes through the
// session and runs inside a tea.Cmd, so Update and View never block.
type App struct {
	session *session.Session
	keys    KeyMap
	styles  Styles
	layout  layout.Config
	timeout time.Duration
	copyURL func(string) error

	// Installed listing
	view   session.View
	items  []Item
	trail  []*int64         // back stack at install time, oldest first
	names  map[int64]string // folder names seen in listings, for the breadcrumb
	cursor int

	mode    Mode
	form    FormState
	pending Item // target of ModeConfirmDelete

	messageText string
	messageType MessageType

	// For gg command
	lastKeyWasG bool

	// Window dimensions
	width  int
	height int
}

// AppParams holds parameters for creating a new App.
type AppParams struct {
	Session   *session.Session
	Keys      *KeyMap                 // optional, uses default if nil
	Styles    *Styles                 // optional, uses default if nil
	Layout    *layout.Config          // optional, uses default if nil
	Timeout   time.Duration           // per storage operation, 15s if zero
	Clipboard func(text string) error // optional, uses the system clipboard
}

// NewApp creates a new App with the given parameters. The listing is empty
// until the command returned by Init completes.
func NewApp(params AppParams) App {
	keys := DefaultKeyMap()
	if params.Keys != nil {
		keys = *params.Keys
	}

	styles := DefaultStyles()
	if params.Styles != nil {
		styles = *params.Styles
	}

	cfg := layout.DefaultConfig()
	if params.Layout != nil {
		cfg = *params.Layout
	}

	timeout := params.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	copyURL := params.Clipboard
	if copyURL == nil {
		copyURL = clipboard.WriteAll
	}

	app := App{
		session: params.Session,
		keys:    keys,
		styles:  styles,
		layout:  cfg,
		timeout: timeout,
		copyURL: copyURL,
		names:   make(map[int64]string),
		width:   80,
		height:  24,
	}
	app.install(params.Session.CurrentView())
	return app
}

// WithDimensions returns a copy of the app with the given window size.
func (a App) WithDimensions(width, height int) App {
	a.width = width
	a.height = height
	return a
}

// Cursor returns the current cursor position.
func (a App) Cursor() int {
	return a.cursor
}

// CurrentFolderID returns the ID of the listed folder (nil for root).
func (a App) CurrentFolderID() *int64 {
	return a.view.FolderID
}

// Items returns the current list of items.
func (a App) Items() []Item {
	return a.items
}

// Mode returns the current input mode.
func (a App) Mode() Mode {
	return a.mode
}

// Message returns the status line text.
func (a App) Message() string {
	return a.messageText
}

// listingMsg carries the result of a Refresh, Enter or Back.
type listingMsg struct {
	view  session.View
	err   error
	reset bool   // move the cursor to the top
	from  *int64 // folder left by Back; the cursor lands on it
}

// mutationMsg carries the result of a create, edit or delete. The session
// has already refreshed, so the App re-reads its view.
type mutationMsg struct {
	done string
	err  error
	form bool // submitted from a modal
}

// op wraps fn in a command with the per-operation timeout.
func (a App) op(fn func(ctx context.Context) tea.Msg) tea.Cmd {
	timeout := a.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return fn(ctx)
	}
}

func (a App) refresh() tea.Cmd {
	s := a.session
	return a.op(func(ctx context.Context) tea.Msg {
		view, err := s.Refresh(ctx)
		return listingMsg{view: view, err: err}
	})
}

func (a App) enter(id int64) tea.Cmd {
	s := a.session
	return a.op(func(ctx context.Context) tea.Msg {
		view, err := s.Enter(ctx, id)
		return listingMsg{view: view, err: err, reset: true}
	})
}

func (a App) back() tea.Cmd {
	s := a.session
	from := model.CloneRef(a.view.FolderID)
	return a.op(func(ctx context.Context) tea.Msg {
		view, err := s.Back(ctx)
		return listingMsg{view: view, err: err, from: from}
	})
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	return a.refresh()
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case listingMsg:
		return a.handleListing(msg), nil

	case mutationMsg:
		return a.handleMutation(msg), nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return a, tea.Quit
		}
		switch a.mode {
		case ModeNormal:
			return a.handleNormalKey(msg)
		case ModeHelp:
			a.mode = ModeNormal
			return a, nil
		case ModeConfirmDelete:
			return a.handleConfirmKey(msg)
		default:
			return a.handleFormKey(msg)
		}
	}

	return a, nil
}

// install makes v the displayed listing and keeps the cursor in range.
func (a *App) install(v session.View) {
	a.view = v
	a.items = itemsOf(v)
	a.trail = a.session.History()
	for _, f := range v.Folders {
		a.names[f.ID] = f.Name
	}
	a.clampCursor()
}

func (a *App) clampCursor() {
	if a.cursor >= len(a.items) {
		a.cursor = len(a.items) - 1
	}
	if a.cursor < 0 {
		a.cursor = 0
	}
}

func (a App) handleListing(msg listingMsg) App {
	if errors.Is(msg.err, session.ErrSuperseded) {
		return a
	}
	if msg.err != nil {
		a.setError(msg.err)
		return a
	}

	a.install(msg.view)
	if msg.reset {
		a.cursor = 0
	}
	if msg.from != nil {
		for i, item := range a.items {
			if item.IsFolder() && item.Folder.ID == *msg.from {
				a.cursor = i
				break
			}
		}
	}
	return a
}

func (a App) handleMutation(msg mutationMsg) App {
	a.install(a.session.CurrentView())

	if msg.form && model.IsValidation(msg.err) {
		// Keep the modal open so the input can be fixed.
		var verr *model.ValidationError
		errors.As(msg.err, &verr)
		a.form.Err = verr.Message
		a.form.Busy = false
		return a
	}

	if msg.form {
		a.mode = ModeNormal
		a.form = FormState{}
	}
	if msg.err != nil {
		a.setError(msg.err)
		return a
	}
	a.setMessage(msg.done, MessageSuccess)
	return a
}

func (a *App) setMessage(text string, t MessageType) {
	a.messageText = text
	a.messageType = t
}

func (a *App) setError(err error) {
	a.setMessage(describeError(err), MessageError)
}

func describeError(err error) string {
	switch {
	case errors.Is(err, errors.ErrUnsupported):
		return "editing is not supported by this storage backend"
	case model.IsTransport(err):
		return "storage unavailable: " + err.Error()
	default:
		return err.Error()
	}
}

// selected returns the item under the cursor.
func (a App) selected() (Item, bool) {
	if len(a.items) == 0 || a.cursor >= len(a.items) {
		return Item{}, false
	}
	return a.items[a.cursor], true
}

func (a App) handleNormalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Handle gg sequence
	if key.Matches(msg, a.keys.Top) {
		if a.lastKeyWasG {
			a.cursor = 0
			a.lastKeyWasG = false
			return a, nil
		}
		a.lastKeyWasG = true
		return a, nil
	}
	a.lastKeyWasG = false

	switch {
	case key.Matches(msg, a.keys.Quit):
		return a, tea.Quit

	case key.Matches(msg, a.keys.Down):
		if len(a.items) > 0 && a.cursor < len(a.items)-1 {
			a.cursor++
		}

	case key.Matches(msg, a.keys.Up):
		if a.cursor > 0 {
			a.cursor--
		}

	case key.Matches(msg, a.keys.Bottom):
		if len(a.items) > 0 {
			a.cursor = len(a.items) - 1
		}

	case key.Matches(msg, a.keys.Right):
		if item, ok := a.selected(); ok && item.IsFolder() {
			return a, a.enter(item.Folder.ID)
		}

	case key.Matches(msg, a.keys.Left):
		if a.view.CanGoBack {
			return a, a.back()
		}

	case key.Matches(msg, a.keys.Refresh):
		return a, a.refresh()

	case key.Matches(msg, a.keys.AddBookmark):
		a.mode = ModeAddBookmark
		a.form = newBookmarkForm(a.layout.Input, "", "", "")

	case key.Matches(msg, a.keys.AddFolder):
		a.mode = ModeAddFolder
		a.form = newFolderForm(a.layout.Input, "")

	case key.Matches(msg, a.keys.Edit):
		item, ok := a.selected()
		if !ok {
			break
		}
		if item.IsFolder() {
			a.mode = ModeRenameFolder
			a.form = newFolderForm(a.layout.Input, item.Folder.Name)
		} else {
			b := item.Bookmark
			a.mode = ModeEditBookmark
			a.form = newBookmarkForm(a.layout.Input, b.Title, b.URL, b.Note)
		}
		a.form.Target = item.ID()

	case key.Matches(msg, a.keys.Delete):
		if item, ok := a.selected(); ok {
			a.mode = ModeConfirmDelete
			a.pending = item
		}

	case key.Matches(msg, a.keys.YankURL):
		item, ok := a.selected()
		if !ok || item.IsFolder() {
			break
		}
		if err := a.copyURL(item.Bookmark.URL); err != nil {
			a.setMessage("copy failed: "+err.Error(), MessageError)
		} else {
			a.setMessage("Copied "+item.Bookmark.URL, MessageInfo)
		}

	case key.Matches(msg, a.keys.Help):
		a.mode = ModeHelp

	case msg.Type == tea.KeyEsc:
		a.messageText = ""
	}

	return a, nil
}

func (a App) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Confirm):
		item := a.pending
		a.mode = ModeNormal
		a.pending = Item{}
		return a, a.remove(item)

	case key.Matches(msg, a.keys.Deny):
		a.mode = ModeNormal
		a.pending = Item{}
	}
	return a, nil
}

func (a App) remove(item Item) tea.Cmd {
	s := a.session
	id, title := item.ID(), item.Title()
	if item.IsFolder() {
		return a.op(func(ctx context.Context) tea.Msg {
			err := s.RemoveFolder(ctx, id)
			return mutationMsg{done: fmt.Sprintf("Deleted folder %q", title), err: err}
		})
	}
	return a.op(func(ctx context.Context) tea.Msg {
		err := s.RemoveBookmark(ctx, id)
		return mutationMsg{done: fmt.Sprintf("Deleted %q", title), err: err}
	})
}

func (a App) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.form.Busy {
		return a, nil
	}

	switch {
	case key.Matches(msg, a.keys.Cancel):
		a.mode = ModeNormal
		a.form = FormState{}
		return a, nil

	case key.Matches(msg, a.keys.Submit):
		a.form.Busy = true
		a.form.Err = ""
		return a, a.submit()

	case key.Matches(msg, a.keys.NextField):
		a.form.focus(a.form.Focus + 1)
		return a, nil

	case key.Matches(msg, a.keys.PrevField):
		a.form.focus(a.form.Focus - 1)
		return a, nil
	}

	var cmd tea.Cmd
	a.form.Inputs[a.form.Focus], cmd = a.form.Inputs[a.form.Focus].Update(msg)
	return a, cmd
}

// submit turns the open modal into a session call.
func (a App) submit() tea.Cmd {
	s := a.session
	f := a.form
	target := f.Target

	switch a.mode {
	case ModeAddFolder:
		name := f.Value(0)
		return a.op(func(ctx context.Context) tea.Msg {
			folder, err := s.AddFolder(ctx, name)
			return mutationMsg{done: fmt.Sprintf("Added folder %q", folder.Name), err: err, form: true}
		})

	case ModeAddBookmark:
		title, url, note := f.Value(0), f.Value(1), f.Value(2)
		return a.op(func(ctx context.Context) tea.Msg {
			b, err := s.AddBookmark(ctx, title, url, note)
			return mutationMsg{done: fmt.Sprintf("Added %q", b.Title), err: err, form: true}
		})

	case ModeRenameFolder:
		name := f.Value(0)
		return a.op(func(ctx context.Context) tea.Msg {
			folder, err := s.RenameFolder(ctx, target, name)
			return mutationMsg{done: fmt.Sprintf("Renamed to %q", folder.Name), err: err, form: true}
		})

	case ModeEditBookmark:
		edit := model.BookmarkEdit{Title: f.Value(0), URL: f.Value(1), Note: f.Value(2)}
		return a.op(func(ctx context.Context) tea.Msg {
			b, err := s.EditBookmark(ctx, target, edit)
			return mutationMsg{done: fmt.Sprintf("Updated %q", b.Title), err: err, form: true}
		})
	}
	return nil
}
