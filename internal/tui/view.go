package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/nikbrunner/bmtree/internal/tui/layout"
)

// View implements tea.Model.
func (a App) View() string {
	switch a.mode {
	case ModeNormal:
		return a.renderView()
	case ModeHelp:
		return a.renderHelpOverlay()
	default:
		return a.renderModal()
	}
}

// renderView creates the listing and preview columns.
func (a App) renderView() string {
	paneHeight := layout.CalculatePaneHeight(a.height, a.layout.Pane)
	listWidth, previewWidth := layout.SplitWidth(a.width, a.layout.Pane)

	columns := lipgloss.JoinHorizontal(
		lipgloss.Top,
		a.renderCurrentPane(listWidth, paneHeight),
		a.renderPreviewPane(previewWidth, paneHeight),
	)

	content := a.styles.App.Render(
		lipgloss.JoinVertical(lipgloss.Left, a.renderBreadcrumb(), columns, a.renderStatusBar()),
	)

	// Use Place to ensure exact terminal dimensions and prevent overflow
	return lipgloss.Place(a.width, a.height, lipgloss.Left, lipgloss.Top, content)
}

// breadcrumb joins the names along the back stack and the listed folder.
func (a App) breadcrumb() string {
	parts := []string{"bm"}
	for _, ref := range append(a.trail, a.view.FolderID) {
		if ref == nil {
			continue
		}
		name, ok := a.names[*ref]
		if !ok {
			name = fmt.Sprintf("#%d", *ref)
		}
		parts = append(parts, name)
	}
	return strings.Join(parts, " / ")
}

// renderBreadcrumb renders the folder path above the columns.
func (a App) renderBreadcrumb() string {
	// Terminal width minus app padding: left=2, right=2
	path := layout.TruncatePathFromLeft(a.breadcrumb(), a.width-4, a.layout.Text)
	return a.styles.Breadcrumb.Render(path)
}

func (a App) renderCurrentPane(width, height int) string {
	var content strings.Builder

	itemWidth := layout.CalculateItemWidth(width, a.layout.Pane)

	if len(a.items) == 0 {
		content.WriteString(a.styles.Empty.Render("(empty)"))
	} else {
		offset := layout.CalculateViewportOffset(a.cursor, len(a.items), height)
		for i, item := range a.items {
			if i < offset {
				continue
			}
			if i >= offset+height {
				break
			}
			content.WriteString(a.renderItem(item, i == a.cursor, itemWidth) + "\n")
		}
	}

	return a.styles.PaneActive.
		Width(width).
		Height(height).
		Render(strings.TrimRight(content.String(), "\n"))
}

func (a App) renderPreviewPane(width, height int) string {
	var content strings.Builder

	itemWidth := layout.CalculateItemWidth(width, a.layout.Pane)

	if item, ok := a.selected(); ok {
		title, _ := layout.TruncateText(item.Title(), itemWidth, a.layout.Text)
		content.WriteString(a.styles.Title.Render(title) + "\n\n")

		if item.IsFolder() {
			content.WriteString(a.styles.Meta.Render(fmt.Sprintf("folder #%d", item.ID())) + "\n\n")
			content.WriteString(a.styles.Empty.Render(a.keys.Right.Help().Key + " to open"))
		} else {
			b := item.Bookmark
			url, _ := layout.TruncateText(b.URL, itemWidth, a.layout.Text)
			content.WriteString(a.styles.URL.Render(url) + "\n\n")
			if b.Note != "" {
				content.WriteString(a.styles.Note.Width(itemWidth).Render(b.Note) + "\n\n")
			}
			content.WriteString(a.styles.Meta.Render(fmt.Sprintf("bookmark #%d", b.ID)))
		}
	} else {
		summary := fmt.Sprintf("%d folders, %d bookmarks", len(a.view.Folders), len(a.view.Bookmarks))
		content.WriteString(a.styles.Meta.Render(summary))
	}

	return a.styles.Pane.
		Width(width).
		Height(height).
		Render(strings.TrimRight(content.String(), "\n"))
}

func (a App) renderItem(item Item, isCursor bool, maxWidth int) string {
	suffix := ""
	if item.IsFolder() {
		suffix = "/"
	}
	line, _ := layout.TruncateWithPrefixSuffix(item.Title(), maxWidth, "", suffix, a.layout.Text)

	if isCursor {
		// Pad to fill width for highlight
		if pad := maxWidth - layout.VisibleLength(line); pad > 0 {
			line += strings.Repeat(" ", pad)
		}
		return a.styles.ItemSelected.Render(line)
	}
	return a.styles.Item.Render(line)
}

// renderStatusBar renders the message line and the key hints.
func (a App) renderStatusBar() string {
	return a.renderMessageLine() + "\n" + a.renderHints(a.contextualHints())
}

// renderMessageLine renders the styled message with prefix icon based on type.
func (a App) renderMessageLine() string {
	if a.messageText == "" {
		return ""
	}
	switch a.messageType {
	case MessageError:
		return a.styles.Error.Render("✗ " + a.messageText)
	case MessageSuccess:
		return a.styles.Success.Render("✓ " + a.messageText)
	default:
		return a.styles.Info.Render(a.messageText)
	}
}

// renderModal renders the add, edit and confirm dialogs centered on screen.
func (a App) renderModal() string {
	var content strings.Builder

	switch a.mode {
	case ModeAddFolder:
		content.WriteString(a.styles.Title.Render("Add Folder") + "\n\n")
	case ModeAddBookmark:
		content.WriteString(a.styles.Title.Render("Add Bookmark") + "\n\n")
	case ModeRenameFolder:
		content.WriteString(a.styles.Title.Render("Rename Folder") + "\n\n")
	case ModeEditBookmark:
		content.WriteString(a.styles.Title.Render("Edit Bookmark") + "\n\n")
	case ModeConfirmDelete:
		kind := "bookmark"
		if a.pending.IsFolder() {
			kind = "folder"
		}
		content.WriteString(a.styles.Title.Render(fmt.Sprintf("Delete %s?", kind)) + "\n\n")
		content.WriteString(a.pending.Title() + "\n\n")
		if a.pending.IsFolder() {
			content.WriteString(a.styles.Meta.Render("Contents follow the delete policy.") + "\n\n")
		}
	}

	if a.mode != ModeConfirmDelete {
		for i, input := range a.form.Inputs {
			content.WriteString(a.form.Labels[i] + ":\n")
			content.WriteString(input.View() + "\n\n")
		}
		if a.form.Err != "" {
			content.WriteString(a.styles.Error.Render(a.form.Err) + "\n\n")
		}
	}
	content.WriteString(a.renderHintsInline(a.contextualHints()))

	width := layout.CalculateModalWidth(a.width, a.layout.Modal)
	modal := a.styles.Modal.Width(width).Render(content.String())

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, modal)
}

// renderHelpOverlay lists every browse binding with its description.
func (a App) renderHelpOverlay() string {
	var content strings.Builder
	content.WriteString(a.styles.Title.Render("Keys") + "\n\n")

	keyCol := lipgloss.NewStyle().Width(a.layout.Modal.HelpKeyColumnWidth)
	for _, b := range a.keys.browseBindings() {
		h := b.Help()
		content.WriteString(keyCol.Render(a.styles.HintKey.Render(h.Key)) + a.styles.HintDesc.Render(h.Desc) + "\n")
	}
	content.WriteString("\n" + a.styles.Meta.Render("any key to close"))

	return lipgloss.NewStyle().Padding(1, 2).Render(content.String())
}

// Hint represents a single keybind hint for display.
type Hint struct {
	Key  string // Display key (e.g., "j/k", "Enter")
	Desc string // Short description (e.g., "move", "open")
}

func hint(b key.Binding, desc string) Hint {
	return Hint{Key: b.Help().Key, Desc: desc}
}

// contextualHints returns the hints for the current mode.
func (a App) contextualHints() []Hint {
	k := a.keys
	switch a.mode {
	case ModeConfirmDelete:
		return []Hint{hint(k.Confirm, "delete"), hint(k.Deny, "cancel")}
	case ModeAddFolder, ModeRenameFolder:
		return []Hint{hint(k.Submit, "save"), hint(k.Cancel, "cancel")}
	case ModeAddBookmark, ModeEditBookmark:
		return []Hint{hint(k.NextField, "next"), hint(k.Submit, "save"), hint(k.Cancel, "cancel")}
	}

	hints := []Hint{{Key: "j/k", Desc: "move"}}
	if a.view.CanGoBack {
		hints = append(hints, hint(k.Left, "back"))
	}
	if item, ok := a.selected(); ok {
		if item.IsFolder() {
			hints = append(hints, hint(k.Right, "open"))
		} else {
			hints = append(hints, hint(k.YankURL, "yank"))
		}
		hints = append(hints, hint(k.Edit, "edit"), hint(k.Delete, "delete"))
	}
	return append(hints,
		hint(k.AddBookmark, "add"),
		hint(k.AddFolder, "folder"),
		hint(k.Refresh, "refresh"),
		hint(k.Help, "help"),
		hint(k.Quit, "quit"),
	)
}

// renderHints renders hints in horizontal format for bottom bar: "j/k:move h:back l:open"
func (a App) renderHints(hints []Hint) string {
	parts := make([]string, len(hints))
	for i, h := range hints {
		parts[i] = a.styles.HintKey.Render(h.Key) + ":" + a.styles.HintDesc.Render(h.Desc)
	}
	return strings.Join(parts, " ")
}

// renderHintsInline renders hints in inline format for modals: "Enter save  Esc cancel"
func (a App) renderHintsInline(hints []Hint) string {
	parts := make([]string, len(hints))
	for i, h := range hints {
		parts[i] = a.styles.HintKey.Render(h.Key) + " " + a.styles.HintDesc.Render(h.Desc)
	}
	return strings.Join(parts, "  ")
}
