package layout

// Config holds all layout-related configuration values.
type Config struct {
	Pane  PaneConfig
	Modal ModalConfig
	Input InputConfig
	Text  TextConfig
}

// PaneConfig holds pane dimension configuration.
type PaneConfig struct {
	// HeightReduction is subtracted from terminal height for pane content.
	// Accounts for: app padding (1) + breadcrumb (1) + pane borders (2) + status bar (2) = 6
	HeightReduction int

	// MinHeight is the minimum pane height.
	MinHeight int

	// WidthOffset is subtracted before splitting the width between the
	// listing and the preview. Covers app padding and both pane borders.
	WidthOffset int

	// ListPercent is the listing pane's share of the split width.
	ListPercent int

	// MinWidth is the minimum width of either pane.
	MinWidth int

	// ContentPadding is subtracted from pane width for item rendering.
	ContentPadding int
}

// ModalConfig holds modal dialog configuration.
type ModalConfig struct {
	// WidthPercent is the modal width as percentage of terminal width.
	WidthPercent int

	MinWidth int
	MaxWidth int

	// HelpKeyColumnWidth is the key column width in the help overlay.
	HelpKeyColumnWidth int
}

// InputConfig holds text input configuration.
type InputConfig struct {
	NameCharLimit int // folder names and bookmark titles
	URLCharLimit  int
	NoteCharLimit int
	Width         int
}

// TextConfig holds text truncation configuration.
type TextConfig struct {
	Ellipsis string
}

// DefaultConfig returns the default layout configuration.
func DefaultConfig() Config {
	return Config{
		Pane: PaneConfig{
			HeightReduction: 6,
			MinHeight:       3,
			WidthOffset:     8,
			ListPercent:     50,
			MinWidth:        20,
			ContentPadding:  4,
		},
		Modal: ModalConfig{
			WidthPercent:       50,
			MinWidth:           40,
			MaxWidth:           70,
			HelpKeyColumnWidth: 14,
		},
		Input: InputConfig{
			NameCharLimit: 100,
			URLCharLimit:  500,
			NoteCharLimit: 300,
			Width:         40,
		},
		Text: TextConfig{
			Ellipsis: "...",
		},
	}
}
