package layout

import "testing"

func TestCalculatePaneHeight(t *testing.T) {
	cfg := DefaultConfig().Pane

	tests := []struct {
		name           string
		terminalHeight int
		want           int
	}{
		{"normal terminal", 24, 18},           // 24 - 6 = 18
		{"large terminal", 50, 44},            // 50 - 6 = 44
		{"small terminal enforces min", 8, 3}, // 8 - 6 = 2, min is 3
		{"smaller than reduction", 4, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CalculatePaneHeight(tt.terminalHeight, cfg); got != tt.want {
				t.Errorf("CalculatePaneHeight(%d) = %d, want %d", tt.terminalHeight, got, tt.want)
			}
		})
	}
}

func TestSplitWidth(t *testing.T) {
	cfg := DefaultConfig().Pane

	tests := []struct {
		name          string
		terminalWidth int
		wantList      int
		wantPreview   int
	}{
		{"normal width", 80, 36, 36},         // (80-8) split in half
		{"wide terminal", 120, 56, 56},       // (120-8) split in half
		{"odd remainder to preview", 81, 36, 37},
		{"narrow enforces min", 30, 20, 20}, // 11 each, min 20
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, preview := SplitWidth(tt.terminalWidth, cfg)
			if list != tt.wantList || preview != tt.wantPreview {
				t.Errorf("SplitWidth(%d) = (%d, %d), want (%d, %d)",
					tt.terminalWidth, list, preview, tt.wantList, tt.wantPreview)
			}
		})
	}
}

func TestCalculateViewportOffset(t *testing.T) {
	tests := []struct {
		name                      string
		selected, total, viewport int
		want                      int
	}{
		{"fits", 2, 3, 5, 0},
		{"top", 0, 10, 5, 0},
		{"middle centers", 5, 10, 5, 3},
		{"bottom clamps", 9, 10, 5, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CalculateViewportOffset(tt.selected, tt.total, tt.viewport); got != tt.want {
				t.Errorf("CalculateViewportOffset(%d, %d, %d) = %d, want %d",
					tt.selected, tt.total, tt.viewport, got, tt.want)
			}
		})
	}
}

func TestCalculateModalWidth(t *testing.T) {
	cfg := DefaultConfig().Modal

	tests := []struct {
		name          string
		terminalWidth int
		want          int
	}{
		{"normal terminal", 80, 40},        // 50% of 80
		{"wide terminal clamps to max", 200, 70},
		{"narrow terminal uses min", 60, 40},
		{"min capped by terminal", 30, 26}, // 30 - 4
		{"tiny terminal clamps to 1", 4, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CalculateModalWidth(tt.terminalWidth, cfg); got != tt.want {
				t.Errorf("CalculateModalWidth(%d) = %d, want %d", tt.terminalWidth, got, tt.want)
			}
		})
	}
}

func TestStripANSI(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"no ANSI", "hello", "hello"},
		{"bold", "\x1b[1mhello\x1b[0m", "hello"},
		{"multiple codes", "\x1b[1m\x1b[31mred bold\x1b[0m", "red bold"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripANSI(tt.input); got != tt.want {
				t.Errorf("StripANSI(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
	if got := VisibleLength("\x1b[1mこんにちは\x1b[0m"); got != 5 {
		t.Errorf("VisibleLength = %d, want 5", got)
	}
}

func TestTruncate(t *testing.T) {
	cfg := DefaultConfig().Text

	tests := []struct {
		name     string
		text     string
		maxWidth int
		prefix   string
		suffix   string
		want     string
	}{
		{"fits", "hello", 10, "", "", "hello"},
		{"truncated", "hello world", 8, "", "", "hello..."},
		{"narrower than ellipsis", "hello", 2, "", "", ".."},
		{"zero width", "hello", 0, "", "", ""},
		{"suffix fits exactly", "Development", 12, "", "/", "Development/"},
		{"suffix preserved", "Development", 10, "", "/", "Develo.../"},
		{"unicode", "こんにちは世界", 6, "", "", "こんに..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := TruncateWithPrefixSuffix(tt.text, tt.maxWidth, tt.prefix, tt.suffix, cfg)
			if got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.text, tt.maxWidth, got, tt.want)
			}
		})
	}
}

func TestTruncatePathFromLeft(t *testing.T) {
	cfg := DefaultConfig().Text

	if got := TruncatePathFromLeft("bm / Work", 20, cfg); got != "bm / Work" {
		t.Errorf("short path changed: %q", got)
	}
	if got := TruncatePathFromLeft("bm / Work / Projects", 12, cfg); got != "... Projects" {
		t.Errorf("got %q, want %q", got, "... Projects")
	}
	if got := TruncatePathFromLeft("bm / Work", 2, cfg); got != ".." {
		t.Errorf("got %q", got)
	}
}
