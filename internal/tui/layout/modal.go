package layout

// CalculateModalWidth computes responsive modal width: WidthPercent of the
// terminal, clamped between MinWidth and MaxWidth, and never wider than the
// terminal minus the app padding.
func CalculateModalWidth(terminalWidth int, cfg ModalConfig) int {
	width := terminalWidth * cfg.WidthPercent / 100

	if width < cfg.MinWidth {
		width = cfg.MinWidth
	}
	if width > cfg.MaxWidth {
		width = cfg.MaxWidth
	}

	if width > terminalWidth-4 {
		width = terminalWidth - 4
	}
	if width < 1 {
		return 1
	}
	return width
}
