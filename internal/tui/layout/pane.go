package layout

// CalculatePaneHeight computes the content height for panes.
// Returns at least MinHeight.
func CalculatePaneHeight(terminalHeight int, cfg PaneConfig) int {
	height := terminalHeight - cfg.HeightReduction
	if height < cfg.MinHeight {
		return cfg.MinHeight
	}
	return height
}

// SplitWidth divides the terminal width between the listing pane and the
// preview pane. Neither goes below MinWidth.
func SplitWidth(terminalWidth int, cfg PaneConfig) (list, preview int) {
	available := terminalWidth - cfg.WidthOffset
	list = available * cfg.ListPercent / 100
	preview = available - list
	if list < cfg.MinWidth {
		list = cfg.MinWidth
	}
	if preview < cfg.MinWidth {
		preview = cfg.MinWidth
	}
	return list, preview
}

// CalculateItemWidth computes the width available for item content.
func CalculateItemWidth(paneWidth int, cfg PaneConfig) int {
	return paneWidth - cfg.ContentPadding
}

// CalculateViewportOffset calculates the scroll offset needed to keep the
// selected item visible within the viewport.
func CalculateViewportOffset(selected, total, viewportHeight int) int {
	if total <= viewportHeight {
		return 0
	}

	// Keep selection roughly centered, but clamp to valid range
	offset := selected - viewportHeight/2
	if offset < 0 {
		offset = 0
	}

	maxOffset := total - viewportHeight
	if offset > maxOffset {
		offset = maxOffset
	}

	return offset
}
