// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/vllmchat-tui/internal/ui/styles"
	"github.com/jeranaias/vllmchat-tui/internal/util"
)

// Header renders the single-line title bar at the top of the chat view.
type Header struct {
	Width     int
	Title     string
	ModelName string
	theme     *styles.Theme
}

// NewHeader creates a new Header component.
func NewHeader(theme *styles.Theme) *Header {
	return &Header{
		Width: 80,
		Title: "vllmchat",
		theme: theme,
	}
}

// SetWidth updates the header width.
func (h *Header) SetWidth(width int) {
	h.Width = width
}

// SetModel updates the model name display.
func (h *Header) SetModel(name string) {
	h.ModelName = name
}

// View renders the header at the current width.
func (h *Header) View() string {
	title := h.theme.HeaderTitle.Render(h.Title)

	var model string
	if h.ModelName != "" {
		model = h.theme.HeaderModel.Render(util.TruncateWidth(h.ModelName, h.Width/2))
	}

	gap := h.Width - lipgloss.Width(title) - lipgloss.Width(model) - 4
	if gap < 1 {
		gap = 1
	}

	row := title + lipgloss.NewStyle().Width(gap).Render("") + model
	return h.theme.Header.Width(h.Width).Render(row)
}
