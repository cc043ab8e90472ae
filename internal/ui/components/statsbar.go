// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides reusable UI components for the vllmchat TUI.
package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/vllmchat-tui/internal/model"
	"github.com/jeranaias/vllmchat-tui/internal/ui/styles"
	"github.com/jeranaias/vllmchat-tui/internal/util"
)

// =============================================================================
// STATS BAR
// =============================================================================

// StatsBar renders the generation statistics zone at the bottom of the
// chat view: status text, token throughput with a colored rate bar, and
// keyboard shortcut hints.
type StatsBar struct {
	Width         int
	ModelName     string
	Snapshot      model.StatsSnapshot
	Following     bool // false when the user scrolled away from the latest message
	ShowShortcuts bool
	theme         *styles.Theme
}

// NewStatsBar creates a new StatsBar component.
func NewStatsBar(theme *styles.Theme) *StatsBar {
	return &StatsBar{
		Width:         80,
		Following:     true,
		ShowShortcuts: true,
		theme:         theme,
	}
}

// SetWidth updates the stats bar width.
func (s *StatsBar) SetWidth(width int) {
	s.Width = width
}

// SetSnapshot updates the displayed generation statistics.
func (s *StatsBar) SetSnapshot(snap model.StatsSnapshot) {
	s.Snapshot = snap
}

// SetFollowing updates the scroll indicator state.
func (s *StatsBar) SetFollowing(following bool) {
	s.Following = following
}

// SetModel updates the model name display.
func (s *StatsBar) SetModel(name string) {
	s.ModelName = name
}

// View renders the stats bar at the current width.
func (s *StatsBar) View() string {
	if s.Width < 60 {
		return s.viewNarrow()
	}
	return s.viewWide()
}

// viewNarrow renders status text only, for cramped terminals.
func (s *StatsBar) viewNarrow() string {
	status := s.renderStatus()
	return s.theme.StatsBar.Width(s.Width).Render(status)
}

// viewWide renders status, rate bar, and shortcuts.
func (s *StatsBar) viewWide() string {
	left := s.renderStatus()

	var middle string
	if s.Snapshot.Generating {
		middle = s.renderRateBar() + " " + s.renderRate()
	} else if s.ModelName != "" {
		middle = s.theme.StatsLabel.Render(util.TruncateWidth(s.ModelName, 30))
	}

	var right string
	if !s.Following {
		right = s.theme.ScrollHint.Render("SCROLL")
	} else if s.ShowShortcuts {
		right = s.renderShortcuts()
	}

	gap := s.Width - lipgloss.Width(left) - lipgloss.Width(middle) - lipgloss.Width(right) - 4
	if gap < 2 {
		gap = 2
	}
	half := gap / 2

	row := left + strings.Repeat(" ", half) + middle + strings.Repeat(" ", gap-half) + right
	return s.theme.StatsBar.Width(s.Width).Render(row)
}

// renderStatus renders the status text with a state-appropriate color.
func (s *StatsBar) renderStatus() string {
	text := s.Snapshot.StatusText
	if text == "" {
		text = "Ready"
	}

	switch {
	case s.Snapshot.Generating:
		return s.theme.InfoStyle.Render(text)
	case strings.HasPrefix(text, "Error"):
		return s.theme.ErrorStyle.Render(text)
	case strings.HasPrefix(text, "Done"):
		return s.theme.SuccessStyle.Render(text)
	default:
		return s.theme.StatsLabel.Render(text)
	}
}

// renderRateBar renders the throughput bar.
// Format: [########------------] (20 cells, full at 100 tok/s)
func (s *StatsBar) renderRateBar() string {
	filled := model.RateBarFill(s.Snapshot.TokensPerSecond)
	empty := model.RateBarCells - filled

	filledStyle := s.theme.RateStyle(s.Snapshot.TokensPerSecond)
	filledPart := filledStyle.Render(strings.Repeat("#", filled))
	emptyPart := s.theme.RateBarDim.Render(strings.Repeat("-", empty))

	return "[" + filledPart + emptyPart + "]"
}

// renderRate renders the numeric rate with its tier color.
func (s *StatsBar) renderRate() string {
	rate := s.Snapshot.TokensPerSecond
	return s.theme.RateStyle(rate).Render(util.IntToStr(rate) + " tok/s")
}

// renderShortcuts renders keyboard shortcut hints.
func (s *StatsBar) renderShortcuts() string {
	shortcuts := []string{
		s.theme.ShortcutKey.Render("^J") + s.theme.ShortcutDesc.Render("send"),
		s.theme.ShortcutKey.Render("^C") + s.theme.ShortcutDesc.Render("quit"),
	}
	return strings.Join(shortcuts, " ")
}
