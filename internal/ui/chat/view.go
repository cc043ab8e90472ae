// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the interactive chat view for the TUI.
//
// This file renders the two-zone layout: a conversation pane holding the
// visible transcript window and a fixed-height stats zone under the input
// editor. Rendering is idempotent; unchanged state reuses the cached
// conversation pane.
package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/vllmchat-tui/internal/model"
)

// =============================================================================
// VIEW
// =============================================================================

// View implements tea.Model.
func (m *Model) View() string {
	m.statsBar.SetFollowing(m.transcript.Scroll().FollowLatest)

	sections := []string{
		m.header.View(),
		m.renderConversation(),
		m.theme.InputContainer.Width(m.width - 2).Render(m.input.View()),
		m.statsBar.View(),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderConversation renders the visible transcript window, reusing the
// cached pane when nothing changed since the last frame.
func (m *Model) renderConversation() string {
	if !m.convDirty && m.convCache != "" {
		return m.convCache
	}

	height, width := m.conversationSize()

	var body string
	if m.showHelp {
		body = m.renderHelp(width)
	} else {
		body = m.renderMessages(height, width)
	}

	pane := m.theme.Container.
		Width(m.width - 2).
		Height(height).
		MaxHeight(height + 1).
		Render(body)

	m.convCache = pane
	m.convDirty = false
	return pane
}

// renderMessages renders the scroll window's visible slice.
func (m *Model) renderMessages(height, width int) string {
	visible := m.transcript.Visible(height, width)
	if len(visible) == 0 {
		return m.theme.InputPlaceholder.Render("Start the conversation with a message.")
	}

	blocks := make([]string, 0, len(visible))
	for _, msg := range visible {
		blocks = append(blocks, m.renderMessage(msg, width))
	}
	return lipgloss.JoinVertical(lipgloss.Left, blocks...)
}

// renderMessage renders one message with its role label. Finalized
// assistant messages go through glamour; streaming content stays raw so
// partial markdown never flickers through the renderer.
func (m *Model) renderMessage(msg *model.Message, width int) string {
	label, bubble := m.roleStyles(msg.Role)

	content := msg.DisplayContent()
	if msg.Role == model.RoleAssistant && !msg.IsStreaming {
		content = m.renderMarkdown(msg, width)
	}
	if msg.IsStreaming {
		content += m.theme.StreamCursor.Render("▌")
	}

	header := label.Render(msg.Role.DisplayName())
	if msg.Role == model.RoleAssistant && !msg.IsStreaming && msg.TokensPerSec > 0 {
		header += " " + m.theme.StatsLabel.Render(msg.StatsLine())
	}

	body := bubble.Width(width).Render(content)
	return header + "\n" + body
}

// roleStyles returns the label and bubble styles for a role.
func (m *Model) roleStyles(role model.Role) (label, bubble lipgloss.Style) {
	switch role {
	case model.RoleUser:
		return m.theme.UserLabel, m.theme.UserBubble
	case model.RoleSystem:
		return m.theme.SystemLabel, m.theme.SystemBubble
	default:
		return m.theme.AssistantLabel, m.theme.AssistantBubble
	}
}

// renderMarkdown renders finalized assistant content with glamour,
// caching per message since glamour rendering is expensive.
func (m *Model) renderMarkdown(msg *model.Message, width int) string {
	if !m.cfg.UI.Markdown {
		return msg.DisplayContent()
	}
	if cached, ok := m.mdCache[msg.ID]; ok {
		return cached
	}

	r := m.markdownRenderer(width - 2)
	if r == nil {
		return msg.DisplayContent()
	}
	out, err := r.Render(msg.DisplayContent())
	if err != nil {
		return msg.DisplayContent()
	}
	out = strings.TrimRight(out, "\n")

	m.mdCache[msg.ID] = out
	return out
}

// renderHelp renders the key binding and command reference.
func (m *Model) renderHelp(width int) string {
	title := m.theme.HelpTitle.Render("vllmchat help")
	box := m.theme.HelpBox.Width(width - 4).Render(title + "\n\n" + helpText())
	return box
}
