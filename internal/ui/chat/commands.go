// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the interactive chat view for the TUI.
//
// This file implements session commands typed directly into the input
// line (exit, clear, help, scroll up, ...) and the Bubble Tea commands
// that talk to the server and the persistence layers.
package chat

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/vllmchat-tui/internal/export"
	"github.com/jeranaias/vllmchat-tui/internal/history"
	"github.com/jeranaias/vllmchat-tui/internal/model"
	"github.com/jeranaias/vllmchat-tui/internal/storage"
	"github.com/jeranaias/vllmchat-tui/internal/vllm"
)

// =============================================================================
// SESSION COMMANDS
// =============================================================================

// SessionCommand identifies an inline command typed into the input.
type SessionCommand int

const (
	CmdNone SessionCommand = iota
	CmdExit
	CmdClear
	CmdHelp
	CmdScrollUp
	CmdScrollDown
	CmdSave
	CmdStats
	CmdExport
)

// ParseSessionCommand recognizes inline session commands. Matching is
// case-insensitive on the whole (trimmed) input; anything else is a chat
// turn.
func ParseSessionCommand(input string) SessionCommand {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "exit", "quit":
		return CmdExit
	case "clear", "reset":
		return CmdClear
	case "help", "?":
		return CmdHelp
	case "scroll up":
		return CmdScrollUp
	case "scroll down":
		return CmdScrollDown
	case "save":
		return CmdSave
	case "stats":
		return CmdStats
	case "export":
		return CmdExport
	default:
		return CmdNone
	}
}

// helpText returns the content of the help overlay.
func helpText() string {
	var sb strings.Builder
	sb.WriteString("Keys\n")
	sb.WriteString("  Enter        insert newline\n")
	sb.WriteString("  Ctrl+J       send message\n")
	sb.WriteString("  PgUp/Ctrl+U  scroll up\n")
	sb.WriteString("  PgDn/Ctrl+D  scroll down\n")
	sb.WriteString("  Ctrl+L       clear conversation\n")
	sb.WriteString("  F1           toggle this help\n")
	sb.WriteString("  Ctrl+C       quit\n")
	sb.WriteString("\nCommands (typed into the input)\n")
	sb.WriteString("  exit, quit      leave the session\n")
	sb.WriteString("  clear, reset    clear the conversation (keeps system prompt)\n")
	sb.WriteString("  help, ?         toggle this help\n")
	sb.WriteString("  scroll up/down  move the conversation window\n")
	sb.WriteString("  save            save the conversation to disk\n")
	sb.WriteString("  stats           show generation history statistics\n")
	sb.WriteString("  export          write the conversation to a Markdown file\n")
	return sb.String()
}

// =============================================================================
// SERVER COMMANDS
// =============================================================================

// checkServerCmd creates a command that checks server reachability.
func checkServerCmd(client *vllm.Client) tea.Cmd {
	return func() tea.Msg {
		if client == nil {
			return ServerStatusMsg{Running: false, Err: vllm.ErrNotRunning}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err := client.CheckRunning(ctx)
		return ServerStatusMsg{Running: err == nil, Err: err}
	}
}

// listModelsCmd creates a command that lists the models the server exposes.
func listModelsCmd(client *vllm.Client) tea.Cmd {
	return func() tea.Msg {
		if client == nil {
			return ModelsMsg{Err: vllm.ErrNotRunning}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		models, err := client.ListModels(ctx)
		return ModelsMsg{Models: models, Err: err}
	}
}

// =============================================================================
// PERSISTENCE COMMANDS
// =============================================================================

// saveConversationCmd persists the transcript as a stored conversation.
// The snapshot is taken before the command runs so the transcript is not
// touched off the update loop.
func saveConversationCmd(store *storage.ConversationStore, t *model.Transcript, chatModel string) tea.Cmd {
	conv := storage.FromTranscript(t, chatModel)
	return func() tea.Msg {
		if store == nil {
			return SavedMsg{Err: storage.ErrConversationNotFound}
		}
		id, err := store.Save(conv)
		return SavedMsg{ID: id, Err: err}
	}
}

// exportConversationCmd writes the transcript to a Markdown file in the
// current directory. Like saveConversationCmd, the snapshot is taken on
// the update loop.
func exportConversationCmd(t *model.Transcript, chatModel string) tea.Cmd {
	conv := storage.FromTranscript(t, chatModel)
	return func() tea.Msg {
		path, err := export.ExportToFile(conv, nil)
		return ExportedMsg{Path: path, Err: err}
	}
}

// historySummaryCmd fetches aggregate generation statistics.
func historySummaryCmd(log *history.Log) tea.Cmd {
	return func() tea.Msg {
		if log == nil {
			return HistorySummaryMsg{Summary: &history.Summary{}}
		}
		summary, err := log.Summarize()
		return HistorySummaryMsg{Summary: summary, Err: err}
	}
}

// formatHistorySummary renders a history summary as transcript text.
func formatHistorySummary(s *history.Summary) string {
	if s == nil || s.Generations == 0 {
		return "No generations recorded yet."
	}

	var sb strings.Builder
	sb.WriteString("Generation history\n")
	sb.WriteString("  generations: " + itoa(s.Generations) + "\n")
	sb.WriteString("  failed:      " + itoa(s.Failed) + "\n")
	sb.WriteString("  fragments:   " + itoa(s.TotalFragments) + "\n")
	sb.WriteString("  avg rate:    " + itoa(s.AvgRate) + " tok/s\n")
	sb.WriteString("  max rate:    " + itoa(s.MaxRate) + " tok/s")
	return sb.String()
}

// itoa avoids pulling fmt into the hot path.
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
