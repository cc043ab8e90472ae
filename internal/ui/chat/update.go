// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the interactive chat view for the TUI.
package chat

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/vllmchat-tui/internal/history"
	"github.com/jeranaias/vllmchat-tui/internal/model"
	"github.com/jeranaias/vllmchat-tui/internal/storage"
	"github.com/jeranaias/vllmchat-tui/internal/vllm"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StreamStartMsg:
		return m.handleStreamStart(msg)

	case StreamFragmentMsg:
		return m.handleStreamFragment(msg)

	case StreamCompleteMsg:
		return m.handleStreamComplete(msg)

	case StreamErrorMsg:
		return m.handleStreamError(msg)

	case RedrawTickMsg:
		return m.handleRedrawTick()

	case ServerStatusMsg:
		if !msg.Running {
			m.appendSystem("Server unreachable: " + errText(msg.Err))
		}
		return m, nil

	case ModelsMsg:
		return m.handleModels(msg)

	case SavedMsg:
		if msg.Err != nil {
			m.appendSystem("Save failed: " + msg.Err.Error())
		} else {
			m.appendSystem("Conversation saved (" + msg.ID + ")")
		}
		return m, nil

	case ExportedMsg:
		if msg.Err != nil {
			m.appendSystem("Export failed: " + msg.Err.Error())
		} else {
			m.appendSystem("Conversation exported to " + msg.Path)
		}
		return m, nil

	case HistorySummaryMsg:
		if msg.Err != nil {
			m.appendSystem("History unavailable: " + msg.Err.Error())
		} else {
			m.appendSystem(formatHistorySummary(msg.Summary))
		}
		return m, nil

	case ConfigReloadedMsg:
		return m.handleConfigReload(msg)
	}

	return m.updateInput(msg)
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, m.quit()

	case key.Matches(msg, m.keys.Submit):
		return m.handleSubmit()

	case key.Matches(msg, m.keys.ScrollUp):
		m.transcript.ScrollUp()
		m.invalidate()
		return m, nil

	case key.Matches(msg, m.keys.ScrollDown):
		m.transcript.ScrollDown()
		m.invalidate()
		return m, nil

	case key.Matches(msg, m.keys.Clear):
		m.clearConversation()
		return m, nil

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.invalidate()
		return m, nil
	}

	return m.updateInput(msg)
}

// handleSubmit validates and dispatches the input buffer. Auto-repeated
// submit events inside the debounce window are dropped so one physical
// press yields exactly one submission.
func (m *Model) handleSubmit() (tea.Model, tea.Cmd) {
	now := time.Now()
	if now.Sub(m.lastSubmit) < m.debounce {
		return m, nil
	}

	content := strings.TrimSpace(m.input.Value())
	if content == "" {
		return m, nil
	}
	m.lastSubmit = now

	if cmd := ParseSessionCommand(content); cmd != CmdNone {
		m.input.Reset()
		return m.runSessionCommand(cmd)
	}

	// One generation at a time.
	if m.stats.Generating() {
		return m, nil
	}

	m.input.Reset()
	m.transcript.Append(model.RoleUser, content)
	m.invalidate()

	return m, m.startGeneration()
}

// runSessionCommand executes an inline command typed into the input.
func (m *Model) runSessionCommand(cmd SessionCommand) (tea.Model, tea.Cmd) {
	switch cmd {
	case CmdExit:
		return m, m.quit()
	case CmdClear:
		m.clearConversation()
	case CmdHelp:
		m.showHelp = !m.showHelp
		m.invalidate()
	case CmdScrollUp:
		m.transcript.ScrollUp()
		m.invalidate()
	case CmdScrollDown:
		m.transcript.ScrollDown()
		m.invalidate()
	case CmdSave:
		return m, saveConversationCmd(m.store, m.transcript, m.chatModel)
	case CmdStats:
		return m, historySummaryCmd(m.histLog)
	case CmdExport:
		return m, exportConversationCmd(m.transcript, m.chatModel)
	}
	return m, nil
}

// quit optionally persists the conversation, then stops the program.
func (m *Model) quit() tea.Cmd {
	if m.cfg.Storage.AutoSave && m.store != nil && m.transcript.Len() > 1 {
		// Best effort; quitting proceeds regardless.
		_, _ = m.store.Save(storage.FromTranscript(m.transcript, m.chatModel))
	}
	return tea.Quit
}

func (m *Model) clearConversation() {
	m.transcript.Clear()
	m.mdCache = make(map[string]string)
	m.stats = model.NewStatsTracker()
	m.invalidate()
}

func (m *Model) appendSystem(text string) {
	m.transcript.Append(model.RoleSystem, text)
	m.invalidate()
}

// =============================================================================
// STREAMING HANDLERS
// =============================================================================

// startGeneration launches the network goroutine for the current transcript.
func (m *Model) startGeneration() tea.Cmd {
	m.stats.Start()
	m.gate.Reset()
	m.activeID = ""
	m.statsBar.SetSnapshot(m.stats.Snapshot())

	if m.runner == nil {
		m.appendSystem("Error: no connection to the inference server")
		m.stats.Fail("no connection")
		return nil
	}

	wire := m.transcript.ToWire()
	go m.runner.Run(context.Background(), m.chatModel, wire)

	return redrawTickCmd(m.gate.Interval())
}

func (m *Model) handleStreamStart(msg StreamStartMsg) (tea.Model, tea.Cmd) {
	m.activeID = msg.MessageID
	m.streamStarted = msg.StartTime
	return m, nil
}

// handleStreamFragment appends one fragment to the active assistant
// message. The assistant message is created lazily on the first fragment
// so a turn that fails before the first byte leaves no empty message
// behind.
func (m *Model) handleStreamFragment(msg StreamFragmentMsg) (tea.Model, tea.Cmd) {
	if msg.MessageID != m.activeID {
		return m, nil
	}

	if m.transcript.Active() == nil {
		m.transcript.StartAssistant()
	}
	m.transcript.AppendToActive(msg.Fragment)
	m.stats.RecordFragment()

	if m.gate.Note() {
		m.invalidate()
	}
	m.statsBar.SetSnapshot(m.stats.Snapshot())
	return m, nil
}

func (m *Model) handleStreamComplete(msg StreamCompleteMsg) (tea.Model, tea.Cmd) {
	if msg.MessageID != m.activeID {
		return m, nil
	}

	m.stats.Finish()
	snap := m.stats.Snapshot()
	m.transcript.FinalizeActive(&snap)
	m.statsBar.SetSnapshot(snap)
	m.activeID = ""
	m.gate.Reset()
	m.invalidate()

	m.recordGeneration(snap, true)
	return m, nil
}

// handleStreamError surfaces the failure as a system entry and resets to
// idle. A partial assistant message is frozen as-is; the session itself
// continues.
func (m *Model) handleStreamError(msg StreamErrorMsg) (tea.Model, tea.Cmd) {
	if m.activeID != "" && msg.MessageID != m.activeID {
		return m, nil
	}

	reason := errText(msg.Err)
	m.stats.Fail(reason)
	snap := m.stats.Snapshot()

	if m.transcript.Active() != nil {
		m.transcript.FinalizeActive(&snap)
	}
	m.appendSystem("Error: " + reason)
	m.statsBar.SetSnapshot(snap)
	m.activeID = ""
	m.gate.Reset()

	m.recordGeneration(snap, false)
	return m, nil
}

// handleRedrawTick flushes deferred fragments and reschedules itself while
// a stream is active.
func (m *Model) handleRedrawTick() (tea.Model, tea.Cmd) {
	if !m.stats.Generating() {
		return m, nil
	}
	if m.gate.Flush() {
		m.invalidate()
	}
	m.statsBar.SetSnapshot(m.stats.Snapshot())
	return m, redrawTickCmd(m.gate.Interval())
}

// recordGeneration logs the finished turn to the history database.
func (m *Model) recordGeneration(snap model.StatsSnapshot, ok bool) {
	if m.histLog == nil {
		return
	}
	started := m.streamStarted
	if started.IsZero() {
		started = time.Now()
	}
	_ = m.histLog.Record(history.Generation{
		StartedAt:    started,
		Model:        m.chatModel,
		Fragments:    snap.TokenCount,
		Duration:     time.Duration(snap.ElapsedSeconds * float64(time.Second)),
		TokensPerSec: snap.TokensPerSecond,
		OK:           ok,
	})
}

// =============================================================================
// OTHER HANDLERS
// =============================================================================

func (m *Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	m.header.SetWidth(msg.Width)
	m.statsBar.SetWidth(msg.Width)
	m.input.SetWidth(msg.Width - 2)

	// Word-wrap width changed, drop renderer and caches.
	m.mdRender = nil
	m.mdCache = make(map[string]string)
	m.invalidate()
	return m, nil
}

func (m *Model) handleModels(msg ModelsMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		return m, nil
	}
	for _, info := range msg.Models {
		if info.ID == m.chatModel {
			return m, nil
		}
	}
	if len(msg.Models) > 0 {
		m.appendSystem("Warning: model " + m.chatModel + " is not served; available: " + joinModelIDs(msg.Models))
	}
	return m, nil
}

func (m *Model) handleConfigReload(msg ConfigReloadedMsg) (tea.Model, tea.Cmd) {
	if msg.Config == nil {
		return m, nil
	}
	m.cfg = msg.Config
	m.debounce = time.Duration(msg.Config.UI.SubmitDebounceMs) * time.Millisecond
	m.gate = NewRedrawGate(
		ParseRedrawPolicy(msg.Config.UI.RedrawPolicy),
		msg.Config.UI.RedrawBatchSize,
		msg.Config.UI.RedrawMaxFPS,
	)
	m.invalidate()
	return m, nil
}

// updateInput forwards a message to the textarea.
func (m *Model) updateInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func errText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

func joinModelIDs(models []vllm.ModelInfo) string {
	ids := make([]string, 0, len(models))
	for _, info := range models {
		ids = append(ids, info.ID)
	}
	return strings.Join(ids, ", ")
}

// =============================================================================
// PROGRAM RUNNER FOR STREAMING
// =============================================================================

// StreamRunner executes generation requests on a goroutine and delivers
// results to the Bubble Tea program with Send. It is the only component
// that touches the network during a turn; transcript mutation stays on
// the update loop.
type StreamRunner struct {
	program *tea.Program
	client  *vllm.Client
}

// NewStreamRunner creates a new stream runner.
func NewStreamRunner(program *tea.Program, client *vllm.Client) *StreamRunner {
	return &StreamRunner{
		program: program,
		client:  client,
	}
}

// Run executes one streaming chat turn.
func (r *StreamRunner) Run(ctx context.Context, chatModel string, messages []model.WireMessage) {
	messageID := newTurnID()

	if r.program == nil {
		return
	}
	if r.client == nil {
		r.program.Send(StreamErrorMsg{
			MessageID: messageID,
			Err:       vllm.ErrNotRunning,
		})
		return
	}

	r.program.Send(StreamStartMsg{
		MessageID: messageID,
		StartTime: time.Now(),
	})

	completeSent := false
	streamErr := r.client.ChatStream(ctx, chatModel, messages, func(chunk vllm.StreamChunk) {
		if chunk.Error != nil {
			r.program.Send(StreamErrorMsg{
				MessageID: messageID,
				Err:       chunk.Error,
			})
			return
		}

		if chunk.Content != "" {
			r.program.Send(StreamFragmentMsg{
				MessageID: messageID,
				Fragment:  chunk.Content,
			})
		}

		if chunk.Done && !completeSent {
			completeSent = true
			r.program.Send(StreamCompleteMsg{MessageID: messageID})
		}
	})

	switch {
	case streamErr != nil && !completeSent:
		r.program.Send(StreamErrorMsg{
			MessageID: messageID,
			Err:       streamErr,
		})
	case streamErr == nil && !completeSent:
		// Source closed without a sentinel; treat as a clean end.
		r.program.Send(StreamCompleteMsg{MessageID: messageID})
	}
}

// newTurnID generates an identifier tying stream messages to one turn.
func newTurnID() string {
	return "turn_" + time.Now().Format("150405.000000")
}
