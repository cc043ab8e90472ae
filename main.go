// vllmchat TUI - a terminal interface for streaming chat against a vLLM server.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/jeranaias/vllmchat-tui/internal/config"
	"github.com/jeranaias/vllmchat-tui/internal/history"
	"github.com/jeranaias/vllmchat-tui/internal/storage"
	"github.com/jeranaias/vllmchat-tui/internal/ui/chat"
	"github.com/jeranaias/vllmchat-tui/internal/vllm"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	var (
		flagModel   = flag.String("model", "", "model identifier (overrides config and VLLM_MODEL)")
		flagURL     = flag.String("url", "", "API base URL (overrides config and VLLM_API_URL)")
		flagSystem  = flag.String("system-prompt", "", "system prompt (overrides config)")
		flagContext = flag.Int("context-length", 0, "context length override for max_tokens derivation")
		flagVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *flagVersion {
		fmt.Printf("vllmchat %s (%s, built %s)\n", Version, GitCommit, BuildDate)
		return
	}

	cfg := config.Global()
	applyFlags(cfg, *flagModel, *flagURL, *flagSystem, *flagContext)

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprintln(os.Stderr, "Error: vllmchat requires an interactive terminal")
		os.Exit(1)
	}

	client := vllm.NewClientWithConfig(&vllm.ClientConfig{
		BaseURL:       cfg.Server.BaseURL,
		Timeout:       time.Duration(cfg.Server.TimeoutSecs) * time.Second,
		DefaultModel:  cfg.DefaultModel,
		ContextLength: cfg.Server.ContextLength,
		ProbeRetries:  cfg.Server.ProbeRetries,
		ProbeDelay:    time.Duration(cfg.Server.ProbeDelaySecs) * time.Second,
	})

	if err := waitForServer(client, cfg.Server); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	store, err := storage.NewConversationStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: conversation storage unavailable: %v\n", err)
		store = nil
	}

	var histLog *history.Log
	if cfg.History.Enabled {
		if path, err := history.DefaultPath(); err == nil {
			if histLog, err = history.Open(path); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: generation history unavailable: %v\n", err)
			}
		}
	}
	if histLog != nil {
		defer histLog.Close()
	}

	m := chat.New(cfg, client, store, histLog)

	p := tea.NewProgram(m, tea.WithAltScreen())
	m.SetProgram(p)

	// Push config edits into the running program.
	watcher, err := config.NewWatcher(func(cfg *config.Config) {
		p.Send(chat.ConfigReloadedMsg{Config: cfg})
	})
	if err == nil {
		if err := watcher.Watch(); err == nil {
			defer watcher.Close()
		}
	}

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running vllmchat: %v\n", err)
		os.Exit(1)
	}
}

// applyFlags layers CLI overrides on top of the loaded configuration.
// Precedence: flags > environment > config file > defaults.
func applyFlags(cfg *config.Config, model, url, system string, contextLength int) {
	if model != "" {
		cfg.DefaultModel = model
	}
	if url != "" {
		cfg.Server.BaseURL = url
	}
	if system != "" {
		cfg.Chat.SystemPrompt = system
	}
	if contextLength > 0 {
		cfg.Server.ContextLength = contextLength
	}
}

// waitForServer probes the models endpoint until the server responds,
// printing progress between attempts. The deadline covers the full probe
// budget so the attempt count stays the binding limit: each attempt may
// spend the request timeout plus the inter-attempt delay.
func waitForServer(client *vllm.Client, srv config.ServerConfig) error {
	ctx, cancel := context.WithTimeout(context.Background(), probeBudget(srv))
	defer cancel()

	return client.WaitForServer(ctx, func(attempt, maxAttempts int) {
		fmt.Fprintf(os.Stderr, "Waiting for server... (%d/%d)\n", attempt, maxAttempts)
	})
}

// probeBudget sizes the probe deadline from the configured attempt count
// so every attempt gets its request timeout plus the inter-attempt delay.
func probeBudget(srv config.ServerConfig) time.Duration {
	return time.Duration(srv.ProbeRetries) *
		time.Duration(srv.ProbeDelaySecs+srv.TimeoutSecs) * time.Second
}
