// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"testing"
	"time"

	"github.com/jeranaias/vllmchat-tui/internal/config"
)

func TestProbeBudgetCoversAllAttempts(t *testing.T) {
	srv := config.ServerConfig{
		TimeoutSecs:    30,
		ProbeRetries:   10,
		ProbeDelaySecs: 2,
	}

	// 10 attempts, each allowed 30s request time plus the 2s delay.
	want := 320 * time.Second
	if got := probeBudget(srv); got != want {
		t.Errorf("probeBudget = %v, want %v", got, want)
	}
}

func TestApplyFlagsPrecedence(t *testing.T) {
	cfg := config.Default()
	applyFlags(cfg, "other-model", "http://example:9000", "", 0)

	if cfg.DefaultModel != "other-model" {
		t.Errorf("DefaultModel = %q, want flag override", cfg.DefaultModel)
	}
	if cfg.Server.BaseURL != "http://example:9000" {
		t.Errorf("BaseURL = %q, want flag override", cfg.Server.BaseURL)
	}
	if cfg.Chat.SystemPrompt == "" {
		t.Error("Empty flag should not clear the configured system prompt")
	}
	if cfg.Server.ContextLength != 32768 {
		t.Errorf("ContextLength = %d, want default preserved", cfg.Server.ContextLength)
	}
}
