// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/vllmchat-tui/internal/storage"
)

func sampleConversation() *storage.StoredConversation {
	now := time.Now()
	return &storage.StoredConversation{
		ID:        "abc",
		Summary:   "what is Go?",
		Model:     "test-model",
		CreatedAt: now,
		UpdatedAt: now,
		Messages: []storage.StoredMessage{
			{Role: "system", Content: "be brief", Timestamp: now},
			{Role: "user", Content: "what is Go?", Timestamp: now},
			{Role: "assistant", Content: "A language.", Timestamp: now, TokenCount: 3, TokensPerSec: 42.5},
		},
	}
}

func TestMarkdownExport(t *testing.T) {
	exporter := NewMarkdownExporter(nil)

	content, err := exporter.Export(sampleConversation())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	md := string(content)
	for _, want := range []string{
		"# what is Go?",
		"[System]",
		"[User]",
		"[Assistant]",
		"A language.",
		"Tokens: 3",
		"test-model",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("Export missing %q", want)
		}
	}
}

func TestMarkdownExportEmptyConversation(t *testing.T) {
	exporter := NewMarkdownExporter(nil)

	if _, err := exporter.Export(&storage.StoredConversation{}); err == nil {
		t.Error("Expected error for empty conversation")
	}
	if _, err := exporter.Export(nil); err == nil {
		t.Error("Expected error for nil conversation")
	}
}

func TestMarkdownExportWithoutMetadata(t *testing.T) {
	exporter := NewMarkdownExporter(&Options{IncludeMetadata: false})

	content, err := exporter.Export(sampleConversation())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if strings.Contains(string(content), "Session Information") {
		t.Error("Metadata section present despite IncludeMetadata=false")
	}
}

func TestExportToFile(t *testing.T) {
	dir := t.TempDir()

	path, err := ExportToFile(sampleConversation(), &Options{
		OutputDir:       dir,
		IncludeMetadata: true,
	})
	if err != nil {
		t.Fatalf("ExportToFile failed: %v", err)
	}

	if !strings.HasSuffix(path, ".md") {
		t.Errorf("Expected .md extension, got %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Exported file unreadable: %v", err)
	}
	if !strings.Contains(string(data), "## Conversation") {
		t.Error("Exported file missing conversation body")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"hello world", "hello_world"},
		{"a/b\\c:d", "abcd"},
		{"", "untitled"},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatRoleLabelUnknownRole(t *testing.T) {
	exporter := NewMarkdownExporter(nil)
	if got := exporter.formatRoleLabel("moderator"); got != "Moderator" {
		t.Errorf("Expected title-cased role, got %q", got)
	}
}
