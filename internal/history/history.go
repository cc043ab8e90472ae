// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history provides a SQLite-backed log of completed generations,
// powering the stats command.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Schema creates the generations table.
const schema = `
CREATE TABLE IF NOT EXISTS generations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at INTEGER NOT NULL,
	model TEXT NOT NULL,
	fragments INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	tokens_per_sec INTEGER NOT NULL,
	ok INTEGER NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS idx_generations_started ON generations(started_at);
`

// =============================================================================
// TYPES
// =============================================================================

// Generation is one logged generation.
type Generation struct {
	ID           int64
	StartedAt    time.Time
	Model        string
	Fragments    int
	Duration     time.Duration
	TokensPerSec int
	OK           bool
}

// Summary aggregates the log for display.
type Summary struct {
	Generations    int
	Failed         int
	TotalFragments int
	AvgRate        int
	MaxRate        int
}

// =============================================================================
// LOG
// =============================================================================

// Log records completed generations in a SQLite database.
type Log struct {
	db *sql.DB
}

// DefaultPath returns the default database location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".vllmchat", "history.db"), nil
}

// Open opens (or creates) the generation log at path.
func Open(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Log{db: db}, nil
}

// Record appends one generation to the log.
func (l *Log) Record(g Generation) error {
	ok := 0
	if g.OK {
		ok = 1
	}
	_, err := l.db.Exec(
		`INSERT INTO generations (started_at, model, fragments, duration_ms, tokens_per_sec, ok)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		g.StartedAt.Unix(), g.Model, g.Fragments, g.Duration.Milliseconds(), g.TokensPerSec, ok,
	)
	if err != nil {
		return fmt.Errorf("failed to record generation: %w", err)
	}
	return nil
}

// Recent returns the newest n generations, newest first.
func (l *Log) Recent(n int) ([]Generation, error) {
	rows, err := l.db.Query(
		`SELECT id, started_at, model, fragments, duration_ms, tokens_per_sec, ok
		 FROM generations ORDER BY started_at DESC, id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query generations: %w", err)
	}
	defer rows.Close()

	var gens []Generation
	for rows.Next() {
		var g Generation
		var startedAt, durationMs int64
		var ok int
		if err := rows.Scan(&g.ID, &startedAt, &g.Model, &g.Fragments, &durationMs, &g.TokensPerSec, &ok); err != nil {
			return nil, err
		}
		g.StartedAt = time.Unix(startedAt, 0)
		g.Duration = time.Duration(durationMs) * time.Millisecond
		g.OK = ok == 1
		gens = append(gens, g)
	}
	return gens, rows.Err()
}

// Summarize aggregates all logged generations.
func (l *Log) Summarize() (*Summary, error) {
	row := l.db.QueryRow(
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN ok = 0 THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(fragments), 0),
		        COALESCE(AVG(tokens_per_sec), 0),
		        COALESCE(MAX(tokens_per_sec), 0)
		 FROM generations`)

	var s Summary
	var avg float64
	if err := row.Scan(&s.Generations, &s.Failed, &s.TotalFragments, &avg, &s.MaxRate); err != nil {
		return nil, fmt.Errorf("failed to summarize generations: %w", err)
	}
	s.AvgRate = int(avg)
	return &s, nil
}

// Close closes the underlying database.
func (l *Log) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}
