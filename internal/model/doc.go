// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for the chat transcript.
//
// This package defines the core domain types used throughout the
// application for representing the conversation and its live state.
//
// # Key Types
//
//   - Transcript: ordered, append-only message store with scroll state
//   - Message: single message with role, content, and streaming buffer
//   - HeightCache: memoized height estimates for the scroll window
//   - StatsTracker: stream event count, elapsed time, and derived rate
//
// # Usage
//
// Create a transcript and run one turn:
//
//	t := model.NewTranscript("You are a helpful assistant.")
//	t.Append(model.RoleUser, "Hello!")
//	t.StartAssistant()
//	t.AppendToActive("Hi")
//	t.FinalizeActive(nil)
package model
