// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package vllm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
)

// SSE framing constants.
var (
	dataPrefix   = []byte("data: ")
	doneSentinel = []byte("[DONE]")
)

// =============================================================================
// STREAM READER
// =============================================================================

// StreamReader handles line-by-line parsing of an SSE chat completion
// stream. Relevant lines carry the "data: " prefix; "data: [DONE]" marks
// end-of-stream. Malformed payloads are skipped without aborting.
type StreamReader struct {
	reader *bufio.Reader
	// PERFORMANCE: strings.Builder avoids quadratic allocations
	accumulator strings.Builder
	// One increment per received non-empty fragment. Counts stream
	// events, not model tokens.
	tokenCount int
}

// NewStreamReader creates a new stream reader from an io.Reader.
func NewStreamReader(r io.Reader) *StreamReader {
	return &StreamReader{
		reader: bufio.NewReader(r),
	}
}

// Process reads the stream and calls the callback for each chunk.
// Blocks until the stream is complete or the context is cancelled.
func (s *StreamReader) Process(ctx context.Context, callback StreamCallback) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			chunk, err := s.readChunk()
			if err != nil {
				if err == io.EOF {
					return nil
				}
				return err
			}

			if chunk != nil {
				callback(*chunk)
				if chunk.Done {
					return nil
				}
			}
		}
	}
}

// readChunk reads and parses a single line from the stream.
// Returns (nil, nil) for lines that carry nothing: blanks, comments, and
// malformed payloads.
func (s *StreamReader) readChunk() (*StreamChunk, error) {
	line, err := s.reader.ReadBytes('\n')
	if err != nil {
		if err == io.EOF && len(line) == 0 {
			return nil, io.EOF
		}
		// Try to process the last line even on EOF
		if len(line) == 0 {
			return nil, err
		}
	}

	line = bytes.TrimSpace(line)

	// Skip blank lines and anything without the data marker
	if len(line) == 0 || !bytes.HasPrefix(line, dataPrefix) {
		return nil, nil
	}

	payload := bytes.TrimSpace(line[len(dataPrefix):])

	// Sentinel ends the stream
	if bytes.Equal(payload, doneSentinel) {
		return &StreamChunk{Done: true}, nil
	}

	var event streamEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		// Skip malformed lines
		return nil, nil
	}

	if len(event.Choices) == 0 {
		return nil, nil
	}

	content := event.Choices[0].Delta.Content
	if content != "" {
		s.accumulator.WriteString(content)
		s.tokenCount++
	}

	chunk := &StreamChunk{
		Content:      content,
		FinishReason: event.Choices[0].FinishReason,
	}
	if chunk.FinishReason != "" {
		chunk.Done = true
	}

	return chunk, nil
}

// Accumulated returns all accumulated content.
func (s *StreamReader) Accumulated() string {
	return s.accumulator.String()
}

// TokenCount returns the number of fragments received.
func (s *StreamReader) TokenCount() int {
	return s.tokenCount
}
