// Copyright 2024 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package logging

import (
	"log/slog"
	"os"
	"strings"
	"testing"
)

func TestJobHandlerCapturesRecords(t *testing.T) {
	h := NewJobHandler(10)
	logger := slog.New(h)
	logger.Info("export started", "job", "abc123")
	logger.Warn("decoder warning", "path", "seg.mp4")

	tail := h.Tail()
	if len(tail) != 2 {
		t.Fatalf("got %d lines, want 2: %v", len(tail), tail)
	}
	if !strings.Contains(tail[0], "export started") || !strings.Contains(tail[0], "job=abc123") {
		t.Fatalf("unexpected first line: %q", tail[0])
	}
}

func TestJobHandlerRingWraps(t *testing.T) {
	h := NewJobHandler(2)
	logger := slog.New(h)
	logger.Info("one")
	logger.Info("two")
	logger.Info("three")

	tail := h.Tail()
	if len(tail) != 2 {
		t.Fatalf("got %d lines, want 2", len(tail))
	}
	if strings.Contains(tail[0], "one") || strings.Contains(tail[1], "one") {
		t.Fatal("oldest line should have been evicted")
	}
}

func TestWithJobFansOutToBothHandlers(t *testing.T) {
	base := New(os.Stderr, false)
	jobHandler := NewJobHandler(10)
	logger := WithJob(base, jobHandler)

	logger.Info("rendering", "percent", 50)

	if len(jobHandler.Tail()) != 1 {
		t.Fatalf("expected the job handler to also receive the record")
	}
}
