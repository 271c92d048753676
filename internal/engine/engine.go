// Copyright 2024 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package engine composes the library indexer, telemetry extractor,
// encoder probe, export planner, and process supervisor behind the §6
// CLI/service surface: the one place that knows about all of them.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/tesladash/clipforge/internal/encoder"
	"github.com/tesladash/clipforge/internal/export"
	"github.com/tesladash/clipforge/internal/job"
	"github.com/tesladash/clipforge/internal/library"
	"github.com/tesladash/clipforge/internal/overlay"
	"github.com/tesladash/clipforge/internal/telemetry"
)

// ErrUnknownJob is returned by Subscribe/Cancel for a jobId the Engine
// never issued or has already forgotten.
var ErrUnknownJob = errors.New("engine: unknown job id")

// Engine is the transport-agnostic core: one top-level composition point
// that runs scan -> extract -> plan -> supervise end to end. One Engine per
// process owns the encoder.Capability cache (process-wide, read-mostly
// after the first probe) and the table of every job.ExportJob it has
// started; finished jobs stay in the table so Snapshot can still report
// them.
type Engine struct {
	FFmpegPath string
	ScratchDir string
	Translator overlay.Translator
	Decoder    telemetry.FrameDecoder

	prober encoder.Prober

	mu   sync.Mutex
	jobs map[string]*job.ExportJob
}

// New returns an Engine ready to serve requests. decoder may be nil, in
// which case telemetry.NoopDecoder is used (§1/§9: the SEI wire format is
// out of scope here, so no export ships with real telemetry until a
// caller supplies one).
func New(ffmpegPath, scratchDir string, tr overlay.Translator, decoder telemetry.FrameDecoder) *Engine {
	if tr == nil {
		tr = overlay.DefaultTable
	}
	if decoder == nil {
		decoder = telemetry.NoopDecoder
	}
	return &Engine{
		FFmpegPath: ffmpegPath,
		ScratchDir: scratchDir,
		Translator: tr,
		Decoder:    decoder,
		jobs:       map[string]*job.ExportJob{},
	}
}

// Scan walks rootPath and indexes every Tesla clip file found (§4.1, §4.2).
func (e *Engine) Scan(rootPath string) (*library.Index, error) {
	files, err := library.Scan(rootPath)
	if err != nil {
		return nil, err
	}
	return library.BuildIndex(files, nil), nil
}

// Collections returns ix's playable units (§4.2, §3).
func (e *Engine) Collections(ix *library.Index) []*library.DayCollection {
	return ix.Collections
}

// ExtractTelemetry extracts samples and a GPS polyline for
// [startMs, endMs) of collection, honoring cancelSignal (§4.3, §5).
func (e *Engine) ExtractTelemetry(ctx context.Context, collection *library.DayCollection, startMs, endMs int64) (telemetry.Result, error) {
	return telemetry.Extract(ctx, collection, startMs, endMs, e.Decoder)
}

// ProbeEncoders runs the process-wide, at-most-once encoder capability
// probe (§4.4, §5).
func (e *Engine) ProbeEncoders(ctx context.Context) (encoder.Capability, error) {
	return e.prober.Probe(ctx, e.FFmpegPath)
}

// StartExport registers a new ExportJob up front, then plans req: it moves
// the job through Extracting when an overlay needs telemetry, running the
// extraction under that state's own cancellable context so a cancel mid-
// extraction converges the job on Cancelled instead of proceeding to plan
// and render anyway. Once planning succeeds it attaches the Plan and
// starts the job's Supervisor on a new goroutine. It returns the job id
// immediately; progress is observed via Subscribe (§6).
func (e *Engine) StartExport(ctx context.Context, req *export.ExportRequest) (string, error) {
	caps, err := e.ProbeEncoders(ctx)
	if err != nil {
		slog.Warn("engine: encoder probe failed, falling back to cpu", "err", err)
	}

	j := job.New()
	e.mu.Lock()
	e.jobs[j.ID] = j
	e.mu.Unlock()

	var tel telemetry.Result
	if req.IncludeDashboard || req.IncludeMinimap {
		extractCtx, enterErr := j.EnterExtracting(ctx)
		if enterErr != nil {
			e.mu.Lock()
			delete(e.jobs, j.ID)
			e.mu.Unlock()
			return "", enterErr
		}
		tel, err = e.ExtractTelemetry(extractCtx, req.Collection, req.StartMs, req.EndMs)
		if err != nil {
			j.FailExtraction(job.ErrorIoError)
			return j.ID, nil
		}
		if tel.Cancelled {
			j.CancelExtraction()
			return j.ID, nil
		}
		if len(tel.Samples) == 0 {
			slog.Warn("engine: no telemetry available for the requested range, dashboard/minimap disabled",
				"err", telemetry.ErrNoTelemetry)
		}
	}

	plan, err := export.BuildPlan(req, caps, tel, e.Translator)
	if err != nil {
		e.mu.Lock()
		delete(e.jobs, j.ID)
		e.mu.Unlock()
		return "", err
	}
	j.SetPlan(plan)

	sup := &job.Supervisor{FFmpegPath: e.FFmpegPath, ScratchDir: e.ScratchDir}
	go func() {
		if err := sup.Run(ctx, j); err != nil {
			slog.Error("engine: supervisor could not start job", "job", j.ID, "err", err)
		}
	}()

	return j.ID, nil
}

// Subscribe returns jobId's progress stream (§6). The returned function
// must be called to unregister the listener.
func (e *Engine) Subscribe(jobID string) (<-chan job.ProgressEvent, func(), error) {
	e.mu.Lock()
	j, ok := e.jobs[jobID]
	e.mu.Unlock()
	if !ok {
		return nil, nil, ErrUnknownJob
	}
	ch, unsubscribe := j.Subscribe()
	return ch, unsubscribe, nil
}

// Cancel requests termination of jobId, idempotently (§5).
func (e *Engine) Cancel(jobID string) error {
	e.mu.Lock()
	j, ok := e.jobs[jobID]
	e.mu.Unlock()
	if !ok {
		return ErrUnknownJob
	}
	j.Cancel()
	return nil
}

// Snapshot returns jobId's current state for a polling collaborator.
func (e *Engine) Snapshot(jobID string) (job.Snapshot, error) {
	e.mu.Lock()
	j, ok := e.jobs[jobID]
	e.mu.Unlock()
	if !ok {
		return job.Snapshot{}, ErrUnknownJob
	}
	return j.Snapshot(), nil
}
