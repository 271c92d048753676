// Copyright 2024 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package job runs one export as a supervised FFmpeg child process and
// tracks its state machine and progress stream (spec §4.6, §5, §6).
package job

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tesladash/clipforge/internal/export"
)

// State is one node of the ExportJob state machine (§4.6).
type State string

const (
	Planning   State = "planning"
	Extracting State = "extracting"
	Rendering  State = "rendering"
	Succeeded  State = "succeeded"
	Failed     State = "failed"
	Cancelled  State = "cancelled"
)

// terminal reports whether s has no outgoing transitions.
func (s State) terminal() bool {
	return s == Succeeded || s == Failed || s == Cancelled
}

// ErrorKind categorizes a terminal failure for the caller (§7). The zero
// value means no error.
type ErrorKind string

const (
	ErrorNone                      ErrorKind = ""
	ErrorNotATeslaClip             ErrorKind = "notATeslaClip"
	ErrorNoTelemetry               ErrorKind = "noTelemetry"
	ErrorDecoderWarning            ErrorKind = "decoderWarning"
	ErrorFFmpegMissing             ErrorKind = "ffmpegMissing"
	ErrorNoUsableEncoder           ErrorKind = "noUsableEncoder"
	ErrorCanvasExceedsEncoderLimit ErrorKind = "canvasExceedsEncoderLimit"
	ErrorEmptySelection            ErrorKind = "emptySelection"
	ErrorFFmpegRuntime             ErrorKind = "ffmpegRuntime"
	ErrorCancelled                 ErrorKind = "cancelled"
	ErrorIoError                   ErrorKind = "ioError"
)

// ErrInvalidTransition is returned by transitions that don't follow the
// state machine in §4.6.
var ErrInvalidTransition = errors.New("job: invalid state transition")

// allowed lists the legal transitions out of each non-terminal state.
var allowed = map[State][]State{
	Planning:   {Extracting, Rendering, Failed, Cancelled},
	Extracting: {Rendering, Failed, Cancelled},
	Rendering:  {Succeeded, Failed, Cancelled},
}

// EventKind is the tag on a ProgressEvent (§6).
type EventKind string

const (
	KindProgress          EventKind = "progress"
	KindDashboardProgress EventKind = "dashboardProgress"
	KindMinimapProgress   EventKind = "minimapProgress"
	KindComplete          EventKind = "complete"
)

// Message is either a plain string or a {key, params} translation
// reference; the core emits both forms and leaves rendering to the
// collaborator (§4.6).
type Message struct {
	Text   string
	Key    string
	Params map[string]string
}

// PlainMessage builds a Message carrying a literal string.
func PlainMessage(text string) Message { return Message{Text: text} }

// KeyMessage builds a Message referencing a translation table entry.
func KeyMessage(key string, params map[string]string) Message {
	return Message{Key: key, Params: params}
}

// ProgressEvent is the stable schema of §6.
type ProgressEvent struct {
	JobID   string
	Kind    EventKind
	Percent float64
	Message Message

	// Success and Error are only meaningful when Kind == KindComplete.
	Success bool
	Error   ErrorKind
}

// Snapshot is a read-only copy of an ExportJob's current state (§9: natural
// completion of the state-machine contract for a polling collaborator
// alongside the push-based Subscribe stream).
type Snapshot struct {
	ID         string
	State      State
	Percent    float64
	Error      ErrorKind
	OutputPath string
	StartedAt  time.Time
	EndedAt    time.Time
}

// ExportJob owns one export's lifecycle: its plan, its state machine, and
// its progress broadcaster. All fields are guarded by mu except ID and bus,
// which are immutable after New, and Plan, which SetPlan assigns once
// before the job is handed to a Supervisor.
type ExportJob struct {
	ID   string
	Plan *export.Plan

	mu         sync.Mutex
	state      State
	errKind    ErrorKind
	percent    float64
	outputPath string
	startedAt  time.Time
	endedAt    time.Time

	cancel context.CancelFunc
	bus    *broadcaster
}

// New creates an ExportJob in state Planning with a fresh random ID. Plan is
// nil until SetPlan is called; a job may spend time in Extracting before a
// Plan exists at all (§4.6).
func New() *ExportJob {
	return &ExportJob{
		ID:        uuid.NewString(),
		state:     Planning,
		startedAt: time.Now(),
		bus:       newBroadcaster(),
	}
}

// SetPlan attaches the assembled Plan once planning has finished. Callers
// must do this before handing j to a Supervisor.
func (j *ExportJob) SetPlan(plan *export.Plan) {
	j.mu.Lock()
	j.Plan = plan
	j.mu.Unlock()
}

// EnterExtracting transitions j into Extracting and returns a context
// derived from ctx whose cancellation is wired through j.Cancel, so a
// cancel request made while telemetry is being extracted is observed the
// same way a cancel mid-render is (§4.6, §5).
func (j *ExportJob) EnterExtracting(ctx context.Context) (context.Context, error) {
	extractCtx, cancel := context.WithCancel(ctx)
	j.mu.Lock()
	j.cancel = cancel
	j.mu.Unlock()
	if err := j.transition(Extracting); err != nil {
		cancel()
		return nil, err
	}
	return extractCtx, nil
}

// CancelExtraction converges j on Cancelled when a cancel was observed
// while extracting telemetry, before a Plan or Supervisor ever existed
// (§4.6, §5). It publishes the terminal complete event and closes j's
// progress stream, mirroring Supervisor.Run's own terminal handling.
func (j *ExportJob) CancelExtraction() {
	defer j.bus.close()
	_ = j.transition(Cancelled)
	j.publish(ProgressEvent{Kind: KindComplete, Percent: j.Snapshot().Percent, Error: ErrorCancelled, Success: false})
}

// FailExtraction converges j on Failed with kind when extracting telemetry
// itself errors out, before a Plan or Supervisor ever existed.
func (j *ExportJob) FailExtraction(kind ErrorKind) {
	defer j.bus.close()
	j.setFailure(kind)
	_ = j.transition(Failed)
	j.publish(ProgressEvent{Kind: KindComplete, Percent: j.Snapshot().Percent, Error: kind, Success: false})
}

// transition moves the job to next, rejecting transitions not listed in
// §4.6's diagram. Reaching a terminal state records endedAt.
func (j *ExportJob) transition(next State) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state.terminal() {
		return ErrInvalidTransition
	}
	ok := false
	for _, s := range allowed[j.state] {
		if s == next {
			ok = true
			break
		}
	}
	if !ok {
		return ErrInvalidTransition
	}
	j.state = next
	if next.terminal() {
		j.endedAt = time.Now()
	}
	return nil
}

func (j *ExportJob) setPercent(p float64) {
	j.mu.Lock()
	j.percent = p
	j.mu.Unlock()
}

func (j *ExportJob) setFailure(kind ErrorKind) {
	j.mu.Lock()
	j.errKind = kind
	j.mu.Unlock()
}

func (j *ExportJob) setOutputPath(p string) {
	j.mu.Lock()
	j.outputPath = p
	j.mu.Unlock()
}

// Snapshot returns the job's current state for polling collaborators.
func (j *ExportJob) Snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	return Snapshot{
		ID:         j.ID,
		State:      j.state,
		Percent:    j.percent,
		Error:      j.errKind,
		OutputPath: j.outputPath,
		StartedAt:  j.startedAt,
		EndedAt:    j.endedAt,
	}
}

// Cancel requests termination of j's child process, if one is currently
// running. It is idempotent and safe before the process has started (the
// Supervisor checks ctx.Err() once it does) and after the job has already
// reached a terminal state (§5: "Cancel(jobId) is idempotent").
func (j *ExportJob) Cancel() {
	j.mu.Lock()
	c := j.cancel
	j.mu.Unlock()
	if c != nil {
		c()
	}
}

// Subscribe registers a new listener for this job's progress stream (§6).
// The returned function unregisters it; callers must call it to avoid
// leaking the listener's channel.
func (j *ExportJob) Subscribe() (<-chan ProgressEvent, func()) {
	return j.bus.subscribe()
}

func (j *ExportJob) publish(e ProgressEvent) {
	e.JobID = j.ID
	j.bus.publish(e)
}
