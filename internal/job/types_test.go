// Copyright 2024 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package job

import (
	"context"
	"testing"
)

func TestNewJobStartsPlanning(t *testing.T) {
	j := New()
	snap := j.Snapshot()
	if snap.State != Planning {
		t.Fatalf("got state %v, want Planning", snap.State)
	}
	if snap.ID == "" {
		t.Fatal("expected a non-empty generated ID")
	}
}

func TestTransitionFollowsStateMachine(t *testing.T) {
	j := New()
	if err := j.transition(Rendering); err != nil {
		t.Fatalf("Planning -> Rendering: %v", err)
	}
	if err := j.transition(Succeeded); err != nil {
		t.Fatalf("Rendering -> Succeeded: %v", err)
	}
	if j.Snapshot().State != Succeeded {
		t.Fatalf("got %v, want Succeeded", j.Snapshot().State)
	}
}

func TestTransitionRejectsSkippingRendering(t *testing.T) {
	j := New()
	if err := j.transition(Succeeded); err == nil {
		t.Fatal("expected Planning -> Succeeded to be rejected")
	}
}

func TestTransitionOutOfTerminalStateRejected(t *testing.T) {
	j := New()
	_ = j.transition(Failed)
	if err := j.transition(Rendering); err == nil {
		t.Fatal("expected a transition out of a terminal state to be rejected")
	}
}

func TestTransitionRecordsEndedAt(t *testing.T) {
	j := New()
	_ = j.transition(Cancelled)
	snap := j.Snapshot()
	if snap.EndedAt.IsZero() {
		t.Fatal("expected EndedAt to be set on reaching a terminal state")
	}
}

func TestSubscribeReceivesPublishedEvents(t *testing.T) {
	j := New()
	ch, unsubscribe := j.Subscribe()
	defer unsubscribe()

	j.publish(ProgressEvent{Kind: KindProgress, Percent: 42})
	e := <-ch
	if e.JobID != j.ID {
		t.Fatalf("got JobID %q, want %q", e.JobID, j.ID)
	}
	if e.Percent != 42 {
		t.Fatalf("got percent %v, want 42", e.Percent)
	}
}

func TestCancelBeforeRunIsSafe(t *testing.T) {
	j := New()
	j.Cancel() // no child process registered yet; must not panic
}

func TestEnterExtractingTransitionsState(t *testing.T) {
	j := New()
	extractCtx, err := j.EnterExtracting(context.Background())
	if err != nil {
		t.Fatalf("EnterExtracting: %v", err)
	}
	if extractCtx == nil {
		t.Fatal("expected a non-nil derived context")
	}
	if j.Snapshot().State != Extracting {
		t.Fatalf("got state %v, want Extracting", j.Snapshot().State)
	}
}

func TestCancelDuringExtractingCancelsDerivedContext(t *testing.T) {
	j := New()
	extractCtx, err := j.EnterExtracting(context.Background())
	if err != nil {
		t.Fatalf("EnterExtracting: %v", err)
	}
	j.Cancel()
	select {
	case <-extractCtx.Done():
	default:
		t.Fatal("expected Cancel to cancel the derived extraction context")
	}
}

func TestCancelExtractionReachesCancelled(t *testing.T) {
	j := New()
	if _, err := j.EnterExtracting(context.Background()); err != nil {
		t.Fatalf("EnterExtracting: %v", err)
	}
	ch, unsubscribe := j.Subscribe()
	defer unsubscribe()

	j.CancelExtraction()

	snap := j.Snapshot()
	if snap.State != Cancelled {
		t.Fatalf("got state %v, want Cancelled", snap.State)
	}
	evt, ok := <-ch
	if !ok {
		t.Fatal("expected a complete event before the channel closed")
	}
	if evt.Kind != KindComplete || evt.Success || evt.Error != ErrorCancelled {
		t.Fatalf("got event %+v, want a failed complete event with ErrorCancelled", evt)
	}
	if _, ok := <-ch; ok {
		t.Fatal("expected the progress channel to be closed")
	}
}

func TestFailExtractionReachesFailed(t *testing.T) {
	j := New()
	if _, err := j.EnterExtracting(context.Background()); err != nil {
		t.Fatalf("EnterExtracting: %v", err)
	}
	j.FailExtraction(ErrorIoError)
	snap := j.Snapshot()
	if snap.State != Failed {
		t.Fatalf("got state %v, want Failed", snap.State)
	}
	if snap.Error != ErrorIoError {
		t.Fatalf("got error %v, want ErrorIoError", snap.Error)
	}
}
