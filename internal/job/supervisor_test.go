// Copyright 2024 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package job

import (
	"context"
	"testing"
	"time"

	"github.com/tesladash/clipforge/internal/clip"
	"github.com/tesladash/clipforge/internal/export"
)

func TestParseProgressMsOutTimeMs(t *testing.T) {
	ms, ok := parseProgressMs("out_time_ms=4500000")
	if !ok || ms != 4500 {
		t.Fatalf("got (%v, %v), want (4500, true)", ms, ok)
	}
}

func TestParseProgressMsHumanReadableTime(t *testing.T) {
	ms, ok := parseProgressMs("frame=  120 fps= 30 q=-1.0 size=  1024kB time=00:00:04.50 bitrate= 500kbits/s")
	if !ok || ms != 4500 {
		t.Fatalf("got (%v, %v), want (4500, true)", ms, ok)
	}
}

func TestParseProgressMsUnrecognizedLine(t *testing.T) {
	if _, ok := parseProgressMs("frame= 120 fps= 30"); ok {
		t.Fatal("expected no match")
	}
}

func TestClampPercent(t *testing.T) {
	cases := map[float64]float64{-5: 0, 0: 0, 50: 50, 100: 100, 150: 100}
	for in, want := range cases {
		if got := clampPercent(in); got != want {
			t.Errorf("clampPercent(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestEscapeFilterPath(t *testing.T) {
	got := escapeFilterPath(`C:\overlays\dashboard.ass`)
	want := `C\:\\overlays\\dashboard.ass`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestSupervisorRunMissingFFmpegFails(t *testing.T) {
	plan := &export.Plan{
		Request: &export.ExportRequest{StartMs: 0, EndMs: 1000, OutputPath: t.TempDir() + "/out.mp4"},
		Inputs: []export.CameraInput{
			{Camera: clip.Front, Segments: []export.Segment{{Path: "/clips/front.mp4", DurationMs: 1000}}},
		},
		FilterComplex: "[0:v]scale=640:480[out]",
		VideoMapLabel: "out",
		EncoderCodec:  "libx264",
		BitrateKbps:   1000,
		DurationMs:    1000,
	}
	j := New()
	j.SetPlan(plan)
	s := &Supervisor{FFmpegPath: "/nonexistent/ffmpeg-binary-for-test", ScratchDir: t.TempDir()}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Run(ctx, j); err != nil {
		t.Fatalf("Run returned an error instead of a terminal job state: %v", err)
	}

	snap := j.Snapshot()
	if snap.State != Failed {
		t.Fatalf("got state %v, want Failed", snap.State)
	}
	if snap.Error != ErrorFFmpegMissing {
		t.Fatalf("got error kind %v, want ErrorFFmpegMissing", snap.Error)
	}
}
