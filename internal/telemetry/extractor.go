// Copyright 2024 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package telemetry

import (
	"context"
	"log/slog"
	"os"
	"sort"

	"github.com/tesladash/clipforge/internal/clip"
	"github.com/tesladash/clipforge/internal/library"
)

// Extract produces time-sorted Samples for [startMs, endMs) within
// collection, reading at most one segment's bytes into memory at a time
// (§4.3). ctx is polled between segments, never inside one; on
// cancellation the partial, still-sorted result is returned with
// Cancelled set.
//
// A zero-sample outcome is not itself an error (an empty collection
// returns an empty Result with a nil error); callers that need the
// "no telemetry available" notice should check len(Result.Samples) == 0
// and treat ErrNoTelemetry as a caller-facing classification, not a
// condition this function fails on.
func Extract(ctx context.Context, collection *library.DayCollection, startMs, endMs int64, dec FrameDecoder) (Result, error) {
	if dec == nil {
		dec = NoopDecoder
	}

	var samples []Sample
	for i, g := range collection.Groups {
		segStart := collection.SegmentStartsMs[i]
		segDur := library.GroupDuration(g)
		segEnd := segStart + segDur
		if segEnd <= startMs || segStart >= endMs {
			continue
		}

		select {
		case <-ctx.Done():
			return finalize(samples, true), nil
		default:
		}

		fd, ok := pickCameraFile(g)
		if !ok {
			continue
		}
		data, err := os.ReadFile(fd.File.Path)
		if err != nil {
			slog.Warn("telemetry: segment read failed", "path", fd.File.Path, "err", err)
			continue
		}
		frames, err := dec.DecodeFrames(data)
		if err != nil {
			slog.Warn("telemetry: decoder warning", "path", fd.File.Path, "err", err)
			continue
		}

		var segLocalMs int64
		for _, fr := range frames {
			if fr.SEI != nil {
				s := *fr.SEI
				s.TimestampMs = segStart + segLocalMs
				samples = append(samples, s)
			}
			segLocalMs += fr.DurationMs
		}
	}

	return finalize(samples, false), nil
}

// pickCameraFile prefers the front camera; SEI is replicated across
// cameras, so any available file will do otherwise (§4.3 step 2).
func pickCameraFile(g *library.ClipGroup) (clip.ClipFile, bool) {
	if cf, ok := g.FilesByCamera[clip.Front]; ok {
		return cf, true
	}
	for _, cam := range clip.AllCameras {
		if cf, ok := g.FilesByCamera[cam]; ok {
			return cf, true
		}
	}
	return clip.ClipFile{}, false
}

func finalize(samples []Sample, cancelled bool) Result {
	sort.SliceStable(samples, func(i, j int) bool { return samples[i].TimestampMs < samples[j].TimestampMs })
	return Result{
		Samples:   samples,
		GpsPath:   buildGpsPath(samples),
		Cancelled: cancelled,
	}
}

func buildGpsPath(samples []Sample) GpsPath {
	var path GpsPath
	for _, s := range samples {
		if !s.HasGPS || !validGPS(s.LatitudeDeg, s.LongitudeDeg) {
			continue
		}
		path = append(path, GpsPoint{LatitudeDeg: s.LatitudeDeg, LongitudeDeg: s.LongitudeDeg, TimestampMs: s.TimestampMs})
	}
	return path
}
