// Copyright 2024 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package overlay

import (
	"fmt"
	"time"
)

// timestampFrameMs is the timestamp overlay's sampling step: one sample per
// second, since a clock display only changes once a second. It is coarser
// than the dashboard's dashFrameMs; the run-on-change logic is the same.
const timestampFrameMs = 1000.0

// CompileTimestamp emits an ASS document that burns in the vehicle-local
// wall clock time for each frame, used when the dashboard is disabled
// (§4.5.5: mutually exclusive with the dashboard overlay). wallClockAtMs
// maps a collection-relative offset (startMs-based) to vehicle-local time.
func CompileTimestamp(opts TimestampOptions, canvasW, canvasH int, startMs, endMs int64, wallClockAtMs func(relativeMs int64) time.Time) (*Document, error) {
	doc := NewDocument(canvasW, canvasH)
	duration := endMs - startMs
	if duration <= 0 {
		return doc, nil
	}

	x, y := timestampOrigin(opts.Position, canvasW, canvasH)

	var prevText string
	var runStart int64 = -1
	have := false

	flush := func(end int64) {
		if !have {
			return
		}
		doc.Add(Event{StartMs: runStart, EndMs: end, Text: fmt.Sprintf(
			"{\\pos(%s,%s)}%s", fnum(x), fnum(y), prevText)})
	}

	for ms := int64(0); ms < duration; {
		frameEnd := ms + int64(timestampFrameMs)
		if frameEnd > duration {
			frameEnd = duration
		}
		t := wallClockAtMs(startMs + ms)
		text := formatTimestamp(t, opts)
		if !have || text != prevText {
			flush(ms)
			prevText = text
			runStart = ms
			have = true
		}
		ms = frameEnd
	}
	flush(duration)

	return doc, nil
}

func formatTimestamp(t time.Time, opts TimestampOptions) string {
	var date string
	switch opts.DateFormat {
	case DateDMY:
		date = t.Format("02/01/2006")
	case DateYMD:
		date = t.Format("2006-01-02")
	default:
		date = t.Format("01/02/2006")
	}
	var clock string
	if opts.TimeFormat == Time24h {
		clock = t.Format("15:04:05")
	} else {
		clock = t.Format("3:04:05 PM")
	}
	return date + " " + clock
}

func timestampOrigin(pos Position, canvasW, canvasH int) (float64, float64) {
	margin := 16.0
	switch pos {
	case TopLeft:
		return margin, margin
	case TopRight:
		return float64(canvasW) - 220, margin
	case BottomLeft:
		return margin, float64(canvasH) - 40
	default:
		return float64(canvasW) - 220, float64(canvasH) - 40
	}
}
