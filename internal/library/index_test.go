// Copyright 2024 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package library

import (
	"testing"

	"github.com/tesladash/clipforge/internal/clip"
)

func sampleFiles() []clip.FileDescriptor {
	return []clip.FileDescriptor{
		{Path: "/r/RecentClips/2024-01-02_03-04-05-front.mp4", RelPath: "RecentClips/2024-01-02_03-04-05-front.mp4"},
		{Path: "/r/RecentClips/2024-01-02_03-04-05-back.mp4", RelPath: "RecentClips/2024-01-02_03-04-05-back.mp4"},
		{Path: "/r/RecentClips/2024-01-02_03-05-05-front.mp4", RelPath: "RecentClips/2024-01-02_03-05-05-front.mp4"},
		{Path: "/r/SentryClips/evt1/2024-01-02_04-00-00-front.mp4", RelPath: "SentryClips/evt1/2024-01-02_04-00-00-front.mp4"},
		{Path: "/r/SentryClips/evt1/2024-01-02_04-01-00-front.mp4", RelPath: "SentryClips/evt1/2024-01-02_04-01-00-front.mp4"},
		{Path: "/r/SentryClips/evt1/event.json", RelPath: "SentryClips/evt1/event.json"},
		{Path: "/r/SomeJunk.txt", RelPath: "SomeJunk.txt"},
	}
}

func TestBuildIndexGrouping(t *testing.T) {
	ix := BuildIndex(sampleFiles(), nil)

	if len(ix.Groups) != 4 {
		t.Fatalf("got %d groups, want 4", len(ix.Groups))
	}
	first := ix.Groups[0]
	if len(first.FilesByCamera) != 2 {
		t.Fatalf("expected front+back merged into one group, got %+v", first.FilesByCamera)
	}
	if _, ok := first.FilesByCamera[clip.Front]; !ok {
		t.Fatal("missing front camera")
	}
	if _, ok := first.FilesByCamera[clip.Back]; !ok {
		t.Fatal("missing back camera")
	}
}

func TestBuildIndexSidecarAttachesWithoutFilesystem(t *testing.T) {
	// event.json points at a path with no real bytes on disk; reading it
	// fails and EventMeta stays nil, but the EventJSON descriptor is still
	// attached to the group.
	ix := BuildIndex(sampleFiles(), nil)
	for _, g := range ix.Groups {
		if g.ClipType == clip.Sentry && g.EventID == "evt1" && g.TimestampKey == "2024-01-02_04-00-00" {
			if g.EventJSON == nil {
				t.Fatal("event.json descriptor not attached")
			}
			if g.EventMeta != nil {
				t.Fatal("EventMeta set without a readable event.json")
			}
		}
	}
}

func TestBuildIndexOrderedByTimestamp(t *testing.T) {
	ix := BuildIndex(sampleFiles(), nil)
	for i := 1; i < len(ix.Groups); i++ {
		if ix.Groups[i-1].TimestampKey > ix.Groups[i].TimestampKey {
			t.Fatalf("groups not sorted: %s before %s", ix.Groups[i-1].TimestampKey, ix.Groups[i].TimestampKey)
		}
	}
}

func TestBuildIndexDeterministicIDs(t *testing.T) {
	a := BuildIndex(sampleFiles(), nil)
	b := BuildIndex(sampleFiles(), nil)
	if len(a.Groups) != len(b.Groups) {
		t.Fatalf("group count mismatch: %d vs %d", len(a.Groups), len(b.Groups))
	}
	for i := range a.Groups {
		if a.Groups[i].ID != b.Groups[i].ID {
			t.Fatalf("non-deterministic group id: %s vs %s", a.Groups[i].ID, b.Groups[i].ID)
		}
	}
	for i := range a.Collections {
		if a.Collections[i].ID != b.Collections[i].ID {
			t.Fatalf("non-deterministic collection id: %s vs %s", a.Collections[i].ID, b.Collections[i].ID)
		}
	}
}

func TestBuildIndexCollectionRollup(t *testing.T) {
	ix := BuildIndex(sampleFiles(), nil)

	var recentDay, sentryEvent *DayCollection
	for _, c := range ix.Collections {
		switch c.ClipType {
		case clip.Recent:
			recentDay = c
		case clip.Sentry:
			sentryEvent = c
		}
	}
	if recentDay == nil || sentryEvent == nil {
		t.Fatalf("missing expected collections: %+v", ix.Collections)
	}

	if len(recentDay.Groups) != 2 {
		t.Fatalf("recent day: got %d groups, want 2", len(recentDay.Groups))
	}
	if recentDay.SegmentStartsMs[0] != 0 {
		t.Fatalf("first segment start must be 0, got %d", recentDay.SegmentStartsMs[0])
	}
	wantGap := int64(60_000)
	if got := recentDay.SegmentStartsMs[1]; got != wantGap {
		t.Fatalf("second segment start: got %d, want %d", got, wantGap)
	}
	if recentDay.DurationMs != wantGap+NominalSegDurMs {
		t.Fatalf("duration: got %d, want %d", recentDay.DurationMs, wantGap+NominalSegDurMs)
	}

	if sentryEvent.EventID != "evt1" {
		t.Fatalf("sentry collection eventID: got %q", sentryEvent.EventID)
	}
	if len(sentryEvent.Groups) != 2 {
		t.Fatalf("sentry event: got %d groups, want 2", len(sentryEvent.Groups))
	}
}

func TestBuildIndexProgressCallback(t *testing.T) {
	var files []clip.FileDescriptor
	for i := 0; i < 1200; i++ {
		files = append(files, clip.FileDescriptor{RelPath: "junk.txt"})
	}

	var calls []Progress
	BuildIndex(files, func(p Progress) { calls = append(calls, p) })

	// batchSize is 500: boundaries at 500 and 1000, plus a final call for
	// the 200-file remainder since 1200 is not a multiple of 500.
	if len(calls) != 3 {
		t.Fatalf("got %d progress calls, want 3: %+v", len(calls), calls)
	}
	if calls[0].Done != 500 || calls[0].Total != 1200 {
		t.Fatalf("first callback: %+v", calls[0])
	}
	if calls[1].Done != 1000 || calls[1].Total != 1200 {
		t.Fatalf("second callback: %+v", calls[1])
	}
	if calls[2].Done != 1200 || calls[2].Total != 1200 {
		t.Fatalf("final callback: %+v", calls[2])
	}
}

func TestBuildIndexEmpty(t *testing.T) {
	ix := BuildIndex(nil, nil)
	if len(ix.Groups) != 0 || len(ix.Collections) != 0 {
		t.Fatalf("expected empty index, got %+v", ix)
	}
}
