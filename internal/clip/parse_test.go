// Copyright 2024 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package clip

import "testing"

func TestParseVideo(t *testing.T) {
	cases := []struct {
		path    string
		clip    Type
		eventID string
		ts      string
		cam     Camera
	}{
		{"RecentClips/2024-01-02_03-04-05-front.mp4", Recent, "", "2024-01-02_03-04-05", Front},
		{"SentryClips/2024-01-02_03-04-05/2024-01-02_03-04-06-back.mp4", Sentry, "2024-01-02_03-04-05", "2024-01-02_03-04-06", Back},
		{"SavedClips/1970-01-01_00-00-00/1970-01-01_00-00-01-left.mp4", Saved, "1970-01-01_00-00-00", "1970-01-01_00-00-01", LeftRepeater},
		{"SavedClips/e1/1970-01-01_00-00-01-right_pillar.mp4", Saved, "e1", "1970-01-01_00-00-01", RightPillar},
		{"sentryclips/e2/2024-01-02_03-04-06-unknowncam.mp4", Sentry, "e2", "2024-01-02_03-04-06", UnknownCamera},
		{"MyDashcam/2024-01-02_03-04-06-front.mp4", Custom, "", "2024-01-02_03-04-06", Front},
	}
	for _, c := range cases {
		p := Parse(c.path)
		if p.Kind != KindVideo {
			t.Fatalf("%s: got kind %v, want video", c.path, p.Kind)
		}
		if p.ClipType != c.clip || p.EventID != c.eventID || p.TimestampKey != c.ts || p.Camera != c.cam {
			t.Fatalf("%s: got %+v", c.path, p)
		}
		if got := p.Render(); got != c.path {
			t.Fatalf("%s: round trip got %q", c.path, got)
		}
	}
}

func TestParseRejects(t *testing.T) {
	cases := []string{
		"RecentClips/not-a-clip.mp4",
		"SentryClips/event.mp4",
		"SomeRandomFile.txt",
		"RecentClips/2024-01-02_03-04-05-front.mov",
	}
	for _, c := range cases {
		if p := Parse(c); p.Kind != KindRejected && p.Kind != KindEventMP4 {
			t.Fatalf("%s: expected rejection or event asset, got %+v", c, p)
		}
	}
	// event.mp4 directly under SentryClips/<event> is an asset, not a video.
	p := Parse("SentryClips/evt/event.mp4")
	if p.Kind != KindEventMP4 {
		t.Fatalf("expected event asset, got %+v", p)
	}
}

func TestParseEventAssets(t *testing.T) {
	for _, name := range []string{"event.json", "event.png", "event.mp4"} {
		p := Parse("SentryClips/evt1/" + name)
		if p.Kind == KindRejected {
			t.Fatalf("%s: unexpectedly rejected", name)
		}
		if p.ClipType != Sentry || p.EventID != "evt1" {
			t.Fatalf("%s: got %+v", name, p)
		}
		if got := p.Render(); got != "SentryClips/evt1/"+name {
			t.Fatalf("%s: round trip got %q", name, got)
		}
	}
}

func TestParseTimestampKey(t *testing.T) {
	date, clock, ok := ParseTimestampKey("2024-01-02_03-04-05")
	if !ok || date != "2024-01-02" || clock != "03-04-05" {
		t.Fatalf("got %q %q %v", date, clock, ok)
	}
	if _, _, ok := ParseTimestampKey("garbage"); ok {
		t.Fatal("expected rejection")
	}
}
