// Copyright 2024 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package overlay

import (
	"strings"
	"testing"
	"time"

	"github.com/tesladash/clipforge/internal/telemetry"
)

func sampleAt(ms int64, speed float64, left, right bool) telemetry.Sample {
	return telemetry.Sample{
		TimestampMs:  ms,
		SpeedMps:     speed,
		Gear:         telemetry.GearDrive,
		Autopilot:    telemetry.AutopilotAutosteer,
		BlinkerLeft:  left,
		BlinkerRight: right,
	}
}

// TestDashboardEventCoverage verifies that, for a single style run with no
// state changes mid-window, events cover [0, duration) without gaps or
// overlaps within any one visual element's timeline.
func TestDashboardEventCoverage(t *testing.T) {
	samples := []telemetry.Sample{sampleAt(0, 20, false, false)}
	doc, err := CompileDashboard(samples, DashboardOptions{Position: TopLeft, Size: SizeMedium}, 1920, 1080, 0, 5000, DefaultTable)
	if err != nil {
		t.Fatalf("CompileDashboard: %v", err)
	}
	if len(doc.Events) == 0 {
		t.Fatal("expected at least one event")
	}
	// The static background panel must span the entire window exactly once.
	found := false
	for _, e := range doc.Events {
		if e.StartMs == 0 && e.EndMs == 5000 {
			found = true
		}
		if e.StartMs < 0 || e.EndMs > 5000 {
			t.Errorf("event out of range: [%d,%d)", e.StartMs, e.EndMs)
		}
	}
	if !found {
		t.Error("expected a background panel event spanning the full window")
	}
}

// TestDashboardBlinkerAnimates confirms the blinker's on/off cycling
// produces more than one run when active across multiple cycles (event
// minimization should not collapse an animating blinker into one event).
func TestDashboardBlinkerAnimates(t *testing.T) {
	samples := []telemetry.Sample{sampleAt(0, 10, true, false)}
	doc, err := CompileDashboard(samples, DashboardOptions{Position: TopLeft, Size: SizeMedium}, 1920, 1080, 0, 3200, DefaultTable)
	if err != nil {
		t.Fatalf("CompileDashboard: %v", err)
	}
	runs := 0
	for _, e := range doc.Events {
		if strings.Contains(e.Text, "\\c&H00C800&") {
			runs++
		}
	}
	if runs < 2 {
		t.Errorf("expected multiple blinker-on runs across 3.2s at 0.8s cycle, got %d", runs)
	}
}

func TestDashboardZeroDuration(t *testing.T) {
	doc, err := CompileDashboard(nil, DashboardOptions{}, 1920, 1080, 100, 100, DefaultTable)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Events) != 0 {
		t.Errorf("expected no events for zero-duration window, got %d", len(doc.Events))
	}
}

func TestTranslateFallsBackToEnglishThenKey(t *testing.T) {
	if got := DefaultTable.Translate("es", KeyUnitMph); got != "MPH" {
		t.Errorf("es MPH = %q", got)
	}
	if got := DefaultTable.Translate("fr", KeyGearDrive); got != "D" {
		t.Errorf("fr falls back to en, got %q", got)
	}
	if got := DefaultTable.Translate("fr", "not.a.real.key"); got != "not.a.real.key" {
		t.Errorf("unknown key should fall back to itself, got %q", got)
	}
}

func TestBlurZoneValidate(t *testing.T) {
	cases := []struct {
		name    string
		polygon []Point
		wantErr bool
	}{
		{"too few points", []Point{{0, 0}, {1, 1}}, true},
		{"collinear", []Point{{0, 0}, {0.5, 0.5}, {1, 1}}, true},
		{"valid triangle", []Point{{0, 0}, {1, 0}, {0, 1}}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			z := BlurZone{Camera: "front", Polygon: c.polygon}
			err := z.Validate()
			if (err != nil) != c.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, c.wantErr)
			}
		})
	}
}

func TestRasterizeMaskRejectsInvalidPolygon(t *testing.T) {
	z := BlurZone{Camera: "front", Polygon: []Point{{0, 0}, {1, 1}}}
	if _, err := RasterizeMask(z, 100, 100); err == nil {
		t.Error("expected error for degenerate polygon")
	}
}

func TestRasterizeMaskProducesPNG(t *testing.T) {
	z := BlurZone{Camera: "front", Polygon: []Point{{0.2, 0.2}, {0.8, 0.2}, {0.8, 0.8}, {0.2, 0.8}}}
	data, err := RasterizeMask(z, 64, 64)
	if err != nil {
		t.Fatalf("RasterizeMask: %v", err)
	}
	if len(data) < 8 || string(data[1:4]) != "PNG" {
		t.Error("expected a PNG-encoded mask")
	}
}

func TestRasterizeMaskUsesSuppliedBytes(t *testing.T) {
	z := BlurZone{Camera: "front", Polygon: []Point{{0, 0}, {1, 0}, {1, 1}}, MaskPngBytes: []byte("precomputed")}
	data, err := RasterizeMask(z, 64, 64)
	if err != nil {
		t.Fatalf("RasterizeMask: %v", err)
	}
	if string(data) != "precomputed" {
		t.Error("expected supplied mask bytes to be returned verbatim")
	}
}

func TestCompileMinimapTileModeUnsupported(t *testing.T) {
	_, err := CompileMinimap(telemetry.GpsPath{{LatitudeDeg: 1, LongitudeDeg: 1}}, MinimapOptions{RenderMode: MinimapTileImage}, 1920, 1080, 0, 1000)
	if err != ErrTileModeUnsupported {
		t.Errorf("err = %v, want ErrTileModeUnsupported", err)
	}
}

func TestCompileMinimapVectorProducesRouteAndMarker(t *testing.T) {
	path := telemetry.GpsPath{
		{LatitudeDeg: 37.0, LongitudeDeg: -122.0, TimestampMs: 0},
		{LatitudeDeg: 37.001, LongitudeDeg: -122.001, TimestampMs: 1000},
		{LatitudeDeg: 37.002, LongitudeDeg: -122.002, TimestampMs: 2000},
	}
	doc, err := CompileMinimap(path, MinimapOptions{Position: BottomRight, Size: SizeMedium, RenderMode: MinimapVector}, 1920, 1080, 0, 2000)
	if err != nil {
		t.Fatalf("CompileMinimap: %v", err)
	}
	if len(doc.Events) < 3 {
		t.Errorf("expected background + route + marker events, got %d", len(doc.Events))
	}
}

func TestCompileMinimapEmptyPath(t *testing.T) {
	doc, err := CompileMinimap(nil, MinimapOptions{RenderMode: MinimapVector}, 1920, 1080, 0, 2000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Events) != 0 {
		t.Error("expected no events for an empty GPS path")
	}
}

func TestSimplifyPolylineKeepsEndpoints(t *testing.T) {
	path := telemetry.GpsPath{
		{LatitudeDeg: 0, LongitudeDeg: 0},
		{LatitudeDeg: 0.0000001, LongitudeDeg: 0.5},
		{LatitudeDeg: 0, LongitudeDeg: 1},
	}
	out := simplifyPolyline(path, simplifyTolerance)
	if len(out) < 2 {
		t.Fatal("simplification dropped endpoints")
	}
	if out[0] != path[0] || out[len(out)-1] != path[len(path)-1] {
		t.Error("endpoints must survive simplification")
	}
}

func TestCompileTimestamp(t *testing.T) {
	base := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	clock := func(relMs int64) time.Time {
		return base.Add(time.Duration(relMs) * time.Millisecond)
	}
	doc, err := CompileTimestamp(TimestampOptions{Position: TopLeft, DateFormat: DateYMD, TimeFormat: Time24h}, 1920, 1080, 0, 2500, clock)
	if err != nil {
		t.Fatalf("CompileTimestamp: %v", err)
	}
	if len(doc.Events) == 0 {
		t.Fatal("expected at least one timestamp event")
	}
	if !strings.Contains(doc.Events[0].Text, "2024-06-01") {
		t.Errorf("expected YMD date in %q", doc.Events[0].Text)
	}
}

func TestCompileTimestampZeroDuration(t *testing.T) {
	doc, err := CompileTimestamp(TimestampOptions{}, 1920, 1080, 500, 500, func(int64) time.Time { return time.Time{} })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Events) != 0 {
		t.Error("expected no events for zero-duration window")
	}
}

func TestRenderProducesWellFormedDialogue(t *testing.T) {
	doc := NewDocument(1920, 1080)
	doc.Add(Event{StartMs: 0, EndMs: 1000, Text: "hello"})
	doc.Add(Event{StartMs: 1000, EndMs: 1000, Text: "skipped (zero duration)"})
	text, err := doc.Render()
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(text, "[Script Info]") || !strings.Contains(text, "Dialogue: 0,0:00:00.00,0:00:01.00") {
		t.Errorf("unexpected render output: %s", text)
	}
	if strings.Contains(text, "skipped") {
		t.Error("zero-duration event should have been dropped by Add")
	}
}
