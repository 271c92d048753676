// Copyright 2024 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package overlay

import (
	"fmt"
	"math"

	"github.com/tesladash/clipforge/internal/telemetry"
)

// blinkerCycleMs is the on/off period for an active blinker (§4.5.5: 0.8s
// cycle, half on, half off).
const blinkerCycleMs = 800

// dashFrameMs is the sampling granularity used to detect dashboard state
// changes, matching the blinker animation's 36fps drive clock.
const dashFrameMs = 1000.0 / 36.0

// dashState is one frame's discretized dashboard content: only the fields
// that can trigger a new overlay event are included: display speed rounded
// to an integer, gear, autopilot mode, blinker visibility, brake,
// accelerator in 10% steps and steering angle in 5° steps.
type dashState struct {
	speed        int
	gear         telemetry.Gear
	autopilot    telemetry.Autopilot
	blinkerLeft  bool
	blinkerRight bool
	brake        bool
	accelQuant   int
	steerQuant   int
}

// CompileDashboard emits an ASS document for the compact telemetry
// dashboard, positioned per opts, spanning [0, endMs-startMs) (§4.5.5).
// samples are collection-relative; startMs/endMs select the export window.
func CompileDashboard(samples []telemetry.Sample, opts DashboardOptions, canvasW, canvasH int, startMs, endMs int64, tr Translator) (*Document, error) {
	doc := NewDocument(canvasW, canvasH)
	duration := endMs - startMs
	if duration <= 0 {
		return doc, nil
	}
	if tr == nil {
		tr = DefaultTable
	}

	panelX, panelY := dashboardOrigin(opts.Position, opts.Size, canvasW, canvasH)
	scale := dashboardScale(opts.Size)

	// Static background panel spans the whole window.
	doc.Add(Event{
		StartMs: 0, EndMs: duration,
		Text: DrawTag(PosTag(0, 0)+ColorTag(0, 0, 0)+AlphaTag(0x40), roundedRectPath(panelX, panelY, 220*scale, 110*scale, 10*scale)),
	})

	var prev dashState
	var runStart int64 = -1
	haveRun := false

	flush := func(end int64) {
		if !haveRun {
			return
		}
		emitDashFrame(doc, prev, opts, tr, panelX, panelY, scale, runStart, end)
	}

	for ms := int64(0); ms < duration; {
		frameEndF := float64(ms) + dashFrameMs
		frameEnd := int64(math.Ceil(frameEndF))
		if frameEnd > duration {
			frameEnd = duration
		}
		s, _ := telemetry.Nearest(samples, startMs+ms)
		cur := discretize(s, ms, opts.UseMetric)
		if !haveRun || cur != prev {
			flush(ms)
			prev = cur
			runStart = ms
			haveRun = true
		}
		ms = frameEnd
	}
	flush(duration)

	return doc, nil
}

// mpsToMph and mpsToKmh convert meters/second to the dashboard's two
// supported display units.
const (
	mpsToMph = 2.23694
	mpsToKmh = 3.6
)

func discretize(s telemetry.Sample, frameStartMs int64, useMetric bool) dashState {
	blinkL := s.BlinkerLeft && blinkVisible(frameStartMs)
	blinkR := s.BlinkerRight && blinkVisible(frameStartMs)
	speedDisplay := s.SpeedMps * mpsToMph
	if useMetric {
		speedDisplay = s.SpeedMps * mpsToKmh
	}
	return dashState{
		speed:        int(math.Round(speedDisplay)),
		gear:         s.Gear,
		autopilot:    s.Autopilot,
		blinkerLeft:  blinkL,
		blinkerRight: blinkR,
		brake:        s.Brake,
		accelQuant:   int(math.Round(s.AcceleratorPct/10)) * 10,
		steerQuant:   int(math.Round(s.SteeringAngleDeg/5)) * 5,
	}
}

func blinkVisible(ms int64) bool {
	return ms%blinkerCycleMs < blinkerCycleMs/2
}

func emitDashFrame(doc *Document, s dashState, opts DashboardOptions, tr Translator, panelX, panelY, scale float64, startMs, endMs int64) {
	cx, cy := panelX+110*scale, panelY+55*scale

	unitKey := KeyUnitMph
	if opts.UseMetric {
		unitKey = KeyUnitKmh
	}
	doc.Add(Event{StartMs: startMs, EndMs: endMs, Text: fmt.Sprintf(
		"{\\pos(%s,%s)}%d %s", fnum(cx), fnum(cy-20*scale), s.speed, tr.Translate(opts.Language, unitKey))})

	doc.Add(Event{StartMs: startMs, EndMs: endMs, Text: fmt.Sprintf(
		"{\\pos(%s,%s)}%s / %s", fnum(cx), fnum(cy+10*scale), gearLabel(tr, opts.Language, s.gear), autopilotLabel(tr, opts.Language, s.autopilot))})

	if s.blinkerLeft {
		doc.Add(Event{StartMs: startMs, EndMs: endMs, Text: DrawTag(
			PosTag(panelX+20*scale, cy)+ColorTag(0, 200, 0), BlinkerArrowPath(scale, false))})
	}
	if s.blinkerRight {
		doc.Add(Event{StartMs: startMs, EndMs: endMs, Text: DrawTag(
			PosTag(panelX+200*scale, cy)+ColorTag(0, 200, 0), BlinkerArrowPath(scale, true))})
	}
	if s.brake {
		doc.Add(Event{StartMs: startMs, EndMs: endMs, Text: DrawTag(
			PosTag(panelX+170*scale, panelY+90*scale)+ColorTag(220, 0, 0), PedalPath(scale))})
	}
	if s.accelQuant > 0 {
		doc.Add(Event{StartMs: startMs, EndMs: endMs, Text: DrawTag(
			PosTag(panelX+50*scale, panelY+90*scale)+ColorTag(0, 120, 255), PedalPath(scale))})
	}
	doc.Add(Event{StartMs: startMs, EndMs: endMs, Text: DrawTag(
		PosTag(cx, panelY+95*scale)+RotateTag(-float64(s.steerQuant))+ColorTag(255, 255, 255), SteeringWheelPath(scale*0.6))})
}

func gearLabel(tr Translator, lang string, g telemetry.Gear) string {
	switch g {
	case telemetry.GearDrive:
		return tr.Translate(lang, KeyGearDrive)
	case telemetry.GearReverse:
		return tr.Translate(lang, KeyGearRev)
	case telemetry.GearNeutral:
		return tr.Translate(lang, KeyGearNeut)
	default:
		return tr.Translate(lang, KeyGearPark)
	}
}

func autopilotLabel(tr Translator, lang string, a telemetry.Autopilot) string {
	switch a {
	case telemetry.AutopilotSelfDriving:
		return tr.Translate(lang, KeyAPSelf)
	case telemetry.AutopilotAutosteer:
		return tr.Translate(lang, KeyAPAutost)
	case telemetry.AutopilotTACC:
		return tr.Translate(lang, KeyAPTACC)
	default:
		return tr.Translate(lang, KeyAPManual)
	}
}

// dashboardScale maps a Size tier to a pixel-per-unit multiplier.
func dashboardScale(s Size) float64 {
	switch s {
	case SizeSmall:
		return 0.7
	case SizeLarge:
		return 1.3
	case SizeXLarge:
		return 1.6
	default:
		return 1.0
	}
}

// dashboardOrigin returns the panel's top-left corner for a given anchor.
func dashboardOrigin(pos Position, size Size, canvasW, canvasH int) (float64, float64) {
	scale := dashboardScale(size)
	w, h := 220*scale, 110*scale
	margin := 16.0
	switch pos {
	case TopLeft:
		return margin, margin
	case TopRight:
		return float64(canvasW) - w - margin, margin
	case BottomLeft:
		return margin, float64(canvasH) - h - margin
	default:
		return float64(canvasW) - w - margin, float64(canvasH) - h - margin
	}
}
