// Copyright 2024 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package overlay

import (
	"math"

	"github.com/tesladash/clipforge/internal/telemetry"
)

// headingQuantDeg is the heading-state quantization granularity (§4.5.5).
const headingQuantDeg = 5.0

// simplifyTolerance bounds emitted route segment count for dense footage;
// a practical necessity the GpsPath data model itself leaves unconstrained.
const simplifyTolerance = 0.00003 // degrees, roughly 3m at mid-latitudes

// CompileMinimap emits an ASS document with the GPS route and a heading
// marker (§4.5.5 vector mode). Tile-image mode is rejected with
// ErrTileModeUnsupported; the caller should fall back to vector mode.
func CompileMinimap(path telemetry.GpsPath, opts MinimapOptions, canvasW, canvasH int, startMs, endMs int64) (*Document, error) {
	doc := NewDocument(canvasW, canvasH)
	if opts.RenderMode == MinimapTileImage {
		return doc, ErrTileModeUnsupported
	}
	duration := endMs - startMs
	if duration <= 0 || len(path) == 0 {
		return doc, nil
	}

	ox, oy, w, h := minimapFrame(opts.Position, opts.Size, canvasW, canvasH)
	bgColor := uint8(0x20)
	if !opts.DarkMode {
		bgColor = 0xE0
	}
	doc.Add(Event{StartMs: 0, EndMs: duration, Text: DrawTag(
		PosTag(0, 0)+ColorTag(bgColor, bgColor, bgColor)+AlphaTag(0x30), roundedRectPath(ox, oy, w, h, 8))})

	simplified := simplifyPolyline(path, simplifyTolerance)
	minLat, maxLat, minLon, maxLon := boundingBox(simplified)
	padLat := (maxLat - minLat) * 0.15
	padLon := (maxLon - minLon) * 0.15
	minLat -= padLat
	maxLat += padLat
	minLon -= padLon
	maxLon += padLon
	if maxLat == minLat {
		maxLat, minLat = minLat+1e-6, minLat-1e-6
	}
	if maxLon == minLon {
		maxLon, minLon = minLon+1e-6, minLon-1e-6
	}

	project := func(p telemetry.GpsPoint) (float64, float64) {
		fx := (p.LongitudeDeg - minLon) / (maxLon - minLon)
		fy := 1 - (p.LatitudeDeg-minLat)/(maxLat-minLat)
		return ox + fx*w, oy + fy*h
	}

	routeColor := ColorTag(0x33, 0x99, 0xFF)
	for i := 1; i < len(simplified); i++ {
		x1, y1 := project(simplified[i-1])
		x2, y2 := project(simplified[i])
		doc.Add(Event{
			StartMs: relativeMs(simplified[i-1].TimestampMs, startMs, duration),
			EndMs:   duration,
			Text:    DrawTag(routeColor, QuadrilateralPath(x1, y1, x2, y2, 2)),
		})
	}

	emitHeadingMarker(doc, path, project, startMs, duration)

	return doc, nil
}

// emitHeadingMarker walks the raw (unsimplified) path so the marker tracks
// actual position, emitting a new event only when the quantized
// (pixel-position, heading) state changes.
func emitHeadingMarker(doc *Document, path telemetry.GpsPath, project func(telemetry.GpsPoint) (float64, float64), startMs, duration int64) {
	type state struct {
		qx, qy int
		qh     int
	}
	var prev state
	var runStart int64 = -1
	have := false

	flush := func(end int64, s state) {
		if !have {
			return
		}
		x := float64(s.qx)
		y := float64(s.qy)
		doc.Add(Event{StartMs: runStart, EndMs: end, Text: DrawTag(
			PosTag(x, y)+RotateTag(-float64(s.qh))+ColorTag(255, 80, 0), HeadingArrowPath(1))})
	}

	for i, p := range path {
		x, y := project(p)
		heading := 0.0
		if i+1 < len(path) {
			nx, ny := project(path[i+1])
			heading = math.Atan2(ny-y, nx-x) * 180 / math.Pi
		}
		cur := state{qx: int(math.Round(x)), qy: int(math.Round(y)), qh: int(math.Round(heading/headingQuantDeg)) * int(headingQuantDeg)}
		rel := relativeMs(p.TimestampMs, startMs, duration)
		if !have || cur != prev {
			flush(rel, prev)
			prev = cur
			runStart = rel
			have = true
		}
	}
	flush(duration, prev)
}

func relativeMs(absoluteCollectionMs, startMs, duration int64) int64 {
	rel := absoluteCollectionMs - startMs
	if rel < 0 {
		rel = 0
	}
	if rel > duration {
		rel = duration
	}
	return rel
}

func boundingBox(path telemetry.GpsPath) (minLat, maxLat, minLon, maxLon float64) {
	if len(path) == 0 {
		return 0, 0, 0, 0
	}
	minLat, maxLat = path[0].LatitudeDeg, path[0].LatitudeDeg
	minLon, maxLon = path[0].LongitudeDeg, path[0].LongitudeDeg
	for _, p := range path[1:] {
		minLat = math.Min(minLat, p.LatitudeDeg)
		maxLat = math.Max(maxLat, p.LatitudeDeg)
		minLon = math.Min(minLon, p.LongitudeDeg)
		maxLon = math.Max(maxLon, p.LongitudeDeg)
	}
	return
}

// simplifyPolyline applies Douglas-Peucker simplification to bound the
// number of route segments emitted for dense footage.
func simplifyPolyline(path telemetry.GpsPath, tolerance float64) telemetry.GpsPath {
	if len(path) < 3 {
		return path
	}
	keep := make([]bool, len(path))
	keep[0] = true
	keep[len(path)-1] = true
	douglasPeucker(path, 0, len(path)-1, tolerance, keep)
	var out telemetry.GpsPath
	for i, k := range keep {
		if k {
			out = append(out, path[i])
		}
	}
	return out
}

func douglasPeucker(path telemetry.GpsPath, lo, hi int, tolerance float64, keep []bool) {
	if hi-lo < 2 {
		return
	}
	maxDist := -1.0
	maxIdx := -1
	for i := lo + 1; i < hi; i++ {
		d := perpendicularDistance(path[i], path[lo], path[hi])
		if d > maxDist {
			maxDist = d
			maxIdx = i
		}
	}
	if maxDist > tolerance {
		keep[maxIdx] = true
		douglasPeucker(path, lo, maxIdx, tolerance, keep)
		douglasPeucker(path, maxIdx, hi, tolerance, keep)
	}
}

func perpendicularDistance(p, a, b telemetry.GpsPoint) float64 {
	dx := b.LongitudeDeg - a.LongitudeDeg
	dy := b.LatitudeDeg - a.LatitudeDeg
	if dx == 0 && dy == 0 {
		return math.Hypot(p.LongitudeDeg-a.LongitudeDeg, p.LatitudeDeg-a.LatitudeDeg)
	}
	num := math.Abs(dy*p.LongitudeDeg - dx*p.LatitudeDeg + b.LongitudeDeg*a.LatitudeDeg - b.LatitudeDeg*a.LongitudeDeg)
	den := math.Hypot(dx, dy)
	return num / den
}

func minimapFrame(pos Position, size Size, canvasW, canvasH int) (x, y, w, h float64) {
	scale := dashboardScale(size)
	w, h = 180*scale, 180*scale
	margin := 16.0
	switch pos {
	case TopLeft:
		return margin, margin, w, h
	case TopRight:
		return float64(canvasW) - w - margin, margin, w, h
	case BottomLeft:
		return margin, float64(canvasH) - h - margin, w, h
	default:
		return float64(canvasW) - w - margin, float64(canvasH) - h - margin, w, h
	}
}
