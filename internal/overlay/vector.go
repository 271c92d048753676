// Copyright 2024 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package overlay

import (
	"fmt"
	"math"
	"strings"
)

// kappa approximates a circular arc with cubic beziers (the standard
// magic constant for a 4-bezier circle).
const kappa = 0.5522847498

// circlePath emits an ASS drawing-command fragment for a circle of the
// given radius centered at (cx, cy), traced clockwise.
func circlePath(cx, cy, r float64) string {
	k := r * kappa
	var b strings.Builder
	fmt.Fprintf(&b, "m %s %s ", fnum(cx+r), fnum(cy))
	fmt.Fprintf(&b, "b %s %s %s %s %s %s ", fnum(cx+r), fnum(cy+k), fnum(cx+k), fnum(cy+r), fnum(cx), fnum(cy+r))
	fmt.Fprintf(&b, "b %s %s %s %s %s %s ", fnum(cx-k), fnum(cy+r), fnum(cx-r), fnum(cy+k), fnum(cx-r), fnum(cy))
	fmt.Fprintf(&b, "b %s %s %s %s %s %s ", fnum(cx-r), fnum(cy-k), fnum(cx-k), fnum(cy-r), fnum(cx), fnum(cy-r))
	fmt.Fprintf(&b, "b %s %s %s %s %s %s", fnum(cx+k), fnum(cy-r), fnum(cx+r), fnum(cy-k), fnum(cx+r), fnum(cy))
	return b.String()
}

// circlePathCCW is circlePath traced counter-clockwise, used as the inner
// contour of a ring so the two contours' opposite winding cuts a hole
// under ASS's nonzero fill rule.
func circlePathCCW(cx, cy, r float64) string {
	k := r * kappa
	var b strings.Builder
	fmt.Fprintf(&b, "m %s %s ", fnum(cx+r), fnum(cy))
	fmt.Fprintf(&b, "b %s %s %s %s %s %s ", fnum(cx+r), fnum(cy-k), fnum(cx+k), fnum(cy-r), fnum(cx), fnum(cy-r))
	fmt.Fprintf(&b, "b %s %s %s %s %s %s ", fnum(cx-k), fnum(cy-r), fnum(cx-r), fnum(cy-k), fnum(cx-r), fnum(cy))
	fmt.Fprintf(&b, "b %s %s %s %s %s %s ", fnum(cx-r), fnum(cy+k), fnum(cx-k), fnum(cy+r), fnum(cx), fnum(cy+r))
	fmt.Fprintf(&b, "b %s %s %s %s %s %s", fnum(cx+k), fnum(cy+r), fnum(cx+r), fnum(cy+k), fnum(cx+r), fnum(cy))
	return b.String()
}

// RingPath draws an annulus (outer disc with a concentric hole), used for
// the steering wheel's rim.
func RingPath(cx, cy, rOuter, rInner float64) string {
	return circlePath(cx, cy, rOuter) + " " + circlePathCCW(cx, cy, rInner)
}

// SteeringWheelPath emits the steering-wheel drawing at the given scale
// (px per unit), centered at the origin: outer rim, inner hub ring, and
// three grip-cutout spokes (§4.5.5). Rotation to -steeringAngleDeg is
// applied by the caller via the ASS \frz override tag, not baked in here,
// so the same fragment is reused across every angle.
func SteeringWheelPath(scale float64) string {
	rOuter := 28 * scale
	rInner := 22 * scale
	hub := 6 * scale
	var spokes strings.Builder
	for i := 0; i < 3; i++ {
		angle := float64(i) * 2 * math.Pi / 3
		x1 := hub * math.Cos(angle)
		y1 := hub * math.Sin(angle)
		x2 := rInner * math.Cos(angle)
		y2 := rInner * math.Sin(angle)
		w := 3 * scale
		nx, ny := -math.Sin(angle)*w, math.Cos(angle)*w
		fmt.Fprintf(&spokes, " m %s %s l %s %s l %s %s l %s %s",
			fnum(x1+nx), fnum(y1+ny), fnum(x2+nx), fnum(y2+ny),
			fnum(x2-nx), fnum(y2-ny), fnum(x1-nx), fnum(y1-ny))
	}
	return RingPath(0, 0, rOuter, rInner) + " " + circlePath(0, 0, hub) + spokes.String()
}

// PedalPath emits a rounded-rectangle pedal icon (brake or accelerator use
// the same shape, differentiated by fill color in the caller's style).
func PedalPath(scale float64) string {
	return roundedRectPath(-10*scale, -16*scale, 20*scale, 32*scale, 6*scale)
}

// BlinkerArrowPath emits a chevron-style turn-signal arrow, pointing right
// when right is true, else left.
func BlinkerArrowPath(scale float64, right bool) string {
	w, h := 18*scale, 14*scale
	if right {
		return fmt.Sprintf("m %s %s l %s %s l %s %s l %s %s l %s %s l %s %s",
			fnum(-w/2), fnum(-h/2), fnum(w/2), fnum(0), fnum(-w/2), fnum(h/2),
			fnum(-w/4), fnum(h/2), fnum(w/4), fnum(0), fnum(-w/4), fnum(-h/2))
	}
	return fmt.Sprintf("m %s %s l %s %s l %s %s l %s %s l %s %s l %s %s",
		fnum(w/2), fnum(-h/2), fnum(-w/2), fnum(0), fnum(w/2), fnum(h/2),
		fnum(w/4), fnum(h/2), fnum(-w/4), fnum(0), fnum(w/4), fnum(-h/2))
}

// HeadingArrowPath emits a minimap heading marker (caller applies \frz to
// point it at -headingDeg).
func HeadingArrowPath(scale float64) string {
	h := 14 * scale
	w := 8 * scale
	return fmt.Sprintf("m %s %s l %s %s l %s %s l %s %s",
		fnum(0), fnum(-h/2), fnum(w/2), fnum(h/2), fnum(0), fnum(h/4), fnum(-w/2), fnum(h/2))
}

// roundedRectPath emits a rounded rectangle of the given top-left, width,
// height, and corner radius.
func roundedRectPath(x, y, w, h, r float64) string {
	k := r * kappa
	return fmt.Sprintf(
		"m %s %s l %s %s b %s %s %s %s %s %s l %s %s b %s %s %s %s %s %s "+
			"l %s %s b %s %s %s %s %s %s l %s %s b %s %s %s %s %s %s",
		fnum(x+r), fnum(y),
		fnum(x+w-r), fnum(y),
		fnum(x+w-r+k), fnum(y), fnum(x+w), fnum(y+r-k), fnum(x+w), fnum(y+r),
		fnum(x+w), fnum(y+h-r),
		fnum(x+w), fnum(y+h-r+k), fnum(x+w-r+k), fnum(y+h), fnum(x+w-r), fnum(y+h),
		fnum(x+r), fnum(y+h),
		fnum(x+r-k), fnum(y+h), fnum(x), fnum(y+h-r+k), fnum(x), fnum(y+h-r),
		fnum(x), fnum(y+r),
		fnum(x), fnum(y+r-k), fnum(x+r-k), fnum(y), fnum(x+r), fnum(y),
	)
}

// QuadrilateralPath emits a filled quad spanning a thin stroked line
// segment from (x1,y1) to (x2,y2), used for minimap route rendering.
func QuadrilateralPath(x1, y1, x2, y2, halfWidth float64) string {
	dx, dy := x2-x1, y2-y1
	length := math.Hypot(dx, dy)
	if length < 1e-9 {
		return ""
	}
	nx, ny := -dy/length*halfWidth, dx/length*halfWidth
	return fmt.Sprintf("m %s %s l %s %s l %s %s l %s %s",
		fnum(x1+nx), fnum(y1+ny), fnum(x2+nx), fnum(y2+ny),
		fnum(x2-nx), fnum(y2-ny), fnum(x1-nx), fnum(y1-ny))
}

// fnum formats a coordinate with one decimal place; ASS drawing coordinates
// accept decimals, and the fixed precision keeps the emitted document small.
func fnum(v float64) string {
	return fmt.Sprintf("%.1f", v)
}
