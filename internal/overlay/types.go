// Copyright 2024 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package overlay compiles telemetry and privacy-zone data into ASS
// subtitle-drawing documents and blur mask images that the export planner
// burns into the composited video.
package overlay

import "errors"

// Position anchors an overlay within the canvas.
type Position string

const (
	TopLeft     Position = "top_left"
	TopRight    Position = "top_right"
	BottomLeft  Position = "bottom_left"
	BottomRight Position = "bottom_right"
)

// DashboardStyle selects the dashboard's visual density.
type DashboardStyle string

const (
	DashboardStandard DashboardStyle = "standard"
	DashboardCompact  DashboardStyle = "compact"
)

// Size selects an overlay's scale tier.
type Size string

const (
	SizeSmall  Size = "small"
	SizeMedium Size = "medium"
	SizeLarge  Size = "large"
	SizeXLarge Size = "xlarge"
)

// MinimapRenderMode selects how the minimap is rendered.
type MinimapRenderMode string

const (
	MinimapVector    MinimapRenderMode = "vector"
	MinimapTileImage MinimapRenderMode = "tile_image"
)

// DateFormat selects the timestamp-only overlay's date ordering.
type DateFormat string

const (
	DateMDY DateFormat = "mdy"
	DateDMY DateFormat = "dmy"
	DateYMD DateFormat = "ymd"
)

// TimeFormat selects 12h or 24h clock rendering.
type TimeFormat string

const (
	Time12h TimeFormat = "h12"
	Time24h TimeFormat = "h24"
)

// DashboardOptions configures the compact/standard telemetry dashboard.
type DashboardOptions struct {
	Style     DashboardStyle
	Position  Position
	Size      Size
	UseMetric bool
	Language  string
}

// MinimapOptions configures the GPS minimap overlay.
type MinimapOptions struct {
	Position   Position
	Size       Size
	RenderMode MinimapRenderMode
	DarkMode   bool
}

// TimestampOptions configures the standalone timestamp burn-in, used only
// when the dashboard is disabled (§4.5.5: mutually exclusive with dashboard).
type TimestampOptions struct {
	Position   Position
	DateFormat DateFormat
	TimeFormat TimeFormat
}

// BlurZone is a privacy region on one camera's tile, in unit (0..1) square
// coordinates (§3).
type BlurZone struct {
	Camera       string
	Polygon      []Point
	MaskPngBytes []byte
	MaskWidth    int
	MaskHeight   int
}

// Point is a 2D coordinate in the unit square [0,1]^2.
type Point struct {
	X, Y float64
}

// ErrInvalidBlurZone is returned when a BlurZone's polygon cannot bound a
// region (fewer than 3 points, or all points collinear).
var ErrInvalidBlurZone = errors.New("overlay: invalid blur zone polygon")

// ErrTileModeUnsupported is returned by CompileMinimap for MinimapTileImage:
// tile-based map mosaicking is outside this package's scope (§4.5.5/§9).
var ErrTileModeUnsupported = errors.New("overlay: tile-mode minimap rendering is not implemented; falling back to vector mode")

// Validate checks the structural invariants a BlurZone's polygon must
// satisfy before it can be rasterized.
func (z BlurZone) Validate() error {
	if len(z.Polygon) < 3 {
		return ErrInvalidBlurZone
	}
	if allCollinear(z.Polygon) {
		return ErrInvalidBlurZone
	}
	return nil
}

func allCollinear(pts []Point) bool {
	if len(pts) < 3 {
		return true
	}
	x0, y0 := pts[0].X, pts[0].Y
	x1, y1 := pts[1].X-x0, pts[1].Y-y0
	for _, p := range pts[2:] {
		x2, y2 := p.X-x0, p.Y-y0
		// cross product of (p1-p0) and (p2-p0); nonzero means not collinear.
		if cross := x1*y2 - y1*x2; cross < -1e-9 || cross > 1e-9 {
			return false
		}
	}
	return true
}
