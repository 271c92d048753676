// Copyright 2024 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package export plans an FFmpeg invocation that mosaics selected cameras
// from a DayCollection, burns in overlays, and renders to an output file
// (spec §4.5).
package export

import (
	"errors"

	"github.com/tesladash/clipforge/internal/clip"
	"github.com/tesladash/clipforge/internal/library"
	"github.com/tesladash/clipforge/internal/overlay"
)

// Quality selects the per-tile resolution tier (§4.5.1).
type Quality string

const (
	QualityMobile Quality = "mobile"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
	QualityMax    Quality = "max"
)

// TimelapseSpeed is one of the recognized timelapse multipliers (§3).
type TimelapseSpeed float64

const (
	Timelapse2x  TimelapseSpeed = 2
	Timelapse4x  TimelapseSpeed = 4
	Timelapse8x  TimelapseSpeed = 8
	Timelapse16x TimelapseSpeed = 16
	Timelapse32x TimelapseSpeed = 32
	Timelapse64x TimelapseSpeed = 64
	TimelapseHalf TimelapseSpeed = 0.5
)

// LayoutData is an explicit tile arrangement overriding the default
// camera-count-derived grid (§3 layoutData).
type LayoutData struct {
	Cols, Rows int
	// Order fixes the left-to-right, top-to-bottom tile assignment. When
	// nil, clip.AllCameras order (filtered to the selection) is used.
	Order []clip.Camera
}

// ExportRequest is the exhaustive, immutable set of options for one export
// (§3). It is built by the caller and passed once.
type ExportRequest struct {
	Collection *library.DayCollection
	StartMs    int64
	EndMs      int64
	Cameras    []clip.Camera
	LayoutData *LayoutData
	Quality    Quality
	OutputPath string

	MirrorCameras bool
	UseMetric     bool
	Language      string

	IncludeDashboard   bool
	DashboardStyle     overlay.DashboardStyle
	DashboardPosition  overlay.Position
	DashboardSize      overlay.Size

	IncludeMinimap     bool
	MinimapPosition    overlay.Position
	MinimapSize        overlay.Size
	MinimapRenderMode  overlay.MinimapRenderMode
	MinimapDarkMode    bool

	IncludeTimestamp     bool
	TimestampPosition    overlay.Position
	TimestampDateFormat  overlay.DateFormat
	TimestampTimeFormat  overlay.TimeFormat

	BlurZones []overlay.BlurZone

	EnableTimelapse bool
	TimelapseSpeed  TimelapseSpeed
}

// Sentinel planner errors (§7).
var (
	ErrEmptySelection  = errors.New("export: no segments overlap the requested range for any selected camera")
	ErrInvalidBlurZone = overlay.ErrInvalidBlurZone
	ErrFFmpegMissing   = errors.New("export: ffmpeg binary not found")
)

// CameraInput is one camera's assembled timeline: an ordered list of
// segment files (or gaps) spanning all of the collection's groups (§4.5.2).
// The [StartMs, EndMs) window is not applied here; the segments cover the
// whole collection.
type CameraInput struct {
	Camera   clip.Camera
	Segments []Segment
	Mirrored bool
}

// Segment is one group's contribution to a CameraInput's timeline: either a
// real file or a black-padding placeholder when the camera is missing from
// that group (§4.5.2).
type Segment struct {
	Path       string // empty for a black-padding segment
	DurationMs int64
}

// Plan is the fully assembled export: everything the Process Supervisor
// needs to invoke FFmpeg and track progress, plus the overlay documents the
// caller should write to temp files before invocation (§4.5, §4.6).
type Plan struct {
	Request *ExportRequest

	CanvasW, CanvasH int
	TileW, TileH     int
	Inputs           []CameraInput

	FilterComplex string
	VideoMapLabel string

	EncoderCodec string
	BitrateKbps  int

	Dashboard *overlay.Document
	Minimap   *overlay.Document
	Timestamp *overlay.Document

	BlurMasks map[clip.Camera][]byte

	DurationMs int64 // output duration, after timelapse compression
}
