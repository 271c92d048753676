// Copyright 2024 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package export

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/tesladash/clipforge/internal/clip"
	"github.com/tesladash/clipforge/internal/encoder"
	"github.com/tesladash/clipforge/internal/ffmpeg"
	"github.com/tesladash/clipforge/internal/library"
	"github.com/tesladash/clipforge/internal/overlay"
	"github.com/tesladash/clipforge/internal/telemetry"
)

// h264MaxDimension is the commonly supported consumer-GPU H.264 encode
// limit (§4.5.7).
const h264MaxDimension = 4096

// mirroredCameras never includes front/pillar cameras (§4.5.3).
var mirroredCameras = map[clip.Camera]bool{
	clip.Back:          true,
	clip.LeftRepeater:  true,
	clip.RightRepeater: true,
}

// BuildPlan assembles the full export plan from req: input timelines,
// filter graph, encoder selection, and overlay documents (§4.5). caps is
// the process's probed encoder capability (§4.4); tel is the telemetry
// already extracted for req's range, or a zero Result if dashboard/minimap
// are disabled or no samples were available.
func BuildPlan(req *ExportRequest, caps encoder.Capability, tel telemetry.Result, tr overlay.Translator) (*Plan, error) {
	if req.StartMs >= req.EndMs {
		return nil, ErrEmptySelection
	}
	if len(req.Cameras) == 0 {
		return nil, ErrEmptySelection
	}

	canvasW, canvasH, tileW, tileH, cols, rows := canvasSize(req.Quality, req.Cameras, req.LayoutData)
	order := tileOrder(req.Cameras, req.LayoutData)

	// Inputs is built in the same order as the filter graph's "%d:v"
	// sources below, so plan.Inputs[i] is always the segment timeline for
	// the camera occupying ffmpeg input index i.
	inputs, err := assembleInputs(req, order)
	if err != nil {
		return nil, err
	}

	blurMasks, err := resolveBlurMasks(req, tileW, tileH)
	if err != nil {
		return nil, err
	}

	speed := 1.0
	if req.EnableTimelapse && req.TimelapseSpeed > 0 {
		speed = float64(req.TimelapseSpeed)
	}
	rangeMs := req.EndMs - req.StartMs
	outDurationMs := int64(float64(rangeMs) / speed)

	graph, videoLabel := buildFilterGraph(req, order, tileW, tileH, cols, rows, blurMasks, speed)

	codec, bitrate := selectEncoder(caps, canvasW, canvasH, req.Quality)

	plan := &Plan{
		Request:       req,
		CanvasW:       canvasW,
		CanvasH:       canvasH,
		TileW:         tileW,
		TileH:         tileH,
		Inputs:        inputs,
		FilterComplex: graph.String(),
		VideoMapLabel: videoLabel,
		EncoderCodec:  codec,
		BitrateKbps:   bitrate,
		BlurMasks:     blurMasks,
		DurationMs:    outDurationMs,
	}

	if req.IncludeDashboard && len(tel.Samples) > 0 {
		doc, err := overlay.CompileDashboard(windowSamples(tel.Samples, req.StartMs, speed), overlay.DashboardOptions{
			Style: req.DashboardStyle, Position: req.DashboardPosition, Size: req.DashboardSize,
			UseMetric: req.UseMetric, Language: req.Language,
		}, canvasW, canvasH, 0, outDurationMs, tr)
		if err != nil {
			return nil, fmt.Errorf("export: compile dashboard: %w", err)
		}
		plan.Dashboard = doc
	} else if req.IncludeDashboard && len(tel.Samples) == 0 {
		slog.Warn("export: dashboard disabled, no telemetry available")
	}

	if req.IncludeMinimap && len(tel.GpsPath) > 0 {
		minimapOpts := overlay.MinimapOptions{
			Position: req.MinimapPosition, Size: req.MinimapSize,
			RenderMode: req.MinimapRenderMode, DarkMode: req.MinimapDarkMode,
		}
		gps := windowGpsPath(tel.GpsPath, req.StartMs, speed)
		doc, err := overlay.CompileMinimap(gps, minimapOpts, canvasW, canvasH, 0, outDurationMs)
		if err == overlay.ErrTileModeUnsupported {
			slog.Warn("export: tile-mode minimap unsupported, using vector mode")
			minimapOpts.RenderMode = overlay.MinimapVector
			doc, err = overlay.CompileMinimap(gps, minimapOpts, canvasW, canvasH, 0, outDurationMs)
		}
		if err != nil {
			return nil, fmt.Errorf("export: compile minimap: %w", err)
		}
		plan.Minimap = doc
	}

	// Timestamp-only overlay is compiled only when the dashboard is off. The
	// dashboard itself draws no date or time, so an export with the
	// dashboard on carries no clock.
	if req.IncludeTimestamp && !req.IncludeDashboard {
		doc, err := overlay.CompileTimestamp(overlay.TimestampOptions{
			Position: req.TimestampPosition, DateFormat: req.TimestampDateFormat, TimeFormat: req.TimestampTimeFormat,
		}, canvasW, canvasH, 0, outDurationMs, collectionWallClock(req.Collection, req.StartMs, speed))
		if err != nil {
			return nil, fmt.Errorf("export: compile timestamp: %w", err)
		}
		plan.Timestamp = doc
	}

	return plan, nil
}

// assembleInputs builds each selected camera's full-collection segment
// timeline, substituting black padding where the camera is absent from a
// group (§4.5.2), in order (the same left-to-right tile order the filter
// graph assigns ffmpeg input indices in). It also validates that at least
// one real segment overlaps [StartMs, EndMs) for some camera (§7
// EmptySelection).
func assembleInputs(req *ExportRequest, order []clip.Camera) ([]CameraInput, error) {
	c := req.Collection
	anyOverlap := false

	var inputs []CameraInput
	for _, cam := range order {
		ci := CameraInput{Camera: cam, Mirrored: req.MirrorCameras && mirroredCameras[cam]}
		for i, g := range c.Groups {
			segStart := c.SegmentStartsMs[i]
			segDur := library.GroupDuration(g)
			segEnd := segStart + segDur

			overlaps := segEnd > req.StartMs && segStart < req.EndMs
			cf, ok := g.FilesByCamera[cam]
			if ok && overlaps {
				anyOverlap = true
			}
			if !ok {
				ci.Segments = append(ci.Segments, Segment{DurationMs: segDur})
				continue
			}
			ci.Segments = append(ci.Segments, Segment{Path: cf.File.Path, DurationMs: segDur})
		}
		inputs = append(inputs, ci)
	}

	if !anyOverlap {
		return nil, ErrEmptySelection
	}
	return inputs, nil
}

// resolveBlurMasks rasterizes (or reuses) a mask per applicable BlurZone,
// dropping zones whose camera isn't selected with a warning (§4.5.4).
func resolveBlurMasks(req *ExportRequest, tileW, tileH int) (map[clip.Camera][]byte, error) {
	selected := map[clip.Camera]bool{}
	for _, c := range req.Cameras {
		selected[c] = true
	}
	masks := map[clip.Camera][]byte{}
	for _, z := range req.BlurZones {
		cam := clip.Camera(z.Camera)
		if !selected[cam] {
			slog.Warn("export: blur zone targets an unselected camera, ignoring", "camera", z.Camera)
			continue
		}
		data, err := overlay.RasterizeMask(z, tileW, tileH)
		if err != nil {
			return nil, err
		}
		masks[cam] = data
	}
	return masks, nil
}

// buildFilterGraph composes the scale/tile/mirror/blur/overlay/timelapse
// filter_complex graph and returns the final video stream's output label
// (§4.5.2-§4.5.6).
func buildFilterGraph(req *ExportRequest, order []clip.Camera, tileW, tileH, cols, rows int, blurMasks map[clip.Camera][]byte, speed float64) (ffmpeg.Graph, string) {
	var graph ffmpeg.Graph
	tileLabels := make([]string, len(order))

	for i, cam := range order {
		in := ffmpeg.Label(fmt.Sprintf("%d:v", i))
		chainParts := []any{ffmpeg.Filter(fmt.Sprintf("scale=%d:%d", tileW, tileH))}
		if mirroredCameras[cam] && req.MirrorCameras {
			chainParts = append(chainParts, ffmpeg.Filter("hflip"))
		}

		label := fmt.Sprintf("tile%d", i)
		mask, needsBlur := blurMasks[cam]
		needsBlur = needsBlur && len(mask) > 0

		preLabel := label
		if needsBlur {
			preLabel = fmt.Sprintf("pre%d", i)
		}
		graph = append(graph, ffmpeg.Stream{
			Sources: []string{in},
			Chain:   ffmpeg.BuildChain(chainParts...),
			Sinks:   []string{ffmpeg.Label(preLabel)},
		})
		if needsBlur {
			graph = append(graph, blurComposite(i, cam, preLabel, label)...)
		}
		tileLabels[i] = ffmpeg.Label(label)
	}

	mosaicLabel := "mosaic"
	graph = append(graph, ffmpeg.Stream{
		Sources: tileLabels,
		Chain: ffmpeg.BuildChain(ffmpeg.Filter(fmt.Sprintf(
			"xstack=inputs=%d:layout=%s", len(order), xstackLayout(cols, rows, tileW, tileH)))),
		Sinks: []string{ffmpeg.Label(mosaicLabel)},
	})

	videoLabel := mosaicLabel
	if speed != 1 {
		next := "timelapse"
		graph = append(graph, ffmpeg.Stream{
			Sources: []string{ffmpeg.Label(videoLabel)},
			Chain:   ffmpeg.BuildChain(ffmpeg.Filter(fmt.Sprintf("setpts=%.6f*PTS", 1/speed))),
			Sinks:   []string{ffmpeg.Label(next)},
		})
		videoLabel = next
	}

	return graph, videoLabel
}

// MaskInputLabel is the placeholder source for a camera's rasterized blur
// mask (§4.5.4). The planner has no raw ffmpeg input index for it since the
// mask PNG isn't assembled into argv until the Process Supervisor writes it
// to a scratch file; the supervisor substitutes this token for the real
// "N:v" input reference the same way it does for camera segment inputs.
func MaskInputLabel(cam clip.Camera) string {
	return ffmpeg.Label(fmt.Sprintf("mask:%s:v", cam))
}

// blurComposite composites a strongly blurred copy of in restricted to
// cam's mask into out, leaving the rest of the tile untouched (§4.5.4):
// split the source, blur one copy, alphamerge the blurred copy with the
// mask to get an alpha-limited blurred layer, then overlay it back onto
// the original.
func blurComposite(i int, cam clip.Camera, in, out string) ffmpeg.Graph {
	origLabel := fmt.Sprintf("morig%d", i)
	toBlurLabel := fmt.Sprintf("mtoblur%d", i)
	blurredLabel := fmt.Sprintf("mblur%d", i)
	maskGrayLabel := fmt.Sprintf("mgray%d", i)
	alphaLabel := fmt.Sprintf("malpha%d", i)

	return ffmpeg.Graph{
		{
			Sources: []string{ffmpeg.Label(in)},
			Chain:   ffmpeg.BuildChain(ffmpeg.Filter("split=2")),
			Sinks:   []string{ffmpeg.Label(origLabel), ffmpeg.Label(toBlurLabel)},
		},
		{
			Sources: []string{ffmpeg.Label(toBlurLabel)},
			Chain:   ffmpeg.BuildChain(ffmpeg.Filter("boxblur=20:5")),
			Sinks:   []string{ffmpeg.Label(blurredLabel)},
		},
		{
			Sources: []string{MaskInputLabel(cam)},
			Chain:   ffmpeg.BuildChain(ffmpeg.Filter("format=gray")),
			Sinks:   []string{ffmpeg.Label(maskGrayLabel)},
		},
		{
			Sources: []string{ffmpeg.Label(blurredLabel), ffmpeg.Label(maskGrayLabel)},
			Chain:   ffmpeg.BuildChain(ffmpeg.Filter("alphamerge")),
			Sinks:   []string{ffmpeg.Label(alphaLabel)},
		},
		{
			Sources: []string{ffmpeg.Label(origLabel), ffmpeg.Label(alphaLabel)},
			Chain:   ffmpeg.BuildChain(ffmpeg.Filter("overlay")),
			Sinks:   []string{ffmpeg.Label(out)},
		},
	}
}

// xstackLayout renders FFmpeg's xstack layout string for a dense row-major
// grid of equal-sized tiles.
func xstackLayout(cols, rows, tileW, tileH int) string {
	s := ""
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if s != "" {
				s += "|"
			}
			s += fmt.Sprintf("%d_%d", c*tileW, r*tileH)
		}
	}
	return s
}

// selectEncoder decides the output codec per §4.5.7: GPU H.264 when the
// canvas fits its limit, GPU HEVC when it doesn't but HEVC GPU is
// available, else CPU libx264. Bitrate is a deterministic function of
// pixel count and quality tier.
func selectEncoder(caps encoder.Capability, canvasW, canvasH int, quality Quality) (codec string, bitrateKbps int) {
	bitrate := bitrateFor(canvasW, canvasH, quality)
	if canvasW <= h264MaxDimension && canvasH <= h264MaxDimension && caps.H264Gpu != nil {
		return caps.H264Gpu.CodecID, bitrate
	}
	if (canvasW > h264MaxDimension || canvasH > h264MaxDimension) && caps.HevcGpu != nil {
		return caps.HevcGpu.CodecID, bitrate
	}
	return "libx264", bitrate
}

// bitrateFor derives a deterministic kbps target from pixel count and
// quality tier (§4.5.7: "exact target is implementation-defined but must
// be deterministic").
func bitrateFor(w, h int, quality Quality) int {
	pixels := w * h
	bitsPerPixel := 0.07
	switch quality {
	case QualityMobile:
		bitsPerPixel = 0.04
	case QualityHigh:
		bitsPerPixel = 0.09
	case QualityMax:
		bitsPerPixel = 0.12
	}
	return int(float64(pixels) * bitsPerPixel / 1000)
}

// windowGpsPath applies the same window-rebase-and-timelapse-compress
// treatment as windowSamples to a GPS polyline.
func windowGpsPath(path telemetry.GpsPath, startMs int64, speed float64) telemetry.GpsPath {
	out := make(telemetry.GpsPath, len(path))
	for i, p := range path {
		rel := p.TimestampMs - startMs
		p.TimestampMs = int64(float64(rel) / speed)
		out[i] = p
	}
	return out
}

// windowSamples rebases samples onto the export window (collection-relative
// ms -> [0, rangeMs)) and, when a timelapse is active, compresses them by
// speed so overlay events stay aligned to the post-timelapse timeline that
// CompileDashboard is asked to cover (§4.5.6).
func windowSamples(samples []telemetry.Sample, startMs int64, speed float64) []telemetry.Sample {
	out := make([]telemetry.Sample, len(samples))
	for i, s := range samples {
		rel := s.TimestampMs - startMs
		s.TimestampMs = int64(float64(rel) / speed)
		out[i] = s
	}
	return out
}

// collectionWallClock returns a function mapping a post-timelapse,
// window-relative offset back to the real vehicle-local wall-clock time it
// corresponds to: undo the timelapse compression and the window rebase,
// then add to the collection's first-group anchor. A collection whose base
// time can't be parsed anchors at the Unix epoch; the clock still advances
// correctly, it is just not meaningfully dated (§4.2's "invalid forms"
// fallback).
func collectionWallClock(c *library.DayCollection, startMs int64, speed float64) func(int64) time.Time {
	base, ok := library.CollectionBaseTime(c)
	if !ok {
		base = time.UnixMilli(0)
	}
	return func(windowRelMs int64) time.Time {
		realMs := startMs + int64(float64(windowRelMs)*speed)
		return base.Add(time.Duration(realMs) * time.Millisecond)
	}
}
