// Copyright 2024 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package job

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tesladash/clipforge/internal/clip"
	"github.com/tesladash/clipforge/internal/export"
	"github.com/tesladash/clipforge/internal/ffmpeg"
)

// blackSourceSize is the lavfi color source's nominal frame size for a
// black-padding segment (§4.5.2). It is arbitrary: every segment is scaled
// to the plan's tile size before concatenation, so only a valid starting
// size matters.
const blackSourceSize = "640x480"

// assembleCameraInputs turns plan.Inputs into the concrete ffmpeg "-i"
// flags and a prelude filter graph that reassembles each camera's
// collection-wide segment timeline (real files interleaved with
// black-padding gaps, §4.5.2) into one continuous, window-trimmed stream
// per camera. It also returns a label substitution for plan.FilterComplex:
// the planner addresses camera i's raw input as "[i:v]" because it has no
// notion of multi-segment concatenation, so the supervisor rewrites those
// tokens to the prelude's reassembled "[camI]" labels before combining the
// two graphs. Any camera carrying a rasterized blur mask (§4.5.4) is
// written to overlayDir and wired in the same way, resolving the planner's
// export.MaskInputLabel placeholder to a real input index.
//
// A black gap is sourced from one shared "-f lavfi -i color=..." input
// trimmed to the gap's nominal duration; ffmpeg permits the same raw input
// pad to feed multiple filter chains, so one lavfi input covers every
// camera's gaps. Every segment, real or black, is scaled to the plan's
// tile size before concat: ffmpeg's concat filter requires identical
// width/height/SAR across its inputs, and a collection missing a camera
// from one group would otherwise pair an unscaled real segment against the
// black source's nominal size.
func assembleCameraInputs(plan *export.Plan, overlayDir string) (inputArgs []string, prelude ffmpeg.Graph, substituted string, err error) {
	var realArgs []string
	realCount := 0
	hasBlack := false
	for _, ci := range plan.Inputs {
		for _, seg := range ci.Segments {
			if seg.Path != "" {
				realArgs = append(realArgs, "-i", seg.Path)
				realCount++
			} else {
				hasBlack = true
			}
		}
	}

	nextIdx := realCount
	blackIdx := -1
	inputArgs = append(inputArgs, realArgs...)
	if hasBlack {
		blackIdx = nextIdx
		inputArgs = append(inputArgs, "-f", "lavfi", "-i", fmt.Sprintf("color=c=black:s=%s:r=25", blackSourceSize))
		nextIdx++
	}

	maskIdx := map[clip.Camera]int{}
	for _, ci := range plan.Inputs {
		mask := plan.BlurMasks[ci.Camera]
		if len(mask) == 0 {
			continue
		}
		path := filepath.Join(overlayDir, fmt.Sprintf("mask_%s.png", ci.Camera))
		if err := os.WriteFile(path, mask, 0o600); err != nil {
			return nil, nil, "", fmt.Errorf("job: write blur mask for %s: %w", ci.Camera, err)
		}
		inputArgs = append(inputArgs, "-i", path)
		maskIdx[ci.Camera] = nextIdx
		nextIdx++
	}

	startSec := float64(plan.Request.StartMs) / 1000.0
	endSec := float64(plan.Request.EndMs) / 1000.0
	tileW, tileH := plan.TileW, plan.TileH

	scaleChain := func() []any {
		return []any{ffmpeg.Filter(fmt.Sprintf("scale=%d:%d", tileW, tileH)), ffmpeg.Filter("setsar=1")}
	}

	realIdx := 0
	for i, ci := range plan.Inputs {
		var segLabels []string
		for j, seg := range ci.Segments {
			scaledLabel := fmt.Sprintf("seg%d_%d", i, j)
			if seg.Path != "" {
				prelude = append(prelude, ffmpeg.Stream{
					Sources: []string{ffmpeg.Label(fmt.Sprintf("%d:v", realIdx))},
					Chain:   ffmpeg.BuildChain(scaleChain()...),
					Sinks:   []string{ffmpeg.Label(scaledLabel)},
				})
				realIdx++
				segLabels = append(segLabels, ffmpeg.Label(scaledLabel))
				continue
			}

			durSec := float64(seg.DurationMs) / 1000.0
			chainParts := append([]any{
				ffmpeg.Filter(fmt.Sprintf("trim=duration=%.3f", durSec)),
				ffmpeg.Filter("setpts=PTS-STARTPTS"),
			}, scaleChain()...)
			prelude = append(prelude, ffmpeg.Stream{
				Sources: []string{ffmpeg.Label(fmt.Sprintf("%d:v", blackIdx))},
				Chain:   ffmpeg.BuildChain(chainParts...),
				Sinks:   []string{ffmpeg.Label(scaledLabel)},
			})
			segLabels = append(segLabels, ffmpeg.Label(scaledLabel))
		}

		fullLabel := fmt.Sprintf("cam%dfull", i)
		prelude = append(prelude, ffmpeg.Stream{
			Sources: segLabels,
			Chain:   ffmpeg.BuildChain(ffmpeg.Filter(fmt.Sprintf("concat=n=%d:v=1:a=0", len(segLabels)))),
			Sinks:   []string{ffmpeg.Label(fullLabel)},
		})

		trimmedLabel := fmt.Sprintf("cam%d", i)
		prelude = append(prelude, ffmpeg.Stream{
			Sources: []string{ffmpeg.Label(fullLabel)},
			Chain: ffmpeg.BuildChain(
				ffmpeg.Filter(fmt.Sprintf("trim=start=%.3f:end=%.3f", startSec, endSec)),
				ffmpeg.Filter("setpts=PTS-STARTPTS"),
			),
			Sinks: []string{ffmpeg.Label(trimmedLabel)},
		})
	}

	substituted = plan.FilterComplex
	for i := range plan.Inputs {
		substituted = strings.ReplaceAll(substituted,
			ffmpeg.Label(fmt.Sprintf("%d:v", i)), ffmpeg.Label(fmt.Sprintf("cam%d", i)))
	}
	for cam, idx := range maskIdx {
		substituted = strings.ReplaceAll(substituted,
			export.MaskInputLabel(cam), ffmpeg.Label(fmt.Sprintf("%d:v", idx)))
	}
	return inputArgs, prelude, substituted, nil
}
