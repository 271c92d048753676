// Copyright 2024 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package encoder

import (
	"context"
	"errors"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrFFmpegMissing is returned when ffmpegPath cannot be executed at all.
var ErrFFmpegMissing = errors.New("encoder: ffmpeg not usable")

const (
	helpQueryTimeout = 2 * time.Second
	testEncodeTimeout = 5 * time.Second
)

// failureMarkers are textual signals in ffmpeg's output that indicate a
// candidate failed even though exit status alone might not (§4.4 step 3).
var failureMarkers = []string{
	"no such device",
	"no capable devices found",
	"device creation failed",
	"task finished with error",
	"cannot load",
	"function not implemented",
}

// candidateOrder returns the per-platform H.264 then HEVC candidate codec
// ids, highest priority first (§4.4 step 2).
func candidateOrder() (h264, hevc []string) {
	switch runtime.GOOS {
	case "darwin":
		return []string{"h264_videotoolbox"}, []string{"hevc_videotoolbox"}
	case "windows":
		return []string{"h264_nvenc", "h264_amf", "h264_qsv"}, []string{"hevc_nvenc", "hevc_amf", "hevc_qsv"}
	default:
		return []string{"h264_nvenc", "h264_qsv"}, []string{"hevc_nvenc", "hevc_qsv"}
	}
}

var probeGroup singleflight.Group

// Prober is a process-wide, cached, at-most-once-per-process encoder probe
// (§5: "concurrent callers wait on a single in-flight probe; the result is
// then cached").
type Prober struct {
	cached *Capability
}

// Probe returns this process's EncoderCapability, running the probe at most
// once; concurrent and subsequent callers receive the cached result.
func (p *Prober) Probe(ctx context.Context, ffmpegPath string) (Capability, error) {
	if p.cached != nil {
		return *p.cached, nil
	}
	v, err, _ := probeGroup.Do(ffmpegPath, func() (any, error) {
		cap, err := probe(ctx, ffmpegPath)
		if err != nil {
			return nil, err
		}
		return cap, nil
	})
	if err != nil {
		return Capability{}, err
	}
	cap := v.(Capability)
	p.cached = &cap
	return cap, nil
}

func probe(ctx context.Context, ffmpegPath string) (Capability, error) {
	listed, err := listEncoders(ctx, ffmpegPath)
	if err != nil {
		return Capability{}, err
	}

	cap := Capability{FFmpegPath: ffmpegPath}
	h264Candidates, hevcCandidates := candidateOrder()

	for _, id := range h264Candidates {
		if !listed[id] {
			continue
		}
		if testEncode(ctx, ffmpegPath, id, 320, 240) {
			cap.H264Gpu = &GpuEncoder{CodecID: id}
			break
		}
	}
	for _, id := range hevcCandidates {
		if !listed[id] {
			continue
		}
		if testEncode(ctx, ffmpegPath, id, 640, 480) {
			cap.HevcGpu = &GpuEncoder{CodecID: id}
			break
		}
	}
	cap.GpuHwName = detectGpuName(ctx)
	return cap, nil
}

// listEncoders invokes ffmpeg -encoders and returns the set of codec ids it
// reports as compiled in (§4.4 step 1).
func listEncoders(ctx context.Context, ffmpegPath string) (map[string]bool, error) {
	ctx, cancel := context.WithTimeout(ctx, helpQueryTimeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, ffmpegPath, "-hide_banner", "-encoders")
	out, err := cmd.Output()
	if err != nil {
		return nil, errors.Join(ErrFFmpegMissing, err)
	}
	listed := map[string]bool{}
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		listed[fields[1]] = true
	}
	return listed, nil
}

// testEncode attempts a tiny synthesized encode with the candidate codec,
// treating only a zero exit as success (§4.4 step 3, strict).
func testEncode(ctx context.Context, ffmpegPath, codecID string, w, h int) bool {
	ctx, cancel := context.WithTimeout(ctx, testEncodeTimeout)
	defer cancel()
	size := strconv.Itoa(w) + "x" + strconv.Itoa(h)
	cmd := exec.CommandContext(ctx, ffmpegPath,
		"-hide_banner", "-nostdin", "-loglevel", "warning",
		"-f", "lavfi", "-i", "color=color=black:size="+size+":duration=0.1",
		"-frames:v", "1",
		"-c:v", codecID,
		"-f", "null", "-",
	)
	var sb strings.Builder
	cmd.Stderr = &sb
	err := cmd.Run()
	if err != nil {
		return false
	}
	lower := strings.ToLower(sb.String())
	for _, marker := range failureMarkers {
		if strings.Contains(lower, marker) {
			return false
		}
	}
	return true
}
