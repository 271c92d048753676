// Copyright 2024 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package encoder probes which hardware video encoders FFmpeg can actually
// use on the current machine, once per process, and caches the result.
package encoder

import "fmt"

// GpuEncoder describes a single usable hardware encoder.
type GpuEncoder struct {
	CodecID       string // e.g. "h264_nvenc"
	VendorName    string
	MaxResolution int // largest square dimension verified, advisory
}

// Capability is the process-wide cache populated by a single Probe call
// (§4.4, §3).
type Capability struct {
	FFmpegPath string
	H264Gpu    *GpuEncoder
	HevcGpu    *GpuEncoder
	GpuHwName  string
}

// String summarizes the capability for diagnostics/logging.
func (c Capability) String() string {
	h264 := "none"
	if c.H264Gpu != nil {
		h264 = c.H264Gpu.CodecID
	}
	hevc := "none"
	if c.HevcGpu != nil {
		hevc = c.HevcGpu.CodecID
	}
	gpu := c.GpuHwName
	if gpu == "" {
		gpu = "unknown"
	}
	return fmt.Sprintf("ffmpeg=%s h264=%s hevc=%s gpu=%s", c.FFmpegPath, h264, hevc, gpu)
}
