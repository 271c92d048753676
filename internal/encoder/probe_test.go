// Copyright 2024 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package encoder

import (
	"strings"
	"testing"
)

func TestCandidateOrder(t *testing.T) {
	h264, hevc := candidateOrder()
	if len(h264) == 0 || len(hevc) == 0 {
		t.Fatal("expected non-empty candidate lists for every platform")
	}
}

func TestExtractGpuNameWindows(t *testing.T) {
	out := "Name  \r\nNVIDIA GeForce RTX 3080  \r\n\r\n"
	if got := extractGpuName("windows", out); got != "NVIDIA GeForce RTX 3080" {
		t.Fatalf("got %q", got)
	}
}

func TestExtractGpuNameDarwin(t *testing.T) {
	out := "Graphics/Displays:\n\n    Apple M1:\n\n      Chipset Model: Apple M1\n      Type: GPU\n"
	if got := extractGpuName("darwin", out); got != "Apple M1" {
		t.Fatalf("got %q", got)
	}
}

func TestExtractGpuNameLinux(t *testing.T) {
	out := "00:02.0 VGA compatible controller: Intel Corporation UHD Graphics 630 (rev 02)\n"
	if got := extractGpuName("linux", out); got != "Intel Corporation UHD Graphics 630 (rev 02)" {
		t.Fatalf("got %q", got)
	}
}

func TestCapabilityString(t *testing.T) {
	c := Capability{FFmpegPath: "/usr/bin/ffmpeg"}
	if got := c.String(); got == "" {
		t.Fatal("expected non-empty summary")
	}
	c.H264Gpu = &GpuEncoder{CodecID: "h264_nvenc"}
	if got := c.String(); !strings.Contains(got, "h264_nvenc") {
		t.Fatalf("expected summary to mention h264_nvenc, got %q", got)
	}
}
