// Copyright 2024 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package encoder

import (
	"context"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

const hwNameTimeout = 5 * time.Second

// detectGpuName shells out to a platform-specific tool to report a GPU name
// for diagnostics only (§4.4: advisory, never blocks export).
func detectGpuName(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, hwNameTimeout)
	defer cancel()

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.CommandContext(ctx, "wmic", "path", "win32_VideoController", "get", "name")
	case "darwin":
		cmd = exec.CommandContext(ctx, "system_profiler", "SPDisplaysDataType")
	default:
		cmd = exec.CommandContext(ctx, "lspci", "-v")
	}
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return extractGpuName(runtime.GOOS, string(out))
}

func extractGpuName(goos, output string) string {
	lines := strings.Split(output, "\n")
	switch goos {
	case "windows":
		for _, l := range lines {
			l = strings.TrimSpace(l)
			if l != "" && !strings.EqualFold(l, "Name") {
				return l
			}
		}
	case "darwin":
		for _, l := range lines {
			if strings.Contains(l, "Chipset Model:") {
				return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(l), "Chipset Model:"))
			}
		}
	default:
		for _, l := range lines {
			lower := strings.ToLower(l)
			if strings.Contains(lower, "vga compatible controller") || strings.Contains(lower, "3d controller") {
				if idx := strings.Index(l, ": "); idx >= 0 {
					return strings.TrimSpace(l[idx+2:])
				}
			}
		}
	}
	return ""
}
