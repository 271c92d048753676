// Copyright 2024 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package clip decodes Tesla dashcam footage paths into structured clip
// descriptors and holds the immutable file-level types the rest of the
// pipeline builds on.
package clip

// Type is the clip category a file was recorded under.
type Type string

const (
	Recent Type = "recent"
	Sentry Type = "sentry"
	Saved  Type = "saved"
	Custom Type = "custom"
)

// Camera is one of the (up to six) simultaneous Tesla camera positions.
type Camera string

const (
	Front         Camera = "front"
	Back          Camera = "back"
	LeftRepeater  Camera = "left_repeater"
	RightRepeater Camera = "right_repeater"
	LeftPillar    Camera = "left_pillar"
	RightPillar   Camera = "right_pillar"
	UnknownCamera Camera = "unknown"
)

// AllCameras is the exhaustive, stable-ordered camera list used for layout
// and default selection purposes.
var AllCameras = []Camera{Front, Back, LeftRepeater, RightRepeater, LeftPillar, RightPillar}

// normalizeCamera maps a raw filename camera token to a Camera per §4.1.
func normalizeCamera(raw string) Camera {
	switch raw {
	case "front":
		return Front
	case "back":
		return Back
	case "left_repeater", "left":
		return LeftRepeater
	case "right_repeater", "right":
		return RightRepeater
	case "left_pillar":
		return LeftPillar
	case "right_pillar":
		return RightPillar
	default:
		return UnknownCamera
	}
}

// FileDescriptor identifies the bytes backing a clip or sidecar asset.
// Callers are free to back it with a plain filesystem path; Size and
// ModNanos are a lightweight identity-of-underlying-bytes fingerprint used
// for deterministic id derivation (§8 index-determinism).
type FileDescriptor struct {
	// Path is the absolute or caller-rooted path to the file.
	Path string
	// RelPath is the path relative to the scanned root, forward-slash
	// normalized.
	RelPath string
	// Size is the file size in bytes.
	Size int64
	// ModNanos is the file's modification time in Unix nanoseconds. Used
	// only for identity/determinism purposes, never for business logic.
	ModNanos int64
	// DurationMs is an optional, externally-probed segment duration. Zero
	// means unknown; callers fall back to the nominal 60s assumption.
	DurationMs int64
}

// ClipFile is a single parsed Tesla video or sidecar reference.
type ClipFile struct {
	ClipType     Type
	EventID      string // empty for Recent/Custom
	TimestampKey string // YYYY-MM-DD_HH-MM-SS, empty for non-video sidecars
	Camera       Camera
	File         FileDescriptor
}

// Key returns the (clipType, eventId, timestampKey) grouping tuple this
// file belongs to.
func (c ClipFile) Key() GroupKey {
	return GroupKey{ClipType: c.ClipType, EventID: c.EventID, TimestampKey: c.TimestampKey}
}

// GroupKey identifies the ClipGroup a ClipFile rolls up into.
type GroupKey struct {
	ClipType     Type
	EventID      string
	TimestampKey string
}
