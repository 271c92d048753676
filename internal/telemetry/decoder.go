// Copyright 2024 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package telemetry

import "errors"

// ErrNoTelemetry indicates a zero-sample extraction outcome: the caller
// should disable dashboard/minimap and surface a notice instead of failing.
var ErrNoTelemetry = errors.New("telemetry: no samples available")

// Frame is one decoded H.264 access unit: its presentation duration and,
// when the Tesla SEI payload was present, the telemetry it carried.
//
// The real SEI wire format is outside this package's concern (the vehicle's
// bitstream layout is a separate, replaceable collaborator); FrameDecoder
// only promises an ordered sequence of these records.
type Frame struct {
	DurationMs int64
	SEI        *Sample
}

// FrameDecoder decodes one segment's raw H.264 bytes into an ordered
// sequence of frames. Implementations must be pure functions over bytes:
// no I/O, no blocking, safe to call repeatedly on scratch buffers.
type FrameDecoder interface {
	DecodeFrames(segment []byte) ([]Frame, error)
}

// FrameDecoderFunc adapts a plain function to FrameDecoder.
type FrameDecoderFunc func(segment []byte) ([]Frame, error)

func (f FrameDecoderFunc) DecodeFrames(segment []byte) ([]Frame, error) {
	return f(segment)
}

// NoopDecoder always reports no telemetry. It is the default wired in
// cmd/clipforge until a real Tesla SEI decoder plugin is supplied.
var NoopDecoder FrameDecoder = FrameDecoderFunc(func([]byte) ([]Frame, error) {
	return nil, nil
})
