// Copyright 2024 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package overlay

import (
	"fmt"
	"strings"
	"text/template"
)

// header is the static preamble of every subtitle-drawing document: script
// info plus a single drawing-capable style. PlayResX/PlayResY pin the
// coordinate space to the final canvas (§4.5.5).
var header = template.Must(template.New("ass").Parse(
	`[Script Info]
Title: clipforge overlay
ScriptType: v4.00+
PlayResX: {{.W}}
PlayResY: {{.H}}
ScaledBorderAndShadow: yes

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Default,Arial,28,&H00FFFFFF,&H000000FF,&H00000000,&H80000000,0,0,0,0,100,100,0,0,1,1,1,7,0,0,0,1

[Events]
Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text
`))

// Event is one dialogue line: a span of time during which a piece of
// drawing/text state holds (§4.5.5's event-minimization contract).
type Event struct {
	StartMs int64
	EndMs   int64
	Layer   int
	Text    string // ASS override tags + drawing/text payload
}

// Document accumulates Events and renders a complete ASS document.
type Document struct {
	W, H   int
	Events []Event
}

// NewDocument creates an empty document pinned to the given canvas size.
func NewDocument(w, h int) *Document {
	return &Document{W: w, H: h}
}

// Add appends an event, skipping degenerate zero-duration spans.
func (d *Document) Add(e Event) {
	if e.EndMs <= e.StartMs {
		return
	}
	d.Events = append(d.Events, e)
}

// Render produces the final ASS document text.
func (d *Document) Render() (string, error) {
	var b strings.Builder
	if err := header.Execute(&b, struct{ W, H int }{d.W, d.H}); err != nil {
		return "", fmt.Errorf("overlay: render header: %w", err)
	}
	for _, e := range d.Events {
		fmt.Fprintf(&b, "Dialogue: %d,%s,%s,Default,,0,0,0,,%s\n",
			e.Layer, formatTime(e.StartMs), formatTime(e.EndMs), e.Text)
	}
	return b.String(), nil
}

// formatTime renders export-relative milliseconds as ASS's
// H:MM:SS.CC timestamp (centiseconds), where 0 is the export range start
// (§4.5.5 time base).
func formatTime(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	cs := ms / 10
	hundredths := cs % 100
	totalSeconds := cs / 100
	seconds := totalSeconds % 60
	totalMinutes := totalSeconds / 60
	minutes := totalMinutes % 60
	hours := totalMinutes / 60
	return fmt.Sprintf("%d:%02d:%02d.%02d", hours, minutes, seconds, hundredths)
}

// DrawTag wraps a vector path fragment in the ASS override tags that
// switch the line into drawing mode, with optional extra overrides
// (position, rotation, color) prefixed.
func DrawTag(overrides, path string) string {
	return "{\\p1" + overrides + "}" + path + "{\\p0}"
}

// PosTag emits an absolute-position override tag.
func PosTag(x, y float64) string {
	return fmt.Sprintf("\\pos(%s,%s)", fnum(x), fnum(y))
}

// RotateTag emits a z-axis rotation override tag in degrees.
func RotateTag(deg float64) string {
	return fmt.Sprintf("\\frz%s", fnum(deg))
}

// ColorTag emits a primary-color override in ASS's &HBBGGRR& form.
func ColorTag(r, g, b uint8) string {
	return fmt.Sprintf("\\c&H%02X%02X%02X&", b, g, r)
}

// AlphaTag emits a primary-alpha override; alpha is 0 (opaque) to 255
// (fully transparent), per ASS convention.
func AlphaTag(alpha uint8) string {
	return fmt.Sprintf("\\alpha&H%02X&", alpha)
}
