// Copyright 2024 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package overlay

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
)

// RasterizeMask produces an 8-bit alpha mask PNG for zone at the given
// pixel dimensions, used by the export planner's boxblur-and-overlay filter
// pair (§4.5.4) when the caller didn't already supply MaskPngBytes. White
// (255) marks the blurred region, black (0) leaves the frame untouched.
func RasterizeMask(zone BlurZone, width, height int) ([]byte, error) {
	if err := zone.Validate(); err != nil {
		return nil, err
	}
	if zone.MaskPngBytes != nil {
		return zone.MaskPngBytes, nil
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("overlay: invalid mask dimensions %dx%d", width, height)
	}

	img := image.NewGray(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	poly := make([]point, len(zone.Polygon))
	for i, p := range zone.Polygon {
		poly[i] = point{x: p.X * float64(width), y: p.Y * float64(height)}
	}
	fillPolygon(img, poly, color.White)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("overlay: encode mask: %w", err)
	}
	return buf.Bytes(), nil
}

type point struct{ x, y float64 }

// fillPolygon rasterizes poly into img using a scanline even-odd fill, row
// by row over img's height. Good enough for the coarse privacy rectangles
// and simple shapes blur zones are drawn as; not a general-purpose
// antialiased renderer.
func fillPolygon(img *image.Gray, poly []point, c color.Color) {
	bounds := img.Bounds()
	n := len(poly)
	if n < 3 {
		return
	}
	gray := color.GrayModel.Convert(c).(color.Gray)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		fy := float64(y) + 0.5
		var xs []float64
		for i := 0; i < n; i++ {
			a := poly[i]
			b := poly[(i+1)%n]
			if (a.y <= fy && b.y > fy) || (b.y <= fy && a.y > fy) {
				t := (fy - a.y) / (b.y - a.y)
				xs = append(xs, a.x+t*(b.x-a.x))
			}
		}
		if len(xs) < 2 {
			continue
		}
		sortFloats(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			x0 := int(xs[i] + 0.5)
			x1 := int(xs[i+1] + 0.5)
			if x0 < bounds.Min.X {
				x0 = bounds.Min.X
			}
			if x1 > bounds.Max.X {
				x1 = bounds.Max.X
			}
			for x := x0; x < x1; x++ {
				img.SetGray(x, y, gray)
			}
		}
	}
}

func sortFloats(xs []float64) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j-1] > xs[j]; j-- {
			xs[j-1], xs[j] = xs[j], xs[j-1]
		}
	}
}
