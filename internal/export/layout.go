// Copyright 2024 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package export

import "github.com/tesladash/clipforge/internal/clip"

// tileRes is one quality tier's per-tile resolution (§4.5.1, bit-exact).
type tileRes struct{ w, h int }

var frontOnlyRes = map[Quality]tileRes{
	QualityMobile: {724, 469},
	QualityMedium: {1448, 938},
	QualityHigh:   {2172, 1407},
	QualityMax:    {2896, 1876},
}

var multiRes = map[Quality]tileRes{
	QualityMobile: {484, 314},
	QualityMedium: {724, 469},
	QualityHigh:   {1086, 704},
	QualityMax:    {1448, 938},
}

// tileResolution returns the per-camera tile size for quality, selecting
// the front-only table when exactly one camera is selected and it is
// Front (§4.5.1).
func tileResolution(quality Quality, cameras []clip.Camera) (w, h int) {
	table := multiRes
	if len(cameras) == 1 && cameras[0] == clip.Front {
		table = frontOnlyRes
	}
	r, ok := table[quality]
	if !ok {
		r = table[QualityMedium]
	}
	return r.w, r.h
}

// gridDimensions returns the default column/row count for n selected
// cameras (§4.5.1): 1→1x1, 2→2x1, 3→3x1, 4→2x2, 5 or 6→3x2.
func gridDimensions(n int) (cols, rows int) {
	switch {
	case n <= 1:
		return 1, 1
	case n == 2:
		return 2, 1
	case n == 3:
		return 3, 1
	case n == 4:
		return 2, 2
	default:
		return 3, 2
	}
}

// evenFloor rounds v down to the nearest even integer, per §4.5.1's "all
// tile dimensions must be even".
func evenFloor(v int) int {
	if v%2 != 0 {
		v--
	}
	return v
}

// canvasSize computes the final output canvas for a request's camera
// selection and layout override, applying §4.5.1's grid/resolution rules.
func canvasSize(quality Quality, cameras []clip.Camera, layout *LayoutData) (canvasW, canvasH, tileW, tileH, cols, rows int) {
	tileW, tileH = tileResolution(quality, cameras)
	tileW, tileH = evenFloor(tileW), evenFloor(tileH)
	if layout != nil && layout.Cols > 0 && layout.Rows > 0 {
		cols, rows = layout.Cols, layout.Rows
	} else {
		cols, rows = gridDimensions(len(cameras))
	}
	return tileW * cols, tileH * rows, tileW, tileH, cols, rows
}

// tileOrder returns the left-to-right, top-to-bottom camera assignment for
// the grid: the explicit LayoutData.Order if given, else clip.AllCameras
// order filtered to the selection.
func tileOrder(cameras []clip.Camera, layout *LayoutData) []clip.Camera {
	if layout != nil && len(layout.Order) > 0 {
		return layout.Order
	}
	selected := map[clip.Camera]bool{}
	for _, c := range cameras {
		selected[c] = true
	}
	var out []clip.Camera
	for _, c := range clip.AllCameras {
		if selected[c] {
			out = append(out, c)
		}
	}
	return out
}
