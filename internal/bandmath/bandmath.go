// Package bandmath implements the per-pixel arithmetic applied to bands:
// normalization for display, normalized-difference indices, and averaging.
//
// All functions take and return *raster.Grid and never modify their inputs.
// Arithmetic is carried out in float64, so the sum of two 16-bit bands
// cannot wrap.
package bandmath

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/jward/spectra/internal/raster"
)

// Normalize stretches g linearly onto 0..255 using its finite min and max.
// Results are truncated toward zero as an 8-bit cast would. A flat grid
// (max == min) and NaN pixels map to 0.
func Normalize(g *raster.Grid) *raster.Grid {
	out := raster.NewGrid(g.Width, g.Height)
	finite := g.Finite()
	if len(finite) == 0 {
		return out
	}
	lo, hi := floats.Min(finite), floats.Max(finite)
	span := hi - lo
	if span == 0 {
		return out
	}
	for i, v := range g.Data {
		if math.IsNaN(v) {
			continue
		}
		s := (v - lo) / span * 255
		out.Data[i] = math.Trunc(clamp(s, 0, 255))
	}
	return out
}

// NormalizedDifference computes (a - b) / (a + b) per pixel. 0/0 becomes 0;
// everything else is clamped to [-1, 1], which also folds ±Inf.
func NormalizedDifference(a, b *raster.Grid) (*raster.Grid, error) {
	if err := raster.CheckShapes(a, b); err != nil {
		return nil, fmt.Errorf("normalized difference: %w", err)
	}
	out := raster.NewGrid(a.Width, a.Height)
	for i := range a.Data {
		v := (a.Data[i] - b.Data[i]) / (a.Data[i] + b.Data[i])
		if math.IsNaN(v) {
			v = 0
		}
		out.Data[i] = clamp(v, -1, 1)
	}
	return out, nil
}

// NDVI returns the Normalized Difference Vegetation Index,
// (NIR - Red) / (NIR + Red), clamped to [-1, 1].
func NDVI(red, nir *raster.Grid) (*raster.Grid, error) {
	return NormalizedDifference(nir, red)
}

// Average returns the per-pixel arithmetic mean of the given grids.
func Average(grids ...*raster.Grid) (*raster.Grid, error) {
	if len(grids) == 0 {
		return nil, fmt.Errorf("average: no grids")
	}
	if err := raster.CheckShapes(grids...); err != nil {
		return nil, fmt.Errorf("average: %w", err)
	}
	out := raster.NewGrid(grids[0].Width, grids[0].Height)
	for _, g := range grids {
		floats.Add(out.Data, g.Data)
	}
	floats.Scale(1/float64(len(grids)), out.Data)
	return out, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
