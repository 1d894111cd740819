package bandmath

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/jward/spectra/internal/raster"
)

// Stats summarizes the finite pixels of a grid.
type Stats struct {
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
	Count  int
}

// Summarize computes Stats over the finite pixels of g. A grid with no
// finite pixels yields the zero value.
func Summarize(g *raster.Grid) Stats {
	finite := g.Finite()
	if len(finite) == 0 {
		return Stats{}
	}
	mean, std := stat.MeanStdDev(finite, nil)
	if len(finite) == 1 {
		std = 0
	}
	return Stats{
		Min:    floats.Min(finite),
		Max:    floats.Max(finite),
		Mean:   mean,
		StdDev: std,
		Count:  len(finite),
	}
}
