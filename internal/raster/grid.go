package raster

import (
	"fmt"
	"math"
)

// Grid is a single 2-D raster held in row-major order as float64.
type Grid struct {
	Width  int
	Height int
	Data   []float64
}

// NewGrid allocates a zero-filled width×height grid.
func NewGrid(width, height int) *Grid {
	return &Grid{
		Width:  width,
		Height: height,
		Data:   make([]float64, width*height),
	}
}

// FromRows builds a grid from a slice of equally sized rows.
func FromRows(rows [][]float64) (*Grid, error) {
	if len(rows) == 0 {
		return &Grid{}, nil
	}
	w := len(rows[0])
	g := NewGrid(w, len(rows))
	for y, row := range rows {
		if len(row) != w {
			return nil, fmt.Errorf("raster: row %d has %d columns, want %d", y, len(row), w)
		}
		copy(g.Data[y*w:(y+1)*w], row)
	}
	return g, nil
}

// At returns the value at column x, row y.
func (g *Grid) At(x, y int) float64 {
	return g.Data[y*g.Width+x]
}

// Set stores v at column x, row y.
func (g *Grid) Set(x, y int, v float64) {
	g.Data[y*g.Width+x] = v
}

// Len returns the pixel count.
func (g *Grid) Len() int {
	return len(g.Data)
}

// SameShape reports whether g and o have identical dimensions.
func (g *Grid) SameShape(o *Grid) bool {
	return g.Width == o.Width && g.Height == o.Height
}

// Finite returns the values that are neither NaN nor infinite.
func (g *Grid) Finite() []float64 {
	out := make([]float64, 0, len(g.Data))
	for _, v := range g.Data {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

// CheckShapes returns an error unless every grid matches the first one.
func CheckShapes(grids ...*Grid) error {
	if len(grids) == 0 {
		return nil
	}
	first := grids[0]
	if first == nil {
		return fmt.Errorf("raster: nil grid")
	}
	for i, g := range grids[1:] {
		if g == nil {
			return fmt.Errorf("raster: nil grid at position %d", i+1)
		}
		if !first.SameShape(g) {
			return fmt.Errorf("raster: shape mismatch: %dx%d vs %dx%d",
				first.Width, first.Height, g.Width, g.Height)
		}
	}
	return nil
}
