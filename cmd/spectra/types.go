package main

import (
	"time"

	"github.com/jward/spectra"
)

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command string `json:"command"`
	Results any    `json:"results"`
	Error   string `json:"error,omitempty"`
}

// CLIScene is a JSON-friendly scene representation.
type CLIScene struct {
	ID           int64      `json:"id"`
	Path         string     `json:"path"`
	Name         string     `json:"name"`
	Width        int        `json:"width"`
	Height       int        `json:"height"`
	Projection   string     `json:"projection,omitempty"`
	GeoTransform [6]float64 `json:"geotransform"`
	IndexedAt    time.Time  `json:"indexed_at"`
}

// CLIBand is a JSON-friendly band representation.
type CLIBand struct {
	ID         int64    `json:"id"`
	Role       string   `json:"role"`
	BandNumber int      `json:"band_number"`
	Path       string   `json:"path"`
	Hash       string   `json:"hash"`
	Width      int      `json:"width"`
	Height     int      `json:"height"`
	DataType   string   `json:"data_type"`
	NoData     *float64 `json:"nodata,omitempty"`
	Min        float64  `json:"min"`
	Max        float64  `json:"max"`
	Mean       float64  `json:"mean"`
	StdDev     float64  `json:"std_dev"`
}

// CLISceneDetail is a scene with its bands, returned by index.
type CLISceneDetail struct {
	Scene CLIScene  `json:"scene"`
	Bands []CLIBand `json:"bands"`
}

// CLIProduct is a JSON-friendly product representation. Statistics are
// only meaningful for scalar products.
type CLIProduct struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Kind       string    `json:"kind"`
	Title      string    `json:"title"`
	Colormap   string    `json:"colormap,omitempty"`
	PNGPath    string    `json:"png_path"`
	TIFPath    string    `json:"tif_path,omitempty"`
	Min        *float64  `json:"min,omitempty"`
	Max        *float64  `json:"max,omitempty"`
	Mean       *float64  `json:"mean,omitempty"`
	StdDev     *float64  `json:"std_dev,omitempty"`
	Inputs     []string  `json:"inputs,omitempty"`
	RenderedAt time.Time `json:"rendered_at"`
}

func sceneToCLI(sc *spectra.Scene) CLIScene {
	return CLIScene{
		ID:           sc.ID,
		Path:         sc.Path,
		Name:         sc.Name,
		Width:        sc.Width,
		Height:       sc.Height,
		Projection:   sc.Projection,
		GeoTransform: sc.GeoTransform,
		IndexedAt:    sc.IndexedAt,
	}
}

func bandsToCLI(bands []*spectra.Band) []CLIBand {
	out := make([]CLIBand, len(bands))
	for i, b := range bands {
		out[i] = CLIBand{
			ID:         b.ID,
			Role:       b.Role,
			BandNumber: b.BandNumber,
			Path:       b.Path,
			Hash:       b.Hash,
			Width:      b.Width,
			Height:     b.Height,
			DataType:   b.DataType,
			NoData:     b.NoData,
			Min:        b.Min,
			Max:        b.Max,
			Mean:       b.Mean,
			StdDev:     b.StdDev,
		}
	}
	return out
}

func productsToCLI(products []*spectra.Product) []CLIProduct {
	out := make([]CLIProduct, len(products))
	for i, p := range products {
		cp := CLIProduct{
			ID:         p.ID,
			Name:       p.Name,
			Kind:       p.Kind,
			Title:      p.Title,
			Colormap:   p.Colormap,
			PNGPath:    p.PNGPath,
			TIFPath:    p.TIFPath,
			RenderedAt: p.RenderedAt,
		}
		if p.Kind == spectra.KindScalar {
			cp.Min, cp.Max, cp.Mean, cp.StdDev = &p.Min, &p.Max, &p.Mean, &p.StdDev
		}
		out[i] = cp
	}
	return out
}
