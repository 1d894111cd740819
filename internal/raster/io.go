package raster

import (
	"fmt"
	"sync"

	"github.com/airbusgeo/godal"
)

var registerOnce sync.Once

// register loads the GDAL drivers once per process.
func register() {
	registerOnce.Do(godal.RegisterAll)
}

// Profile carries the georeferencing and storage metadata of a band file,
// enough to write a derived product back out on the same grid.
type Profile struct {
	Width        int
	Height       int
	DataType     string
	NoData       *float64
	GeoTransform [6]float64
	Projection   string
}

// ReadBand opens path and reads its first band as float64.
func ReadBand(path string) (*Grid, *Profile, error) {
	register()

	ds, err := godal.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("raster: open %s: %w", path, err)
	}
	defer ds.Close()

	bands := ds.Bands()
	if len(bands) == 0 {
		return nil, nil, fmt.Errorf("raster: %s has no bands", path)
	}
	band := bands[0]
	st := band.Structure()

	g := NewGrid(st.SizeX, st.SizeY)
	if err := band.Read(0, 0, g.Data, st.SizeX, st.SizeY); err != nil {
		return nil, nil, fmt.Errorf("raster: read %s: %w", path, err)
	}

	p := &Profile{
		Width:      st.SizeX,
		Height:     st.SizeY,
		DataType:   st.DataType.String(),
		Projection: ds.Projection(),
	}
	if nd, ok := band.NoData(); ok {
		p.NoData = &nd
	}
	// Files without a geotransform (plain TIFFs) keep the zero value.
	if gt, err := ds.GeoTransform(); err == nil {
		p.GeoTransform = gt
	}
	return g, p, nil
}

// WriteGeoTIFF writes g as a single-band Float32 GeoTIFF. When p is non-nil
// its geotransform and projection are copied onto the output.
func WriteGeoTIFF(path string, g *Grid, p *Profile) error {
	register()

	ds, err := godal.Create(godal.GTiff, path, 1, godal.Float32, g.Width, g.Height,
		godal.CreationOption("TILED=YES", "COMPRESS=DEFLATE"))
	if err != nil {
		return fmt.Errorf("raster: create %s: %w", path, err)
	}

	if p != nil {
		if p.GeoTransform != ([6]float64{}) {
			if err := ds.SetGeoTransform(p.GeoTransform); err != nil {
				ds.Close()
				return fmt.Errorf("raster: set geotransform: %w", err)
			}
		}
		if p.Projection != "" {
			if err := ds.SetProjection(p.Projection); err != nil {
				ds.Close()
				return fmt.Errorf("raster: set projection: %w", err)
			}
		}
	}

	band := ds.Bands()[0]
	if err := band.Write(0, 0, g.Data, g.Width, g.Height); err != nil {
		ds.Close()
		return fmt.Errorf("raster: write %s: %w", path, err)
	}
	if err := ds.Close(); err != nil {
		return fmt.Errorf("raster: close %s: %w", path, err)
	}
	return nil
}
