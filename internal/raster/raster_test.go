package raster

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromRows(t *testing.T) {
	t.Parallel()
	g, err := FromRows([][]float64{{1, 2, 3}, {4, 5, 6}})
	require.NoError(t, err)
	assert.Equal(t, 3, g.Width)
	assert.Equal(t, 2, g.Height)
	assert.Equal(t, 6.0, g.At(2, 1))
	assert.Equal(t, 2.0, g.At(1, 0))
}

func TestFromRows_Ragged(t *testing.T) {
	t.Parallel()
	_, err := FromRows([][]float64{{1, 2}, {3}})
	require.Error(t, err)
}

func TestGrid_SetAndFinite(t *testing.T) {
	t.Parallel()
	g := NewGrid(2, 2)
	g.Set(0, 0, math.NaN())
	g.Set(1, 0, math.Inf(1))
	g.Set(0, 1, 7)
	assert.Equal(t, []float64{7, 0}, g.Finite())
	assert.Equal(t, 4, g.Len())
}

func TestCheckShapes(t *testing.T) {
	t.Parallel()
	a := NewGrid(3, 2)
	b := NewGrid(3, 2)
	c := NewGrid(2, 3)

	require.NoError(t, CheckShapes(a, b))
	require.Error(t, CheckShapes(a, c))
	require.Error(t, CheckShapes(a, nil))
	require.NoError(t, CheckShapes())
}

func TestBandNumberForFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want int
		ok   bool
	}{
		{"datasets/landsat_band2.TIF", 2, true},
		{"landsat_band10.tif", 10, true},
		{"LC08_L1TP_044034_20200101_B11.TIF", 11, true},
		{"LC08_B5.tiff", 5, true},
		{"readme.txt", 0, false},
		{"landsat_band.TIF", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			got, ok := BandNumberForFile(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLayout_RoleForFile(t *testing.T) {
	t.Parallel()
	l := DefaultLayout()

	role, band, ok := l.RoleForFile("landsat_band5.TIF")
	require.True(t, ok)
	assert.Equal(t, "nir", role)
	assert.Equal(t, 5, band)

	// Band 1 (coastal) is not part of the default layout.
	_, band, ok = l.RoleForFile("landsat_band1.TIF")
	assert.False(t, ok)
	assert.Equal(t, 1, band)
}

func TestLayout_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		layout  Layout
		wantErr string
	}{
		{"default", DefaultLayout(), ""},
		{"empty role", Layout{"": 3}, "empty role"},
		{"zero band", Layout{"red": 0}, "invalid band"},
		{"shared band", Layout{"swir1": 6, "thermal1": 6}, `band 6 assigned to both "swir1" and "thermal1"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.layout.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLayout_RoleForFileShared(t *testing.T) {
	t.Parallel()
	l := Layout{"thermal1": 6, "swir1": 6}
	for range 20 {
		role, _, ok := l.RoleForFile("landsat_band6.TIF")
		require.True(t, ok)
		assert.Equal(t, "swir1", role)
	}
}

func TestLayout_Roles(t *testing.T) {
	t.Parallel()
	assert.Equal(t,
		[]string{"blue", "green", "red", "nir", "swir1", "swir2", "thermal1", "thermal2"},
		DefaultLayout().Roles())
}

func TestGeoTIFF_RoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "product.tif")

	g, err := FromRows([][]float64{{0.5, -0.25}, {1, 0}})
	require.NoError(t, err)
	in := &Profile{
		GeoTransform: [6]float64{500000, 30, 0, 4200000, 0, -30},
	}
	require.NoError(t, WriteGeoTIFF(path, g, in))

	got, p, err := ReadBand(path)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Width)
	assert.Equal(t, 2, p.Height)
	assert.Equal(t, in.GeoTransform, p.GeoTransform)
	assert.InDeltaSlice(t, g.Data, got.Data, 1e-6)
}

func TestReadBand_Missing(t *testing.T) {
	t.Parallel()
	_, _, err := ReadBand(filepath.Join(t.TempDir(), "missing.TIF"))
	require.Error(t, err)
}
