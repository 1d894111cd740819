package bandmath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/spectra/internal/raster"
)

func grid(t *testing.T, rows ...[]float64) *raster.Grid {
	t.Helper()
	g, err := raster.FromRows(rows)
	require.NoError(t, err)
	return g
}

func TestNormalize(t *testing.T) {
	t.Parallel()
	g := grid(t, []float64{100, 200}, []float64{300, 150})

	out := Normalize(g)
	// (150-100)/200*255 = 63.75, truncated.
	assert.Equal(t, []float64{0, 127, 255, 63}, out.Data)
}

func TestNormalize_Flat(t *testing.T) {
	t.Parallel()
	g := grid(t, []float64{42, 42}, []float64{42, 42})
	assert.Equal(t, []float64{0, 0, 0, 0}, Normalize(g).Data)
}

func TestNormalize_NaNPixels(t *testing.T) {
	t.Parallel()
	g := grid(t, []float64{math.NaN(), 0, 10})
	assert.Equal(t, []float64{0, 0, 255}, Normalize(g).Data)
}

func TestNormalize_DoesNotModifyInput(t *testing.T) {
	t.Parallel()
	g := grid(t, []float64{1, 2, 3})
	Normalize(g)
	assert.Equal(t, []float64{1, 2, 3}, g.Data)
}

func TestNDVI(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		red, nir float64
		want     float64
	}{
		{"vegetation", 0.1, 0.5, (0.5 - 0.1) / (0.5 + 0.1)},
		{"water", 0.3, 0.1, (0.1 - 0.3) / (0.1 + 0.3)},
		{"zero over zero", 0, 0, 0},
		{"positive over zero", -1, 1, 1},
		{"negative over zero", 1, -1, -1},
		{"above range", -1, 3, 1},
		{"below range", -3, 1, -1},
		{"dense canopy", 500, 4500, 0.8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			red := grid(t, []float64{tt.red})
			nir := grid(t, []float64{tt.nir})
			got, err := NDVI(red, nir)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got.Data[0], 1e-12)
		})
	}
}

func TestNDVI_NeverOutsideRange(t *testing.T) {
	t.Parallel()
	red := grid(t, []float64{0, 65535, 10, 3, math.NaN()})
	nir := grid(t, []float64{65535, 0, 10, -5, 1})
	got, err := NDVI(red, nir)
	require.NoError(t, err)
	for i, v := range got.Data {
		assert.False(t, math.IsNaN(v), "pixel %d is NaN", i)
		assert.GreaterOrEqual(t, v, -1.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestNDVI_ShapeMismatch(t *testing.T) {
	t.Parallel()
	_, err := NDVI(raster.NewGrid(2, 2), raster.NewGrid(3, 2))
	require.Error(t, err)
}

func TestAverage(t *testing.T) {
	t.Parallel()
	// 16-bit values whose sum exceeds 65535.
	a := grid(t, []float64{60000, 10})
	b := grid(t, []float64{40000, 20})

	got, err := Average(a, b)
	require.NoError(t, err)
	assert.Equal(t, []float64{50000, 15}, got.Data)
	assert.Equal(t, []float64{60000, 10}, a.Data)
}

func TestAverage_Errors(t *testing.T) {
	t.Parallel()
	_, err := Average()
	require.Error(t, err)
	_, err = Average(raster.NewGrid(1, 1), raster.NewGrid(1, 2))
	require.Error(t, err)
}

func TestComposite(t *testing.T) {
	t.Parallel()
	r := grid(t, []float64{255, 0})
	g := grid(t, []float64{10, 300})
	b := grid(t, []float64{math.NaN(), -4})

	c, err := NewComposite(r, g, b)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Width())
	assert.Equal(t, 1, c.Height())

	px := c.Image().RGBAAt(0, 0)
	assert.Equal(t, [4]uint8{255, 10, 0, 255}, [4]uint8{px.R, px.G, px.B, px.A})
	px = c.Image().RGBAAt(1, 0)
	assert.Equal(t, [4]uint8{0, 255, 0, 255}, [4]uint8{px.R, px.G, px.B, px.A})
}

func TestComposite_ShapeMismatch(t *testing.T) {
	t.Parallel()
	_, err := NewComposite(raster.NewGrid(1, 1), raster.NewGrid(1, 1), raster.NewGrid(2, 1))
	require.Error(t, err)
}

func TestSummarize(t *testing.T) {
	t.Parallel()
	g := grid(t, []float64{2, 4, math.NaN()}, []float64{4, 4, 5}, []float64{5, 7, 9})

	s := Summarize(g)
	assert.Equal(t, 8, s.Count)
	assert.Equal(t, 2.0, s.Min)
	assert.Equal(t, 9.0, s.Max)
	assert.InDelta(t, 5.0, s.Mean, 1e-12)
	assert.Greater(t, s.StdDev, 0.0)
}

func TestSummarize_Empty(t *testing.T) {
	t.Parallel()
	g := grid(t, []float64{math.NaN()})
	assert.Equal(t, Stats{}, Summarize(g))
}
