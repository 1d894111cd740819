package runtime

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/spectra/internal/raster"
	"github.com/jward/spectra/internal/store"
)

// mapSource is an in-memory BandSource keyed by role.
type mapSource map[string]*raster.Grid

func (m mapSource) Band(_ context.Context, role string) (*raster.Grid, error) {
	g, ok := m[role]
	if !ok {
		return nil, fmt.Errorf("no band for role %q", role)
	}
	return g, nil
}

func testSource(t *testing.T) mapSource {
	t.Helper()
	mk := func(rows ...[]float64) *raster.Grid {
		g, err := raster.FromRows(rows)
		require.NoError(t, err)
		return g
	}
	return mapSource{
		"red":      mk([]float64{100, 0}, []float64{300, 200}),
		"green":    mk([]float64{10, 20}, []float64{30, 40}),
		"blue":     mk([]float64{5, 5}, []float64{6, 7}),
		"nir":      mk([]float64{500, 0}, []float64{100, 200}),
		"thermal1": mk([]float64{300, 302}, []float64{304, 306}),
		"thermal2": mk([]float64{310, 312}, []float64{314, 316}),
	}
}

func TestRunSource_ScalarProduct(t *testing.T) {
	t.Parallel()
	rt := NewRuntime("")

	res, err := rt.RunSource(context.Background(), `
red := band("red")
nir := band("nir")
emit(ndvi(red, nir), {"title": "NDVI", "colormap": "RdYlGn"})
`, testSource(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"nir", "red"}, res.Inputs)
	out := res.Output
	assert.Equal(t, store.KindScalar, out.Kind)
	assert.Equal(t, "NDVI", out.Title)
	assert.Equal(t, "RdYlGn", out.Colormap)
	require.NotNil(t, out.Scalar)
	assert.InDeltaSlice(t, []float64{400.0 / 600.0, 0, -0.5, 0}, out.Scalar.Data, 1e-12)
}

func TestRunSource_RGBProduct(t *testing.T) {
	t.Parallel()
	rt := NewRuntime("")

	res, err := rt.RunSource(context.Background(), `
r := normalize(band("red"))
g := normalize(band("green"))
b := normalize(band("blue"))
emit(composite(r, g, b), {"title": "RGB Image"})
`, testSource(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"blue", "green", "red"}, res.Inputs)
	assert.Equal(t, store.KindRGB, res.Output.Kind)
	require.NotNil(t, res.Output.RGB)
	px := res.Output.RGB.Image().RGBAAt(0, 1)
	assert.Equal(t, uint8(255), px.R) // red max
	assert.Equal(t, uint8(170), px.G) // (30-10)/30*255
}

func TestRunSource_AverageAndRange(t *testing.T) {
	t.Parallel()
	rt := NewRuntime("")

	res, err := rt.RunSource(context.Background(), `
t := average(band("thermal1"), band("thermal2"))
s := stats(t)
log.Info(sprintf("temperature max %v", s["max"]))
emit(t, {"colormap": "hot", "vmin": 0, "vmax": 400.5})
`, testSource(t))
	require.NoError(t, err)

	assert.Equal(t, []float64{305, 307, 309, 311}, res.Output.Scalar.Data)
	require.NotNil(t, res.Output.VMin)
	require.NotNil(t, res.Output.VMax)
	assert.Equal(t, 0.0, *res.Output.VMin)
	assert.Equal(t, 400.5, *res.Output.VMax)
}

func TestRunSource_Errors(t *testing.T) {
	t.Parallel()
	rt := NewRuntime("")

	tests := []struct {
		name   string
		source string
	}{
		{"no emit", `x := band("red")`},
		{"double emit", "x := band(\"red\")\nemit(x)\nemit(x)"},
		{"unknown band", `emit(band("cirrus"))`},
		{"emit non-grid", `emit(42)`},
		{"shape mismatch", `emit(ndvi(band("red"), band("wide")))`},
		{"bad arity", `emit(ndvi(band("red")))`},
		{"syntax", `emit(`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			src := testSource(t)
			src["wide"] = raster.NewGrid(3, 1)
			_, err := rt.RunSource(context.Background(), tt.source, src)
			require.Error(t, err)
		})
	}
}

func TestRunSource_NoSource(t *testing.T) {
	t.Parallel()
	rt := NewRuntime("")
	_, err := rt.RunSource(context.Background(), `emit(band("red"))`, nil)
	require.Error(t, err)
}

func TestLoadScript_FromDisk(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "products"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "products", "ndvi.risor"), []byte(`emit(ndvi(band("red"), band("nir")))`), 0o644))

	rt := NewRuntime(dir)
	src, err := rt.LoadScript(ProductScriptPath("ndvi"))
	require.NoError(t, err)
	assert.Contains(t, src, "ndvi(")

	names, err := rt.ProductNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"ndvi"}, names)

	res, err := rt.RunRecipe(context.Background(), ProductScriptPath("ndvi"), testSource(t))
	require.NoError(t, err)
	assert.Equal(t, store.KindScalar, res.Output.Kind)
}

func TestLoadScript_FromFS(t *testing.T) {
	t.Parallel()
	fsys := fstest.MapFS{
		"products/rgb.risor":  {Data: []byte(`emit(composite(band("red"), band("green"), band("blue")))`)},
		"products/README.md":  {Data: []byte("not a recipe")},
		"products/ndvi.risor": {Data: []byte(`emit(ndvi(band("red"), band("nir")))`)},
	}
	rt := NewRuntime("", WithRuntimeFS(fsys))

	names, err := rt.ProductNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"ndvi", "rgb"}, names)

	src, err := rt.LoadScript("/products/rgb.risor")
	require.NoError(t, err)
	assert.Contains(t, src, "composite")

	_, err = rt.LoadScript("products/missing.risor")
	require.Error(t, err)
}

func TestProductScriptPath(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "products/false_color.risor", ProductScriptPath("false_color"))
}
