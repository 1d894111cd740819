package spectra

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/jward/spectra/internal/bandmath"
	"github.com/jward/spectra/internal/raster"
	"github.com/jward/spectra/internal/render"
	spectrart "github.com/jward/spectra/internal/runtime"
	"github.com/jward/spectra/internal/store"
)

// bandCache loads a scene's bands on demand and shares them between
// concurrently running recipes. Each band file is read at most once.
type bandCache struct {
	bands map[string]*store.Band

	group    singleflight.Group
	mu       sync.Mutex
	grids    map[string]*raster.Grid
	profiles map[string]*raster.Profile
}

func newBandCache(bands []*store.Band) *bandCache {
	c := &bandCache{
		bands:    make(map[string]*store.Band, len(bands)),
		grids:    make(map[string]*raster.Grid),
		profiles: make(map[string]*raster.Profile),
	}
	for _, b := range bands {
		c.bands[b.Role] = b
	}
	return c
}

// Band implements runtime.BandSource.
func (c *bandCache) Band(ctx context.Context, role string) (*raster.Grid, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	g, ok := c.grids[role]
	c.mu.Unlock()
	if ok {
		return g, nil
	}

	b, ok := c.bands[role]
	if !ok {
		return nil, fmt.Errorf("scene has no %q band", role)
	}
	v, err, _ := c.group.Do(role, func() (any, error) {
		g, p, err := raster.ReadBand(b.Path)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.grids[role] = g
		c.profiles[role] = p
		c.mu.Unlock()
		return g, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*raster.Grid), nil
}

// profile returns the profile of a band already loaded through Band.
func (c *bandCache) profile(role string) *raster.Profile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.profiles[role]
}

// renderItem is one product to render.
type renderItem struct {
	name   string
	source string

	// Filled by the worker.
	product *store.Product
	inputs  []string
	err     error
}

// Render runs the product recipes against the indexed scene in dir and
// writes a PNG figure per product, plus a Float32 GeoTIFF for scalar
// products. Products whose recipe and input bands are unchanged since the
// last render are skipped unless WithForce is set.
//
//	Phase A (serial):   Select products, skip current ones.
//	Phase B (parallel): Run recipes, render figures, write files.
//	Phase C (serial):   Commit products and their input bands.
//
// It returns every product of the scene that is current after the run.
func (e *Engine) Render(ctx context.Context, dir string) ([]*Product, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("spectra: resolve %s: %w", dir, err)
	}
	scene, err := e.store.SceneByPath(abs)
	if err != nil {
		return nil, fmt.Errorf("spectra: lookup scene: %w", err)
	}
	if scene == nil {
		return nil, fmt.Errorf("%w: %s", ErrSceneNotIndexed, abs)
	}

	names, err := e.selectProducts()
	if err != nil {
		return nil, err
	}

	bands, err := e.store.BandsByScene(scene.ID)
	if err != nil {
		return nil, fmt.Errorf("spectra: load bands: %w", err)
	}
	byRole := make(map[string]*store.Band, len(bands))
	for _, b := range bands {
		byRole[b.Role] = b
	}

	// ---- Phase A: Serial selection ----
	var current []*Product
	var items []*renderItem
	for _, name := range names {
		src, err := e.runtime.LoadScript(spectrart.ProductScriptPath(name))
		if err != nil {
			return nil, fmt.Errorf("spectra: %w", err)
		}
		old, err := e.store.ProductByName(scene.ID, name)
		if err != nil {
			return nil, fmt.Errorf("spectra: lookup product %s: %w", name, err)
		}
		if !e.force && old != nil && !e.staleProducts[old.ID] {
			fresh, err := e.productFresh(old, src)
			if err != nil {
				return nil, fmt.Errorf("spectra: check %s: %w", name, err)
			}
			if fresh {
				e.logger.Debug("product current", zap.String("product", name))
				current = append(current, old)
				continue
			}
		}
		items = append(items, &renderItem{name: name, source: src})
	}

	// ---- Phase B: Parallel rendering ----
	outDir := e.sceneOutputDir(abs)
	cache := newBandCache(bands)
	var g errgroup.Group
	g.SetLimit(e.numWorkers(len(items)))
	for _, item := range items {
		g.Go(func() error {
			start := time.Now()
			item.product, item.inputs, item.err = e.renderProduct(ctx, scene, item, cache, outDir)
			if item.err == nil {
				e.logger.Info("rendered product",
					zap.String("product", item.name),
					zap.Duration("took", time.Since(start)),
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	// ---- Phase C: Serial commit ----
	var errs []error
	for _, item := range items {
		if item.err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", item.name, item.err))
			continue
		}
		inputBands := make([]*store.Band, 0, len(item.inputs))
		inputIDs := make([]int64, 0, len(item.inputs))
		for _, role := range item.inputs {
			b := byRole[role]
			inputBands = append(inputBands, b)
			inputIDs = append(inputIDs, b.ID)
		}
		item.product.InputsHash = store.ComputeInputsHash(item.source, inputBands)
		if err := e.store.CommitProduct(item.product, inputIDs); err != nil {
			errs = append(errs, fmt.Errorf("commit %s: %w", item.name, err))
			continue
		}
		delete(e.staleProducts, item.product.ID)
		current = append(current, item.product)
	}

	e.storeRecipesHash()
	sort.Slice(current, func(i, j int) bool { return current[i].Name < current[j].Name })

	if len(errs) > 0 {
		return current, fmt.Errorf("spectra: rendering had %d error(s): %w", len(errs), errors.Join(errs...))
	}
	return current, nil
}

// selectProducts lists the recipe products, filtered by WithProducts.
func (e *Engine) selectProducts() ([]string, error) {
	all, err := e.runtime.ProductNames()
	if err != nil {
		return nil, fmt.Errorf("spectra: list recipes: %w", err)
	}
	if e.products == nil {
		return all, nil
	}
	known := make(map[string]bool, len(all))
	for _, n := range all {
		known[n] = true
	}
	var names []string
	for n := range e.products {
		if !known[n] {
			return nil, fmt.Errorf("spectra: unknown product %q", n)
		}
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

// productFresh reports whether p was rendered from src and from the
// current content of its input bands, and its output files still exist.
func (e *Engine) productFresh(p *store.Product, src string) (bool, error) {
	ids, err := e.store.ProductInputIDs(p.ID)
	if err != nil {
		return false, err
	}
	bands, err := e.store.BandsByIDs(ids)
	if err != nil {
		return false, err
	}
	if len(bands) != len(ids) {
		return false, nil
	}
	if store.ComputeInputsHash(src, bands) != p.InputsHash {
		return false, nil
	}
	for _, path := range []string{p.PNGPath, p.TIFPath} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			return false, nil
		}
	}
	return true, nil
}

// renderProduct runs one recipe and writes its outputs.
func (e *Engine) renderProduct(ctx context.Context, scene *store.Scene, item *renderItem, cache *bandCache, outDir string) (*store.Product, []string, error) {
	res, err := e.runtime.RunSource(ctx, item.source, cache)
	if err != nil {
		return nil, nil, err
	}
	out := res.Output
	if out.Title == "" {
		out.Title = item.name
	}

	p := &store.Product{
		SceneID:    scene.ID,
		Name:       item.name,
		Kind:       out.Kind,
		Title:      out.Title,
		PNGPath:    filepath.Join(outDir, item.name+".png"),
		RenderedAt: time.Now(),
	}
	opts := render.Options{
		Title:    out.Title,
		Colormap: out.Colormap,
		VMin:     out.VMin,
		VMax:     out.VMax,
		MaxSize:  e.maxSize,
	}

	var fig image.Image
	switch out.Kind {
	case store.KindRGB:
		fig, err = render.RGB(out.RGB.Image(), opts)
		if err != nil {
			return nil, nil, err
		}
	default:
		var rng [2]float64
		fig, rng, err = render.Scalar(out.Scalar, opts)
		if err != nil {
			return nil, nil, err
		}
		st := bandmath.Summarize(out.Scalar)
		p.Min, p.Max, p.Mean, p.StdDev = st.Min, st.Max, st.Mean, st.StdDev
		p.Colormap = out.Colormap
		if p.Colormap == "" {
			p.Colormap = render.DefaultColormap
		}
		e.logger.Debug("scalar range",
			zap.String("product", item.name),
			zap.Float64("vmin", rng[0]),
			zap.Float64("vmax", rng[1]),
		)

		p.TIFPath = filepath.Join(outDir, item.name+".tif")
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return nil, nil, err
		}
		if err := raster.WriteGeoTIFF(p.TIFPath, out.Scalar, productProfile(res.Inputs, cache, out.Scalar)); err != nil {
			return nil, nil, err
		}
	}

	if err := render.WritePNG(p.PNGPath, fig); err != nil {
		return nil, nil, err
	}
	return p, res.Inputs, nil
}

// productProfile georeferences a scalar product like its first input band
// that shares its grid.
func productProfile(inputs []string, cache *bandCache, g *raster.Grid) *raster.Profile {
	for _, role := range inputs {
		if p := cache.profile(role); p != nil && p.Width == g.Width && p.Height == g.Height {
			return p
		}
	}
	return &raster.Profile{Width: g.Width, Height: g.Height}
}

// StaleProducts returns the rendered products of the scene in dir that
// Render would redraw: their recipe or an input band changed, or an output
// file is missing.
func (e *Engine) StaleProducts(dir string) ([]*Product, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("spectra: resolve %s: %w", dir, err)
	}
	scene, err := e.store.SceneByPath(abs)
	if err != nil {
		return nil, fmt.Errorf("spectra: lookup scene: %w", err)
	}
	if scene == nil {
		return nil, fmt.Errorf("%w: %s", ErrSceneNotIndexed, abs)
	}
	products, err := e.store.ProductsByScene(scene.ID)
	if err != nil {
		return nil, fmt.Errorf("spectra: load products: %w", err)
	}

	var stale []*Product
	for _, p := range products {
		if e.staleProducts[p.ID] {
			stale = append(stale, p)
			continue
		}
		src, err := e.runtime.LoadScript(spectrart.ProductScriptPath(p.Name))
		if err != nil {
			// The recipe was removed; the product can no longer be redrawn.
			stale = append(stale, p)
			continue
		}
		fresh, err := e.productFresh(p, src)
		if err != nil {
			return nil, fmt.Errorf("spectra: check %s: %w", p.Name, err)
		}
		if !fresh {
			stale = append(stale, p)
		}
	}
	return stale, nil
}
