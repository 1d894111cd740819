package spectra

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"go.uber.org/zap"

	"github.com/jward/spectra/internal/raster"
	spectrart "github.com/jward/spectra/internal/runtime"
	"github.com/jward/spectra/internal/store"
)

// ErrSceneNotIndexed is returned by operations that need a scene to be in
// the catalog before they can run.
var ErrSceneNotIndexed = errors.New("spectra: scene not indexed")

// Engine orchestrates the spectra pipeline: band discovery, change
// detection, recipe execution, rendering, and catalog queries.
type Engine struct {
	store      *store.Store
	runtime    *spectrart.Runtime
	recipesDir string
	recipesFS  fs.FS
	products   map[string]bool // nil means all products
	layout     raster.Layout
	outputDir  string
	maxSize    int
	workers    int
	force      bool
	logger     *zap.Logger

	// staleProducts accumulates product IDs whose input bands changed during
	// indexing. Cleared by Render.
	staleProducts map[int64]bool

	// useParallel enables the worker pools for band reads and recipe runs.
	useParallel bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithProducts restricts which products the Engine renders.
func WithProducts(products ...string) Option {
	return func(e *Engine) {
		e.products = make(map[string]bool, len(products))
		for _, p := range products {
			e.products[p] = true
		}
	}
}

// WithParallel controls parallel band reads and rendering. When true
// (default), IndexScene and Render use a bounded worker pool with a single
// goroutine committing to SQLite. Set to false for serial mode.
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.useParallel = parallel
	}
}

// WithWorkers bounds the worker pool size. Zero means runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithRecipesFS configures the Engine to load Risor recipes from the given
// filesystem instead of from the recipesDir path on disk. This enables
// embedding recipes via go:embed.
func WithRecipesFS(fsys fs.FS) Option {
	return func(e *Engine) {
		e.recipesFS = fsys
	}
}

// WithLayout replaces the role → band number assignment.
func WithLayout(l raster.Layout) Option {
	return func(e *Engine) {
		e.layout = l
	}
}

// WithOutputDir sets where rendered products are written. By default they
// go to .spectra/products inside the scene directory.
func WithOutputDir(dir string) Option {
	return func(e *Engine) {
		e.outputDir = dir
	}
}

// WithMaxSize caps the long edge of rendered images in pixels.
func WithMaxSize(px int) Option {
	return func(e *Engine) {
		e.maxSize = px
	}
}

// WithForce makes Render re-render products even when they are current.
func WithForce(force bool) Option {
	return func(e *Engine) {
		e.force = force
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New creates an Engine backed by a SQLite catalog at dbPath.
// Recipe loading priority:
//  1. If WithRecipesFS is set, use the provided fs.FS
//  2. Otherwise, use recipesDir on disk
//
// The recipesDir parameter may be empty when WithRecipesFS is used.
func New(dbPath string, recipesDir string, opts ...Option) (*Engine, error) {
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("spectra: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("spectra: migrate: %w", err)
	}

	e := &Engine{
		store:       s,
		recipesDir:  recipesDir,
		layout:      raster.DefaultLayout(),
		logger:      zap.NewNop(),
		useParallel: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.layout.Validate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("spectra: layout: %w", err)
	}

	rtOpts := []spectrart.RuntimeOption{spectrart.WithRuntimeLogger(e.logger)}
	if e.recipesFS != nil {
		rtOpts = append(rtOpts, spectrart.WithRuntimeFS(e.recipesFS))
	}
	e.runtime = spectrart.NewRuntime(recipesDir, rtOpts...)

	return e, nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store returns the underlying Store for direct access.
func (e *Engine) Store() *Store {
	return e.store
}

// Query returns a new QueryBuilder wrapping the Store.
func (e *Engine) Query() *QueryBuilder {
	return &QueryBuilder{store: e.store}
}

// numWorkers returns the pool size for n work items.
func (e *Engine) numWorkers(n int) int {
	if !e.useParallel {
		return 1
	}
	w := e.workers
	if w <= 0 {
		w = runtime.NumCPU()
	}
	return max(1, min(w, n))
}

// recipesHash computes a SHA-256 hash over every product recipe, sorted by
// name. Returns hex-encoded hash string.
func (e *Engine) recipesHash() string {
	names, err := e.runtime.ProductNames()
	if err != nil {
		return ""
	}
	h := sha256.New()
	for _, name := range names {
		src, err := e.runtime.LoadScript(spectrart.ProductScriptPath(name))
		if err != nil {
			continue
		}
		h.Write([]byte(name))
		h.Write([]byte(src))
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// RecipesChanged reports whether the recipes differ from the ones used to
// render the catalog's products. Returns true if the catalog has no stored
// hash (first run) or if the hash doesn't match.
func (e *Engine) RecipesChanged() bool {
	current := e.recipesHash()
	stored, err := e.store.GetMetadata("recipes_hash")
	if err != nil || stored == "" {
		return true
	}
	return current != stored
}

// storeRecipesHash persists the current recipes hash to the database.
func (e *Engine) storeRecipesHash() {
	if err := e.store.SetMetadata("recipes_hash", e.recipesHash()); err != nil {
		e.logger.Warn("storing recipes hash", zap.Error(err))
	}
}

// bandFile is a band file found in a scene directory.
type bandFile struct {
	path   string
	role   string
	number int
}

// listBandFiles finds the files in dir that fill a role of the layout.
// When two files claim the same role the first in name order wins.
func (e *Engine) listBandFiles(dir string) ([]bandFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read scene dir: %w", err)
	}

	seen := make(map[string]bool)
	var files []bandFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		role, number, ok := e.layout.RoleForFile(entry.Name())
		if !ok {
			continue
		}
		if seen[role] {
			e.logger.Warn("duplicate band file ignored",
				zap.String("role", role), zap.String("file", entry.Name()))
			continue
		}
		seen[role] = true
		files = append(files, bandFile{
			path:   filepath.Join(dir, entry.Name()),
			role:   role,
			number: number,
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].number < files[j].number })
	return files, nil
}

// hashFile returns the hex SHA-256 of a file's content.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// sceneOutputDir returns where a scene's products are written.
func (e *Engine) sceneOutputDir(sceneDir string) string {
	if e.outputDir != "" {
		return e.outputDir
	}
	return filepath.Join(sceneDir, ".spectra", "products")
}

// Process indexes the scene in dir and renders its products. Bands that
// fail to index only fail the products that read them; the scene is still
// rendered and every error is returned joined.
func (e *Engine) Process(ctx context.Context, dir string) (*Scene, []*Product, error) {
	scene, indexErr := e.IndexScene(ctx, dir)
	if scene == nil {
		return nil, nil, indexErr
	}
	products, renderErr := e.Render(ctx, dir)
	return scene, products, errors.Join(indexErr, renderErr)
}
