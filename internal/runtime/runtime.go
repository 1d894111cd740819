package runtime

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"github.com/risor-io/risor/object"
	"go.uber.org/zap"
)

// Runtime embeds a Risor VM and exposes band math host functions to
// product recipes. A Runtime holds no per-run state, so one instance can
// run recipes from several goroutines at once.
type Runtime struct {
	recipesDir string
	fsys       fs.FS
	logger     *zap.Logger
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeFS configures the Runtime to load recipes from an fs.FS
// instead of from disk. Also configures the Risor importer to use
// FSImporter for import statement resolution.
func WithRuntimeFS(fsys fs.FS) RuntimeOption {
	return func(r *Runtime) {
		r.fsys = fsys
	}
}

// WithRuntimeLogger routes the recipes' log object to logger.
func WithRuntimeLogger(logger *zap.Logger) RuntimeOption {
	return func(r *Runtime) {
		r.logger = logger
	}
}

// NewRuntime creates a Runtime loading recipes from recipesDir.
func NewRuntime(recipesDir string, opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		recipesDir: recipesDir,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunRecipe loads and executes a recipe against src.
func (r *Runtime) RunRecipe(ctx context.Context, scriptPath string, src BandSource) (*Result, error) {
	code, err := r.LoadScript(scriptPath)
	if err != nil {
		return nil, err
	}
	return r.eval(ctx, code, scriptPath, src)
}

// RunSource executes recipe source code directly. Useful for testing
// without recipe files.
func (r *Runtime) RunSource(ctx context.Context, source string, src BandSource) (*Result, error) {
	return r.eval(ctx, source, "<inline>", src)
}

func (r *Runtime) eval(ctx context.Context, source, label string, src BandSource) (*Result, error) {
	st := newRecipeState(src)
	globals := r.buildGlobals(st, label)

	var opts []risor.Option
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}

	// Wire importer so Risor import statements resolve correctly.
	if imp := r.buildImporter(globals); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	if _, err := risor.Eval(ctx, source, opts...); err != nil {
		return nil, fmt.Errorf("runtime: recipe %s: %w", label, err)
	}
	return st.result(label)
}

// buildImporter returns a Risor importer configured for the Runtime's recipe source.
// Returns nil if neither fs.FS nor recipesDir is configured.
func (r *Runtime) buildImporter(globals map[string]any) importer.Importer {
	globalNames := make([]string, 0, len(globals))
	for name := range globals {
		globalNames = append(globalNames, name)
	}

	if r.fsys != nil {
		return importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: globalNames,
			SourceFS:    r.fsys,
			Extensions:  []string{".risor"},
		})
	}
	if r.recipesDir != "" {
		return importer.NewLocalImporter(importer.LocalImporterOptions{
			GlobalNames: globalNames,
			SourceDir:   r.recipesDir,
			Extensions:  []string{".risor"},
		})
	}
	return nil
}

// LoadScript reads a .risor file and returns its source code.
// When an fs.FS is configured, uses fs.ReadFile on the embedded filesystem.
// Otherwise, uses os.ReadFile with recipesDir as the base directory.
func (r *Runtime) LoadScript(p string) (string, error) {
	if r.fsys != nil {
		// For fs.FS, strip any leading path separator so the path is
		// relative within the FS (e.g., "/products/ndvi.risor" -> "products/ndvi.risor").
		fsPath := strings.TrimPrefix(filepath.ToSlash(p), "/")
		data, err := fs.ReadFile(r.fsys, fsPath)
		if err != nil {
			return "", fmt.Errorf("runtime: loading recipe %s from fs: %w", fsPath, err)
		}
		return string(data), nil
	}

	fullPath := p
	if !filepath.IsAbs(p) {
		fullPath = filepath.Join(r.recipesDir, p)
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("runtime: loading recipe %s: %w", fullPath, err)
	}
	return string(data), nil
}

// ProductScriptPath returns the path to a product's recipe.
func ProductScriptPath(product string) string {
	return path.Join("products", product+".risor")
}

// ProductNames lists the products that have a recipe, in sorted order.
func (r *Runtime) ProductNames() ([]string, error) {
	var entries []fs.DirEntry
	var err error
	if r.fsys != nil {
		entries, err = fs.ReadDir(r.fsys, "products")
	} else {
		entries, err = os.ReadDir(filepath.Join(r.recipesDir, "products"))
	}
	if err != nil {
		return nil, fmt.Errorf("runtime: listing recipes: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".risor") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".risor"))
	}
	sort.Strings(names)
	return names, nil
}

// buildGlobals constructs the full set of globals exposed to a recipe run.
func (r *Runtime) buildGlobals(st *recipeState, label string) map[string]any {
	return map[string]any{
		"band":                  makeBandFn(st),
		"normalize":             makeNormalizeFn(),
		"ndvi":                  makeNDVIFn(),
		"normalized_difference": makeNormalizedDifferenceFn(),
		"average":               makeAverageFn(),
		"composite":             makeCompositeFn(),
		"stats":                 makeStatsFn(),
		"emit":                  makeEmitFn(st),
		"log":                   mustProxy(&logObject{logger: r.logger.With(zap.String("recipe", label))}),
	}
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("runtime: proxy error: %v", err))
	}
	return p
}
