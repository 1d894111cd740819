package runtime

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/risor-io/risor/object"
	"go.uber.org/zap"

	"github.com/jward/spectra/internal/bandmath"
	"github.com/jward/spectra/internal/raster"
	"github.com/jward/spectra/internal/store"
)

// BandSource supplies band grids to recipes by role.
type BandSource interface {
	Band(ctx context.Context, role string) (*raster.Grid, error)
}

// Output is the product declared by a recipe's emit call. Exactly one of
// Scalar and RGB is set, matching Kind.
type Output struct {
	Kind       string
	Title      string
	Colormap   string
	VMin, VMax *float64
	Scalar     *raster.Grid
	RGB        *bandmath.Composite
}

// Result is what a recipe run produced.
type Result struct {
	Output *Output
	// Inputs lists the band roles the recipe read, sorted.
	Inputs []string
}

// recipeState tracks one recipe run: the bands it touched and its output.
type recipeState struct {
	src BandSource

	mu     sync.Mutex
	inputs map[string]bool
	output *Output
	emits  int
}

func newRecipeState(src BandSource) *recipeState {
	return &recipeState{src: src, inputs: make(map[string]bool)}
}

func (st *recipeState) result(label string) (*Result, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	switch {
	case st.emits == 0:
		return nil, fmt.Errorf("runtime: recipe %s: emit was never called", label)
	case st.emits > 1:
		return nil, fmt.Errorf("runtime: recipe %s: emit called %d times", label, st.emits)
	}
	inputs := make([]string, 0, len(st.inputs))
	for role := range st.inputs {
		inputs = append(inputs, role)
	}
	sort.Strings(inputs)
	return &Result{Output: st.output, Inputs: inputs}, nil
}

// makeBandFn creates the "band" host function.
//
// band(role) → Grid
func makeBandFn(st *recipeState) *object.Builtin {
	return object.NewBuiltin("band", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("band", 1, len(args))
		}
		role, err := toString(args[0])
		if err != nil {
			return object.Errorf("band: role %v", err)
		}
		if st.src == nil {
			return object.Errorf("band: no band source configured")
		}
		g, err := st.src.Band(ctx, role)
		if err != nil {
			return object.Errorf("band: %v", err)
		}
		st.mu.Lock()
		st.inputs[role] = true
		st.mu.Unlock()
		return mustProxy(g)
	})
}

// normalize(grid) → Grid on 0..255
func makeNormalizeFn() *object.Builtin {
	return object.NewBuiltin("normalize", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("normalize", 1, len(args))
		}
		g, err := toGrid(args[0])
		if err != nil {
			return object.Errorf("normalize: %v", err)
		}
		return mustProxy(bandmath.Normalize(g))
	})
}

// ndvi(red, nir) → Grid on [-1, 1]
func makeNDVIFn() *object.Builtin {
	return object.NewBuiltin("ndvi", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("ndvi", 2, len(args))
		}
		grids, err := toGrids(args)
		if err != nil {
			return object.Errorf("ndvi: %v", err)
		}
		out, err := bandmath.NDVI(grids[0], grids[1])
		if err != nil {
			return object.Errorf("ndvi: %v", err)
		}
		return mustProxy(out)
	})
}

// normalized_difference(a, b) → Grid of (a - b) / (a + b)
func makeNormalizedDifferenceFn() *object.Builtin {
	return object.NewBuiltin("normalized_difference", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("normalized_difference", 2, len(args))
		}
		grids, err := toGrids(args)
		if err != nil {
			return object.Errorf("normalized_difference: %v", err)
		}
		out, err := bandmath.NormalizedDifference(grids[0], grids[1])
		if err != nil {
			return object.Errorf("normalized_difference: %v", err)
		}
		return mustProxy(out)
	})
}

// average(a, b, ...) → Grid
func makeAverageFn() *object.Builtin {
	return object.NewBuiltin("average", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 1 {
			return object.Errorf("average: expected at least 1 argument")
		}
		grids, err := toGrids(args)
		if err != nil {
			return object.Errorf("average: %v", err)
		}
		out, err := bandmath.Average(grids...)
		if err != nil {
			return object.Errorf("average: %v", err)
		}
		return mustProxy(out)
	})
}

// composite(r, g, b) → Composite
func makeCompositeFn() *object.Builtin {
	return object.NewBuiltin("composite", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 3 {
			return object.NewArgsError("composite", 3, len(args))
		}
		grids, err := toGrids(args)
		if err != nil {
			return object.Errorf("composite: %v", err)
		}
		c, err := bandmath.NewComposite(grids[0], grids[1], grids[2])
		if err != nil {
			return object.Errorf("composite: %v", err)
		}
		return mustProxy(c)
	})
}

// stats(grid) → {min, max, mean, stddev, count}
func makeStatsFn() *object.Builtin {
	return object.NewBuiltin("stats", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("stats", 1, len(args))
		}
		g, err := toGrid(args[0])
		if err != nil {
			return object.Errorf("stats: %v", err)
		}
		s := bandmath.Summarize(g)
		return object.NewMap(map[string]object.Object{
			"min":    object.NewFloat(s.Min),
			"max":    object.NewFloat(s.Max),
			"mean":   object.NewFloat(s.Mean),
			"stddev": object.NewFloat(s.StdDev),
			"count":  object.NewInt(int64(s.Count)),
		})
	})
}

// makeEmitFn creates "emit", which declares the recipe's product.
//
// emit(grid_or_composite, {"title": ..., "colormap": ..., "vmin": ..., "vmax": ...})
func makeEmitFn(st *recipeState) *object.Builtin {
	return object.NewBuiltin("emit", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 1 || len(args) > 2 {
			return object.Errorf("emit: expected 1 or 2 arguments, got %d", len(args))
		}
		out := &Output{}
		if len(args) == 2 {
			m, err := extractMap(args[1])
			if err != nil {
				return object.Errorf("emit: options %v", err)
			}
			out.Title = getString(m, "title")
			out.Colormap = getString(m, "colormap")
			if v, ok := getOptionalFloat(m, "vmin"); ok {
				out.VMin = &v
			}
			if v, ok := getOptionalFloat(m, "vmax"); ok {
				out.VMax = &v
			}
		}

		proxy, ok := args[0].(*object.Proxy)
		if !ok {
			return object.Errorf("emit: expected grid or composite, got %s", args[0].Type())
		}
		switch v := proxy.Interface().(type) {
		case *raster.Grid:
			out.Kind = store.KindScalar
			out.Scalar = v
		case *bandmath.Composite:
			out.Kind = store.KindRGB
			out.RGB = v
		default:
			return object.Errorf("emit: expected grid or composite, got %T", v)
		}

		st.mu.Lock()
		st.emits++
		st.output = out
		st.mu.Unlock()
		return object.Nil
	})
}

// logObject provides log.Info/Warn/Error methods for recipes.
type logObject struct {
	logger *zap.Logger
}

func (l *logObject) Info(msg string) {
	l.logger.Info(msg)
}

func (l *logObject) Warn(msg string) {
	l.logger.Warn(msg)
}

func (l *logObject) Error(msg string) {
	l.logger.Error(msg)
}
