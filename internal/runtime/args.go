package runtime

import (
	"fmt"

	"github.com/risor-io/risor/object"

	"github.com/jward/spectra/internal/raster"
)

// Helpers converting Risor arguments into Go values. Risor cannot build Go
// structs, so grids travel through scripts as proxies and options as maps.

func toGrid(obj object.Object) (*raster.Grid, error) {
	proxy, ok := obj.(*object.Proxy)
	if !ok {
		return nil, fmt.Errorf("expected grid, got %s", obj.Type())
	}
	g, ok := proxy.Interface().(*raster.Grid)
	if !ok {
		return nil, fmt.Errorf("expected grid, got %T", proxy.Interface())
	}
	return g, nil
}

func toGrids(args []object.Object) ([]*raster.Grid, error) {
	grids := make([]*raster.Grid, len(args))
	for i, a := range args {
		g, err := toGrid(a)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		grids[i] = g
	}
	return grids, nil
}

func extractMap(obj object.Object) (map[string]object.Object, error) {
	m, ok := obj.(*object.Map)
	if !ok {
		return nil, fmt.Errorf("expected map, got %s", obj.Type())
	}
	return m.Value(), nil
}

func getString(m map[string]object.Object, key string) string {
	v, ok := m[key]
	if !ok {
		return ""
	}
	if s, ok := v.(*object.String); ok {
		return s.Value()
	}
	return ""
}

func getOptionalFloat(m map[string]object.Object, key string) (float64, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case *object.Float:
		return n.Value(), true
	case *object.Int:
		return float64(n.Value()), true
	}
	return 0, false
}

func toString(obj object.Object) (string, error) {
	if s, ok := obj.(*object.String); ok {
		return s.Value(), nil
	}
	return "", fmt.Errorf("expected string, got %s", obj.Type())
}
