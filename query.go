package spectra

import (
	"fmt"

	"github.com/jward/spectra/internal/store"
)

// QueryBuilder provides read access to the catalog.
type QueryBuilder struct {
	store *store.Store
}

// Scenes returns every indexed scene ordered by path.
func (q *QueryBuilder) Scenes() ([]*Scene, error) {
	scenes, err := q.store.Scenes()
	if err != nil {
		return nil, fmt.Errorf("scenes: %w", err)
	}
	return scenes, nil
}

// SceneByPath returns the scene indexed from dir, or nil if there is none.
func (q *QueryBuilder) SceneByPath(dir string) (*Scene, error) {
	sc, err := q.store.SceneByPath(dir)
	if err != nil {
		return nil, fmt.Errorf("scene by path: %w", err)
	}
	return sc, nil
}

// Scene returns the scene with the given ID, or nil.
func (q *QueryBuilder) Scene(id int64) (*Scene, error) {
	sc, err := q.store.SceneByID(id)
	if err != nil {
		return nil, fmt.Errorf("scene %d: %w", id, err)
	}
	return sc, nil
}

// Bands returns a scene's bands ordered by band number.
func (q *QueryBuilder) Bands(sceneID int64) ([]*Band, error) {
	bands, err := q.store.BandsByScene(sceneID)
	if err != nil {
		return nil, fmt.Errorf("bands: %w", err)
	}
	return bands, nil
}

// Band returns the band filling role in a scene, or nil.
func (q *QueryBuilder) Band(sceneID int64, role string) (*Band, error) {
	b, err := q.store.BandByRole(sceneID, role)
	if err != nil {
		return nil, fmt.Errorf("band %s: %w", role, err)
	}
	return b, nil
}

// Products returns a scene's rendered products ordered by name.
func (q *QueryBuilder) Products(sceneID int64) ([]*Product, error) {
	products, err := q.store.ProductsByScene(sceneID)
	if err != nil {
		return nil, fmt.Errorf("products: %w", err)
	}
	return products, nil
}

// Product returns a rendered product by name, or nil.
func (q *QueryBuilder) Product(sceneID int64, name string) (*Product, error) {
	p, err := q.store.ProductByName(sceneID, name)
	if err != nil {
		return nil, fmt.Errorf("product %s: %w", name, err)
	}
	return p, nil
}

// ProductInputs returns the bands a product's recipe read when it was last
// rendered, ordered by band number.
func (q *QueryBuilder) ProductInputs(productID int64) ([]*Band, error) {
	ids, err := q.store.ProductInputIDs(productID)
	if err != nil {
		return nil, fmt.Errorf("product inputs: %w", err)
	}
	bands, err := q.store.BandsByIDs(ids)
	if err != nil {
		return nil, fmt.Errorf("product inputs: %w", err)
	}
	return bands, nil
}

// ProductsUsingBand returns the products that consumed a band.
func (q *QueryBuilder) ProductsUsingBand(bandID int64) ([]*Product, error) {
	ids, err := q.store.ProductsUsingBands([]int64{bandID})
	if err != nil {
		return nil, fmt.Errorf("products using band: %w", err)
	}
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}

	b, err := q.store.BandsByIDs([]int64{bandID})
	if err != nil {
		return nil, fmt.Errorf("products using band: %w", err)
	}
	if len(b) == 0 {
		return nil, nil
	}
	all, err := q.store.ProductsByScene(b[0].SceneID)
	if err != nil {
		return nil, fmt.Errorf("products using band: %w", err)
	}
	var out []*Product
	for _, p := range all {
		if set[p.ID] {
			out = append(out, p)
		}
	}
	return out, nil
}
