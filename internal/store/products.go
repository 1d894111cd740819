package store

import (
	"database/sql"
	"fmt"
)

const productColumns = `id, scene_id, name, kind, title, colormap, png_path, tif_path, inputs_hash,
	min, max, mean, stddev, rendered_at`

func scanProduct(row interface{ Scan(...any) error }) (*Product, error) {
	p := &Product{}
	var title, cmap, png, tif sql.NullString
	err := row.Scan(&p.ID, &p.SceneID, &p.Name, &p.Kind, &title, &cmap, &png, &tif, &p.InputsHash,
		&p.Min, &p.Max, &p.Mean, &p.StdDev, &p.RenderedAt)
	if err != nil {
		return nil, err
	}
	p.Title, p.Colormap, p.PNGPath, p.TIFPath = title.String, cmap.String, png.String, tif.String
	return p, nil
}

// ProductByName returns the named product of a scene, or nil.
func (s *Store) ProductByName(sceneID int64, name string) (*Product, error) {
	p, err := scanProduct(s.db.QueryRow(
		"SELECT "+productColumns+" FROM products WHERE scene_id = ? AND name = ?", sceneID, name,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("product by name: %w", err)
	}
	return p, nil
}

// ProductsByScene returns a scene's products ordered by name.
func (s *Store) ProductsByScene(sceneID int64) ([]*Product, error) {
	rows, err := s.db.Query(
		"SELECT "+productColumns+" FROM products WHERE scene_id = ? ORDER BY name", sceneID,
	)
	if err != nil {
		return nil, fmt.Errorf("products by scene: %w", err)
	}
	defer rows.Close()
	var products []*Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// ProductInputIDs returns the IDs of the bands a product consumed.
func (s *Store) ProductInputIDs(productID int64) ([]int64, error) {
	rows, err := s.db.Query(
		"SELECT band_id FROM product_inputs WHERE product_id = ? ORDER BY band_id", productID,
	)
	if err != nil {
		return nil, fmt.Errorf("product inputs: %w", err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan product input: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ProductsUsingBands returns the IDs of products that consumed any of the
// given bands.
func (s *Store) ProductsUsingBands(bandIDs []int64) ([]int64, error) {
	if len(bandIDs) == 0 {
		return nil, nil
	}
	rows, err := s.db.Query(
		"SELECT DISTINCT product_id FROM product_inputs WHERE band_id IN ("+placeholderList(len(bandIDs))+") ORDER BY product_id",
		int64sToArgs(bandIDs)...,
	)
	if err != nil {
		return nil, fmt.Errorf("products using bands: %w", err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan product id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
