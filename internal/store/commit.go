package store

import (
	"database/sql"
	"fmt"
)

// CommitProduct records a rendered product and the bands it consumed in a
// single transaction. An existing product with the same (scene, name) is
// replaced in place, keeping its ID. p.ID is set on return.
func (s *Store) CommitProduct(p *Product, inputBandIDs []int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit product: begin: %w", err)
	}
	defer tx.Rollback()

	var existingID int64
	err = tx.QueryRow("SELECT id FROM products WHERE scene_id = ? AND name = ?", p.SceneID, p.Name).Scan(&existingID)
	switch {
	case err == sql.ErrNoRows:
		res, err := tx.Exec(
			`INSERT INTO products (scene_id, name, kind, title, colormap, png_path, tif_path, inputs_hash,
				min, max, mean, stddev, rendered_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.SceneID, p.Name, p.Kind, p.Title, p.Colormap, p.PNGPath, p.TIFPath, p.InputsHash,
			p.Min, p.Max, p.Mean, p.StdDev, p.RenderedAt,
		)
		if err != nil {
			return fmt.Errorf("commit product: insert %q: %w", p.Name, err)
		}
		if p.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("commit product: last insert id: %w", err)
		}
	case err != nil:
		return fmt.Errorf("commit product: lookup %q: %w", p.Name, err)
	default:
		_, err := tx.Exec(
			`UPDATE products SET kind = ?, title = ?, colormap = ?, png_path = ?, tif_path = ?, inputs_hash = ?,
				min = ?, max = ?, mean = ?, stddev = ?, rendered_at = ?
			 WHERE id = ?`,
			p.Kind, p.Title, p.Colormap, p.PNGPath, p.TIFPath, p.InputsHash,
			p.Min, p.Max, p.Mean, p.StdDev, p.RenderedAt, existingID,
		)
		if err != nil {
			return fmt.Errorf("commit product: update %q: %w", p.Name, err)
		}
		p.ID = existingID
	}

	if _, err := tx.Exec("DELETE FROM product_inputs WHERE product_id = ?", p.ID); err != nil {
		return fmt.Errorf("commit product: clear inputs: %w", err)
	}
	for _, bandID := range inputBandIDs {
		if _, err := tx.Exec(
			"INSERT OR IGNORE INTO product_inputs (product_id, band_id) VALUES (?, ?)", p.ID, bandID,
		); err != nil {
			return fmt.Errorf("commit product: input %d: %w", bandID, err)
		}
	}

	return tx.Commit()
}
