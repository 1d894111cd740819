package store

import (
	"database/sql"
	"fmt"
)

const bandColumns = `id, scene_id, role, band_number, path, hash, width, height, data_type,
	nodata, min, max, mean, stddev, indexed_at`

func scanBand(row interface{ Scan(...any) error }) (*Band, error) {
	b := &Band{}
	var dt sql.NullString
	var nd sql.NullFloat64
	err := row.Scan(&b.ID, &b.SceneID, &b.Role, &b.BandNumber, &b.Path, &b.Hash,
		&b.Width, &b.Height, &dt, &nd, &b.Min, &b.Max, &b.Mean, &b.StdDev, &b.IndexedAt)
	if err != nil {
		return nil, err
	}
	b.DataType = dt.String
	if nd.Valid {
		v := nd.Float64
		b.NoData = &v
	}
	return b, nil
}

// UpsertBand inserts b, or replaces the row holding the same (scene, role).
// b.ID is set on return; the ID of a replaced row is preserved so product
// inputs keep pointing at it.
func (s *Store) UpsertBand(b *Band) (int64, error) {
	existing, err := s.BandByRole(b.SceneID, b.Role)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		_, err := s.db.Exec(
			`UPDATE bands SET band_number = ?, path = ?, hash = ?, width = ?, height = ?, data_type = ?,
				nodata = ?, min = ?, max = ?, mean = ?, stddev = ?, indexed_at = ?
			 WHERE id = ?`,
			b.BandNumber, b.Path, b.Hash, b.Width, b.Height, b.DataType,
			b.NoData, b.Min, b.Max, b.Mean, b.StdDev, b.IndexedAt, existing.ID,
		)
		if err != nil {
			return 0, fmt.Errorf("update band: %w", err)
		}
		b.ID = existing.ID
		return b.ID, nil
	}

	res, err := s.db.Exec(
		`INSERT INTO bands (scene_id, role, band_number, path, hash, width, height, data_type,
			nodata, min, max, mean, stddev, indexed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.SceneID, b.Role, b.BandNumber, b.Path, b.Hash, b.Width, b.Height, b.DataType,
		b.NoData, b.Min, b.Max, b.Mean, b.StdDev, b.IndexedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert band: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	b.ID = id
	return id, nil
}

// BandByRole returns the band filling role in the scene, or nil.
func (s *Store) BandByRole(sceneID int64, role string) (*Band, error) {
	b, err := scanBand(s.db.QueryRow(
		"SELECT "+bandColumns+" FROM bands WHERE scene_id = ? AND role = ?", sceneID, role,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("band by role: %w", err)
	}
	return b, nil
}

// BandByPath returns the band stored for path, or nil.
func (s *Store) BandByPath(path string) (*Band, error) {
	b, err := scanBand(s.db.QueryRow("SELECT "+bandColumns+" FROM bands WHERE path = ?", path))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("band by path: %w", err)
	}
	return b, nil
}

// DeleteBands removes bands and the product input rows that point at them
// in one transaction.
func (s *Store) DeleteBands(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("delete bands: begin: %w", err)
	}
	defer tx.Rollback()

	in := "(" + placeholderList(len(ids)) + ")"
	args := int64sToArgs(ids)
	if _, err := tx.Exec("DELETE FROM product_inputs WHERE band_id IN "+in, args...); err != nil {
		return fmt.Errorf("delete bands: inputs: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM bands WHERE id IN "+in, args...); err != nil {
		return fmt.Errorf("delete bands: %w", err)
	}
	return tx.Commit()
}

// BandsByScene returns a scene's bands ordered by band number.
func (s *Store) BandsByScene(sceneID int64) ([]*Band, error) {
	return s.queryBands("SELECT "+bandColumns+" FROM bands WHERE scene_id = ? ORDER BY band_number", sceneID)
}

// BandsByIDs returns the bands with the given IDs ordered by band number.
func (s *Store) BandsByIDs(ids []int64) ([]*Band, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.queryBands(
		"SELECT "+bandColumns+" FROM bands WHERE id IN ("+placeholderList(len(ids))+") ORDER BY band_number",
		int64sToArgs(ids)...,
	)
}

func (s *Store) queryBands(query string, args ...any) ([]*Band, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bands: %w", err)
	}
	defer rows.Close()
	var bands []*Band
	for rows.Next() {
		b, err := scanBand(rows)
		if err != nil {
			return nil, fmt.Errorf("scan band: %w", err)
		}
		bands = append(bands, b)
	}
	return bands, rows.Err()
}
