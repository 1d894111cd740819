package store

import (
	"database/sql"
	"fmt"
)

const sceneColumns = "id, path, name, width, height, projection, geotransform, indexed_at"

func scanScene(row interface{ Scan(...any) error }) (*Scene, error) {
	sc := &Scene{}
	var proj, gt sql.NullString
	if err := row.Scan(&sc.ID, &sc.Path, &sc.Name, &sc.Width, &sc.Height, &proj, &gt, &sc.IndexedAt); err != nil {
		return nil, err
	}
	sc.Projection = proj.String
	transform, err := unmarshalGeoTransform(gt.String)
	if err != nil {
		return nil, err
	}
	sc.GeoTransform = transform
	return sc, nil
}

// UpsertScene inserts sc, or updates the existing row with the same path.
// sc.ID is set on return.
func (s *Store) UpsertScene(sc *Scene) (int64, error) {
	existing, err := s.SceneByPath(sc.Path)
	if err != nil {
		return 0, err
	}
	gt := marshalGeoTransform(sc.GeoTransform)
	if existing != nil {
		_, err := s.db.Exec(
			`UPDATE scenes SET name = ?, width = ?, height = ?, projection = ?, geotransform = ?, indexed_at = ?
			 WHERE id = ?`,
			sc.Name, sc.Width, sc.Height, sc.Projection, gt, sc.IndexedAt, existing.ID,
		)
		if err != nil {
			return 0, fmt.Errorf("update scene: %w", err)
		}
		sc.ID = existing.ID
		return sc.ID, nil
	}

	res, err := s.db.Exec(
		`INSERT INTO scenes (path, name, width, height, projection, geotransform, indexed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sc.Path, sc.Name, sc.Width, sc.Height, sc.Projection, gt, sc.IndexedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert scene: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	sc.ID = id
	return id, nil
}

// SceneByPath returns the scene rooted at path, or nil if not indexed.
func (s *Store) SceneByPath(path string) (*Scene, error) {
	sc, err := scanScene(s.db.QueryRow("SELECT "+sceneColumns+" FROM scenes WHERE path = ?", path))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scene by path: %w", err)
	}
	return sc, nil
}

// SceneByID returns the scene with the given ID, or nil.
func (s *Store) SceneByID(id int64) (*Scene, error) {
	sc, err := scanScene(s.db.QueryRow("SELECT "+sceneColumns+" FROM scenes WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scene by id: %w", err)
	}
	return sc, nil
}

// Scenes returns every indexed scene ordered by path.
func (s *Store) Scenes() ([]*Scene, error) {
	rows, err := s.db.Query("SELECT " + sceneColumns + " FROM scenes ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("scenes: %w", err)
	}
	defer rows.Close()
	var scenes []*Scene
	for rows.Next() {
		sc, err := scanScene(rows)
		if err != nil {
			return nil, fmt.Errorf("scan scene: %w", err)
		}
		scenes = append(scenes, sc)
	}
	return scenes, rows.Err()
}
