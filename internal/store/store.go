package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite catalog of scenes, bands and rendered products.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS scenes (
  id              INTEGER PRIMARY KEY,
  path            TEXT NOT NULL UNIQUE,
  name            TEXT NOT NULL,
  width           INTEGER,
  height          INTEGER,
  projection      TEXT,
  geotransform    TEXT,
  indexed_at      TIMESTAMP
);

CREATE TABLE IF NOT EXISTS bands (
  id              INTEGER PRIMARY KEY,
  scene_id        INTEGER NOT NULL REFERENCES scenes(id),
  role            TEXT NOT NULL,
  band_number     INTEGER NOT NULL,
  path            TEXT NOT NULL UNIQUE,
  hash            TEXT NOT NULL,
  width           INTEGER,
  height          INTEGER,
  data_type       TEXT,
  nodata          REAL,
  min             REAL,
  max             REAL,
  mean            REAL,
  stddev          REAL,
  indexed_at      TIMESTAMP,
  UNIQUE (scene_id, role)
);

CREATE TABLE IF NOT EXISTS products (
  id              INTEGER PRIMARY KEY,
  scene_id        INTEGER NOT NULL REFERENCES scenes(id),
  name            TEXT NOT NULL,
  kind            TEXT NOT NULL,
  title           TEXT,
  colormap        TEXT,
  png_path        TEXT,
  tif_path        TEXT,
  inputs_hash     TEXT NOT NULL,
  min             REAL,
  max             REAL,
  mean            REAL,
  stddev          REAL,
  rendered_at     TIMESTAMP,
  UNIQUE (scene_id, name)
);

CREATE TABLE IF NOT EXISTS product_inputs (
  product_id      INTEGER NOT NULL REFERENCES products(id),
  band_id         INTEGER NOT NULL REFERENCES bands(id),
  PRIMARY KEY (product_id, band_id)
);

CREATE TABLE IF NOT EXISTS metadata (
  key             TEXT PRIMARY KEY,
  value           TEXT
);

CREATE INDEX IF NOT EXISTS idx_bands_scene ON bands(scene_id);
CREATE INDEX IF NOT EXISTS idx_products_scene ON products(scene_id);
CREATE INDEX IF NOT EXISTS idx_product_inputs_band ON product_inputs(band_id);
`

// GetMetadata returns the value stored under key, or "" when absent.
func (s *Store) GetMetadata(key string) (string, error) {
	var v sql.NullString
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get metadata %s: %w", key, err)
	}
	return v.String, nil
}

// SetMetadata upserts a key/value pair.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set metadata %s: %w", key, err)
	}
	return nil
}
