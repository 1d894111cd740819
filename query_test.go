package spectra

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/spectra/internal/store"
)

func newTestQueryBuilder(t *testing.T) (*QueryBuilder, *store.Store) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := store.NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return &QueryBuilder{store: s}, s
}

// seedCatalog inserts one scene with red, nir, and thermal1 bands and an
// ndvi product that consumed red and nir.
func seedCatalog(t *testing.T, s *store.Store) (*Scene, map[string]*Band, *Product) {
	t.Helper()
	sc := &Scene{Path: "/scenes/LC08", Name: "LC08", Width: 4, Height: 3, IndexedAt: time.Now()}
	_, err := s.UpsertScene(sc)
	require.NoError(t, err)

	bands := make(map[string]*Band)
	for role, n := range map[string]int{"red": 4, "nir": 5, "thermal1": 10} {
		b := &Band{SceneID: sc.ID, Role: role, BandNumber: n, Path: "/scenes/LC08/" + role + ".TIF", Hash: role, IndexedAt: time.Now()}
		_, err := s.UpsertBand(b)
		require.NoError(t, err)
		bands[role] = b
	}

	p := &Product{SceneID: sc.ID, Name: "ndvi", Kind: KindScalar, Title: "NDVI", InputsHash: "h", RenderedAt: time.Now()}
	require.NoError(t, s.CommitProduct(p, []int64{bands["red"].ID, bands["nir"].ID}))
	return sc, bands, p
}

func TestQuery_ScenesAndLookup(t *testing.T) {
	t.Parallel()
	q, s := newTestQueryBuilder(t)
	sc, _, _ := seedCatalog(t, s)

	scenes, err := q.Scenes()
	require.NoError(t, err)
	require.Len(t, scenes, 1)
	assert.Equal(t, sc.ID, scenes[0].ID)

	got, err := q.SceneByPath("/scenes/LC08")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "LC08", got.Name)

	missing, err := q.SceneByPath("/scenes/none")
	require.NoError(t, err)
	assert.Nil(t, missing)

	byID, err := q.Scene(sc.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "/scenes/LC08", byID.Path)

	none, err := q.Scene(sc.ID + 100)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestQuery_Bands(t *testing.T) {
	t.Parallel()
	q, s := newTestQueryBuilder(t)
	sc, _, _ := seedCatalog(t, s)

	bands, err := q.Bands(sc.ID)
	require.NoError(t, err)
	require.Len(t, bands, 3)
	assert.Equal(t, []int{4, 5, 10}, []int{bands[0].BandNumber, bands[1].BandNumber, bands[2].BandNumber})

	b, err := q.Band(sc.ID, "thermal1")
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, 10, b.BandNumber)

	none, err := q.Band(sc.ID, "swir1")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestQuery_Products(t *testing.T) {
	t.Parallel()
	q, s := newTestQueryBuilder(t)
	sc, bands, ndvi := seedCatalog(t, s)

	products, err := q.Products(sc.ID)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "ndvi", products[0].Name)

	p, err := q.Product(sc.ID, "ndvi")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, ndvi.ID, p.ID)

	inputs, err := q.ProductInputs(ndvi.ID)
	require.NoError(t, err)
	require.Len(t, inputs, 2)
	assert.Equal(t, "red", inputs[0].Role)
	assert.Equal(t, "nir", inputs[1].Role)

	using, err := q.ProductsUsingBand(bands["nir"].ID)
	require.NoError(t, err)
	require.Len(t, using, 1)
	assert.Equal(t, "ndvi", using[0].Name)

	unused, err := q.ProductsUsingBand(bands["thermal1"].ID)
	require.NoError(t, err)
	assert.Empty(t, unused)

	unknown, err := q.ProductsUsingBand(9999)
	require.NoError(t, err)
	assert.Nil(t, unknown)
}

func TestQuery_ProductsUsingBandWrapsErrors(t *testing.T) {
	t.Parallel()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := store.NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	q := &QueryBuilder{store: s}
	_, bands, _ := seedCatalog(t, s)

	// A band row that no longer scans fails the lookup after the product
	// IDs were found.
	raw, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	defer raw.Close()
	_, err = raw.Exec("UPDATE bands SET width = 'wide' WHERE id = ?", bands["nir"].ID)
	require.NoError(t, err)

	_, err = q.ProductsUsingBand(bands["nir"].ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "products using band")
}
