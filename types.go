package spectra

import "github.com/jward/spectra/internal/store"

// Public type aliases for internal store types used in the Engine and
// QueryBuilder APIs. External consumers use these names; no conversion is
// needed.

type Store = store.Store
type Scene = store.Scene
type Band = store.Band
type Product = store.Product

// Product kinds.
const (
	KindScalar = store.KindScalar
	KindRGB    = store.KindRGB
)
