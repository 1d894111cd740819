package store

import (
	"crypto/sha256"
	"fmt"
	"sort"
)

// ComputeInputsHash computes a deterministic hash over a product's recipe
// source and the content hashes of the bands it consumed. Band order does
// not affect the result.
func ComputeInputsHash(recipeSource string, bands []*Band) string {
	h := sha256.New()
	fmt.Fprintf(h, "recipe:%x\n", sha256.Sum256([]byte(recipeSource)))

	type bandKey struct{ role, hash string }
	keys := make([]bandKey, len(bands))
	for i, b := range bands {
		keys[i] = bandKey{b.Role, b.Hash}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].role < keys[j].role })
	for _, k := range keys {
		fmt.Fprintf(h, "band:%s:%s\n", k.role, k.hash)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
