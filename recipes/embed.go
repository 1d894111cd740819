// Package recipes embeds the built-in product recipes.
package recipes

import "embed"

// FS holds products/*.risor, one recipe per product.
//
//go:embed products/*.risor
var FS embed.FS
