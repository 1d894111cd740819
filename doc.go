// Package spectra derives visual products from multispectral satellite
// scenes: true-color and false-color composites, NDVI, a thermal band
// average, and a SWIR placeholder for atmospheric analysis.
//
// # Pipeline
//
// Spectra operates in two phases:
//
//  1. Index: For a scene directory, find the band files named by the band
//     layout, hash them, read changed ones through GDAL, and record each
//     band's grid, georeferencing, and statistics in SQLite.
//
//  2. Render: For each product, run its Risor recipe against the scene's
//     bands, then write a PNG figure and, for scalar products, a Float32
//     GeoTIFF on the scene's grid.
//
// # Usage
//
//	e, err := spectra.New("index.db", "", spectra.WithRecipesFS(recipes.FS))
//	if err != nil { ... }
//	defer e.Close()
//
//	ctx := context.Background()
//	scene, products, err := e.Process(ctx, "path/to/scene")
//
// # Incremental Rendering
//
// Every product records the bands its recipe read and a hash over the recipe
// source and those bands' content. Render skips products whose hash still
// matches, so re-running after a single band changes only redraws the
// products that consume it. Use [WithForce] to redraw everything.
//
// # Recipes
//
// Each product is a Risor script at products/<name>.risor. Recipes read
// bands with band("red"), combine them with normalize, ndvi,
// normalized_difference, average, and composite, and declare the result
// with a single emit call:
//
//	red := band("red")
//	nir := band("nir")
//	emit(ndvi(red, nir), {"title": "NDVI", "colormap": "RdYlGn"})
package spectra
