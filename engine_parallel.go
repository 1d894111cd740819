package spectra

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jward/spectra/internal/bandmath"
	"github.com/jward/spectra/internal/raster"
	"github.com/jward/spectra/internal/store"
)

// bandItem holds everything an index worker needs for one band file.
type bandItem struct {
	file bandFile
	hash string

	// Filled by the worker.
	band    *store.Band
	profile *raster.Profile
	err     error

	// Previous catalog row for this role, nil on first index.
	old *store.Band
}

// IndexScene catalogs the band files in dir using a three-phase pipeline:
//
//	Phase A (serial):   Discover band files, hash them, skip unchanged ones.
//	Phase B (parallel): Read each changed band via GDAL and summarize it.
//	Phase C (serial):   Commit bands to SQLite, drop bands whose files are
//	                    gone or unreadable, mark dependent products stale.
//
// The scene's grid and georeferencing come from its lowest-numbered band.
func (e *Engine) IndexScene(ctx context.Context, dir string) (*Scene, error) {
	if e.staleProducts == nil {
		e.staleProducts = make(map[int64]bool)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("spectra: resolve %s: %w", dir, err)
	}

	// ---- Phase A: Serial discovery ----
	files, err := e.listBandFiles(abs)
	if err != nil {
		return nil, fmt.Errorf("spectra: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("spectra: no band files in %s", abs)
	}

	scene, err := e.store.SceneByPath(abs)
	if err != nil {
		return nil, fmt.Errorf("spectra: lookup scene: %w", err)
	}
	if scene == nil {
		scene = &store.Scene{Path: abs, Name: filepath.Base(abs), IndexedAt: time.Now()}
		if _, err := e.store.UpsertScene(scene); err != nil {
			return nil, fmt.Errorf("spectra: create scene: %w", err)
		}
	}

	removed, err := e.removedBands(scene, files)
	if err != nil {
		return nil, fmt.Errorf("spectra: %w", err)
	}

	var items []*bandItem
	for _, f := range files {
		item, skip, err := e.prepareBand(scene, f)
		if err != nil {
			return nil, fmt.Errorf("spectra: prepare %s: %w", f.path, err)
		}
		if skip {
			continue
		}
		items = append(items, item)
	}

	if len(items) == 0 && len(removed) == 0 {
		e.logger.Debug("scene unchanged", zap.String("scene", abs))
		return scene, nil
	}

	// ---- Phase B: Parallel reads ----
	var g errgroup.Group
	g.SetLimit(e.numWorkers(len(items)))
	for _, item := range items {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				item.err = err
				return nil
			}
			item.band, item.profile, item.err = readBand(scene.ID, item.file, item.hash)
			return nil
		})
	}
	_ = g.Wait()

	// ---- Phase C: Serial commit ----
	var errs []error
	var changed []int64
	profileSet := false
	for _, item := range items {
		if item.err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", item.file.path, item.err))
			// The old row describes content that is no longer there.
			if item.old != nil {
				removed = append(removed, item.old)
			}
			continue
		}
		if err := e.releasePath(item.band); err != nil {
			errs = append(errs, fmt.Errorf("commit %s: %w", item.file.path, err))
			continue
		}
		if _, err := e.store.UpsertBand(item.band); err != nil {
			errs = append(errs, fmt.Errorf("commit %s: %w", item.file.path, err))
			continue
		}
		if item.old != nil {
			changed = append(changed, item.old.ID)
		}
		e.logger.Info("indexed band",
			zap.String("role", item.band.Role),
			zap.Int("band", item.band.BandNumber),
			zap.String("path", item.band.Path),
		)

		// Items are ordered by band number, so the first read sets the grid.
		if !profileSet && (item.file.number == files[0].number || scene.Width == 0) {
			scene.Width = item.profile.Width
			scene.Height = item.profile.Height
			scene.Projection = item.profile.Projection
			scene.GeoTransform = item.profile.GeoTransform
			profileSet = true
		}
	}

	if err := e.dropBands(removed); err != nil {
		errs = append(errs, err)
	}

	scene.IndexedAt = time.Now()
	if _, err := e.store.UpsertScene(scene); err != nil {
		errs = append(errs, fmt.Errorf("commit scene: %w", err))
	}

	if len(changed) > 0 {
		ids, err := e.store.ProductsUsingBands(changed)
		if err != nil {
			errs = append(errs, fmt.Errorf("stale products: %w", err))
		}
		for _, id := range ids {
			e.staleProducts[id] = true
		}
	}

	if len(errs) > 0 {
		return scene, fmt.Errorf("spectra: indexing had %d error(s): %w", len(errs), errors.Join(errs...))
	}
	return scene, nil
}

// prepareBand hashes a band file and reports whether it can be skipped.
// A band is skipped when the catalog already holds the same file content
// at the same path for its role.
func (e *Engine) prepareBand(scene *store.Scene, f bandFile) (*bandItem, bool, error) {
	hash, err := hashFile(f.path)
	if err != nil {
		return nil, false, err
	}
	old, err := e.store.BandByRole(scene.ID, f.role)
	if err != nil {
		return nil, false, err
	}
	if old != nil && old.Hash == hash && old.Path == f.path {
		e.logger.Debug("band unchanged", zap.String("role", f.role))
		return nil, true, nil
	}
	return &bandItem{file: f, hash: hash, old: old}, false, nil
}

// removedBands returns the scene's catalog rows whose role no longer has a
// file in the scene directory.
func (e *Engine) removedBands(scene *store.Scene, files []bandFile) ([]*store.Band, error) {
	existing, err := e.store.BandsByScene(scene.ID)
	if err != nil {
		return nil, err
	}
	found := make(map[string]bool, len(files))
	for _, f := range files {
		found[f.role] = true
	}
	var removed []*store.Band
	for _, b := range existing {
		if !found[b.Role] {
			removed = append(removed, b)
		}
	}
	return removed, nil
}

// dropBands marks the products that read bands stale, then deletes the
// bands and their product inputs.
func (e *Engine) dropBands(bands []*store.Band) error {
	if len(bands) == 0 {
		return nil
	}
	ids := make([]int64, len(bands))
	for i, b := range bands {
		ids[i] = b.ID
	}
	stale, err := e.store.ProductsUsingBands(ids)
	if err != nil {
		return fmt.Errorf("stale products: %w", err)
	}
	for _, id := range stale {
		e.staleProducts[id] = true
	}
	if err := e.store.DeleteBands(ids); err != nil {
		return err
	}
	for _, b := range bands {
		e.logger.Info("band removed",
			zap.String("role", b.Role),
			zap.String("path", b.Path),
		)
	}
	return nil
}

// releasePath drops the catalog row that holds b's file under another role,
// which happens when the layout reassigns band numbers between runs.
func (e *Engine) releasePath(b *store.Band) error {
	holder, err := e.store.BandByPath(b.Path)
	if err != nil {
		return err
	}
	if holder == nil || (holder.SceneID == b.SceneID && holder.Role == b.Role) {
		return nil
	}
	return e.dropBands([]*store.Band{holder})
}

// readBand loads one band file and builds its catalog row.
func readBand(sceneID int64, f bandFile, hash string) (*store.Band, *raster.Profile, error) {
	g, p, err := raster.ReadBand(f.path)
	if err != nil {
		return nil, nil, err
	}
	st := bandmath.Summarize(g)
	return &store.Band{
		SceneID:    sceneID,
		Role:       f.role,
		BandNumber: f.number,
		Path:       f.path,
		Hash:       hash,
		Width:      p.Width,
		Height:     p.Height,
		DataType:   p.DataType,
		NoData:     p.NoData,
		Min:        st.Min,
		Max:        st.Max,
		Mean:       st.Mean,
		StdDev:     st.StdDev,
		IndexedAt:  time.Now(),
	}, p, nil
}
