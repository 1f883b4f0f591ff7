package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dropDatabas3/comfygate/internal/observability/logger"
)

// ResyncReport resume una pasada de reconciliación de thumbnails.
type ResyncReport struct {
	Scopes    int `json:"scopes"`
	Generated int `json:"generated"`
	Deleted   int `json:"deleted"`
	Failed    int `json:"failed"`
}

// ResyncAll reconcilia los thumbnails de todos los scopes bajo el root.
func (a *Archiver) ResyncAll(ctx context.Context) (*ResyncReport, error) {
	entries, err := os.ReadDir(a.root)
	if err != nil {
		return nil, fmt.Errorf("archive: read root: %w", err)
	}

	total := &ResyncReport{}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		rep, err := a.ResyncThumbnails(ctx, e.Name())
		if err != nil {
			return nil, err
		}
		total.Scopes++
		total.Generated += rep.Generated
		total.Deleted += rep.Deleted
		total.Failed += rep.Failed
	}
	return total, nil
}

// ResyncThumbnails reconcilia el subdirectorio thumbnail/ de un scope:
// genera el thumbnail faltante de cada original y borra cada thumbnail
// huérfano. Idempotente y seguro de correr en paralelo con archivado en
// curso: generar un thumbnail es conmutativo y la escritura es un rename
// atómico.
func (a *Archiver) ResyncThumbnails(ctx context.Context, scope string) (*ResyncReport, error) {
	dir, err := a.userDir(scope)
	if err != nil {
		return nil, err
	}

	log := logger.From(ctx).With(logger.Component("archiver"), logger.String("scope", scope))
	rep := &ResyncReport{Scopes: 1}

	originals := map[string]string{} // filename → path
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return rep, nil
		}
		return nil, fmt.Errorf("archive: read scope %s: %w", scope, err)
	}
	for _, e := range entries {
		if e.IsDir() || !thumbnailable(extOf(e.Name())) {
			continue
		}
		originals[e.Name()] = filepath.Join(dir, e.Name())
	}

	thumbDir := filepath.Join(dir, thumbnailDir)
	existing := map[string]bool{}
	if thumbs, err := os.ReadDir(thumbDir); err == nil {
		for _, t := range thumbs {
			if t.IsDir() {
				continue
			}
			if _, ok := originals[t.Name()]; ok {
				existing[t.Name()] = true
				continue
			}
			// Huérfano: el original ya no existe.
			if err := os.Remove(filepath.Join(thumbDir, t.Name())); err != nil {
				log.Warn("orphan thumbnail removal failed", logger.String("file", t.Name()), logger.Err(err))
				rep.Failed++
			} else {
				rep.Deleted++
			}
		}
	}

	for name, path := range originals {
		if existing[name] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := a.writeThumbnail(path); err != nil {
			log.Warn("thumbnail regeneration failed", logger.String("file", name), logger.Err(err))
			rep.Failed++
			continue
		}
		rep.Generated++
	}

	if rep.Generated > 0 || rep.Deleted > 0 || rep.Failed > 0 {
		log.Info("thumbnail resync done",
			logger.Int("generated", rep.Generated),
			logger.Int("deleted", rep.Deleted),
			logger.Int("failed", rep.Failed),
		)
	}
	return rep, nil
}

func extOf(name string) string {
	ext := filepath.Ext(name)
	if ext == "" {
		return ""
	}
	return ext[1:]
}
