// Package archive descarga los artifacts de un job a almacenamiento local
// por usuario y mantiene thumbnails derivados en sync con los originales.
//
// Layout en disco:
//
//	<root>/<userID>/<timestamp>.<ext>            originales
//	<root>/<userID>/thumbnail/<timestamp>.<ext>  thumbnails (mismo nombre)
//
// El nombre de archivo compartido es la clave de join entre original y
// thumbnail; el resync se apoya en eso.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/comfygate/internal/observability/logger"
	"github.com/dropDatabas3/comfygate/internal/runninghub"
)

// ErrPathViolation indica un scope que escaparía del root de archivado.
// Fatal para el request: nunca se sanitiza en silencio.
var ErrPathViolation = errors.New("archive: path escapes storage root")

// thumbnailDir es el subdirectorio de thumbnails dentro del scope de
// cada usuario.
const thumbnailDir = "thumbnail"

// archivableTypes son los fileType que se descargan localmente. Otros
// tipos pasan de largo sin copia local.
var archivableTypes = map[string]bool{
	"png": true, "jpg": true, "jpeg": true, "gif": true, "webp": true,
}

// Archivable indica si un fileType se descarga localmente. Los demás
// (mp4, zip...) se sirven desde su URL original.
func Archivable(fileType string) bool {
	return archivableTypes[strings.ToLower(fileType)]
}

// Config del Archiver.
type Config struct {
	// Root directorio base de archivado.
	Root string

	// ThumbnailMaxPx lado máximo del thumbnail. Default 512.
	ThumbnailMaxPx int

	// Concurrency descargas en paralelo por batch. Default 4.
	Concurrency int

	// HTTPTimeout por descarga. Default 30s.
	HTTPTimeout time.Duration
}

// Archiver descarga artifacts y deriva thumbnails.
type Archiver struct {
	root        string
	thumbMaxPx  int
	concurrency int
	hc          *http.Client
}

// New crea un Archiver y asegura que exista el root.
func New(cfg Config) (*Archiver, error) {
	if cfg.Root == "" {
		cfg.Root = "output"
	}
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("archive: resolve root: %w", err)
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("archive: create root: %w", err)
	}

	if cfg.ThumbnailMaxPx <= 0 {
		cfg.ThumbnailMaxPx = 512
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 30 * time.Second
	}

	return &Archiver{
		root:        root,
		thumbMaxPx:  cfg.ThumbnailMaxPx,
		concurrency: cfg.Concurrency,
		hc:          &http.Client{Timeout: cfg.HTTPTimeout},
	}, nil
}

// Root retorna el directorio base absoluto.
func (a *Archiver) Root() string { return a.root }

// userDir resuelve y valida el scope de un usuario bajo el root.
func (a *Archiver) userDir(userID string) (string, error) {
	if userID == "" {
		return "", ErrPathViolation
	}
	dir := filepath.Join(a.root, userID)
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("archive: resolve user dir: %w", err)
	}
	if abs != a.root && !strings.HasPrefix(abs, a.root+string(filepath.Separator)) {
		return "", ErrPathViolation
	}
	if abs == a.root {
		return "", ErrPathViolation
	}
	return abs, nil
}

// Archive descarga los artifacts archivables de un job al scope del
// usuario y deriva thumbnails para los formatos de imagen soportados.
// Retorna la lista completa de artifacts (los no archivables pasan sin
// tocar) y los paths locales escritos. El fallo de un artifact no aborta
// el batch: el artifact queda en la salida sin LocalPath.
func (a *Archiver) Archive(ctx context.Context, userID int64, artifacts []runninghub.Artifact) ([]runninghub.Artifact, []string, error) {
	scope := strconv.FormatInt(userID, 10)
	dir, err := a.userDir(scope)
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, nil, fmt.Errorf("archive: create user dir: %w", err)
	}

	log := logger.From(ctx).With(logger.Component("archiver"), logger.UserID(userID))

	out := make([]runninghub.Artifact, len(artifacts))
	copy(out, artifacts)

	var mu sync.Mutex
	var paths []string

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for i := range out {
		if out[i].FileURL == "" || !Archivable(out[i].FileType) {
			continue
		}
		i := i
		g.Go(func() error {
			art := &out[i]
			localPath, err := a.download(gctx, dir, art)
			if err != nil {
				// No fatal: el artifact conserva su URL original.
				log.Error("artifact download failed", logger.String("url", art.FileURL), logger.Err(err))
				return nil
			}
			art.LocalPath = localPath
			art.StoredAt = time.Now().UTC().Format(time.RFC3339)

			mu.Lock()
			paths = append(paths, localPath)
			mu.Unlock()

			if thumbnailable(art.FileType) {
				thumbPath, err := a.writeThumbnail(localPath)
				if err != nil {
					// No fatal: el original ya está archivado.
					log.Warn("thumbnail derivation failed", logger.String("path", localPath), logger.Err(err))
				} else {
					art.ThumbnailPath = thumbPath
				}
			}

			log.Info("artifact archived", logger.String("path", localPath))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return out, paths, nil
}

// download trae el binario de un artifact al scope dado. El nombre es un
// timestamp con resolución de nanosegundos para evitar colisiones dentro
// del mismo segundo.
func (a *Archiver) download(ctx context.Context, dir string, art *runninghub.Artifact) (string, error) {
	now := time.Now().UTC()
	filename := fmt.Sprintf("%s_%09d.%s", now.Format("20060102_150405"), now.Nanosecond(), strings.ToLower(art.FileType))
	localPath := filepath.Join(dir, filename)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, art.FileURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	resp, err := a.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch: status %d", resp.StatusCode)
	}

	f, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return "", fmt.Errorf("create temp: %w", err)
	}
	tmpPath := f.Name()
	defer func() {
		_ = f.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return "", fmt.Errorf("write: %w", err)
	}
	if err := f.Sync(); err != nil {
		return "", fmt.Errorf("fsync: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close: %w", err)
	}
	_ = os.Chmod(tmpPath, 0644)
	if err := os.Rename(tmpPath, localPath); err != nil {
		return "", fmt.Errorf("rename: %w", err)
	}
	return localPath, nil
}
