package archive

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/comfygate/internal/runninghub"
)

// pngBytes genera un PNG real de w x h.
func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newArchiver(t *testing.T) *Archiver {
	t.Helper()
	a, err := New(Config{Root: t.TempDir(), ThumbnailMaxPx: 64, Concurrency: 2})
	require.NoError(t, err)
	return a
}

func TestArchiveStoresOriginalAndThumbnail(t *testing.T) {
	big := pngBytes(t, 200, 100)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(big)
	}))
	defer srv.Close()

	a := newArchiver(t)
	arts := []runninghub.Artifact{{FileURL: srv.URL + "/out.png", FileType: "png"}}

	out, paths, err := a.Archive(context.Background(), 42, arts)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Len(t, paths, 1)
	require.NotEmpty(t, out[0].LocalPath)
	require.NotEmpty(t, out[0].StoredAt)
	require.Equal(t, out[0].LocalPath, paths[0])

	// El original vive bajo <root>/<userID>/.
	require.Equal(t, filepath.Join(a.Root(), "42"), filepath.Dir(out[0].LocalPath))

	// El thumbnail comparte nombre de archivo bajo thumbnail/.
	require.NotEmpty(t, out[0].ThumbnailPath)
	require.Equal(t, filepath.Base(out[0].LocalPath), filepath.Base(out[0].ThumbnailPath))
	require.Equal(t, filepath.Join(a.Root(), "42", "thumbnail"), filepath.Dir(out[0].ThumbnailPath))

	// Escalado: el lado mayor queda en el máximo, sin deformar.
	f, err := os.Open(out[0].ThumbnailPath)
	require.NoError(t, err)
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	require.NoError(t, err)
	require.Equal(t, 64, cfg.Width)
	require.Equal(t, 32, cfg.Height)
}

func TestArchiveDownloadFailureIsNotFatal(t *testing.T) {
	good := pngBytes(t, 10, 10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad.png" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(good)
	}))
	defer srv.Close()

	a := newArchiver(t)
	arts := []runninghub.Artifact{
		{FileURL: srv.URL + "/bad.png", FileType: "png"},
		{FileURL: srv.URL + "/good.png", FileType: "png"},
	}

	out, paths, err := a.Archive(context.Background(), 1, arts)
	require.NoError(t, err, "una descarga fallida no aborta el batch")
	require.Len(t, out, 2)
	require.Len(t, paths, 1)
	require.Empty(t, out[0].LocalPath)
	require.NotEmpty(t, out[1].LocalPath)
}

func TestArchiveSkipsNonArchivableTypes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no debió descargar nada")
	}))
	defer srv.Close()

	a := newArchiver(t)
	arts := []runninghub.Artifact{
		{FileURL: srv.URL + "/out.mp4", FileType: "mp4"},
		{FileURL: "", FileType: "png"},
	}

	out, paths, err := a.Archive(context.Background(), 1, arts)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Empty(t, paths)
	require.Empty(t, out[0].LocalPath)
	require.Empty(t, out[1].LocalPath)
}

func TestArchiveWebpStoredWithoutThumbnail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not-really-webp")) // la descarga no decodifica
	}))
	defer srv.Close()

	a := newArchiver(t)
	out, paths, err := a.Archive(context.Background(), 1, []runninghub.Artifact{
		{FileURL: srv.URL + "/x.webp", FileType: "webp"},
	})
	require.NoError(t, err)
	require.Len(t, paths, 1)
	require.NotEmpty(t, out[0].LocalPath)
	require.Empty(t, out[0].ThumbnailPath)
}

func TestResyncScopeTraversalRejected(t *testing.T) {
	a := newArchiver(t)
	_, err := a.ResyncThumbnails(context.Background(), "../outside")
	require.ErrorIs(t, err, ErrPathViolation)
}

func TestArchivable(t *testing.T) {
	for typ, want := range map[string]bool{
		"png": true, "jpeg": true, "webp": true, "PNG": true,
		"mp4": false, "zip": false, "": false,
	} {
		if got := Archivable(typ); got != want {
			t.Errorf("Archivable(%q) = %v, want %v", typ, got, want)
		}
	}
}
