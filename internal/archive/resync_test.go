package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResyncThumbnailsGeneratesAndDeletes(t *testing.T) {
	a := newArchiver(t)
	ctx := context.Background()

	scope := filepath.Join(a.Root(), "7")
	thumbs := filepath.Join(scope, "thumbnail")
	require.NoError(t, os.MkdirAll(thumbs, 0755))

	// Original sin thumbnail.
	require.NoError(t, os.WriteFile(filepath.Join(scope, "a.png"), pngBytes(t, 100, 100), 0644))
	// Thumbnail huérfano sin original.
	require.NoError(t, os.WriteFile(filepath.Join(thumbs, "gone.png"), pngBytes(t, 10, 10), 0644))
	// Archivo no imagen: se ignora.
	require.NoError(t, os.WriteFile(filepath.Join(scope, "notes.txt"), []byte("x"), 0644))

	rep, err := a.ResyncThumbnails(ctx, "7")
	require.NoError(t, err)
	require.Equal(t, 1, rep.Generated)
	require.Equal(t, 1, rep.Deleted)
	require.Equal(t, 0, rep.Failed)

	_, err = os.Stat(filepath.Join(thumbs, "a.png"))
	require.NoError(t, err, "thumbnail faltante debió generarse")
	_, err = os.Stat(filepath.Join(thumbs, "gone.png"))
	require.True(t, os.IsNotExist(err), "huérfano debió borrarse")

	// Segunda pasada: nada que hacer.
	rep2, err := a.ResyncThumbnails(ctx, "7")
	require.NoError(t, err)
	require.Equal(t, 0, rep2.Generated)
	require.Equal(t, 0, rep2.Deleted)
}

func TestResyncAllWalksScopes(t *testing.T) {
	a := newArchiver(t)
	ctx := context.Background()

	for _, scope := range []string{"1", "2"} {
		dir := filepath.Join(a.Root(), scope)
		require.NoError(t, os.MkdirAll(dir, 0755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "img.png"), pngBytes(t, 20, 20), 0644))
	}
	// Archivo suelto en el root: no es scope.
	require.NoError(t, os.WriteFile(filepath.Join(a.Root(), "stray.png"), pngBytes(t, 5, 5), 0644))

	rep, err := a.ResyncAll(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, rep.Scopes)
	require.Equal(t, 2, rep.Generated)
}

func TestResyncMissingScopeIsEmptyReport(t *testing.T) {
	a := newArchiver(t)
	rep, err := a.ResyncThumbnails(context.Background(), "999")
	require.NoError(t, err)
	require.Equal(t, 0, rep.Generated)
	require.Equal(t, 0, rep.Deleted)
}
