package archive

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/dropDatabas3/comfygate/internal/util/atomicwrite"
)

// thumbnailable indica si el formato tiene encoder disponible. webp se
// descarga pero no se deriva: el decoder de x/image es solo lectura.
func thumbnailable(fileType string) bool {
	switch strings.ToLower(fileType) {
	case "png", "jpg", "jpeg", "gif":
		return true
	}
	return false
}

// writeThumbnail deriva el thumbnail de un original y lo escribe en el
// subdirectorio thumbnail/ con el mismo nombre de archivo, vía rename
// atómico para que ningún lector vea un archivo parcial.
func (a *Archiver) writeThumbnail(originalPath string) (string, error) {
	src, err := decodeImage(originalPath)
	if err != nil {
		return "", err
	}

	dst := scaleToFit(src, a.thumbMaxPx)

	var buf bytes.Buffer
	if err := encodeImage(&buf, dst, filepath.Ext(originalPath)); err != nil {
		return "", err
	}

	thumbPath := filepath.Join(filepath.Dir(originalPath), thumbnailDir, filepath.Base(originalPath))
	if err := atomicwrite.AtomicWriteFile(thumbPath, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("write thumbnail: %w", err)
	}
	return thumbPath, nil
}

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open original: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

// scaleToFit escala la imagen para que su lado mayor sea maxPx,
// preservando la relación de aspecto. Imágenes que ya caben no se
// agrandan.
func scaleToFit(src image.Image, maxPx int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxPx && h <= maxPx {
		return src
	}

	var tw, th int
	if w >= h {
		tw = maxPx
		th = h * maxPx / w
	} else {
		th = maxPx
		tw = w * maxPx / h
	}
	if tw < 1 {
		tw = 1
	}
	if th < 1 {
		th = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, tw, th))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}

func encodeImage(buf *bytes.Buffer, img image.Image, ext string) error {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "png":
		return png.Encode(buf, img)
	case "jpg", "jpeg":
		return jpeg.Encode(buf, img, &jpeg.Options{Quality: 85})
	case "gif":
		return gif.Encode(buf, img, nil)
	default:
		return fmt.Errorf("no encoder for %s", ext)
	}
}
