package vision

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // register GIF
	_ "image/jpeg" // register JPEG
	_ "image/png"  // register PNG
	"io"

	_ "golang.org/x/image/bmp"  // register BMP
	_ "golang.org/x/image/webp" // register WebP

	"github.com/kailas-cloud/slidegen/internal/domain"
)

// MaxPixels bounds the area of a decoded slide. Larger images are rejected before
// their pixel buffer is allocated.
const MaxPixels = 8192 * 8192

// Decode reads a rendered slide. Undecodable data, zero-area images and images
// above MaxPixels return domain.ErrCorruptImage.
func Decode(r io.Reader) (image.Image, string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", domain.ErrCorruptImage, err)
	}
	return DecodeBytes(b)
}

// DecodeBytes is Decode over an in-memory buffer.
func DecodeBytes(b []byte) (image.Image, string, error) {
	return decodeLimited(b, MaxPixels)
}

func decodeLimited(b []byte, maxPixels int64) (image.Image, string, error) {
	if len(b) == 0 {
		return nil, "", fmt.Errorf("%w: no data", domain.ErrCorruptImage)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(b))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", domain.ErrCorruptImage, err)
	}
	if area := int64(cfg.Width) * int64(cfg.Height); area > maxPixels {
		return nil, "", fmt.Errorf("%w: %dx%d exceeds %d pixels",
			domain.ErrCorruptImage, cfg.Width, cfg.Height, maxPixels)
	}

	img, format, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", domain.ErrCorruptImage, err)
	}
	if img.Bounds().Empty() {
		return nil, "", fmt.Errorf("%w: empty bounds", domain.ErrCorruptImage)
	}
	return img, format, nil
}
