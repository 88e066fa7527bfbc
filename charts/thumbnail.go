package charts

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
)

// MaxThumbWidth is the widest thumbnail written for a blog card.
const MaxThumbWidth = 800

// ThumbName derives the thumbnail file name for a chart file.
func ThumbName(name string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + "_thumb" + ext
}

// Thumbnail scales img down to at most maxWidth pixels wide, keeping the
// aspect ratio. Narrower images are returned unchanged.
func Thumbnail(img image.Image, maxWidth int) image.Image {
	if maxWidth <= 0 {
		maxWidth = MaxThumbWidth
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxWidth {
		return img
	}
	newH := h * maxWidth / w
	if newH < 1 {
		newH = 1
	}
	dst := image.NewNRGBA(image.Rect(0, 0, maxWidth, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

// WriteThumbnail encodes the scaled image as PNG at path.
func WriteThumbnail(path string, img image.Image, maxWidth int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("charts: create thumbnail: %w", err)
	}
	if err := png.Encode(f, Thumbnail(img, maxWidth)); err != nil {
		f.Close()
		return fmt.Errorf("charts: encode thumbnail: %w", err)
	}
	return f.Close()
}
