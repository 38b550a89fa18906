package res

import (
	"fmt"
	"image"
	"strings"

	"github.com/srwiley/oksvg"

	// Register a broad set of image decoders so DecodeConfig can handle many formats.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImageSize returns the intrinsic size of the image at src in CSS pixels.
// Raster images report their pixel dimensions, SVG images their view box.
func (l *Loader) ImageSize(src string) (float64, float64, error) {
	l.sizesLock.Lock()
	sz, ok := l.sizes[src]
	l.sizesLock.Unlock()
	if ok {
		return sz[0], sz[1], nil
	}

	res, err := l.LoadImage(src)
	if err != nil {
		return 0, 0, err
	}

	var w, h float64
	if isSVG(res) {
		icon, err := oksvg.ReadIconStream(res.GetReader(), oksvg.IgnoreErrorMode)
		if err != nil {
			return 0, 0, fmt.Errorf("failed to read SVG %s: %w", src, err)
		}
		w, h = icon.ViewBox.W, icon.ViewBox.H
	} else {
		cfg, _, err := image.DecodeConfig(res.GetReader())
		if err != nil {
			return 0, 0, fmt.Errorf("failed to decode image %s: %w", src, err)
		}
		w, h = float64(cfg.Width), float64(cfg.Height)
	}

	l.sizesLock.Lock()
	l.sizes[src] = [2]float64{w, h}
	l.sizesLock.Unlock()
	return w, h, nil
}

func isSVG(res *Resource) bool {
	return res.MimeType == "image/svg+xml" || strings.HasSuffix(strings.ToLower(res.URL), ".svg")
}
