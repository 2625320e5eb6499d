package scraper

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImageIsBigEnough reads the dimensions from the image header and reports
// whether both reach the minimum. Data that is not a supported image
// returns an error and is never big enough.
func ImageIsBigEnough(data []byte, minWidth, minHeight int) (width, height int, ok bool, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, false, err
	}
	return cfg.Width, cfg.Height, cfg.Width >= minWidth && cfg.Height >= minHeight, nil
}
