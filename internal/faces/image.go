package faces

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// imageFormat returns the registered format name of imageData.
func imageFormat(imageData []byte) (string, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(imageData))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUndecodable, err)
	}
	return format, nil
}

// toJPEG re-encodes non-JPEG images as JPEG. dlib only reads JPEG input.
func toJPEG(imageData []byte) ([]byte, error) {
	format, err := imageFormat(imageData)
	if err != nil {
		return nil, err
	}
	if format == "jpeg" {
		return imageData, nil
	}

	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUndecodable, err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		return nil, fmt.Errorf("failed to encode %s as jpeg: %w", format, err)
	}
	return buf.Bytes(), nil
}

// mimeType maps a registered image format to its MIME type.
func mimeType(format string) string {
	switch format {
	case "jpeg", "png", "gif", "bmp", "tiff", "webp":
		return "image/" + format
	default:
		return "application/octet-stream"
	}
}
