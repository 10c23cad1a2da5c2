package imageproc

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/disintegration/imaging"
)

// DefaultThumbnailSize bounds a thumbnail when the caller does not ask for a
// size.
const DefaultThumbnailSize = 256

// maxThumbnailSize caps requested thumbnail dimensions.
const maxThumbnailSize = 2048

// DetectFormat inspects the raw bytes and returns the image format:
// "jpeg", "png", "gif", "webp", or "" if unknown.
func DetectFormat(data []byte) string {
	// JPEG: starts with FF D8 FF
	if len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return "jpeg"
	}
	// PNG: starts with 89 50 4E 47 0D 0A 1A 0A
	if len(data) >= 8 && bytes.Equal(data[:8], []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}) {
		return "png"
	}
	// GIF: starts with GIF87a or GIF89a
	if len(data) >= 6 && bytes.HasPrefix(data, []byte("GIF")) {
		return "gif"
	}
	// WebP: starts with RIFF....WEBP
	if len(data) >= 12 && bytes.HasPrefix(data, []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")) {
		return "webp"
	}
	return ""
}

// ContentType maps the detected format of data to a MIME type.
func ContentType(data []byte) string {
	switch DetectFormat(data) {
	case "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

// Thumbnail decodes a stored JPEG and returns a JPEG preview that fits within
// width x height, preserving aspect ratio. It never enlarges the source.
// Zero dimensions fall back to DefaultThumbnailSize.
func Thumbnail(data []byte, width, height int) ([]byte, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}
	width = clampSize(width)
	height = clampSize(height)

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	img = fitScaleDown(img, width, height)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("encoding thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

func clampSize(v int) int {
	if v <= 0 {
		return DefaultThumbnailSize
	}
	if v > maxThumbnailSize {
		return maxThumbnailSize
	}
	return v
}

// fitScaleDown resizes to fit within width x height, preserving aspect ratio.
// Only shrinks, never enlarges.
func fitScaleDown(img image.Image, targetW, targetH int) image.Image {
	b := img.Bounds()
	if b.Dx() <= targetW && b.Dy() <= targetH {
		return img
	}
	return imaging.Fit(img, targetW, targetH, imaging.Lanczos)
}
