package imageproc

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"testing"

	"github.com/leca/photex/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Helpers to create in-memory test images
// ---------------------------------------------------------------------------

func createTestPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func createTestGIF(t *testing.T, w, h int) []byte {
	t.Helper()
	palette := color.Palette{color.White, color.RGBA{R: 255, A: 255}}
	img := image.NewPaletted(image.Rect(0, 0, w, h), palette)
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, img, nil))
	return buf.Bytes()
}

// decodeSize is a helper that decodes image bytes and returns the dimensions.
func decodeSize(t *testing.T, data []byte) (int, int) {
	t.Helper()
	img, _, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	bounds := img.Bounds()
	return bounds.Dx(), bounds.Dy()
}

// ---------------------------------------------------------------------------
// Thumbnail tests
// ---------------------------------------------------------------------------

func TestThumbnail_ScaleDown(t *testing.T) {
	data := testutil.JPEG(t, 100, 50)
	out, err := Thumbnail(data, 40, 40)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", DetectFormat(out))
	w, h := decodeSize(t, out)
	assert.Equal(t, 40, w)
	assert.Equal(t, 20, h)
}

func TestThumbnail_NoEnlarge(t *testing.T) {
	data := testutil.JPEG(t, 100, 100)
	out, err := Thumbnail(data, 200, 200)
	require.NoError(t, err)
	w, h := decodeSize(t, out)
	assert.Equal(t, 100, w)
	assert.Equal(t, 100, h)
}

func TestThumbnail_DefaultSize(t *testing.T) {
	data := testutil.JPEG(t, 600, 300)
	out, err := Thumbnail(data, 0, 0)
	require.NoError(t, err)
	w, h := decodeSize(t, out)
	assert.Equal(t, DefaultThumbnailSize, w)
	assert.Equal(t, DefaultThumbnailSize/2, h)
}

func TestThumbnail_RejectsNonJPEG(t *testing.T) {
	_, err := Thumbnail(createTestPNG(t, 10, 10), 5, 5)
	assert.ErrorIs(t, err, ErrWrongFormat)
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected string
	}{
		{"JPEG", testutil.JPEG(t, 10, 10), "jpeg"},
		{"PNG", createTestPNG(t, 10, 10), "png"},
		{"GIF", createTestGIF(t, 10, 10), "gif"},
		{"WebP", []byte("RIFF\x00\x00\x00\x00WEBP"), "webp"},
		{"Empty", []byte{}, ""},
		{"Unknown", []byte("hello world"), ""},
		{"Short", []byte{0xFF}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectFormat(tt.data))
		})
	}
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/jpeg", ContentType(testutil.JPEG(t, 4, 4)))
	assert.Equal(t, "image/png", ContentType(createTestPNG(t, 4, 4)))
	assert.Equal(t, "application/octet-stream", ContentType([]byte("nope")))
}
