// Package testutil builds image fixtures shared by package tests.
package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/require"
)

// jfifAPP0 is a minimal JFIF 1.01 APP0 segment with 1:1 pixel density.
var jfifAPP0 = []byte{
	0xFF, 0xE0, 0x00, 0x10,
	'J', 'F', 'I', 'F', 0x00,
	0x01, 0x01,
	0x00,
	0x00, 0x01, 0x00, 0x01,
	0x00, 0x00,
}

// JPEG returns a w x h baseline JPEG that starts with a JFIF APP0 segment,
// the layout most cameras and editors produce.
func JPEG(t testing.TB, w, h int) []byte {
	t.Helper()
	raw := encode(t, w, h)
	out := make([]byte, 0, len(raw)+len(jfifAPP0))
	out = append(out, raw[:2]...)
	out = append(out, jfifAPP0...)
	out = append(out, raw[2:]...)
	return out
}

// BareJPEG returns a JPEG exactly as image/jpeg encodes it: SOI directly
// followed by a quantisation table, without APP0 or APP1.
func BareJPEG(t testing.TB, w, h int) []byte {
	t.Helper()
	return encode(t, w, h)
}

// WithSegment inserts a raw marker segment right after SOI.
func WithSegment(data []byte, marker byte, payload []byte) []byte {
	seg := []byte{0xFF, marker, byte((len(payload) + 2) >> 8), byte(len(payload) + 2)}
	seg = append(seg, payload...)
	out := make([]byte, 0, len(data)+len(seg))
	out = append(out, data[:2]...)
	out = append(out, seg...)
	out = append(out, data[2:]...)
	return out
}

func encode(t testing.TB, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: uint8(x * 255 / max(w, 1)), G: 128, B: uint8(y * 255 / max(h, 1)), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}
