package imageproc

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

// ErrWrongFormat is returned when content does not carry a supported image
// signature.
var ErrWrongFormat = errors.New("wrong image format, only jpg is supported")

// signatureLen is the number of leading bytes inspected by the validator.
const signatureLen = 4

// jpegSignatures are the accepted leading bytes: SOI followed by an APP0
// (JFIF) or APP1 (Exif) marker.
var jpegSignatures = [][]byte{
	{0xFF, 0xD8, 0xFF, 0xE0},
	{0xFF, 0xD8, 0xFF, 0xE1},
}

// Accepts reports whether data starts with one of the accepted signatures.
func Accepts(data []byte) bool {
	if len(data) < signatureLen {
		return false
	}
	for _, sig := range jpegSignatures {
		if bytes.Equal(data[:signatureLen], sig) {
			return true
		}
	}
	return false
}

// Validate returns ErrWrongFormat unless data is accepted.
func Validate(data []byte) error {
	if !Accepts(data) {
		return ErrWrongFormat
	}
	return nil
}

// ValidateReader checks the signature at the head of r without consuming it.
// The returned reader yields the complete stream, starting at its first byte.
func ValidateReader(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(signatureLen)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("peek signature: %w", err)
	}
	if !Accepts(head) {
		return br, ErrWrongFormat
	}
	return br, nil
}
