package metadata

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrCorruptJPEG is returned when the marker structure before the scan
	// data cannot be walked.
	ErrCorruptJPEG = errors.New("corrupt jpeg stream")
	// ErrMetadataTooLarge is returned when a rewritten Exif block no longer
	// fits in a single APP1 segment.
	ErrMetadataTooLarge = errors.New("metadata exceeds the 64 KiB segment limit")
)

const (
	markerSOI  = 0xd8
	markerEOI  = 0xd9
	markerSOS  = 0xda
	markerAPP0 = 0xe0
	markerAPP1 = 0xe1
	markerCOM  = 0xfe

	maxSegmentPayload = 0xffff - 2
)

var (
	exifHeader = []byte("Exif\x00\x00")
	jfifHeader = []byte("JFIF\x00")
)

// segment locates one marker segment. data[start:end] is the whole segment
// including the marker; data[body:end] is its payload.
type segment struct {
	marker byte
	start  int
	body   int
	end    int
}

func (s segment) payload(data []byte) []byte {
	return data[s.body:s.end]
}

// scanSegments walks the header segments up to the first SOS. Everything from
// SOS onwards is entropy coded data and is never inspected.
func scanSegments(data []byte) ([]segment, error) {
	if len(data) < 2 || data[0] != 0xff || data[1] != markerSOI {
		return nil, fmt.Errorf("%w: missing SOI", ErrCorruptJPEG)
	}
	var segs []segment
	pos := 2
	for pos < len(data) {
		if data[pos] != 0xff {
			return nil, fmt.Errorf("%w: expected marker at offset %d", ErrCorruptJPEG, pos)
		}
		start := pos
		for pos < len(data) && data[pos] == 0xff {
			pos++
		}
		if pos >= len(data) {
			return nil, fmt.Errorf("%w: truncated marker", ErrCorruptJPEG)
		}
		marker := data[pos]
		pos++

		switch {
		case marker == markerSOS || marker == markerEOI:
			return segs, nil
		case marker == 0x01 || (marker >= 0xd0 && marker <= 0xd7):
			continue
		}

		if pos+2 > len(data) {
			return nil, fmt.Errorf("%w: truncated segment length", ErrCorruptJPEG)
		}
		length := int(binary.BigEndian.Uint16(data[pos:]))
		if length < 2 || pos+length > len(data) {
			return nil, fmt.Errorf("%w: bad segment length at offset %d", ErrCorruptJPEG, start)
		}
		segs = append(segs, segment{marker: marker, start: start, body: pos + 2, end: pos + length})
		pos += length
	}
	return segs, nil
}

// findExif returns the first APP1 segment holding an Exif block.
func findExif(data []byte, segs []segment) (segment, bool) {
	for _, s := range segs {
		if s.marker == markerAPP1 && bytes.HasPrefix(s.payload(data), exifHeader) {
			return s, true
		}
	}
	return segment{}, false
}

// insertionPoint is where a new APP1 goes: after a leading JFIF APP0 when
// present, otherwise directly after SOI.
func insertionPoint(data []byte, segs []segment) int {
	if len(segs) > 0 && segs[0].marker == markerAPP0 && bytes.HasPrefix(segs[0].payload(data), jfifHeader) {
		return segs[0].end
	}
	return 2
}

func buildSegment(marker byte, payload []byte) ([]byte, error) {
	if len(payload) > maxSegmentPayload {
		return nil, fmt.Errorf("%w: %d bytes", ErrMetadataTooLarge, len(payload))
	}
	seg := make([]byte, 4, 4+len(payload))
	seg[0] = 0xff
	seg[1] = marker
	binary.BigEndian.PutUint16(seg[2:], uint16(len(payload)+2))
	return append(seg, payload...), nil
}

// splice returns data with data[from:to] replaced by seg.
func splice(data []byte, from, to int, seg []byte) []byte {
	out := make([]byte, 0, len(data)-(to-from)+len(seg))
	out = append(out, data[:from]...)
	out = append(out, seg...)
	return append(out, data[to:]...)
}
