package metadata

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
)

// ErrCorruptMetadata is returned when an embedded Exif block cannot be parsed.
var ErrCorruptMetadata = errors.New("corrupt exif metadata")

// ifdKind identifies one image file directory of an Exif block.
type ifdKind int

const (
	ifd0 ifdKind = iota
	exifIFD
	interopIFD
	gpsIFD
	ifd1
	numIFDs
)

func (k ifdKind) directoryName() string {
	switch k {
	case ifd0:
		return "Exif IFD0"
	case exifIFD:
		return "Exif SubIFD"
	case interopIFD:
		return "Interoperability"
	case gpsIFD:
		return "GPS"
	case ifd1:
		return "Exif Thumbnail"
	default:
		return "Unknown"
	}
}

// Structural tags. They are recomputed on encode and never surface in reads.
const (
	tagExifPointer    = 0x8769
	tagGPSPointer     = 0x8825
	tagInteropPointer = 0xa005
	tagThumbOffset    = 0x0201
	tagThumbLength    = 0x0202
	tagStripOffsets   = 0x0111
	tagGPSVersionID   = 0x0000
)

// tagMakerNote holds vendor data that may address bytes by their offset from
// the TIFF header, so its value never moves on rewrite.
const tagMakerNote = 0x927c

// TIFF field types.
const (
	typeByte      = 1
	typeASCII     = 2
	typeShort     = 3
	typeLong      = 4
	typeRational  = 5
	typeSByte     = 6
	typeUndefined = 7
	typeSShort    = 8
	typeSLong     = 9
	typeSRational = 10
	typeFloat     = 11
	typeDouble    = 12
	typeIFD       = 13
	typeUTF8      = 129
)

func typeSize(typ uint16) int {
	switch typ {
	case typeByte, typeASCII, typeSByte, typeUndefined, typeUTF8:
		return 1
	case typeShort, typeSShort:
		return 2
	case typeLong, typeSLong, typeFloat, typeIFD:
		return 4
	case typeRational, typeSRational, typeDouble:
		return 8
	default:
		return 0
	}
}

// entry is a single IFD field. raw holds the value bytes in the byte order of
// the block it was read from, so untouched entries survive a rewrite as-is.
// For a type of unknown size raw is the verbatim 4-byte value field.
type entry struct {
	tag   uint16
	typ   uint16
	count uint32
	raw   []byte
}

// tree is a decoded Exif block.
type tree struct {
	order     binary.ByteOrder
	ifds      [numIFDs][]entry
	present   [numIFDs]bool
	thumbnail []byte

	// makerNoteOff is where the MakerNote value sat in the decoded block.
	makerNoteOff uint32
	// dropped counts entries and directories that could not be decoded.
	dropped int
}

func newTree() *tree {
	t := &tree{order: binary.BigEndian}
	t.present[ifd0] = true
	return t
}

// decodeTree parses a TIFF structure (the Exif APP1 payload after its
// "Exif\0\0" header). Broken sub-directories and entries are skipped and
// counted in dropped; a broken header or IFD0 is an error.
func decodeTree(buf []byte) (*tree, error) {
	if len(buf) < 8 {
		return nil, fmt.Errorf("%w: short tiff header", ErrCorruptMetadata)
	}
	t := &tree{}
	switch string(buf[:2]) {
	case "II":
		t.order = binary.LittleEndian
	case "MM":
		t.order = binary.BigEndian
	default:
		return nil, fmt.Errorf("%w: bad byte order mark", ErrCorruptMetadata)
	}
	if t.order.Uint16(buf[2:]) != 42 {
		return nil, fmt.Errorf("%w: bad tiff magic", ErrCorruptMetadata)
	}

	d := decoder{buf: buf, order: t.order, visited: map[uint32]bool{}}

	entries, next, err := d.readIFD(t.order.Uint32(buf[4:]))
	if err != nil {
		return nil, err
	}
	var exifOff, gpsOff uint32
	t.ifds[ifd0], exifOff, gpsOff = splitPointers(entries, t.order, tagExifPointer, tagGPSPointer)
	t.present[ifd0] = true

	if exifOff != 0 {
		if entries, _, err := d.readIFD(exifOff); err == nil {
			var interopOff uint32
			t.ifds[exifIFD], interopOff, _ = splitPointers(entries, t.order, tagInteropPointer, 0)
			t.present[exifIFD] = true
			t.makerNoteOff = d.valueOffset(exifOff, tagMakerNote)
			if interopOff != 0 {
				if entries, _, err := d.readIFD(interopOff); err == nil {
					t.ifds[interopIFD] = entries
					t.present[interopIFD] = true
				} else {
					d.dropped++
				}
			}
		} else {
			d.dropped++
		}
	}
	if gpsOff != 0 {
		if entries, _, err := d.readIFD(gpsOff); err == nil {
			t.ifds[gpsIFD] = entries
			t.present[gpsIFD] = true
		} else {
			d.dropped++
		}
	}
	if next != 0 {
		if entries, _, err := d.readIFD(next); err == nil {
			t.decodeThumbnail(entries, buf)
		}
	}
	t.dropped = d.dropped
	return t, nil
}

// decodeThumbnail keeps IFD1 when it describes a JPEG thumbnail. Strip based
// thumbnails carry absolute offsets that cannot be relocated and are dropped.
func (t *tree) decodeThumbnail(entries []entry, buf []byte) {
	var off, length uint32
	kept := entries[:0:0]
	for _, e := range entries {
		switch e.tag {
		case tagStripOffsets:
			return
		case tagThumbOffset:
			off = scalar(e, t.order)
		case tagThumbLength:
			length = scalar(e, t.order)
		default:
			kept = append(kept, e)
		}
	}
	t.ifds[ifd1] = kept
	t.present[ifd1] = true
	if length > 0 && uint64(off)+uint64(length) <= uint64(len(buf)) {
		t.thumbnail = append([]byte(nil), buf[off:off+length]...)
	}
}

type decoder struct {
	buf     []byte
	order   binary.ByteOrder
	visited map[uint32]bool
	dropped int
}

func (d *decoder) readIFD(off uint32) ([]entry, uint32, error) {
	if d.visited[off] {
		return nil, 0, fmt.Errorf("%w: ifd loop at %d", ErrCorruptMetadata, off)
	}
	d.visited[off] = true

	start := uint64(off)
	if start+2 > uint64(len(d.buf)) {
		return nil, 0, fmt.Errorf("%w: ifd offset %d out of range", ErrCorruptMetadata, off)
	}
	n := uint64(d.order.Uint16(d.buf[start:]))
	end := start + 2 + 12*n
	if end > uint64(len(d.buf)) {
		return nil, 0, fmt.Errorf("%w: ifd at %d truncated", ErrCorruptMetadata, off)
	}

	entries := make([]entry, 0, n)
	for i := uint64(0); i < n; i++ {
		p := start + 2 + 12*i
		e := entry{
			tag:   d.order.Uint16(d.buf[p:]),
			typ:   d.order.Uint16(d.buf[p+2:]),
			count: d.order.Uint32(d.buf[p+4:]),
		}
		size := uint64(typeSize(e.typ)) * uint64(e.count)
		switch {
		case typeSize(e.typ) == 0:
			e.raw = append([]byte(nil), d.buf[p+8:p+12]...)
		case size <= 4:
			e.raw = append([]byte(nil), d.buf[p+8:p+8+size]...)
		default:
			valOff := uint64(d.order.Uint32(d.buf[p+8:]))
			if valOff+size > uint64(len(d.buf)) {
				d.dropped++
				continue
			}
			e.raw = append([]byte(nil), d.buf[valOff:valOff+size]...)
		}
		entries = append(entries, e)
	}

	var next uint32
	if end+4 <= uint64(len(d.buf)) {
		next = d.order.Uint32(d.buf[end:])
	}
	return entries, next, nil
}

// valueOffset returns the offset of the out-of-line value of tag in the IFD
// at off, or 0 when the tag is absent or stored inline. The IFD must already
// have been read successfully.
func (d *decoder) valueOffset(off uint32, tag uint16) uint32 {
	start := uint64(off)
	n := uint64(d.order.Uint16(d.buf[start:]))
	for i := uint64(0); i < n; i++ {
		p := start + 2 + 12*i
		if d.order.Uint16(d.buf[p:]) != tag {
			continue
		}
		size := uint64(typeSize(d.order.Uint16(d.buf[p+2:]))) * uint64(d.order.Uint32(d.buf[p+4:]))
		if size <= 4 {
			return 0
		}
		return d.order.Uint32(d.buf[p+8:])
	}
	return 0
}

// splitPointers removes up to two pointer tags from entries and returns their
// values.
func splitPointers(entries []entry, order binary.ByteOrder, first, second uint16) ([]entry, uint32, uint32) {
	var a, b uint32
	kept := make([]entry, 0, len(entries))
	for _, e := range entries {
		switch {
		case e.tag == first:
			a = scalar(e, order)
		case second != 0 && e.tag == second:
			b = scalar(e, order)
		default:
			kept = append(kept, e)
		}
	}
	return kept, a, b
}

// scalar reads the first value of a SHORT or LONG entry.
func scalar(e entry, order binary.ByteOrder) uint32 {
	switch {
	case (e.typ == typeLong || e.typ == typeIFD || e.typ == typeSLong) && len(e.raw) >= 4:
		return order.Uint32(e.raw)
	case (e.typ == typeShort || e.typ == typeSShort) && len(e.raw) >= 2:
		return uint32(order.Uint16(e.raw))
	default:
		return 0
	}
}

// set replaces every occurrence of tag in the given directory.
func (t *tree) set(kind ifdKind, e entry) {
	if kind == gpsIFD && !t.present[gpsIFD] {
		t.ifds[gpsIFD] = append(t.ifds[gpsIFD], entry{tag: tagGPSVersionID, typ: typeByte, count: 4, raw: []byte{2, 3, 0, 0}})
	}
	kept := t.ifds[kind][:0:0]
	for _, old := range t.ifds[kind] {
		if old.tag != e.tag {
			kept = append(kept, old)
		}
	}
	t.ifds[kind] = append(kept, e)
	t.present[kind] = true
}

// encode serialises the tree as a TIFF structure with freshly computed
// offsets. Directories are laid out as IFD0, Exif, Interop, GPS, IFD1 and
// finally the thumbnail bytes. A decoded MakerNote keeps its original offset:
// the directories go before it when they fit and after it otherwise, with the
// gap zero filled.
func (t *tree) encode() []byte {
	var lists [numIFDs][]entry
	hasInterop := t.present[interopIFD] && len(t.ifds[interopIFD]) > 0
	hasExif := (t.present[exifIFD] && len(t.ifds[exifIFD]) > 0) || hasInterop
	hasGPS := t.present[gpsIFD] && len(t.ifds[gpsIFD]) > 0
	hasIFD1 := t.present[ifd1] && (len(t.ifds[ifd1]) > 0 || len(t.thumbnail) > 0)

	placeholder := func(tag uint16) entry {
		return entry{tag: tag, typ: typeLong, count: 1, raw: make([]byte, 4)}
	}

	lists[ifd0] = append(lists[ifd0], t.ifds[ifd0]...)
	if hasExif {
		lists[ifd0] = append(lists[ifd0], placeholder(tagExifPointer))
		lists[exifIFD] = append(lists[exifIFD], t.ifds[exifIFD]...)
		if hasInterop {
			lists[exifIFD] = append(lists[exifIFD], placeholder(tagInteropPointer))
			lists[interopIFD] = append(lists[interopIFD], t.ifds[interopIFD]...)
		}
	}
	if hasGPS {
		lists[ifd0] = append(lists[ifd0], placeholder(tagGPSPointer))
		lists[gpsIFD] = append(lists[gpsIFD], t.ifds[gpsIFD]...)
	}
	if hasIFD1 {
		lists[ifd1] = append(lists[ifd1], t.ifds[ifd1]...)
		if len(t.thumbnail) > 0 {
			lists[ifd1] = append(lists[ifd1], placeholder(tagThumbOffset), placeholder(tagThumbLength))
		}
	}

	var offsets [numIFDs]uint32
	written := [numIFDs]bool{ifd0: true, exifIFD: hasExif, interopIFD: hasInterop, gpsIFD: hasGPS, ifd1: hasIFD1}
	var dirs uint32
	for k := ifd0; k < numIFDs; k++ {
		if !written[k] {
			continue
		}
		sort.SliceStable(lists[k], func(i, j int) bool { return lists[k][i].tag < lists[k][j].tag })
		dirs += t.ifdSize(k, lists[k])
	}

	var pinStart, pinEnd uint32
	for _, e := range lists[exifIFD] {
		if t.pinned(exifIFD, e) {
			pinStart, pinEnd = t.makerNoteOff, t.makerNoteOff+uint32(len(e.raw))
			break
		}
	}

	size := uint32(8)
	if pinEnd > 0 && size+dirs > pinStart {
		size = pinEnd + pinEnd%2
	}
	for k := ifd0; k < numIFDs; k++ {
		if !written[k] {
			continue
		}
		offsets[k] = size
		size += t.ifdSize(k, lists[k])
	}
	if size < pinEnd {
		size = pinEnd
	}
	thumbOff := size
	size += uint32(len(t.thumbnail))

	pointers := map[uint16]uint32{
		tagExifPointer:    offsets[exifIFD],
		tagInteropPointer: offsets[interopIFD],
		tagGPSPointer:     offsets[gpsIFD],
		tagThumbOffset:    thumbOff,
		tagThumbLength:    uint32(len(t.thumbnail)),
	}

	out := make([]byte, size)
	if t.order == binary.LittleEndian {
		copy(out, "II")
	} else {
		copy(out, "MM")
	}
	t.order.PutUint16(out[2:], 42)
	t.order.PutUint32(out[4:], offsets[ifd0])

	for k := ifd0; k < numIFDs; k++ {
		if !written[k] {
			continue
		}
		var next uint32
		if k == ifd0 && hasIFD1 {
			next = offsets[ifd1]
		}
		t.writeIFD(out, offsets[k], lists[k], next, k, pointers)
	}
	copy(out[thumbOff:], t.thumbnail)
	return out
}

// ifdSize is the size of a directory and the values it stores out of line.
func (t *tree) ifdSize(kind ifdKind, entries []entry) uint32 {
	size := uint32(2 + 12*len(entries) + 4)
	for _, e := range entries {
		if len(e.raw) > 4 && !t.pinned(kind, e) {
			size += uint32(len(e.raw) + len(e.raw)%2)
		}
	}
	return size
}

// pinned reports whether e is the decoded MakerNote, written back at
// makerNoteOff.
func (t *tree) pinned(kind ifdKind, e entry) bool {
	return kind == exifIFD && e.tag == tagMakerNote && len(e.raw) > 4 && t.makerNoteOff >= 8
}

func (t *tree) writeIFD(out []byte, off uint32, entries []entry, next uint32, kind ifdKind, pointers map[uint16]uint32) {
	t.order.PutUint16(out[off:], uint16(len(entries)))
	dataOff := off + 2 + 12*uint32(len(entries)) + 4
	for i, e := range entries {
		p := off + 2 + 12*uint32(i)
		if isPointer(kind, e.tag) {
			e.raw = make([]byte, 4)
			t.order.PutUint32(e.raw, pointers[e.tag])
		}
		t.order.PutUint16(out[p:], e.tag)
		t.order.PutUint16(out[p+2:], e.typ)
		t.order.PutUint32(out[p+4:], e.count)
		if len(e.raw) <= 4 {
			copy(out[p+8:p+12], e.raw)
			continue
		}
		if t.pinned(kind, e) {
			t.order.PutUint32(out[p+8:], t.makerNoteOff)
			copy(out[t.makerNoteOff:], e.raw)
			continue
		}
		t.order.PutUint32(out[p+8:], dataOff)
		copy(out[dataOff:], e.raw)
		dataOff += uint32(len(e.raw) + len(e.raw)%2)
	}
	t.order.PutUint32(out[off+2+12*uint32(len(entries)):], next)
}

func isPointer(kind ifdKind, tag uint16) bool {
	switch kind {
	case ifd0:
		return tag == tagExifPointer || tag == tagGPSPointer
	case exifIFD:
		return tag == tagInteropPointer
	case ifd1:
		return tag == tagThumbOffset || tag == tagThumbLength
	default:
		return false
	}
}
