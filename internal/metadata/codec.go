// Package metadata reads and rewrites the metadata embedded in JPEG files.
//
// Reads expose JFIF, Exif (IFD0, SubIFD, Interoperability, GPS, thumbnail)
// and comment segments as named directories. Rewrites only ever touch the
// Exif APP1 segment; every other byte of the file is preserved.
package metadata

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/leca/photex/internal/model"
)

// Tag is one named value of a directory.
type Tag struct {
	Name  string
	Value string
}

// Directory is a group of tags as found in the file. A file may contain more
// than one directory with the same name, and a directory may repeat a tag.
type Directory struct {
	Name string
	Tags []Tag
}

// Read extracts every metadata directory from a JPEG. Exif blocks that cannot
// be parsed are skipped.
func Read(data []byte) ([]Directory, error) {
	segs, err := scanSegments(data)
	if err != nil {
		return nil, err
	}
	var dirs []Directory
	for _, s := range segs {
		p := s.payload(data)
		switch {
		case s.marker == markerAPP0 && bytes.HasPrefix(p, jfifHeader):
			dirs = append(dirs, jfifDirectory(p))
		case s.marker == markerAPP1 && bytes.HasPrefix(p, exifHeader):
			t, err := decodeTree(p[len(exifHeader):])
			if err != nil {
				continue
			}
			dirs = append(dirs, t.directories()...)
		case s.marker == markerCOM:
			dirs = append(dirs, Directory{Name: "JPEG Comment", Tags: []Tag{{Name: "Comment", Value: string(p)}}})
		}
	}
	return dirs, nil
}

// Merge folds directories into the nested map returned to clients. Repeated
// tags inside one directory are joined with "|"; directories sharing a name
// are merged tag by tag with " | ".
func Merge(dirs []Directory) model.Metadata {
	out := model.Metadata{}
	for _, d := range dirs {
		values := make(map[string]string, len(d.Tags))
		var order []string
		for _, tag := range d.Tags {
			if cur, ok := values[tag.Name]; ok {
				values[tag.Name] = cur + "|" + tag.Value
				continue
			}
			values[tag.Name] = tag.Value
			order = append(order, tag.Name)
		}

		existing, ok := out[d.Name]
		if !ok {
			out[d.Name] = values
			continue
		}
		for _, name := range order {
			if cur, ok := existing[name]; ok {
				existing[name] = cur + " | " + values[name]
			} else {
				existing[name] = values[name]
			}
		}
	}
	return out
}

// Decode is Read followed by Merge.
func Decode(data []byte) (model.Metadata, error) {
	dirs, err := Read(data)
	if err != nil {
		return nil, err
	}
	return Merge(dirs), nil
}

// ValidateEdits checks every edit code against the tag table. Values may not
// contain NUL, which every text encoding used here treats as a terminator.
func ValidateEdits(edits []model.MetadataEdit) ([]TagInfo, error) {
	infos := make([]TagInfo, len(edits))
	for i, e := range edits {
		info, err := Lookup(TagCode(e.Code))
		if err != nil {
			return nil, err
		}
		if strings.IndexByte(e.Value, 0) >= 0 {
			return nil, fmt.Errorf("%w: %s value contains a NUL character", ErrInvalidValue, info.Name)
		}
		infos[i] = info
	}
	return infos, nil
}

// Rewrite applies edits in order and returns the new file. Later edits of the
// same tag win. An existing Exif block is replaced in place; otherwise a new
// one is inserted after SOI, or after a leading JFIF APP0.
func Rewrite(data []byte, edits []model.MetadataEdit) ([]byte, error) {
	infos, err := ValidateEdits(edits)
	if err != nil {
		return nil, err
	}
	segs, err := scanSegments(data)
	if err != nil {
		return nil, err
	}

	existing, found := findExif(data, segs)
	t := newTree()
	if found {
		t, err = decodeTree(existing.payload(data)[len(exifHeader):])
		if err != nil {
			return nil, fmt.Errorf("decode exif: %w", err)
		}
		if t.dropped > 0 {
			return nil, fmt.Errorf("decode exif: %w: %d unreadable entries would be lost", ErrCorruptMetadata, t.dropped)
		}
	}
	for i, e := range edits {
		t.set(infos[i].dir, encodeValue(infos[i], e.Value, t.order))
	}

	payload := append(append([]byte(nil), exifHeader...), t.encode()...)
	seg, err := buildSegment(markerAPP1, payload)
	if err != nil {
		return nil, err
	}
	if found {
		return splice(data, existing.start, existing.end, seg), nil
	}
	at := insertionPoint(data, segs)
	return splice(data, at, at, seg), nil
}

func (t *tree) directories() []Directory {
	var dirs []Directory
	for k := ifd0; k < numIFDs; k++ {
		if !t.present[k] {
			continue
		}
		d := Directory{Name: k.directoryName(), Tags: make([]Tag, 0, len(t.ifds[k]))}
		for _, e := range t.ifds[k] {
			d.Tags = append(d.Tags, Tag{Name: tagName(k, e.tag), Value: formatValue(k, e, t.order)})
		}
		if k == ifd1 && len(t.thumbnail) > 0 {
			d.Tags = append(d.Tags, Tag{Name: "ThumbnailLength", Value: fmt.Sprint(len(t.thumbnail))})
		}
		dirs = append(dirs, d)
	}
	return dirs
}

func jfifDirectory(p []byte) Directory {
	d := Directory{Name: "JFIF"}
	if len(p) < 14 {
		return d
	}
	units := map[byte]string{0: "none", 1: "inches", 2: "cm"}
	unit, ok := units[p[7]]
	if !ok {
		unit = fmt.Sprint(p[7])
	}
	d.Tags = []Tag{
		{Name: "JFIFVersion", Value: fmt.Sprintf("%d.%02d", p[5], p[6])},
		{Name: "ResolutionUnit", Value: unit},
		{Name: "XResolution", Value: fmt.Sprint(binary.BigEndian.Uint16(p[8:]))},
		{Name: "YResolution", Value: fmt.Sprint(binary.BigEndian.Uint16(p[10:]))},
	}
	return d
}
