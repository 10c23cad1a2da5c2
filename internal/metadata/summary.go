package metadata

import (
	"bytes"
	"strings"

	"github.com/rwcarlsen/goexif/exif"

	"github.com/leca/photex/internal/model"
)

// Summarize extracts capture time, position and camera from the Exif block.
// It returns nil when the file carries no readable Exif data.
func Summarize(data []byte) *model.Summary {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return nil
	}

	s := &model.Summary{
		Make:  stringField(x, exif.Make),
		Model: stringField(x, exif.Model),
	}
	if tm, err := x.DateTime(); err == nil {
		s.TakenAt = &tm
	}
	if lat, long, err := x.LatLong(); err == nil {
		s.Latitude = &lat
		s.Longitude = &long
	}
	if s.TakenAt == nil && s.Latitude == nil && s.Make == "" && s.Model == "" {
		return nil
	}
	return s
}

func stringField(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	v, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return strings.TrimRight(v, "\x00")
}
