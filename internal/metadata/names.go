package metadata

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf16"
)

var tiffTagNames = map[uint16]string{
	0x00fe: "SubfileType",
	0x0100: "ImageWidth",
	0x0101: "ImageHeight",
	0x0102: "BitsPerSample",
	0x0103: "Compression",
	0x0106: "PhotometricInterpretation",
	0x010d: "DocumentName",
	0x010e: "ImageDescription",
	0x010f: "Make",
	0x0110: "Model",
	0x0112: "Orientation",
	0x0115: "SamplesPerPixel",
	0x011a: "XResolution",
	0x011b: "YResolution",
	0x011c: "PlanarConfiguration",
	0x0128: "ResolutionUnit",
	0x0131: "Software",
	0x0132: "ModifyDate",
	0x013b: "Artist",
	0x013c: "HostComputer",
	0x013e: "WhitePoint",
	0x013f: "PrimaryChromaticities",
	0x0211: "YCbCrCoefficients",
	0x0213: "YCbCrPositioning",
	0x0214: "ReferenceBlackWhite",
	0x8298: "Copyright",
	0x9c9b: "XPTitle",
	0x9c9c: "XPComment",
	0x9c9d: "XPAuthor",
	0x9c9e: "XPKeywords",
	0x9c9f: "XPSubject",
}

var exifTagNames = map[uint16]string{
	0x829a: "ExposureTime",
	0x829d: "FNumber",
	0x8822: "ExposureProgram",
	0x8827: "ISO",
	0x9000: "ExifVersion",
	0x9003: "DateTimeOriginal",
	0x9004: "CreateDate",
	0x9010: "OffsetTime",
	0x9011: "OffsetTimeOriginal",
	0x9012: "OffsetTimeDigitized",
	0x9101: "ComponentsConfiguration",
	0x9201: "ShutterSpeedValue",
	0x9202: "ApertureValue",
	0x9204: "ExposureCompensation",
	0x9205: "MaxApertureValue",
	0x9207: "MeteringMode",
	0x9208: "LightSource",
	0x9209: "Flash",
	0x920a: "FocalLength",
	0x927c: "MakerNote",
	0x9286: "UserComment",
	0x9290: "SubSecTime",
	0x9291: "SubSecTimeOriginal",
	0x9292: "SubSecTimeDigitized",
	0xa000: "FlashpixVersion",
	0xa001: "ColorSpace",
	0xa002: "ExifImageWidth",
	0xa003: "ExifImageHeight",
	0xa217: "SensingMethod",
	0xa300: "FileSource",
	0xa301: "SceneType",
	0xa401: "CustomRendered",
	0xa402: "ExposureMode",
	0xa403: "WhiteBalance",
	0xa404: "DigitalZoomRatio",
	0xa405: "FocalLengthIn35mmFormat",
	0xa406: "SceneCaptureType",
	0xa420: "ImageUniqueID",
	0xa430: "OwnerName",
	0xa431: "SerialNumber",
	0xa432: "LensInfo",
	0xa433: "LensMake",
	0xa434: "LensModel",
}

var gpsTagNames = map[uint16]string{
	0x0000: "GPSVersionID",
	0x0001: "GPSLatitudeRef",
	0x0002: "GPSLatitude",
	0x0003: "GPSLongitudeRef",
	0x0004: "GPSLongitude",
	0x0005: "GPSAltitudeRef",
	0x0006: "GPSAltitude",
	0x0007: "GPSTimeStamp",
	0x0008: "GPSSatellites",
	0x0009: "GPSStatus",
	0x000a: "GPSMeasureMode",
	0x0010: "GPSImgDirectionRef",
	0x0011: "GPSImgDirection",
	0x0012: "GPSMapDatum",
	0x001b: "GPSProcessingMethod",
	0x001c: "GPSAreaInformation",
	0x001d: "GPSDateStamp",
}

var interopTagNames = map[uint16]string{
	0x0001: "InteropIndex",
	0x0002: "InteropVersion",
}

func tagName(kind ifdKind, tag uint16) string {
	var names map[uint16]string
	switch kind {
	case ifd0, ifd1:
		names = tiffTagNames
	case exifIFD:
		names = exifTagNames
	case gpsIFD:
		names = gpsTagNames
	case interopIFD:
		names = interopTagNames
	}
	if name, ok := names[tag]; ok {
		return name
	}
	return fmt.Sprintf("Unknown tag (0x%04x)", tag)
}

var (
	charsetASCII   = []byte("ASCII\x00\x00\x00")
	charsetUnicode = []byte("UNICODE\x00")
)

// encodeValue builds the entry for a textual edit.
func encodeValue(info TagInfo, value string, order binary.ByteOrder) entry {
	e := entry{tag: info.tag}
	switch info.enc {
	case encUCS2:
		e.typ = typeByte
		e.raw = append(encodeUTF16(value, binary.LittleEndian), 0, 0)
	case encCharset:
		e.typ = typeUndefined
		if isASCII(value) {
			e.raw = append(append([]byte(nil), charsetASCII...), value...)
		} else {
			e.raw = append(append([]byte(nil), charsetUnicode...), encodeUTF16(value, order)...)
		}
	default:
		e.typ = typeASCII
		e.raw = append([]byte(value), 0)
	}
	e.count = uint32(len(e.raw))
	return e
}

// formatValue renders an entry for display.
func formatValue(kind ifdKind, e entry, order binary.ByteOrder) string {
	if isUCS2Tag(kind, e.tag) && (e.typ == typeByte || e.typ == typeUndefined) {
		return decodeUTF16(e.raw, binary.LittleEndian)
	}
	if isCharsetTag(kind, e.tag) && e.typ == typeUndefined {
		return decodeCharset(e.raw, order)
	}

	switch e.typ {
	case typeASCII, typeUTF8:
		s := string(e.raw)
		if i := strings.IndexByte(s, 0); i >= 0 {
			s = s[:i]
		}
		return s
	case typeUndefined:
		if printable(e.raw) {
			return strings.TrimRight(string(e.raw), "\x00")
		}
		return fmt.Sprintf("[%d bytes]", len(e.raw))
	}

	size := typeSize(e.typ)
	if size == 0 {
		return fmt.Sprintf("[type %d]", e.typ)
	}
	n := len(e.raw) / size
	if n > 32 {
		return fmt.Sprintf("[%d values]", n)
	}
	parts := make([]string, 0, n)
	for i := range n {
		b := e.raw[i*size:]
		switch e.typ {
		case typeByte:
			parts = append(parts, strconv.Itoa(int(b[0])))
		case typeSByte:
			parts = append(parts, strconv.Itoa(int(int8(b[0]))))
		case typeShort:
			parts = append(parts, strconv.Itoa(int(order.Uint16(b))))
		case typeSShort:
			parts = append(parts, strconv.Itoa(int(int16(order.Uint16(b)))))
		case typeLong, typeIFD:
			parts = append(parts, strconv.FormatUint(uint64(order.Uint32(b)), 10))
		case typeSLong:
			parts = append(parts, strconv.Itoa(int(int32(order.Uint32(b)))))
		case typeRational:
			parts = append(parts, fmt.Sprintf("%d/%d", order.Uint32(b), order.Uint32(b[4:])))
		case typeSRational:
			parts = append(parts, fmt.Sprintf("%d/%d", int32(order.Uint32(b)), int32(order.Uint32(b[4:]))))
		case typeFloat:
			parts = append(parts, strconv.FormatFloat(float64(math.Float32frombits(order.Uint32(b))), 'g', -1, 32))
		case typeDouble:
			parts = append(parts, strconv.FormatFloat(math.Float64frombits(order.Uint64(b)), 'g', -1, 64))
		}
	}
	return strings.Join(parts, " ")
}

func isUCS2Tag(kind ifdKind, tag uint16) bool {
	return kind == ifd0 && tag >= 0x9c9b && tag <= 0x9c9f
}

func isCharsetTag(kind ifdKind, tag uint16) bool {
	switch kind {
	case exifIFD:
		return tag == 0x9286
	case gpsIFD:
		return tag == 0x001b || tag == 0x001c
	}
	return false
}

func decodeCharset(raw []byte, order binary.ByteOrder) string {
	if len(raw) < 8 {
		return strings.TrimRight(string(raw), "\x00")
	}
	prefix, body := raw[:8], raw[8:]
	if string(prefix) == string(charsetUnicode) {
		return decodeUTF16(body, order)
	}
	return strings.TrimRight(string(body), "\x00")
}

func encodeUTF16(s string, order binary.ByteOrder) []byte {
	units := utf16.Encode([]rune(s))
	out := make([]byte, 2*len(units))
	for i, u := range units {
		order.PutUint16(out[2*i:], u)
	}
	return out
}

func decodeUTF16(raw []byte, order binary.ByteOrder) string {
	units := make([]uint16, 0, len(raw)/2)
	for i := 0; i+1 < len(raw); i += 2 {
		u := order.Uint16(raw[i:])
		if u == 0 {
			break
		}
		units = append(units, u)
	}
	return string(utf16.Decode(units))
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

func printable(b []byte) bool {
	b = []byte(strings.TrimRight(string(b), "\x00"))
	if len(b) == 0 {
		return false
	}
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return false
		}
	}
	return true
}
