package metadata

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedTag is returned for an edit whose code is not in the tag table.
	ErrUnsupportedTag = errors.New("unsupported metadata tag")
	// ErrInvalidValue is returned for an edit value the tag cannot store
	// faithfully.
	ErrInvalidValue = errors.New("invalid metadata value")
)

// TagCode is the stable numeric identifier of an editable tag. The codes form
// part of the public API and never change meaning.
type TagCode int

const (
	DocumentName     TagCode = 269
	ImageDescription TagCode = 270
	Make             TagCode = 271
	Model            TagCode = 272
	Software         TagCode = 461
	ModifyDate       TagCode = 462
	Artist           TagCode = 473
	HostComputer     TagCode = 474
	Copyright        TagCode = 33432
	GPSInfo          TagCode = 34853
	DateTimeOriginal TagCode = 36867
	CreateDate       TagCode = 36868
	UserComment      TagCode = 37510
	XPTitle          TagCode = 40091
	XPComment        TagCode = 40092
	XPAuthor         TagCode = 40093
	XPKeywords       TagCode = 40094
	OwnerName        TagCode = 42032
)

// encoding selects how a textual value is stored in a TIFF entry.
type encoding int

const (
	encASCII encoding = iota
	// encUCS2 stores UTF-16LE code units, NUL terminated, as a BYTE array.
	encUCS2
	// encCharset stores an 8-byte character code prefix followed by the text,
	// as an UNDEFINED array.
	encCharset
)

// TagInfo describes one entry of the editable tag table.
type TagInfo struct {
	Code        TagCode `json:"name"`
	Name        string  `json:"displayName"`
	Description string  `json:"description"`
	// Value is the advertised hexadecimal tag id.
	Value string `json:"value"`

	tag uint16
	dir ifdKind
	enc encoding
}

// tagTable is the closed set of editable tags, ordered by code.
var tagTable = []TagInfo{
	{Code: DocumentName, Name: "DocumentName", Value: "0x010d", tag: 0x010d, dir: ifd0, enc: encASCII,
		Description: "The name of the document from which this image was scanned"},
	{Code: ImageDescription, Name: "ImageDescription", Value: "0x010e", tag: 0x010e, dir: ifd0, enc: encASCII,
		Description: "A character string giving the title of the image. It may be a comment such as \"1988 company picnic\" or the like. Two-bytes character codes cannot be used. When a 2-bytes code is necessary, the Exif Private tag <UserComment> is to be used."},
	{Code: Make, Name: "Make", Value: "0x010f", tag: 0x010f, dir: ifd0, enc: encASCII,
		Description: "The manufacturer of the recording equipment. This is the manufacturer of the DSC, scanner, video digitizer or other equipment that generated the image. When the field is left blank, it is treated as unknown."},
	{Code: Model, Name: "Model", Value: "0x0110", tag: 0x0110, dir: ifd0, enc: encASCII,
		Description: "The model name or model number of the equipment. This is the model name or number of the DSC, scanner, video digitizer or other equipment that generated the image. When the field is left blank, it is treated as unknown."},
	{Code: Software, Name: "Software", Value: "0x0131", tag: 0x0131, dir: ifd0, enc: encASCII,
		Description: "This tag records the name and version of the software or firmware of the camera or image input device used to generate the image. The detailed format is not specified, but it is recommended that the example shown below be followed. When the field is left blank, it is treated as unknown."},
	{Code: ModifyDate, Name: "ModifyDate", Value: "0x0132", tag: 0x0132, dir: ifd0, enc: encASCII,
		Description: "The date and time of image creation. In Exif standard, it is the date and time the file was changed."},
	{Code: Artist, Name: "Artist", Value: "0x013b", tag: 0x013b, dir: ifd0, enc: encASCII,
		Description: "This tag records the name of the camera owner, photographer or image creator. The detailed format is not specified, but it is recommended that the information be written as in the example below for ease of Interoperability. When the field is left blank, it is treated as unknown"},
	{Code: HostComputer, Name: "HostComputer", Value: "0x013c", tag: 0x013c, dir: ifd0, enc: encASCII,
		Description: "This tag records information about the host computer used to generate the image."},
	{Code: Copyright, Name: "Copyright", Value: "0x8298", tag: 0x8298, dir: ifd0, enc: encASCII,
		Description: "Copyright information. In this standard the tag is used to indicate both the photographer and editor copyrights. It is the copyright notice of the person or organization claiming rights to the image. The Interoperability copyright statement including date and rights should be written in this field; e.g., \"Copyright, John Smith, 19xx. All rights reserved.\""},
	{Code: GPSInfo, Name: "GPSInfo", Value: "0x8825", tag: 0x001c, dir: gpsIFD, enc: encCharset,
		Description: ""},
	{Code: DateTimeOriginal, Name: "DateTimeOriginal", Value: "0x9003", tag: 0x9003, dir: exifIFD, enc: encASCII,
		Description: "The date and time when the original image data was generated. For a digital still camera the date and time the picture was taken are recorded."},
	{Code: CreateDate, Name: "CreateDate", Value: "0x9004", tag: 0x9004, dir: exifIFD, enc: encASCII,
		Description: "The date and time when the image was stored as digital data."},
	{Code: UserComment, Name: "UserComment", Value: "0x9286", tag: 0x9286, dir: exifIFD, enc: encCharset,
		Description: "A tag for Exif users to write keywords or comments on the image besides those in <ImageDescription>, and without the character code limitations of the <ImageDescription> tag."},
	{Code: XPTitle, Name: "XPTitle", Value: "0x9c9b", tag: 0x9c9b, dir: ifd0, enc: encUCS2,
		Description: "Title tag used by Windows, encoded in UCS2"},
	{Code: XPComment, Name: "XPComment", Value: "0x9c9c", tag: 0x9c9c, dir: ifd0, enc: encUCS2,
		Description: "Comment tag used by Windows, encoded in UCS2"},
	{Code: XPAuthor, Name: "XPAuthor", Value: "0x9c9d", tag: 0x9c9d, dir: ifd0, enc: encUCS2,
		Description: "Author tag used by Windows, encoded in UCS2"},
	{Code: XPKeywords, Name: "XPKeywords", Value: "0x9c9e", tag: 0x9c9e, dir: ifd0, enc: encUCS2,
		Description: "Keywords tag used by Windows, encoded in UCS2"},
	{Code: OwnerName, Name: "OwnerName", Value: "0xa430", tag: 0xa430, dir: exifIFD, enc: encASCII,
		Description: "This tag records the owner of a camera used in photography as an ASCII string."},
}

var tagsByCode = func() map[TagCode]*TagInfo {
	m := make(map[TagCode]*TagInfo, len(tagTable))
	for i := range tagTable {
		m[tagTable[i].Code] = &tagTable[i]
	}
	return m
}()

// Tags returns a copy of the editable tag table, ordered by code.
func Tags() []TagInfo {
	out := make([]TagInfo, len(tagTable))
	copy(out, tagTable)
	return out
}

// Lookup returns the table entry for code.
func Lookup(code TagCode) (TagInfo, error) {
	info, ok := tagsByCode[code]
	if !ok {
		return TagInfo{}, fmt.Errorf("%w: %d", ErrUnsupportedTag, int(code))
	}
	return *info, nil
}

// DirectoryName returns the directory a tag is read back from.
func (t TagInfo) DirectoryName() string {
	return t.dir.directoryName()
}

// TagName returns the name under which the tag appears in read results.
func (t TagInfo) TagName() string {
	return tagName(t.dir, t.tag)
}
