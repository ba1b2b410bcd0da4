package hls

import (
	"bytes"
	"net/url"
	"path"
	"strings"
)

// SegmentFormat identifies the container/framing of a media segment,
// which in turn selects the SegmentDecryptor primitive.
type SegmentFormat int

const (
	FormatUnknown SegmentFormat = iota
	FormatMPEGTS
	FormatMP4
	FormatAAC
)

// String returns a lowercase label for logging and content-type
// derivation.
func (f SegmentFormat) String() string {
	switch f {
	case FormatMPEGTS:
		return "ts"
	case FormatMP4:
		return "mp4"
	case FormatAAC:
		return "aac"
	default:
		return "unknown"
	}
}

// ContentType returns the MIME type to serve for this format.
func (f SegmentFormat) ContentType() string {
	switch f {
	case FormatMPEGTS:
		return "video/mp2t"
	case FormatMP4:
		return "video/mp4"
	case FormatAAC:
		return "audio/aac"
	default:
		return "application/octet-stream"
	}
}

// FormatFromExtension maps a file extension (with or without a
// leading dot) to a SegmentFormat. Unknown extensions yield
// FormatUnknown, letting the caller fall back to extension-less
// default handling or magic-byte sniffing.
func FormatFromExtension(ext string) SegmentFormat {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "ts":
		return FormatMPEGTS
	case "mp4", "m4s", "m4f", "cmfv", "cmfa":
		return FormatMP4
	case "aac", "m4a":
		return FormatAAC
	default:
		return FormatUnknown
	}
}

// ExtensionFromURL returns the lowercase extension (without the dot)
// of the last path segment of rawURL, or "" when there is none. Query
// string and fragment are ignored.
func ExtensionFromURL(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		p = u.Path
	}
	ext := path.Ext(path.Base(p))
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// SniffFormat detects a segment's container from its magic bytes, for
// use when the URL carries no recognizable extension: a leading
// MPEG-TS sync byte, an ISO-BMFF "ftyp" box at offset 4, or an ADTS
// AAC frame sync word.
func SniffFormat(data []byte) SegmentFormat {
	if len(data) >= 1 && data[0] == 0x47 {
		return FormatMPEGTS
	}
	if len(data) >= 8 && bytes.Equal(data[4:8], []byte("ftyp")) {
		return FormatMP4
	}
	if len(data) >= 2 && data[0] == 0xFF && data[1]&0xF0 == 0xF0 {
		return FormatAAC
	}
	return FormatUnknown
}
