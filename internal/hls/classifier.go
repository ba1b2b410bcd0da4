package hls

import "strings"

// LineType is the semantic classification of one playlist line.
type LineType int

const (
	LineEmpty LineType = iota
	LineComment
	LineUnknownExtTag
	LineURI

	LineExtM3U
	LineVersion
	LineStreamInf
	LineIFrameStreamInf
	LineMedia
	LineMediaSequence
	LineKey
	LineMap
	LineInf
	LineByteRange
	LineDiscontinuitySequence
	LineDiscontinuity
	LineProgramDateTime
	LineTargetDuration
	LinePlaylistType
	LineEndList
	LineIndependentSegments
	LineStart
)

// tagSpec pairs a line type with the exact tag prefix that selects
// it. Order matters: LineDiscontinuitySequence's prefix must be
// tested before LineDiscontinuity's, since the latter is a strict
// prefix of the former.
type tagSpec struct {
	lineType LineType
	prefix   string
}

var tagTable = []tagSpec{
	{LineExtM3U, "#EXTM3U"},
	{LineVersion, "#EXT-X-VERSION:"},
	{LineIFrameStreamInf, "#EXT-X-I-FRAME-STREAM-INF:"},
	{LineStreamInf, "#EXT-X-STREAM-INF:"},
	{LineMedia, "#EXT-X-MEDIA:"},
	{LineMediaSequence, "#EXT-X-MEDIA-SEQUENCE:"},
	{LineKey, "#EXT-X-KEY:"},
	{LineMap, "#EXT-X-MAP:"},
	{LineInf, "#EXTINF:"},
	{LineByteRange, "#EXT-X-BYTERANGE:"},
	{LineDiscontinuitySequence, "#EXT-X-DISCONTINUITY-SEQUENCE:"},
	{LineDiscontinuity, "#EXT-X-DISCONTINUITY"},
	{LineProgramDateTime, "#EXT-X-PROGRAM-DATE-TIME:"},
	{LineTargetDuration, "#EXT-X-TARGETDURATION:"},
	{LinePlaylistType, "#EXT-X-PLAYLIST-TYPE:"},
	{LineEndList, "#EXT-X-ENDLIST"},
	{LineIndependentSegments, "#EXT-X-INDEPENDENT-SEGMENTS"},
	{LineStart, "#EXT-X-START:"},
}

// Classify maps a single (already line-split) playlist line to its
// LineType. The caller is expected to have trimmed a trailing CR, but
// Classify itself trims surrounding whitespace before dispatch so
// that callers may pass raw scanner lines.
func Classify(line string) LineType {
	trimmed := strings.TrimRight(line, "\r")
	trimmed = strings.TrimSpace(trimmed)

	if trimmed == "" {
		return LineEmpty
	}
	if strings.HasPrefix(trimmed, "#EXT") {
		for _, spec := range tagTable {
			if strings.HasPrefix(trimmed, spec.prefix) {
				return spec.lineType
			}
		}
		return LineUnknownExtTag
	}
	if strings.HasPrefix(trimmed, "#") {
		return LineComment
	}
	return LineURI
}

// IsTag reports whether t is one of the recognized EXT-X-* tag kinds
// (excludes Empty, Comment, UnknownExtTag, and URI).
func (t LineType) IsTag() bool {
	return t >= LineExtM3U && t <= LineStart
}

// IsURI reports whether t is a non-comment, non-tag URI line.
func (t LineType) IsURI() bool { return t == LineURI }

// AffectsState reports whether this line type requires a
// ProcessorState update during the pre-transform pass.
func (t LineType) AffectsState() bool {
	switch t {
	case LineStreamInf, LineMediaSequence, LineKey, LineMap, LineInf, LineByteRange:
		return true
	default:
		return false
	}
}

// TagValue strips the tag prefix (and its trailing colon when
// present) from a line of the given type, returning the remainder —
// the attribute list or scalar value.
func TagValue(line string, t LineType) string {
	trimmed := strings.TrimSpace(strings.TrimRight(line, "\r"))
	for _, spec := range tagTable {
		if spec.lineType == t && strings.HasPrefix(trimmed, spec.prefix) {
			return trimmed[len(spec.prefix):]
		}
	}
	return ""
}
