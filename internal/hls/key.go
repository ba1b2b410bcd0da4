package hls

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// KeyMethod identifies the encryption scheme named by an EXT-X-KEY
// tag's METHOD attribute.
type KeyMethod struct {
	name string
}

var (
	KeyMethodNone           = KeyMethod{"NONE"}
	KeyMethodAES128         = KeyMethod{"AES-128"}
	KeyMethodSampleAES      = KeyMethod{"SAMPLE-AES"}
	KeyMethodSampleAESCTR   = KeyMethod{"SAMPLE-AES-CTR"}
	KeyMethodSampleAESCENC  = KeyMethod{"SAMPLE-AES-CENC"}
)

// ParseKeyMethod maps a METHOD attribute value to a KeyMethod,
// preserving unknown vendor values verbatim rather than rejecting
// them.
func ParseKeyMethod(s string) KeyMethod {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "NONE":
		return KeyMethodNone
	case "AES-128":
		return KeyMethodAES128
	case "SAMPLE-AES":
		return KeyMethodSampleAES
	case "SAMPLE-AES-CTR":
		return KeyMethodSampleAESCTR
	case "SAMPLE-AES-CENC":
		return KeyMethodSampleAESCENC
	default:
		return KeyMethod{strings.ToUpper(strings.TrimSpace(s))}
	}
}

// String returns the canonical METHOD attribute spelling.
func (m KeyMethod) String() string { return m.name }

// RequiresServerDecrypt is true only for the sample-level schemes a
// typical HLS client cannot decrypt on its own; AES-128 full-segment
// encryption is deliberately excluded (native player support).
func (m KeyMethod) RequiresServerDecrypt() bool {
	switch m {
	case KeyMethodSampleAES, KeyMethodSampleAESCTR, KeyMethodSampleAESCENC:
		return true
	default:
		return false
	}
}

// IsNone reports whether this is the explicit "no encryption" method.
func (m KeyMethod) IsNone() bool { return m == KeyMethodNone }

// KeyInfo is a parsed EXT-X-KEY tag.
type KeyInfo struct {
	Method            KeyMethod
	URI               string
	IV                []byte // 16 bytes when present, nil otherwise
	KeyFormat         string
	KeyFormatVersions string
}

// ParseKeyInfo parses the attribute list following "#EXT-X-KEY:".
// A malformed attribute yields a best-effort partial parse rather
// than an error — only gross structural failures (an IV that isn't 16
// bytes of hex) leave that one field unset.
func ParseKeyInfo(attrs string) KeyInfo {
	var info KeyInfo
	for _, a := range parseAttributeList(attrs) {
		switch strings.ToUpper(a.Key) {
		case "METHOD":
			info.Method = ParseKeyMethod(a.Value)
		case "URI":
			info.URI = a.Value
		case "IV":
			if iv, err := parseIVHex(a.Value); err == nil {
				info.IV = iv
			}
		case "KEYFORMAT":
			info.KeyFormat = a.Value
		case "KEYFORMATVERSIONS":
			info.KeyFormatVersions = a.Value
		}
	}
	return info
}

func parseIVHex(v string) ([]byte, error) {
	v = strings.TrimPrefix(v, "0x")
	v = strings.TrimPrefix(v, "0X")
	b, err := hex.DecodeString(v)
	if err != nil {
		return nil, err
	}
	if len(b) != 16 {
		return nil, fmt.Errorf("iv must be 16 bytes, got %d", len(b))
	}
	return b, nil
}

// MapInfo is a parsed EXT-X-MAP tag: the fMP4 initialization segment
// that must prefix decoding of any subsequent media fragment.
type MapInfo struct {
	URI       string
	ByteRange *ByteRange
}

// ParseMapInfo parses the attribute list following "#EXT-X-MAP:".
func ParseMapInfo(attrs string) MapInfo {
	var info MapInfo
	for _, a := range parseAttributeList(attrs) {
		switch strings.ToUpper(a.Key) {
		case "URI":
			info.URI = a.Value
		case "BYTERANGE":
			if br, err := ParseByteRange(a.Value); err == nil {
				info.ByteRange = &br
			}
		}
	}
	return info
}

// StreamInfo is a parsed EXT-X-STREAM-INF tag. The rewrite engine only
// needs its presence (to mark the next URI as a variant playlist); the
// attributes are carried for completeness and possible future use but
// are never mutated or re-emitted by this proxy (the pass-through line
// is reused verbatim).
type StreamInfo struct {
	Bandwidth  uint64
	Resolution string
	Codecs     string
	Raw        map[string]string
}

// ParseStreamInfo parses the attribute list following
// "#EXT-X-STREAM-INF:".
func ParseStreamInfo(attrs string) StreamInfo {
	info := StreamInfo{Raw: map[string]string{}}
	for _, a := range parseAttributeList(attrs) {
		info.Raw[a.Key] = a.Value
		switch strings.ToUpper(a.Key) {
		case "BANDWIDTH":
			fmt.Sscanf(a.Value, "%d", &info.Bandwidth)
		case "RESOLUTION":
			info.Resolution = a.Value
		case "CODECS":
			info.Codecs = a.Value
		}
	}
	return info
}
