package httpserver

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// parseIVParam parses the "iv" query parameter: absent yields an
// all-zero IV, present must decode (tolerating a "0x" prefix) to
// exactly 16 bytes.
func parseIVParam(s string) ([16]byte, error) {
	var iv [16]byte
	if s == "" {
		return iv, nil
	}
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	b, err := hex.DecodeString(s)
	if err != nil {
		return iv, err
	}
	if len(b) != 16 {
		return iv, fmt.Errorf("iv must be 16 bytes, got %d", len(b))
	}
	copy(iv[:], b)
	return iv, nil
}
