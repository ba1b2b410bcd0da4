// Package headercodec implements the base64url(JSON) encoding used to
// carry a per-request set of upstream HTTP headers (authorization,
// cookies) through a proxied URL's "h"/"sh" query parameters without
// ever exposing them to the player directly.
package headercodec

import (
	"encoding/base64"
	"encoding/json"

	"github.com/ManuGH/hlsgate/internal/apierror"
)

// Encode renders headers as base64url (no padding) of its JSON object
// form. An empty or nil map encodes to "".
func Encode(headers map[string]string) string {
	if len(headers) == 0 {
		return ""
	}
	b, err := json.Marshal(headers)
	if err != nil {
		// headers is a map[string]string; Marshal cannot fail on it.
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// Decode reverses Encode. An empty string decodes to a nil map and no
// error, so callers can treat an absent "h"/"sh" parameter uniformly.
func Decode(encoded string) (map[string]string, error) {
	if encoded == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, apierror.Wrap(apierror.KindInvalidHeaderEncoding, err, "invalid header encoding")
	}
	var headers map[string]string
	if err := json.Unmarshal(raw, &headers); err != nil {
		return nil, apierror.Wrap(apierror.KindInvalidHeaderEncoding, err, "invalid header JSON")
	}
	return headers, nil
}
