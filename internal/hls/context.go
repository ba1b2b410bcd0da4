package hls

import "github.com/rs/zerolog"

// Signer authenticates proxied URLs so the rewrite engine can attach
// a "sig" query parameter without depending on the signing package's
// concrete HMAC implementation in internal/signing.
type Signer interface {
	Sign(url string) string
}

// TransformContext is the immutable, per-request configuration the
// rewrite engine consults. It never mutates after construction and is
// safe to read concurrently from the single goroutine that owns the
// request (no cross-goroutine sharing is implied or required).
type TransformContext struct {
	// ServerBase is this proxy's own externally-visible
	// scheme://host[:port], used to build absolute /manifest and
	// /segment URLs (config.EXTERNAL_SCHEME + config.EXTERNAL_HOST).
	ServerBase string

	// OriginalURL is the upstream playlist URL this request fetched,
	// used as the base for resolving relative URIs found inside it.
	OriginalURL string

	ManifestHeadersB64 string
	SegmentHeadersB64  string
	ManifestHeaders    map[string]string
	SegmentHeaders     map[string]string

	DecryptionKey *DecryptionKey
	DecryptEnabled bool

	Signer Signer

	// Logger, when set, receives a debug event per matched transform
	// rule — answers "why wasn't this segment rewritten" without
	// changing the output.
	Logger *zerolog.Logger
}

// ShouldIntercept reports whether server-side decryption should fire:
// the caller opted in, the active key actually needs it, and a
// decryption key was supplied.
func (c *TransformContext) ShouldIntercept(key *KeyInfo) bool {
	if !c.DecryptEnabled || key == nil || c.DecryptionKey == nil {
		return false
	}
	return key.Method.RequiresServerDecrypt()
}

// sign returns the "sig" query value for rawURL, or "" when no
// signer is configured.
func (c *TransformContext) sign(rawURL string) string {
	if c.Signer == nil {
		return ""
	}
	return c.Signer.Sign(rawURL)
}
