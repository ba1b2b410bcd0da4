package httpserver

import (
	"context"

	"github.com/ManuGH/hlsgate/internal/hls"
)

// Signer authenticates and verifies the "sig" query parameter.
type Signer interface {
	Sign(url string) string
	Verify(url, sig string) bool
}

// Fetcher performs an upstream GET, returning the body and content
// type.
type Fetcher interface {
	Get(ctx context.Context, url string, headers map[string]string, httpRange string) (body []byte, contentType string, err error)
}

// InitSegmentCache deduplicates fMP4 initialization segment fetches.
type InitSegmentCache interface {
	GetOrFetch(ctx context.Context, url string, headers map[string]string, br *hls.ByteRange) ([]byte, error)
}
