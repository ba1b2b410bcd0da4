package httpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/hlsgate/internal/hls"
)

type fakeSigner struct{ enabled bool }

func (f fakeSigner) Sign(url string) string {
	if !f.enabled {
		return ""
	}
	return "sig-for-" + url
}

func (f fakeSigner) Verify(url, sig string) bool {
	if !f.enabled {
		return true
	}
	return sig == "sig-for-"+url
}

type fakeFetcher struct {
	body        []byte
	contentType string
	err         error
	lastURL     string
	lastRange   string
}

func (f *fakeFetcher) Get(ctx context.Context, url string, headers map[string]string, httpRange string) ([]byte, string, error) {
	f.lastURL = url
	f.lastRange = httpRange
	if f.err != nil {
		return nil, "", f.err
	}
	return f.body, f.contentType, nil
}

type fakeInitCache struct{ body []byte }

func (f *fakeInitCache) GetOrFetch(ctx context.Context, url string, headers map[string]string, br *hls.ByteRange) ([]byte, error) {
	return f.body, nil
}

func newTestRouter(fetcher Fetcher, signer Signer) http.Handler {
	return NewRouter(Dependencies{
		ServerBase: "https://proxy.example.com",
		SigningKey: signer,
		Fetcher:    fetcher,
		InitCache:  &fakeInitCache{},
		Version:    "test",
	})
}

func TestManifestHandlerRewritesPlaylist(t *testing.T) {
	fetcher := &fakeFetcher{
		body:        []byte("#EXTM3U\n#EXTINF:6.0,\nseg0.ts\n"),
		contentType: "application/vnd.apple.mpegurl",
	}
	router := newTestRouter(fetcher, fakeSigner{enabled: false})

	req := httptest.NewRequest(http.MethodGet, "/manifest?url=https%3A%2F%2Fcdn.example.com%2Fmaster.m3u8", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/vnd.apple.mpegurl", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "seg0.ts") // no DRM key, URI left untouched
	assert.Equal(t, "https://cdn.example.com/master.m3u8", fetcher.lastURL)
}

func TestManifestHandlerMissingURLParam(t *testing.T) {
	router := newTestRouter(&fakeFetcher{}, fakeSigner{enabled: false})
	req := httptest.NewRequest(http.MethodGet, "/manifest", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestManifestHandlerRejectsBadSignature(t *testing.T) {
	router := newTestRouter(&fakeFetcher{}, fakeSigner{enabled: true})
	req := httptest.NewRequest(http.MethodGet, "/manifest?url=https%3A%2F%2Fcdn.example.com%2Fmaster.m3u8&sig=wrong", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSegmentHandlerPassesThroughWithoutDecryption(t *testing.T) {
	fetcher := &fakeFetcher{body: []byte{0x47, 0x00, 0x00, 0x00}, contentType: "video/mp2t"}
	router := newTestRouter(fetcher, fakeSigner{enabled: false})

	req := httptest.NewRequest(http.MethodGet, "/segment.ts?url=https%3A%2F%2Fcdn.example.com%2Fseg0.ts", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "video/mp2t", rec.Header().Get("Content-Type"))
	assert.Equal(t, "https://cdn.example.com/seg0.ts", fetcher.lastURL)
}

func TestSegmentHandlerForwardsByteRange(t *testing.T) {
	fetcher := &fakeFetcher{body: []byte{0x47, 0x00, 0x00, 0x00}, contentType: "video/mp2t"}
	router := newTestRouter(fetcher, fakeSigner{enabled: false})

	req := httptest.NewRequest(http.MethodGet, "/segment.ts?url=https%3A%2F%2Fcdn.example.com%2Fseg0.ts&br=1000%400", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bytes=0-999", fetcher.lastRange)
}

func TestSegmentHandlerRejectsMalformedByteRange(t *testing.T) {
	router := newTestRouter(&fakeFetcher{}, fakeSigner{enabled: false})
	req := httptest.NewRequest(http.MethodGet, "/segment.ts?url=https%3A%2F%2Fcdn.example.com%2Fseg0.ts&br=not-a-range", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthHandler(t *testing.T) {
	router := newTestRouter(&fakeFetcher{}, fakeSigner{enabled: false})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}
