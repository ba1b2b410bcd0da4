package httpserver

import (
	"net/http"

	"github.com/ManuGH/hlsgate/internal/apierror"
	"github.com/ManuGH/hlsgate/internal/headercodec"
	"github.com/ManuGH/hlsgate/internal/hls"
	"github.com/ManuGH/hlsgate/internal/log"
)

// Handlers holds the shared dependencies every route handler reads.
type Handlers struct {
	deps Dependencies
}

// Manifest implements GET /manifest: fetch the upstream playlist,
// run it through the hls rewrite chain, and return the result. Variant
// and rendition playlist URLs always flow back through this proxy;
// segment and EXT-X-MAP URLs are rewritten (and EXT-X-KEY tags dropped)
// only when the active key is intercepted for decryption. Line endings
// are normalized to LF.
func (h *Handlers) Manifest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx).With().Str("handler", "manifest").Logger()
	q := r.URL.Query()

	targetURL := q.Get("url")
	if targetURL == "" {
		apierror.Respond(w, apierror.New(apierror.KindInvalidURL, "missing url parameter"))
		return
	}
	if !h.deps.SigningKey.Verify(targetURL, q.Get("sig")) {
		apierror.Respond(w, apierror.New(apierror.KindInvalidSignature, "signature verification failed"))
		return
	}

	manifestHeaders, err := headercodec.Decode(q.Get("h"))
	if err != nil {
		apierror.Respond(w, err)
		return
	}
	segmentHeaders, err := headercodec.Decode(q.Get("sh"))
	if err != nil {
		apierror.Respond(w, err)
		return
	}

	var decryptionKey *hls.DecryptionKey
	if raw := q.Get("k"); raw != "" {
		key, err := hls.ParseDecryptionKey(raw)
		if err != nil {
			apierror.Respond(w, apierror.Wrap(apierror.KindInvalidKeyLength, err, "parsing k parameter"))
			return
		}
		decryptionKey = &key
	}

	body, _, err := h.deps.Fetcher.Get(ctx, targetURL, manifestHeaders, "")
	if err != nil {
		logger.Warn().Err(err).Str("url", targetURL).Msg("upstream manifest fetch failed")
		apierror.Respond(w, err)
		return
	}

	tctx := &hls.TransformContext{
		ServerBase:         h.deps.ServerBase,
		OriginalURL:        targetURL,
		ManifestHeadersB64: q.Get("h"),
		SegmentHeadersB64:  q.Get("sh"),
		ManifestHeaders:    manifestHeaders,
		SegmentHeaders:     segmentHeaders,
		DecryptionKey:      decryptionKey,
		DecryptEnabled:     q.Get("decrypt") == "true",
		Signer:             h.deps.SigningKey,
		Logger:             &logger,
	}

	processor := hls.NewStreamProcessor(hls.DefaultRules())
	rewritten := processor.Process(string(body), tctx)

	w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
	_, _ = w.Write([]byte(rewritten))
}
