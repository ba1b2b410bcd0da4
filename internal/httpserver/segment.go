package httpserver

import (
	"net/http"
	"strings"

	"github.com/ManuGH/hlsgate/internal/apierror"
	"github.com/ManuGH/hlsgate/internal/decrypt"
	"github.com/ManuGH/hlsgate/internal/headercodec"
	"github.com/ManuGH/hlsgate/internal/hls"
	"github.com/ManuGH/hlsgate/internal/log"
	"github.com/ManuGH/hlsgate/internal/metrics"
)

// Segment implements GET /segment and GET /segment.{ext}: fetch the
// target media segment (and, for fMP4, its initialization segment via
// the shared cache), decrypt it if a server-side DRM scheme applies,
// and return it with the content type its format implies.
func (h *Handlers) Segment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx).With().Str("handler", "segment").Logger()
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

	ext := segmentExtensionFromPath(r.URL.Path)
	format := hls.FormatFromExtension(ext)

	method := hls.ParseKeyMethod(methodFromQueryValue(q.Get("m")))

	var key hls.DecryptionKey
	if raw := q.Get("k"); raw != "" {
		parsed, err := hls.ParseDecryptionKey(raw)
		if err != nil {
			apierror.Respond(w, apierror.Wrap(apierror.KindInvalidKeyLength, err, "parsing k parameter"))
			return
		}
		key = parsed
	}

	iv, err := parseIVParam(q.Get("iv"))
	if err != nil {
		apierror.Respond(w, apierror.Wrap(apierror.KindInvalidIV, err, "parsing iv parameter"))
		return
	}

	var br *hls.ByteRange
	if raw := q.Get("br"); raw != "" {
		parsed, err := hls.ParseByteRange(raw)
		if err != nil {
			apierror.Respond(w, apierror.Wrap(apierror.KindInvalidByteRange, err, "parsing br parameter"))
			return
		}
		br = &parsed
	}

	headers, err := headercodec.Decode(q.Get("h"))
	if err != nil {
		apierror.Respond(w, err)
		return
	}

	var httpRange string
	if br != nil {
		httpRange = br.HTTPRange()
	}

	var initBytes []byte
	if initURL := q.Get("init"); initURL != "" {
		var initBR *hls.ByteRange
		if raw := q.Get("init_br"); raw != "" {
			parsed, err := hls.ParseByteRange(raw)
			if err != nil {
				apierror.Respond(w, apierror.Wrap(apierror.KindInvalidByteRange, err, "parsing init_br parameter"))
				return
			}
			initBR = &parsed
		}
		initBytes, err = h.deps.InitCache.GetOrFetch(ctx, initURL, headers, initBR)
		if err != nil {
			logger.Warn().Err(err).Str("url", initURL).Msg("init segment fetch failed")
			apierror.Respond(w, err)
			return
		}
	}

	body, contentType, err := h.deps.Fetcher.Get(ctx, targetURL, headers, httpRange)
	if err != nil {
		metrics.UpstreamFetchFailuresTotal.WithLabelValues(string(apierror.KindOf(err))).Inc()
		logger.Warn().Err(err).Str("url", targetURL).Msg("upstream segment fetch failed")
		apierror.Respond(w, err)
		return
	}

	if format == hls.FormatUnknown {
		format = hls.SniffFormat(body)
	}
	if format == hls.FormatUnknown {
		apierror.Respond(w, apierror.New(apierror.KindUnknownSegmentFormat, "could not determine segment format for %s", targetURL))
		return
	}

	if !method.IsNone() && method != hls.KeyMethodAES128 {
		d := decrypt.New(method, key, iv)
		decrypted, err := d.Decrypt(body, initBytes, format)
		if err != nil {
			metrics.DecryptFailuresTotal.WithLabelValues(string(apierror.KindOf(err))).Inc()
			logger.Warn().Err(err).Str("url", targetURL).Msg("segment decryption failed")
			apierror.Respond(w, err)
			return
		}
		body = decrypted
	}

	ct := format.ContentType()
	if ct == "" {
		ct = contentType
	}
	w.Header().Set("Content-Type", ct)
	_, _ = w.Write(body)
}

// segmentExtensionFromPath extracts "{ext}" from a "/segment.{ext}"
// path, returning "" for the bare "/segment" route.
func segmentExtensionFromPath(path string) string {
	base := path
	if idx := strings.LastIndex(base, "/"); idx >= 0 {
		base = base[idx+1:]
	}
	if !strings.HasPrefix(base, "segment.") {
		return ""
	}
	return strings.TrimPrefix(base, "segment.")
}

// methodFromQueryValue maps the short "m" query token back to the
// canonical METHOD attribute spelling ParseKeyMethod expects.
func methodFromQueryValue(m string) string {
	switch m {
	case "ssa":
		return "SAMPLE-AES"
	case "ssa-ctr":
		return "SAMPLE-AES-CTR"
	case "cenc":
		return "SAMPLE-AES-CENC"
	case "":
		return "NONE"
	default:
		return m
	}
}
