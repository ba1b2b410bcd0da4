package hls

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// TransformRule owns the decision of whether, and how, a single
// classified playlist line is rewritten. The StreamProcessor walks an
// ordered chain of rules and hands the line to the first one that
// matches; a line no rule claims passes through unchanged.
type TransformRule interface {
	// Matches reports whether this rule owns the given line.
	Matches(lt LineType, state *ProcessorState, ctx *TransformContext) bool

	// Transform produces the replacement for line, which may be empty
	// (drop the line), a single line, or several.
	Transform(line string, lt LineType, state *ProcessorState, ctx *TransformContext) []string
}

// DefaultRules returns the five-rule chain in the order the rewrite
// engine requires: variant and media rules first (disjoint, cheap
// matches), then key/map rewrites, then segment-URL rewrite last so it
// reads an already-updated map URI in state.
func DefaultRules() []TransformRule {
	return []TransformRule{
		VariantURLProxyRule{},
		MediaTagProxyRule{},
		KeyTagRewriteRule{},
		MapTagRewriteRule{},
		SegmentURLProxyRule{},
	}
}

// resolveURL resolves ref against base, returning ref itself (minus
// whitespace) when base is unparseable or ref is already absolute.
func resolveURL(base, ref string) string {
	ref = strings.TrimSpace(ref)
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if refURL.IsAbs() {
		return ref
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}

// manifestProxyURL builds an absolute "/manifest" URL that carries
// enough context for the next hop to repeat this rewrite, omitting any
// parameter that is unset.
func manifestProxyURL(ctx *TransformContext, resolved string) string {
	q := url.Values{}
	q.Set("url", resolved)
	if ctx.ManifestHeadersB64 != "" {
		q.Set("h", ctx.ManifestHeadersB64)
	}
	if ctx.SegmentHeadersB64 != "" {
		q.Set("sh", ctx.SegmentHeadersB64)
	}
	if ctx.DecryptionKey != nil {
		q.Set("k", ctx.DecryptionKey.String())
	}
	if ctx.DecryptEnabled {
		q.Set("decrypt", "true")
	}
	u := ctx.ServerBase + "/manifest?" + q.Encode()
	if sig := ctx.sign(resolved); sig != "" {
		u += "&sig=" + sig
	}
	return u
}

// segmentExtension derives the "{ext}" path component of the proxied
// "/segment.{ext}" URL from the resolved target URL, falling back to
// "ts" when the target has no recognizable extension.
func segmentExtension(resolved string) string {
	ext := ExtensionFromURL(resolved)
	if ext == "" {
		return "ts"
	}
	return ext
}

// methodQueryValue renders the KeyMethod as the short "m" query token
// the segment handler expects.
func methodQueryValue(m KeyMethod) string {
	switch m {
	case KeyMethodSampleAES:
		return "ssa"
	case KeyMethodSampleAESCTR:
		return "ssa-ctr"
	case KeyMethodSampleAESCENC:
		return "cenc"
	default:
		return strings.ToLower(m.String())
	}
}

// segmentProxyURL builds an absolute "/segment.{ext}" URL for the
// resolved target, optionally carrying init-segment and byte-range
// context. withInit is false when the target IS the init segment (a
// rewritten EXT-X-MAP URI must not reference itself).
func segmentProxyURL(ctx *TransformContext, state *ProcessorState, key KeyInfo, resolved string, br *ByteRange, withInit bool) string {
	ext := segmentExtension(resolved)
	q := url.Values{}
	q.Set("url", resolved)
	if ctx.SegmentHeadersB64 != "" {
		q.Set("h", ctx.SegmentHeadersB64)
	}
	if ctx.DecryptionKey != nil {
		q.Set("k", ctx.DecryptionKey.String())
	}
	iv := state.CurrentIV()
	q.Set("iv", fmt.Sprintf("%x", iv[:]))
	q.Set("m", methodQueryValue(key.Method))
	if br != nil {
		q.Set("br", br.String())
	}
	if withInit && state.CurrentMap != nil {
		initResolved := resolveURL(ctx.OriginalURL, state.CurrentMap.URI)
		q.Set("init", initResolved)
		if state.CurrentMap.ByteRange != nil {
			q.Set("init_br", state.CurrentMap.ByteRange.String())
		}
	}
	u := fmt.Sprintf("%s/segment.%s?%s", ctx.ServerBase, ext, q.Encode())
	if sig := ctx.sign(resolved); sig != "" {
		u += "&sig=" + sig
	}
	return u
}

// VariantURLProxyRule rewrites a sub-playlist URI referenced from a
// master playlist's EXT-X-STREAM-INF into a proxied "/manifest" URL.
type VariantURLProxyRule struct{}

func (VariantURLProxyRule) Matches(lt LineType, state *ProcessorState, _ *TransformContext) bool {
	return lt == LineURI && state.Pending == PendingVariant
}

func (VariantURLProxyRule) Transform(line string, _ LineType, state *ProcessorState, ctx *TransformContext) []string {
	resolved := resolveURL(ctx.OriginalURL, line)
	return []string{manifestProxyURL(ctx, resolved)}
}

// MediaTagProxyRule rewrites the URI attribute of an EXT-X-MEDIA tag
// (alternate audio/video/subtitle renditions) to a proxied "/manifest"
// URL, leaving every other attribute untouched in its original order
// and case.
type MediaTagProxyRule struct{}

func (MediaTagProxyRule) Matches(lt LineType, _ *ProcessorState, _ *TransformContext) bool {
	return lt == LineMedia
}

func (MediaTagProxyRule) Transform(line string, lt LineType, _ *ProcessorState, ctx *TransformContext) []string {
	attrs := parseAttributeList(TagValue(line, lt))
	var b strings.Builder
	b.WriteString("#EXT-X-MEDIA:")
	for i, a := range attrs {
		if i > 0 {
			b.WriteByte(',')
		}
		if strings.EqualFold(a.Key, "URI") {
			resolved := resolveURL(ctx.OriginalURL, a.Value)
			fmt.Fprintf(&b, `URI="%s"`, manifestProxyURL(ctx, resolved))
			continue
		}
		// Every other attribute is re-emitted byte-for-byte: quoting,
		// order, and case stay exactly as the source wrote them.
		b.WriteString(a.Raw)
	}
	return []string{b.String()}
}

// KeyTagRewriteRule drops an EXT-X-KEY tag entirely when its method
// requires server-side decryption and interception is active — the
// output playlist must look unencrypted to the player. AES-128 (and
// any key not requiring interception) pass through via the default
// no-match path.
type KeyTagRewriteRule struct{}

func (KeyTagRewriteRule) Matches(lt LineType, state *ProcessorState, ctx *TransformContext) bool {
	if lt != LineKey || state.CurrentKey == nil {
		return false
	}
	return ctx.ShouldIntercept(state.CurrentKey)
}

func (KeyTagRewriteRule) Transform(string, LineType, *ProcessorState, *TransformContext) []string {
	return nil
}

// MapTagRewriteRule rewrites an EXT-X-MAP URI to a proxied
// "/segment.{ext}" URL carrying the init segment's own byte range,
// when DRM interception is active. The BYTERANGE attribute is not
// re-emitted because the proxied URL fetches exactly that slice.
type MapTagRewriteRule struct{}

func (MapTagRewriteRule) Matches(lt LineType, state *ProcessorState, ctx *TransformContext) bool {
	if lt != LineMap || state.CurrentMap == nil || state.CurrentKey == nil {
		return false
	}
	return ctx.ShouldIntercept(state.CurrentKey)
}

func (MapTagRewriteRule) Transform(_ string, _ LineType, state *ProcessorState, ctx *TransformContext) []string {
	resolved := resolveURL(ctx.OriginalURL, state.CurrentMap.URI)
	u := segmentProxyURL(ctx, state, *state.CurrentKey, resolved, state.CurrentMap.ByteRange, false)
	return []string{fmt.Sprintf(`#EXT-X-MAP:URI="%s"`, u)}
}

// SegmentURLProxyRule rewrites a media segment URI to a proxied
// "/segment.{ext}" URL when DRM interception is active. The current
// IV is captured at this instant; subsequent state mutations (the
// next EXT-X-BYTERANGE, EXT-X-KEY) never affect an already-emitted URL.
type SegmentURLProxyRule struct{}

func (SegmentURLProxyRule) Matches(lt LineType, state *ProcessorState, ctx *TransformContext) bool {
	if lt != LineURI || state.Pending != PendingSegment || state.CurrentKey == nil {
		return false
	}
	return ctx.ShouldIntercept(state.CurrentKey)
}

func (SegmentURLProxyRule) Transform(line string, _ LineType, state *ProcessorState, ctx *TransformContext) []string {
	resolved := resolveURL(ctx.OriginalURL, line)
	u := segmentProxyURL(ctx, state, *state.CurrentKey, resolved, state.CurrentByteRange, true)
	return []string{u}
}

// parseUint64Tag parses a decimal tag value, returning 0 on failure —
// used where a malformed numeric attribute must not abort the parse.
func parseUint64Tag(s string) uint64 {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
