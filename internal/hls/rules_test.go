package hls

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMediaTagProxyRulePreservesOtherAttributes(t *testing.T) {
	ctx := newTestContext(false, nil)
	line := `#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID="aac",NAME="English",DEFAULT=YES,URI="audio/en.m3u8"`
	out := MediaTagProxyRule{}.Transform(line, LineMedia, NewProcessorState(), ctx)
	require.Len(t, out, 1)

	rewritten := out[0]
	assert.Contains(t, rewritten, `TYPE=AUDIO`)
	assert.Contains(t, rewritten, `GROUP-ID="aac"`)
	assert.Contains(t, rewritten, `NAME="English"`)
	assert.Contains(t, rewritten, `DEFAULT=YES`)
	assert.Contains(t, rewritten, "/manifest?url=")
	assert.Contains(t, rewritten, `audio%2Fen.m3u8`)
}

func TestMediaTagProxyRulePreservesQuotingVerbatim(t *testing.T) {
	ctx := newTestContext(false, nil)
	line := `#EXT-X-MEDIA:TYPE=AUDIO,GROUP-ID="aac",CHANNELS="6",DEFAULT=NO,URI="audio/en.m3u8"`
	out := MediaTagProxyRule{}.Transform(line, LineMedia, NewProcessorState(), ctx)
	require.Len(t, out, 1)

	// Quoted attributes stay quoted, unquoted tokens stay unquoted.
	assert.Contains(t, out[0], `CHANNELS="6"`)
	assert.Contains(t, out[0], `GROUP-ID="aac"`)
	assert.Contains(t, out[0], `TYPE=AUDIO`)
	assert.Contains(t, out[0], `DEFAULT=NO`)
	assert.NotContains(t, out[0], `CHANNELS=6,`)
}

func TestMediaTagProxyRuleWithoutURIPassesThroughAttributes(t *testing.T) {
	ctx := newTestContext(false, nil)
	line := `#EXT-X-MEDIA:TYPE=CLOSED-CAPTIONS,GROUP-ID="cc",NAME="English",INSTREAM-ID="CC1"`
	out := MediaTagProxyRule{}.Transform(line, LineMedia, NewProcessorState(), ctx)
	require.Len(t, out, 1)
	assert.Equal(t, line, out[0])
}

func TestMethodQueryValue(t *testing.T) {
	assert.Equal(t, "ssa", methodQueryValue(KeyMethodSampleAES))
	assert.Equal(t, "ssa-ctr", methodQueryValue(KeyMethodSampleAESCTR))
	assert.Equal(t, "cenc", methodQueryValue(KeyMethodSampleAESCENC))
}

func TestSegmentExtensionFallsBackToTS(t *testing.T) {
	assert.Equal(t, "ts", segmentExtension("https://cdn.example.com/noext/seg"))
	assert.Equal(t, "m4s", segmentExtension("https://cdn.example.com/seg.m4s"))
}

func TestKeyTagRewriteRuleOnlyInterceptsServerDecryptMethods(t *testing.T) {
	key, err := ParseDecryptionKey("000102030405060708090a0b0c0d0e0f")
	require.NoError(t, err)
	ctx := newTestContext(true, &key)

	state := NewProcessorState()
	state.UpdateKey(KeyInfo{Method: KeyMethodSampleAES})
	assert.True(t, KeyTagRewriteRule{}.Matches(LineKey, state, ctx))

	state2 := NewProcessorState()
	state2.UpdateKey(KeyInfo{Method: KeyMethodAES128})
	assert.False(t, KeyTagRewriteRule{}.Matches(LineKey, state2, ctx))
}
