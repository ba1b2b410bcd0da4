package signing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	k := New([]byte("super-secret"))
	url := "https://cdn.example.com/master.m3u8"

	sig := k.Sign(url)
	assert.NotEmpty(t, sig)
	assert.True(t, k.Verify(url, sig))
}

func TestVerifyRejectsTamperedURL(t *testing.T) {
	k := New([]byte("super-secret"))
	sig := k.Sign("https://cdn.example.com/master.m3u8")
	assert.False(t, k.Verify("https://evil.example.com/master.m3u8", sig))
}

func TestVerifyRejectsWrongSignature(t *testing.T) {
	k := New([]byte("super-secret"))
	assert.False(t, k.Verify("https://cdn.example.com/master.m3u8", "deadbeef"))
}

func TestVerifyRejectsNonHexSignature(t *testing.T) {
	k := New([]byte("super-secret"))
	assert.False(t, k.Verify("https://cdn.example.com/master.m3u8", "not-hex!!"))
}

func TestUnconfiguredKeyBypassesVerification(t *testing.T) {
	k := New(nil)
	assert.False(t, k.Enabled())
	assert.Equal(t, "", k.Sign("https://cdn.example.com/master.m3u8"))
	assert.True(t, k.Verify("https://cdn.example.com/master.m3u8", ""))
	assert.True(t, k.Verify("https://cdn.example.com/master.m3u8", "anything"))
}

func TestDifferentSecretsProduceDifferentSignatures(t *testing.T) {
	url := "https://cdn.example.com/master.m3u8"
	sigA := New([]byte("secret-a")).Sign(url)
	sigB := New([]byte("secret-b")).Sign(url)
	assert.NotEqual(t, sigA, sigB)
}
