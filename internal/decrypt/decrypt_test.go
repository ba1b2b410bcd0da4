package decrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/hlsgate/internal/apierror"
	"github.com/ManuGH/hlsgate/internal/hls"
)

func TestDecryptDispatchesSampleAESOverMPEGTS(t *testing.T) {
	key := make([]byte, 16)
	_, err := rand.Read(key)
	require.NoError(t, err)
	var iv [16]byte

	plaintext := make([]byte, 160)
	block, err := aes.NewCipher(key)
	require.NoError(t, err)
	ciphertext := make([]byte, len(plaintext))
	cipher.NewCBCEncrypter(block, iv[:]).CryptBlocks(ciphertext, plaintext)

	esData := make([]byte, 175)
	copy(esData, ciphertext)
	pkt := buildTSPacket(0xE0, esData)

	dk, err := hls.ParseDecryptionKey(hexEncode(key))
	require.NoError(t, err)

	d := New(hls.KeyMethodSampleAES, dk, iv)
	out, err := d.Decrypt(pkt, nil, hls.FormatMPEGTS)
	require.NoError(t, err)
	assert.Len(t, out, len(pkt))
}

func TestDecryptRejectsUnsupportedCombination(t *testing.T) {
	key := make([]byte, 16)
	dk, err := hls.ParseDecryptionKey(hexEncode(key))
	require.NoError(t, err)

	d := New(hls.KeyMethodAES128, dk, [16]byte{})
	_, err = d.Decrypt([]byte{0x00}, nil, hls.FormatMPEGTS)
	require.Error(t, err)
	assert.Equal(t, apierror.KindUnsupportedCombination, apierror.KindOf(err))
}

func TestDecryptSampleAESRequiresSingleKey(t *testing.T) {
	kid := make([]byte, 16)
	key := make([]byte, 16)
	dk, err := hls.ParseDecryptionKey(hexEncode(kid) + ":" + hexEncode(key))
	require.NoError(t, err)

	d := New(hls.KeyMethodSampleAES, dk, [16]byte{})
	_, err = d.Decrypt(make([]byte, tsPacketSize), nil, hls.FormatMPEGTS)
	require.Error(t, err)
	assert.Equal(t, apierror.KindSingleKeyRequired, apierror.KindOf(err))
}

func TestDecryptSampleAESRequiresSingleKeyForAAC(t *testing.T) {
	kid := make([]byte, 16)
	key := make([]byte, 16)
	dk, err := hls.ParseDecryptionKey(hexEncode(kid) + ":" + hexEncode(key))
	require.NoError(t, err)

	d := New(hls.KeyMethodSampleAES, dk, [16]byte{})
	_, err = d.Decrypt(buildADTSFrame(make([]byte, 16)), nil, hls.FormatAAC)
	require.Error(t, err)
	assert.Equal(t, apierror.KindSingleKeyRequired, apierror.KindOf(err))
}
