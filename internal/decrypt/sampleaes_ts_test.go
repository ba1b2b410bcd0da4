package decrypt

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildTSPacket returns a single 188-byte TS packet carrying a PES
// packet start with an empty optional header, whose elementary-stream
// payload is the given esData (padded/truncated to fill the packet).
func buildTSPacket(streamID byte, esData []byte) []byte {
	pkt := make([]byte, tsPacketSize)
	pkt[0] = 0x47
	pkt[1] = 0x40 // payload_unit_start_indicator
	pkt[2] = 0x00
	pkt[3] = 0x10 // adaptation_field_control = payload only

	payload := pkt[4:]
	payload[0], payload[1], payload[2] = 0x00, 0x00, 0x01
	payload[3] = streamID
	payload[4], payload[5] = 0x00, 0xA0 // PES_packet_length, unused by the decryptor
	payload[6] = 0x80
	payload[7] = 0x00
	payload[8] = 0x00 // PES_header_data_length

	copy(payload[9:], esData)
	return pkt
}

func TestDecryptMPEGTSSampleAESDecryptsESPayload(t *testing.T) {
	key := make([]byte, 16)
	_, err := rand.Read(key)
	require.NoError(t, err)
	var iv [16]byte
	_, err = rand.Read(iv[:])
	require.NoError(t, err)

	plaintext := bytes.Repeat([]byte("0123456789ABCDEF"), 10) // 160 bytes, 10 blocks
	block, err := aes.NewCipher(key)
	require.NoError(t, err)
	ciphertext := make([]byte, len(plaintext))
	cipher.NewCBCEncrypter(block, iv[:]).CryptBlocks(ciphertext, plaintext)

	esData := make([]byte, 175) // fills the remainder of the 184-byte TS payload
	copy(esData, ciphertext)

	pkt := buildTSPacket(0xE0, esData)

	out, err := decryptMPEGTSSampleAES(pkt, key, iv)
	require.NoError(t, err)

	decryptedES := out[4+9:]
	assert.Equal(t, plaintext, decryptedES[:160])
}

func TestDecryptMPEGTSSampleAESSkipsNonSyncPackets(t *testing.T) {
	key := make([]byte, 16)
	garbage := bytes.Repeat([]byte{0xAA}, tsPacketSize)

	out, err := decryptMPEGTSSampleAES(garbage, key, [16]byte{})
	require.NoError(t, err)
	assert.Equal(t, garbage, out)
}

func TestDecryptMPEGTSSampleAESSkipsExcludedStreamIDs(t *testing.T) {
	key := make([]byte, 16)
	esData := bytes.Repeat([]byte{0x11}, 175)
	pkt := buildTSPacket(streamIDProgramStreamMap, esData)

	out, err := decryptMPEGTSSampleAES(pkt, key, [16]byte{})
	require.NoError(t, err)
	assert.Equal(t, pkt, out) // left entirely untouched
}

func TestTSPayloadStartPayloadOnly(t *testing.T) {
	pkt := make([]byte, tsPacketSize)
	pkt[3] = 0x10
	start, ok := tsPayloadStart(pkt)
	assert.True(t, ok)
	assert.Equal(t, 4, start)
}

func TestTSPayloadStartWithAdaptationField(t *testing.T) {
	pkt := make([]byte, tsPacketSize)
	pkt[3] = 0x30 // adaptation field + payload
	pkt[4] = 10   // adaptation_field_length
	start, ok := tsPayloadStart(pkt)
	assert.True(t, ok)
	assert.Equal(t, 15, start)
}

func TestTSPayloadStartAdaptationFieldOnly(t *testing.T) {
	pkt := make([]byte, tsPacketSize)
	pkt[3] = 0x20
	_, ok := tsPayloadStart(pkt)
	assert.False(t, ok)
}

func TestIsPESStart(t *testing.T) {
	assert.True(t, isPESStart([]byte{0x00, 0x00, 0x01, 0xE0, 0x00, 0x00}))
	assert.False(t, isPESStart([]byte{0x00, 0x00, 0x02, 0xE0, 0x00, 0x00}))
	assert.False(t, isPESStart([]byte{0x00, 0x00}))
}

func TestStreamCarriesSampleAES(t *testing.T) {
	assert.False(t, streamCarriesSampleAES(streamIDProgramStreamMap))
	assert.False(t, streamCarriesSampleAES(streamIDPaddingStream))
	assert.False(t, streamCarriesSampleAES(streamIDEMMStream))
	assert.True(t, streamCarriesSampleAES(0xE0))
	assert.True(t, streamCarriesSampleAES(0xC0))
}
