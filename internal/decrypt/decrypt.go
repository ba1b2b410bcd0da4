// Package decrypt dispatches a fetched media segment to the
// appropriate sample-level decryption primitive: SAMPLE-AES over
// MPEG-TS PES packets, SAMPLE-AES over AAC ADTS frames, or CENC/CTR
// over fragmented MP4. Each primitive is a self-contained byte-level
// walk over its container format, built on crypto/aes and
// crypto/cipher.
package decrypt

import (
	"github.com/ManuGH/hlsgate/internal/apierror"
	"github.com/ManuGH/hlsgate/internal/hls"
)

// Decryptor is constructed per segment request with the method, key
// material, and IV the manifest rewrite already resolved.
type Decryptor struct {
	Method hls.KeyMethod
	Key    hls.DecryptionKey
	IV     [16]byte
}

// New returns a Decryptor for the given method/key/iv.
func New(method hls.KeyMethod, key hls.DecryptionKey, iv [16]byte) *Decryptor {
	return &Decryptor{Method: method, Key: key, IV: iv}
}

// Decrypt dispatches on (method, format) and returns the decrypted
// segment bytes. init is the fMP4 initialization segment's bytes,
// used only for the CENC/MP4 combination, and there only to resolve a
// Multi key's KID; it may be nil otherwise.
func (d *Decryptor) Decrypt(data []byte, init []byte, format hls.SegmentFormat) ([]byte, error) {
	switch {
	case d.Method == hls.KeyMethodSampleAES && format == hls.FormatMPEGTS:
		key, ok := d.Key.Single()
		if !ok {
			return nil, apierror.New(apierror.KindSingleKeyRequired, "SAMPLE-AES over MPEG-TS requires a single key")
		}
		return decryptMPEGTSSampleAES(data, key, d.IV)

	case d.Method == hls.KeyMethodSampleAES && format == hls.FormatAAC:
		key, ok := d.Key.Single()
		if !ok {
			return nil, apierror.New(apierror.KindSingleKeyRequired, "SAMPLE-AES over AAC requires a single key")
		}
		return decryptAACSampleAES(data, key, d.IV)

	case (d.Method == hls.KeyMethodSampleAESCTR || d.Method == hls.KeyMethodSampleAESCENC) && format == hls.FormatMP4:
		return decryptCENC(data, init, d.Key, d.IV)

	default:
		return nil, apierror.New(apierror.KindUnsupportedCombination, "unsupported combination method=%s format=%s", d.Method, format)
	}
}
