package decrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

// decryptAACSampleAES walks a raw ADTS elementary stream (a sequence
// of AAC frames, each with its own 7-byte, or 9-byte with CRC, ADTS
// header) and decrypts each frame's raw_data_block in 16-byte CBC
// blocks, per Apple's SAMPLE-AES-for-audio convention. The ADTS
// header itself is never encrypted, and a frame's trailing partial
// block (fewer than 16 residual bytes) is left in the clear. Each
// frame starts a fresh CBC chain seeded by the segment IV.
func decryptAACSampleAES(data []byte, key []byte, iv [16]byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("sample-aes: build cipher: %w", err)
	}

	out := make([]byte, len(data))
	copy(out, data)

	off := 0
	for off+7 <= len(out) {
		hdr, ok := parseADTSHeader(out[off:])
		if !ok {
			break // not a syncword, stop rather than guess at resync
		}
		frameEnd := off + hdr.frameLength
		if frameEnd > len(out) {
			break // truncated trailing frame
		}

		payloadStart := off + hdr.headerLength
		if payloadStart < frameEnd {
			cipherLen := (frameEnd - payloadStart) / aes.BlockSize * aes.BlockSize
			if cipherLen > 0 {
				cbc := cipher.NewCBCDecrypter(block, iv[:])
				cbc.CryptBlocks(out[payloadStart:payloadStart+cipherLen], out[payloadStart:payloadStart+cipherLen])
			}
		}

		off = frameEnd
	}

	return out, nil
}

type adtsHeader struct {
	headerLength int
	frameLength  int
}

// parseADTSHeader reads the fields needed to locate the next frame
// and the start of its raw_data_block: the 12-bit syncword, the
// protection_absent bit (selects 7 vs 9 byte header), and the 13-bit
// frame_length (header + payload, including itself).
func parseADTSHeader(b []byte) (adtsHeader, bool) {
	if len(b) < 7 {
		return adtsHeader{}, false
	}
	if b[0] != 0xFF || b[1]&0xF0 != 0xF0 {
		return adtsHeader{}, false
	}
	protectionAbsent := b[1]&0x01 != 0
	frameLength := int(b[3]&0x03)<<11 | int(b[4])<<3 | int(b[5])>>5
	if frameLength < 7 {
		return adtsHeader{}, false
	}
	headerLength := 9
	if protectionAbsent {
		headerLength = 7
	}
	return adtsHeader{headerLength: headerLength, frameLength: frameLength}, true
}
