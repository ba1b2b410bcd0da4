package decrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

const tsPacketSize = 188

// PES stream IDs that never carry SAMPLE-AES-encrypted payload: the
// program stream map, padding, and other non-audio/video control
// streams walk past unencrypted per Apple's SAMPLE-AES specification.
const (
	streamIDProgramStreamMap = 0xBC
	streamIDPaddingStream    = 0xBE
	streamIDPrivateStream2   = 0xBF
	streamIDECMStream        = 0xF0
	streamIDEMMStream        = 0xF1
	streamIDProgramStreamDir = 0xFF
)

// decryptMPEGTSSampleAES walks an MPEG-TS elementary stream and
// decrypts the SAMPLE-AES-protected portion of each PES packet's
// payload in place. Apple's SAMPLE-AES convention encrypts the
// payload in 16-byte CBC blocks seeded by the segment IV on every PES
// packet boundary, leaving any trailing partial block (fewer than 16
// residual bytes) in the clear. Only the part of a PES packet carried
// in its first TS packet (payload_unit_start_indicator set) is
// decrypted; payload bytes in continuation TS packets are passed
// through unchanged.
func decryptMPEGTSSampleAES(data []byte, key []byte, iv [16]byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("sample-aes: build cipher: %w", err)
	}

	out := make([]byte, len(data))
	copy(out, data)

	for off := 0; off+tsPacketSize <= len(out); off += tsPacketSize {
		pkt := out[off : off+tsPacketSize]
		if pkt[0] != 0x47 {
			continue // not a sync'd TS packet, leave untouched
		}
		payloadStart, hasPayload := tsPayloadStart(pkt)
		if !hasPayload {
			continue
		}
		payloadUnitStart := pkt[1]&0x40 != 0
		if !payloadUnitStart {
			continue // continuation packet, no PES header to anchor on
		}

		payload := pkt[payloadStart:]
		if !isPESStart(payload) {
			continue
		}
		streamID := payload[3]
		if !streamCarriesSampleAES(streamID) {
			continue
		}

		hdrLen, ok := pesHeaderDataLength(payload)
		if !ok {
			continue
		}
		esStart := 9 + hdrLen
		if esStart >= len(payload) {
			continue
		}

		cipherLen := (len(payload) - esStart) / aes.BlockSize * aes.BlockSize
		if cipherLen == 0 {
			continue
		}

		cbc := cipher.NewCBCDecrypter(block, iv[:])
		cbc.CryptBlocks(payload[esStart:esStart+cipherLen], payload[esStart:esStart+cipherLen])
	}

	return out, nil
}

// tsPayloadStart returns the offset into pkt of the payload bytes
// (past the 4-byte TS header and any adaptation field), and whether
// this packet carries a payload at all.
func tsPayloadStart(pkt []byte) (int, bool) {
	adaptationFieldControl := (pkt[3] >> 4) & 0x03
	switch adaptationFieldControl {
	case 0x01: // payload only
		return 4, true
	case 0x03: // adaptation field followed by payload
		if len(pkt) < 5 {
			return 0, false
		}
		adaptLen := int(pkt[4])
		start := 5 + adaptLen
		return start, start < len(pkt)
	default: // adaptation field only, or reserved
		return 0, false
	}
}

func isPESStart(b []byte) bool {
	return len(b) >= 6 && b[0] == 0x00 && b[1] == 0x00 && b[2] == 0x01
}

func streamCarriesSampleAES(streamID byte) bool {
	switch streamID {
	case streamIDProgramStreamMap, streamIDPaddingStream, streamIDPrivateStream2,
		streamIDECMStream, streamIDEMMStream, streamIDProgramStreamDir:
		return false
	}
	return true
}

// pesHeaderDataLength reads the optional PES header's declared length
// (the byte at offset 8 once the optional-fields flags at offset 6-7
// are present), returning false when the packet is too short to carry
// one.
func pesHeaderDataLength(payload []byte) (int, bool) {
	if len(payload) < 9 {
		return 0, false
	}
	return int(payload[8]), true
}
