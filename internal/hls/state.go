package hls

import "encoding/binary"

// PlaylistType records which kind of playlist the rewrite has
// determined it is processing, derived purely from tags observed so
// far: MASTER iff a STREAM-INF has been seen, MEDIA iff
// a MEDIA-SEQUENCE has been seen.
type PlaylistType int

const (
	PlaylistUnset PlaylistType = iota
	PlaylistMaster
	PlaylistMedia
)

// PendingContext records what kind of line the processor expects the
// next URI line to resolve, set by the tag immediately preceding it.
type PendingContext int

const (
	PendingNone PendingContext = iota
	PendingVariant
	PendingSegment
)

// ProcessorState is the mutable, single-threaded state machine
// threaded through one playlist rewrite. It is never shared across
// requests.
type ProcessorState struct {
	PlaylistType PlaylistType

	CurrentKey *KeyInfo
	CurrentMap *MapInfo

	MediaSequence uint64
	SegmentIndex  uint64

	Pending PendingContext

	// PendingStreamInfo carries the parsed EXT-X-STREAM-INF attributes
	// for the variant URI line that follows it, cleared with the
	// pending context.
	PendingStreamInfo *StreamInfo

	CurrentByteRange  *ByteRange
	LastByteRangeEnd  uint64
	hasLastByteRangeEnd bool
}

// NewProcessorState returns a zero-valued state machine ready for the
// first line of a fresh playlist.
func NewProcessorState() *ProcessorState {
	return &ProcessorState{}
}

// UpdateMediaSequence sets the media sequence
// counter, marks the playlist as MEDIA, and resets the per-segment
// index for the new base.
func (s *ProcessorState) UpdateMediaSequence(n uint64) {
	s.MediaSequence = n
	s.PlaylistType = PlaylistMedia
	s.SegmentIndex = 0
}

// UpdateKey overwrites the current key context. Per RFC 8216 §4.3.2.4,
// METHOD=NONE clears the active key; any other method (including
// unknown vendor values) replaces it. The key persists across
// subsequent lines — notably across EXT-X-DISCONTINUITY — until the
// next EXT-X-KEY. This is deliberate, not a bug: a playlist that
// only signals a new key context via EXT-X-DISCONTINUITY will be
// mis-decrypted, and that is the behavior observed upstream.
func (s *ProcessorState) UpdateKey(k KeyInfo) {
	if k.Method.IsNone() {
		s.CurrentKey = nil
		return
	}
	kk := k
	s.CurrentKey = &kk
}

// UpdateMap overwrites the current initialization-segment context.
func (s *ProcessorState) UpdateMap(m MapInfo) {
	mm := m
	s.CurrentMap = &mm
}

// SetPendingVariant marks the playlist as MASTER and arms the next
// URI line to be treated as a variant sub-playlist reference.
func (s *ProcessorState) SetPendingVariant(info StreamInfo) {
	s.PlaylistType = PlaylistMaster
	s.Pending = PendingVariant
	s.PendingStreamInfo = &info
}

// SetPendingSegment arms the next URI line to be treated as a media
// segment, called on EXTINF.
func (s *ProcessorState) SetPendingSegment() {
	s.Pending = PendingSegment
}

// SetByteRange resolves an offset-less continuation against the
// previous segment's recorded end and stores the result as the
// current byte range.
func (s *ProcessorState) SetByteRange(br ByteRange) {
	if !br.HasOff && s.hasLastByteRangeEnd {
		br = br.WithOffset(s.LastByteRangeEnd)
	}
	bb := br
	s.CurrentByteRange = &bb
}

// AdvanceSegment is invoked after emitting a URI line that was in
// SEGMENT pending context: it increments the segment index,
// carries the current byte range's end offset forward as the
// continuation base for the next EXT-X-BYTERANGE, and clears the
// per-segment transient fields.
func (s *ProcessorState) AdvanceSegment() {
	s.SegmentIndex++
	if s.CurrentByteRange != nil {
		s.LastByteRangeEnd = s.CurrentByteRange.EndOffset()
		s.hasLastByteRangeEnd = true
	}
	s.CurrentByteRange = nil
	s.Pending = PendingNone
	s.PendingStreamInfo = nil
}

// ClearPending clears the pending context without advancing the
// segment index or counters — used after a variant URI, which has no
// segment bookkeeping of its own.
func (s *ProcessorState) ClearPending() {
	s.Pending = PendingNone
	s.PendingStreamInfo = nil
}

// CurrentIV returns the active initialization vector for the segment
// about to be emitted: the explicit EXT-X-KEY IV when present,
// otherwise the RFC 8216 §5.2 default derived from
// (media_sequence + segment_index) in the low 8 bytes of a 16-byte
// block.
func (s *ProcessorState) CurrentIV() [16]byte {
	var iv [16]byte
	if s.CurrentKey != nil && s.CurrentKey.IV != nil {
		copy(iv[:], s.CurrentKey.IV)
		return iv
	}
	binary.BigEndian.PutUint64(iv[8:], s.MediaSequence+s.SegmentIndex)
	return iv
}
