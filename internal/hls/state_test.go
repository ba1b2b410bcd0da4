package hls

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateMediaSequenceMarksMediaAndResetsIndex(t *testing.T) {
	s := NewProcessorState()
	s.SegmentIndex = 7
	s.UpdateMediaSequence(42)
	assert.Equal(t, PlaylistMedia, s.PlaylistType)
	assert.Equal(t, uint64(42), s.MediaSequence)
	assert.Equal(t, uint64(0), s.SegmentIndex)
}

func TestUpdateKeyNoneClearsCurrent(t *testing.T) {
	s := NewProcessorState()
	s.UpdateKey(KeyInfo{Method: KeyMethodSampleAES})
	require.NotNil(t, s.CurrentKey)
	s.UpdateKey(KeyInfo{Method: KeyMethodNone})
	assert.Nil(t, s.CurrentKey)
}

func TestKeyPersistsAcrossDiscontinuity(t *testing.T) {
	s := NewProcessorState()
	s.UpdateKey(KeyInfo{Method: KeyMethodSampleAES, URI: "k1"})
	// A discontinuity tag itself never touches CurrentKey.
	line := "#EXT-X-DISCONTINUITY"
	NewStreamProcessor(DefaultRules()).preTransform(line, Classify(line), s)
	require.NotNil(t, s.CurrentKey)
	assert.Equal(t, "k1", s.CurrentKey.URI)
}

func TestSetPendingVariantMarksMasterAndCarriesStreamInfo(t *testing.T) {
	s := NewProcessorState()
	s.SetPendingVariant(ParseStreamInfo(`BANDWIDTH=1000000,RESOLUTION=1280x720`))
	assert.Equal(t, PlaylistMaster, s.PlaylistType)
	assert.Equal(t, PendingVariant, s.Pending)
	require.NotNil(t, s.PendingStreamInfo)
	assert.Equal(t, uint64(1000000), s.PendingStreamInfo.Bandwidth)

	s.ClearPending()
	assert.Nil(t, s.PendingStreamInfo)
}

func TestSetByteRangeResolvesContinuation(t *testing.T) {
	s := NewProcessorState()
	s.SetByteRange(ByteRange{Length: 1000, Offset: 0, HasOff: true})
	s.AdvanceSegment()

	s.SetByteRange(ByteRange{Length: 500}) // no offset: continue from previous end
	require.NotNil(t, s.CurrentByteRange)
	assert.Equal(t, uint64(1000), s.CurrentByteRange.Offset)

	s.AdvanceSegment()
	s.SetByteRange(ByteRange{Length: 500})
	assert.Equal(t, uint64(1500), s.CurrentByteRange.Offset)
}

func TestAdvanceSegmentIncrementsIndexAndClearsByteRange(t *testing.T) {
	s := NewProcessorState()
	s.SetPendingSegment()
	s.SetByteRange(ByteRange{Length: 100, Offset: 0, HasOff: true})
	s.AdvanceSegment()
	assert.Equal(t, uint64(1), s.SegmentIndex)
	assert.Nil(t, s.CurrentByteRange)
	assert.Equal(t, PendingNone, s.Pending)
}

func TestCurrentIVExplicitVsDerived(t *testing.T) {
	s := NewProcessorState()
	s.MediaSequence = 10
	s.SegmentIndex = 3

	derived := s.CurrentIV()
	want := [16]byte{}
	want[15] = 13
	assert.Equal(t, want, derived)

	explicitIV := make([]byte, 16)
	explicitIV[0] = 0xAB
	s.UpdateKey(KeyInfo{Method: KeyMethodSampleAES, IV: explicitIV})
	explicit := s.CurrentIV()
	assert.Equal(t, byte(0xAB), explicit[0])
}

func TestCurrentIVConsecutiveSegmentsDifferByOne(t *testing.T) {
	s := NewProcessorState()
	s.UpdateMediaSequence(0)
	s.SetPendingSegment()
	iv0 := s.CurrentIV()
	s.AdvanceSegment()

	s.SetPendingSegment()
	iv1 := s.CurrentIV()

	n0 := iv0[15]
	n1 := iv1[15]
	assert.Equal(t, n0+1, n1)
}
