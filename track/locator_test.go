package track

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocatorCompositionOffsetAppliesToPresentationTime(t *testing.T) {
	ta := videoAnalysis(90, 3000, 90000, []uint32{1, 31, 61})
	ta.Table.CompositionOffsets = []CompositionOffsetEntry{{Count: 90, Offset: 1500}}
	ta.Table.Build()

	loc := NewLocator(ta)
	require.EqualValues(t, 0, loc.DecodingTime(0))
	require.EqualValues(t, 1500, loc.PresentationTime(0))
	require.EqualValues(t, 3000, loc.DecodingTime(1))
	require.EqualValues(t, 4500, loc.PresentationTime(1))
}

func TestLocatorDecodingTimeIsMonotonic(t *testing.T) {
	ta := videoAnalysis(90, 3000, 90000, []uint32{1, 31, 61})
	loc := NewLocator(ta)

	var prev uint64
	for i := uint64(0); i < uint64(ta.Table.SampleCount); i++ {
		dts := loc.DecodingTime(i)
		if i > 0 {
			require.GreaterOrEqual(t, dts, prev)
		}
		prev = dts
	}
}

func TestLocatorSampleSizeAndOffsetInvariants(t *testing.T) {
	ta := videoAnalysis(90, 3000, 90000, []uint32{1, 31, 61})
	loc := NewLocator(ta)

	firstChunkOffset := ta.Table.ChunkOffsets[0]
	for i := uint64(0); i < uint64(ta.Table.SampleCount); i++ {
		require.Greater(t, loc.SampleSize(i), uint32(0))
		require.GreaterOrEqual(t, loc.SampleOffset(i), firstChunkOffset)
	}
}

func TestLocatorSyncSampleIndicesAreZeroBased(t *testing.T) {
	ta := videoAnalysis(90, 3000, 90000, []uint32{1, 31, 61})
	loc := NewLocator(ta)
	require.Equal(t, []uint64{0, 30, 60}, loc.SyncSampleIndices())
	require.True(t, loc.IsSyncSample(0))
	require.True(t, loc.IsSyncSample(30))
	require.False(t, loc.IsSyncSample(1))
}

func TestLocatorUniformStszSameSizeForEverySample(t *testing.T) {
	ta := videoAnalysis(90, 3000, 90000, []uint32{1, 31, 61})
	loc := NewLocator(ta)
	for i := uint64(0); i < 90; i++ {
		require.EqualValues(t, 100, loc.SampleSize(i))
	}
}
