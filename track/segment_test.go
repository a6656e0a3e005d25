package track

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func videoAnalysis(sampleCount uint32, delta uint32, timescale uint32, syncs []uint32) TrackAnalysis {
	st := SampleTable{
		TimeToSample:   []TimeToSampleEntry{{Count: sampleCount, Delta: delta}},
		SampleToChunk:  []SampleToChunkEntry{{FirstChunk: 1, SamplesPerChunk: sampleCount, SampleDescriptionID: 1}},
		UniformSize:    100,
		ChunkOffsets:   []uint64{0},
		SyncSamples:    syncs,
		HasSyncSamples: true,
		SampleCount:    sampleCount,
	}
	st.Build()
	return TrackAnalysis{
		Info:  TrackInfo{TrackID: 1, MediaType: MediaVideo, Timescale: timescale},
		Table: st,
	}
}

func TestCalculateSegmentsCutsAtSyncBoundaryCrossingTarget(t *testing.T) {
	ta := videoAnalysis(90, 3000, 90000, []uint32{1, 31, 61})

	segments := CalculateSegments(ta, 2.0)
	require.Len(t, segments, 2)

	require.EqualValues(t, 0, segments[0].FirstSample)
	require.EqualValues(t, 60, segments[0].SampleCount)
	require.InDelta(t, 2.0, segments[0].Duration, 1e-9)
	require.True(t, segments[0].StartsWithKeyframe)

	require.EqualValues(t, 60, segments[1].FirstSample)
	require.EqualValues(t, 30, segments[1].SampleCount)
	require.InDelta(t, 1.0, segments[1].Duration, 1e-9)
	require.True(t, segments[1].StartsWithKeyframe)
}

func TestAlignedAudioSegmentMatchesVideoWindow(t *testing.T) {
	video := videoAnalysis(90, 3000, 90000, []uint32{1, 31, 61})
	videoSegments := CalculateSegments(video, 2.0)
	require.Len(t, videoSegments, 2)

	audioSt := SampleTable{
		TimeToSample:  []TimeToSampleEntry{{Count: 430, Delta: 1024}},
		SampleToChunk: []SampleToChunkEntry{{FirstChunk: 1, SamplesPerChunk: 430, SampleDescriptionID: 1}},
		UniformSize:   50,
		ChunkOffsets:  []uint64{0},
		SampleCount:   430,
	}
	audioSt.Build()
	audio := TrackAnalysis{
		Info:  TrackInfo{TrackID: 2, MediaType: MediaAudio, Timescale: 44100},
		Table: audioSt,
	}

	aligned := AlignedAudioSegment(videoSegments[0], 90000, audio)
	require.EqualValues(t, 0, aligned.FirstSample)
	require.InDelta(t, 87, float64(aligned.SampleCount), 1.0)
	require.True(t, aligned.StartsWithKeyframe)
}

func TestAlignedAudioSegmentEmptyOnZeroTimescale(t *testing.T) {
	audio := TrackAnalysis{Info: TrackInfo{Timescale: 0}}
	got := AlignedAudioSegment(SegmentInfo{}, 90000, audio)
	require.Equal(t, SegmentInfo{}, got)
}
