package fmp4

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/streamforge/hlsprep/bmff"
	"github.com/streamforge/hlsprep/track"
)

func uniformTrack(trackID uint32, mt track.MediaType, sampleCount uint32, delta uint32, timescale uint32, size uint32) track.TrackAnalysis {
	st := track.SampleTable{
		TimeToSample:  []track.TimeToSampleEntry{{Count: sampleCount, Delta: delta}},
		SampleToChunk: []track.SampleToChunkEntry{{FirstChunk: 1, SamplesPerChunk: sampleCount, SampleDescriptionID: 1}},
		UniformSize:   size,
		ChunkOffsets:  []uint64{0},
		SampleCount:   sampleCount,
	}
	st.Build()
	return track.TrackAnalysis{
		Info: track.TrackInfo{
			TrackID:   trackID,
			MediaType: mt,
			Timescale: timescale,
			Codec:     "avc1",
		},
		Table: st,
	}
}

func TestGenerateMediaSegmentAppliesCompositionOffset(t *testing.T) {
	ta := uniformTrack(1, track.MediaVideo, 90, 3000, 90000, 100)
	ta.Table.CompositionOffsets = []track.CompositionOffsetEntry{{Count: 90, Offset: 1500}}
	ta.Table.Build()

	seg := track.SegmentInfo{FirstSample: 0, SampleCount: 90, StartDTS: 0, StartPTS: 1500, StartsWithKeyframe: true}
	source := make([]byte, 90*100)

	data := GenerateMediaSegment(seg, 1, ta, source)
	boxes, err := bmff.ReadBoxes(data)
	require.NoError(t, err)

	var moof *bmff.Box
	for _, b := range boxes {
		if b.Type == bmff.TypeMoof {
			moof = b
		}
	}
	require.NotNil(t, moof)

	trun := moof.FindByPath("traf/trun")
	require.NotNil(t, trun)
	require.NotZero(t, trun.Flags&bmff.TrunSampleCompositionTimeOffsetPresent)
	// sample_count, data_offset, then sample 0: duration, size, flags, composition offset
	require.EqualValues(t, 1500, int32(be.Uint32(trun.Payload[20:24])))

	loc := track.NewLocator(ta)
	require.EqualValues(t, 1500, loc.PresentationTime(0)-int64(loc.DecodingTime(0)))
}

func TestGenerateMediaSegmentAudioOnlyExcludesSampleFlags(t *testing.T) {
	ta := uniformTrack(2, track.MediaAudio, 430, 1024, 44100, 50)
	seg := track.SegmentInfo{FirstSample: 0, SampleCount: 44, StartDTS: 0, StartsWithKeyframe: true}
	source := make([]byte, 430*50)

	data := GenerateMediaSegment(seg, 0, ta, source)
	boxes, err := bmff.ReadBoxes(data)
	require.NoError(t, err)

	var moof *bmff.Box
	for _, b := range boxes {
		if b.Type == bmff.TypeMoof {
			moof = b
		}
	}
	trun := moof.FindByPath("traf/trun")
	require.NotNil(t, trun)
	require.Zero(t, trun.Flags&bmff.TrunSampleFlagsPresent)
}

func TestGenerateMuxedSegmentPacksBothTracksIntoOneMdat(t *testing.T) {
	video := uniformTrack(1, track.MediaVideo, 30, 3000, 90000, 100)
	audio := uniformTrack(2, track.MediaAudio, 430, 1024, 44100, 50)

	videoSeg := track.SegmentInfo{FirstSample: 0, SampleCount: 30, StartDTS: 0, StartsWithKeyframe: true}
	audioSeg := track.SegmentInfo{FirstSample: 0, SampleCount: 430, StartDTS: 0, StartsWithKeyframe: true}

	source := make([]byte, 30*100+430*50)
	for i := range source {
		source[i] = byte(i)
	}

	data := GenerateMuxedSegment(
		track.MuxedTrackInput{Segment: videoSeg, Analysis: video},
		track.MuxedTrackInput{Segment: audioSeg, Analysis: audio},
		5, source,
	)

	boxes, err := bmff.ReadBoxes(data)
	require.NoError(t, err)

	var moof, mdat *bmff.Box
	for _, b := range boxes {
		switch b.Type {
		case bmff.TypeMoof:
			moof = b
		case bmff.TypeMdat:
			mdat = b
		}
	}
	require.NotNil(t, moof)
	require.NotNil(t, mdat)

	trafs := moof.FindChildren(bmff.TypeTraf)
	require.Len(t, trafs, 2)

	require.GreaterOrEqual(t, mdat.DataSize(), uint64(30*100+430*50))

	moofEnd := moof.Offset + int(moof.Size)
	videoTrun := trafs[0].FindChild(bmff.TypeTrun)
	audioTrun := trafs[1].FindChild(bmff.TypeTrun)
	require.NotNil(t, videoTrun)
	require.NotNil(t, audioTrun)

	videoOffset := int32(be.Uint32(videoTrun.Payload[4:8]))
	audioOffset := int32(be.Uint32(audioTrun.Payload[4:8]))
	require.EqualValues(t, moofEnd+8-moof.Offset, videoOffset)
	require.Equal(t, videoOffset+int32(30*100), audioOffset)
}

func TestGenerateInitSegmentRoundTripsFtypAndTrak(t *testing.T) {
	info := track.FileInfo{Timescale: 90000, Duration: 0}
	video := uniformTrack(1, track.MediaVideo, 0, 0, 90000, 0)

	data := GenerateInitSegment(info, []track.TrackAnalysis{video})
	boxes, err := bmff.ReadBoxes(data)
	require.NoError(t, err)
	require.Equal(t, bmff.TypeFtyp, boxes[0].Type)

	moov := boxes[1]
	require.Equal(t, bmff.TypeMoov, moov.Type)
	require.NotNil(t, moov.FindByPath("trak/mdia/minf/stbl/stsd"))
	require.NotNil(t, moov.FindChild(bmff.TypeMvex))
}
