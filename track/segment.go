package track

import "math"

// SegmentInfo describes one output segment's sample range and timing,
// expressed in its own track's timescale.
type SegmentInfo struct {
	FirstSample        uint64
	SampleCount        uint64
	Duration           float64 // seconds
	StartDTS           uint64
	StartPTS           int64
	StartsWithKeyframe bool
}

// MuxedTrackInput pairs a segment boundary with the track analysis it
// was computed against, designating which samples of which track go
// into one output segment.
type MuxedTrackInput struct {
	Segment  SegmentInfo
	Analysis TrackAnalysis
}

// CalculateSegments partitions a track's samples into segments cut only
// at sync samples; every segment but the last spans at least
// targetSeconds, and the last runs to the end of the track, however
// short. Segments starting
// before the first sync sample are never emitted: a well-formed track
// has a sync sample at index 0, so this only drops leading non-sync
// samples on pathological inputs.
func CalculateSegments(ta TrackAnalysis, targetSeconds float64) []SegmentInfo {
	loc := NewLocator(ta)
	syncIdx := loc.SyncSampleIndices()
	if len(syncIdx) == 0 || ta.Table.SampleCount == 0 {
		return nil
	}

	var out []SegmentInfo
	timescale := ta.Info.Timescale

	for i := 0; i < len(syncIdx); {
		b0 := syncIdx[i]
		startDTS := loc.DecodingTime(b0)

		j := i + 1
		for ; j < len(syncIdx); j++ {
			elapsedSeconds := loc.SecondsAt(loc.DecodingTime(syncIdx[j]) - startDTS)
			if timescale > 0 && elapsedSeconds >= targetSeconds {
				break
			}
		}

		var b1 uint64
		if j < len(syncIdx) {
			b1 = syncIdx[j]
		} else {
			b1 = uint64(ta.Table.SampleCount)
		}

		out = append(out, SegmentInfo{
			FirstSample:        b0,
			SampleCount:        b1 - b0,
			Duration:           loc.SecondsAt(loc.DecodingTime(b1) - startDTS),
			StartDTS:           startDTS,
			StartPTS:           loc.PresentationTime(b0),
			StartsWithKeyframe: true,
		})

		if j < len(syncIdx) {
			i = j
		} else {
			break
		}
	}
	return out
}

// AlignedAudioSegment locates the audio samples whose DTS interval
// overlaps the given video segment's time window, converting between
// the two tracks' timescales.
func AlignedAudioSegment(videoSegment SegmentInfo, videoTimescale uint32, audio TrackAnalysis) SegmentInfo {
	if videoTimescale == 0 || audio.Info.Timescale == 0 || audio.Table.SampleCount == 0 {
		return SegmentInfo{}
	}

	audioTimescale := audio.Info.Timescale
	audioStartTicks := uint64(math.Round(float64(videoSegment.StartDTS) * float64(audioTimescale) / float64(videoTimescale)))

	loc := NewLocator(audio)
	n := uint64(audio.Table.SampleCount)

	var first uint64
	for first < n && loc.DecodingTime(first) < audioStartTicks {
		first++
	}
	if first >= n {
		return SegmentInfo{}
	}

	videoDurationAudioTicks := uint64(math.Round(videoSegment.Duration * float64(audioTimescale)))
	startDTS := loc.DecodingTime(first)

	count := uint64(0)
	accumulated := uint64(0)
	for first+count < n && accumulated < videoDurationAudioTicks {
		accumulated += uint64(loc.SampleDuration(first + count))
		count++
	}
	if count == 0 {
		return SegmentInfo{}
	}

	return SegmentInfo{
		FirstSample:        first,
		SampleCount:        count,
		Duration:           loc.SecondsAt(accumulated),
		StartDTS:           startDTS,
		StartPTS:           int64(startDTS),
		StartsWithKeyframe: true,
	}
}
