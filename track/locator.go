package track

import "sort"

// Locator answers per-sample queries over an immutable (TrackInfo,
// SampleTable) pair: decode/presentation time, size, byte offset, and
// sync-sample membership. All sample indices are 0-based.
type Locator struct {
	Info  TrackInfo
	Table SampleTable
}

// NewLocator wraps a track analysis for per-sample queries. The
// analysis's SampleTable must already have been through Build (as
// ParseTrackAnalyses guarantees).
func NewLocator(ta TrackAnalysis) *Locator {
	return &Locator{Info: ta.Info, Table: ta.Table}
}

// DecodingTime returns the running sum of stts deltas up to sample i.
func (l *Locator) DecodingTime(i uint64) uint64 {
	st := &l.Table
	if len(st.TimeToSample) == 0 {
		return 0
	}
	k := st.sttsEntryForSample(i)
	precedingSamples := st.cumulativeSamples[k]
	precedingTicks := st.cumulativeTicks[k]
	delta := uint64(st.TimeToSample[k].Delta)
	return precedingTicks + (i-precedingSamples)*delta
}

// PresentationTime returns DecodingTime(i) plus the composition
// offset at i, if any.
func (l *Locator) PresentationTime(i uint64) int64 {
	dts := int64(l.DecodingTime(i))
	st := &l.Table
	if st.CompositionOffsets == nil {
		return dts
	}
	k := st.cttsEntryForSample(i)
	return dts + st.CompositionOffsets[k].Offset
}

// SampleDuration returns the stts delta covering sample i. Returns 0
// for indices at or beyond SampleCount.
func (l *Locator) SampleDuration(i uint64) uint32 {
	st := &l.Table
	if i >= uint64(st.SampleCount) || len(st.TimeToSample) == 0 {
		return 0
	}
	return st.TimeToSample[st.sttsEntryForSample(i)].Delta
}

// SampleSize returns the size of sample i, or 0 if out of range.
func (l *Locator) SampleSize(i uint64) uint32 {
	st := &l.Table
	if st.UniformSize > 0 {
		if i >= uint64(st.SampleCount) {
			return 0
		}
		return st.UniformSize
	}
	if i >= uint64(len(st.SampleSizes)) {
		return 0
	}
	return st.SampleSizes[i]
}

// SampleOffset returns the byte offset of sample i in the source
// buffer, combining sample_to_chunk and chunk_offsets.
func (l *Locator) SampleOffset(i uint64) uint64 {
	st := &l.Table
	if len(st.SampleToChunk) == 0 || len(st.ChunkOffsets) == 0 {
		return 0
	}
	k := st.stscEntryForSample(i)
	entry := st.SampleToChunk[k]
	sampleInRun := i - st.chunkStartSample[k]
	chunkOffsetIdx := (entry.FirstChunk - 1) + uint32(sampleInRun/uint64(entry.SamplesPerChunk))
	sampleInChunk := sampleInRun % uint64(entry.SamplesPerChunk)
	if int(chunkOffsetIdx) >= len(st.ChunkOffsets) {
		return 0
	}
	offset := st.ChunkOffsets[chunkOffsetIdx]
	firstSampleOfChunk := i - sampleInChunk
	for s := firstSampleOfChunk; s < i; s++ {
		offset += uint64(l.SampleSize(s))
	}
	return offset
}

// IsSyncSample reports whether sample i is a sync sample. When stss
// is absent, every sample is a sync sample.
func (l *Locator) IsSyncSample(i uint64) bool {
	st := &l.Table
	if !st.HasSyncSamples {
		return true
	}
	target := uint32(i + 1)
	n := len(st.SyncSamples)
	k := sort.Search(n, func(k int) bool { return st.SyncSamples[k] >= target })
	return k < n && st.SyncSamples[k] == target
}

// SyncSampleIndices returns the 0-based sync sample indices. When
// stss is absent, every sample index in [0, SampleCount) is returned.
func (l *Locator) SyncSampleIndices() []uint64 {
	st := &l.Table
	if !st.HasSyncSamples {
		out := make([]uint64, st.SampleCount)
		for i := range out {
			out[i] = uint64(i)
		}
		return out
	}
	out := make([]uint64, len(st.SyncSamples))
	for i, v := range st.SyncSamples {
		out[i] = uint64(v) - 1
	}
	return out
}

// NearestSyncSample returns the largest sync index <= at. When stss
// is absent, returns at itself.
func (l *Locator) NearestSyncSample(at uint64) uint64 {
	st := &l.Table
	if !st.HasSyncSamples {
		return at
	}
	target := uint32(at + 1)
	n := len(st.SyncSamples)
	k := sort.Search(n, func(k int) bool { return st.SyncSamples[k] > target }) - 1
	if k < 0 {
		return 0
	}
	return uint64(st.SyncSamples[k]) - 1
}

// SampleRange is a (offset, size) pair for one sample.
type SampleRange struct {
	Offset uint64
	Size   uint32
}

// SampleRanges returns count consecutive (offset, size) pairs
// starting at start.
func (l *Locator) SampleRanges(start uint64, count uint64) []SampleRange {
	out := make([]SampleRange, 0, count)
	for i := start; i < start+count; i++ {
		out = append(out, SampleRange{Offset: l.SampleOffset(i), Size: l.SampleSize(i)})
	}
	return out
}

// SecondsAt converts a tick value in this track's timescale to
// seconds, guarding against a zero timescale.
func (l *Locator) SecondsAt(ticks uint64) float64 {
	if l.Info.Timescale == 0 {
		return 0
	}
	return float64(ticks) / float64(l.Info.Timescale)
}
