// Package track decodes per-track movie metadata and sample tables
// from a parsed ISO BMFF box tree, and answers per-sample queries and
// segment-boundary questions over the decoded tables.
package track

import (
	"sort"

	"github.com/streamforge/hlsprep/bmff"
)

// TimeToSampleEntry is one run-length entry of an stts table.
type TimeToSampleEntry struct {
	Count uint32
	Delta uint32
}

// CompositionOffsetEntry is one run-length entry of a ctts table.
// Offset is decoded per the box version: unsigned (non-negative) for
// version 0, signed for version 1.
type CompositionOffsetEntry struct {
	Count  uint32
	Offset int64
}

// SampleToChunkEntry is one run-length entry of an stsc table.
type SampleToChunkEntry struct {
	FirstChunk          uint32
	SamplesPerChunk     uint32
	SampleDescriptionID uint32
}

// SampleTable holds the decoded, still run-length-encoded sample
// tables for one track, plus the cumulative prefix sums used to
// answer per-sample queries in O(log n) via binary search instead of
// O(n) per query.
type SampleTable struct {
	TimeToSample       []TimeToSampleEntry
	CompositionOffsets []CompositionOffsetEntry // nil if ctts absent
	SampleToChunk      []SampleToChunkEntry
	UniformSize        uint32   // nonzero ⇒ every sample has this size
	SampleSizes        []uint32 // nil when UniformSize > 0
	ChunkOffsets       []uint64
	SyncSamples        []uint32 // 1-based ascending indices; nil iff stss absent
	HasSyncSamples     bool     // true iff stss was present, even if empty
	SampleCount        uint32

	// cumulativeSamples[k] = sum of Count over TimeToSample[:k];
	// cumulativeTicks[k] = sum of Count*Delta over TimeToSample[:k]. Both have
	// len(TimeToSample)+1 entries.
	cumulativeSamples []uint64
	cumulativeTicks   []uint64

	// same shape for composition offsets, when present.
	cttsCumulative []uint64

	// chunkStartSample[k] = 0-based index of the first sample of the
	// chunk described by SampleToChunk[k]. Build derives it from the
	// number of chunks each entry covers (until the next entry's
	// FirstChunk or end of ChunkOffsets).
	chunkStartSample []uint64
}

// Build finalizes derived fields (prefix sums) after the run-length
// entries have been populated. Callers constructing a SampleTable by
// hand (e.g. in tests) must call Build before using query methods.
func (st *SampleTable) Build() {
	st.cumulativeSamples = make([]uint64, len(st.TimeToSample)+1)
	st.cumulativeTicks = make([]uint64, len(st.TimeToSample)+1)
	for i, e := range st.TimeToSample {
		st.cumulativeSamples[i+1] = st.cumulativeSamples[i] + uint64(e.Count)
		st.cumulativeTicks[i+1] = st.cumulativeTicks[i] + uint64(e.Count)*uint64(e.Delta)
	}
	if st.CompositionOffsets != nil {
		st.cttsCumulative = make([]uint64, len(st.CompositionOffsets)+1)
		for i, e := range st.CompositionOffsets {
			st.cttsCumulative[i+1] = st.cttsCumulative[i] + uint64(e.Count)
		}
	}
	if st.SampleCount == 0 {
		st.SampleCount = uint32(st.cumulativeSamples[len(st.cumulativeSamples)-1])
	}

	// Map each stsc run to the 0-based sample index where its first
	// chunk begins, so sample_offset(i) can binary-search which run
	// (and which chunk within it) covers sample i.
	st.chunkStartSample = make([]uint64, len(st.SampleToChunk))
	var sampleIdx uint64
	for k, e := range st.SampleToChunk {
		st.chunkStartSample[k] = sampleIdx
		var chunkCount uint64
		if k+1 < len(st.SampleToChunk) {
			chunkCount = uint64(st.SampleToChunk[k+1].FirstChunk - e.FirstChunk)
		} else if len(st.ChunkOffsets) > 0 {
			chunkCount = uint64(len(st.ChunkOffsets)) - (uint64(e.FirstChunk) - 1)
		}
		sampleIdx += chunkCount * uint64(e.SamplesPerChunk)
	}
}

// buildSampleTable decodes the sample-table children of an stbl box
// using the bmff low-level iterators, grounded on the same run-length
// advance this teacher's codebase already knows how to walk.
func buildSampleTable(stbl *bmff.Box) (SampleTable, error) {
	var st SampleTable

	stszBox := stbl.FindChild(bmff.TypeStsz)
	if stszBox == nil {
		return st, bmff.MissingBox("stsz")
	}
	sttsBox := stbl.FindChild(bmff.TypeStts)
	if sttsBox == nil {
		return st, bmff.MissingBox("stts")
	}
	stscBox := stbl.FindChild(bmff.TypeStsc)
	if stscBox == nil {
		return st, bmff.MissingBox("stsc")
	}
	stcoBox := stbl.FindChild(bmff.TypeStco)
	co64Box := stbl.FindChild(bmff.TypeCo64)
	if stcoBox == nil && co64Box == nil {
		return st, bmff.MissingBox("stco/co64")
	}

	if len(stszBox.Payload) < 8 {
		return st, bmff.InvalidBoxData("stsz", "truncated payload")
	}
	szIt := bmff.NewStszIter(stszBox.Payload)
	st.UniformSize = szIt.SampleSize()
	st.SampleCount = szIt.Count()
	if st.UniformSize == 0 {
		sizes := make([]uint32, 0, st.SampleCount)
		for {
			v, ok := szIt.Next()
			if !ok {
				break
			}
			sizes = append(sizes, v)
		}
		st.SampleSizes = sizes
	}

	if len(sttsBox.Payload) < 4 {
		return st, bmff.InvalidBoxData("stts", "truncated payload")
	}
	sttsIt := bmff.NewSttsIter(sttsBox.Payload)
	for {
		e, ok := sttsIt.Next()
		if !ok {
			break
		}
		st.TimeToSample = append(st.TimeToSample, TimeToSampleEntry{Count: e.Count, Delta: e.Duration})
	}

	if len(stscBox.Payload) < 4 {
		return st, bmff.InvalidBoxData("stsc", "truncated payload")
	}
	stscIt := bmff.NewStscIter(stscBox.Payload)
	for {
		e, ok := stscIt.Next()
		if !ok {
			break
		}
		st.SampleToChunk = append(st.SampleToChunk, SampleToChunkEntry{
			FirstChunk:          e.FirstChunk,
			SamplesPerChunk:     e.SamplesPerChunk,
			SampleDescriptionID: e.SampleDescriptionId,
		})
	}

	if co64Box != nil {
		it := bmff.NewCo64Iter(co64Box.Payload)
		for {
			v, ok := it.Next()
			if !ok {
				break
			}
			st.ChunkOffsets = append(st.ChunkOffsets, v)
		}
	} else {
		it := bmff.NewUint32Iter(stcoBox.Payload)
		for {
			v, ok := it.Next()
			if !ok {
				break
			}
			st.ChunkOffsets = append(st.ChunkOffsets, uint64(v))
		}
	}

	if cttsBox := stbl.FindChild(bmff.TypeCtts); cttsBox != nil {
		it := bmff.NewCttsIter(cttsBox.Payload, cttsBox.Version)
		for {
			e, ok := it.Next()
			if !ok {
				break
			}
			var off int64
			if cttsBox.Version == 1 {
				off = int64(e.Offset)
			} else {
				off = int64(uint32(e.Offset))
			}
			st.CompositionOffsets = append(st.CompositionOffsets, CompositionOffsetEntry{Count: e.Count, Offset: off})
		}
	}

	if stssBox := stbl.FindChild(bmff.TypeStss); stssBox != nil {
		st.HasSyncSamples = true
		st.SyncSamples = []uint32{}
		it := bmff.NewUint32Iter(stssBox.Payload)
		for {
			v, ok := it.Next()
			if !ok {
				break
			}
			st.SyncSamples = append(st.SyncSamples, v)
		}
	}

	st.Build()
	return st, nil
}

// sttsEntryForSample returns the run-length entry index k such that
// sample i falls within TimeToSample[k], via binary search over the
// cumulative-count prefix sums.
func (st *SampleTable) sttsEntryForSample(i uint64) int {
	k := sort.Search(len(st.TimeToSample), func(k int) bool {
		return st.cumulativeSamples[k+1] > i
	})
	if k >= len(st.TimeToSample) {
		return len(st.TimeToSample) - 1
	}
	return k
}

func (st *SampleTable) cttsEntryForSample(i uint64) int {
	k := sort.Search(len(st.CompositionOffsets), func(k int) bool {
		return st.cttsCumulative[k+1] > i
	})
	if k >= len(st.CompositionOffsets) {
		return len(st.CompositionOffsets) - 1
	}
	return k
}

func (st *SampleTable) stscEntryForSample(i uint64) int {
	k := sort.Search(len(st.chunkStartSample), func(k int) bool {
		return st.chunkStartSample[k] > i
	}) - 1
	if k < 0 {
		k = 0
	}
	return k
}
