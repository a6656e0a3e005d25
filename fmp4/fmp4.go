// Package fmp4 generates fragmented MP4 (CMAF-style) initialization
// and media segments from parsed track metadata and source sample
// bytes, using the two-pass backpatching writer in package bmff.
package fmp4

import (
	"github.com/streamforge/hlsprep/bmff"
	"github.com/streamforge/hlsprep/track"
)

const estimatedBoxOverhead = 4096

var compatibleBrandsMedia = [][4]byte{{'m', 's', 'd', 'h'}, {'m', 's', 'i', 'x'}}

func handlerTypeFor(mt track.MediaType) [4]byte {
	switch mt {
	case track.MediaVideo:
		return [4]byte{'v', 'i', 'd', 'e'}
	case track.MediaAudio:
		return [4]byte{'s', 'o', 'u', 'n'}
	case track.MediaSubtitle:
		return [4]byte{'s', 'b', 't', 'l'}
	case track.MediaText:
		return [4]byte{'t', 'e', 'x', 't'}
	}
	return [4]byte{'v', 'i', 'd', 'e'}
}

func languageCode(lang *string) uint16 {
	if lang == nil || len(*lang) != 3 {
		return 0x55C4 // "und"
	}
	c := *lang
	return (uint16(c[0]-0x60)&0x1f)<<10 | (uint16(c[1]-0x60)&0x1f)<<5 | (uint16(c[2]-0x60) & 0x1f)
}

// GenerateInitSegment builds a self-contained ftyp+moov buffer
// describing every track in analyses, with fragment-ready empty
// sample tables and a trailing mvex/trex per track. No mdat is
// emitted.
func GenerateInitSegment(info track.FileInfo, analyses []track.TrackAnalysis) []byte {
	size := estimatedBoxOverhead
	for range analyses {
		size += estimatedBoxOverhead
	}
	w := bmff.NewWriter(make([]byte, 0, size))

	w.WriteFtyp([4]byte{'i', 's', 'o', 'm'}, 512, [][4]byte{{'i', 's', 'o', 'm'}, {'i', 's', 'o', '6'}})

	w.StartBox(bmff.TypeMoov)
	w.WriteMvhd(info.Timescale, 0, uint32(len(analyses))+1)

	for _, ta := range analyses {
		writeTrak(&w, ta)
	}

	w.StartBox(bmff.TypeMvex)
	for _, ta := range analyses {
		w.WriteTrex(ta.Info.TrackID, 1, 0, 0, 0)
	}
	w.EndBox() // mvex
	w.EndBox() // moov

	return w.Bytes()
}

func writeTrak(w *bmff.Writer, ta track.TrackAnalysis) {
	w.StartBox(bmff.TypeTrak)
	w.WriteTkhd(0x000007, ta.Info.TrackID, 0, uint32(ta.Info.Width), uint32(ta.Info.Height))

	w.StartBox(bmff.TypeMdia)
	w.WriteMdhd(ta.Info.Timescale, 0, languageCode(ta.Info.Language))
	w.WriteHdlr(handlerTypeFor(ta.Info.MediaType), ta.Info.MediaType.String())

	w.StartBox(bmff.TypeMinf)
	if ta.Info.MediaType == track.MediaAudio {
		w.WriteSmhd()
	} else {
		w.WriteVmhd()
	}
	w.StartBox(bmff.TypeDinf)
	w.WriteDref()
	w.EndBox() // dinf

	w.StartBox(bmff.TypeStbl)
	w.StartFullBox(bmff.TypeStsd, 0, 0)
	w.Write(sampleDescriptionEntry(ta.Info))
	w.EndBox() // stsd
	w.WriteStts(nil)
	w.WriteStsc(nil)
	w.WriteStsz(0, nil)
	w.WriteStco(nil)
	w.EndBox() // stbl

	w.EndBox() // minf
	w.EndBox() // mdia
	w.EndBox() // trak
}

// sampleDescriptionEntry rebuilds the single stsd entry from the
// preserved codec FourCC and opaque description bytes, prefixed by
// the entry_count the Write call above does not itself account for.
func sampleDescriptionEntry(info track.TrackInfo) []byte {
	entry := make([]byte, 4+8+len(info.SampleDescriptionData))
	be.PutUint32(entry[0:4], 1) // entry_count
	be.PutUint32(entry[4:8], uint32(8+len(info.SampleDescriptionData)))
	copy(entry[8:12], info.Codec)
	copy(entry[12:], info.SampleDescriptionData)
	return entry
}

// trunFlags computes the 24-bit trun flags for a track segment per
// the fragment layout rules: data_offset, duration and size are
// always present; sample flags only for video (audio samples are all
// sync); composition offsets only when the track has them.
func trunFlags(ta track.TrackAnalysis) uint32 {
	flags := uint32(bmff.TrunDataOffsetPresent | bmff.TrunSampleDurationPresent | bmff.TrunSampleSizePresent)
	if ta.Info.MediaType == track.MediaVideo {
		flags |= bmff.TrunSampleFlagsPresent
	}
	if ta.Table.CompositionOffsets != nil {
		flags |= bmff.TrunSampleCompositionTimeOffsetPresent
	}
	return flags
}

func sampleFlags(sync bool) uint32 {
	if sync {
		return 0x02000000
	}
	return 0x01010000
}

func trunEntries(loc *track.Locator, seg track.SegmentInfo, flags uint32) []bmff.TrunEntry {
	out := make([]bmff.TrunEntry, seg.SampleCount)
	for k := range out {
		i := seg.FirstSample + uint64(k)
		e := bmff.TrunEntry{
			Duration: loc.SampleDuration(i),
			Size:     loc.SampleSize(i),
		}
		if flags&bmff.TrunSampleFlagsPresent != 0 {
			e.Flags = sampleFlags(loc.IsSyncSample(i))
		}
		if flags&bmff.TrunSampleCompositionTimeOffsetPresent != 0 {
			e.CompositionTimeOffset = int32(loc.PresentationTime(i) - int64(loc.DecodingTime(i)))
		}
		out[k] = e
	}
	return out
}

func sampleBytes(loc *track.Locator, seg track.SegmentInfo, source []byte) []byte {
	out := make([]byte, 0, seg.SampleCount*4096)
	for k := uint64(0); k < seg.SampleCount; k++ {
		i := seg.FirstSample + k
		off := loc.SampleOffset(i)
		size := loc.SampleSize(i)
		out = append(out, source[off:off+uint64(size)]...)
	}
	return out
}

// GenerateMediaSegment builds a styp/moof/mdat buffer for one
// track's segment, copying sample bytes from source.
func GenerateMediaSegment(seg track.SegmentInfo, sequenceNumber uint32, ta track.TrackAnalysis, source []byte) []byte {
	loc := track.NewLocator(ta)
	payload := sampleBytes(loc, seg, source)

	w := bmff.NewWriter(make([]byte, 0, estimatedBoxOverhead+len(payload)))
	w.WriteStyp([4]byte{'m', 's', 'd', 'h'}, 0, compatibleBrandsMedia)

	moofStart := w.Len()
	w.StartBox(bmff.TypeMoof)
	w.WriteMfhd(sequenceNumber)

	flags := trunFlags(ta)
	w.StartBox(bmff.TypeTraf)
	w.WriteTfhd(0x020000, ta.Info.TrackID)
	w.WriteTfdt(seg.StartDTS)
	dataOffsetPos := w.StartTrun(flags, trunEntries(loc, seg, flags))
	w.EndBox() // trun
	w.EndBox() // traf
	w.EndBox() // moof
	moofSize := w.Len() - moofStart

	w.PatchInt32(dataOffsetPos, int32(moofSize+8))

	w.StartBox(bmff.TypeMdat)
	w.Write(payload)
	w.EndBox()

	return w.Bytes()
}

// GenerateMuxedSegment builds a single styp/moof/mdat buffer carrying
// both a video and an audio traf, with mdat holding video sample
// bytes followed by audio sample bytes.
func GenerateMuxedSegment(video, audio track.MuxedTrackInput, sequenceNumber uint32, source []byte) []byte {
	videoLoc := track.NewLocator(video.Analysis)
	audioLoc := track.NewLocator(audio.Analysis)

	videoPayload := sampleBytes(videoLoc, video.Segment, source)
	audioPayload := sampleBytes(audioLoc, audio.Segment, source)

	w := bmff.NewWriter(make([]byte, 0, estimatedBoxOverhead+len(videoPayload)+len(audioPayload)))
	w.WriteStyp([4]byte{'m', 's', 'd', 'h'}, 0, compatibleBrandsMedia)

	moofStart := w.Len()
	w.StartBox(bmff.TypeMoof)
	w.WriteMfhd(sequenceNumber)

	videoFlags := trunFlags(video.Analysis)
	w.StartBox(bmff.TypeTraf)
	w.WriteTfhd(0x020000, video.Analysis.Info.TrackID)
	w.WriteTfdt(video.Segment.StartDTS)
	videoOffsetPos := w.StartTrun(videoFlags, trunEntries(videoLoc, video.Segment, videoFlags))
	w.EndBox() // trun
	w.EndBox() // traf

	audioFlags := trunFlags(audio.Analysis)
	w.StartBox(bmff.TypeTraf)
	w.WriteTfhd(0x020000, audio.Analysis.Info.TrackID)
	w.WriteTfdt(audio.Segment.StartDTS)
	audioOffsetPos := w.StartTrun(audioFlags, trunEntries(audioLoc, audio.Segment, audioFlags))
	w.EndBox() // trun
	w.EndBox() // traf

	w.EndBox() // moof
	moofSize := w.Len() - moofStart

	w.PatchInt32(videoOffsetPos, int32(moofSize+8))
	w.PatchInt32(audioOffsetPos, int32(moofSize+8+len(videoPayload)))

	w.StartBox(bmff.TypeMdat)
	w.Write(videoPayload)
	w.Write(audioPayload)
	w.EndBox()

	return w.Bytes()
}
