package track

import (
	"bytes"

	"github.com/streamforge/hlsprep/bmff"
)

// MediaType classifies a track by its hdlr handler FourCC.
type MediaType int

const (
	MediaUnknown MediaType = iota
	MediaVideo
	MediaAudio
	MediaSubtitle
	MediaText
)

func (m MediaType) String() string {
	switch m {
	case MediaVideo:
		return "video"
	case MediaAudio:
		return "audio"
	case MediaSubtitle:
		return "subtitle"
	case MediaText:
		return "text"
	}
	return "unknown"
}

func mediaTypeFromHandler(h [4]byte) MediaType {
	switch h {
	case [4]byte{'v', 'i', 'd', 'e'}:
		return MediaVideo
	case [4]byte{'s', 'o', 'u', 'n'}:
		return MediaAudio
	case [4]byte{'s', 'b', 't', 'l'}, [4]byte{'s', 'u', 'b', 't'}:
		return MediaSubtitle
	case [4]byte{'t', 'e', 'x', 't'}:
		return MediaText
	}
	return MediaUnknown
}

// FileInfo is the movie-level analysis of an MP4, decoded from its
// ftyp and moov/mvhd boxes.
type FileInfo struct {
	Timescale        uint32
	Duration         uint64
	CompatibleBrands []string
}

// DurationSeconds returns Duration/Timescale, or 0 if Timescale is 0.
func (f FileInfo) DurationSeconds() float64 {
	if f.Timescale == 0 {
		return 0
	}
	return float64(f.Duration) / float64(f.Timescale)
}

// TrackInfo is the per-track analysis decoded from tkhd/mdhd/hdlr/stsd.
type TrackInfo struct {
	TrackID                 uint32
	MediaType               MediaType
	Timescale               uint32
	Duration                uint64
	Codec                   string // first stsd entry's FourCC
	Width, Height           float64
	Language               *string // nil for "und" or absent
	SampleDescriptionData  []byte  // opaque stsd entry payload beyond the codec FourCC
	HasSyncSamples         bool
}

// DurationSeconds returns Duration/Timescale, or 0 if Timescale is 0.
func (t TrackInfo) DurationSeconds() float64 {
	if t.Timescale == 0 {
		return 0
	}
	return float64(t.Duration) / float64(t.Timescale)
}

// TrackAnalysis pairs a track's metadata with its decoded sample table.
type TrackAnalysis struct {
	Info  TrackInfo
	Table SampleTable
}

// ParseFileInfo decodes ftyp and moov/mvhd from a parsed box tree.
// A missing ftyp is tolerated (compatible brands stay empty); a
// missing mvhd is an error since duration math depends on it.
func ParseFileInfo(boxes []*bmff.Box) (FileInfo, error) {
	var info FileInfo

	if ftypBox := findTop(boxes, bmff.TypeFtyp); ftypBox != nil {
		r := bmff.NewByteReader(ftypBox.Payload)
		if r.Skip(8) == nil {
			for r.Remaining() >= 4 {
				brand, err := r.FourCC()
				if err != nil {
					break
				}
				info.CompatibleBrands = append(info.CompatibleBrands, brand)
			}
		}
	}

	moovBox := findTop(boxes, bmff.TypeMoov)
	if moovBox == nil {
		return info, bmff.MissingBox("moov")
	}
	mvhdBox := moovBox.FindChild(bmff.TypeMvhd)
	if mvhdBox == nil {
		return info, bmff.MissingBox("mvhd")
	}
	ts, dur, err := decodeMvhd(mvhdBox)
	if err != nil {
		return info, err
	}
	info.Timescale = ts
	info.Duration = dur
	return info, nil
}

func findTop(boxes []*bmff.Box, t bmff.BoxType) *bmff.Box {
	for _, b := range boxes {
		if b.Type == t {
			return b
		}
	}
	return nil
}

func decodeMvhd(b *bmff.Box) (timescale uint32, duration uint64, err error) {
	r := bmff.NewByteReader(b.Payload)
	if b.Version == 1 {
		if err = r.Skip(16); err != nil {
			return 0, 0, bmff.InvalidBoxData("mvhd", "truncated v1 payload")
		}
		if timescale, err = r.Uint32(); err != nil {
			return 0, 0, bmff.InvalidBoxData("mvhd", "truncated v1 payload")
		}
		if duration, err = r.Uint64(); err != nil {
			return 0, 0, bmff.InvalidBoxData("mvhd", "truncated v1 payload")
		}
		return timescale, duration, nil
	}
	if err = r.Skip(8); err != nil {
		return 0, 0, bmff.InvalidBoxData("mvhd", "truncated v0 payload")
	}
	if timescale, err = r.Uint32(); err != nil {
		return 0, 0, bmff.InvalidBoxData("mvhd", "truncated v0 payload")
	}
	dur32, err := r.Uint32()
	if err != nil {
		return 0, 0, bmff.InvalidBoxData("mvhd", "truncated v0 payload")
	}
	return timescale, uint64(dur32), nil
}

// ParseTrackAnalyses decodes every moov/trak into a (TrackInfo,
// SampleTable) pair.
func ParseTrackAnalyses(boxes []*bmff.Box) ([]TrackAnalysis, error) {
	moovBox := findTop(boxes, bmff.TypeMoov)
	if moovBox == nil {
		return nil, bmff.MissingBox("moov")
	}

	var out []TrackAnalysis
	for _, trak := range moovBox.Tracks() {
		ta, err := parseTrak(trak)
		if err != nil {
			return nil, err
		}
		out = append(out, ta)
	}
	return out, nil
}

func parseTrak(trak *bmff.Box) (TrackAnalysis, error) {
	var ta TrackAnalysis

	tkhdBox := trak.FindChild(bmff.TypeTkhd)
	if tkhdBox == nil {
		return ta, bmff.MissingBox("tkhd")
	}
	trackID, width, height, err := decodeTkhd(tkhdBox)
	if err != nil {
		return ta, err
	}
	ta.Info.TrackID = trackID
	ta.Info.Width = width
	ta.Info.Height = height

	mdiaBox := trak.FindChild(bmff.TypeMdia)
	if mdiaBox == nil {
		return ta, bmff.MissingBox("mdia")
	}
	mdhdBox := mdiaBox.FindChild(bmff.TypeMdhd)
	if mdhdBox == nil {
		return ta, bmff.MissingBox("mdhd")
	}
	ts, dur, lang, err := decodeMdhd(mdhdBox)
	if err != nil {
		return ta, err
	}
	ta.Info.Timescale = ts
	ta.Info.Duration = dur
	ta.Info.Language = lang

	hdlrBox := mdiaBox.FindChild(bmff.TypeHdlr)
	if hdlrBox == nil {
		return ta, bmff.MissingBox("hdlr")
	}
	ta.Info.MediaType = decodeHdlr(hdlrBox)

	minfBox := mdiaBox.FindChild(bmff.TypeMinf)
	if minfBox == nil {
		return ta, bmff.MissingBox("minf")
	}
	stblBox := minfBox.FindChild(bmff.TypeStbl)
	if stblBox == nil {
		return ta, bmff.MissingBox("stbl")
	}

	stsdBox := stblBox.FindChild(bmff.TypeStsd)
	if stsdBox == nil {
		return ta, bmff.MissingBox("stsd")
	}
	codec, descData, err := decodeStsd(stsdBox)
	if err != nil {
		return ta, err
	}
	ta.Info.Codec = refineAudioCodec(codec, descData)
	ta.Info.SampleDescriptionData = descData

	table, err := buildSampleTable(stblBox)
	if err != nil {
		return ta, err
	}
	ta.Info.HasSyncSamples = table.HasSyncSamples
	ta.Table = table

	return ta, nil
}

func decodeTkhd(b *bmff.Box) (trackID uint32, width, height float64, err error) {
	r := bmff.NewByteReader(b.Payload)
	truncated := func() (uint32, float64, float64, error) {
		version := "v0"
		if b.Version == 1 {
			version = "v1"
		}
		return 0, 0, 0, bmff.InvalidBoxData("tkhd", "truncated "+version+" payload")
	}

	if b.Version == 1 {
		if err = r.Skip(16); err != nil {
			return truncated()
		}
		if trackID, err = r.Uint32(); err != nil {
			return truncated()
		}
		if err = r.Skip(64); err != nil {
			return truncated()
		}
	} else {
		if err = r.Skip(8); err != nil {
			return truncated()
		}
		if trackID, err = r.Uint32(); err != nil {
			return truncated()
		}
		if err = r.Skip(60); err != nil {
			return truncated()
		}
	}
	if width, err = r.Fixed1616(); err != nil {
		return truncated()
	}
	if height, err = r.Fixed1616(); err != nil {
		return truncated()
	}
	return trackID, width, height, nil
}

func decodeMdhd(b *bmff.Box) (timescale uint32, duration uint64, language *string, err error) {
	r := bmff.NewByteReader(b.Payload)
	truncated := func() (uint32, uint64, *string, error) {
		version := "v0"
		if b.Version == 1 {
			version = "v1"
		}
		return 0, 0, nil, bmff.InvalidBoxData("mdhd", "truncated "+version+" payload")
	}

	var langCode uint16
	if b.Version == 1 {
		if err = r.Skip(16); err != nil {
			return truncated()
		}
		if timescale, err = r.Uint32(); err != nil {
			return truncated()
		}
		if duration, err = r.Uint64(); err != nil {
			return truncated()
		}
	} else {
		if err = r.Skip(8); err != nil {
			return truncated()
		}
		if timescale, err = r.Uint32(); err != nil {
			return truncated()
		}
		dur32, uerr := r.Uint32()
		if uerr != nil {
			return truncated()
		}
		duration = uint64(dur32)
	}
	if langCode, err = r.Uint16(); err != nil {
		return truncated()
	}
	language = decodeLanguage(langCode)
	return timescale, duration, language, nil
}

// decodeLanguage unpacks the 15-bit 5+5+5 ISO-639-2 language code.
// 0x55C4 ("und") decodes to nil, matching "no language asserted".
func decodeLanguage(code uint16) *string {
	if code == 0x55C4 {
		return nil
	}
	c1 := byte((code>>10)&0x1f) + 0x60
	c2 := byte((code>>5)&0x1f) + 0x60
	c3 := byte(code&0x1f) + 0x60
	s := string([]byte{c1, c2, c3})
	return &s
}

func decodeHdlr(b *bmff.Box) MediaType {
	r := bmff.NewByteReader(b.Payload)
	if err := r.Skip(4); err != nil {
		return MediaUnknown
	}
	handlerType, err := r.FourCC()
	if err != nil {
		return MediaUnknown
	}
	var ht [4]byte
	copy(ht[:], handlerType)
	return mediaTypeFromHandler(ht)
}

func decodeStsd(b *bmff.Box) (codec string, descData []byte, err error) {
	d := b.Payload
	r := bmff.NewByteReader(d)

	entryCount, err := r.Uint32()
	if err != nil {
		return "", nil, bmff.InvalidBoxData("stsd", "truncated payload")
	}
	if entryCount == 0 {
		return "", nil, nil
	}

	// entry: u32 size + 4-byte codec FourCC, remainder is opaque
	entrySize, err := r.Uint32()
	if err != nil {
		return "", nil, bmff.InvalidBoxData("stsd", "truncated entry")
	}
	codec, err = r.FourCC()
	if err != nil {
		return "", nil, bmff.InvalidBoxData("stsd", "truncated entry")
	}

	entryEnd := 4 + int(entrySize)
	if entryEnd > len(d) {
		entryEnd = len(d)
	}
	descData = d[12:entryEnd]
	return codec, descData, nil
}

// refineAudioCodec refines a bare "mp4a" FourCC into a full MIME codec
// string (e.g. "mp4a.40.2") by locating and decoding the entry's esds
// descriptor, when present. Any other codec is returned unchanged.
func refineAudioCodec(codec string, descData []byte) string {
	if codec != "mp4a" {
		return codec
	}
	esdsOff := bytes.Index(descData, []byte("esds"))
	if esdsOff < 4 {
		return codec
	}
	boxStart := esdsOff - 4
	r := bmff.NewReader(descData[boxStart:])
	if !r.Next() || r.Type() != bmff.TypeEsds {
		return codec
	}
	refined := bmff.ReadEsdsCodec(r.Data())
	if refined == "" {
		return codec
	}
	return codec + "." + refined
}
