package bmff

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadBoxesHierarchy(t *testing.T) {
	w := NewWriter(make([]byte, 0, 256))
	w.WriteFtyp([4]byte{'i', 's', 'o', 'm'}, 0, [][4]byte{{'i', 's', 'o', 'm'}, {'i', 's', 'o', '2'}})

	w.StartBox(TypeMoov)
	w.WriteMvhd(600, 6000, 1)
	w.EndBox()

	w.StartBox(TypeMdat)
	for range 16 {
		w.putUint8(0xFF)
	}
	w.EndBox()

	boxes, err := ReadBoxes(w.Bytes())
	require.NoError(t, err)
	require.Len(t, boxes, 3)
	require.Equal(t, TypeFtyp, boxes[0].Type)
	require.Equal(t, TypeMoov, boxes[1].Type)
	require.Equal(t, TypeMdat, boxes[2].Type)

	require.Nil(t, boxes[2].Payload)

	mvhd := boxes[1].FindChild(TypeMvhd)
	require.NotNil(t, mvhd)
	timescale := be.Uint32(mvhd.Payload[8:12])
	duration := be.Uint32(mvhd.Payload[12:16])
	require.Equal(t, uint32(600), timescale)
	require.Equal(t, uint32(6000), duration)
	require.InDelta(t, 10.0, float64(duration)/float64(timescale), 1e-9)
}

func TestReadBoxesExtendedSize(t *testing.T) {
	buf := make([]byte, 16+4)
	be.PutUint32(buf[0:4], 1) // size == 1 marks extended size
	copy(buf[4:8], "test")
	be.PutUint64(buf[8:16], 20) // largesize
	copy(buf[16:20], []byte{1, 2, 3, 4})

	boxes, err := ReadBoxes(buf)
	require.NoError(t, err)
	require.Len(t, boxes, 1)
	require.Equal(t, 16, boxes[0].HeaderSize)
	require.EqualValues(t, 20, boxes[0].Size)
	require.Len(t, boxes[0].Payload, 4)
}

func TestFindByPathComposesFindChild(t *testing.T) {
	w := NewWriter(make([]byte, 0, 256))
	w.StartBox(TypeMoov)
	w.StartBox(TypeTrak)
	w.WriteTkhd(0x7, 1, 0, 0, 0)
	w.EndBox() // trak
	w.EndBox() // moov

	boxes, err := ReadBoxes(w.Bytes())
	require.NoError(t, err)

	moov := boxes[0]
	viaPath := moov.FindByPath("trak/tkhd")
	require.NotNil(t, viaPath)
	viaChild := moov.FindChild(TypeTrak).FindChild(TypeTkhd)
	require.Same(t, viaChild, viaPath)
}
