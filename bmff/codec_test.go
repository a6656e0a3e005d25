package bmff

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestByteCodecRoundTrip(t *testing.T) {
	w := NewByteWriter()
	w.Uint8(0xAB)
	w.Uint16(0x1234)
	w.Uint32(0xDEADBEEF)
	w.Uint64(0x0102030405060708)
	w.Int32(-1)
	w.Int64(-2)
	w.FourCC("iso5")
	w.Fixed1616(1.5)
	w.Fixed88(2.25)
	w.CString("hello")

	r := NewByteReader(w.Data())

	u8, err := r.Uint8()
	require.NoError(t, err)
	require.Equal(t, uint8(0xAB), u8)

	u16, err := r.Uint16()
	require.NoError(t, err)
	require.Equal(t, uint16(0x1234), u16)

	u32, err := r.Uint32()
	require.NoError(t, err)
	require.Equal(t, uint32(0xDEADBEEF), u32)

	u64, err := r.Uint64()
	require.NoError(t, err)
	require.Equal(t, uint64(0x0102030405060708), u64)

	i32, err := r.Int32()
	require.NoError(t, err)
	require.EqualValues(t, -1, i32)

	i64, err := r.Int64()
	require.NoError(t, err)
	require.EqualValues(t, -2, i64)

	fourcc, err := r.FourCC()
	require.NoError(t, err)
	require.Equal(t, "iso5", fourcc)

	f1616, err := r.Fixed1616()
	require.NoError(t, err)
	require.InDelta(t, 1.5, f1616, 1e-9)

	f88, err := r.Fixed88()
	require.NoError(t, err)
	require.InDelta(t, 2.25, f88, 1e-9)

	require.Equal(t, "hello", r.CString())
	require.False(t, r.HasRemaining())
}

func TestByteReaderUnderflowReportsEndOfData(t *testing.T) {
	r := NewByteReader([]byte{0x01, 0x02})
	_, err := r.Uint32()
	require.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok)
	require.Equal(t, KindIOError, kind)
}

func TestContainerBoxLawConcatenatesChildrenUnderOneHeader(t *testing.T) {
	w := NewByteWriter()
	var child1, child2 ByteWriter
	child1.Box(TypeFree, []byte{1, 2, 3})
	child2.Box(TypeFree, []byte{4, 5})
	w.ContainerBox(TypeMoov, [][]byte{child1.Data(), child2.Data()})

	boxes, err := ReadBoxes(w.Data())
	require.NoError(t, err)
	require.Len(t, boxes, 1)
	require.Equal(t, TypeMoov, boxes[0].Type)
	require.Len(t, boxes[0].Children, 2)
	require.EqualValues(t, 8+len(child1.Data())+len(child2.Data()), boxes[0].Size)
}
