package bmff

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorKindsRoundTripThroughKindOf(t *testing.T) {
	cases := []struct {
		err  error
		kind Kind
	}{
		{InvalidMP4("empty input"), KindInvalidMP4},
		{MissingBox("moov"), KindMissingBox},
		{InvalidBoxData("stsz", "truncated payload"), KindInvalidBoxData},
		{FileTooLarge(1 << 40), KindFileTooLarge},
		{UnsupportedCodec("xyz1"), KindUnsupportedCodec},
		{EndOfData(4, 1), KindIOError},
	}
	for _, c := range cases {
		k, ok := KindOf(c.err)
		require.True(t, ok)
		require.Equal(t, c.kind, k)
		require.NotEmpty(t, c.err.Error())
	}
}

func TestKindOfRejectsNonCoreError(t *testing.T) {
	_, ok := KindOf(errors.New("some other error"))
	require.False(t, ok)
}
