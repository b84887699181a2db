package capture

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUvarint_RoundTrip_Boundaries(t *testing.T) {
	cases := []uint64{0, 0x7F, 0x3FFF, 0x1FFFFF, 0xFFFFFFF, 0xFFFFFFFF}
	for _, c := range cases {
		buf := putUvarint(nil, c)
		got, n := uvarint(buf)
		require.Equal(t, len(buf), n)
		require.Equal(t, c, got)
	}
}

func TestVarint_ZigZag_RoundTrip(t *testing.T) {
	cases := []int64{0, 1, -1, 2, -2, 1 << 30, -(1 << 30)}
	for _, c := range cases {
		buf := putVarint(nil, c)
		got, n := varint(buf)
		require.Equal(t, len(buf), n)
		require.Equal(t, c, got)
	}
}

func TestUvarint_SingleByteForZero(t *testing.T) {
	buf := putUvarint(nil, 0)
	require.Len(t, buf, 1)
}
