package compress

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrameWriterReader_RoundTrip_MultipleCommits(t *testing.T) {
	var pipe bytes.Buffer

	fw := NewFrameWriter(&pipe)
	chunks := [][]byte{
		bytes.Repeat([]byte("A"), 1000),
		bytes.Repeat([]byte("B"), 2000),
		bytes.Repeat([]byte("A"), 1000), // repeats earlier content across the dictionary window
	}

	for _, c := range chunks {
		_, err := fw.WriteFrame(c)
		require.NoError(t, err)
	}
	require.NoError(t, fw.Close())

	fr := NewFrameReader(&pipe)
	got, err := DrainAvailable(fr, 4000)
	require.NoError(t, err)

	var want []byte
	for _, c := range chunks {
		want = append(want, c...)
	}
	require.Equal(t, want, got)
}

func TestFrameWriter_Reset_StartsFreshSession(t *testing.T) {
	var pipe1, pipe2 bytes.Buffer

	fw := NewFrameWriter(&pipe1)
	_, err := fw.WriteFrame([]byte("session one"))
	require.NoError(t, err)
	require.NoError(t, fw.Close())

	fw.Reset(&pipe2)
	_, err = fw.WriteFrame([]byte("session two"))
	require.NoError(t, err)
	require.NoError(t, fw.Close())

	fr := NewFrameReader(&pipe2)
	got, err := DrainAvailable(fr, 64)
	require.NoError(t, err)
	require.Equal(t, "session two", string(got))
}

func TestFrameReader_EOFOnEmptyStream(t *testing.T) {
	var pipe bytes.Buffer
	fr := NewFrameReader(&pipe)
	buf := make([]byte, 16)
	_, err := fr.Read(buf)
	require.True(t, err == io.EOF || err != nil)
}
