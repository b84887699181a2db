package main

import (
	"bytes"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/tgfxgo/inspector/capture"
	"github.com/tgfxgo/inspector/compress"
	"github.com/tgfxgo/inspector/wire"
)

// fakeProducer performs just enough of the handshake and streams one frame
// of QueueItems before going silent, letting record's duration timer end
// the session.
func fakeProducer(t *testing.T, ln net.Listener, refTime int64) {
	t.Helper()
	conn, err := ln.Accept()
	require.NoError(t, err)
	defer conn.Close()

	preamble := make([]byte, 8+4)
	_, err = io.ReadFull(conn, preamble)
	require.NoError(t, err)

	_, err = conn.Write([]byte{byte(wire.HandshakeWelcome)})
	require.NoError(t, err)

	welcome := wire.WelcomeMessage{InitBeginNs: 0, InitEndNs: 0, RefTimeNs: refTime}
	_, err = conn.Write(welcome.MarshalBinary())
	require.NoError(t, err)

	enc := wire.NewEncoder(refTime)
	var payload []byte
	payload = enc.Encode(payload, wire.NewFrameMark(refTime+1000))
	payload = enc.Encode(payload, wire.NewFrameMark(refTime+2000))

	fw := compress.NewFrameWriter(conn)
	_, err = fw.WriteFrame(payload)
	require.NoError(t, err)
	require.NoError(t, fw.Close())

	// Keep the connection open until the test's record duration elapses
	// and the consumer closes it via Shutdown.
	_, _ = io.Copy(io.Discard, conn)
}

func TestRecordCmd_SavesCaptureFile(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	const refTime = int64(1_000_000)
	go fakeProducer(t, ln, refTime)

	out := filepath.Join(t.TempDir(), "out.bin")
	cmd := newRecordCmd(viper.New())
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{
		ln.Addr().String(),
		"--output", out,
		"--duration", "300ms",
		"--dial-timeout", "2s",
	})

	require.NoError(t, cmd.Execute())
	require.Contains(t, stdout.String(), "wrote")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	b, err := capture.Load(data, refTime)
	require.NoError(t, err)
	// two seeded placeholder frames (init-begin == init-end here), one
	// closed by the second FrameMark, and one left open at its time.
	require.Len(t, b.Frames.Events, 4)
}
