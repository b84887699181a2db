package consumer

import (
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tgfxgo/inspector/compress"
	"github.com/tgfxgo/inspector/errs"
	"github.com/tgfxgo/inspector/model"
	"github.com/tgfxgo/inspector/wire"
)

// fakeProducer accepts one connection, performs the handshake, and streams
// a single compressed frame of QueueItems.
func fakeProducer(t *testing.T, ln net.Listener, items []wire.QueueItem, refTime int64) {
	t.Helper()
	conn, err := ln.Accept()
	require.NoError(t, err)
	defer conn.Close()

	preamble := make([]byte, 8+4)
	_, err = io.ReadFull(conn, preamble)
	require.NoError(t, err)
	require.Equal(t, wire.Shibboleth[:], preamble[:8])
	require.Equal(t, wire.ProtocolVersion, binary.LittleEndian.Uint32(preamble[8:]))

	_, err = conn.Write([]byte{byte(wire.HandshakeWelcome)})
	require.NoError(t, err)

	welcome := wire.WelcomeMessage{InitBeginNs: 0, InitEndNs: 0, RefTimeNs: refTime}
	_, err = conn.Write(welcome.MarshalBinary())
	require.NoError(t, err)

	enc := wire.NewEncoder(refTime)
	var payload []byte
	for _, it := range items {
		payload = enc.Encode(payload, it)
	}

	fw := compress.NewFrameWriter(conn)
	_, err = fw.WriteFrame(payload)
	require.NoError(t, err)
	require.NoError(t, fw.Close())
}

func TestDial_HandshakeAndStream_ScenarioA(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	const refTime = int64(500_000_000)
	items := []wire.QueueItem{
		wire.NewOperateBegin(refTime, 5),
		wire.NewOperateEnd(refTime+20_000, 5),
		wire.NewFrameMark(refTime + 30_000),
	}

	go fakeProducer(t, ln, items, refTime)

	c, err := Dial(ln.Addr().String(), WithDialTimeout(2*time.Second))
	require.NoError(t, err)

	err = c.Run()
	require.NoError(t, err)

	c.WithBuilder(func(b *model.Builder) {
		require.Len(t, b.OpTasks, 1)
		require.Equal(t, refTime, b.OpTasks[0].StartNs)
		require.Equal(t, refTime+20_000, b.OpTasks[0].EndNs)
		require.Equal(t, uint8(5), b.OpTasks[0].Type)
		// two seeded placeholder frames plus the real FrameMark.
		require.Len(t, b.Frames.Events, 3)
	})

	require.NotEmpty(t, c.SessionID)
}

// TestDial_ProtocolMismatch_ScenarioD covers a producer that rejects the
// handshake because its protocol version doesn't match ours (spec §8
// Scenario D): Dial must surface errs.ErrProtocolMismatch and never hand
// back a usable Client.
func TestDial_ProtocolMismatch_ScenarioD(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, acceptErr := ln.Accept()
		require.NoError(t, acceptErr)
		defer conn.Close()

		preamble := make([]byte, 8+4)
		_, _ = io.ReadFull(conn, preamble)
		_, _ = conn.Write([]byte{byte(wire.HandshakeProtocolMismatch)})
	}()

	_, err = Dial(ln.Addr().String(), WithDialTimeout(2*time.Second))
	require.Error(t, err)
	require.ErrorIs(t, err, errs.ErrProtocolMismatch)
}
