package discovery

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tgfxgo/inspector/wire"
)

func TestListener_UpsertAndShutdownBeacon(t *testing.T) {
	l, err := Listen(0, nil)
	require.NoError(t, err)
	defer l.Close()

	port := l.conn.LocalAddr().(*net.UDPAddr).Port
	sender, err := net.DialUDP("udp4", nil, &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port})
	require.NoError(t, err)
	defer sender.Close()

	msg := wire.BroadcastMessage{
		BroadcastVersion: 1,
		ListenPort:       9000,
		ActiveTimeS:      3,
		Pid:              1234,
		ProtocolVersion:  wire.ProtocolVersion,
	}
	copy(msg.ProgramName[:], "demo")
	_, err = sender.Write(msg.MarshalBinary())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(l.Snapshot()) == 1
	}, time.Second, 10*time.Millisecond)

	snap := l.Snapshot()
	for _, c := range snap {
		require.Equal(t, "demo", c.ProgramName)
		require.Equal(t, uint32(1234), c.Pid)
	}

	msg.ActiveTimeS = -1
	_, err = sender.Write(msg.MarshalBinary())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(l.Snapshot()) == 0
	}, time.Second, 10*time.Millisecond)
}
