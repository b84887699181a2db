package main

import (
	"bytes"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/tgfxgo/inspector/wire"
)

func TestDiscoverCmd_FindsBeacon(t *testing.T) {
	// Use an ephemeral port for the listener so the test never collides
	// with a real inspector producer or another test run; then aim a
	// single BroadcastMessage at that exact port.
	probe, err := net.ListenUDP("udp4", &net.UDPAddr{})
	require.NoError(t, err)
	port := probe.LocalAddr().(*net.UDPAddr).Port
	require.NoError(t, probe.Close())

	msg := wire.BroadcastMessage{
		BroadcastVersion: 1,
		ListenPort:       9999,
		ActiveTimeS:      3,
		Pid:              1234,
		ProtocolVersion:  wire.ProtocolVersion,
	}
	copy(msg.ProgramName[:], "discover-test")

	go func() {
		time.Sleep(100 * time.Millisecond)
		conn, dialErr := net.Dial("udp4", fmt.Sprintf("127.0.0.1:%d", port))
		if dialErr != nil {
			return
		}
		defer conn.Close()
		_, _ = conn.Write(msg.MarshalBinary())
	}()

	cmd := newDiscoverCmd(viper.New())
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{
		"--base-port", fmt.Sprintf("%d", port),
		"--broadcast-num", "1",
		"--duration", "600ms",
	})

	require.NoError(t, cmd.Execute())
	require.Contains(t, out.String(), "program=discover-test")
	require.Contains(t, out.String(), "pid=1234")
}

func TestDiscoverCmd_NoBeacons(t *testing.T) {
	probe, err := net.ListenUDP("udp4", &net.UDPAddr{})
	require.NoError(t, err)
	port := probe.LocalAddr().(*net.UDPAddr).Port
	require.NoError(t, probe.Close())

	cmd := newDiscoverCmd(viper.New())
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{
		"--base-port", fmt.Sprintf("%d", port),
		"--broadcast-num", "1",
		"--duration", "200ms",
	})

	require.NoError(t, cmd.Execute())
	require.Contains(t, out.String(), "no producers found")
}
