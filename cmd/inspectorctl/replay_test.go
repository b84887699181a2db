package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/tgfxgo/inspector/capture"
	"github.com/tgfxgo/inspector/model"
	"github.com/tgfxgo/inspector/wire"
)

func TestReplayCmd_PrintsSummary(t *testing.T) {
	b := model.NewBuilder(0)
	b.SessionID = "11111111-1111-1111-1111-111111111111"
	b.Dispatch(wire.NewFrameMark(10))
	b.Dispatch(wire.NewFrameMark(20))

	data := capture.Save(b)
	path := filepath.Join(t.TempDir(), "capture.bin")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cmd := newReplayCmd(viper.New())
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{path})

	require.NoError(t, cmd.Execute())
	require.Contains(t, out.String(), "session=11111111-1111-1111-1111-111111111111")
	require.Contains(t, out.String(), "frames=2")
}

func TestReplayCmd_MissingFile(t *testing.T) {
	cmd := newReplayCmd(viper.New())
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "nope.bin")})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	require.Error(t, cmd.Execute())
}
