package capture

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tgfxgo/inspector/format"
	"github.com/tgfxgo/inspector/model"
	"github.com/tgfxgo/inspector/wire"
)

func frameMark(t int64) wire.QueueItem             { return wire.NewFrameMark(t) }
func operateBegin(t int64, typ uint8) wire.QueueItem { return wire.NewOperateBegin(t, typ) }
func operateEnd(t int64, typ uint8) wire.QueueItem   { return wire.NewOperateEnd(t, typ) }
func valueFloat(name uint64, v float32) wire.QueueItem {
	return wire.NewValueDataFloat(name, v)
}
func nameFor(h uint64) string { return fmt.Sprintf("attr_%d", h) }

// Scenario E — file round-trip (spec §8).
func TestSaveLoad_ScenarioE_RoundTrip(t *testing.T) {
	const baseTime = 1_000_000

	b := model.NewBuilder(baseTime)

	t_ := int64(0)
	for f := 0; f < 60; f++ {
		b.Dispatch(frameMark(baseTime + t_))
		t_ += 1000

		for o := 0; o < 10; o++ {
			begin := baseTime + t_
			t_ += 10
			end := baseTime + t_

			b.Dispatch(operateBegin(begin, 1))
			handle := uint64(f*10+o) + 1
			for a := 0; a < 3; a++ {
				b.Dispatch(valueFloat(handle, float32(a)))
			}
			b.Dispatch(operateEnd(end, 1))
			b.Names.Resolve(handle, nameFor(handle))
		}
	}

	wantFrameCount := len(b.Frames.Events)
	wantOpCount := len(b.OpTasks)
	wantChilds := b.OpChilds
	wantNames := map[uint64]string{}
	b.Names.All(func(h uint64, n string) bool {
		wantNames[h] = n
		return true
	})

	data := Save(b)

	loaded, err := Load(data, baseTime)
	require.NoError(t, err)

	require.Equal(t, wantFrameCount, len(loaded.Frames.Events))
	require.Equal(t, wantOpCount, len(loaded.OpTasks))
	require.Equal(t, wantChilds, loaded.OpChilds)

	require.Equal(t, len(wantNames), loaded.Names.Len())
	for h, n := range wantNames {
		got, ok := loaded.Names.Lookup(h)
		require.True(t, ok)
		require.Equal(t, n, got)
	}

	for i, op := range b.OpTasks {
		require.Equal(t, op.StartNs, loaded.OpTasks[i].StartNs)
		require.Equal(t, op.EndNs, loaded.OpTasks[i].EndNs)
		require.Equal(t, op.Type, loaded.OpTasks[i].Type)
	}
}

func TestLoad_BadMagic(t *testing.T) {
	_, err := Load([]byte("nope"), 0)
	require.Error(t, err)
}

func TestLoad_ChecksumMismatch(t *testing.T) {
	b := model.NewBuilder(0)
	b.Dispatch(frameMark(10))
	data := Save(b)
	data[len(data)-1] ^= 0xFF // corrupt trailer checksum

	_, err := Load(data, 0)
	require.Error(t, err)
}

func TestSaveLoad_EmptyBuilder(t *testing.T) {
	b := model.NewBuilder(0)
	data := Save(b)

	loaded, err := Load(data, 0)
	require.NoError(t, err)
	require.Empty(t, loaded.OpTasks)
	require.Empty(t, loaded.Frames.Events)
}

func TestSaveLoad_SessionID(t *testing.T) {
	b := model.NewBuilder(0)
	b.SessionID = "f47ac10b-58cc-4372-a567-0e02b2c3d479"
	b.Dispatch(frameMark(10))

	data := Save(b)

	loaded, err := Load(data, 0)
	require.NoError(t, err)
	require.Equal(t, b.SessionID, loaded.SessionID)
}

func TestSaveLoad_NoSessionID(t *testing.T) {
	b := model.NewBuilder(0)
	b.Dispatch(frameMark(10))

	data := Save(b)

	loaded, err := Load(data, 0)
	require.NoError(t, err)
	require.Empty(t, loaded.SessionID)
}

func TestSaveLoad_WithCompression_AllCodecs(t *testing.T) {
	for _, ct := range []format.CompressionType{
		format.CompressionNone,
		format.CompressionLZ4,
		format.CompressionS2,
		format.CompressionZstd,
	} {
		t.Run(ct.String(), func(t *testing.T) {
			b := model.NewBuilder(1_000)
			for i := 0; i < 20; i++ {
				b.Dispatch(frameMark(1_000 + int64(i)*1000))
			}
			b.Dispatch(operateBegin(1_000, 1))
			b.Dispatch(operateEnd(2_000, 1))
			b.Names.Resolve(1, "attr_1")

			data := Save(b, WithCompression(ct))
			require.Equal(t, byte(ct), data[5])

			loaded, err := Load(data, 1_000)
			require.NoError(t, err)
			require.Equal(t, len(b.Frames.Events), len(loaded.Frames.Events))
			require.Equal(t, len(b.OpTasks), len(loaded.OpTasks))
		})
	}
}

func TestSaveLoad_UnknownCompressionType(t *testing.T) {
	b := model.NewBuilder(0)
	b.Dispatch(frameMark(10))
	data := Save(b)
	data[5] = 0xFF // corrupt the compression-type byte to an unknown value

	_, err := Load(data, 0)
	require.Error(t, err)
}
