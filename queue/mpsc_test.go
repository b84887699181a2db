package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tgfxgo/inspector/wire"
)

func TestQueue_PushPop_FIFO(t *testing.T) {
	q := New(8)

	for i := 0; i < 4; i++ {
		ok := q.TryPush(wire.NewFrameMark(int64(i)))
		require.True(t, ok)
	}

	for i := 0; i < 4; i++ {
		item, ok := q.TryPop()
		require.True(t, ok)
		require.Equal(t, int64(i), item.NsTime)
	}

	_, ok := q.TryPop()
	require.False(t, ok)
}

func TestQueue_DropOnOverflow(t *testing.T) {
	q := New(4) // rounds to 4

	for i := 0; i < 4; i++ {
		require.True(t, q.TryPush(wire.NewFrameMark(int64(i))))
	}

	// ring full: TryPush must return false, never block.
	ok := q.TryPush(wire.NewFrameMark(99))
	require.False(t, ok)

	item, ok := q.TryPop()
	require.True(t, ok)
	require.Equal(t, int64(0), item.NsTime)

	// freed one slot
	require.True(t, q.TryPush(wire.NewFrameMark(100)))
}

func TestQueue_NConcurrentProducers_NoDuplicationNoLoss(t *testing.T) {
	const producers = 8
	const perProducer = 2000

	q := New(1 << 20) // large enough that no drops occur in this test

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				for !q.TryPush(wire.NewValueDataUInt32(uint64(p), uint32(i))) {
					// capacity sized to avoid this in the test
				}
			}
		}(p)
	}
	wg.Wait()

	counts := make(map[uint64]int)
	total := 0
	for {
		item, ok := q.TryPop()
		if !ok {
			break
		}
		counts[item.Name]++
		total++
	}

	require.Equal(t, producers*perProducer, total)
	for p := 0; p < producers; p++ {
		require.Equal(t, perProducer, counts[uint64(p)])
	}
}

func TestQueue_NextPow2(t *testing.T) {
	require.Equal(t, 1, nextPow2(1))
	require.Equal(t, 4, nextPow2(3))
	require.Equal(t, 1024, nextPow2(1000))
}
