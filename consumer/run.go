package consumer

import (
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/tgfxgo/inspector/errs"
	"github.com/tgfxgo/inspector/metrics"
	"github.com/tgfxgo/inspector/wire"
)

// Run drives the two-thread network/work pipeline (§4.2's Network/Exec
// split) until the connection closes or Shutdown is called. It blocks until
// the session ends and must run on its own goroutine.
func (c *Client) Run() error {
	defer close(c.done)

	chunks := make(chan []byte, c.cfg.NetCredit)
	netErr := make(chan error, 1)

	go c.netLoop(chunks, netErr)

	err := c.workLoop(chunks, netErr)
	if c.shutdown.Load() {
		return nil
	}
	return err
}

// netLoop reads decompressed bytes off the frame reader and hands them to
// the work goroutine over a bounded channel — the Go analogue of the
// original's netWriteCnt credit: once the channel is full, this goroutine
// blocks on send until the work goroutine drains it.
func (c *Client) netLoop(out chan<- []byte, errc chan<- error) {
	buf := make([]byte, c.cfg.ReadBufferSize)
	for {
		n, err := c.fr.Read(buf)
		if n > 0 {
			metrics.BytesReceivedTotal.Add(float64(n))
			chunk := append([]byte(nil), buf[:n]...)
			select {
			case out <- chunk:
			case <-c.done:
				return
			}
		}
		if err != nil {
			if err == io.EOF {
				close(out)
				return
			}
			c.cfg.Logger.Warn("network read failed", zap.Error(err))
			errc <- fmt.Errorf("consumer: network read: %w", errs.ErrTransport)
			close(out)
			return
		}
	}
}

// workLoop accumulates decoded bytes and dispatches each QueueItem into the
// model.Builder, draining server queries and restoring query-space credit
// as StringData/ValueName replies arrive (§4.2, §6).
func (c *Client) workLoop(in <-chan []byte, netErr <-chan error) error {
	dec := wire.NewDecoder(c.refTime)
	var pending []byte

	for chunk := range in {
		pending = append(pending, chunk...)

		for {
			item, n, err := dec.Next(pending)
			if err != nil {
				if errors.Is(err, errs.ErrTransport) {
					break // not enough bytes buffered yet for the next item
				}
				c.cfg.Logger.Warn("decode failed, terminating session", zap.Error(err))
				_ = c.QueryTerminate()
				return fmt.Errorf("consumer: decode: %w", err)
			}
			pending = pending[n:]

			c.mu.Lock()
			c.builder.Dispatch(item)
			c.mu.Unlock()

			if item.Tag == wire.TagStringData || item.Tag == wire.TagValueName {
				c.restoreQuerySpace(1)
			}
		}

		c.drainQueries()
	}

	select {
	case err := <-netErr:
		return err
	default:
		return nil
	}
}
