// Package consumer implements the viewer side of a session (§4.2's
// server/Worker role, renamed to avoid colliding with producer.Worker): it
// dials a discovered producer, performs the handshake, and runs the
// two-thread network/work pipeline that decompresses and dispatches the
// event stream into a model.Builder.
package consumer

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tgfxgo/inspector/compress"
	"github.com/tgfxgo/inspector/errs"
	"github.com/tgfxgo/inspector/internal/options"
	"github.com/tgfxgo/inspector/metrics"
	"github.com/tgfxgo/inspector/model"
	"github.com/tgfxgo/inspector/telemetrylog"
	"github.com/tgfxgo/inspector/wire"
)

// Client is one viewer session against one producer. Dial establishes the
// connection and handshake; Run drives the network/work pipeline until the
// session ends or Shutdown is called.
type Client struct {
	cfg  *Config
	conn net.Conn
	fr   *compress.FrameReader

	// SessionID identifies this viewer session, generated at Dial time and
	// embedded in any capture file this session's builder is later Saved to
	// (§9 supplement).
	SessionID string

	mu      sync.Mutex
	builder *model.Builder
	refTime int64

	querySpace    int
	queryPriority []wire.ServerQueryPacket
	queryRegular  []wire.ServerQueryPacket

	shutdown atomic.Bool
	done     chan struct{}
}

// Dial connects to addr, performs the shibboleth/version handshake, and
// seeds a model.Builder from the WelcomeMessage (§4.2).
func Dial(addr string, opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = telemetrylog.Noop()
	}

	conn, err := net.DialTimeout("tcp", addr, cfg.DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("consumer: dial %s: %w", addr, errs.ErrTransport)
	}

	c := &Client{
		cfg:        cfg,
		conn:       conn,
		SessionID:  uuid.NewString(),
		querySpace: cfg.QuerySpaceBase,
		done:       make(chan struct{}),
	}
	cfg.Logger.Info("session dialed", zap.String("addr", addr), zap.String("session_id", c.SessionID))

	if err := c.handshake(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	c.builder.SessionID = c.SessionID

	c.fr = compress.NewFrameReader(conn)
	return c, nil
}

// handshake sends the shibboleth+version preamble, reads the
// HandshakeStatus reply, and on success reads the WelcomeMessage and seeds
// the model.Builder (§4.2).
func (c *Client) handshake() error {
	_ = c.conn.SetDeadline(time.Now().Add(c.cfg.HandshakeTimeout))
	defer func() { _ = c.conn.SetDeadline(time.Time{}) }()

	preamble := make([]byte, 8+4)
	copy(preamble[:8], wire.Shibboleth[:])
	binary.LittleEndian.PutUint32(preamble[8:], wire.ProtocolVersion)
	if _, err := c.conn.Write(preamble); err != nil {
		return fmt.Errorf("consumer: send handshake: %w", errs.ErrTransport)
	}

	var statusByte [1]byte
	if _, err := io.ReadFull(c.conn, statusByte[:]); err != nil {
		return fmt.Errorf("consumer: read handshake status: %w", errs.ErrTransport)
	}

	switch wire.HandshakeStatus(statusByte[0]) {
	case wire.HandshakeWelcome:
	case wire.HandshakeProtocolMismatch:
		return fmt.Errorf("consumer: %w", errs.ErrProtocolMismatch)
	default:
		return fmt.Errorf("consumer: handshake rejected: %w", errs.ErrTransport)
	}

	buf := make([]byte, 24+wire.ProgramNameSize)
	if _, err := io.ReadFull(c.conn, buf); err != nil {
		return fmt.Errorf("consumer: read welcome: %w", errs.ErrTransport)
	}
	welcome, ok := wire.UnmarshalWelcomeMessage(buf)
	if !ok {
		return fmt.Errorf("consumer: short welcome message: %w", errs.ErrTransport)
	}

	b := model.NewBuilder(welcome.InitBeginNs)
	b.SeedWelcomeFrames(welcome.InitBeginNs, welcome.InitEndNs)
	c.builder = b
	c.refTime = welcome.RefTimeNs
	return nil
}

// Shutdown closes the session connection, unblocking Run.
func (c *Client) Shutdown() {
	c.shutdown.Store(true)
	_ = c.conn.Close()
}

// Done returns a channel closed once Run has returned.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// WithBuilder runs fn against the Client's model.Builder under the lock
// shared with the work goroutine, the safe way to read frame/op/property
// state from outside Run's goroutine.
func (c *Client) WithBuilder(fn func(*model.Builder)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.builder)
}

// Query sends a server-side query immediately if the session is idle and
// has rate-limit credit, otherwise it queues the request (priority queue
// first) to be drained as the work thread processes the stream (§4.2, §6).
func (c *Client) Query(queryType wire.ServerQueryType, ptr uint64, extra uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	pkt := wire.ServerQueryPacket{Type: queryType, Ptr: ptr, Extra: extra}
	if c.querySpace > 0 && len(c.queryPriority) == 0 && len(c.queryRegular) == 0 {
		c.querySpace--
		metrics.ServerQuerySpaceLeft.Set(float64(c.querySpace))
		_, err := c.conn.Write(pktBytes(pkt))
		return err
	}
	if queryType.Prioritized() {
		c.queryPriority = append(c.queryPriority, pkt)
	} else {
		c.queryRegular = append(c.queryRegular, pkt)
	}
	return nil
}

// QueryTerminate sends an immediate, unqueued termination request, used on
// a fatal decode error to ask the producer to stop streaming (§4.2
// QueryTerminate).
func (c *Client) QueryTerminate() error {
	pkt := wire.ServerQueryPacket{Type: wire.ServerQueryTerminate}
	_, err := c.conn.Write(pktBytes(pkt))
	return err
}

// drainQueries sends queued queries, priority queue first, up to the
// available rate-limit credit (§4.2, §6).
func (c *Client) drainQueries() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for c.querySpace > 0 && len(c.queryPriority) > 0 {
		_, _ = c.conn.Write(pktBytes(c.queryPriority[0]))
		c.queryPriority = c.queryPriority[1:]
		c.querySpace--
	}
	for c.querySpace > 0 && len(c.queryRegular) > 0 {
		_, _ = c.conn.Write(pktBytes(c.queryRegular[0]))
		c.queryRegular = c.queryRegular[1:]
		c.querySpace--
	}
	metrics.ServerQuerySpaceLeft.Set(float64(c.querySpace))
}

// restoreQuerySpace replenishes n credits, capped at QuerySpaceBase. The
// work loop calls it once per processed StringData/ValueName reply,
// mirroring the original incrementing serverQuerySpaceLeft on each one.
func (c *Client) restoreQuerySpace(n int) {
	c.mu.Lock()
	c.querySpace += n
	if c.querySpace > c.cfg.QuerySpaceBase {
		c.querySpace = c.cfg.QuerySpaceBase
	}
	c.mu.Unlock()
}

func pktBytes(p wire.ServerQueryPacket) []byte {
	return p.MarshalBinary()
}
