package consumer

import (
	"time"

	"go.uber.org/zap"

	"github.com/tgfxgo/inspector/internal/options"
)

// DefaultQuerySpaceBase bounds how many server-query packets the client may
// have in flight; each StringData/ValueName reply from the producer returns
// one credit (§4.2, §6 serverQuerySpaceLeft/serverQuerySpaceBase). The
// original sizes this from the socket's send-buffer size; Go's net package
// doesn't expose that portably, so we use a fixed conservative budget
// instead (§9 supplement 2).
const DefaultQuerySpaceBase = 1020

// DefaultDialTimeout bounds the initial TCP connect attempt.
const DefaultDialTimeout = 5 * time.Second

// DefaultHandshakeTimeout bounds the Welcome/HandshakeStatus round trip.
const DefaultHandshakeTimeout = 2 * time.Second

// DefaultReadBufferSize sizes the net thread's decompression read buffer.
const DefaultReadBufferSize = 64 * 1024

// DefaultNetCredit bounds outstanding decompressed chunks the net thread
// may hand the work thread before blocking, the Go analogue of the
// original's netWriteCnt bounded-credit flow control.
const DefaultNetCredit = 2

// Config holds the Client's tunables.
type Config struct {
	DialTimeout      time.Duration
	HandshakeTimeout time.Duration
	ReadBufferSize   int
	NetCredit        int
	QuerySpaceBase   int
	Logger           *zap.Logger
}

// Option configures a Client at construction time.
type Option = options.Option[*Config]

func defaultConfig() *Config {
	return &Config{
		DialTimeout:      DefaultDialTimeout,
		HandshakeTimeout: DefaultHandshakeTimeout,
		ReadBufferSize:   DefaultReadBufferSize,
		NetCredit:        DefaultNetCredit,
		QuerySpaceBase:   DefaultQuerySpaceBase,
	}
}

// WithDialTimeout overrides the initial TCP connect timeout.
func WithDialTimeout(d time.Duration) Option {
	return options.NoError[*Config](func(c *Config) { c.DialTimeout = d })
}

// WithHandshakeTimeout overrides the Welcome/HandshakeStatus round-trip timeout.
func WithHandshakeTimeout(d time.Duration) Option {
	return options.NoError[*Config](func(c *Config) { c.HandshakeTimeout = d })
}

// WithReadBufferSize overrides the net thread's read chunk size.
func WithReadBufferSize(n int) Option {
	return options.NoError[*Config](func(c *Config) { c.ReadBufferSize = n })
}

// WithNetCredit overrides the bounded net-to-work flow-control credit.
func WithNetCredit(n int) Option {
	return options.NoError[*Config](func(c *Config) { c.NetCredit = n })
}

// WithQuerySpaceBase overrides the server-query in-flight budget.
func WithQuerySpaceBase(n int) Option {
	return options.NoError[*Config](func(c *Config) { c.QuerySpaceBase = n })
}

// WithLogger attaches a structured logger; defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return options.NoError[*Config](func(c *Config) { c.Logger = l })
}
