package producer

import (
	"go.uber.org/zap"

	"github.com/tgfxgo/inspector/internal/options"
)

// DefaultTargetFrameSize is the staging-buffer high-water mark that triggers a
// compressed send (§4.2, glossary "Target frame size"). Default 64 KiB.
const DefaultTargetFrameSize = 64 * 1024

// DefaultBroadcastNum is the number of UDP ports the producer advertises on
// beyond BasePort (§4.8).
const DefaultBroadcastNum = 8

// Config holds the Worker's tunables, built from functional Options in the
// teacher's options.Apply style.
type Config struct {
	ProgramName       string
	TargetFrameSize   int
	BroadcastNum      int
	BasePort          int
	AdvertiseInterval int // seconds, default 3 per §4.2
	Logger            *zap.Logger
	QueueCapacity     int
}

// Option configures a Worker at construction time.
type Option = options.Option[*Config]

func defaultConfig() *Config {
	return &Config{
		ProgramName:       "inspector",
		TargetFrameSize:   DefaultTargetFrameSize,
		BroadcastNum:      DefaultBroadcastNum,
		BasePort:          8086,
		AdvertiseInterval: 3,
		QueueCapacity:     4096,
	}
}

// WithProgramName sets the advertised program name, truncated to
// wire.ProgramNameSize on the wire.
func WithProgramName(name string) Option {
	return options.NoError[*Config](func(c *Config) { c.ProgramName = name })
}

// WithTargetFrameSize overrides the staging-buffer high-water mark.
func WithTargetFrameSize(n int) Option {
	return options.NoError[*Config](func(c *Config) { c.TargetFrameSize = n })
}

// WithBroadcastNum overrides the number of UDP beacon ports advertised.
func WithBroadcastNum(n int) Option {
	return options.NoError[*Config](func(c *Config) { c.BroadcastNum = n })
}

// WithBasePort overrides the base TCP/UDP port searched from.
func WithBasePort(port int) Option {
	return options.NoError[*Config](func(c *Config) { c.BasePort = port })
}

// WithLogger attaches a structured logger; defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return options.NoError[*Config](func(c *Config) { c.Logger = l })
}

// WithQueueCapacity overrides the MPSC ring's capacity.
func WithQueueCapacity(n int) Option {
	return options.NoError[*Config](func(c *Config) { c.QueueCapacity = n })
}
