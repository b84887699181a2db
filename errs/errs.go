// Package errs defines the sentinel errors shared across the inspector
// subsystem. Call sites wrap these with fmt.Errorf("...: %w", errs.ErrXxx)
// to attach context; callers compare with errors.Is against the sentinel.
package errs

import "errors"

var (
	// ErrTransport indicates a socket read/send failure, short read, or timeout.
	ErrTransport = errors.New("inspector: transport error")

	// ErrProtocolMismatch indicates a shibboleth or protocol version mismatch
	// during handshake.
	ErrProtocolMismatch = errors.New("inspector: protocol mismatch")

	// ErrFileFormat indicates a bad magic, unsupported version, or truncated
	// chunk while reading a capture file.
	ErrFileFormat = errors.New("inspector: file format error")

	// ErrQueueOverflow indicates the MPSC event queue or staging buffer was
	// saturated and an event was dropped. Never propagated to the
	// instrumentation caller; only surfaced through metrics.
	ErrQueueOverflow = errors.New("inspector: queue overflow")

	// ErrStackMismatch indicates an OperateEnd arrived with no matching
	// OperateBegin on the stack. Recoverable; the event is dropped.
	ErrStackMismatch = errors.New("inspector: operate stack mismatch")

	// ErrUnknownTag indicates the consumer read a QueueItem tag outside the
	// known set. Fatal for the session: byte-stream alignment is lost.
	ErrUnknownTag = errors.New("inspector: unknown wire tag")

	// ErrShutdown indicates the operation was aborted because the owning
	// worker observed its shutdown flag.
	ErrShutdown = errors.New("inspector: shutting down")

	// ErrNotConnected indicates an operation required an active session
	// that does not currently exist.
	ErrNotConnected = errors.New("inspector: not connected")

	// ErrHashCollision indicates two distinct name-handle registrations
	// mapped to the same 64-bit hash with no name on record to disambiguate
	// (internal/collision.Tracker.TrackNameID).
	ErrHashCollision = errors.New("inspector: name hash collision")

	// ErrInvalidName indicates an empty name was passed to NameID/RegisterName.
	ErrInvalidName = errors.New("inspector: invalid name")

	// ErrNameAlreadyRegistered indicates the exact same (handle, name) pair
	// was registered before; harmless, since NameID is called repeatedly
	// for the same literal across a process's lifetime.
	ErrNameAlreadyRegistered = errors.New("inspector: name already registered")
)
