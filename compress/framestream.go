package compress

import (
	"bytes"
	"io"

	"github.com/pierrec/lz4/v4"
)

// FrameWriter wraps a persistent lz4.Writer over a TargetFrameSize-scale
// staging buffer, giving the producer worker the "stateful streaming
// compressor with a persistent dictionary window" that §4.4 calls for.
//
// The original C++ inspector reaches for LZ4's block-mode
// LZ4_compress_fast_continue against a raw LZ4_stream_t so back-references
// can span commit boundaries. pierrec/lz4/v4 does not expose that low-level
// external-dictionary primitive; the idiomatic Go equivalent — the one every
// streaming LZ4 use in the example pack reaches for — is lz4.Writer's own
// frame format with BlockDependency enabled, writing directly against the
// session's net.Conn. Enabling BlockDependency keeps each block's window
// open to the ones before it for the lifetime of the Writer, which is the
// same "persistent dictionary" property, reached through the public
// streaming API instead of reimplementing it (see SPEC_FULL.md §5).
type FrameWriter struct {
	lz *lz4.Writer
}

// NewFrameWriter creates a FrameWriter over dst. The writer is reset (fresh
// dictionary window) at session start, mirroring "both are reset at session
// start" in §4.4.
func NewFrameWriter(dst io.Writer) *FrameWriter {
	lz := lz4.NewWriter(dst)
	lz.Header.BlockDependency = true
	return &FrameWriter{lz: lz}
}

// Reset rebinds the writer to dst and clears its dictionary window,
// matching the session-boundary reset in §4.4.
func (f *FrameWriter) Reset(dst io.Writer) {
	f.lz.Reset(dst)
}

// WriteFrame compresses and flushes one staging-buffer commit (§4.2's
// commit()) so the bytes reach the peer before the next commit accumulates.
// Flushing per commit, rather than closing the stream, is what keeps the
// dictionary window alive across commits within one session.
func (f *FrameWriter) WriteFrame(data []byte) (int, error) {
	n, err := f.lz.Write(data)
	if err != nil {
		return n, err
	}
	if err := f.lz.Flush(); err != nil {
		return n, err
	}
	return n, nil
}

// Close ends the frame stream at session teardown. A new session starts a
// fresh FrameWriter (or calls Reset), so the dictionary never leaks across
// sessions.
func (f *FrameWriter) Close() error {
	return f.lz.Close()
}

// FrameReader mirrors FrameWriter on the consumer's network thread.
type FrameReader struct {
	lz *lz4.Reader
}

// NewFrameReader creates a FrameReader over src.
func NewFrameReader(src io.Reader) *FrameReader {
	return &FrameReader{lz: lz4.NewReader(src)}
}

// Reset rebinds the reader to src and clears its dictionary window.
func (f *FrameReader) Reset(src io.Reader) {
	f.lz.Reset(src)
}

// Read reads decompressed bytes, implementing io.Reader so the consumer's
// net thread can treat the session as a continuous decompressed byte
// stream and walk it as a sequence of QueueItems without tracking frame
// boundaries itself.
func (f *FrameReader) Read(p []byte) (int, error) {
	return f.lz.Read(p)
}

// DrainAvailable reads from the frame reader into a fresh byte slice until
// at least max bytes have been read, the stream ends (io.EOF), or a read
// returns no data. Used by tests to collect a decompressed stream.
func DrainAvailable(r *FrameReader, max int) ([]byte, error) {
	var buf bytes.Buffer
	tmp := make([]byte, 4096)
	for buf.Len() < max {
		n, err := r.Read(tmp)
		if n > 0 {
			buf.Write(tmp[:n])
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return buf.Bytes(), err
		}
		if n == 0 {
			break
		}
	}
	return buf.Bytes(), nil
}
