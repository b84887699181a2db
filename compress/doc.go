// Package compress provides compression codecs for capture-file tag-chunk
// bodies and producer/consumer frame payloads.
//
// # Overview
//
// Two things in this repo get compressed:
//
//  1. The per-frame payload streamed between producer and consumer
//     (compress.FrameWriter/FrameReader, see framestream.go) — always LZ4,
//     chosen for fast decompression so the consumer's workLoop never becomes
//     the bottleneck.
//  2. The capture file's tag-chunk body (capture.Save/capture.Load) — the
//     codec is selectable via capture.WithCompression and recorded in the
//     file header's compression-type byte, so a saved file is always
//     self-describing regardless of which codec wrote it.
//
// # Architecture
//
// The package defines three core interfaces:
//
//	type Compressor interface {
//	    Compress(data []byte) ([]byte, error)
//	}
//
//	type Decompressor interface {
//	    Decompress(data []byte) ([]byte, error)
//	}
//
//	type Codec interface {
//	    Compressor
//	    Decompressor
//	}
//
// # Supported Algorithms
//
// **NoOp Compression** (format.CompressionNone)
//
//	codec := compress.NewNoOpCompressor()
//	compressed, _ := codec.Compress(data)  // Returns data unchanged
//	original, _ := codec.Decompress(compressed)  // Returns data unchanged
//
// Used as the fallback when the selected codec fails to compress a body
// (capture.Save degrades to storing it raw rather than losing the session).
//
// **Zstandard (Zstd)** (format.CompressionZstd)
//
// Best compression ratio, moderate speed. Good for capture files meant for
// long-term archival where read frequency is low.
//
// **S2** (format.CompressionS2)
//
// Balanced compression ratio and speed via klauspost/compress/s2.
//
// **LZ4** (format.CompressionLZ4)
//
// Fastest decompression. The frame stream's only codec, and capture's
// default, since most capture files are replayed shortly after recording.
//
// # Memory Management
//
// Zstd and LZ4 pool their encoders/decoders to avoid per-call allocation;
// S2 and NoOp are allocation-light enough not to need pooling.
//
// # Thread Safety
//
// All codec implementations are safe to share across goroutines.
package compress
