package capture

import "github.com/tgfxgo/inspector/endian"

// tagEndian is the byte order used by the capture file's fixed-width
// fields, matching wire.wireEndian's choice of little-endian.
var tagEndian = endian.GetLittleEndianEngine()

// TagCode identifies a chunk's content within a capture file body (§4.7).
type TagCode uint16

const (
	TagEnd TagCode = iota
	TagFrame
	TagOpTask
	TagProperty
	TagTexture
	TagVertexBuffer
	TagShaderAndUniform
	TagNameMap
	TagSessionMeta
)

// extendedLengthSentinel is the low-6-bit value signaling the chunk's real
// length follows as an extra u32 (§4.7: "low6 == 63").
const extendedLengthSentinel = 63

// writeTagHeader appends a packed u16 code_and_length header, followed by an
// extended u32 length if length >= extendedLengthSentinel.
func writeTagHeader(dst []byte, code TagCode, length uint32) []byte {
	if length < extendedLengthSentinel {
		codeAndLength := uint16(code)<<6 | uint16(length)
		return appendU16(dst, codeAndLength)
	}

	codeAndLength := uint16(code)<<6 | extendedLengthSentinel
	dst = appendU16(dst, codeAndLength)
	return appendU32(dst, length)
}

// readTagHeader reads a tag header from src, returning the code, the
// payload length, and the number of header bytes consumed.
func readTagHeader(src []byte) (TagCode, uint32, int, bool) {
	if len(src) < 2 {
		return 0, 0, 0, false
	}
	codeAndLength := readU16(src)
	code := TagCode(codeAndLength >> 6)
	low6 := codeAndLength & 0x3F

	if low6 != extendedLengthSentinel {
		return code, uint32(low6), 2, true
	}

	if len(src) < 6 {
		return 0, 0, 0, false
	}
	return code, readU32(src[2:]), 6, true
}

// writeEndTag appends the End-tag sentinel (zero-length chunk with code 0).
func writeEndTag(dst []byte) []byte {
	return writeTagHeader(dst, TagEnd, 0)
}

func appendU16(dst []byte, v uint16) []byte { return tagEndian.AppendUint16(dst, v) }
func appendU32(dst []byte, v uint32) []byte { return tagEndian.AppendUint32(dst, v) }
func appendU64(dst []byte, v uint64) []byte { return tagEndian.AppendUint64(dst, v) }

func readU16(b []byte) uint16 { return tagEndian.Uint16(b) }
func readU32(b []byte) uint32 { return tagEndian.Uint32(b) }
func readU64(b []byte) uint64 { return tagEndian.Uint64(b) }
