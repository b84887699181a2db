package capture

import "encoding/binary"

// MaxVarintLen32 bounds the encoded size of a u32 varint (§4.7).
const MaxVarintLen32 = binary.MaxVarintLen32

// putUvarint appends x as an unsigned varint (stdlib LEB128-style: 7 data
// bits per byte, MSB=1 if more bytes follow) to dst.
func putUvarint(dst []byte, x uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], x)
	return append(dst, tmp[:n]...)
}

// uvarint reads an unsigned varint from src, returning the value and the
// number of bytes consumed (0 on error).
func uvarint(src []byte) (uint64, int) {
	return binary.Uvarint(src)
}

// zigzagEncode maps a signed value to an unsigned one so small-magnitude
// negatives stay small-width on the wire: 0,-1,1,-2,2... -> 0,1,2,3,4...
func zigzagEncode(v int64) uint64 {
	return uint64(v<<1) ^ uint64(v>>63)
}

// zigzagDecode reverses zigzagEncode.
func zigzagDecode(u uint64) int64 {
	return int64(u>>1) ^ -int64(u&1)
}

// putVarint appends v as a zigzag-encoded signed varint.
func putVarint(dst []byte, v int64) []byte {
	return putUvarint(dst, zigzagEncode(v))
}

// varint reads a zigzag-encoded signed varint.
func varint(src []byte) (int64, int) {
	u, n := uvarint(src)
	if n <= 0 {
		return 0, n
	}
	return zigzagDecode(u), n
}
