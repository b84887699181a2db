// Package wire defines the QueueItem tagged union and its packed
// little-endian encoding, matching the "Wire Codec" component of the
// inspector protocol: the in-memory layout of every instrumentation event as
// it travels from the producer's event queue to the TCP socket, and back on
// the consumer side.
package wire

// Tag identifies the variant of a QueueItem. It is always the first byte of
// the encoded record.
type Tag uint8

const (
	TagOperateBegin Tag = iota
	TagOperateEnd
	TagFrameMark
	TagKeepAlive
	TagValueDataUInt32
	TagValueDataInt
	TagValueDataFloat
	TagValueDataFloat4
	TagValueDataMat4 // 6 floats, affine 2x3; legacy name kept for wire compatibility
	TagValueDataBool
	TagValueDataEnum
	TagStringData
	TagValueName

	tagCount
)

func (t Tag) Valid() bool {
	return t < tagCount
}

func (t Tag) String() string {
	switch t {
	case TagOperateBegin:
		return "OperateBegin"
	case TagOperateEnd:
		return "OperateEnd"
	case TagFrameMark:
		return "FrameMark"
	case TagKeepAlive:
		return "KeepAlive"
	case TagValueDataUInt32:
		return "ValueDataUInt32"
	case TagValueDataInt:
		return "ValueDataInt"
	case TagValueDataFloat:
		return "ValueDataFloat"
	case TagValueDataFloat4:
		return "ValueDataFloat4"
	case TagValueDataMat4:
		return "ValueDataMat4"
	case TagValueDataBool:
		return "ValueDataBool"
	case TagValueDataEnum:
		return "ValueDataEnum"
	case TagStringData:
		return "StringData"
	case TagValueName:
		return "ValueName"
	default:
		return "Unknown"
	}
}

// FixedSize is the static per-tag byte width table, not counting the leading
// tag byte itself. Variable-length variants (StringData, ValueName) report
// the width of their fixed prefix only; the trailing payload length is read
// from the u16 immediately following that prefix.
var FixedSize = [tagCount]int{
	TagOperateBegin:    9,  // ns_time i64 + type u8
	TagOperateEnd:      9,  // ns_time i64 + type u8
	TagFrameMark:       8,  // ns_time i64
	TagKeepAlive:       0,  //
	TagValueDataUInt32: 12, // name u64 + value u32
	TagValueDataInt:    12, // name u64 + value i32
	TagValueDataFloat:  12, // name u64 + value f32
	TagValueDataFloat4: 24, // name u64 + 4 x f32
	TagValueDataMat4:   32, // name u64 + 6 x f32
	TagValueDataBool:   9,  // name u64 + value u8
	TagValueDataEnum:   10, // name u64 + value u16
	TagStringData:      10, // ptr u64 + len u16, followed by len bytes
	TagValueName:       10, // ptr u64 + len u16, followed by len bytes
}

// HasVariableTail reports whether the tag's encoded size extends beyond
// FixedSize[tag] with a trailing byte payload whose length is embedded in
// the fixed prefix.
func (t Tag) HasVariableTail() bool {
	return t == TagStringData || t == TagValueName
}
