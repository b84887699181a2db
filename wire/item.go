package wire

// QueueItem is a tagged union of every instrumentation event variant. Only
// the fields relevant to Tag are meaningful; this mirrors the packed C union
// of the original protocol without resorting to unsafe reinterpretation —
// Go's sum-type idiom here is "one struct, one discriminant, ignore the rest".
type QueueItem struct {
	Tag Tag

	// NsTime is populated for OperateBegin, OperateEnd, FrameMark. On the
	// wire this field is rewritten to a delta against the stream's refTime
	// (see Encoder/Decoder); in memory it is always the absolute monotonic
	// nanosecond timestamp.
	NsTime int64

	// OpType is populated for OperateBegin/OperateEnd.
	OpType uint8

	// Name is the attribute/string handle for ValueData* and StringData/
	// ValueName variants.
	Name uint64

	// Value32 holds the raw 4-byte payload for ValueDataUInt32/Int/Float,
	// reinterpreted by the caller according to Tag.
	Value32 uint32

	// Value4 holds the 4 floats of ValueDataFloat4.
	Value4 [4]float32

	// Value6 holds the 6 floats of ValueDataMat4 (affine 2x3, legacy name).
	Value6 [6]float32

	// ValueBool is populated for ValueDataBool.
	ValueBool bool

	// ValueEnum packs {enumType: high byte, ordinal: low byte} for
	// ValueDataEnum.
	ValueEnum uint16

	// Bytes holds the variable-length payload for StringData/ValueName.
	Bytes []byte
}

// NewOperateBegin constructs an OperateBegin item.
func NewOperateBegin(nsTime int64, opType uint8) QueueItem {
	return QueueItem{Tag: TagOperateBegin, NsTime: nsTime, OpType: opType}
}

// NewOperateEnd constructs an OperateEnd item.
func NewOperateEnd(nsTime int64, opType uint8) QueueItem {
	return QueueItem{Tag: TagOperateEnd, NsTime: nsTime, OpType: opType}
}

// NewFrameMark constructs a FrameMark item.
func NewFrameMark(nsTime int64) QueueItem {
	return QueueItem{Tag: TagFrameMark, NsTime: nsTime}
}

// NewKeepAlive constructs a KeepAlive item.
func NewKeepAlive() QueueItem {
	return QueueItem{Tag: TagKeepAlive}
}

// NewValueDataUInt32 constructs a ValueDataUInt32 item (also used for color).
func NewValueDataUInt32(name uint64, value uint32) QueueItem {
	return QueueItem{Tag: TagValueDataUInt32, Name: name, Value32: value}
}

// NewValueDataInt constructs a ValueDataInt item.
func NewValueDataInt(name uint64, value int32) QueueItem {
	return QueueItem{Tag: TagValueDataInt, Name: name, Value32: uint32(value)}
}

// NewValueDataFloat constructs a ValueDataFloat item.
func NewValueDataFloat(name uint64, value float32) QueueItem {
	return QueueItem{Tag: TagValueDataFloat, Name: name, Value32: float32bits(value)}
}

// NewValueDataFloat4 constructs a ValueDataFloat4 item.
func NewValueDataFloat4(name uint64, value [4]float32) QueueItem {
	return QueueItem{Tag: TagValueDataFloat4, Name: name, Value4: value}
}

// NewValueDataMat4 constructs a ValueDataMat4 item (6-float affine 2x3 form).
func NewValueDataMat4(name uint64, value [6]float32) QueueItem {
	return QueueItem{Tag: TagValueDataMat4, Name: name, Value6: value}
}

// NewValueDataBool constructs a ValueDataBool item.
func NewValueDataBool(name uint64, value bool) QueueItem {
	return QueueItem{Tag: TagValueDataBool, Name: name, ValueBool: value}
}

// NewValueDataEnum constructs a ValueDataEnum item. enumType occupies the
// high byte, ordinal the low byte.
func NewValueDataEnum(name uint64, enumType uint8, ordinal uint8) QueueItem {
	return QueueItem{Tag: TagValueDataEnum, Name: name, ValueEnum: uint16(enumType)<<8 | uint16(ordinal)}
}

// NewStringData constructs a StringData response item.
func NewStringData(ptr uint64, data []byte) QueueItem {
	return QueueItem{Tag: TagStringData, Name: ptr, Bytes: data}
}

// NewValueName constructs a ValueName response item.
func NewValueName(ptr uint64, name []byte) QueueItem {
	return QueueItem{Tag: TagValueName, Name: ptr, Bytes: name}
}

// Float32 reinterprets Value32 as a float32 for ValueDataFloat items.
func (q *QueueItem) Float32() float32 {
	return float32frombits(q.Value32)
}

// Int32 reinterprets Value32 as an int32 for ValueDataInt items.
func (q *QueueItem) Int32() int32 {
	return int32(q.Value32)
}

// EnumParts splits ValueEnum into (enumType, ordinal).
func (q *QueueItem) EnumParts() (enumType uint8, ordinal uint8) {
	return uint8(q.ValueEnum >> 8), uint8(q.ValueEnum)
}
