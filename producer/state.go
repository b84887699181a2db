package producer

// State is the client worker's state machine position (§4.2).
type State int32

const (
	StateInit State = iota
	StateAdvertising
	StateHandshaking
	StateStreaming
	StateShutdown
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateAdvertising:
		return "Advertising"
	case StateHandshaking:
		return "Handshaking"
	case StateStreaming:
		return "Streaming"
	case StateShutdown:
		return "Shutdown"
	default:
		return "Unknown"
	}
}
