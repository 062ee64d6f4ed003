package udp

type EventType uint

const (
	EventTypeNone EventType = iota
	EventTypeConnect
	EventTypeDisconnect
	EventTypeReceive
)

func (t EventType) String() string {
	switch t {
	case EventTypeConnect:
		return "connect"
	case EventTypeDisconnect:
		return "disconnect"
	case EventTypeReceive:
		return "receive"
	default:
		return "none"
	}
}

type Event struct {
	Type EventType
	Peer *Peer
	Data []byte // only set for EventTypeReceive
}
