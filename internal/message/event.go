package message

// EventType identifies the kind of input event delivered to the lock screen.
type EventType int

const (
	EventUnknown EventType = iota
	EventKeyPress
	EventPointerMove
	EventFocusIn
	EventFocusOut
)

// Named keys carried in Event.Key. Printable input arrives in Event.Text
// with an empty Key.
const (
	KeyReturn    = "Return"
	KeyBackSpace = "BackSpace"
	KeyEscape    = "Escape"
)

// Event is a platform-neutral input event.
type Event struct {
	Type EventType
	Key  string
	Text string
	X    int
	Y    int
}

func (t EventType) String() string {
	switch t {
	case EventKeyPress:
		return "key-press"
	case EventPointerMove:
		return "pointer-move"
	case EventFocusIn:
		return "focus-in"
	case EventFocusOut:
		return "focus-out"
	default:
		return "unknown"
	}
}
