package shtp

// Callback is invoked once per fully reassembled inbound payload on the
// channel it was registered for.
type Callback func(cookie any, payload []byte, timestampUS int64)

// EventKind enumerates the asynchronous framing anomalies SHTP reports
// through the session's event callback (spec §7).
type EventKind int

const (
	EventShortFragment EventKind = iota + 1
	EventTooLargePayload
	EventBadRxChan
	EventBadFragment
	EventBadSeq
	EventInterruptedPayload
)

func (e EventKind) String() string {
	switch e {
	case EventShortFragment:
		return "SHORT_FRAGMENT"
	case EventTooLargePayload:
		return "TOO_LARGE_PAYLOADS"
	case EventBadRxChan:
		return "BAD_RX_CHAN"
	case EventBadFragment:
		return "BAD_FRAGMENT"
	case EventBadSeq:
		return "BAD_SN"
	case EventInterruptedPayload:
		return "INTERRUPTED_PAYLOAD"
	default:
		return "UNKNOWN"
	}
}

// EventCallback receives SHTP asynchronous events.
type EventCallback func(cookie any, event EventKind)

// channel is a per-session, per-channel record: sequence counters plus an
// optional listener. A channel with no callback is passively consumed —
// its bytes are reassembled but discarded on delivery.
type channel struct {
	nextOutSeq uint8
	nextInSeq  uint8
	callback   Callback
	cookie     any
	sending    bool // re-entrancy guard for Send (spec §9)
}
