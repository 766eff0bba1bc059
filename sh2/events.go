package sh2

import "github.com/hillcrestlabs/sh2go/internal/shtp"

// AsyncEventID enumerates the top-level asynchronous event categories a
// sensor hub reports outside the normal sensor-event stream, taken from
// original_source/sh2.h's sh2_AsyncEventId_e.
type AsyncEventID int

const (
	AsyncReset AsyncEventID = iota
	AsyncShtpEvent
	AsyncGetFeatureResp
)

// ShtpEventID mirrors original_source/sh2.h's sh2_ShtpEvent_e — the
// transport-layer diagnostic codes SHTP surfaces up through the
// facade's AsyncEvent stream, one per internal/shtp.EventKind plus the
// outbound-only TX_DISCARD and BAD_TX_CHAN, which no EventKind maps to.
type ShtpEventID int

const (
	ShtpTxDiscard ShtpEventID = iota
	ShtpShortFragment
	ShtpTooLargePayloads
	ShtpBadRxChan
	ShtpBadTxChan
	ShtpBadFragment
	ShtpBadSN
	ShtpInterruptedPayload
)

// shtpEventFromKind maps an internal/shtp.EventKind onto the facade's
// public ShtpEventID enumeration.
func shtpEventFromKind(k shtp.EventKind) (ShtpEventID, bool) {
	switch k {
	case shtp.EventShortFragment:
		return ShtpShortFragment, true
	case shtp.EventTooLargePayload:
		return ShtpTooLargePayloads, true
	case shtp.EventBadRxChan:
		return ShtpBadRxChan, true
	case shtp.EventBadFragment:
		return ShtpBadFragment, true
	case shtp.EventBadSeq:
		return ShtpBadSN, true
	case shtp.EventInterruptedPayload:
		return ShtpInterruptedPayload, true
	default:
		return 0, false
	}
}

// AsyncEvent is a decoded asynchronous notification from the sensor
// hub: a reset, an SHTP transport diagnostic, or an echoed feature
// response (original_source/sh2.h's sh2_AsyncEvent_t).
type AsyncEvent struct {
	ID        AsyncEventID
	ShtpEvent ShtpEventID
	Feature   *FeatureResponse
}

// AsyncEventCallback receives AsyncEvents as they occur.
type AsyncEventCallback func(cookie any, event AsyncEvent)

// SensorEvent is one reassembled input-report payload, not yet decoded
// into a specific sensor's fields (decoding concrete report layouts is
// a Non-goal; see SPEC_FULL.md §1), mirroring original_source/sh2.h's
// sh2_SensorEvent_t. ReportID is the report's first byte, lifted out
// for convenience the same way the rest of this package reads a
// report's discriminant from body[0]. DelayUS is the time since the
// last BASE_TIMESTAMP reference report on any sensor-report channel, or
// 0 if none has been seen yet. Report is a view into the session's
// reassembly buffer, which all channels share, bounded to
// MaxSensorEventLen bytes, and is only valid until the next Service call.
type SensorEvent struct {
	TimestampUS int64
	DelayUS     int64
	ReportID    uint8
	Report      []byte
}

// SensorEventCallback receives reassembled sensor reports from the
// input-report channel.
type SensorEventCallback func(cookie any, event SensorEvent)
