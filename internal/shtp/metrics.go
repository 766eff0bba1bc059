package shtp

import "sync/atomic"

// Metrics tracks the diagnostic counters named in spec §7. All fields are
// safe for concurrent read (e.g. from a monitoring goroutine) even though
// SHTP itself is single-threaded; only the owning session's thread ever
// increments them.
type Metrics struct {
	// Outbound (send) counters.
	TxTooLargePayloads atomic.Uint64 // send() rejected: payload > HAL max
	BadTxChan          atomic.Uint64 // send() rejected: channel >= 8
	TxDiscards         atomic.Uint64 // send() abandoned mid-fragmentation on HAL error
	TxPayloadsSent     atomic.Uint64 // send() completed successfully

	// Inbound (rxAssemble) counters.
	RxShortFragments     atomic.Uint64 // transfer < 4 bytes, or payload_len < 4
	RxBadChan            atomic.Uint64 // inbound channel >= 8
	RxInterruptedPayloads atomic.Uint64 // in-progress assembly abandoned
	RxTooLargePayloads   atomic.Uint64 // payload_len exceeds assembly buffer
	RxPayloadsDelivered  atomic.Uint64 // completed assemblies, counted whether or not a listener is registered
	RxBadSeq             atomic.Uint64 // observed sequence != expected (diagnostic only)
}

// NewMetrics returns a zeroed Metrics record.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// Observer receives SHTP diagnostic events as they occur, in addition to
// (not instead of) the Metrics counters and the session's async-event
// callback. A session's Observer is optional; a nil Observer is a no-op.
type Observer interface {
	ObserveShortFragment()
	ObserveBadRxChan()
	ObserveInterruptedPayload()
	ObserveTooLargePayload(direction Direction)
	ObserveBadSeq(channel uint8, expected, got uint8)
	ObserveTxDiscard(channel uint8)
	ObserveDelivery(channel uint8, length int)
}

// Direction distinguishes inbound from outbound in observer callbacks
// that apply to both directions.
type Direction int

const (
	DirectionRx Direction = iota
	DirectionTx
)

// NoOpObserver implements Observer with no-ops; it is the default when a
// session is opened without an explicit Observer.
type NoOpObserver struct{}

func (NoOpObserver) ObserveShortFragment()                      {}
func (NoOpObserver) ObserveBadRxChan()                           {}
func (NoOpObserver) ObserveInterruptedPayload()                  {}
func (NoOpObserver) ObserveTooLargePayload(Direction)            {}
func (NoOpObserver) ObserveBadSeq(uint8, uint8, uint8)           {}
func (NoOpObserver) ObserveTxDiscard(uint8)                      {}
func (NoOpObserver) ObserveDelivery(uint8, int)                  {}

// MetricsObserver records every observed event into a Metrics record,
// mirroring the teacher's MetricsObserver-over-Metrics split so a caller
// can either poll Metrics directly or receive a live event stream.
type MetricsObserver struct {
	metrics *Metrics
}

func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObserveShortFragment()  { o.metrics.RxShortFragments.Add(1) }
func (o *MetricsObserver) ObserveBadRxChan()       { o.metrics.RxBadChan.Add(1) }
func (o *MetricsObserver) ObserveInterruptedPayload() {
	o.metrics.RxInterruptedPayloads.Add(1)
}
func (o *MetricsObserver) ObserveTooLargePayload(dir Direction) {
	if dir == DirectionRx {
		o.metrics.RxTooLargePayloads.Add(1)
	} else {
		o.metrics.TxTooLargePayloads.Add(1)
	}
}
func (o *MetricsObserver) ObserveBadSeq(uint8, uint8, uint8) { o.metrics.RxBadSeq.Add(1) }
func (o *MetricsObserver) ObserveTxDiscard(uint8)            { o.metrics.TxDiscards.Add(1) }
func (o *MetricsObserver) ObserveDelivery(uint8, int)        { o.metrics.RxPayloadsDelivered.Add(1) }

var _ Observer = (*MetricsObserver)(nil)
var _ Observer = NoOpObserver{}
