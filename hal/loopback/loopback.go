// Package loopback implements an in-memory HAL used by tests and the
// bring-up example in cmd/sh2tool. It is the SHTP-domain
// analogue of the teacher's MockBackend (testing.go) and in-memory
// backend (backend/mem.go): a byte-oriented stand-in for real hardware
// that callers can feed and inspect directly.
package loopback

import (
	"sync"

	"github.com/hillcrestlabs/sh2go/internal/constants"
	"github.com/hillcrestlabs/sh2go/internal/hal"
)

// HAL is a queue-backed hal.HAL. Writes are recorded (Writes) and,
// unless Attach has wired this HAL to a peer, are not delivered
// anywhere; inbound data is supplied explicitly via Feed or arrives
// from an attached peer's Write calls.
//
// ReadChunk, when non-zero, caps how many bytes a single Read call
// delivers, splitting one fed transfer across multiple Read calls.
// Pieces after the first carry no SHTP header of their own.
type HAL struct {
	mu sync.Mutex

	maxTransferIn, maxTransferOut int
	maxPayloadIn, maxPayloadOut   int

	ReadChunk int

	inbox   [][]byte
	pending []byte // unconsumed remainder of inbox[0], when ReadChunk splits it

	writes [][]byte

	busyCountdown int

	peer *HAL

	closed bool
	opened bool

	clockUS int64
}

// New creates a loopback HAL sized per constants.DefaultMaxTransferIn
// etc. Use the With* options to override sizing for a specific test.
func New() *HAL {
	return &HAL{
		maxTransferIn:  constants.DefaultMaxTransferIn,
		maxTransferOut: constants.DefaultMaxTransferOut,
		maxPayloadIn:   constants.DefaultMaxPayloadIn,
		maxPayloadOut:  constants.DefaultMaxPayloadOut,
	}
}

// WithTransferSizes overrides the bus transfer caps (commonly exercised
// in tests to force fragmentation, e.g. HAL_MAX_TRANSFER_OUT = 8).
func (h *HAL) WithTransferSizes(in, out int) *HAL {
	h.maxTransferIn = in
	h.maxTransferOut = out
	return h
}

// WithPayloadSizes overrides the logical payload caps.
func (h *HAL) WithPayloadSizes(in, out int) *HAL {
	h.maxPayloadIn = in
	h.maxPayloadOut = out
	return h
}

// Attach wires h's outbound Write calls to deliver into peer's inbox,
// and peer's Write calls to deliver into h's inbox — a full-duplex
// loopback pair for round-trip testing (spec §8, "Round-trip").
func Attach(a, b *HAL) {
	a.peer = b
	b.peer = a
}

// Feed enqueues frame as a pending inbound transfer: the next Read call
// (or calls, if ReadChunk splits it) will return frame's bytes.
func (h *HAL) Feed(frame []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	cp := append([]byte(nil), frame...)
	h.inbox = append(h.inbox, cp)
}

// SetBusyWrites makes the next n Write calls return hal.ErrBusy before
// succeeding, simulating a bus that needs draining before it accepts
// more outbound data (spec §8 scenario 6, back-pressure).
func (h *HAL) SetBusyWrites(n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.busyCountdown = n
}

// Writes returns every frame successfully accepted by Write, in order.
func (h *HAL) Writes() [][]byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([][]byte, len(h.writes))
	copy(out, h.writes)
	return out
}

func (h *HAL) Open() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.opened = true
	h.closed = false
	return nil
}

func (h *HAL) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}

func (h *HAL) Read(buf []byte) (int, int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.pending) == 0 {
		if len(h.inbox) == 0 {
			return 0, 0, nil
		}
		h.pending = h.inbox[0]
		h.inbox = h.inbox[1:]
	}

	h.clockUS++
	ts := h.clockUS

	chunk := len(h.pending)
	if h.ReadChunk > 0 && h.ReadChunk < chunk {
		chunk = h.ReadChunk
	}
	if chunk > len(buf) {
		chunk = len(buf)
	}

	n := copy(buf, h.pending[:chunk])
	h.pending = h.pending[n:]
	return n, ts, nil
}

func (h *HAL) Write(buf []byte) (int, error) {
	h.mu.Lock()
	if h.busyCountdown > 0 {
		h.busyCountdown--
		h.mu.Unlock()
		return 0, hal.ErrBusy
	}
	cp := append([]byte(nil), buf...)
	h.writes = append(h.writes, cp)
	peer := h.peer
	h.mu.Unlock()

	if peer != nil {
		peer.Feed(cp)
	}
	return len(buf), nil
}

func (h *HAL) MaxTransferIn() int  { return h.maxTransferIn }
func (h *HAL) MaxTransferOut() int { return h.maxTransferOut }
func (h *HAL) MaxPayloadIn() int   { return h.maxPayloadIn }
func (h *HAL) MaxPayloadOut() int  { return h.maxPayloadOut }

var _ hal.HAL = (*HAL)(nil)
