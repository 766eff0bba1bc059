package shtp

import (
	"testing"

	"github.com/hillcrestlabs/sh2go/hal/loopback"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T, h *loopback.HAL) *Session {
	t.Helper()
	r := NewRegistry(1)
	handle, err := r.Open(h, nil)
	require.NoError(t, err)
	s := r.Get(handle)
	require.NotNil(t, s)
	return s
}

// Scenario 1: single-fragment send (spec §8.1).
func TestSend_SingleFragment(t *testing.T) {
	h := loopback.New().WithTransferSizes(32, 32)
	s := newTestSession(t, h)
	s.channels[2].nextOutSeq = 5

	err := s.Send(2, []byte{0xAA, 0xBB, 0xCC})
	require.NoError(t, err)

	writes := h.Writes()
	require.Len(t, writes, 1)
	assert.Equal(t, []byte{0x07, 0x00, 0x02, 0x05, 0xAA, 0xBB, 0xCC}, writes[0])
	assert.Equal(t, uint8(6), s.channels[2].nextOutSeq)
}

// Scenario 2: two-fragment send (spec §8.2).
func TestSend_TwoFragments(t *testing.T) {
	h := loopback.New().WithTransferSizes(8, 8)
	s := newTestSession(t, h)
	s.channels[3].nextOutSeq = 0

	err := s.Send(3, []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06})
	require.NoError(t, err)

	writes := h.Writes()
	require.Len(t, writes, 2)
	assert.Equal(t, []byte{0x08, 0x00, 0x03, 0x00, 0x01, 0x02, 0x03, 0x04}, writes[0])
	assert.Equal(t, []byte{0x06, 0x80, 0x03, 0x01, 0x05, 0x06}, writes[1])
	assert.Equal(t, uint8(2), s.channels[3].nextOutSeq)
}

// Scenario 4: bad inbound channel (spec §8.4).
func TestRxAssemble_BadChannel(t *testing.T) {
	h := loopback.New()
	s := newTestSession(t, h)

	var delivered bool
	require.NoError(t, s.ListenSystem(3, func(any, []byte, int64) { delivered = true }, nil))

	var events []EventKind
	s.SetEventCallback(func(_ any, k EventKind) { events = append(events, k) }, nil)

	h.Feed([]byte{0x08, 0x00, 0x09, 0x00, 0x01, 0x02, 0x03, 0x04})
	require.NoError(t, s.Service())

	assert.False(t, delivered)
	assert.Equal(t, uint64(1), s.Metrics().RxBadChan.Load())
	assert.Equal(t, []EventKind{EventBadRxChan}, events)
}

// Scenario 5: interrupted payload (spec §8.5). The first fragment
// advertises a declared length (12) larger than what this transfer
// actually delivers (8 bytes: 4 header + 4 body), so the assembly stays
// open; a non-continuation fragment on a different channel then arrives
// and must abort the in-progress assembly before starting its own.
func TestRxAssemble_InterruptedPayload(t *testing.T) {
	h := loopback.New()
	s := newTestSession(t, h)

	var gotCh uint8
	var gotBody []byte
	require.NoError(t, s.ListenSystem(2, func(_ any, body []byte, _ int64) {
		gotCh = 2
		gotBody = append([]byte(nil), body...)
	}, nil))

	var events []EventKind
	s.SetEventCallback(func(_ any, k EventKind) { events = append(events, k) }, nil)

	// ch=1, seq=0, declares length 12 (total transfer incl. header) but
	// this physical transfer only carries 8 bytes (4 body).
	h.Feed([]byte{0x0C, 0x00, 0x01, 0x00, 0x01, 0x02, 0x03, 0x04})
	require.NoError(t, s.Service())
	assert.False(t, s.rx.idle(), "assembly should remain open awaiting the rest of the declared 12 bytes")

	// A fresh, non-continuation fragment on channel 2 interrupts it.
	h.Feed([]byte{0x07, 0x00, 0x02, 0x00, 0xAA, 0xBB, 0xCC})
	require.NoError(t, s.Service())

	assert.Equal(t, uint64(1), s.Metrics().RxInterruptedPayloads.Load())
	assert.Contains(t, events, EventBadFragment)
	assert.Contains(t, events, EventInterruptedPayload)

	// The interrupting fragment is itself complete and starts its own
	// assembly, which delivers immediately.
	assert.Equal(t, uint8(2), gotCh)
	assert.Equal(t, []byte{0xAA, 0xBB, 0xCC}, gotBody)
}

// A legitimate multi-part inbound message: the first physical transfer
// under-delivers relative to its own declared length (a short bus read
// of a larger pending transfer), and a second, matching continuation
// completes it in one callback (spec §4.4 step 9/10; see DESIGN.md
// Open Question 3).
func TestRxAssemble_ShortReadThenContinuation(t *testing.T) {
	h := loopback.New()
	s := newTestSession(t, h)

	var got []byte
	require.NoError(t, s.ListenSystem(1, func(_ any, body []byte, _ int64) {
		got = append([]byte(nil), body...)
	}, nil))

	h.Feed([]byte{0x0C, 0x00, 0x01, 0x00, 0x01, 0x02, 0x03, 0x04}) // declares 12, delivers 8
	require.NoError(t, s.Service())
	require.False(t, s.rx.idle())

	h.Feed([]byte{0x08, 0x80, 0x01, 0x01, 0x05, 0x06, 0x07, 0x08}) // declares 8, matches remaining
	require.NoError(t, s.Service())

	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, got)
	assert.Equal(t, uint64(1), s.Metrics().RxPayloadsDelivered.Load())
}

// Send's own multi-fragment output, each fragment declaring exactly its
// own chunk size (matching scenario 2), does not recombine into one
// callback when looped straight back — each complete, self-declaring
// fragment is delivered on its own as soon as it arrives. This is the
// documented tension between §4.3 (send) and §4.4/§8's reassembly
// invariant; see DESIGN.md Open Question 3. The test records the
// as-specified behavior rather than silently assuming recombination.
func TestRoundTrip_MultiFragmentSendDeliversPerFragment(t *testing.T) {
	h := loopback.New().WithTransferSizes(8, 8)
	loopback.Attach(h, h)
	s := newTestSession(t, h)

	var deliveries [][]byte
	require.NoError(t, s.ListenSystem(3, func(_ any, body []byte, _ int64) {
		deliveries = append(deliveries, append([]byte(nil), body...))
	}, nil))

	require.NoError(t, s.Send(3, []byte{1, 2, 3, 4, 5, 6}))
	require.NoError(t, s.Service())
	require.NoError(t, s.Service())

	require.Len(t, deliveries, 2)
	assert.Equal(t, []byte{1, 2, 3, 4}, deliveries[0])
	assert.Equal(t, []byte{5, 6}, deliveries[1])
}

// Round trip of a payload that fits in a single fragment delivers
// verbatim in exactly one callback (spec §8, "Round-trip").
func TestRoundTrip_SingleFragment(t *testing.T) {
	h := loopback.New().WithTransferSizes(32, 32)
	loopback.Attach(h, h)
	s := newTestSession(t, h)

	var got []byte
	require.NoError(t, s.ListenSystem(2, func(_ any, body []byte, _ int64) {
		got = append([]byte(nil), body...)
	}, nil))

	payload := []byte{0x11, 0x22, 0x33, 0x44}
	require.NoError(t, s.Send(2, payload))
	require.NoError(t, s.Service())

	assert.Equal(t, payload, got)
}

// Scenario 6: back-pressure. Write fails (hal.ErrBusy) the first two
// attempts; Send must pump Service between retries, and a concurrently
// queued inbound transfer is reassembled during the Send call itself.
func TestSend_BackpressurePumpsService(t *testing.T) {
	h := loopback.New().WithTransferSizes(32, 32)
	s := newTestSession(t, h)

	var delivered bool
	require.NoError(t, s.ListenSystem(5, func(any, []byte, int64) { delivered = true }, nil))

	h.SetBusyWrites(2)
	h.Feed([]byte{0x07, 0x00, 0x05, 0x00, 0xAA, 0xBB, 0xCC})

	require.NoError(t, s.Send(2, []byte{0x01}))

	assert.True(t, delivered, "Send's back-pressure retries should have pumped Service and delivered the queued inbound transfer")
	assert.Len(t, h.Writes(), 1)
}

// §9 "Back-pressure re-entry": a listener invoked during Send's own
// back-pressure pump must not be able to interleave a nested Send on
// the same channel.
func TestSend_ReentrancyGuard(t *testing.T) {
	h := loopback.New().WithTransferSizes(32, 32)
	s := newTestSession(t, h)

	h.SetBusyWrites(1)
	var nestedErr error
	require.NoError(t, s.ListenSystem(4, func(any, []byte, int64) {
		nestedErr = s.Send(2, []byte{0x99})
	}, nil))
	h.Feed([]byte{0x07, 0x00, 0x04, 0x00, 0xAA, 0xBB, 0xCC})

	require.NoError(t, s.Send(2, []byte{0x01}))
	assert.ErrorIs(t, nestedErr, ErrBusy)
}

func TestListen_RejectsChannelZeroAndOutOfRange(t *testing.T) {
	h := loopback.New()
	s := newTestSession(t, h)

	assert.ErrorIs(t, s.Listen(0, func(any, []byte, int64) {}, nil), ErrBadParam)
	assert.ErrorIs(t, s.Listen(8, func(any, []byte, int64) {}, nil), ErrBadParam)
	assert.NoError(t, s.Listen(1, func(any, []byte, int64) {}, nil))
}

func TestRegistry_OpenCloseLifecycle(t *testing.T) {
	r := NewRegistry(1)
	h1 := loopback.New()
	handle, err := r.Open(h1, nil)
	require.NoError(t, err)
	require.NotNil(t, r.Get(handle))

	_, err = r.Open(loopback.New(), nil)
	assert.ErrorIs(t, err, ErrNoCapacity)

	require.NoError(t, r.Close(handle))
	assert.Nil(t, r.Get(handle), "handle must resolve to nil once closed")
	assert.NoError(t, r.Close(handle), "closing an already-closed handle is a no-op, not an error")

	// The freed slot is usable again, and the new handle's generation
	// differs from the stale one.
	handle2, err := r.Open(loopback.New(), nil)
	require.NoError(t, err)
	assert.NotEqual(t, handle, handle2)
}

func TestRxAssemble_ShortFragment(t *testing.T) {
	h := loopback.New()
	s := newTestSession(t, h)

	h.Feed([]byte{0x01, 0x02})
	require.NoError(t, s.Service())
	assert.Equal(t, uint64(1), s.Metrics().RxShortFragments.Load())
}

func TestRxAssemble_TooLargePayload(t *testing.T) {
	h := loopback.New().WithPayloadSizes(8, 8)
	s := newTestSession(t, h)

	// Declares a payload larger than the assembly buffer (8 bytes).
	h.Feed([]byte{0xFF, 0x00, 0x01, 0x00, 0x01, 0x02, 0x03, 0x04})
	require.NoError(t, s.Service())
	assert.Equal(t, uint64(1), s.Metrics().RxTooLargePayloads.Load())
}
