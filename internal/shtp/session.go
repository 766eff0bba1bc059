// Package shtp implements the Sensor Hub Transport Protocol: a
// multiplexed, sequence-checked, fragmenting transport running over a
// byte-oriented HAL whose transfer size is smaller than the logical
// messages it carries. See spec §4 for the full design.
package shtp

import (
	"sync"

	"github.com/hillcrestlabs/sh2go/internal/constants"
	"github.com/hillcrestlabs/sh2go/internal/hal"
	"github.com/hillcrestlabs/sh2go/internal/logging"
)

// rxAssembly holds the state of an in-progress inbound reassembly (spec
// §3, "Receive assembly"). remaining == 0 means idle.
type rxAssembly struct {
	remaining   uint16
	channel     uint8
	cursor      int
	timestampUS int64
	buf         []byte
}

func (a *rxAssembly) idle() bool { return a.remaining == 0 }

// Session is one open SHTP transport bound to a single HAL for its
// entire lifetime (spec §3, "Session"). All methods run on the caller's
// thread; none suspend except Send's bounded back-pressure retry.
type Session struct {
	hal      hal.HAL
	channels [constants.MaxChannels]channel

	rx      rxAssembly
	txStage []byte

	eventCB     EventCallback
	eventCookie any

	metrics  *Metrics
	observer Observer
	logger   *logging.Logger

	closed bool
}

func newSession(h hal.HAL, logger *logging.Logger) *Session {
	if logger == nil {
		logger = logging.Default()
	}
	s := &Session{
		hal:      h,
		metrics:  NewMetrics(),
		observer: NoOpObserver{},
		logger:   logger,
	}
	s.rx.buf = make([]byte, h.MaxPayloadIn())
	s.txStage = make([]byte, h.MaxTransferOut())
	return s
}

// Metrics returns the session's diagnostic counters.
func (s *Session) Metrics() *Metrics { return s.metrics }

// SetObserver installs an Observer to receive live diagnostic events in
// addition to the Metrics counters. A nil observer reverts to NoOpObserver.
func (s *Session) SetObserver(o Observer) {
	if o == nil {
		o = NoOpObserver{}
	}
	s.observer = o
}

// SetEventCallback sets the session-level async-event sink used to
// report framing anomalies (spec §4.2).
func (s *Session) SetEventCallback(cb EventCallback, cookie any) {
	s.eventCB = cb
	s.eventCookie = cookie
}

func (s *Session) emit(kind EventKind) {
	if s.eventCB != nil {
		s.eventCB(s.eventCookie, kind)
	}
}

// Listen registers (or clears, with cb == nil) a listener for channel.
// Channel 0 is reserved for SHTP's own command channel and is rejected
// here; the sh2 facade binds it via ListenSystem (spec §4.2, §6).
func (s *Session) Listen(ch uint8, cb Callback, cookie any) error {
	if ch == constants.ChanCommand || ch >= constants.MaxChannels {
		return ErrBadParam
	}
	return s.listen(ch, cb, cookie)
}

// ListenSystem registers a listener on any channel, including channel 0.
// It exists solely for the sh2 facade's internal command-channel
// subscription and must not be exposed as part of the public Session API.
func (s *Session) ListenSystem(ch uint8, cb Callback, cookie any) error {
	if ch >= constants.MaxChannels {
		return ErrBadParam
	}
	return s.listen(ch, cb, cookie)
}

func (s *Session) listen(ch uint8, cb Callback, cookie any) error {
	s.channels[ch].callback = cb
	s.channels[ch].cookie = cookie
	return nil
}

// HAL returns the underlying HAL binding. Intended for facade code that
// needs HAL sizing (e.g. to validate an outbound payload before it ever
// reaches Send).
func (s *Session) HAL() hal.HAL { return s.hal }

// --- Registry -------------------------------------------------------

// Handle is an opaque reference to an open Session, valid only for the
// registry that issued it. It deliberately carries no pointer: a stale
// handle (from a closed slot, or a slot since reused) is detected via
// the generation counter rather than risking a dangling dereference.
type Handle struct {
	index      int
	generation uint32
}

type slot struct {
	session    *Session
	generation uint32
}

// Registry is a fixed-size pool of session slots (spec §4.1). The
// reference implementation fixes capacity at 1; Registry keeps that
// configurable at construction while still never growing at runtime —
// no heap allocation happens beyond the slots' initial backing array and
// each Session's statically-sized buffers.
type Registry struct {
	mu    sync.Mutex
	slots []slot
}

// NewRegistry creates a registry with the given fixed capacity.
func NewRegistry(capacity int) *Registry {
	if capacity <= 0 {
		capacity = constants.DefaultInstances
	}
	return &Registry{slots: make([]slot, capacity)}
}

// Open finds a free slot, binds hal to it, and returns a handle. A slot
// is free exactly when its session reference is absent — there is no
// separate free flag (spec §4.1).
func (r *Registry) Open(h hal.HAL, logger *logging.Logger) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.slots {
		if r.slots[i].session != nil {
			continue
		}
		if err := h.Open(); err != nil {
			return Handle{}, ErrHAL
		}
		r.slots[i].session = newSession(h, logger)
		return Handle{index: i, generation: r.slots[i].generation}, nil
	}
	return Handle{}, ErrNoCapacity
}

// Close closes the HAL bound to handle and frees its slot. Closing an
// already-closed (or never-valid) handle is a no-op, never a panic
// (spec §8, "Idempotence of close").
func (r *Registry) Close(handle Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if handle.index < 0 || handle.index >= len(r.slots) {
		return nil
	}
	sl := &r.slots[handle.index]
	if sl.session == nil || sl.generation != handle.generation {
		return nil
	}
	sess := sl.session
	sess.closed = true
	sl.session = nil
	sl.generation++
	return sess.hal.Close()
}

// Get resolves a handle to its Session, or nil if the handle is stale.
func (r *Registry) Get(handle Handle) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if handle.index < 0 || handle.index >= len(r.slots) {
		return nil
	}
	sl := &r.slots[handle.index]
	if sl.session == nil || sl.generation != handle.generation || sl.session.closed {
		return nil
	}
	return sl.session
}

// --- package-level default registry ---------------------------------

var (
	defaultMu       sync.Mutex
	defaultRegistry *Registry
)

// Default returns the package default registry, creating it lazily with
// constants.DefaultInstances capacity — mirroring logging.Default()'s
// lazy package-level singleton.
func Default() *Registry {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultRegistry == nil {
		defaultRegistry = NewRegistry(constants.DefaultInstances)
	}
	return defaultRegistry
}

// Open opens hal on the default registry.
func Open(h hal.HAL) (Handle, error) {
	return Default().Open(h, nil)
}

// Close closes handle on the default registry.
func Close(handle Handle) error {
	return Default().Close(handle)
}
