package shtp

import (
	"github.com/hillcrestlabs/sh2go/internal/constants"
	"github.com/hillcrestlabs/sh2go/internal/wire"
)

// Service performs exactly one non-blocking HAL read and, if it
// returned data, feeds it to rxAssemble (spec §4.5). It is safe to call
// re-entrantly from within Send's back-pressure loop: Service itself
// never calls Send. A listener it invokes may call Send; a nested Send on
// the channel that is already being sent returns ErrBusy.
func (s *Session) Service() error {
	if s.closed {
		return ErrClosed
	}
	s.service()
	return nil
}

func (s *Session) service() {
	in := make([]byte, s.hal.MaxTransferIn())
	n, tUS, err := s.hal.Read(in)
	if err != nil || n <= 0 {
		return
	}
	s.rxAssemble(in[:n], tUS)
}

// rxAssemble implements the reassembly gates of spec §4.4, in order.
func (s *Session) rxAssemble(in []byte, tUS int64) {
	// 1. Runt transfer.
	if len(in) < constants.HeaderLen {
		s.metrics.RxShortFragments.Add(1)
		s.observer.ObserveShortFragment()
		s.emit(EventShortFragment)
		return
	}

	// 2. Parse header.
	hdr := wire.Decode(in)

	// 3. Sequence check — diagnostic only, never discards.
	expected := s.channels[minChan(hdr.Channel)].nextInSeq
	if hdr.Channel < constants.MaxChannels && hdr.Seq != expected {
		s.metrics.RxBadSeq.Add(1)
		s.observer.ObserveBadSeq(hdr.Channel, expected, hdr.Seq)
		s.emit(EventBadSeq)
	}

	// 4. Runt payload length field.
	if hdr.Length < constants.HeaderLen {
		s.metrics.RxShortFragments.Add(1)
		s.observer.ObserveShortFragment()
		s.emit(EventShortFragment)
		return
	}

	// 5. Bad channel.
	if hdr.Channel >= constants.MaxChannels {
		s.metrics.RxBadChan.Add(1)
		s.observer.ObserveBadRxChan()
		s.emit(EventBadRxChan)
		return
	}

	// 6. In-progress assembly reconciliation.
	if !s.rx.idle() {
		declaredPayload := hdr.Length - constants.HeaderLen
		consistent := hdr.Continuation &&
			hdr.Channel == s.rx.channel &&
			hdr.Seq == s.channels[hdr.Channel].nextInSeq &&
			declaredPayload == s.rx.remaining
		if !consistent {
			s.emit(EventBadFragment)
			s.rx.remaining = 0
			s.metrics.RxInterruptedPayloads.Add(1)
			s.observer.ObserveInterruptedPayload()
			s.emit(EventInterruptedPayload)
			// fall through: the current fragment may start a new assembly
		}
	}

	// 7. Update expected sequence unconditionally.
	s.channels[hdr.Channel].nextInSeq = hdr.Seq + 1

	// 8. Start-of-payload path.
	if s.rx.idle() {
		if int(hdr.Length) > len(s.rx.buf) {
			s.metrics.RxTooLargePayloads.Add(1)
			s.observer.ObserveTooLargePayload(DirectionRx)
			s.emit(EventTooLargePayload)
			return
		}
		s.rx.timestampUS = tUS
		s.rx.cursor = 0
		s.rx.channel = hdr.Channel
	}

	// 9. Append body. use = min(len, payload_len): a short HAL read that
	// delivers fewer bytes than the header declares leaves inRemaining
	// positive, and the assembly stays open for the continuation that
	// completes it.
	use := len(in)
	if use > int(hdr.Length) {
		use = int(hdr.Length)
	}
	bodyLen := use - constants.HeaderLen
	if bodyLen > 0 {
		copy(s.rx.buf[s.rx.cursor:s.rx.cursor+bodyLen], in[constants.HeaderLen:use])
		s.rx.cursor += bodyLen
	}
	s.rx.remaining = hdr.Length - uint16(use)

	// 10. Delivery.
	if s.rx.remaining == 0 {
		ch := &s.channels[s.rx.channel]
		length := s.rx.cursor
		s.metrics.RxPayloadsDelivered.Add(1)
		s.observer.ObserveDelivery(s.rx.channel, length)
		if ch.callback != nil {
			ch.callback(ch.cookie, s.rx.buf[:length], s.rx.timestampUS)
		}
		s.rx.cursor = 0
	}
}

func minChan(ch uint8) uint8 {
	if ch >= constants.MaxChannels {
		return 0
	}
	return ch
}
