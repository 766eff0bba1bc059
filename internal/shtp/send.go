package shtp

import (
	"errors"

	"github.com/hillcrestlabs/sh2go/internal/constants"
	"github.com/hillcrestlabs/sh2go/internal/hal"
	"github.com/hillcrestlabs/sh2go/internal/wire"
)

// Send fragments payload onto ch, writing one or more transfers through
// the session's HAL (spec §4.3). Sequence numbers advance per fragment,
// including the first, and wrap modulo 256. The continuation bit is set
// on every fragment except the first, so a single-fragment payload
// always has continuation == 0.
func (s *Session) Send(ch uint8, payload []byte) error {
	if s.closed {
		return ErrClosed
	}
	if len(payload) > s.hal.MaxPayloadOut() {
		s.metrics.TxTooLargePayloads.Add(1)
		s.observer.ObserveTooLargePayload(DirectionTx)
		return ErrBadParam
	}
	if ch >= constants.MaxChannels {
		s.metrics.BadTxChan.Add(1)
		return ErrBadParam
	}

	ch2 := &s.channels[ch]
	if ch2.sending {
		// A listener invoked during this Send's own back-pressure pump
		// tried to Send on the same channel: refuse rather than
		// interleave sequence numbers (spec §9).
		return ErrBusy
	}
	ch2.sending = true
	defer func() { ch2.sending = false }()

	maxOut := s.hal.MaxTransferOut()
	chunkCap := maxOut - constants.HeaderLen

	remaining := len(payload)
	cursor := 0
	continuation := false

	for remaining > 0 {
		chunk := remaining
		if chunk > chunkCap {
			chunk = chunkCap
		}
		lengthField := uint16(chunk + constants.HeaderLen)

		wire.Encode(s.txStage[:constants.HeaderLen], wire.Header{
			Length:       lengthField,
			Continuation: continuation,
			Channel:      ch,
			Seq:          ch2.nextOutSeq,
		})
		ch2.nextOutSeq++
		copy(s.txStage[constants.HeaderLen:lengthField], payload[cursor:cursor+chunk])

		if err := s.writeWithBackpressure(s.txStage[:lengthField]); err != nil {
			s.metrics.TxDiscards.Add(1)
			s.observer.ObserveTxDiscard(ch)
			return err
		}

		cursor += chunk
		remaining -= chunk
		continuation = true
	}

	s.metrics.TxPayloadsSent.Add(1)
	return nil
}

// writeWithBackpressure writes frame via the HAL, pumping Service once
// per retry when the HAL reports busy (spec §4.3 step 2e, §4.5). This is
// the sole mechanism that prevents deadlock when the HAL needs reads
// drained before it accepts writes. Each retry calls Service exactly
// once; Service itself never calls Send, though a listener it invokes
// may (a nested Send on this same channel returns ErrBusy).
func (s *Session) writeWithBackpressure(frame []byte) error {
	for {
		n, err := s.hal.Write(frame)
		if err == nil && n > 0 {
			return nil
		}
		if err != nil && !errors.Is(err, hal.ErrBusy) {
			return ErrHAL
		}
		s.service()
	}
}
