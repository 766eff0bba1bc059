// Package wire implements the SHTP frame header codec: the 4-byte
// length/continuation/channel/sequence header that precedes every
// inbound and outbound transfer (see spec §3, "Frame header").
package wire

import "github.com/hillcrestlabs/sh2go/internal/constants"

// Header is the decoded form of an SHTP transfer's 4-byte preamble.
// Length is this transfer's own length field (header + body of the
// fragment being sent or read), not a running total: send fragments a
// payload into HAL-sized chunks and each one declares its own size (see
// internal/shtp/send.go); rxAssemble uses the same per-fragment value to
// track how much of the declared transfer it has consumed so far.
type Header struct {
	Length       uint16
	Continuation bool
	Channel      uint8
	Seq          uint8
}

// Encode writes h into buf[0:4]. buf must have length >= 4.
func Encode(buf []byte, h Header) {
	_ = buf[3] // bounds check hint
	buf[0] = byte(h.Length & 0xFF)
	hi := byte((h.Length >> 8) & 0x7F)
	if h.Continuation {
		hi |= constants.ContinuationBit
	}
	buf[1] = hi
	buf[2] = h.Channel
	buf[3] = h.Seq
}

// Decode reads a Header out of buf[0:4]. The caller must ensure
// len(buf) >= constants.HeaderLen before calling Decode.
func Decode(buf []byte) Header {
	_ = buf[3]
	length := uint16(buf[0]) | uint16(buf[1])<<8
	return Header{
		Length:       length & constants.LengthMask,
		Continuation: buf[1]&constants.ContinuationBit != 0,
		Channel:      buf[2],
		Seq:          buf[3],
	}
}
