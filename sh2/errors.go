// Package sh2 implements the session facade for CEVA/Hillcrest SH-2
// motion-sensor hubs on top of the internal/shtp transport. It mirrors
// the teacher repository's split between a narrow core engine
// (internal/shtp, playing the role of go-ublk's internal/uring +
// backend layer) and a richer public facade (sh2, playing the role of
// the teacher's root ublk package).
package sh2

import (
	"errors"
	"fmt"

	"github.com/hillcrestlabs/sh2go/internal/shtp"
)

// ErrorCode is a high-level error category, following the teacher's
// errors.go UblkErrorCode string-constant convention. It covers the
// return-code and framing-event rows of the SPEC_FULL.md §7 taxonomy
// plus the facade's busy, closed, timeout and unexpected-response cases;
// BAD_TX_CHAN, BAD_SN and TX_DISCARD have no code of their own.
type ErrorCode string

const (
	ErrCodeBadParam           ErrorCode = "bad parameter"
	ErrCodeHAL                ErrorCode = "hal error"
	ErrCodeNoCapacity         ErrorCode = "no session capacity"
	ErrCodeBusy               ErrorCode = "busy"
	ErrCodeClosed             ErrorCode = "session closed"
	ErrCodeShortFragment      ErrorCode = "short fragment"
	ErrCodeTooLargePayload    ErrorCode = "payload too large"
	ErrCodeBadRxChan          ErrorCode = "bad inbound channel"
	ErrCodeBadFragment        ErrorCode = "bad fragment"
	ErrCodeInterruptedPayload ErrorCode = "interrupted payload"
	ErrCodeTimeout            ErrorCode = "command timed out"
	ErrCodeUnexpectedResponse ErrorCode = "unexpected command response"
)

// Error is sh2's structured error type: every error the facade returns
// carries the failing operation, the channel involved (if any), a
// high-level Code for programmatic matching, and, when the failure came
// from internal/shtp, the wrapped Inner error (nil for facade-level
// failures such as a timeout). Modeled on the teacher's
// *ublk.Error (errors.go).
type Error struct {
	Op      string
	Channel uint8
	Code    ErrorCode
	Inner   error
}

func (e *Error) Error() string {
	if e.Channel != 0 {
		return fmt.Sprintf("sh2: %s: %s (channel %d)", e.Op, e.Code, e.Channel)
	}
	return fmt.Sprintf("sh2: %s: %s", e.Op, e.Code)
}

func (e *Error) Unwrap() error { return e.Inner }

func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == te.Code
}

// wrapErr maps a internal/shtp sentinel error to a *sh2.Error tagged
// with op and channel, so facade callers only ever see sh2.Error codes.
func wrapErr(op string, ch uint8, err error) error {
	if err == nil {
		return nil
	}
	code := ErrCodeHAL
	switch {
	case errors.Is(err, shtp.ErrBadParam):
		code = ErrCodeBadParam
	case errors.Is(err, shtp.ErrNoCapacity):
		code = ErrCodeNoCapacity
	case errors.Is(err, shtp.ErrBusy):
		code = ErrCodeBusy
	case errors.Is(err, shtp.ErrClosed):
		code = ErrCodeClosed
	case errors.Is(err, shtp.ErrHAL):
		code = ErrCodeHAL
	}
	return &Error{Op: op, Channel: ch, Code: code, Inner: err}
}
