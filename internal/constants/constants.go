// Package constants holds the shared sizing and timing defaults for SHTP
// and the sh2 session facade.
package constants

import "time"

// Channel layout constants (SHTP §6: well-known channels).
const (
	// ChanCommand is SHTP's own reserved channel; Listen rejects it and
	// the sh2 facade binds it through the privileged registration path.
	ChanCommand = 0

	ChanExecutable   = 1
	ChanControl      = 2
	ChanInputReports = 3
	ChanWakeInput    = 4
	ChanGyroRV       = 5

	// MaxChannels is the number of channel slots an SHTP session carries.
	MaxChannels = 8
)

// Frame header constants (SHTP §3).
const (
	// HeaderLen is the fixed 4-byte SHTP frame header size.
	HeaderLen = 4

	// ContinuationBit marks a fragment as a non-first fragment of a payload.
	ContinuationBit = 0x80

	// LengthMask isolates the 15-bit length field from the continuation bit.
	LengthMask = 0x7FFF
)

// DefaultInstances is the default size of the SHTP session registry. The
// reference driver fixes this at 1; it is kept configurable at
// construction time (see shtp.NewRegistry) rather than hardcoded, but a
// package-level default registry of this size is created lazily on first
// use.
const DefaultInstances = 1

// Default HAL transfer/payload sizing, used by hal/loopback and as sane
// defaults for new HAL implementations. The hardware HALs (hal/serial,
// hal/i2c) report these same values.
const (
	DefaultMaxTransferIn  = 32
	DefaultMaxTransferOut = 32
	DefaultMaxPayloadIn   = 1024
	DefaultMaxPayloadOut  = 1024
)

// SensorEvent sizing (original_source/sh2.h: SH2_MAX_SENSOR_EVENT_LEN).
const MaxSensorEventLen = 60

// Command-channel sequencing and polling.
const (
	// ServicePollInterval is a suggested interval for callers driving the
	// service loop from an external scheduler (e.g. cmd/sh2tool); SHTP
	// itself has no timers.
	ServicePollInterval = 2 * time.Millisecond
)
