// Package serial implements a hal.HAL over a UART-attached sensor hub
// (a USB-serial or MCU UART bridge), grounded on the teacher's direct
// syscall/ioctl usage in internal/ctrl/control.go and internal/uring's
// golang.org/x/sys-based raw syscalls: the line is put in raw,
// non-blocking mode so a Read with nothing pending returns immediately
// rather than suspending the cooperative caller (spec §5).
package serial

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/hillcrestlabs/sh2go/internal/constants"
	"github.com/hillcrestlabs/sh2go/internal/hal"
)

func nowUS() int64 { return time.Now().UnixMicro() }

// HAL is a hal.HAL backed by an open serial device file descriptor.
type HAL struct {
	path string
	baud uint32
	fd   int

	maxTransferIn, maxTransferOut int
	maxPayloadIn, maxPayloadOut   int
}

// New returns an unopened HAL bound to path at baud. Open() must be
// called before use.
func New(path string, baud uint32) *HAL {
	return &HAL{
		path:           path,
		baud:           baud,
		fd:             -1,
		maxTransferIn:  constants.DefaultMaxTransferIn,
		maxTransferOut: constants.DefaultMaxTransferOut,
		maxPayloadIn:   constants.DefaultMaxPayloadIn,
		maxPayloadOut:  constants.DefaultMaxPayloadOut,
	}
}

// baudToUnix maps the handful of rates SH-2 UART bridges commonly run
// at onto their termios constants; anything else is rejected rather
// than silently rounded to the nearest supported rate.
func baudToUnix(baud uint32) (uint32, error) {
	switch baud {
	case 9600:
		return unix.B9600, nil
	case 115200:
		return unix.B115200, nil
	case 230400:
		return unix.B230400, nil
	case 460800:
		return unix.B460800, nil
	case 921600:
		return unix.B921600, nil
	default:
		return 0, fmt.Errorf("serial: unsupported baud rate %d", baud)
	}
}

// Open opens the device, puts it in raw mode (no echo, no line
// buffering, no flow control translation), and switches the descriptor
// to non-blocking so Read never stalls the service loop.
func (h *HAL) Open() error {
	rate, err := baudToUnix(h.baud)
	if err != nil {
		return err
	}

	fd, err := unix.Open(h.path, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK, 0)
	if err != nil {
		return fmt.Errorf("serial: open %s: %w", h.path, err)
	}

	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		unix.Close(fd)
		return fmt.Errorf("serial: get termios: %w", err)
	}

	unix.CfmakeRaw(t)
	t.Cflag |= unix.CLOCAL | unix.CREAD
	t.Cflag &^= unix.CSIZE
	t.Cflag |= unix.CS8
	t.Cflag &^= unix.PARENB | unix.CSTOPB | unix.CRTSCTS
	t.Ispeed = rate
	t.Ospeed = rate
	t.Cc[unix.VMIN] = 0
	t.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, t); err != nil {
		unix.Close(fd)
		return fmt.Errorf("serial: set termios: %w", err)
	}

	h.fd = fd
	return nil
}

func (h *HAL) Close() error {
	if h.fd < 0 {
		return nil
	}
	err := unix.Close(h.fd)
	h.fd = -1
	return err
}

// Read performs one non-blocking read. EAGAIN (nothing pending) is
// reported as (0, 0, nil), matching hal.HAL's contract that an idle bus
// returns promptly with no data rather than an error.
func (h *HAL) Read(buf []byte) (int, int64, error) {
	n, err := unix.Read(h.fd, buf)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return 0, 0, nil
		}
		return 0, 0, fmt.Errorf("serial: read: %w", err)
	}
	if n < 0 {
		n = 0
	}
	return n, nowUS(), nil
}

// Write performs one non-blocking write. EAGAIN maps to hal.ErrBusy so
// Send's back-pressure loop pumps Service and retries (spec §4.3 step 2e).
func (h *HAL) Write(buf []byte) (int, error) {
	n, err := unix.Write(h.fd, buf)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return 0, hal.ErrBusy
		}
		return 0, fmt.Errorf("serial: write: %w", err)
	}
	return n, nil
}

func (h *HAL) MaxTransferIn() int  { return h.maxTransferIn }
func (h *HAL) MaxTransferOut() int { return h.maxTransferOut }
func (h *HAL) MaxPayloadIn() int   { return h.maxPayloadIn }
func (h *HAL) MaxPayloadOut() int  { return h.maxPayloadOut }

var _ hal.HAL = (*HAL)(nil)
