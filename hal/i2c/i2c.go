// Package i2c implements a hal.HAL for sensor hubs wired directly to the
// host's I2C bus via /dev/i2c-N, using github.com/pawelgaczynski/giouring
// to issue non-blocking io_uring reads/writes against the character
// device — so a poll that finds nothing pending returns immediately
// instead of blocking the cooperative caller (spec §5). This is SHTP's
// domain analogue of the teacher's internal/uring completion-queue
// polling: both submit one operation and drain its completion per
// service tick rather than blocking the calling goroutine.
package i2c

import (
	"fmt"
	"time"
	"unsafe"

	"github.com/pawelgaczynski/giouring"
	"golang.org/x/sys/unix"

	"github.com/hillcrestlabs/sh2go/internal/constants"
	"github.com/hillcrestlabs/sh2go/internal/hal"
)

func nowUS() int64 { return time.Now().UnixMicro() }

const ringEntries = 8

// i2cSlave is Linux's I2C_SLAVE ioctl request number (linux/i2c-dev.h).
const i2cSlave = 0x0703

// HAL is a hal.HAL backed by an io_uring-submitted read/write pair
// against an open I2C character device bound to a single 7-bit address.
type HAL struct {
	path string
	addr uint16
	fd   int
	ring *giouring.Ring

	inFlightRead  bool
	inFlightWrite bool

	maxTransferIn, maxTransferOut int
	maxPayloadIn, maxPayloadOut   int
}

// New returns an unopened HAL for the I2C device at path (e.g.
// "/dev/i2c-1") talking to addr (the hub's 7-bit I2C slave address).
func New(path string, addr uint16) *HAL {
	return &HAL{
		path:           path,
		addr:           addr,
		fd:             -1,
		maxTransferIn:  constants.DefaultMaxTransferIn,
		maxTransferOut: constants.DefaultMaxTransferOut,
		maxPayloadIn:   constants.DefaultMaxPayloadIn,
		maxPayloadOut:  constants.DefaultMaxPayloadOut,
	}
}

func (h *HAL) Open() error {
	fd, err := unix.Open(h.path, unix.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("i2c: open %s: %w", h.path, err)
	}
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), i2cSlave, uintptr(h.addr)); errno != 0 {
		unix.Close(fd)
		return fmt.Errorf("i2c: set slave address 0x%x: %w", h.addr, errno)
	}

	ring, err := giouring.CreateRing(ringEntries)
	if err != nil {
		unix.Close(fd)
		return fmt.Errorf("i2c: create ring: %w", err)
	}

	h.fd = fd
	h.ring = ring
	return nil
}

func (h *HAL) Close() error {
	if h.ring != nil {
		h.ring.QueueExit()
		h.ring = nil
	}
	if h.fd < 0 {
		return nil
	}
	err := unix.Close(h.fd)
	h.fd = -1
	return err
}

// Read submits one non-blocking read SQE and polls for its completion
// without waiting: if the completion queue has nothing yet, this
// returns (0, 0, nil) rather than blocking (spec §5, cooperative model).
func (h *HAL) Read(buf []byte) (int, int64, error) {
	if !h.inFlightRead {
		sqe := h.ring.GetSQE()
		if sqe == nil {
			return 0, 0, fmt.Errorf("i2c: read submission queue full")
		}
		sqe.PrepareRead(h.fd, uintptr(unsafe.Pointer(&buf[0])), uint32(len(buf)), 0)
		sqe.UserData = userDataRead
		if _, err := h.ring.Submit(); err != nil {
			return 0, 0, fmt.Errorf("i2c: submit read: %w", err)
		}
		h.inFlightRead = true
	}

	cqe, err := h.ring.PeekCQE()
	if err != nil || cqe == nil {
		return 0, 0, nil
	}
	h.ring.SeenCQE(cqe)
	h.inFlightRead = false

	if cqe.Res < 0 {
		return 0, 0, fmt.Errorf("i2c: read: %w", unix.Errno(-cqe.Res))
	}
	return int(cqe.Res), nowUS(), nil
}

// Write submits one non-blocking write SQE, returning hal.ErrBusy if a
// previous write hasn't completed yet so Send's back-pressure loop pumps
// Service and retries (spec §4.3 step 2e).
func (h *HAL) Write(buf []byte) (int, error) {
	if h.inFlightWrite {
		cqe, err := h.ring.PeekCQE()
		if err != nil || cqe == nil {
			return 0, hal.ErrBusy
		}
		h.ring.SeenCQE(cqe)
		h.inFlightWrite = false
		if cqe.Res < 0 {
			return 0, fmt.Errorf("i2c: write: %w", unix.Errno(-cqe.Res))
		}
		return int(cqe.Res), nil
	}

	sqe := h.ring.GetSQE()
	if sqe == nil {
		return 0, hal.ErrBusy
	}
	sqe.PrepareWrite(h.fd, uintptr(unsafe.Pointer(&buf[0])), uint32(len(buf)), 0)
	sqe.UserData = userDataWrite
	if _, err := h.ring.Submit(); err != nil {
		return 0, fmt.Errorf("i2c: submit write: %w", err)
	}
	h.inFlightWrite = true
	return 0, hal.ErrBusy
}

const (
	userDataRead  = 1
	userDataWrite = 2
)

func (h *HAL) MaxTransferIn() int  { return h.maxTransferIn }
func (h *HAL) MaxTransferOut() int { return h.maxTransferOut }
func (h *HAL) MaxPayloadIn() int   { return h.maxPayloadIn }
func (h *HAL) MaxPayloadOut() int  { return h.maxPayloadOut }

var _ hal.HAL = (*HAL)(nil)
