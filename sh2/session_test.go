package sh2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hillcrestlabs/sh2go/hal/loopback"
	"github.com/hillcrestlabs/sh2go/internal/constants"
	"github.com/hillcrestlabs/sh2go/internal/shtp"
)

// newHubPair attaches two loopback HALs and opens the "hub" side on its
// own registry so it never contends with sh2.Open's package-default
// registry used by the facade side under test. A background goroutine
// continuously pumps the hub's Service loop so it reacts to whatever
// the facade under test sends, standing in for the sensor hub's own
// firmware loop; the returned stop func must be deferred by the caller.
func newHubPair(t *testing.T) (hub *shtp.Session, deviceHAL *loopback.HAL, stop func()) {
	t.Helper()
	hubHAL := loopback.New()
	deviceHAL = loopback.New()
	loopback.Attach(hubHAL, deviceHAL)

	reg := shtp.NewRegistry(1)
	handle, err := reg.Open(hubHAL, nil)
	require.NoError(t, err)
	hub = reg.Get(handle)
	require.NotNil(t, hub)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			default:
				hub.Service()
			}
		}
	}()

	return hub, deviceHAL, func() { close(done) }
}

func TestCommand_SequenceAndCommandIDMatching(t *testing.T) {
	hub, deviceHAL, stop := newHubPair(t)
	defer stop()

	var gotSeq, gotCmdID uint8
	var calls int
	require.NoError(t, hub.ListenSystem(constants.ChanControl, func(_ any, body []byte, _ int64) {
		calls++
		gotSeq = body[1]
		gotCmdID = body[2]
		resp := encodeCommandReq(gotSeq, gotCmdID, [9]byte{})
		resp[0] = reportIDCommandResp
		require.NoError(t, hub.Send(constants.ChanControl, resp))
	}, nil))

	session, err := Open(deviceHAL, nil)
	require.NoError(t, err)
	defer session.Close()

	require.NoError(t, session.SetTareNow(TareAxisAll, TareBasisRotationVector))
	assert.Equal(t, 1, calls)
	assert.Equal(t, uint8(0), gotSeq)
	assert.Equal(t, uint8(cmdIDTare), gotCmdID)

	require.NoError(t, session.PersistTare())
	assert.Equal(t, 2, calls)
	assert.Equal(t, uint8(1), gotSeq, "second command advances the sequence counter")
}

func TestCommand_MismatchedCmdIDNeverSatisfiesAwait(t *testing.T) {
	hub, deviceHAL, stop := newHubPair(t)
	defer stop()

	require.NoError(t, hub.ListenSystem(constants.ChanControl, func(_ any, body []byte, _ int64) {
		// Echo back a COMMAND_RESP for a *different* command ID than the
		// one requested: the facade must not treat this as satisfying
		// SetTareNow's pending match.
		resp := encodeCommandReq(body[1], cmdIDInitialize, [9]byte{})
		resp[0] = reportIDCommandResp
		require.NoError(t, hub.Send(constants.ChanControl, resp))
	}, nil))

	session, err := Open(deviceHAL, nil)
	require.NoError(t, err)
	defer session.Close()

	err = session.SetTareNow(TareAxisAll, TareBasisRotationVector)
	require.Error(t, err)
	var sherr *Error
	require.ErrorAs(t, err, &sherr)
	assert.Equal(t, ErrCodeTimeout, sherr.Code)
}

func TestFRS_GetFrsRoundTrip(t *testing.T) {
	hub, deviceHAL, stop := newHubPair(t)
	defer stop()

	words := []uint32{0x00010203, 0x00000010, 0x00000020, 0x00050006, 0x000001F4, 0x00002710, 0x000E000D, 0x0000000F}

	require.NoError(t, hub.ListenSystem(constants.ChanControl, func(_ any, body []byte, _ int64) {
		require.Equal(t, frsReadReqLen, len(body))
		resp := make([]byte, 2+4*len(words))
		resp[0] = reportIDFRSReadResp
		resp[1] = byte(len(words))
		for i, w := range words {
			off := 2 + 4*i
			resp[off] = byte(w)
			resp[off+1] = byte(w >> 8)
			resp[off+2] = byte(w >> 16)
			resp[off+3] = byte(w >> 24)
		}
		require.NoError(t, hub.Send(constants.ChanControl, resp))
	}, nil))

	session, err := Open(deviceHAL, nil)
	require.NoError(t, err)
	defer session.Close()

	got, err := session.GetFrs(RecordMetaRotationVector, 0, uint16(len(words)))
	require.NoError(t, err)
	assert.Equal(t, words, got)
}

func TestFRS_GetMetadataDecodesSensorMetadataRecord(t *testing.T) {
	hub, deviceHAL, stop := newHubPair(t)
	defer stop()

	words := []uint32{
		0x00050403,     // SH/MH/ME versions
		100,            // range
		1,              // resolution
		(50 << 16) | 7, // power_ma<<16 | revision
		1000,           // min period us
		100000,         // max period us
		(9 << 16) | 8,  // qpoint2<<16 | qpoint1
		10,             // qpoint3
	}

	require.NoError(t, hub.ListenSystem(constants.ChanControl, func(_ any, body []byte, _ int64) {
		resp := make([]byte, 2+4*len(words))
		resp[0] = reportIDFRSReadResp
		resp[1] = byte(len(words))
		for i, w := range words {
			off := 2 + 4*i
			resp[off] = byte(w)
			resp[off+1] = byte(w >> 8)
			resp[off+2] = byte(w >> 16)
			resp[off+3] = byte(w >> 24)
		}
		require.NoError(t, hub.Send(constants.ChanControl, resp))
	}, nil))

	session, err := Open(deviceHAL, nil)
	require.NoError(t, err)
	defer session.Close()

	meta, err := session.GetMetadata(SensorRotationVector)
	require.NoError(t, err)
	assert.Equal(t, uint8(3), meta.MEVersion)
	assert.Equal(t, uint8(4), meta.MHVersion)
	assert.Equal(t, uint8(5), meta.SHVersion)
	assert.Equal(t, uint32(100), meta.Range)
	assert.Equal(t, uint16(7), meta.Revision)
	assert.Equal(t, uint16(50), meta.PowerMA)
	assert.Equal(t, uint32(1000), meta.MinPeriodUS)
	assert.Equal(t, uint32(100000), meta.MaxPeriodUS)
	assert.Equal(t, uint16(8), meta.QPoint1)
	assert.Equal(t, uint16(9), meta.QPoint2)
	assert.Equal(t, uint16(10), meta.QPoint3)
}

func TestFRS_GetMetadataRejectsUnknownSensor(t *testing.T) {
	_, deviceHAL, stop := newHubPair(t)
	defer stop()

	session, err := Open(deviceHAL, nil)
	require.NoError(t, err)
	defer session.Close()

	_, err = session.GetMetadata(SensorWheelEncoder)
	require.Error(t, err)
	var sherr *Error
	require.ErrorAs(t, err, &sherr)
	assert.Equal(t, ErrCodeBadParam, sherr.Code)
}

func TestFRS_SetFrsWritesRequestThenDataThenAwaitsAck(t *testing.T) {
	hub, deviceHAL, stop := newHubPair(t)
	defer stop()

	var sawWriteReq, sawWriteData int
	require.NoError(t, hub.ListenSystem(constants.ChanControl, func(_ any, body []byte, _ int64) {
		switch body[0] {
		case reportIDFRSWriteReq:
			sawWriteReq++
		case reportIDFRSWriteDataReq:
			sawWriteData++
		}
		ack := []byte{reportIDFRSWriteResp, 0}
		require.NoError(t, hub.Send(constants.ChanControl, ack))
	}, nil))

	session, err := Open(deviceHAL, nil)
	require.NoError(t, err)
	defer session.Close()

	require.NoError(t, session.SetFrs(RecordSerialNumber, []uint32{1, 2, 3}))
	assert.Equal(t, 1, sawWriteReq)
	assert.Equal(t, 2, sawWriteData, "3 words chunked 2 at a time needs 2 write-data frames")
}

func TestExecutableResetComplete_EmitsAsyncResetEvent(t *testing.T) {
	_, deviceHAL, stop := newHubPair(t)
	defer stop()

	var events []AsyncEventID
	session, err := Open(deviceHAL, &Options{
		EventCallback: func(_ any, ev AsyncEvent) { events = append(events, ev.ID) },
	})
	require.NoError(t, err)
	defer session.Close()

	// Simulate the hub issuing an unsolicited reset notification on the
	// executable channel by feeding a device-side frame directly: 4-byte
	// header (length=5, no continuation, channel, seq 0) plus a 1-byte
	// payload.
	deviceHAL.Feed([]byte{0x05, 0x00, constants.ChanExecutable, 0x00, 0x00})
	require.NoError(t, session.Service())

	require.Len(t, events, 1)
	assert.Equal(t, AsyncReset, events[0])
}
