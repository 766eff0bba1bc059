package sh2

import (
	"github.com/hillcrestlabs/sh2go/internal/constants"
	"github.com/hillcrestlabs/sh2go/internal/hal"
	"github.com/hillcrestlabs/sh2go/internal/logging"
	"github.com/hillcrestlabs/sh2go/internal/shtp"
)

// maxPollIterations bounds the Service-pump loop every blocking command
// method runs: the cooperative HAL contract (hal.HAL.Read returning 0
// immediately when nothing is pending) means a command with no response
// forthcoming must give up rather than spin forever.
const maxPollIterations = 10000

// Options configures an open Session, mirroring the teacher's
// DeviceParams/Metrics/Observer split (backend.go, metrics.go).
type Options struct {
	// EventCallback receives resets, SHTP transport diagnostics, and
	// unsolicited GET_FEATURE_RESP reports.
	EventCallback AsyncEventCallback
	Cookie        any
	Logger        *logging.Logger
	Observer      shtp.Observer
}

// pendingCommand tracks the single in-flight blocking request a Session
// can have open at a time (the cooperative model allows at most one
// outstanding command: there is only ever one caller).
type pendingCommand struct {
	active bool
	match  func([]byte) bool
	resp   []byte
}

// Session is the sh2 facade bound to one open SHTP transport: a
// CEVA/Hillcrest motion-hub driver session (original_source/sh2.h's
// sh2_Handle_t, made concrete).
type Session struct {
	core   *shtp.Session
	handle shtp.Handle
	reg    *shtp.Registry

	cmdSeq  uint8
	pending pendingCommand

	sensorCB     SensorEventCallback
	sensorCookie any
	// baseTimestampUS is the arrival time of the most recent
	// BASE_TIMESTAMP reference report on any sensor-report channel,
	// used to derive SensorEvent.DelayUS (sh2.h's sh2_SensorEvent_t
	// delay_uS is relative to the batch's base timestamp).
	baseTimestampUS int64
	haveBaseTime    bool

	asyncCB     AsyncEventCallback
	asyncCookie any
}

// Open binds h to a new session (sh2_open) on the package-level shtp
// registry (shtp.Default), mirroring logging.Default()'s lazy package
// singleton.
func Open(h hal.HAL, opts *Options) (*Session, error) {
	if opts == nil {
		opts = &Options{}
	}
	reg := shtp.Default()
	handle, err := reg.Open(h, opts.Logger)
	if err != nil {
		return nil, wrapErr("Open", 0, err)
	}
	core := reg.Get(handle)

	s := &Session{
		core:        core,
		handle:      handle,
		reg:         reg,
		asyncCB:     opts.EventCallback,
		asyncCookie: opts.Cookie,
	}
	if opts.Observer != nil {
		core.SetObserver(opts.Observer)
	}
	core.SetEventCallback(s.onShtpEvent, nil)
	if err := core.ListenSystem(constants.ChanControl, s.onControl, nil); err != nil {
		return nil, wrapErr("Open", constants.ChanControl, err)
	}
	if err := core.ListenSystem(constants.ChanExecutable, s.onExecutable, nil); err != nil {
		return nil, wrapErr("Open", constants.ChanExecutable, err)
	}
	for _, ch := range []uint8{constants.ChanInputReports, constants.ChanWakeInput, constants.ChanGyroRV} {
		if err := core.ListenSystem(ch, s.onSensorReport, nil); err != nil {
			return nil, wrapErr("Open", ch, err)
		}
	}
	return s, nil
}

// Close releases the session's HAL binding (sh2_close). Idempotent.
func (s *Session) Close() error {
	return wrapErr("Close", 0, s.reg.Close(s.handle))
}

// Service pumps exactly one HAL read and, if data arrived, one
// reassembly/dispatch pass (sh2_service).
func (s *Session) Service() error {
	return wrapErr("Service", 0, s.core.Service())
}

// Metrics returns the session's diagnostic counters.
func (s *Session) Metrics() *shtp.Metrics { return s.core.Metrics() }

// SetSensorCallback installs the callback invoked for every reassembled
// sensor input report (sh2_setSensorCallback).
func (s *Session) SetSensorCallback(cb SensorEventCallback, cookie any) {
	s.sensorCB = cb
	s.sensorCookie = cookie
}

func (s *Session) onShtpEvent(_ any, kind shtp.EventKind) {
	id, ok := shtpEventFromKind(kind)
	if !ok || s.asyncCB == nil {
		return
	}
	s.asyncCB(s.asyncCookie, AsyncEvent{ID: AsyncShtpEvent, ShtpEvent: id})
}

func (s *Session) onSensorReport(_ any, body []byte, tsUS int64) {
	if len(body) == 0 {
		return
	}
	reportID := body[0]
	if reportID == reportIDBaseTimestamp {
		s.baseTimestampUS = tsUS
		s.haveBaseTime = true
		return
	}
	var delayUS int64
	if s.haveBaseTime {
		delayUS = tsUS - s.baseTimestampUS
	}
	report := body
	if len(report) > constants.MaxSensorEventLen {
		report = report[:constants.MaxSensorEventLen]
	}
	if s.sensorCB != nil {
		s.sensorCB(s.sensorCookie, SensorEvent{
			TimestampUS: tsUS,
			DelayUS:     delayUS,
			ReportID:    reportID,
			Report:      report,
		})
	}
}

// onExecutable synthesises a single AsyncReset event when the hub
// reports it has finished resetting (executableResetComplete), rather
// than firing on every payload the executable channel delivers.
func (s *Session) onExecutable(_ any, body []byte, _ int64) {
	if len(body) == 0 || body[0] != executableResetComplete {
		return
	}
	if s.asyncCB != nil {
		s.asyncCB(s.asyncCookie, AsyncEvent{ID: AsyncReset})
	}
}

func (s *Session) onControl(_ any, body []byte, _ int64) {
	if len(body) == 0 {
		return
	}
	if s.pending.active && s.pending.match != nil && s.pending.match(body) {
		s.pending.resp = append([]byte(nil), body...)
		return
	}
	if body[0] == reportIDGetFeatureResp {
		if fr, ok := decodeFeatureResponse(body); ok && s.asyncCB != nil {
			s.asyncCB(s.asyncCookie, AsyncEvent{ID: AsyncGetFeatureResp, Feature: &fr})
		}
	}
}

// sendAndAwait sends frame on the control channel and blocks (pumping
// Service) until match accepts a control-channel reply or the poll
// budget runs out.
func (s *Session) sendAndAwait(op string, frame []byte, match func([]byte) bool) ([]byte, error) {
	if err := s.core.Send(constants.ChanControl, frame); err != nil {
		return nil, wrapErr(op, constants.ChanControl, err)
	}
	return s.await(op, match)
}

func (s *Session) await(op string, match func([]byte) bool) ([]byte, error) {
	s.pending = pendingCommand{active: true, match: match}
	defer func() { s.pending = pendingCommand{} }()

	for i := 0; i < maxPollIterations; i++ {
		if err := s.core.Service(); err != nil {
			return nil, wrapErr(op, constants.ChanControl, err)
		}
		if s.pending.resp != nil {
			return s.pending.resp, nil
		}
	}
	return nil, &Error{Op: op, Channel: constants.ChanControl, Code: ErrCodeTimeout}
}

func (s *Session) nextSeq() uint8 {
	seq := s.cmdSeq
	s.cmdSeq++
	return seq
}

// sendCommand wraps params in a COMMAND_REQUEST, blocks for the matching
// COMMAND_RESP (by echoed sequence number and command ID), and returns
// its raw bytes for the caller to decode further parameters from.
func (s *Session) sendCommand(op string, cmdID uint8, params [9]byte) ([]byte, error) {
	seq := s.nextSeq()
	frame := encodeCommandReq(seq, cmdID, params)
	return s.sendAndAwait(op, frame, func(b []byte) bool {
		return isCommandResp(b) && commandRespSeq(b) == seq && commandRespCmdID(b) == cmdID
	})
}

// --- executable channel (sh2_devReset/On/Sleep) ---------------------

func (s *Session) DevReset() error { return s.sendExecutable("DevReset", executableReset) }
func (s *Session) DevOn() error    { return s.sendExecutable("DevOn", executableOn) }
func (s *Session) DevSleep() error { return s.sendExecutable("DevSleep", executableSleep) }

func (s *Session) sendExecutable(op string, b byte) error {
	return wrapErr(op, constants.ChanExecutable, s.core.Send(constants.ChanExecutable, []byte{b}))
}

// --- feature configuration (sh2_getSensorConfig/setSensorConfig) ----

func (s *Session) GetSensorConfig(sensorID SensorID) (SensorConfig, error) {
	const op = "GetSensorConfig"
	resp, err := s.sendAndAwait(op, encodeGetFeatureReq(uint8(sensorID)), func(b []byte) bool {
		return len(b) >= 2 && b[0] == reportIDGetFeatureResp && b[1] == uint8(sensorID)
	})
	if err != nil {
		return SensorConfig{}, err
	}
	fr, _ := decodeFeatureResponse(resp)
	return SensorConfig{
		ChangeSensitivityEnabled:  fr.ChangeSensitivityEnabled,
		ChangeSensitivityRelative: fr.ChangeSensitivityRelative,
		WakeupEnabled:             fr.WakeupEnabled,
		AlwaysOnEnabled:           fr.AlwaysOnEnabled,
		SniffEnabled:              fr.SniffEnabled,
		ChangeSensitivity:         fr.ChangeSensitivity,
		ReportInterval:            fr.ReportInterval,
		BatchInterval:             fr.BatchInterval,
		SensorSpecific:            fr.SensorSpecific,
	}, nil
}

func (s *Session) SetSensorConfig(sensorID SensorID, cfg SensorConfig) error {
	const op = "SetSensorConfig"
	frame := encodeSetFeature(uint8(sensorID), cfg)
	return wrapErr(op, constants.ChanControl, s.core.Send(constants.ChanControl, frame))
}

// --- product identification (sh2_getProdIds) ------------------------

func (s *Session) GetProdIds() ([]ProductID, error) {
	const op = "GetProdIds"
	resp, err := s.sendAndAwait(op, encodeProdIDReq(), isProdIDResp)
	if err != nil {
		return nil, err
	}
	return decodeProdIDs(resp), nil
}

// --- error log (sh2_getErrors) ---------------------------------------

func (s *Session) GetErrors(severity uint8) ([]ErrorRecord, error) {
	const op = "GetErrors"
	resp, err := s.sendAndAwait(op, encodeErrorsReq(severity), isErrorsResp)
	if err != nil {
		return nil, err
	}
	return decodeErrors(resp), nil
}

// --- event counters (sh2_getCounts/clearCounts) ----------------------

func (s *Session) GetCounts(sensorID SensorID) (Counts, error) {
	const op = "GetCounts"
	resp, err := s.sendAndAwait(op, encodeCountsReq(uint8(sensorID)), func(b []byte) bool {
		return isCountsReport(b, uint8(sensorID))
	})
	if err != nil {
		return Counts{}, err
	}
	return decodeCounts(resp), nil
}

func (s *Session) ClearCounts(sensorID SensorID) error {
	const op = "ClearCounts"
	return wrapErr(op, constants.ChanControl, s.core.Send(constants.ChanControl, encodeClearDataCount(uint8(sensorID))))
}

// --- tare (sh2_setTareNow/clearTare/persistTare/setReorientation) ---

func (s *Session) SetTareNow(axes TareAxis, basis TareBasis) error {
	_, err := s.sendCommand("SetTareNow", cmdIDTare, [9]byte{0: tareSubNow, 1: byte(basis), 2: byte(axes)})
	return err
}

// ClearTare resets any previously applied tare. Takes no handle-visible
// parameter beyond the session itself: original_source/sh2.h declares
// sh2_clearTare(sh2_Handle_t, sh2_Handle_t) with a duplicate parameter
// name, a copy-paste bug rather than a real second argument (DESIGN.md,
// Open Question 1).
func (s *Session) ClearTare() error {
	_, err := s.sendCommand("ClearTare", cmdIDTare, [9]byte{0: tareSubClear})
	return err
}

func (s *Session) PersistTare() error {
	_, err := s.sendCommand("PersistTare", cmdIDTare, [9]byte{0: tareSubPersist})
	return err
}

func (s *Session) SetReorientation(q Quaternion) error {
	const qPoint = 14
	params := [9]byte{}
	i16 := float32ToQ(q.I, qPoint)
	j16 := float32ToQ(q.J, qPoint)
	k16 := float32ToQ(q.K, qPoint)
	r16 := float32ToQ(q.Real, qPoint)
	params[0], params[1] = byte(i16), byte(i16>>8)
	params[2], params[3] = byte(j16), byte(j16>>8)
	params[4], params[5] = byte(k16), byte(k16>>8)
	params[6], params[7] = byte(r16), byte(r16>>8)
	_, err := s.sendCommand("SetReorientation", cmdIDReorientation, params)
	return err
}

// --- lifecycle / DCD / oscillator / calibration ----------------------

func (s *Session) Reinitialize() error {
	_, err := s.sendCommand("Reinitialize", cmdIDInitialize, [9]byte{})
	return err
}

func (s *Session) SaveDcdNow() error {
	_, err := s.sendCommand("SaveDcdNow", cmdIDSaveDCD, [9]byte{})
	return err
}

func (s *Session) GetOscType() (OscType, error) {
	resp, err := s.sendCommand("GetOscType", cmdIDOscillator, [9]byte{0: 0xFF})
	if err != nil {
		return 0, err
	}
	return OscType(resp[3]), nil
}

// SetCalConfig and GetCalConfig share the cmdIDSetCalConfig discriminant
// (get vs. set distinguished by the 0xFF sentinel in param 0, matching
// how several sh2 commands are read/write pairs over one discriminant in
// the original header's accessor naming, e.g. sh2_setCalConfig /
// sh2_getCalConfig).
func (s *Session) SetCalConfig(sensors uint8) error {
	_, err := s.sendCommand("SetCalConfig", cmdIDSetCalConfig, [9]byte{0: sensors})
	return err
}

func (s *Session) GetCalConfig() (uint8, error) {
	resp, err := s.sendCommand("GetCalConfig", cmdIDSetCalConfig, [9]byte{0: 0xFF})
	if err != nil {
		return 0, err
	}
	return resp[3], nil
}

func (s *Session) SetDcdAutoSave(enabled bool) error {
	var b byte
	if enabled {
		b = 1
	}
	_, err := s.sendCommand("SetDcdAutoSave", cmdIDDCDAutoSave, [9]byte{0: b})
	return err
}

func (s *Session) ClearDcdAndReset() error {
	_, err := s.sendCommand("ClearDcdAndReset", cmdIDClearDCD, [9]byte{})
	return err
}

func (s *Session) StartCal(intervalUS uint32) error {
	params := [9]byte{}
	params[0] = byte(intervalUS)
	params[1] = byte(intervalUS >> 8)
	params[2] = byte(intervalUS >> 16)
	params[3] = byte(intervalUS >> 24)
	_, err := s.sendCommand("StartCal", cmdIDCalStart, params)
	return err
}

func (s *Session) FinishCal() (CalStatus, error) {
	resp, err := s.sendCommand("FinishCal", cmdIDCalFinish, [9]byte{})
	if err != nil {
		return 0, err
	}
	return CalStatus(resp[3]), nil
}

func (s *Session) SetIZro(intent IZroMotionIntent) error {
	_, err := s.sendCommand("SetIZro", cmdIDIZro, [9]byte{0: byte(intent)})
	return err
}

func (s *Session) ReportWheelEncoder(wheelIndex uint8, timestampUS uint32, data int16, dataType uint8) error {
	params := [9]byte{}
	params[0] = wheelIndex
	params[1] = byte(timestampUS)
	params[2] = byte(timestampUS >> 8)
	params[3] = byte(timestampUS >> 16)
	params[4] = byte(timestampUS >> 24)
	params[5] = byte(data)
	params[6] = byte(data >> 8)
	params[7] = dataType
	_, err := s.sendCommand("ReportWheelEncoder", cmdIDWheelEncoder, params)
	return err
}

func (s *Session) SaveDeadReckoningCalNow() error {
	_, err := s.sendCommand("SaveDeadReckoningCalNow", cmdIDDeadReckoningSave, [9]byte{})
	return err
}

// --- sensor flush (sh2_flush) -----------------------------------------

func (s *Session) Flush(sensorID SensorID) error {
	const op = "Flush"
	_, err := s.sendAndAwait(op, encodeForceSensorFlush(uint8(sensorID)), func(b []byte) bool {
		return isFlushCompleted(b, uint8(sensorID))
	})
	return err
}
