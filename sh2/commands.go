package sh2

import (
	"encoding/binary"
	"math"
)

// Control-channel report IDs. The trimmed original_source/sh2.h in this
// tree is an API header (function prototypes and struct layouts) and
// carries no numeric wire opcodes, so these follow the report ID table
// published for the SH-2 transport (the same IDs used across the open
// SH-2 hobbyist/embedded ecosystem, e.g. Adafruit's and SparkFun's BNO08x
// drivers) rather than a value lifted from this pack; see DESIGN.md.
const (
	reportIDGetFeatureReq     = 0xFE
	reportIDSetFeatureCmd     = 0xFD
	reportIDGetFeatureResp    = 0xFC
	reportIDBaseTimestamp     = 0xFB
	reportIDFRSWriteReq       = 0xF7
	reportIDFRSWriteDataReq   = 0xF6
	reportIDFRSWriteResp      = 0xF5
	reportIDFRSReadReq        = 0xF4
	reportIDFRSReadResp       = 0xF3
	reportIDCommandReq        = 0xF2
	reportIDCommandResp       = 0xF1
	reportIDForceSensorFlush  = 0xF0
	reportIDFlushCompleted    = 0xEF
	reportIDProdIDReq         = 0xF9
	reportIDProdIDResp        = 0xF8
)

// Command IDs carried in a COMMAND_REQUEST/COMMAND_RESP envelope's
// second byte — the TARE_COMMAND/CAL_CMD-style discriminants SPEC_FULL.md
// §4.6 groups under the generic envelope. Grounded on the command
// surface original_source/sh2.h exposes (sh2_setTareNow, sh2_startCal,
// ...); numbered in declaration order since the header itself carries no
// numeric IDs (see DESIGN.md).
const (
	cmdIDTare               = 1
	cmdIDInitialize         = 2 // sh2_reinitialize
	cmdIDSaveDCD            = 3
	cmdIDSetCalConfig       = 4
	cmdIDDCDAutoSave        = 5
	cmdIDOscillator         = 6
	cmdIDClearDCD           = 7 // sh2_clearDcdAndReset
	cmdIDCalStart           = 8
	cmdIDCalFinish          = 9
	cmdIDReorientation      = 10
	cmdIDIZro               = 11
	cmdIDWheelEncoder       = 12
	cmdIDDeadReckoningSave  = 13
)

// Tare command subcommands (sh2_setTareNow / sh2_clearTare / sh2_persistTare).
const (
	tareSubNow      = 0
	tareSubPersist  = 1
	tareSubReorient = 2
	tareSubClear    = 3
)

// Executable-channel commands are raw single bytes with no envelope
// (original_source/sh2.h: sh2_devReset/On/Sleep).
const (
	executableReset = 1
	executableOn    = 2
	executableSleep = 3
)

// executableResetComplete is the value the hub is recognised as sending
// back on the executable channel to report that a reset finished. The
// trimmed original_source/sh2.h carries no inbound opcode for this —
// only the outbound reset/on/sleep commands above — so this value is
// an invented placeholder rather than one lifted from the pack; see
// DESIGN.md Open Question 5.
const executableResetComplete = 0

// FeatureResponse decodes a GET_FEATURE_RESP report: the active
// configuration for one sensor ID (original_source/sh2.h's
// sh2_SensorConfig_t, echoed back by the hub).
type FeatureResponse struct {
	SensorID               uint8
	ChangeSensitivityEnabled  bool
	ChangeSensitivityRelative bool
	WakeupEnabled             bool
	AlwaysOnEnabled           bool
	SniffEnabled              bool
	ChangeSensitivity         uint16
	ReportInterval            uint32 // microseconds
	BatchInterval             uint32 // microseconds
	SensorSpecific            uint32
}

const featureReportLen = 17

func encodeSetFeature(sensorID uint8, cfg SensorConfig) []byte {
	b := make([]byte, featureReportLen)
	b[0] = reportIDSetFeatureCmd
	b[1] = sensorID
	b[2] = encodeFeatureFlags(cfg)
	binary.LittleEndian.PutUint16(b[3:5], cfg.ChangeSensitivity)
	binary.LittleEndian.PutUint32(b[5:9], cfg.ReportInterval)
	binary.LittleEndian.PutUint32(b[9:13], cfg.BatchInterval)
	binary.LittleEndian.PutUint32(b[13:17], cfg.SensorSpecific)
	return b
}

func encodeFeatureFlags(cfg SensorConfig) byte {
	var f byte
	if cfg.ChangeSensitivityEnabled {
		f |= 0x01
	}
	if cfg.ChangeSensitivityRelative {
		f |= 0x02
	}
	if cfg.WakeupEnabled {
		f |= 0x04
	}
	if cfg.AlwaysOnEnabled {
		f |= 0x08
	}
	if cfg.SniffEnabled {
		f |= 0x10
	}
	return f
}

func encodeGetFeatureReq(sensorID uint8) []byte {
	return []byte{reportIDGetFeatureReq, sensorID}
}

func decodeFeatureResponse(b []byte) (FeatureResponse, bool) {
	if len(b) < featureReportLen || b[0] != reportIDGetFeatureResp {
		return FeatureResponse{}, false
	}
	flags := b[2]
	return FeatureResponse{
		SensorID:                  b[1],
		ChangeSensitivityEnabled:  flags&0x01 != 0,
		ChangeSensitivityRelative: flags&0x02 != 0,
		WakeupEnabled:             flags&0x04 != 0,
		AlwaysOnEnabled:           flags&0x08 != 0,
		SniffEnabled:              flags&0x10 != 0,
		ChangeSensitivity:         binary.LittleEndian.Uint16(b[3:5]),
		ReportInterval:            binary.LittleEndian.Uint32(b[5:9]),
		BatchInterval:             binary.LittleEndian.Uint32(b[9:13]),
		SensorSpecific:            binary.LittleEndian.Uint32(b[13:17]),
	}, true
}

// commandReportLen is COMMAND_REQ/RESP's fixed size: report ID, sequence
// number, command ID, and 9 command-specific parameter bytes
// (original_source/sh2.h's command parameter lists top out at 9 bytes,
// e.g. sh2_setTareNow's basis + axes + a reserved pad).
const commandReportLen = 12

func encodeCommandReq(seq uint8, cmdID uint8, params [9]byte) []byte {
	b := make([]byte, commandReportLen)
	b[0] = reportIDCommandReq
	b[1] = seq
	b[2] = cmdID
	copy(b[3:], params[:])
	return b
}

func isCommandResp(b []byte) bool {
	return len(b) >= 3 && b[0] == reportIDCommandResp
}

func commandRespSeq(b []byte) uint8 { return b[1] }
func commandRespCmdID(b []byte) uint8 { return b[2] }

// frsReadReqLen is the fixed FRS read request size (record ID, word
// offset, word count).
const frsReadReqLen = 8

func encodeFRSReadReq(recordID uint16, offsetWords, numWords uint16) []byte {
	b := make([]byte, frsReadReqLen)
	b[0] = reportIDFRSReadReq
	b[1] = 0
	binary.LittleEndian.PutUint16(b[2:4], offsetWords)
	binary.LittleEndian.PutUint16(b[4:6], recordID)
	binary.LittleEndian.PutUint16(b[6:8], numWords)
	return b
}

func encodeFRSWriteReq(recordID uint16, numWords uint16) []byte {
	b := make([]byte, 6)
	b[0] = reportIDFRSWriteReq
	b[1] = 0
	binary.LittleEndian.PutUint16(b[2:4], numWords)
	binary.LittleEndian.PutUint16(b[4:6], recordID)
	return b
}

func encodeFRSWriteDataReq(offsetWords uint16, w0, w1 uint32) []byte {
	b := make([]byte, 12)
	b[0] = reportIDFRSWriteDataReq
	b[1] = 0
	binary.LittleEndian.PutUint16(b[2:4], offsetWords)
	binary.LittleEndian.PutUint32(b[4:8], w0)
	binary.LittleEndian.PutUint32(b[8:12], w1)
	return b
}

func isFRSReadResp(b []byte) bool  { return len(b) >= 1 && b[0] == reportIDFRSReadResp }
func isFRSWriteResp(b []byte) bool { return len(b) >= 1 && b[0] == reportIDFRSWriteResp }

// metadataWordCount is how many 32-bit words decodeMetadata expects.
const metadataWordCount = 8

func decodeFRSReadResp(b []byte) []uint32 {
	if len(b) < 2 {
		return nil
	}
	n := int(b[1])
	out := make([]uint32, 0, n)
	off := 2
	for i := 0; i < n && off+4 <= len(b); i++ {
		out = append(out, binary.LittleEndian.Uint32(b[off:off+4]))
		off += 4
	}
	return out
}

func decodeMetadata(words []uint32) SensorMetadata {
	var m SensorMetadata
	if len(words) > 0 {
		m.MEVersion = uint8(words[0])
		m.MHVersion = uint8(words[0] >> 8)
		m.SHVersion = uint8(words[0] >> 16)
	}
	if len(words) > 1 {
		m.Range = words[1]
	}
	if len(words) > 2 {
		m.Resolution = words[2]
	}
	if len(words) > 3 {
		m.Revision = uint16(words[3])
		m.PowerMA = uint16(words[3] >> 16)
	}
	if len(words) > 4 {
		m.MinPeriodUS = words[4]
	}
	if len(words) > 5 {
		m.MaxPeriodUS = words[5]
	}
	if len(words) > 6 {
		m.QPoint1 = uint16(words[6])
		m.QPoint2 = uint16(words[6] >> 16)
	}
	if len(words) > 7 {
		m.QPoint3 = uint16(words[7])
	}
	return m
}

func encodeForceSensorFlush(sensorID uint8) []byte {
	return []byte{reportIDForceSensorFlush, sensorID}
}

func isFlushCompleted(b []byte, sensorID uint8) bool {
	return len(b) >= 2 && b[0] == reportIDFlushCompleted && b[1] == sensorID
}

func encodeProdIDReq() []byte {
	return []byte{reportIDProdIDReq, 0}
}

func isProdIDResp(b []byte) bool { return len(b) >= 2 && b[0] == reportIDProdIDResp }

const prodIDEntryLen = 16

func decodeProdIDs(b []byte) []ProductID {
	if len(b) < 2 {
		return nil
	}
	n := int(b[1])
	out := make([]ProductID, 0, n)
	off := 2
	for i := 0; i < n && off+prodIDEntryLen <= len(b); i++ {
		out = append(out, ProductID{
			ResetCause:     b[off],
			SWVersionMajor: b[off+1],
			SWVersionMinor: b[off+2],
			SWVersionPatch: binary.LittleEndian.Uint16(b[off+3 : off+5]),
			SWPartNumber:   binary.LittleEndian.Uint32(b[off+5 : off+9]),
			SWBuildNumber:  binary.LittleEndian.Uint32(b[off+9 : off+13]),
		})
		off += prodIDEntryLen
	}
	return out
}

// GET_DATA_REQUEST family: counts and error records are their own report
// pairs, not discriminants inside COMMAND_REQUEST (SPEC_FULL.md §4.6
// lists them alongside, not inside, the generic envelope).
const (
	reportIDCountsReq      = 0xEE
	reportIDCountsReport   = 0xED
	reportIDClearDataCount = 0xEC
	reportIDErrorsReq      = 0xEB
	reportIDErrorsResp     = 0xEA
)

func encodeCountsReq(sensorID uint8) []byte { return []byte{reportIDCountsReq, sensorID} }

func isCountsReport(b []byte, sensorID uint8) bool {
	return len(b) >= 18 && b[0] == reportIDCountsReport && b[1] == sensorID
}

func decodeCounts(b []byte) Counts {
	return Counts{
		Offered:   binary.LittleEndian.Uint32(b[2:6]),
		Accepted:  binary.LittleEndian.Uint32(b[6:10]),
		On:        binary.LittleEndian.Uint32(b[10:14]),
		Attempted: binary.LittleEndian.Uint32(b[14:18]),
	}
}

func encodeClearDataCount(sensorID uint8) []byte {
	return []byte{reportIDClearDataCount, sensorID}
}

func encodeErrorsReq(severity uint8) []byte { return []byte{reportIDErrorsReq, severity} }

func isErrorsResp(b []byte) bool { return len(b) >= 2 && b[0] == reportIDErrorsResp }

const errorRecordLen = 6

func decodeErrors(b []byte) []ErrorRecord {
	if len(b) < 2 {
		return nil
	}
	n := int(b[1])
	out := make([]ErrorRecord, 0, n)
	off := 2
	for i := 0; i < n && off+errorRecordLen <= len(b); i++ {
		out = append(out, ErrorRecord{
			Severity: b[off],
			Sequence: b[off+1],
			Source:   b[off+2],
			Error:    b[off+3],
			Module:   b[off+4],
			Code:     b[off+5],
		})
		off += errorRecordLen
	}
	return out
}

// float32ToQ encodes a floating-point value as a Q-point fixed integer,
// used for command parameters expressed in the SH-2 Reference Manual's
// Q-point convention (e.g. tare reorientation quaternion components).
func float32ToQ(v float64, qPoint uint) int16 {
	scaled := v * float64(int32(1)<<qPoint)
	if scaled > math.MaxInt16 {
		scaled = math.MaxInt16
	}
	if scaled < math.MinInt16 {
		scaled = math.MinInt16
	}
	return int16(math.Round(scaled))
}
