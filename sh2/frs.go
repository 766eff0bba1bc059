package sh2

import "github.com/hillcrestlabs/sh2go/internal/constants"

// RecordID identifies a Flash Record System entry (original_source/sh2.h's
// numeric FRS_ID_*/*_CALIBRATION/*_CONFIG #defines). Only record
// *identity* is modelled here — what a record's words mean is a
// Non-goal (SPEC_FULL.md §1, "concrete sensor report decoding").
type RecordID uint16

// A subset of original_source/sh2.h's FRS record IDs, covering
// calibration, orientation, and per-sensor metadata records — enough to
// exercise GetFrs/SetFrs and GetMetadata without claiming full coverage
// of the reference header's table.
const (
	RecordStaticCalibrationAGM RecordID = 0x7979
	RecordNominalCalibration   RecordID = 0x4D4D
	RecordDynamicCalibration   RecordID = 0x1F1F
	RecordSystemOrientation    RecordID = 0x2D3E
	RecordAccelOrientation     RecordID = 0x2D41
	RecordGyroscopeOrientation RecordID = 0x2D46
	RecordSerialNumber         RecordID = 0x4B4B
	RecordUserRecord           RecordID = 0x74B4

	RecordMetaAccelerometer       RecordID = 0xE302
	RecordMetaLinearAcceleration  RecordID = 0xE303
	RecordMetaGravity             RecordID = 0xE304
	RecordMetaGyroscopeCalibrated RecordID = 0xE306
	RecordMetaMagneticField       RecordID = 0xE309
	RecordMetaRotationVector      RecordID = 0xE30B
	RecordMetaGameRotationVector  RecordID = 0xE30C
	RecordMetaGeomagneticRV       RecordID = 0xE30D
	RecordMetaPressure            RecordID = 0xE30E
)

// sensorMetadataRecord maps a sensor ID to the FRS record carrying its
// sh2_SensorMetadata_t, for GetMetadata. Sensors with no entry here have
// no known metadata record in the subset above.
var sensorMetadataRecord = map[SensorID]RecordID{
	SensorAccelerometer:       RecordMetaAccelerometer,
	SensorLinearAcceleration:  RecordMetaLinearAcceleration,
	SensorGravity:             RecordMetaGravity,
	SensorGyroscopeCalibrated: RecordMetaGyroscopeCalibrated,
	SensorMagneticField:       RecordMetaMagneticField,
	SensorRotationVector:      RecordMetaRotationVector,
	SensorGameRotationVector:  RecordMetaGameRotationVector,
	SensorGeomagneticRV:       RecordMetaGeomagneticRV,
	SensorPressure:            RecordMetaPressure,
}

// GetFrs reads numWords 32-bit words starting at offsetWords from
// record, blocking (pumping Service) until the hub's FRS_READ_RESP
// arrives or the poll budget is exhausted (sh2_getFrs).
func (s *Session) GetFrs(record RecordID, offsetWords, numWords uint16) ([]uint32, error) {
	const op = "GetFrs"
	frame := encodeFRSReadReq(uint16(record), offsetWords, numWords)
	resp, err := s.sendAndAwait(op, frame, isFRSReadResp)
	if err != nil {
		return nil, err
	}
	return decodeFRSReadResp(resp), nil
}

// SetFrs writes words to record starting at word offset 0 (sh2_setFrs).
// Only whole-record writes are supported; partial-record writes are a
// Non-goal (record layout semantics are out of scope).
func (s *Session) SetFrs(record RecordID, words []uint32) error {
	const op = "SetFrs"
	if err := s.core.Send(constants.ChanControl, encodeFRSWriteReq(uint16(record), uint16(len(words)))); err != nil {
		return wrapErr(op, constants.ChanControl, err)
	}
	if _, err := s.await(op, isFRSWriteResp); err != nil {
		return err
	}
	for off := 0; off < len(words); off += 2 {
		var w1 uint32
		if off+1 < len(words) {
			w1 = words[off+1]
		}
		frame := encodeFRSWriteDataReq(uint16(off), words[off], w1)
		if err := s.core.Send(constants.ChanControl, frame); err != nil {
			return wrapErr(op, constants.ChanControl, err)
		}
	}
	_, err := s.await(op, isFRSWriteResp)
	return err
}

// GetMetadata reads sensorID's sh2_SensorMetadata_t record (sh2_getMetadata).
func (s *Session) GetMetadata(sensorID SensorID) (SensorMetadata, error) {
	const op = "GetMetadata"
	record, ok := sensorMetadataRecord[sensorID]
	if !ok {
		return SensorMetadata{}, &Error{Op: op, Code: ErrCodeBadParam}
	}
	words, err := s.GetFrs(record, 0, metadataWordCount)
	if err != nil {
		return SensorMetadata{}, err
	}
	return decodeMetadata(words), nil
}
