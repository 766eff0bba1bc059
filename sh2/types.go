package sh2

// SensorID identifies a sensor report type (original_source/sh2.h's
// sh2_SensorId_e). Only the handful exercised by tests/examples are
// named; the rest are valid as raw values.
type SensorID uint8

const (
	SensorAccelerometer       SensorID = 0x01
	SensorGyroscopeCalibrated SensorID = 0x02
	SensorMagneticField       SensorID = 0x03
	SensorLinearAcceleration  SensorID = 0x04
	SensorRotationVector      SensorID = 0x05
	SensorGravity             SensorID = 0x06
	SensorGyroscopeUncal      SensorID = 0x07
	SensorGameRotationVector  SensorID = 0x08
	SensorGeomagneticRV       SensorID = 0x09
	SensorPressure            SensorID = 0x0A
	SensorRawAccelerometer    SensorID = 0x14
	SensorRawGyroscope        SensorID = 0x15
	SensorRawMagnetometer     SensorID = 0x16
	SensorGyroIntegratedRV    SensorID = 0x2A
	SensorDeadReckoningPose   SensorID = 0x2D
	SensorWheelEncoder        SensorID = 0x2E
)

// SensorConfig mirrors original_source/sh2.h's sh2_SensorConfig_t: the
// parameters of a GET_FEATURE/SET_FEATURE exchange.
type SensorConfig struct {
	ChangeSensitivityEnabled  bool
	ChangeSensitivityRelative bool
	WakeupEnabled             bool
	AlwaysOnEnabled           bool
	SniffEnabled              bool
	ChangeSensitivity         uint16
	ReportInterval            uint32 // microseconds
	BatchInterval             uint32 // microseconds (reserved, unused by the hub)
	SensorSpecific            uint32
}

// ProductID mirrors sh2_ProductId_t.
type ProductID struct {
	ResetCause     uint8
	SWVersionMajor uint8
	SWVersionMinor uint8
	SWVersionPatch uint16
	SWPartNumber   uint32
	SWBuildNumber  uint32
}

// Counts mirrors sh2_Counts_t: per-sensor event counters from a
// COUNTS_REPORT (sh2_getCounts).
type Counts struct {
	Offered   uint32
	Accepted  uint32
	On        uint32
	Attempted uint32
}

// ErrorRecord mirrors sh2_ErrorRecord_t: one entry of sh2_getErrors.
type ErrorRecord struct {
	Severity uint8
	Sequence uint8
	Source   uint8
	Error    uint8
	Module   uint8
	Code     uint8
}

// TareBasis selects which rotation estimate sh2_setTareNow tares against.
type TareBasis uint8

const (
	TareBasisRotationVector            TareBasis = 0
	TareBasisGamingRotationVector      TareBasis = 1
	TareBasisGeomagneticRotationVector TareBasis = 2
)

// TareAxis is a bitmask of axes to tare (sh2_TareAxis_t).
type TareAxis uint8

const (
	TareAxisX TareAxis = 1 << 0
	TareAxisY TareAxis = 1 << 1
	TareAxisZ TareAxis = 1 << 2
)

// TareAxisAll tares all three axes.
const TareAxisAll = TareAxisX | TareAxisY | TareAxisZ

// OscType mirrors sh2_OscType_t.
type OscType uint8

const (
	OscInternal   OscType = 0
	OscExtCrystal OscType = 1
	OscExtClock   OscType = 2
)

// CalStatus mirrors sh2_CalStatus_t's outcome codes from sh2_finishCal.
type CalStatus uint8

const (
	CalSuccess CalStatus = 0
	CalFailed  CalStatus = 1
)

// Calibration config bit flags (sh2_setCalConfig).
const (
	CalAccel  uint8 = 0x01
	CalGyro   uint8 = 0x02
	CalMag    uint8 = 0x04
	CalPlanar uint8 = 0x08
	CalOnTable uint8 = 0x10
)

// IZroMotionIntent mirrors sh2_IZroMotionIntent_t.
type IZroMotionIntent uint8

const (
	IZroMotionIntentStationaryNoVibration IZroMotionIntent = 0
	IZroMotionIntentStationaryWithVibration IZroMotionIntent = 1
	IZroMotionIntentStable IZroMotionIntent = 2
	IZroMotionIntentInMotion IZroMotionIntent = 3
)

// SensorMetadata mirrors a practical subset of sh2_SensorMetadata_t — the
// version/timing/q-point fields a host typically needs; the vendor ID and
// sensor-specific byte blobs are omitted (decoding sensor-specific
// payloads is a Non-goal).
type SensorMetadata struct {
	MEVersion, MHVersion, SHVersion uint8
	Range, Resolution               uint32
	Revision                        uint16
	PowerMA                         uint16
	MinPeriodUS, MaxPeriodUS        uint32
	QPoint1, QPoint2, QPoint3       uint16
}

// Quaternion is a unit quaternion, used by SetReorientation
// (sh2_setReorientation). internal/euler takes raw (r, i, j, k)
// components rather than this type.
type Quaternion struct {
	I, J, K, Real float64
}
