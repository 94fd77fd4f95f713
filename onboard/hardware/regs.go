package hardware

import (
	"time"
)

// Register layout of the Matrix M4S4 controller. Identity strings occupy
// three 8 byte blocks at the bottom of the map; servo and motor channels are
// fixed-shape blocks at the per-channel base addresses.
const (
	REG_VERSION      = 0x00
	REG_MANUFACTURER = 0x08
	REG_TYPE         = 0x10
	REG_STATUS       = 0x41
	REG_TIMEOUT      = 0x42
	REG_BATTERY      = 0x43
	REG_START        = 0x44
	REG_SERVO_ENABLE = 0x45

	INFO_LEN = 8

	STATUS_FAULT    = 0x01
	STATUS_BATT_LOW = 0x02

	// offsets within a servo channel block
	SERVO_SPEED  = 0
	SERVO_TARGET = 1

	// offsets within a motor channel block
	MOTOR_POSITION = 0
	MOTOR_TARGET   = 4
	MOTOR_SPEED    = 8
	MOTOR_MODE     = 9

	// motor mode byte bits
	MODE_BUSY    = 0x80
	MODE_INVERT  = 0x10
	MODE_PENDING = 0x08
	MODE_RESET   = 0x04
	MODE_MASK    = 0x03

	NUM_CHANNELS = 4

	SERVO_TARGET_MAX = 250
	MOTOR_SPEED_MAX  = 100
	TIMEOUT_MAX      = 255

	// battery level register counts in units of 40mV
	BATTERY_UNIT_MV = 40
)

var (
	ServoRegs = [NUM_CHANNELS]uint8{0x46, 0x48, 0x50, 0x52}
	MotorRegs = [NUM_CHANNELS]uint8{0x4E, 0x58, 0x62, 0x6C}
)

type MotorMode uint8

const (
	MODE_POWER_FLOAT MotorMode = iota // power control, 0 speed floats
	MODE_POWER_BRAKE                  // power control, 0 speed brakes
	MODE_SPEED                        // closed loop speed control
	MODE_SLEW                         // slew to the target position
)

func (m MotorMode) String() string {
	switch m {
	case MODE_POWER_FLOAT:
		return "float"
	case MODE_POWER_BRAKE:
		return "brake"
	case MODE_SPEED:
		return "speed"
	case MODE_SLEW:
		return "slew"
	}
	return "unknown"
}

// Servo pulse mapping: targets 0-250 cover pulse widths 0.75ms-2.25ms.
const (
	PULSE_MIN  = 750 * time.Microsecond
	PULSE_MAX  = 2250 * time.Microsecond
	PULSE_STEP = 6 * time.Microsecond
)

// PulseWidth returns the pulse width generated for a servo target value.
func PulseWidth(target uint8) time.Duration {
	return PULSE_MIN + time.Duration(target)*PULSE_STEP
}

// TargetForPulse returns the closest target value for a pulse width.
func TargetForPulse(pulse time.Duration) (uint8, error) {
	if pulse < PULSE_MIN || pulse > PULSE_MAX {
		return 0, ERR_PULSE_RANGE
	}
	return uint8((pulse - PULSE_MIN + PULSE_STEP/2) / PULSE_STEP), nil
}
