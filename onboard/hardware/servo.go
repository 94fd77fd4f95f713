package hardware

import (
	"time"
)

// Servo is one of the four servo channels of a controller.
type Servo struct {
	controller *Controller
	Index      uint8 // the index of the channel on the controller. Range: 1-4
}

func (s *Servo) base() uint8 {
	return ServoRegs[s.Index-1]
}

func (s *Servo) bit() uint8 {
	return 1 << (s.Index - 1)
}

// Enable turns on pulse generation for this channel. The enable register is
// shared between channels so the read-modify-write runs under the controller
// lock.
func (s *Servo) Enable() error {
	return s.setEnabled(true)
}

// Disable stops pulse generation, leaving the servo limp.
func (s *Servo) Disable() error {
	return s.setEnabled(false)
}

func (s *Servo) setEnabled(on bool) error {
	c := s.controller
	c.lock.Lock()
	defer c.lock.Unlock()

	val, err := c.readByte(REG_SERVO_ENABLE)
	if err != nil {
		return err
	}

	if on {
		val |= s.bit()
	} else {
		val &^= s.bit()
	}

	return c.writeByte(REG_SERVO_ENABLE, val)
}

func (s *Servo) Enabled() (bool, error) {
	val, err := s.controller.readByte(REG_SERVO_ENABLE)
	return val&s.bit() != 0, err
}

// SetSpeed sets the rate at which target changes are applied. 0 makes
// changes immediate, otherwise the servo steps every 10*speed milliseconds.
func (s *Servo) SetSpeed(speed uint8) error {
	return s.controller.writeByte(s.base()+SERVO_SPEED, speed)
}

func (s *Servo) Speed() (uint8, error) {
	return s.controller.readByte(s.base() + SERVO_SPEED)
}

// SetTarget sets the servo position. Targets 0-250 map linearly onto pulse
// widths 0.75ms-2.25ms.
func (s *Servo) SetTarget(target uint8) error {
	if target > SERVO_TARGET_MAX {
		return ERR_VALUE_RANGE
	}
	return s.controller.writeByte(s.base()+SERVO_TARGET, target)
}

func (s *Servo) Target() (uint8, error) {
	return s.controller.readByte(s.base() + SERVO_TARGET)
}

// SetPulse sets the target from a pulse width.
func (s *Servo) SetPulse(pulse time.Duration) error {
	target, err := TargetForPulse(pulse)
	if err != nil {
		return err
	}
	return s.SetTarget(target)
}

// Pulse returns the pulse width for the current target.
func (s *Servo) Pulse() (time.Duration, error) {
	target, err := s.Target()
	if err != nil {
		return 0, err
	}
	return PulseWidth(target), nil
}
