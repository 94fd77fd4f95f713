package hardware

import (
	"encoding/binary"
)

// Motor is one of the four DC motor channels of a controller.
type Motor struct {
	controller *Controller
	Index      uint8 // the index of the channel on the controller. Range: 1-4
}

// MotorStatus is the decoded mode/status byte of a channel.
type MotorStatus struct {
	Busy    bool // true while a slew has not reached its target
	Invert  bool
	Pending bool // waiting for the start flag
	Mode    MotorMode
}

func (m *Motor) base() uint8 {
	return MotorRegs[m.Index-1]
}

// SetMode configures the channel. A pending channel stages its speed/target
// and waits for the controller start flag before moving.
func (m *Motor) SetMode(mode MotorMode, invert, pending bool) error {
	if mode > MODE_SLEW {
		return ERR_VALUE_RANGE
	}

	var val uint8 = uint8(mode)
	if invert {
		val |= MODE_INVERT
	}
	if pending {
		val |= MODE_PENDING
	}

	return m.controller.writeByte(m.base()+MOTOR_MODE, val)
}

// Reset clears the channel: encoder, target, speed and mode all return to
// their power-on values.
func (m *Motor) Reset() error {
	return m.controller.writeByte(m.base()+MOTOR_MODE, MODE_RESET)
}

// SetSpeed sets the channel speed, -100 to 100. The wire value is a two's
// complement int8.
func (m *Motor) SetSpeed(speed int) error {
	if speed < -MOTOR_SPEED_MAX || speed > MOTOR_SPEED_MAX {
		return ERR_VALUE_RANGE
	}
	return m.controller.writeByte(m.base()+MOTOR_SPEED, uint8(int8(speed)))
}

func (m *Motor) Speed() (int, error) {
	v, err := m.controller.readByte(m.base() + MOTOR_SPEED)
	return int(int8(v)), err
}

// SetTarget sets the encoder target used by slew mode.
func (m *Motor) SetTarget(target int32) error {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(target))
	return m.controller.bus.WriteReg(m.controller.addr, m.base()+MOTOR_TARGET, buf)
}

func (m *Motor) Target() (int32, error) {
	return m.readInt32(m.base() + MOTOR_TARGET)
}

// Position returns the current encoder reading.
func (m *Motor) Position() (int32, error) {
	return m.readInt32(m.base() + MOTOR_POSITION)
}

func (m *Motor) readInt32(reg uint8) (int32, error) {
	buf := make([]byte, 4)
	if err := m.controller.readReg(reg, buf); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(buf)), nil
}

func (m *Motor) Status() (s MotorStatus, err error) {
	val, err := m.controller.readByte(m.base() + MOTOR_MODE)
	if err != nil {
		return
	}

	s.Busy = val&MODE_BUSY != 0
	s.Invert = val&MODE_INVERT != 0
	s.Pending = val&MODE_PENDING != 0
	s.Mode = MotorMode(val & MODE_MASK)
	return
}

// SlewTo moves the motor to an encoder target at the given speed, preserving
// the current invert setting. The sequence runs under the controller lock so
// target and speed land before the mode switch.
func (m *Motor) SlewTo(target int32, speed int) error {
	if speed < -MOTOR_SPEED_MAX || speed > MOTOR_SPEED_MAX {
		return ERR_VALUE_RANGE
	}

	st, err := m.Status()
	if err != nil {
		return err
	}

	m.controller.lock.Lock()
	defer m.controller.lock.Unlock()

	if err := m.SetTarget(target); err != nil {
		return err
	}
	if err := m.controller.writeByte(m.base()+MOTOR_SPEED, uint8(int8(speed))); err != nil {
		return err
	}

	return m.SetMode(MODE_SLEW, st.Invert, false)
}
