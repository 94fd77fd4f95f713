package hardware

import (
	"encoding/binary"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestMotorSpeed(t *testing.T) {
	bus := newTestBus(DEFAULT_ADDR)
	c, _ := NewController(bus, DEFAULT_ADDR)
	m, _ := c.Motor(2)

	Convey("negative speeds go out as two's complement", t, func() {
		So(m.SetSpeed(-100), ShouldBeNil)

		w := bus.lastWrite()
		So(w.reg, ShouldEqual, MotorRegs[1]+MOTOR_SPEED)
		So(w.data, ShouldResemble, []byte{0x9C})

		v, err := m.Speed()
		So(err, ShouldBeNil)
		So(v, ShouldEqual, -100)

		Convey("full forward is 0x64", func() {
			So(m.SetSpeed(100), ShouldBeNil)
			So(bus.lastWrite().data, ShouldResemble, []byte{0x64})
		})

		Convey("out of range speeds never reach the bus", func() {
			writes := len(bus.writes)
			So(m.SetSpeed(101), ShouldEqual, ERR_VALUE_RANGE)
			So(m.SetSpeed(-101), ShouldEqual, ERR_VALUE_RANGE)
			So(len(bus.writes), ShouldEqual, writes)
		})
	})
}

func TestMotorMode(t *testing.T) {
	bus := newTestBus(DEFAULT_ADDR)
	c, _ := NewController(bus, DEFAULT_ADDR)
	m, _ := c.Motor(1)

	Convey("mode byte packs invert and pending", t, func() {
		So(m.SetMode(MODE_SLEW, true, true), ShouldBeNil)
		So(bus.lastWrite().data, ShouldResemble, []byte{MODE_INVERT | MODE_PENDING | uint8(MODE_SLEW)})

		st, err := m.Status()
		So(err, ShouldBeNil)
		So(st.Invert, ShouldBeTrue)
		So(st.Pending, ShouldBeTrue)
		So(st.Mode, ShouldEqual, MODE_SLEW)
		So(st.Busy, ShouldBeFalse)

		Convey("busy bit decodes from status reads", func() {
			bus.regs[DEFAULT_ADDR][MotorRegs[0]+MOTOR_MODE] |= MODE_BUSY
			st, err := m.Status()
			So(err, ShouldBeNil)
			So(st.Busy, ShouldBeTrue)
		})
	})

	Convey("reset writes the reset bit alone", t, func() {
		So(m.Reset(), ShouldBeNil)
		So(bus.lastWrite().data, ShouldResemble, []byte{MODE_RESET})
	})
}

func TestMotorPosition(t *testing.T) {
	bus := newTestBus(DEFAULT_ADDR)
	c, _ := NewController(bus, DEFAULT_ADDR)
	m, _ := c.Motor(4)

	Convey("encoder values decode big endian and signed", t, func() {
		enc := int32(-1440)
		binary.BigEndian.PutUint32(bus.regs[DEFAULT_ADDR][MotorRegs[3]+MOTOR_POSITION:], uint32(enc))

		pos, err := m.Position()
		So(err, ShouldBeNil)
		So(pos, ShouldEqual, -1440)
	})

	Convey("targets encode the same way", t, func() {
		So(m.SetTarget(720), ShouldBeNil)

		w := bus.lastWrite()
		So(w.reg, ShouldEqual, MotorRegs[3]+MOTOR_TARGET)
		So(w.data, ShouldResemble, []byte{0x00, 0x00, 0x02, 0xD0})

		v, err := m.Target()
		So(err, ShouldBeNil)
		So(v, ShouldEqual, 720)
	})
}

func TestMotorSlewTo(t *testing.T) {
	bus := newTestBus(DEFAULT_ADDR)
	c, _ := NewController(bus, DEFAULT_ADDR)
	m, _ := c.Motor(1)

	Convey("slew stages target and speed before the mode switch", t, func() {
		So(m.SetMode(MODE_POWER_BRAKE, true, false), ShouldBeNil)

		So(m.SlewTo(1440, 40), ShouldBeNil)

		tgt, _ := m.Target()
		So(tgt, ShouldEqual, 1440)

		speed, _ := m.Speed()
		So(speed, ShouldEqual, 40)

		st, _ := m.Status()
		So(st.Mode, ShouldEqual, MODE_SLEW)
		So(st.Invert, ShouldBeTrue) // preserved from before the slew

		Convey("the mode write comes last", func() {
			last := bus.lastWrite()
			So(last.reg, ShouldEqual, MotorRegs[0]+MOTOR_MODE)
		})
	})
}
