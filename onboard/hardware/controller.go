package hardware

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Masterminds/semver"
	"github.com/matrixpi/gomatrix/onboard/i2cbus"
)

const (
	CONTROLLER_VERSION = "~1.0"
	MANUFACTURER_ID    = "HiTechnc"
	CONTROLLER_TYPE    = "M4S4cont"

	DEFAULT_ADDR = 0x08
)

var (
	ERR_PULSE_RANGE   = errors.New("pulse width outside the 0.75ms-2.25ms range")
	ERR_CHANNEL_RANGE = errors.New("channel index outside 1-4")
	ERR_VALUE_RANGE   = errors.New("value outside the register range")
)

// Info holds the identity strings read from the bottom of the register map.
type Info struct {
	Version      string
	Manufacturer string
	Type         string
}

// Status is the decoded controller status and battery registers.
type Status struct {
	Fault     bool
	BattLow   bool
	BatteryMV int // battery voltage in millivolts
}

type Controller struct {
	bus    i2cbus.I2CBusInterface
	addr   uint8
	lock   *sync.Mutex
	servos [NUM_CHANNELS]*Servo
	motors [NUM_CHANNELS]*Motor
}

// NewController probes the device at addr and verifies it is a Matrix M4S4
// controller running an acceptable firmware version.
func NewController(bus i2cbus.I2CBusInterface, addr uint8) (c *Controller, err error) {
	c = &Controller{
		bus:  bus,
		addr: addr,
		lock: new(sync.Mutex),
	}

	for i := 0; i < NUM_CHANNELS; i++ {
		c.servos[i] = &Servo{controller: c, Index: uint8(i + 1)}
		c.motors[i] = &Motor{controller: c, Index: uint8(i + 1)}
	}

	info, err := c.Info()
	if err != nil {
		return nil, fmt.Errorf("unable to probe controller at 0x%02X: %w", addr, err)
	}

	if info.Manufacturer != MANUFACTURER_ID || info.Type != CONTROLLER_TYPE {
		return nil, IdentityError{Addr: addr, Manufacturer: info.Manufacturer, Type: info.Type}
	}

	// check version is acceptable
	versionString := strings.TrimPrefix(info.Version, "V")
	semVer, err := semver.NewVersion(versionString)
	if err != nil {
		if versionString == "DEV" {
			// development firmware, consider it safe for now
			return c, nil
		}
		return nil, fmt.Errorf("unable to parse version %q from controller 0x%02X: %w", info.Version, addr, err)
	}

	semVerConstraint, err := semver.NewConstraint(CONTROLLER_VERSION)
	if err != nil {
		return nil, err
	}

	if !semVerConstraint.Check(semVer) {
		return nil, fmt.Errorf("unable to use controller 0x%02X: received version %s - require %s",
			addr, info.Version, CONTROLLER_VERSION)
	}

	return c, nil
}

// register access helpers shared by the channel types

func (c *Controller) readReg(reg uint8, buf []byte) error {
	return c.bus.ReadReg(c.addr, reg, buf)
}

func (c *Controller) readByte(reg uint8) (uint8, error) {
	buf := make([]byte, 1)
	if err := c.readReg(reg, buf); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (c *Controller) writeByte(reg, val uint8) error {
	return c.bus.WriteReg(c.addr, reg, []byte{val})
}

func (c *Controller) Addr() uint8 {
	return c.addr
}

func (c *Controller) Info() (info Info, err error) {
	buf := make([]byte, INFO_LEN)

	if err = c.readReg(REG_VERSION, buf); err != nil {
		return
	}
	info.Version = trimInfo(buf)

	if err = c.readReg(REG_MANUFACTURER, buf); err != nil {
		return
	}
	info.Manufacturer = trimInfo(buf)

	if err = c.readReg(REG_TYPE, buf); err != nil {
		return
	}
	info.Type = trimInfo(buf)

	return
}

func trimInfo(buf []byte) string {
	return strings.TrimRight(string(buf), " \x00")
}

func (c *Controller) Status() (s Status, err error) {
	status, err := c.readByte(REG_STATUS)
	if err != nil {
		return
	}

	batt, err := c.readByte(REG_BATTERY)
	if err != nil {
		return
	}

	s.Fault = status&STATUS_FAULT != 0
	s.BattLow = status&STATUS_BATT_LOW != 0
	s.BatteryMV = int(batt) * BATTERY_UNIT_MV
	return
}

// SetTimeout arms the automatic shutdown watchdog. The controller stops all
// motors and servos when it sees no I2C traffic for the given number of
// seconds. 0 disables the watchdog.
func (c *Controller) SetTimeout(seconds int) error {
	if seconds < 0 || seconds > TIMEOUT_MAX {
		return ERR_VALUE_RANGE
	}
	return c.writeByte(REG_TIMEOUT, uint8(seconds))
}

func (c *Controller) Timeout() (int, error) {
	v, err := c.readByte(REG_TIMEOUT)
	return int(v), err
}

// Start sets the start flag, launching any motor commands staged with the
// pending bit.
func (c *Controller) Start() error {
	return c.writeByte(REG_START, 1)
}

// AllStop zeroes every motor speed and disables servo pulse generation.
func (c *Controller) AllStop() (err error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	for _, m := range c.motors {
		if err = c.bus.WriteReg(c.addr, m.base()+MOTOR_SPEED, []byte{0}); err != nil {
			return
		}
	}

	return c.writeByte(REG_SERVO_ENABLE, 0)
}

// Servo returns the servo channel for n in 1-4.
func (c *Controller) Servo(n int) (*Servo, error) {
	if n < 1 || n > NUM_CHANNELS {
		return nil, ERR_CHANNEL_RANGE
	}
	return c.servos[n-1], nil
}

// Motor returns the motor channel for n in 1-4.
func (c *Controller) Motor(n int) (*Motor, error) {
	if n < 1 || n > NUM_CHANNELS {
		return nil, ERR_CHANNEL_RANGE
	}
	return c.motors[n-1], nil
}

// IdentityError reports a device that responded but is not an M4S4.
type IdentityError struct {
	Addr         uint8
	Manufacturer string
	Type         string
}

func (err IdentityError) Error() string {
	return fmt.Sprintf("device at 0x%02X is not a Matrix controller (manufacturer %q, type %q)",
		err.Addr, err.Manufacturer, err.Type)
}
