package onboard

import (
	"fmt"

	deverrors "github.com/matrixpi/gomatrix/onboard/errors"
	"github.com/matrixpi/gomatrix/onboard/hardware"
	"github.com/matrixpi/gomatrix/onboard/i2cbus"
)

type Rig interface {
	EnableServo(controller string, channel int, on bool) error
	SetServoSpeed(controller string, channel int, speed uint8) error
	SetServoTarget(controller string, channel int, target uint8) error
	SetMotorSpeed(controller string, channel int, speed int) error
	SlewMotor(controller string, channel int, target int32, speed int) error
	ResetMotor(controller string, channel int) error
	Drive(vx, vy, wz float64) error
	Stop() error
	GetState() (RigState, error)
}

type ServoState struct {
	Enabled bool  `json:"enabled"`
	Speed   uint8 `json:"speed"`
	Target  uint8 `json:"target"`
}

type MotorState struct {
	Position int32  `json:"position"`
	Target   int32  `json:"target"`
	Speed    int    `json:"speed"`
	Busy     bool   `json:"busy"`
	Mode     string `json:"mode"`
}

type ControllerState struct {
	Fault     bool                              `json:"fault"`
	BattLow   bool                              `json:"batt_low"`
	BatteryMV int                               `json:"battery_mv"`
	Servos    [hardware.NUM_CHANNELS]ServoState `json:"servos"`
	Motors    [hardware.NUM_CHANNELS]MotorState `json:"motors"`
}

type RigState map[string]ControllerState

type busFactory func(n int) (i2cbus.I2CBusInterface, error)

type MatrixRig struct {
	Controllers map[string]*hardware.Controller
	buses       map[int]i2cbus.I2CBusInterface

	drive       *MecanumDrive
	driveCtl    *hardware.Controller
	driveWheels [4]int
}

// NewMatrixRig builds the rig over real /dev/i2c buses.
func NewMatrixRig(config RigConfig) (*MatrixRig, error) {
	return newRig(config, func(n int) (i2cbus.I2CBusInterface, error) {
		return i2cbus.NewI2CBus(n)
	})
}

func newRig(config RigConfig, factory busFactory) (r *MatrixRig, err error) {
	r = new(MatrixRig)
	r.buses = make(map[int]i2cbus.I2CBusInterface)

	switch config.Version {
	case 1:
		r.Controllers = make(map[string]*hardware.Controller, len(config.Controllers))
		for name, cc := range config.Controllers {
			var bus i2cbus.I2CBusInterface
			var ctl *hardware.Controller

			bus, err = r.getBus(cc.Bus, factory)
			if err != nil {
				return
			}

			ctl, err = hardware.NewController(bus, cc.Addr)
			if err != nil {
				return nil, fmt.Errorf("controller %s: %w", name, err)
			}

			if err = r.applyConfig(name, ctl, cc); err != nil {
				return
			}

			r.Controllers[name] = ctl
		}

		if config.Drive != nil {
			ctl, ok := r.Controllers[config.Drive.Controller]
			if !ok {
				return nil, deverrors.ControllerNameError{Name: config.Drive.Controller}
			}
			r.drive = NewMecanumDrive(config.Drive.Wheelbase, config.Drive.Track)
			r.driveCtl = ctl
			r.driveWheels = config.Drive.Wheels
		}

	default:
		err = fmt.Errorf("unable to work with version %d", config.Version)
	}

	return
}

// applyConfig pushes the per channel settings from the config down to the
// controller before it is offered to callers.
func (r *MatrixRig) applyConfig(name string, ctl *hardware.Controller, cc ControllerConfig) error {
	if cc.Timeout > 0 {
		if err := ctl.SetTimeout(cc.Timeout); err != nil {
			return err
		}
	}

	for ch, mc := range cc.Motors {
		m, err := ctl.Motor(ch)
		if err != nil {
			return deverrors.ChannelRangeError{Controller: name, Channel: ch}
		}
		if err := m.SetMode(mc.Mode, mc.Invert, false); err != nil {
			return err
		}
	}

	for ch, sc := range cc.Servos {
		s, err := ctl.Servo(ch)
		if err != nil {
			return deverrors.ChannelRangeError{Controller: name, Channel: ch}
		}
		if err := s.SetSpeed(sc.Speed); err != nil {
			return err
		}
	}

	return nil
}

func (r *MatrixRig) getBus(n int, factory busFactory) (bus i2cbus.I2CBusInterface, err error) {
	bus, ok := r.buses[n]
	if !ok {
		// need to create bus
		bus, err = factory(n)
		if err != nil {
			return
		}
		r.buses[n] = bus
	}

	return bus, nil
}

func (r *MatrixRig) controller(name string) (*hardware.Controller, error) {
	c, ok := r.Controllers[name]
	if !ok {
		return nil, deverrors.ControllerNameError{Name: name}
	}
	return c, nil
}

func (r *MatrixRig) servo(controller string, channel int) (*hardware.Servo, error) {
	c, err := r.controller(controller)
	if err != nil {
		return nil, err
	}

	s, err := c.Servo(channel)
	if err != nil {
		return nil, deverrors.ChannelRangeError{Controller: controller, Channel: channel}
	}
	return s, nil
}

func (r *MatrixRig) motor(controller string, channel int) (*hardware.Motor, error) {
	c, err := r.controller(controller)
	if err != nil {
		return nil, err
	}

	m, err := c.Motor(channel)
	if err != nil {
		return nil, deverrors.ChannelRangeError{Controller: controller, Channel: channel}
	}
	return m, nil
}

func (r *MatrixRig) EnableServo(controller string, channel int, on bool) error {
	s, err := r.servo(controller, channel)
	if err != nil {
		return err
	}

	if on {
		return s.Enable()
	}
	return s.Disable()
}

func (r *MatrixRig) SetServoSpeed(controller string, channel int, speed uint8) error {
	s, err := r.servo(controller, channel)
	if err != nil {
		return err
	}
	return s.SetSpeed(speed)
}

func (r *MatrixRig) SetServoTarget(controller string, channel int, target uint8) error {
	s, err := r.servo(controller, channel)
	if err != nil {
		return err
	}
	return s.SetTarget(target)
}

func (r *MatrixRig) SetMotorSpeed(controller string, channel int, speed int) error {
	m, err := r.motor(controller, channel)
	if err != nil {
		return err
	}
	return m.SetSpeed(speed)
}

func (r *MatrixRig) SlewMotor(controller string, channel int, target int32, speed int) error {
	m, err := r.motor(controller, channel)
	if err != nil {
		return err
	}
	return m.SlewTo(target, speed)
}

func (r *MatrixRig) ResetMotor(controller string, channel int) error {
	m, err := r.motor(controller, channel)
	if err != nil {
		return err
	}
	return m.Reset()
}

// Drive mixes the twist through the mecanum kinematics and applies the wheel
// speeds to the drive controller.
func (r *MatrixRig) Drive(vx, vy, wz float64) error {
	if r.drive == nil {
		return deverrors.NoDriveError{}
	}

	speeds := r.drive.Speeds(vx, vy, wz)
	for i, ch := range r.driveWheels {
		m, err := r.driveCtl.Motor(ch)
		if err != nil {
			return err
		}
		if err := m.SetSpeed(speeds[i]); err != nil {
			return err
		}
	}

	return nil
}

// Stop issues an all stop on every controller.
func (r *MatrixRig) Stop() (err error) {
	for name, c := range r.Controllers {
		if err = c.AllStop(); err != nil {
			return fmt.Errorf("controller %s: %w", name, err)
		}
	}
	return nil
}

func (r *MatrixRig) GetState() (state RigState, err error) {
	state = make(RigState, len(r.Controllers))

	for name, c := range r.Controllers {
		var cs ControllerState

		status, err := c.Status()
		if err != nil {
			return nil, fmt.Errorf("controller %s: %w", name, err)
		}
		cs.Fault = status.Fault
		cs.BattLow = status.BattLow
		cs.BatteryMV = status.BatteryMV

		for i := 0; i < hardware.NUM_CHANNELS; i++ {
			s, _ := c.Servo(i + 1)
			if cs.Servos[i].Enabled, err = s.Enabled(); err != nil {
				return nil, err
			}
			if cs.Servos[i].Speed, err = s.Speed(); err != nil {
				return nil, err
			}
			if cs.Servos[i].Target, err = s.Target(); err != nil {
				return nil, err
			}

			m, _ := c.Motor(i + 1)
			if cs.Motors[i].Position, err = m.Position(); err != nil {
				return nil, err
			}
			if cs.Motors[i].Target, err = m.Target(); err != nil {
				return nil, err
			}
			if cs.Motors[i].Speed, err = m.Speed(); err != nil {
				return nil, err
			}

			st, err := m.Status()
			if err != nil {
				return nil, err
			}
			cs.Motors[i].Busy = st.Busy
			cs.Motors[i].Mode = st.Mode.String()
		}

		state[name] = cs
	}

	return state, nil
}
