package onboard

import (
	"fmt"

	"github.com/matrixpi/gomatrix/onboard/hardware"
)

type RigConfig struct {
	Version     int
	Controllers map[string]ControllerConfig
	Drive       *DriveConfig
}

type ControllerConfig struct {
	Bus     int
	Addr    uint8
	Timeout int // watchdog seconds, 0 leaves the watchdog off
	Servos  map[int]ServoConfig
	Motors  map[int]MotorConfig
}

type ServoConfig struct {
	Name  string `yaml:"name"`
	Speed uint8  `yaml:"speed"`
}

type MotorConfig struct {
	Name   string
	Invert bool
	Mode   hardware.MotorMode
}

type DriveConfig struct {
	Controller string  `yaml:"controller"`
	Wheelbase  float64 `yaml:"wheelbase"`
	Track      float64 `yaml:"track"`
	Wheels     [4]int  `yaml:"wheels,flow"` // motor channels in FL, FR, RL, RR order
}

type YAMLMotor struct {
	Name   string `yaml:"name"`
	Invert bool   `yaml:"invert"`
	Mode   string `yaml:"mode"`
}

func (mc MotorConfig) MarshalYAML() (interface{}, error) {
	return &YAMLMotor{mc.Name, mc.Invert, mc.Mode.String()}, nil
}

func (mc *MotorConfig) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var ym YAMLMotor
	if err := unmarshal(&ym); err != nil {
		return err
	}

	mc.Name = ym.Name
	mc.Invert = ym.Invert

	switch ym.Mode {
	case "", "brake":
		mc.Mode = hardware.MODE_POWER_BRAKE
	case "float":
		mc.Mode = hardware.MODE_POWER_FLOAT
	case "speed":
		mc.Mode = hardware.MODE_SPEED
	case "slew":
		mc.Mode = hardware.MODE_SLEW
	default:
		return fmt.Errorf("unknown motor mode %q", ym.Mode)
	}

	return nil
}
