package onboard

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	deverrors "github.com/matrixpi/gomatrix/onboard/errors"
	"github.com/matrixpi/gomatrix/onboard/hardware"
	"gopkg.in/yaml.v2"
)

func buildTestRig() *MatrixRig {
	var config RigConfig
	if err := yaml.Unmarshal([]byte(testYaml), &config); err != nil {
		panic(err)
	}

	rig, err := NewRigSimulator(config)
	if err != nil {
		panic(err)
	}
	return rig
}

func TestRigConstruction(t *testing.T) {
	Convey("a configured rig comes up over the simulated bus", t, func() {
		rig := buildTestRig()
		So(rig.Controllers, ShouldContainKey, "base")

		Convey("per channel config reached the hardware", func() {
			ctl := rig.Controllers["base"]

			timeout, err := ctl.Timeout()
			So(err, ShouldBeNil)
			So(timeout, ShouldEqual, 5)

			m, _ := ctl.Motor(2)
			st, err := m.Status()
			So(err, ShouldBeNil)
			So(st.Invert, ShouldBeTrue)
			So(st.Mode, ShouldEqual, hardware.MODE_SPEED)

			s, _ := ctl.Servo(1)
			speed, err := s.Speed()
			So(err, ShouldBeNil)
			So(speed, ShouldEqual, 10)
		})
	})

	Convey("unsupported config versions fail", t, func() {
		_, err := NewRigSimulator(RigConfig{Version: 9})
		So(err, ShouldNotBeNil)
		So(err.Error(), ShouldContainSubstring, "version 9")
	})

	Convey("a drive section naming a missing controller fails", t, func() {
		var config RigConfig
		yaml.Unmarshal([]byte(testYaml), &config)
		config.Drive.Controller = "nope"

		_, err := NewRigSimulator(config)
		So(err, ShouldHaveSameTypeAs, deverrors.ControllerNameError{})
	})
}

func TestRigOperations(t *testing.T) {
	rig := buildTestRig()

	Convey("servo operations route by name and channel", t, func() {
		So(rig.EnableServo("base", 1, true), ShouldBeNil)
		So(rig.SetServoTarget("base", 1, 200), ShouldBeNil)

		state, err := rig.GetState()
		So(err, ShouldBeNil)
		So(state["base"].Servos[0].Enabled, ShouldBeTrue)
		So(state["base"].Servos[0].Target, ShouldEqual, 200)

		Convey("unknown names and channels are typed errors", func() {
			err := rig.SetServoTarget("nope", 1, 0)
			So(err, ShouldHaveSameTypeAs, deverrors.ControllerNameError{})

			err = rig.SetServoTarget("base", 7, 0)
			So(err, ShouldHaveSameTypeAs, deverrors.ChannelRangeError{})
		})
	})

	Convey("motor operations route the same way", t, func() {
		So(rig.SetMotorSpeed("base", 1, -60), ShouldBeNil)

		state, _ := rig.GetState()
		So(state["base"].Motors[0].Speed, ShouldEqual, -60)

		Convey("slews land position on the simulated encoder", func() {
			So(rig.SlewMotor("base", 3, 1440, 50), ShouldBeNil)

			state, _ := rig.GetState()
			So(state["base"].Motors[2].Target, ShouldEqual, 1440)
			So(state["base"].Motors[2].Position, ShouldEqual, 1440)
		})

		Convey("reset clears the channel", func() {
			So(rig.ResetMotor("base", 1), ShouldBeNil)

			state, _ := rig.GetState()
			So(state["base"].Motors[0].Speed, ShouldEqual, 0)
		})
	})

	Convey("drive mixes onto the configured wheels", t, func() {
		So(rig.Drive(50, 0, 0), ShouldBeNil)

		state, _ := rig.GetState()
		for i := 0; i < hardware.NUM_CHANNELS; i++ {
			So(state["base"].Motors[i].Speed, ShouldEqual, 50)
		}

		Convey("stop zeroes everything again", func() {
			So(rig.Stop(), ShouldBeNil)

			state, _ := rig.GetState()
			for i := 0; i < hardware.NUM_CHANNELS; i++ {
				So(state["base"].Motors[i].Speed, ShouldEqual, 0)
			}
		})
	})

	Convey("a rig without a drive section refuses to drive", t, func() {
		var config RigConfig
		yaml.Unmarshal([]byte(testYaml), &config)
		config.Drive = nil

		bare, err := NewRigSimulator(config)
		So(err, ShouldBeNil)
		So(bare.Drive(10, 0, 0), ShouldHaveSameTypeAs, deverrors.NoDriveError{})
	})
}
