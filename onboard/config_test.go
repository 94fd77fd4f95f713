package onboard

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/matrixpi/gomatrix/onboard/hardware"
	"gopkg.in/yaml.v2"
)

const testYaml = `
version: 1
controllers:
  base:
    bus: 1
    addr: 0x08
    timeout: 5
    motors:
      1: {name: front_left, mode: speed}
      2: {name: front_right, mode: speed, invert: true}
    servos:
      1: {name: gripper, speed: 10}
drive:
  controller: base
  wheelbase: 0.21
  track: 0.18
  wheels: [1, 2, 3, 4]
`

func TestRigConfigParsing(t *testing.T) {
	var err error
	var config RigConfig

	Convey("parsing is successful", t, func() {
		err = yaml.Unmarshal([]byte(testYaml), &config)
		So(err, ShouldBeNil)

		Convey("controller settings are set", func() {
			cc := config.Controllers["base"]
			So(cc.Bus, ShouldEqual, 1)
			So(cc.Addr, ShouldEqual, 0x08)
			So(cc.Timeout, ShouldEqual, 5)
		})

		Convey("motor modes parse from their names", func() {
			motors := config.Controllers["base"].Motors
			So(motors[1].Mode, ShouldEqual, hardware.MODE_SPEED)
			So(motors[1].Invert, ShouldBeFalse)
			So(motors[2].Invert, ShouldBeTrue)
		})

		Convey("drive geometry is set", func() {
			So(config.Drive, ShouldNotBeNil)
			So(config.Drive.Controller, ShouldEqual, "base")
			So(config.Drive.Wheels, ShouldResemble, [4]int{1, 2, 3, 4})
		})
	})

	Convey("unknown motor modes are rejected", t, func() {
		bad := `
version: 1
controllers:
  base:
    bus: 1
    addr: 0x08
    motors:
      1: {name: m, mode: warp}
`
		err = yaml.Unmarshal([]byte(bad), &config)
		So(err, ShouldNotBeNil)
		So(err.Error(), ShouldContainSubstring, "warp")
	})

	Convey("mode names round trip through marshal", t, func() {
		out, err := yaml.Marshal(MotorConfig{Name: "m", Mode: hardware.MODE_SLEW})
		So(err, ShouldBeNil)
		So(string(out), ShouldContainSubstring, "mode: slew")
	})
}
