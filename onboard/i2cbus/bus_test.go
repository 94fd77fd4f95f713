package i2cbus

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestCheckAddr(t *testing.T) {
	Convey("reserved addresses are rejected", t, func() {
		So(checkAddr(0x00), ShouldEqual, ERR_BAD_ADDR)
		So(checkAddr(0x07), ShouldEqual, ERR_BAD_ADDR)
		So(checkAddr(0x78), ShouldEqual, ERR_BAD_ADDR)

		Convey("device range is accepted", func() {
			So(checkAddr(ADDR_MIN), ShouldBeNil)
			So(checkAddr(0x08), ShouldBeNil)
			So(checkAddr(ADDR_MAX), ShouldBeNil)
		})
	})
}
