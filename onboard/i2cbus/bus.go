package i2cbus

import (
	"errors"
)

const (
	// 7 bit address space, addresses 0x00-0x07 and 0x78-0x7F are reserved
	ADDR_MIN = 0x08
	ADDR_MAX = 0x77
)

// errors
var (
	ERR_BAD_ADDR   = errors.New("address outside the 7 bit device range")
	ERR_SHORT_READ = errors.New("device returned fewer bytes than requested")
)

// I2CBusInterface is the register level access used by device drivers.
// Implementations must serialize transactions internally so a single bus can
// be shared between controllers.
type I2CBusInterface interface {
	ReadReg(addr uint8, reg uint8, buf []byte) error
	WriteReg(addr uint8, reg uint8, data []byte) error
}

func checkAddr(addr uint8) error {
	if addr < ADDR_MIN || addr > ADDR_MAX {
		return ERR_BAD_ADDR
	}
	return nil
}
