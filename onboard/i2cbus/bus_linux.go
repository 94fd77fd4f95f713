package i2cbus

import (
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

const i2c_SLAVE = 0x0703

type I2CBus struct {
	fd   int
	dev  string
	addr uint8 // currently selected slave
	lock sync.Mutex
}

// NewI2CBus opens /dev/i2c-<n> for register transactions.
func NewI2CBus(n int) (bus *I2CBus, err error) {
	bus = new(I2CBus)
	bus.dev = fmt.Sprintf("/dev/i2c-%d", n)

	bus.fd, err = unix.Open(bus.dev, unix.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("i2cbus: open %s: %w", bus.dev, err)
	}

	return
}

func (b *I2CBus) Close() error {
	b.lock.Lock()
	defer b.lock.Unlock()
	return unix.Close(b.fd)
}

// connect selects the slave for subsequent read/write calls.
// Must be called with the lock held.
func (b *I2CBus) connect(addr uint8) error {
	if b.addr == addr {
		return nil
	}

	if err := unix.IoctlSetInt(b.fd, i2c_SLAVE, int(addr)); err != nil {
		return fmt.Errorf("i2cbus: select slave 0x%02X on %s: %w", addr, b.dev, err)
	}
	b.addr = addr
	return nil
}

// ReadReg writes the register number then reads len(buf) bytes back,
// inside a single critical section.
func (b *I2CBus) ReadReg(addr uint8, reg uint8, buf []byte) error {
	if err := checkAddr(addr); err != nil {
		return err
	}

	b.lock.Lock()
	defer b.lock.Unlock()

	if err := b.connect(addr); err != nil {
		return err
	}

	if _, err := unix.Write(b.fd, []byte{reg}); err != nil {
		return fmt.Errorf("i2cbus: write reg 0x%02X to 0x%02X: %w", reg, addr, err)
	}

	n, err := unix.Read(b.fd, buf)
	if err != nil {
		return fmt.Errorf("i2cbus: read reg 0x%02X from 0x%02X: %w", reg, addr, err)
	}
	if n != len(buf) {
		return ERR_SHORT_READ
	}

	return nil
}

// WriteReg writes data to consecutive registers starting at reg.
func (b *I2CBus) WriteReg(addr uint8, reg uint8, data []byte) error {
	if err := checkAddr(addr); err != nil {
		return err
	}

	raw := make([]byte, len(data)+1)
	raw[0] = reg
	copy(raw[1:], data)

	b.lock.Lock()
	defer b.lock.Unlock()

	if err := b.connect(addr); err != nil {
		return err
	}

	if _, err := unix.Write(b.fd, raw); err != nil {
		return fmt.Errorf("i2cbus: write reg 0x%02X to 0x%02X: %w", reg, addr, err)
	}

	return nil
}
