package onboard

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/matrixpi/gomatrix/onboard/hardware"
	"github.com/matrixpi/gomatrix/onboard/i2cbus"
)

const (
	BATTERY_DELTA    = 2
	BATTERY_INTERVAL = time.Second / 2

	simBatteryLevel = 0xCE // ~8.2V
)

// SimBus emulates Matrix controllers behind an in-memory register file so
// the rig can run without hardware.
type SimBus struct {
	lock sync.Mutex
	regs map[uint8]*[0x80]byte
}

func NewSimBus(addrs ...uint8) (bus *SimBus) {
	bus = &SimBus{
		regs: make(map[uint8]*[0x80]byte),
	}

	for _, addr := range addrs {
		file := new([0x80]byte)
		copy(file[hardware.REG_VERSION:], "V1.0    ")
		copy(file[hardware.REG_MANUFACTURER:], hardware.MANUFACTURER_ID)
		copy(file[hardware.REG_TYPE:], hardware.CONTROLLER_TYPE)
		file[hardware.REG_BATTERY] = simBatteryLevel
		bus.regs[addr] = file
	}

	go bus.update()
	return
}

func (b *SimBus) ReadReg(addr uint8, reg uint8, buf []byte) error {
	b.lock.Lock()
	defer b.lock.Unlock()

	file, ok := b.regs[addr]
	if !ok {
		return errors.New("simulated bus: no device at address")
	}

	copy(buf, file[reg:int(reg)+len(buf)])
	return nil
}

func (b *SimBus) WriteReg(addr uint8, reg uint8, data []byte) error {
	b.lock.Lock()
	defer b.lock.Unlock()

	file, ok := b.regs[addr]
	if !ok {
		return errors.New("simulated bus: no device at address")
	}

	copy(file[reg:], data)

	switch {
	case reg == hardware.REG_START && len(data) > 0 && data[0] != 0:
		b.start(file)

	default:
		for i := 0; i < hardware.NUM_CHANNELS; i++ {
			base := hardware.MotorRegs[i]
			if reg != base+hardware.MOTOR_MODE {
				continue
			}

			mode := file[reg]
			if mode&hardware.MODE_RESET != 0 {
				// reset clears the whole channel block
				for off := 0; off <= hardware.MOTOR_MODE; off++ {
					file[int(base)+off] = 0
				}
			} else if mode&hardware.MODE_MASK == uint8(hardware.MODE_SLEW) && mode&hardware.MODE_PENDING == 0 {
				b.slew(file, base)
			}
		}
	}

	return nil
}

// start releases pending channels and completes their slews.
func (b *SimBus) start(file *[0x80]byte) {
	file[hardware.REG_START] = 0

	for i := 0; i < hardware.NUM_CHANNELS; i++ {
		base := hardware.MotorRegs[i]
		mode := file[base+hardware.MOTOR_MODE]
		if mode&hardware.MODE_PENDING == 0 {
			continue
		}

		file[base+hardware.MOTOR_MODE] = mode &^ hardware.MODE_PENDING
		if mode&hardware.MODE_MASK == uint8(hardware.MODE_SLEW) {
			b.slew(file, base)
		}
	}
}

// slew completes instantly: the encoder jumps to the target.
func (b *SimBus) slew(file *[0x80]byte, base uint8) {
	copy(file[base+hardware.MOTOR_POSITION:base+hardware.MOTOR_POSITION+4],
		file[base+hardware.MOTOR_TARGET:base+hardware.MOTOR_TARGET+4])
	file[base+hardware.MOTOR_MODE] &^= hardware.MODE_BUSY
}

func (b *SimBus) update() {
	for {
		b.lock.Lock()
		for _, file := range b.regs {
			delta := rand.Intn(BATTERY_DELTA*2+1) - BATTERY_DELTA
			file[hardware.REG_BATTERY] = uint8(int(simBatteryLevel) + delta)
		}
		b.lock.Unlock()
		time.Sleep(BATTERY_INTERVAL)
	}
}

// NewRigSimulator builds a rig over simulated buses, one per configured bus
// number, seeded with the controllers the config places on it.
func NewRigSimulator(config RigConfig) (*MatrixRig, error) {
	addrs := make(map[int][]uint8)
	for _, cc := range config.Controllers {
		addrs[cc.Bus] = append(addrs[cc.Bus], cc.Addr)
	}

	return newRig(config, func(n int) (i2cbus.I2CBusInterface, error) {
		return NewSimBus(addrs[n]...), nil
	})
}
