//go:build !(stm32c011 || stm32c031 || stm32c071)

package chip

import (
	"sync"

	"stm32c0hal-go/internal/regs"
	"stm32c0hal-go/internal/simdev"
)

var (
	simOnce  sync.Once
	simDev   *Variant
	simBoard *simdev.Board
)

// Device returns the process-wide simulated variant. Tests that need private
// hardware state should call NewSim instead.
func Device() *Variant {
	simOnce.Do(func() {
		simDev, simBoard = NewSim()
	})
	return simDev
}

// Board exposes the scripted hardware behind Device.
func Board() *simdev.Board {
	Device()
	return simBoard
}

// NewSim builds a fresh simulated variant with its own register file and
// scripted RCC/I2C models. The simulated chip runs a 12 MHz internal
// oscillator with a PLL multiplier range of [2,8] and a 48 MHz ceiling, and
// carries two I2C peripherals.
func NewSim() (*Variant, *simdev.Board) {
	brd := simdev.NewBoard(rccBase, i2c1Base, i2c2Base)

	// Pins reset to analog, as on the real parts.
	for _, base := range []uintptr{gpioABase, gpioBBase, gpioCBase} {
		brd.B.Poke(base+regs.GPIO_MODER, 0xFFFF_FFFF)
	}

	v := &Variant{
		Name:     "sim",
		Backing:  brd.B,
		RCCBase:  rccBase,
		IWDGBase: iwdgBase,
		Clocking: Clocking{
			HSIHz:        12_000_000,
			SysCeilingHz: 48_000_000,
			HSEMaxHz:     48_000_000,
			LSIHz:        32_000,
			LSEHz:        32_768,
			HSIDivs:      []uint32{1, 2, 4, 8, 16, 32, 64, 128},
			HasPLL:       true,
			PLLMulMin:    2,
			PLLMulMax:    8,
			PLLDivs:      []uint32{1},
		},
		Ports: map[PortID]PortInfo{
			PortA: {Base: gpioABase, EnableMask: regs.IOP_A, ResetMask: regs.IOP_A, Pins: 16},
			PortB: {Base: gpioBBase, EnableMask: regs.IOP_B, ResetMask: regs.IOP_B, Pins: 16},
			PortC: {Base: gpioCBase, EnableMask: regs.IOP_C, ResetMask: regs.IOP_C, Pins: 16},
		},
		I2C: []I2CInstance{
			{Name: "i2c1", Base: i2c1Base, EnableMask: regs.APB1_I2C1, ResetMask: regs.APB1_I2C1, AltFunc: 6},
			{Name: "i2c2", Base: i2c2Base, EnableMask: regs.APB1_I2C2, ResetMask: regs.APB1_I2C2, AltFunc: 6},
		},
		MaxAltFunc: 7,
	}
	return v, brd
}
