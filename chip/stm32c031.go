//go:build stm32c031

package chip

import (
	"stm32c0hal-go/internal/regs"
	"stm32c0hal-go/regmap/mmio"
)

var device = &Variant{
	Name:     "stm32c031",
	Backing:  mmio.Backing{},
	RCCBase:  rccBase,
	IWDGBase: iwdgBase,
	Clocking: Clocking{
		HSIHz:        48_000_000,
		SysCeilingHz: 48_000_000,
		HSEMaxHz:     48_000_000,
		LSIHz:        32_000,
		LSEHz:        32_768,
		HSIDivs:      []uint32{1, 2, 4, 8, 16, 32, 64, 128},
		HasPLL:       false,
		PLLDivs:      []uint32{1},
	},
	Ports: map[PortID]PortInfo{
		PortA: {Base: gpioABase, EnableMask: regs.IOP_A, ResetMask: regs.IOP_A, Pins: 16},
		PortB: {Base: gpioBBase, EnableMask: regs.IOP_B, ResetMask: regs.IOP_B, Pins: 16},
		PortC: {Base: gpioCBase, EnableMask: regs.IOP_C, ResetMask: regs.IOP_C, Pins: 16},
	},
	I2C: []I2CInstance{
		{Name: "i2c1", Base: i2c1Base, EnableMask: regs.APB1_I2C1, ResetMask: regs.APB1_I2C1, AltFunc: 6},
	},
	MaxAltFunc: 7,
}

// Device returns the selected chip variant.
func Device() *Variant { return device }
