// Package chip selects the target chip variant at build time and exports
// its constant set: clock tree limits, port inventory, peripheral bases and
// bus enable bits. Exactly one of the stm32c011 / stm32c031 / stm32c071
// build tags picks a device; setting two declares Device twice and fails
// the build. Without a device tag the build gets a simulated variant backed
// by scripted registers, which is what host tests run against.
package chip

import "stm32c0hal-go/regmap"

// PortID names a GPIO port.
type PortID uint8

const (
	PortA PortID = iota
	PortB
	PortC
)

func (p PortID) String() string {
	switch p {
	case PortA:
		return "gpioa"
	case PortB:
		return "gpiob"
	case PortC:
		return "gpioc"
	}
	return "gpio?"
}

// PortInfo locates one GPIO port and its clock gating bits.
type PortInfo struct {
	Base       uintptr
	EnableMask uint32 // RCC_IOPENR bit
	ResetMask  uint32 // RCC_IOPRSTR bit
	Pins       uint8  // pins 0..Pins-1 exist
}

// I2CInstance locates one I2C peripheral.
type I2CInstance struct {
	Name       string
	Base       uintptr
	EnableMask uint32 // RCC_APBENR1 bit
	ResetMask  uint32 // RCC_APBRSTR1 bit
	AltFunc    uint8  // pin alternate function for SCL/SDA
}

// Clocking is the variant's clock tree description: what the configurator
// searches over and the ceiling it must not exceed.
type Clocking struct {
	HSIHz        uint32
	SysCeilingHz uint32
	HSEMaxHz     uint32
	LSIHz        uint32
	LSEHz        uint32
	HSIDivs      []uint32 // legal HSI divider values, ascending
	HasPLL       bool
	PLLMulMin    uint32
	PLLMulMax    uint32
	PLLDivs      []uint32 // legal PLL output dividers, {1} when none
}

// Variant is the full constant set for one chip, plus the register backing
// all peripheral packages go through.
type Variant struct {
	Name    string
	Backing regmap.Backing

	RCCBase  uintptr
	IWDGBase uintptr

	Clocking   Clocking
	Ports      map[PortID]PortInfo
	I2C        []I2CInstance
	MaxAltFunc uint8
}

// Family-wide peripheral bases.
const (
	rccBase   = 0x4002_1000
	iwdgBase  = 0x4000_3000
	gpioABase = 0x5000_0000
	gpioBBase = 0x5000_0400
	gpioCBase = 0x5000_0800
	i2c1Base  = 0x4000_5400
	i2c2Base  = 0x4000_5800
)
