// Package rcc owns the reset and clock control peripheral: it computes and
// applies the system clock configuration and gates peripheral bus clocks.
//
// Configure never falls back silently: the frequencies it returns are the
// achieved ones, and downstream drivers must derive their timing from those,
// never from the requested target.
package rcc

import (
	"stm32c0hal-go/chip"
	"stm32c0hal-go/errcode"
	"stm32c0hal-go/internal/regs"
	"stm32c0hal-go/regmap"
)

// Source selects the oscillator feeding the system clock.
type Source uint8

const (
	SourceHSI Source = iota // internal oscillator through its divider
	SourceHSE               // external crystal
	SourceHSEBypass         // external clock signal, bypassing the driver
	SourcePLL               // internal oscillator multiplied by the PLL
	SourceLSI               // low-speed internal
	SourceLSE               // low-speed external
)

func (s Source) String() string {
	switch s {
	case SourceHSI:
		return "hsi"
	case SourceHSE:
		return "hse"
	case SourceHSEBypass:
		return "hse-bypass"
	case SourcePLL:
		return "pll"
	case SourceLSI:
		return "lsi"
	case SourceLSE:
		return "lse"
	}
	return "src?"
}

// Config is one clock configuration request.
type Config struct {
	// TargetHz is the requested system clock. The achieved clock is the
	// closest frequency the tree can produce at or below it.
	TargetHz uint32
	Source   Source
	// HSEHz is the crystal or bypass frequency; required for HSE sources.
	HSEHz uint32
	// AHBDiv / APBDiv derive the bus clocks from sysclk. Zero or one means
	// not divided. Legal values: AHB 2..512 (powers of two, no 32),
	// APB 2,4,8,16.
	AHBDiv uint32
	APBDiv uint32
}

// Clocks is the set of achieved frequencies after Configure.
type Clocks struct {
	SysHz    uint32
	AHBHz    uint32
	APBHz    uint32
	APBTimHz uint32
	CoreHz   uint32
}

// Number of status polls granted to an oscillator ready flag or the sysclk
// switch readback before the configuration fails as source-unstable.
const readyRetries = 512

// RCC is the claimed clock controller.
type RCC struct {
	v   *chip.Variant
	blk *regmap.Block

	// Clocks holds the frequencies achieved by the last Configure. The
	// zero value (reset state) runs the system from HSI through the
	// largest divider the boot ROM programs; callers are expected to
	// Configure before deriving peripheral timing.
	Clocks Clocks
}

// Claim takes exclusive ownership of the variant's clock controller.
func Claim(v *chip.Variant) (*RCC, error) {
	blk, err := regmap.Claim(v.Backing, "rcc", v.RCCBase)
	if err != nil {
		return nil, err
	}
	return &RCC{v: v, blk: blk}, nil
}

// Release returns the clock controller. Peripherals configured from it keep
// the clocks they captured.
func (r *RCC) Release() { r.blk.Release() }

// Configure computes the best achievable plan for cfg and applies it as one
// atomic register sequence: oscillator bring-up, then a single CFGR write,
// then the switch readback. It returns errcode.ClockUnachievable when no
// combination lands at or below the target under the ceiling, and
// errcode.ClockSourceUnstable when a ready flag or the switch readback does
// not assert within the retry bound.
func (r *RCC) Configure(cfg Config) (Clocks, error) {
	p, err := makePlan(r.v.Clocking, cfg)
	if err != nil {
		return Clocks{}, err
	}

	if err := r.startSource(p); err != nil {
		return Clocks{}, err
	}

	// Atomic application: one CFGR read-modify-write carries the switch
	// and both bus prescalers together.
	clear := uint32(regs.CFGR_SW_Msk | regs.CFGR_HPRE_Msk | regs.CFGR_PPRE_Msk)
	set := p.swBits<<regs.CFGR_SW_Pos |
		p.hpreBits<<regs.CFGR_HPRE_Pos |
		p.ppreBits<<regs.CFGR_PPRE_Pos
	r.blk.Modify(regs.RCC_CFGR, clear, set)

	if !r.waitSWS(p.swBits) {
		return Clocks{}, &errcode.E{C: errcode.ClockSourceUnstable, Op: "rcc.Configure",
			Msg: "sysclk switch to " + cfg.Source.String() + " did not settle", Err: errcode.ClockSourceUnstable}
	}

	ahb := p.sysHz / p.ahbDiv
	apb := ahb / p.apbDiv
	apbTim := apb
	if p.apbDiv > 1 {
		apbTim = apb * 2
	}
	r.Clocks = Clocks{
		SysHz:    p.sysHz,
		AHBHz:    ahb,
		APBHz:    apb,
		APBTimHz: apbTim,
		CoreHz:   ahb / 8,
	}
	return r.Clocks, nil
}

// startSource brings the selected oscillator up and waits for its ready
// flag within the retry bound.
func (r *RCC) startSource(p plan) error {
	unstable := func(what string) error {
		return &errcode.E{C: errcode.ClockSourceUnstable, Op: "rcc.Configure",
			Msg: what + " ready flag did not assert", Err: errcode.ClockSourceUnstable}
	}

	switch p.source {
	case SourceHSI:
		r.blk.SetBits(regs.RCC_CR, regs.CR_HSION)
		if !r.blk.WaitSet(regs.RCC_CR, regs.CR_HSIRDY, readyRetries) {
			return unstable("hsi")
		}
		r.blk.SetField(regs.RCC_CR, regs.CR_HSIDIV_Msk, regs.CR_HSIDIV_Pos, p.hsidivBits)

	case SourceHSE, SourceHSEBypass:
		set := uint32(regs.CR_HSEON)
		if p.source == SourceHSEBypass {
			set |= regs.CR_HSEBYP
		}
		r.blk.SetBits(regs.RCC_CR, set)
		if !r.blk.WaitSet(regs.RCC_CR, regs.CR_HSERDY, readyRetries) {
			return unstable("hse")
		}

	case SourcePLL:
		// The PLL multiplies HSI, so HSI must be stable first.
		r.blk.SetBits(regs.RCC_CR, regs.CR_HSION)
		if !r.blk.WaitSet(regs.RCC_CR, regs.CR_HSIRDY, readyRetries) {
			return unstable("hsi")
		}
		r.blk.SetField(regs.RCC_PLLCFGR, regs.PLLCFGR_PLLN_Msk, regs.PLLCFGR_PLLN_Pos, p.pllMul)
		r.blk.SetField(regs.RCC_PLLCFGR, regs.PLLCFGR_PLLR_Msk, regs.PLLCFGR_PLLR_Pos, p.pllDiv-1)
		r.blk.SetBits(regs.RCC_CR, regs.CR_PLLON)
		if !r.blk.WaitSet(regs.RCC_CR, regs.CR_PLLRDY, readyRetries) {
			return unstable("pll")
		}

	case SourceLSI:
		if err := r.EnableLSI(); err != nil {
			return err
		}

	case SourceLSE:
		r.blk.SetBits(regs.RCC_CSR1, regs.CSR1_LSEON)
		if !r.blk.WaitSet(regs.RCC_CSR1, regs.CSR1_LSERDY, readyRetries) {
			return unstable("lse")
		}
	}
	return nil
}

func (r *RCC) waitSWS(sw uint32) bool {
	for i := 0; i < readyRetries; i++ {
		if r.blk.Field(regs.RCC_CFGR, regs.CFGR_SWS_Msk, regs.CFGR_SWS_Pos) == sw {
			return true
		}
	}
	return false
}

// EnableLSI switches the low-speed internal oscillator on; the watchdog
// needs it running before it can start.
func (r *RCC) EnableLSI() error {
	r.blk.SetBits(regs.RCC_CSR2, regs.CSR2_LSION)
	if !r.blk.WaitSet(regs.RCC_CSR2, regs.CSR2_LSIRDY, readyRetries) {
		return &errcode.E{C: errcode.ClockSourceUnstable, Op: "rcc.EnableLSI",
			Msg: "lsi ready flag did not assert", Err: errcode.ClockSourceUnstable}
	}
	return nil
}

// EnablePort gates the bus clock of a GPIO port on.
func (r *RCC) EnablePort(p chip.PortInfo) {
	r.blk.SetBits(regs.RCC_IOPENR, p.EnableMask)
}

// ResetPort pulses the port's peripheral reset line.
func (r *RCC) ResetPort(p chip.PortInfo) {
	r.blk.SetBits(regs.RCC_IOPRSTR, p.ResetMask)
	r.blk.ClearBits(regs.RCC_IOPRSTR, p.ResetMask)
}

// EnableI2C gates the bus clock of an I2C instance on.
func (r *RCC) EnableI2C(inst chip.I2CInstance) {
	r.blk.SetBits(regs.RCC_APBENR1, inst.EnableMask)
}

// ResetI2C pulses the instance's peripheral reset line, returning its
// internal state machines to idle.
func (r *RCC) ResetI2C(inst chip.I2CInstance) {
	r.blk.SetBits(regs.RCC_APBRSTR1, inst.ResetMask)
	r.blk.ClearBits(regs.RCC_APBRSTR1, inst.ResetMask)
}
