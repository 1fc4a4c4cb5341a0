package rcc

import (
	"stm32c0hal-go/errcode"
	"stm32c0hal-go/internal/regs"
)

// MCOSource selects the clock routed to the microcontroller clock output.
type MCOSource uint32

const (
	MCONone   MCOSource = 0b000
	MCOSysClk MCOSource = 0b001
	MCOHSI    MCOSource = 0b011
	MCOHSE    MCOSource = 0b100
	MCOPLL    MCOSource = 0b101
	MCOLSI    MCOSource = 0b110
	MCOLSE    MCOSource = 0b111
)

// LSCOSource selects the low-speed clock output.
type LSCOSource uint8

const (
	LSCOLSI LSCOSource = iota
	LSCOLSE
)

// AltPin is the slice of a GPIO pin the clock-output routines need: proof
// that the pin has already been muxed into the required alternate function.
// gpio pins satisfy it.
type AltPin interface {
	IsAlternate(af uint8) bool
}

// The clock outputs share alternate function 0 on this family.
const clockOutAltFunc = 0

// EnableMCO routes src, divided by div, to the clock output pin. The pin
// must already be in the clock-output alternate function; div must be a
// power of two up to 128.
func (r *RCC) EnableMCO(pin AltPin, src MCOSource, div uint32) error {
	if !pin.IsAlternate(clockOutAltFunc) {
		return &errcode.E{C: errcode.PinMode, Op: "rcc.EnableMCO",
			Msg: "pin not in clock-output alternate function", Err: errcode.PinMode}
	}
	preBits := uint32(0)
	if div == 0 {
		div = 1
	}
	for d := uint32(1); d < div; d <<= 1 {
		preBits++
	}
	if 1<<preBits != div || div > 128 {
		return &errcode.E{C: errcode.InvalidRequest, Op: "rcc.EnableMCO",
			Msg: "divider must be a power of two up to 128", Err: errcode.InvalidRequest}
	}
	r.blk.SetField(regs.RCC_CFGR, regs.CFGR_MCOPRE_Msk, regs.CFGR_MCOPRE_Pos, preBits)
	r.blk.SetField(regs.RCC_CFGR, regs.CFGR_MCOSEL_Msk, regs.CFGR_MCOSEL_Pos, uint32(src))
	return nil
}

// DisableMCO stops driving the clock output.
func (r *RCC) DisableMCO() {
	r.blk.SetField(regs.RCC_CFGR, regs.CFGR_MCOSEL_Msk, regs.CFGR_MCOSEL_Pos, uint32(MCONone))
}

// EnableLSCO routes the selected low-speed oscillator to the low-speed
// clock output pin. The oscillator is started if it is not running.
func (r *RCC) EnableLSCO(pin AltPin, src LSCOSource) error {
	if !pin.IsAlternate(clockOutAltFunc) {
		return &errcode.E{C: errcode.PinMode, Op: "rcc.EnableLSCO",
			Msg: "pin not in clock-output alternate function", Err: errcode.PinMode}
	}
	switch src {
	case LSCOLSI:
		if err := r.EnableLSI(); err != nil {
			return err
		}
		r.blk.ClearBits(regs.RCC_CSR1, regs.CSR1_LSCOSEL)
	case LSCOLSE:
		r.blk.SetBits(regs.RCC_CSR1, regs.CSR1_LSEON)
		if !r.blk.WaitSet(regs.RCC_CSR1, regs.CSR1_LSERDY, readyRetries) {
			return &errcode.E{C: errcode.ClockSourceUnstable, Op: "rcc.EnableLSCO",
				Msg: "lse ready flag did not assert", Err: errcode.ClockSourceUnstable}
		}
		r.blk.SetBits(regs.RCC_CSR1, regs.CSR1_LSCOSEL)
	}
	r.blk.SetBits(regs.RCC_CSR1, regs.CSR1_LSCOEN)
	return nil
}

// DisableLSCO stops the low-speed clock output.
func (r *RCC) DisableLSCO() {
	r.blk.ClearBits(regs.RCC_CSR1, regs.CSR1_LSCOEN)
}
