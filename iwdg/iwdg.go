// Package iwdg drives the independent watchdog: an LSI-fed downcounter
// that resets the chip unless it is fed in time. Once started it cannot be
// stopped, so the claim on its register block is never released.
package iwdg

import (
	"stm32c0hal-go/chip"
	"stm32c0hal-go/errcode"
	"stm32c0hal-go/internal/regs"
	"stm32c0hal-go/rcc"
	"stm32c0hal-go/regmap"
	"stm32c0hal-go/x/mathx"
)

// Watchdog is the claimed independent watchdog.
type Watchdog struct {
	blk   *regmap.Block
	lsiHz uint32
}

// Claim takes the watchdog peripheral and makes sure its clock source runs.
func Claim(v *chip.Variant, r *rcc.RCC) (*Watchdog, error) {
	if err := r.EnableLSI(); err != nil {
		return nil, err
	}
	blk, err := regmap.Claim(v.Backing, "iwdg", v.IWDGBase)
	if err != nil {
		return nil, err
	}
	return &Watchdog{blk: blk, lsiHz: v.Clocking.LSIHz}, nil
}

// MaxPeriodMillis returns the longest representable timeout for the
// variant's LSI frequency.
func (w *Watchdog) MaxPeriodMillis() uint32 {
	// Largest prescaler is 256.
	return mathx.CeilDiv(uint32(regs.IWDG_RLR_Max+1)*256*1000, w.lsiHz)
}

// Start programs the watchdog for the given timeout and lets the counter
// run. The smallest prescaler that can represent the period is used, for
// the finest feeding granularity.
func (w *Watchdog) Start(periodMillis uint32) error {
	if periodMillis == 0 || periodMillis > w.MaxPeriodMillis() {
		return &errcode.E{C: errcode.InvalidRequest, Op: "iwdg.Start",
			Msg: "period not representable", Err: errcode.InvalidRequest}
	}

	ticks := mathx.CeilDiv(periodMillis*w.lsiHz, 1000)
	prescaler := uint32(0) // divider 4 << prescaler
	for ticks/(4<<prescaler) > regs.IWDG_RLR_Max && prescaler < 6 {
		prescaler++
	}
	reload := mathx.Clamp(mathx.CeilDiv(ticks, 4<<prescaler), 1, regs.IWDG_RLR_Max)

	w.blk.Write(regs.IWDG_KR, regs.IWDG_KEY_START)
	w.blk.Write(regs.IWDG_KR, regs.IWDG_KEY_ACCESS)
	w.blk.Write(regs.IWDG_PR, prescaler)
	w.blk.Write(regs.IWDG_RLR, reload)
	// Hardware clears the status bits when the new values are taken over.
	w.blk.WaitClear(regs.IWDG_SR, 0x7, 1024)
	w.blk.Write(regs.IWDG_KR, regs.IWDG_KEY_FEED)
	return nil
}

// Feed reloads the counter.
func (w *Watchdog) Feed() {
	w.blk.Write(regs.IWDG_KR, regs.IWDG_KEY_FEED)
}
