package i2c

import (
	"stm32c0hal-go/errcode"
	"stm32c0hal-go/x/mathx"
)

// timingFor derives the TIMINGR word from the achieved bus clock and the
// requested SCL frequency: the smallest prescaler whose SCL low/high counts
// fit their 8-bit fields wins, the data setup/hold fields scale with the
// period.
func timingFor(busHz, sclHz uint32) (uint32, error) {
	if busHz == 0 || sclHz == 0 || sclHz > busHz/4 {
		return 0, &errcode.E{C: errcode.InvalidRequest, Op: "i2c.New",
			Msg: "scl frequency not derivable from bus clock", Err: errcode.InvalidRequest}
	}
	for presc := uint32(0); presc <= 15; presc++ {
		tick := busHz / (presc + 1)
		period := mathx.RoundDiv(tick, sclHz)
		if period < 8 {
			// Prescaler too coarse for this speed.
			break
		}
		// Low/high halves, minus the fixed synchronisation cycles.
		scll := period/2 - 1
		sclh := period - period/2 - 3
		if scll > 0xFF || sclh > 0xFF {
			continue
		}
		scldel := mathx.Clamp(period/16, 1, 15)
		sdadel := mathx.Clamp(period/32, 0, 15)
		return presc<<28 | scldel<<20 | sdadel<<16 | sclh<<8 | scll, nil
	}
	return 0, &errcode.E{C: errcode.InvalidRequest, Op: "i2c.New",
		Msg: "no prescaler setting reaches the requested scl frequency", Err: errcode.InvalidRequest}
}
