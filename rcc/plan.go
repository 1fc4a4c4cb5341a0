package rcc

import (
	"golang.org/x/exp/slices"

	"stm32c0hal-go/chip"
	"stm32c0hal-go/errcode"
	"stm32c0hal-go/x/mathx"
)

// plan is a fully resolved clock configuration: the frequency it achieves
// and every register field needed to apply it.
type plan struct {
	source Source
	sysHz  uint32

	hsidivBits uint32
	pllMul     uint32
	pllDiv     uint32
	stages     int // divider stages engaged downstream of the oscillator

	swBits   uint32
	ahbDiv   uint32
	hpreBits uint32
	apbDiv   uint32
	ppreBits uint32
}

var hpreBits = map[uint32]uint32{
	1: 0b0000, 2: 0b1000, 4: 0b1001, 8: 0b1010, 16: 0b1011,
	64: 0b1100, 128: 0b1101, 256: 0b1110, 512: 0b1111,
}

var ppreBits = map[uint32]uint32{
	1: 0b000, 2: 0b100, 4: 0b101, 8: 0b110, 16: 0b111,
}

// hsidivBitsFor encodes a legal HSI divider as its CR field value.
func hsidivBitsFor(div uint32) uint32 {
	bits := uint32(0)
	for d := uint32(1); d < div; d <<= 1 {
		bits++
	}
	return bits
}

func unachievable(msg string) error {
	return &errcode.E{C: errcode.ClockUnachievable, Op: "rcc.Configure", Msg: msg, Err: errcode.ClockUnachievable}
}

// makePlan searches the variant's prescaler/multiplier space for the
// combination closest to, and not exceeding, the target. Ties prefer the
// candidate with the fewest downstream divider stages.
func makePlan(c chip.Clocking, cfg Config) (plan, error) {
	if cfg.TargetHz == 0 {
		return plan{}, unachievable("target frequency must be positive")
	}
	if cfg.TargetHz > c.SysCeilingHz {
		return plan{}, unachievable("target exceeds hardware ceiling")
	}

	ahbDiv := cfg.AHBDiv
	if ahbDiv == 0 {
		ahbDiv = 1
	}
	apbDiv := cfg.APBDiv
	if apbDiv == 0 {
		apbDiv = 1
	}
	hpre, ok := hpreBits[ahbDiv]
	if !ok {
		return plan{}, &errcode.E{C: errcode.InvalidRequest, Op: "rcc.Configure", Msg: "illegal AHB divider", Err: errcode.InvalidRequest}
	}
	ppre, ok := ppreBits[apbDiv]
	if !ok {
		return plan{}, &errcode.E{C: errcode.InvalidRequest, Op: "rcc.Configure", Msg: "illegal APB divider", Err: errcode.InvalidRequest}
	}

	var cands []plan
	switch cfg.Source {
	case SourceHSI:
		for _, div := range c.HSIDivs {
			f := c.HSIHz / div
			stages := 0
			if div > 1 {
				stages = 1
			}
			cands = append(cands, plan{
				source: SourceHSI, sysHz: f,
				hsidivBits: hsidivBitsFor(div), stages: stages,
				swBits: 0b000,
			})
		}

	case SourcePLL:
		if !c.HasPLL {
			return plan{}, unachievable("variant has no PLL")
		}
		for mul := c.PLLMulMin; mul <= c.PLLMulMax; mul++ {
			for _, div := range c.PLLDivs {
				f := c.HSIHz * mul / div
				if f > c.SysCeilingHz {
					continue
				}
				stages := 0
				if div > 1 {
					stages = 1
				}
				cands = append(cands, plan{
					source: SourcePLL, sysHz: f,
					pllMul: mul, pllDiv: div, stages: stages,
					swBits: 0b010,
				})
			}
		}

	case SourceHSE, SourceHSEBypass:
		if cfg.HSEHz == 0 || !mathx.Between(cfg.HSEHz, 1, c.HSEMaxHz) {
			return plan{}, unachievable("hse frequency out of range")
		}
		cands = append(cands, plan{source: cfg.Source, sysHz: cfg.HSEHz, swBits: 0b001})

	case SourceLSI:
		cands = append(cands, plan{source: SourceLSI, sysHz: c.LSIHz, swBits: 0b011})

	case SourceLSE:
		cands = append(cands, plan{source: SourceLSE, sysHz: c.LSEHz, swBits: 0b100})

	default:
		return plan{}, unachievable("unsupported clock source")
	}

	// Keep only candidates at or below both the target and the ceiling,
	// then order best-first: highest frequency, then fewest stages.
	fit := cands[:0]
	for _, p := range cands {
		if p.sysHz > 0 && p.sysHz <= cfg.TargetHz && p.sysHz <= c.SysCeilingHz {
			fit = append(fit, p)
		}
	}
	if len(fit) == 0 {
		return plan{}, unachievable("no prescaler/multiplier combination at or below target")
	}
	slices.SortStableFunc(fit, func(a, b plan) int {
		if a.sysHz != b.sysHz {
			if a.sysHz > b.sysHz {
				return -1
			}
			return 1
		}
		return a.stages - b.stages
	})

	best := fit[0]
	best.ahbDiv = ahbDiv
	best.hpreBits = hpre
	best.apbDiv = apbDiv
	best.ppreBits = ppre
	return best, nil
}
