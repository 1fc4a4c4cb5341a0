package rcc

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"stm32c0hal-go/chip"
	"stm32c0hal-go/errcode"
	"stm32c0hal-go/internal/regs"
)

// simClocking mirrors the simulated variant: 12 MHz internal oscillator,
// PLL multipliers 2..8, 48 MHz ceiling.
func simClocking() chip.Clocking {
	return chip.Clocking{
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
	}
}

func TestPlanPLLSelectsExactMultiplier(t *testing.T) {
	p, err := makePlan(simClocking(), Config{TargetHz: 48_000_000, Source: SourcePLL})
	if err != nil {
		t.Fatalf("makePlan: %v", err)
	}
	want := plan{source: SourcePLL, sysHz: 48_000_000, pllMul: 4, pllDiv: 1,
		swBits: 0b010, ahbDiv: 1, apbDiv: 1}
	if diff := cmp.Diff(want, p, cmp.AllowUnexported(plan{})); diff != "" {
		t.Fatalf("plan mismatch (-want +got):\n%s", diff)
	}
}

func TestPlanAchievedNeverExceedsTarget(t *testing.T) {
	c := simClocking()
	for _, target := range []uint32{1_000_000, 5_000_000, 11_999_999, 12_000_001,
		23_000_000, 24_000_000, 47_999_999, 48_000_000} {
		for _, src := range []Source{SourceHSI, SourcePLL} {
			p, err := makePlan(c, Config{TargetHz: target, Source: src})
			if errors.Is(err, errcode.ClockUnachievable) {
				continue
			}
			if err != nil {
				t.Fatalf("target %d via %v: %v", target, src, err)
			}
			if p.sysHz > target {
				t.Fatalf("target %d via %v: achieved %d exceeds target", target, src, p.sysHz)
			}
			if p.sysHz > c.SysCeilingHz {
				t.Fatalf("target %d via %v: achieved %d exceeds ceiling", target, src, p.sysHz)
			}
		}
	}
}

func TestPlanAboveCeilingFails(t *testing.T) {
	_, err := makePlan(simClocking(), Config{TargetHz: 64_000_000, Source: SourcePLL})
	if !errors.Is(err, errcode.ClockUnachievable) {
		t.Fatalf("got %v, want ClockUnachievable", err)
	}
	_, err = makePlan(simClocking(), Config{TargetHz: 0, Source: SourceHSI})
	if !errors.Is(err, errcode.ClockUnachievable) {
		t.Fatalf("zero target: got %v, want ClockUnachievable", err)
	}
}

func TestPlanTieBreakPrefersFewerStages(t *testing.T) {
	// 24 MHz is reachable as 12 x 2 (no divider) and 12 x 4 / 2 (one
	// divider stage); the flat path must win.
	c := simClocking()
	c.PLLDivs = []uint32{1, 2}
	p, err := makePlan(c, Config{TargetHz: 24_000_000, Source: SourcePLL})
	if err != nil {
		t.Fatalf("makePlan: %v", err)
	}
	if p.pllMul != 2 || p.pllDiv != 1 {
		t.Fatalf("tie-break chose x%d/%d, want x2/1", p.pllMul, p.pllDiv)
	}
}

func TestPlanWithoutPLL(t *testing.T) {
	c := simClocking()
	c.HasPLL = false
	if _, err := makePlan(c, Config{TargetHz: 24_000_000, Source: SourcePLL}); !errors.Is(err, errcode.ClockUnachievable) {
		t.Fatalf("PLL on PLL-less variant: got %v, want ClockUnachievable", err)
	}
	// HSI dividers still work.
	p, err := makePlan(c, Config{TargetHz: 3_000_000, Source: SourceHSI})
	if err != nil || p.sysHz != 3_000_000 {
		t.Fatalf("hsi/4: plan %+v err %v", p, err)
	}
}

func TestConfigureAppliesAndReportsAchieved(t *testing.T) {
	v, brd := chip.NewSim()
	r, err := Claim(v)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	defer r.Release()

	clocks, err := r.Configure(Config{TargetHz: 48_000_000, Source: SourcePLL, APBDiv: 2})
	if err != nil {
		t.Fatalf("configure: %v", err)
	}
	want := Clocks{SysHz: 48_000_000, AHBHz: 48_000_000, APBHz: 24_000_000,
		APBTimHz: 48_000_000, CoreHz: 6_000_000}
	if diff := cmp.Diff(want, clocks); diff != "" {
		t.Fatalf("clocks mismatch (-want +got):\n%s", diff)
	}

	// The multiplier must be on the wire, and the switch must have landed
	// on the PLL.
	plln := (brd.B.Peek(v.RCCBase+regs.RCC_PLLCFGR) & regs.PLLCFGR_PLLN_Msk) >> regs.PLLCFGR_PLLN_Pos
	if plln != 4 {
		t.Fatalf("PLLN on the wire = %d, want 4", plln)
	}
	cfgr := brd.B.Peek(v.RCCBase + regs.RCC_CFGR)
	if sw := cfgr & regs.CFGR_SW_Msk >> regs.CFGR_SW_Pos; sw != regs.SW_PLL {
		t.Fatalf("SW = %b, want PLL", sw)
	}
}

func TestConfigureSecondRequestIsFresh(t *testing.T) {
	v, _ := chip.NewSim()
	r, err := Claim(v)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Release()

	if _, err := r.Configure(Config{TargetHz: 48_000_000, Source: SourcePLL}); err != nil {
		t.Fatalf("first configure: %v", err)
	}
	clocks, err := r.Configure(Config{TargetHz: 6_000_000, Source: SourceHSI})
	if err != nil {
		t.Fatalf("reconfigure: %v", err)
	}
	if clocks.SysHz != 6_000_000 {
		t.Fatalf("achieved %d, want 6 MHz via hsi/2", clocks.SysHz)
	}
}

func TestConfigureSourceUnstable(t *testing.T) {
	v, brd := chip.NewSim()
	r, err := Claim(v)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Release()

	brd.RCC.HSIStuck = true
	_, err = r.Configure(Config{TargetHz: 12_000_000, Source: SourceHSI})
	if !errors.Is(err, errcode.ClockSourceUnstable) {
		t.Fatalf("stuck oscillator: got %v, want ClockSourceUnstable", err)
	}

	brd.RCC.HSIStuck = false
	brd.RCC.SwitchStuck = true
	_, err = r.Configure(Config{TargetHz: 24_000_000, Source: SourcePLL})
	if !errors.Is(err, errcode.ClockSourceUnstable) {
		t.Fatalf("stuck switch: got %v, want ClockSourceUnstable", err)
	}
}

func TestConfigureReadyDelayWithinBound(t *testing.T) {
	v, brd := chip.NewSim()
	r, err := Claim(v)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Release()

	brd.RCC.ReadyAfter = 100 // well inside readyRetries
	clocks, err := r.Configure(Config{TargetHz: 24_000_000, Source: SourcePLL})
	if err != nil {
		t.Fatalf("configure with slow oscillator: %v", err)
	}
	if clocks.SysHz != 24_000_000 {
		t.Fatalf("achieved %d", clocks.SysHz)
	}
}

func TestClaimIsExclusive(t *testing.T) {
	v, _ := chip.NewSim()
	r, err := Claim(v)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Claim(v); !errors.Is(err, errcode.PeriphInUse) {
		t.Fatalf("second claim: got %v, want PeriphInUse", err)
	}
	r.Release()
}
