package regmap_test

import (
	"errors"
	"testing"

	"stm32c0hal-go/errcode"
	"stm32c0hal-go/regmap"
	"stm32c0hal-go/regmap/sim"
)

const base = 0x4000_5400

func TestClaimIsExclusive(t *testing.T) {
	b := sim.New()

	blk, err := regmap.Claim(b, "i2c1", base)
	if err != nil {
		t.Fatalf("first claim failed: %v", err)
	}
	if _, err := regmap.Claim(b, "i2c1-again", base); !errors.Is(err, errcode.PeriphInUse) {
		t.Fatalf("second claim: got %v, want PeriphInUse", err)
	}

	// A different base on the same backing is a different peripheral.
	other, err := regmap.Claim(b, "i2c2", base+0x400)
	if err != nil {
		t.Fatalf("claiming sibling peripheral: %v", err)
	}
	other.Release()

	// Releasing makes the peripheral claimable again.
	blk.Release()
	blk2, err := regmap.Claim(b, "i2c1", base)
	if err != nil {
		t.Fatalf("re-claim after release: %v", err)
	}
	blk2.Release()
}

func TestClaimsAreScopedToBacking(t *testing.T) {
	b1, b2 := sim.New(), sim.New()
	blk1, err := regmap.Claim(b1, "rcc", 0x4002_1000)
	if err != nil {
		t.Fatalf("claim on b1: %v", err)
	}
	defer blk1.Release()
	blk2, err := regmap.Claim(b2, "rcc", 0x4002_1000)
	if err != nil {
		t.Fatalf("same base on distinct backing should claim: %v", err)
	}
	blk2.Release()
}

func TestRegisterAccessors(t *testing.T) {
	b := sim.New()
	blk, err := regmap.Claim(b, "dev", base)
	if err != nil {
		t.Fatal(err)
	}
	defer blk.Release()

	blk.Write(0x04, 0xFFFF_0000)
	blk.ClearBits(0x04, 0x0F00_0000)
	blk.SetBits(0x04, 0x0000_00FF)
	if got := blk.Read(0x04); got != 0xF0FF_00FF {
		t.Fatalf("read back 0x%08X", got)
	}

	blk.SetField(0x08, 0xFF<<16, 16, 0x3A)
	if got := blk.Field(0x08, 0xFF<<16, 16); got != 0x3A {
		t.Fatalf("field read back 0x%X", got)
	}
}

func TestWaitSetBounded(t *testing.T) {
	b := sim.New()
	blk, err := regmap.Claim(b, "dev", base)
	if err != nil {
		t.Fatal(err)
	}
	defer blk.Release()

	// Flag asserts on the third poll.
	polls := 0
	b.OnLoad(base+0x18, func(_ uintptr, cur uint32) uint32 {
		polls++
		if polls >= 3 {
			return cur | 1<<10
		}
		return cur
	})
	if !blk.WaitSet(0x18, 1<<10, 8) {
		t.Fatal("flag should assert within bound")
	}

	// A flag that never asserts exhausts the bound.
	if blk.WaitSet(0x18, 1<<11, 8) {
		t.Fatal("flag should not assert")
	}
}

func TestReleasedBlockPanics(t *testing.T) {
	b := sim.New()
	blk, err := regmap.Claim(b, "dev", base)
	if err != nil {
		t.Fatal(err)
	}
	blk.Release()
	defer func() {
		if recover() == nil {
			t.Fatal("access to released block should panic")
		}
	}()
	blk.Read(0)
}
