package rcc_test

import (
	"errors"
	"testing"

	"stm32c0hal-go/chip"
	"stm32c0hal-go/errcode"
	"stm32c0hal-go/gpio"
	"stm32c0hal-go/internal/regs"
	"stm32c0hal-go/rcc"
)

func TestEnableMCO(t *testing.T) {
	v, brd := chip.NewSim()
	r, err := rcc.Claim(v)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Release()
	porta, err := gpio.NewPort(r, v, chip.PortA)
	if err != nil {
		t.Fatal(err)
	}
	defer porta.Release()

	pin, err := porta.Pin(8)
	if err != nil {
		t.Fatal(err)
	}

	// A pin still in its reset function is rejected.
	if err := r.EnableMCO(pin, rcc.MCOSysClk, 1); !errors.Is(err, errcode.PinMode) {
		t.Fatalf("analog pin: got %v, want PinMode", err)
	}

	mco, err := pin.IntoAlternate(0)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.EnableMCO(mco, rcc.MCOSysClk, 3); !errors.Is(err, errcode.InvalidRequest) {
		t.Fatalf("non power-of-two divider: got %v, want InvalidRequest", err)
	}
	if err := r.EnableMCO(mco, rcc.MCOSysClk, 4); err != nil {
		t.Fatalf("EnableMCO: %v", err)
	}

	cfgr := brd.B.Peek(v.RCCBase + regs.RCC_CFGR)
	if sel := cfgr & regs.CFGR_MCOSEL_Msk >> regs.CFGR_MCOSEL_Pos; sel != uint32(rcc.MCOSysClk) {
		t.Fatalf("MCOSEL = %b", sel)
	}
	if pre := cfgr & regs.CFGR_MCOPRE_Msk >> regs.CFGR_MCOPRE_Pos; pre != 2 {
		t.Fatalf("MCOPRE = %d, want 2 (divide by 4)", pre)
	}

	r.DisableMCO()
	cfgr = brd.B.Peek(v.RCCBase + regs.RCC_CFGR)
	if cfgr&regs.CFGR_MCOSEL_Msk != 0 {
		t.Fatal("MCOSEL should be cleared")
	}
}

func TestEnableLSCO(t *testing.T) {
	v, brd := chip.NewSim()
	r, err := rcc.Claim(v)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Release()
	porta, err := gpio.NewPort(r, v, chip.PortA)
	if err != nil {
		t.Fatal(err)
	}
	defer porta.Release()

	pin, err := porta.Pin(2)
	if err != nil {
		t.Fatal(err)
	}
	lsco, err := pin.IntoAlternate(0)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.EnableLSCO(lsco, rcc.LSCOLSI); err != nil {
		t.Fatalf("EnableLSCO: %v", err)
	}
	csr1 := brd.B.Peek(v.RCCBase + regs.RCC_CSR1)
	if csr1&regs.CSR1_LSCOEN == 0 {
		t.Fatal("LSCOEN should be set")
	}
	r.DisableLSCO()
	if brd.B.Peek(v.RCCBase+regs.RCC_CSR1)&regs.CSR1_LSCOEN != 0 {
		t.Fatal("LSCOEN should be cleared")
	}
}
