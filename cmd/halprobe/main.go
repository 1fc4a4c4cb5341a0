//go:build !(stm32c011 || stm32c031 || stm32c071)

// cmd/halprobe/main.go
//
// Host smoke run of the whole HAL against the simulated chip: clock bring-up,
// pin muxing, blocking and polled bus transfers, an EEPROM behind the bus
// driver, and the watchdog. Prints a PASS/FAIL verdict per section.
package main

import (
	"fmt"
	"os"

	"stm32c0hal-go/chip"
	"stm32c0hal-go/drivers/at24"
	"stm32c0hal-go/gpio"
	"stm32c0hal-go/i2c"
	"stm32c0hal-go/internal/simdev"
	"stm32c0hal-go/iwdg"
	"stm32c0hal-go/rcc"
)

// ---------- Configuration ----------

const (
	targetSysHz = 48_000_000
	busFreqHz   = 400_000
	eepromAddr  = at24.AddressDefault

	scanFrom = 0x08
	scanTo   = 0x77
)

// ---------- Scripted peripherals ----------

// eeprom behaves like an AT24C02 on the simulated bus.
type eeprom struct {
	mem     [256]byte
	cursor  int
	addrSet bool
}

func (e *eeprom) target() *simdev.Target {
	return &simdev.Target{
		Ack: true,
		OnStart: func(read bool, nbytes int) {
			if !read {
				e.addrSet = false
			}
		},
		OnWrite: func(b byte) {
			if !e.addrSet {
				e.cursor = int(b)
				e.addrSet = true
				return
			}
			e.mem[e.cursor] = b
			e.cursor = (e.cursor + 1) % len(e.mem)
		},
		ReadByte: func(i int) byte { return e.mem[(e.cursor+i)%len(e.mem)] },
	}
}

// ---------- Helpers ----------

var failed bool

func verdict(section string, err error) {
	if err != nil {
		failed = true
		fmt.Printf("[FAIL] %s: %v\n", section, err)
		return
	}
	fmt.Printf("[PASS] %s\n", section)
}

func fatal(section string, err error) {
	fmt.Printf("[FAIL] %s: %v\n", section, err)
	os.Exit(1)
}

// ---------- Main ----------

func main() {
	v, brd := chip.NewSim()
	fmt.Println("=== halprobe:", v.Name, "===")

	// Clock tree: PLL up to the ceiling.
	r, err := rcc.Claim(v)
	if err != nil {
		fatal("rcc claim", err)
	}
	clk, err := r.Configure(rcc.Config{TargetHz: targetSysHz, Source: rcc.SourcePLL})
	if err != nil {
		fatal("rcc configure", err)
	}
	fmt.Printf("clocks: sys=%d ahb=%d apb=%d\n", clk.SysHz, clk.AHBHz, clk.APBHz)
	verdict("clock bring-up", nil)

	// LED on PA5, toggled through the set/reset register.
	porta, err := gpio.NewPort(r, v, chip.PortA)
	if err != nil {
		fatal("gpio port A", err)
	}
	pa5, err := porta.Pin(5)
	if err != nil {
		fatal("gpio pin", err)
	}
	led, err := pa5.IntoOutput()
	if err != nil {
		fatal("gpio convert", err)
	}
	for i := 0; i < 3; i++ {
		_ = led.High()
		_ = led.Low()
	}
	verdict("gpio output", nil)

	// System clock out on PA8 for a scope check.
	pa8, err := porta.Pin(8)
	if err != nil {
		fatal("gpio pin", err)
	}
	mcoPin, err := pa8.IntoAlternate(0)
	if err != nil {
		fatal("gpio convert", err)
	}
	verdict("mco", r.EnableMCO(mcoPin, rcc.MCOSysClk, 4))

	// Bus pins, then the controller.
	inst := v.I2C[0]
	portb, err := gpio.NewPort(r, v, chip.PortB)
	if err != nil {
		fatal("gpio port B", err)
	}
	pb6, _ := portb.Pin(6)
	pb7, _ := portb.Pin(7)
	scl, err := pb6.IntoAlternate(inst.AltFunc)
	if err != nil {
		fatal("scl mux", err)
	}
	sda, err := pb7.IntoAlternate(inst.AltFunc)
	if err != nil {
		fatal("sda mux", err)
	}
	d, err := i2c.New(v, inst, scl, sda, i2c.Config{FreqHz: busFreqHz}, r)
	if err != nil {
		fatal("i2c bring-up", err)
	}

	e := &eeprom{}
	brd.I2C[inst.Base].Attach(eepromAddr, e.target())

	// Address scan: only the EEPROM should answer.
	var found []uint16
	for addr := uint16(scanFrom); addr <= scanTo; addr++ {
		if err := d.Write(addr, []byte{0}); err == nil {
			found = append(found, addr)
		}
	}
	fmt.Printf("bus scan: %d device(s) %#v\n", len(found), found)
	if len(found) != 1 || found[0] != eepromAddr {
		failed = true
		fmt.Println("[FAIL] bus scan")
	} else {
		verdict("bus scan", nil)
	}

	// Polled transfer, stepped by hand.
	buf := make([]byte, 4)
	xfer, err := d.Begin(i2c.Request{Addr: eepromAddr, Dir: i2c.DirRead, Buf: buf})
	if err != nil {
		fatal("polled begin", err)
	}
	steps := 0
	for !xfer.Done() {
		phase, err := xfer.Poll()
		steps++
		if err != nil {
			fatal("polled transfer", err)
		}
		fmt.Printf("  poll %d: %v\n", steps, phase)
	}
	verdict("polled transfer", nil)

	// EEPROM driver over the same bus handle.
	dev := at24.New(d)
	note := []byte("halprobe was here")
	if err := dev.WriteAt(0x40, note); err != nil {
		fatal("eeprom write", err)
	}
	back := make([]byte, len(note))
	if err := dev.ReadAt(0x40, back); err != nil {
		fatal("eeprom read", err)
	}
	if string(back) != string(note) {
		failed = true
		fmt.Printf("[FAIL] eeprom verify: %q\n", back)
	} else {
		verdict("eeprom", nil)
	}

	// Watchdog: start one second, feed once.
	w, err := iwdg.Claim(v, r)
	if err != nil {
		fatal("iwdg claim", err)
	}
	if err := w.Start(1000); err != nil {
		fatal("iwdg start", err)
	}
	w.Feed()
	verdict("watchdog", nil)

	if failed {
		fmt.Println("=== halprobe: FAIL ===")
		os.Exit(1)
	}
	fmt.Println("=== halprobe: PASS ===")
}
