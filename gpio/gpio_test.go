package gpio_test

import (
	"errors"
	"testing"

	"stm32c0hal-go/chip"
	"stm32c0hal-go/errcode"
	"stm32c0hal-go/gpio"
	"stm32c0hal-go/internal/regs"
	"stm32c0hal-go/rcc"
)

func newPort(t *testing.T) (*gpio.Port, *chip.Variant, interface {
	Peek(uintptr) uint32
	Poke(uintptr, uint32)
}) {
	t.Helper()
	v, brd := chip.NewSim()
	r, err := rcc.Claim(v)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(r.Release)
	p, err := gpio.NewPort(r, v, chip.PortB)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(p.Release)
	return p, v, brd.B
}

func TestPinStartsAnalogAndConverts(t *testing.T) {
	port, v, mem := newPort(t)

	pin, err := port.Pin(6)
	if err != nil {
		t.Fatal(err)
	}
	if pin.Mode() != gpio.Analog {
		t.Fatalf("reset mode = %v, want analog", pin.Mode())
	}

	out, err := pin.IntoOutput()
	if err != nil {
		t.Fatalf("IntoOutput: %v", err)
	}
	moder := mem.Peek(v.Ports[chip.PortB].Base + regs.GPIO_MODER)
	if bits := moder >> 12 & 0b11; bits != regs.ModerOutput {
		t.Fatalf("MODER[6] = %b, want output", bits)
	}

	// The consumed value is poisoned; only the returned pin is live.
	if _, err := pin.IntoInput(); !errors.Is(err, errcode.PinConsumed) {
		t.Fatalf("consumed pin conversion: got %v, want PinConsumed", err)
	}
	if err := pin.High(); !errors.Is(err, errcode.PinConsumed) {
		t.Fatalf("consumed pin drive: got %v, want PinConsumed", err)
	}

	if err := out.High(); err != nil {
		t.Fatalf("High: %v", err)
	}
	if bsrr := mem.Peek(v.Ports[chip.PortB].Base + regs.GPIO_BSRR); bsrr&(1<<6) == 0 {
		t.Fatal("BSRR set bit not written")
	}
}

func TestIntoAlternateIsIdempotent(t *testing.T) {
	port, v, mem := newPort(t)
	base := v.Ports[chip.PortB].Base

	pin, err := port.Pin(7)
	if err != nil {
		t.Fatal(err)
	}
	af, err := pin.IntoAlternate(6)
	if err != nil {
		t.Fatalf("IntoAlternate: %v", err)
	}
	if !af.IsAlternate(6) || af.IsAlternate(4) {
		t.Fatal("alternate tag wrong")
	}

	moder := mem.Peek(base + regs.GPIO_MODER)
	afrl := mem.Peek(base + regs.GPIO_AFRL)

	// Converting to the state the pin is already in is a legal no-op
	// write: hardware state must be unchanged.
	again, err := af.IntoAlternate(6)
	if err != nil {
		t.Fatalf("repeat conversion: %v", err)
	}
	if mem.Peek(base+regs.GPIO_MODER) != moder || mem.Peek(base+regs.GPIO_AFRL) != afrl {
		t.Fatal("idempotent conversion changed hardware state")
	}
	if !again.IsAlternate(6) {
		t.Fatal("tag lost on repeat conversion")
	}
}

func TestPinHandedOutOnce(t *testing.T) {
	port, _, _ := newPort(t)
	if _, err := port.Pin(3); err != nil {
		t.Fatal(err)
	}
	if _, err := port.Pin(3); !errors.Is(err, errcode.PinInUse) {
		t.Fatalf("second take: got %v, want PinInUse", err)
	}
	if _, err := port.Pin(16); !errors.Is(err, errcode.InvalidRequest) {
		t.Fatalf("out of range: got %v, want InvalidRequest", err)
	}
}

func TestModeChecksOnIO(t *testing.T) {
	port, v, mem := newPort(t)

	pin, err := port.Pin(4)
	if err != nil {
		t.Fatal(err)
	}
	in, err := pin.IntoInput()
	if err != nil {
		t.Fatal(err)
	}
	if err := in.High(); !errors.Is(err, errcode.PinMode) {
		t.Fatalf("drive input pin: got %v, want PinMode", err)
	}

	mem.Poke(v.Ports[chip.PortB].Base+regs.GPIO_IDR, 1<<4)
	level, err := in.Read()
	if err != nil || !level {
		t.Fatalf("Read = %v, %v; want high", level, err)
	}

	out, err := in.IntoOutput()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := out.Read(); !errors.Is(err, errcode.PinMode) {
		t.Fatalf("read output pin: got %v, want PinMode", err)
	}
}

func TestAlternateIndexBounds(t *testing.T) {
	port, _, _ := newPort(t)
	pin, err := port.Pin(9)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := pin.IntoAlternate(12); !errors.Is(err, errcode.InvalidRequest) {
		t.Fatalf("af out of range: got %v, want InvalidRequest", err)
	}
	// The failed conversion must not consume the pin.
	if _, err := pin.IntoAlternate(6); err != nil {
		t.Fatalf("pin should still be live: %v", err)
	}
}
