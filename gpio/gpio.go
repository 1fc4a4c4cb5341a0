// Package gpio hands out pins with their current function carried as a
// runtime tag: Analog, Input, Output or AlternateFunction(n). Conversions
// consume the old pin value and return a fresh one — the consumed value is
// poisoned and every later use of it fails — so a driver constructor that
// checks the tag can never be handed a pin in the wrong function without
// noticing. This is the runtime rendition of compile-time type-state.
package gpio

import (
	"stm32c0hal-go/chip"
	"stm32c0hal-go/errcode"
	"stm32c0hal-go/internal/regs"
	"stm32c0hal-go/rcc"
	"stm32c0hal-go/regmap"
)

// Mode is a pin's current function.
type Mode uint8

const (
	Analog Mode = iota
	Input
	Output
	AltFunc // alternate function; the index lives next to the tag
)

func (m Mode) String() string {
	switch m {
	case Analog:
		return "analog"
	case Input:
		return "input"
	case Output:
		return "output"
	case AltFunc:
		return "altfunc"
	}
	return "mode?"
}

// Pull configures the pin's resistor.
type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

// Port owns one GPIO port's register block and hands out each of its pins
// at most once.
type Port struct {
	id    chip.PortID
	info  chip.PortInfo
	blk   *regmap.Block
	maxAF uint8
	taken uint16
}

// NewPort claims the port's register block and gates its bus clock on.
func NewPort(r *rcc.RCC, v *chip.Variant, id chip.PortID) (*Port, error) {
	info, ok := v.Ports[id]
	if !ok {
		return nil, &errcode.E{C: errcode.InvalidRequest, Op: "gpio.NewPort",
			Msg: "variant has no port " + id.String(), Err: errcode.InvalidRequest}
	}
	blk, err := regmap.Claim(v.Backing, id.String(), info.Base)
	if err != nil {
		return nil, err
	}
	r.EnablePort(info)
	return &Port{id: id, info: info, blk: blk, maxAF: v.MaxAltFunc}, nil
}

// Release returns the port's register block. Pins handed out from this
// port must not be used afterwards.
func (p *Port) Release() { p.blk.Release() }

// ID returns the port's identifier.
func (p *Port) ID() chip.PortID { return p.id }

// Pin hands out pin n exactly once. Its initial tag is read back from the
// hardware function-select register, so a freshly reset chip yields pins
// tagged Analog.
func (p *Port) Pin(n uint8) (*Pin, error) {
	if n >= p.info.Pins {
		return nil, &errcode.E{C: errcode.InvalidRequest, Op: "gpio.Pin",
			Msg: "pin index out of range", Err: errcode.InvalidRequest}
	}
	if p.taken&(1<<n) != 0 {
		return nil, &errcode.E{C: errcode.PinInUse, Op: "gpio.Pin",
			Msg: p.id.String() + " pin already handed out", Err: errcode.PinInUse}
	}
	p.taken |= 1 << n

	pin := &Pin{port: p, n: n}
	switch p.blk.Field(regs.GPIO_MODER, 0b11<<(2*uint32(n)), uint8(2*n)) {
	case regs.ModerInput:
		pin.mode = Input
	case regs.ModerOutput:
		pin.mode = Output
	case regs.ModerAltFn:
		pin.mode = AltFunc
		pin.af = p.readAF(n)
	default:
		pin.mode = Analog
	}
	return pin, nil
}

func (p *Port) readAF(n uint8) uint8 {
	off := uintptr(regs.GPIO_AFRL)
	if n >= 8 {
		off = regs.GPIO_AFRH
		n -= 8
	}
	return uint8(p.blk.Field(off, 0xF<<(4*uint32(n)), 4*n))
}

// Pin is one physical pin in a known function. Conversion methods consume
// the receiver; the returned value is the only live handle afterwards.
type Pin struct {
	port *Port
	n    uint8
	mode Mode
	af   uint8

	consumed bool
}

// Port returns the owning port's identifier.
func (p *Pin) Port() chip.PortID { return p.port.id }

// Index returns the pin number within its port.
func (p *Pin) Index() uint8 { return p.n }

// Mode returns the pin's current function tag.
func (p *Pin) Mode() Mode { return p.mode }

// IsAlternate reports whether the pin is live and muxed to alternate
// function af.
func (p *Pin) IsAlternate(af uint8) bool {
	return !p.consumed && p.mode == AltFunc && p.af == af
}

func (p *Pin) use(op string) error {
	if p.consumed {
		return &errcode.E{C: errcode.PinConsumed, Op: op,
			Msg: "pin value was consumed by a conversion", Err: errcode.PinConsumed}
	}
	return nil
}

// convert performs the single function-select write and moves the pin to a
// fresh value. Converting to the current function is a legal idempotent
// write.
func (p *Pin) convert(op string, mode Mode, af uint8) (*Pin, error) {
	if err := p.use(op); err != nil {
		return nil, err
	}
	if mode == AltFunc {
		if af > p.port.maxAF {
			return nil, &errcode.E{C: errcode.InvalidRequest, Op: op,
				Msg: "alternate function index out of range", Err: errcode.InvalidRequest}
		}
		off := uintptr(regs.GPIO_AFRL)
		n := p.n
		if n >= 8 {
			off = regs.GPIO_AFRH
			n -= 8
		}
		p.port.blk.SetField(off, 0xF<<(4*uint32(n)), 4*n, uint32(af))
	}

	var bits uint32
	switch mode {
	case Input:
		bits = regs.ModerInput
	case Output:
		bits = regs.ModerOutput
	case AltFunc:
		bits = regs.ModerAltFn
	case Analog:
		bits = regs.ModerAnalog
	}
	p.port.blk.SetField(regs.GPIO_MODER, 0b11<<(2*uint32(p.n)), 2*p.n, bits)

	p.consumed = true
	return &Pin{port: p.port, n: p.n, mode: mode, af: af}, nil
}

// IntoInput consumes the pin and returns it as a floating input.
func (p *Pin) IntoInput() (*Pin, error) { return p.convert("gpio.IntoInput", Input, 0) }

// IntoOutput consumes the pin and returns it as a push-pull output.
func (p *Pin) IntoOutput() (*Pin, error) { return p.convert("gpio.IntoOutput", Output, 0) }

// IntoAnalog consumes the pin and returns it in analog mode.
func (p *Pin) IntoAnalog() (*Pin, error) { return p.convert("gpio.IntoAnalog", Analog, 0) }

// IntoAlternate consumes the pin and returns it muxed to alternate
// function af.
func (p *Pin) IntoAlternate(af uint8) (*Pin, error) {
	return p.convert("gpio.IntoAlternate", AltFunc, af)
}

// SetPull configures the pin's resistor without changing its function.
func (p *Pin) SetPull(pull Pull) error {
	if err := p.use("gpio.SetPull"); err != nil {
		return err
	}
	p.port.blk.SetField(regs.GPIO_PUPDR, 0b11<<(2*uint32(p.n)), 2*p.n, uint32(pull))
	return nil
}

// High drives an output pin high through the set/reset register.
func (p *Pin) High() error {
	if err := p.outputOnly("gpio.High"); err != nil {
		return err
	}
	p.port.blk.Write(regs.GPIO_BSRR, 1<<uint32(p.n))
	return nil
}

// Low drives an output pin low.
func (p *Pin) Low() error {
	if err := p.outputOnly("gpio.Low"); err != nil {
		return err
	}
	p.port.blk.Write(regs.GPIO_BSRR, 1<<(16+uint32(p.n)))
	return nil
}

func (p *Pin) outputOnly(op string) error {
	if err := p.use(op); err != nil {
		return err
	}
	if p.mode != Output {
		return &errcode.E{C: errcode.PinMode, Op: op, Msg: "pin is " + p.mode.String() + ", want output", Err: errcode.PinMode}
	}
	return nil
}

// Read samples an input pin's level.
func (p *Pin) Read() (bool, error) {
	if err := p.use("gpio.Read"); err != nil {
		return false, err
	}
	if p.mode != Input {
		return false, &errcode.E{C: errcode.PinMode, Op: "gpio.Read", Msg: "pin is " + p.mode.String() + ", want input", Err: errcode.PinMode}
	}
	return p.port.blk.HasBits(regs.GPIO_IDR, 1<<uint32(p.n)), nil
}
