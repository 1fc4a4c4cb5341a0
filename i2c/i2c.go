// Package i2c drives the two-wire bus controller in master mode. The same
// explicit state machine backs both transfer modes: blocking calls spin it
// internally until a terminal phase, non-blocking callers advance it one
// bounded step at a time and schedule the waiting themselves.
//
// A bus handle is built from two pins already muxed to the instance's
// alternate function plus the clock frequencies achieved by rcc.Configure;
// the bus timing is derived from the achieved APB clock at construction and
// never re-read.
package i2c

import (
	"stm32c0hal-go/chip"
	"stm32c0hal-go/errcode"
	"stm32c0hal-go/gpio"
	"stm32c0hal-go/internal/regs"
	"stm32c0hal-go/rcc"
	"stm32c0hal-go/regmap"
)

// Direction of a transfer, from the master's point of view.
type Direction uint8

const (
	DirWrite Direction = iota
	DirRead
)

// Phase is the state machine position of a transfer.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseAddress
	PhaseData
	PhaseComplete
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAddress:
		return "address"
	case PhaseData:
		return "data"
	case PhaseComplete:
		return "complete"
	case PhaseError:
		return "error"
	}
	return "phase?"
}

// Request describes one transfer.
type Request struct {
	Addr   uint16
	TenBit bool
	Dir    Direction
	Buf    []byte
}

// Config tunes the bus. The zero value runs 100 kHz with the analog filter
// on and the default poll bound.
type Config struct {
	// FreqHz is the SCL frequency. Default 100 kHz.
	FreqHz uint32
	// DigitalFilter is the digital noise filter length in bus clock
	// periods, 0..15.
	DigitalFilter uint8
	// DisableAnalogFilter switches the analog filter off.
	DisableAnalogFilter bool
	// PollBound caps status polls per state machine phase before the
	// transfer fails with a timeout. Default 1024.
	PollBound int
}

const defaultPollBound = 1024

func (c *Config) withDefaults() Config {
	out := *c
	if out.FreqHz == 0 {
		out.FreqHz = 100_000
	}
	if out.PollBound == 0 {
		out.PollBound = defaultPollBound
	}
	return out
}

// I2C is an exclusively owned bus controller instance.
type I2C struct {
	inst chip.I2CInstance
	blk  *regmap.Block
	scl  *gpio.Pin
	sda  *gpio.Pin
	cfg  Config

	// busClk is the APB frequency captured at construction; re-running
	// rcc.Configure afterwards does not retune a live bus.
	busClk uint32

	inFlight bool
	faulted  bool
}

// New claims the instance and configures it for cfg. Both pins must already
// be in the instance's alternate function; anything else fails fast with
// errcode.PinMode.
func New(v *chip.Variant, inst chip.I2CInstance, scl, sda *gpio.Pin, cfg Config, r *rcc.RCC) (*I2C, error) {
	if !scl.IsAlternate(inst.AltFunc) || !sda.IsAlternate(inst.AltFunc) {
		return nil, &errcode.E{C: errcode.PinMode, Op: "i2c.New",
			Msg: "scl/sda must be in alternate function " + itoa(inst.AltFunc), Err: errcode.PinMode}
	}

	c := cfg.withDefaults()
	timing, err := timingFor(r.Clocks.APBHz, c.FreqHz)
	if err != nil {
		return nil, err
	}

	blk, err := regmap.Claim(v.Backing, inst.Name, inst.Base)
	if err != nil {
		return nil, err
	}
	r.EnableI2C(inst)
	r.ResetI2C(inst)

	d := &I2C{inst: inst, blk: blk, scl: scl, sda: sda, cfg: c, busClk: r.Clocks.APBHz}

	// The peripheral must be disabled while timing is programmed.
	blk.ClearBits(regs.I2C_CR1, regs.I2C_CR1_PE)
	blk.Write(regs.I2C_TIMINGR, timing)
	cr1 := uint32(regs.I2C_CR1_PE) | uint32(c.DigitalFilter)<<regs.I2C_CR1_DNF_Pos&regs.I2C_CR1_DNF_Msk
	if c.DisableAnalogFilter {
		cr1 |= regs.I2C_CR1_ANFOFF
	}
	blk.Write(regs.I2C_CR1, cr1)
	return d, nil
}

// BusClock returns the APB frequency the timing was derived from.
func (d *I2C) BusClock() uint32 { return d.busClk }

// Release disables the peripheral, returns its register block and hands the
// pins back as inputs.
func (d *I2C) Release() (scl, sda *gpio.Pin, err error) {
	d.blk.ClearBits(regs.I2C_CR1, regs.I2C_CR1_PE)
	d.blk.Release()
	scl, err = d.scl.IntoInput()
	if err != nil {
		return nil, nil, err
	}
	sda, err = d.sda.IntoInput()
	if err != nil {
		return nil, nil, err
	}
	return scl, sda, nil
}

// Recover forces the bus back to idle: the peripheral is disabled, which
// resets its internal state machines, then re-enabled and its latched flags
// cleared. Required after a bus fault, or after abandoning a non-blocking
// transfer mid-phase.
func (d *I2C) Recover() {
	cr1 := d.blk.Read(regs.I2C_CR1)
	d.blk.ClearBits(regs.I2C_CR1, regs.I2C_CR1_PE)
	d.blk.Write(regs.I2C_CR1, cr1|regs.I2C_CR1_PE)
	d.blk.Write(regs.I2C_ICR, regs.I2C_ICR_NACKCF|regs.I2C_ICR_STOPCF|
		regs.I2C_ICR_BERRCF|regs.I2C_ICR_ARLOCF|regs.I2C_ICR_OVRCF)
	d.inFlight = false
	d.faulted = false
}

// validate rejects reserved addresses and empty buffers up front.
func validate(req Request) error {
	if len(req.Buf) == 0 {
		return &errcode.E{C: errcode.InvalidRequest, Op: "i2c", Msg: "empty buffer", Err: errcode.InvalidRequest}
	}
	if len(req.Buf) > 255 {
		return &errcode.E{C: errcode.InvalidRequest, Op: "i2c", Msg: "buffer longer than 255 bytes", Err: errcode.InvalidRequest}
	}
	if req.TenBit {
		if req.Addr > 0x3FF {
			return &errcode.E{C: errcode.InvalidAddress, Op: "i2c", Msg: "10-bit address out of range", Err: errcode.InvalidAddress}
		}
		return nil
	}
	// 0x00..0x07 and 0x78..0x7F are reserved by the protocol.
	if req.Addr < 0x08 || req.Addr > 0x77 {
		return &errcode.E{C: errcode.InvalidAddress, Op: "i2c", Msg: "7-bit address reserved or out of range", Err: errcode.InvalidAddress}
	}
	return nil
}

// start programs CR2 and issues the START condition, moving the engine from
// Idle to the address phase.
func (d *I2C) start(req Request, autoEnd bool) {
	var cr2 uint32
	if req.TenBit {
		cr2 |= uint32(req.Addr) & regs.I2C_CR2_SADD_Msk
		cr2 |= regs.I2C_CR2_ADD10
	} else {
		cr2 |= uint32(req.Addr) << 1 & regs.I2C_CR2_SADD_Msk
	}
	if req.Dir == DirRead {
		cr2 |= regs.I2C_CR2_RD_WRN
	}
	cr2 |= uint32(len(req.Buf)) << regs.I2C_CR2_NBYTES_Pos & regs.I2C_CR2_NBYTES_Msk
	if autoEnd {
		cr2 |= regs.I2C_CR2_AUTOEND
	}
	cr2 |= regs.I2C_CR2_START
	d.blk.Write(regs.I2C_CR2, cr2)
}

// engine is the shared transfer state machine.
type engine struct {
	d     *I2C
	req   Request
	phase Phase
	idx   int
	polls int
	err   error
}

func (d *I2C) newEngine(req Request, autoEnd bool) *engine {
	d.start(req, autoEnd)
	d.inFlight = true
	return &engine{d: d, req: req, phase: PhaseAddress}
}

// fail latches a terminal error, clears the hardware flag that reported it
// and settles the bus bookkeeping. Bus faults additionally poison the
// handle until Recover.
func (e *engine) fail(code errcode.Code, icr uint32) {
	if icr != 0 {
		e.d.blk.Write(regs.I2C_ICR, icr)
	}
	at := e.phase
	e.phase = PhaseError
	e.err = &errcode.E{C: code, Op: "i2c.transfer", Msg: "failed in " + at.String() + " phase", Err: code}
	e.d.inFlight = false
	if code == errcode.BusFault {
		e.d.faulted = true
	}
}

// step advances the state machine by at most one byte or one phase
// transition. It performs exactly one status poll; if the hardware has no
// progress to offer the step counts against the phase's poll bound and the
// transfer eventually fails with BusTimeout.
func (e *engine) step() {
	if e.phase == PhaseComplete || e.phase == PhaseError {
		return
	}

	isr := e.d.blk.Read(regs.I2C_ISR)

	// Hard errors pre-empt everything, in any phase.
	switch {
	case isr&regs.I2C_ISR_BERR != 0:
		e.fail(errcode.BusFault, regs.I2C_ICR_BERRCF)
		return
	case isr&regs.I2C_ISR_ARLO != 0:
		e.fail(errcode.BusArbitrationLost, regs.I2C_ICR_ARLOCF)
		return
	case isr&regs.I2C_ISR_NACKF != 0:
		e.fail(errcode.BusNoAck, regs.I2C_ICR_NACKCF|regs.I2C_ICR_STOPCF)
		return
	}

	switch e.phase {
	case PhaseAddress:
		// The address is acknowledged once the hardware asks for (or
		// offers) the first data byte.
		ready := isr&regs.I2C_ISR_TXIS != 0
		if e.req.Dir == DirRead {
			ready = isr&regs.I2C_ISR_RXNE != 0
		}
		if ready {
			e.phase = PhaseData
			e.polls = 0
			return
		}

	case PhaseData:
		if e.req.Dir == DirWrite && isr&regs.I2C_ISR_TXIS != 0 {
			e.d.blk.Write(regs.I2C_TXDR, uint32(e.req.Buf[e.idx]))
			e.advance()
			return
		}
		if e.req.Dir == DirRead && isr&regs.I2C_ISR_RXNE != 0 {
			e.req.Buf[e.idx] = byte(e.d.blk.Read(regs.I2C_RXDR))
			e.advance()
			return
		}
	}

	e.polls++
	if e.polls >= e.d.cfg.PollBound {
		// The hardware went quiet. Without a latched NACK this is
		// indistinguishable from a dead device, so it gets its own kind.
		e.fail(errcode.BusTimeout, 0)
	}
}

// advance books one transferred byte and completes the transfer when the
// requested count is reached.
func (e *engine) advance() {
	e.idx++
	e.polls = 0
	if e.idx == len(e.req.Buf) {
		e.phase = PhaseComplete
		e.d.inFlight = false
		// The controller raises the STOP itself (AUTOEND); drop the flag
		// so it does not leak into the next transfer.
		e.d.blk.Write(regs.I2C_ICR, regs.I2C_ICR_STOPCF)
	}
}

// beginChecked validates the request and the handle state shared by both
// transfer modes.
func (d *I2C) beginChecked(req Request) error {
	if err := validate(req); err != nil {
		return err
	}
	if d.faulted {
		return &errcode.E{C: errcode.BusNotIdle, Op: "i2c", Msg: "bus fault latched, Recover first", Err: errcode.BusNotIdle}
	}
	if d.inFlight {
		return &errcode.E{C: errcode.BusNotIdle, Op: "i2c", Msg: "transfer in flight, finish or Recover first", Err: errcode.BusNotIdle}
	}
	return nil
}

func itoa(v uint8) string {
	if v >= 10 {
		return string([]byte{'0' + v/10, '0' + v%10})
	}
	return string([]byte{'0' + v})
}
