// Package simdev scripts peripheral behaviour on top of a regmap/sim
// register file: oscillator ready flags, the sysclk switch readback, and an
// I2C engine with attachable target devices. Host builds run the whole HAL
// against these models; tests use the knobs (stuck oscillators, withheld
// ACKs, injected bus faults) to drive the error paths.
package simdev

import (
	"sync"

	"stm32c0hal-go/internal/regs"
	"stm32c0hal-go/regmap/sim"
)

// Board bundles a register file with the models installed on it.
type Board struct {
	B   *sim.Backing
	RCC *RCCModel
	I2C map[uintptr]*I2CModel
}

// NewBoard builds a register file with an RCC model at rccBase and one I2C
// model per base in i2cBases.
func NewBoard(rccBase uintptr, i2cBases ...uintptr) *Board {
	b := sim.New()
	brd := &Board{
		B:   b,
		RCC: newRCCModel(b, rccBase),
		I2C: make(map[uintptr]*I2CModel, len(i2cBases)),
	}
	for _, base := range i2cBases {
		brd.I2C[base] = newI2CModel(b, base)
	}
	return brd
}

// ---------------------------------- RCC --------------------------------------

// RCCModel asserts oscillator ready flags once the matching enable bit is
// written and mirrors SW into SWS, unless told to misbehave.
type RCCModel struct {
	mu sync.Mutex

	// Stuck oscillators never assert their ready flag, which the clock
	// configurator must surface as a source-unstable error.
	HSIStuck bool
	HSEStuck bool
	PLLStuck bool
	LSIStuck bool
	LSEStuck bool

	// SwitchStuck freezes SWS so the post-write readback never matches.
	SwitchStuck bool

	// ReadyAfter delays ready-flag assertion by that many status polls,
	// exercising the bounded retry loop. Zero asserts immediately.
	ReadyAfter int

	polls int
}

func newRCCModel(b *sim.Backing, base uintptr) *RCCModel {
	m := &RCCModel{}

	ready := func(v uint32, on, rdy uint32, stuck bool) uint32 {
		if v&on == 0 || stuck {
			return v &^ rdy
		}
		if m.polls < m.ReadyAfter {
			return v &^ rdy
		}
		return v | rdy
	}

	b.OnLoad(base+regs.RCC_CR, func(_ uintptr, cur uint32) uint32 {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.polls++
		cur = ready(cur, regs.CR_HSION, regs.CR_HSIRDY, m.HSIStuck)
		cur = ready(cur, regs.CR_HSEON, regs.CR_HSERDY, m.HSEStuck)
		cur = ready(cur, regs.CR_PLLON, regs.CR_PLLRDY, m.PLLStuck)
		return cur
	})
	b.OnLoad(base+regs.RCC_CSR1, func(_ uintptr, cur uint32) uint32 {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.polls++
		return ready(cur, regs.CSR1_LSEON, regs.CSR1_LSERDY, m.LSEStuck)
	})
	b.OnLoad(base+regs.RCC_CSR2, func(_ uintptr, cur uint32) uint32 {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.polls++
		return ready(cur, regs.CSR2_LSION, regs.CSR2_LSIRDY, m.LSIStuck)
	})
	b.OnStore(base+regs.RCC_CFGR, func(_ uintptr, old, new uint32) uint32 {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.SwitchStuck {
			// Keep the previous SWS bits, accept the rest.
			return new&^regs.CFGR_SWS_Msk | old&regs.CFGR_SWS_Msk
		}
		sw := (new & regs.CFGR_SW_Msk) >> regs.CFGR_SW_Pos
		return new&^regs.CFGR_SWS_Msk | sw<<regs.CFGR_SWS_Pos
	})
	return m
}

// ---------------------------------- I2C --------------------------------------

// Target is a device attached to a simulated bus.
type Target struct {
	// Ack controls the address-phase acknowledge. A target that never
	// acknowledges produces NoAck on the master side.
	Ack bool

	// OnStart is invoked when a transaction addresses the target, before
	// any byte moves. Stateful devices reset their byte cursor here.
	OnStart func(read bool, nbytes int)

	// OnWrite receives each byte the master sends. Nil captures into Wrote.
	OnWrite func(b byte)
	// ReadByte supplies the i-th byte of the current read phase. Nil reads
	// as 0xFF (released bus).
	ReadByte func(i int) byte

	Wrote []byte
}

func (t *Target) write(b byte) {
	if t.OnWrite != nil {
		t.OnWrite(b)
		return
	}
	t.Wrote = append(t.Wrote, b)
}

func (t *Target) read(i int) byte {
	if t.ReadByte != nil {
		return t.ReadByte(i)
	}
	return 0xFF
}

// I2CModel emulates the peripheral's master-mode register behaviour: START
// latches a transaction from CR2, ISR flags are computed per poll, TXDR and
// RXDR move one byte at a time.
type I2CModel struct {
	mu sync.Mutex

	targets map[uint16]*Target

	// RespondAfter withholds TXIS/RXNE for that many ISR polls per byte,
	// so non-blocking callers observe genuinely pending steps.
	RespondAfter int

	// Error injection: fire ARLO or BERR when the transfer reaches the
	// given data byte index. Negative means never.
	ArloAtByte int
	BerrAtByte int

	// latched flags, cleared through ICR
	latched uint32

	active  bool
	addr    uint16
	read    bool
	nbytes  int
	autoend bool
	done    int // data bytes moved
	target  *Target
	nacked  bool
	polls   int
	stopped bool
}

func newI2CModel(b *sim.Backing, base uintptr) *I2CModel {
	m := &I2CModel{
		targets:    make(map[uint16]*Target),
		ArloAtByte: -1,
		BerrAtByte: -1,
	}

	b.OnStore(base+regs.I2C_CR2, func(_ uintptr, _, new uint32) uint32 {
		m.mu.Lock()
		defer m.mu.Unlock()
		if new&regs.I2C_CR2_START != 0 {
			m.begin(new)
		}
		if new&regs.I2C_CR2_STOP != 0 {
			m.stopped = true
			m.active = false
		}
		// START and STOP self-clear in hardware.
		return new &^ (regs.I2C_CR2_START | regs.I2C_CR2_STOP)
	})
	b.OnLoad(base+regs.I2C_ISR, func(_ uintptr, cur uint32) uint32 {
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.isr()
	})
	b.OnStore(base+regs.I2C_ICR, func(_ uintptr, old, new uint32) uint32 {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.latched &^= new
		return 0
	})
	b.OnStore(base+regs.I2C_TXDR, func(_ uintptr, _, new uint32) uint32 {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.active && !m.read && m.target != nil && m.done < m.nbytes {
			m.target.write(byte(new))
			m.done++
			m.polls = 0
		}
		return new
	})
	b.OnLoad(base+regs.I2C_RXDR, func(_ uintptr, _ uint32) uint32 {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.active && m.read && m.target != nil && m.done < m.nbytes {
			v := uint32(m.target.read(m.done))
			m.done++
			m.polls = 0
			return v
		}
		return 0xFF
	})
	return m
}

// Attach connects a target device at the given 7- or 10-bit address.
func (m *I2CModel) Attach(addr uint16, t *Target) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.targets[addr] = t
}

func (m *I2CModel) begin(cr2 uint32) {
	m.active = true
	m.nacked = false
	m.stopped = false
	m.done = 0
	m.polls = 0
	m.latched = 0
	m.read = cr2&regs.I2C_CR2_RD_WRN != 0
	m.autoend = cr2&regs.I2C_CR2_AUTOEND != 0
	m.nbytes = int((cr2 & regs.I2C_CR2_NBYTES_Msk) >> regs.I2C_CR2_NBYTES_Pos)
	sadd := cr2 & regs.I2C_CR2_SADD_Msk
	if cr2&regs.I2C_CR2_ADD10 != 0 {
		m.addr = uint16(sadd)
	} else {
		m.addr = uint16(sadd >> 1 & 0x7F)
	}
	m.target = m.targets[m.addr]
	if m.target == nil || !m.target.Ack {
		m.nacked = true
		return
	}
	if m.target.OnStart != nil {
		m.target.OnStart(m.read, m.nbytes)
	}
}

// isr computes the status word for one poll. Caller holds the lock.
func (m *I2CModel) isr() uint32 {
	v := m.latched | regs.I2C_ISR_TXE
	if !m.active {
		if m.stopped {
			v |= regs.I2C_ISR_STOPF
			m.latched |= regs.I2C_ISR_STOPF
		}
		return v
	}
	v |= regs.I2C_ISR_BUSY

	if m.nacked {
		// Address phase failed: NACKF with the closing STOPF, both latched
		// until cleared through ICR.
		m.latched |= regs.I2C_ISR_NACKF | regs.I2C_ISR_STOPF
		m.active = false
		return v | m.latched
	}

	if m.ArloAtByte >= 0 && m.done >= m.ArloAtByte {
		m.latched |= regs.I2C_ISR_ARLO
		m.active = false
		return v | m.latched
	}
	if m.BerrAtByte >= 0 && m.done >= m.BerrAtByte {
		m.latched |= regs.I2C_ISR_BERR
		m.active = false
		return v | m.latched
	}

	m.polls++
	if m.polls <= m.RespondAfter {
		return v
	}

	if m.done < m.nbytes {
		if m.read {
			return v | regs.I2C_ISR_RXNE
		}
		return v | regs.I2C_ISR_TXIS
	}

	// All bytes moved.
	if m.autoend {
		m.latched |= regs.I2C_ISR_STOPF
		m.active = false
		return v | m.latched
	}
	return v | regs.I2C_ISR_TC
}
