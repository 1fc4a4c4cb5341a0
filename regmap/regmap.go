// Package regmap wraps raw memory-mapped peripheral registers behind typed
// read/modify/write accessors. A register block is obtained only by claiming
// the peripheral, and at most one live claim exists per (backing, base)
// pair, so two drivers can never hold accessors to the same hardware.
//
// The register layout itself (offsets, bit positions, reset values) is an
// externally supplied contract; see internal/regs.
package regmap

import (
	"sync"

	"stm32c0hal-go/errcode"
)

// Backing is the raw load/store surface behind a register block: real
// memory-mapped I/O on device builds (regmap/mmio) or a simulated register
// file on host builds (regmap/sim).
type Backing interface {
	Load32(addr uintptr) uint32
	Store32(addr uintptr, v uint32)
}

type claimKey struct {
	b    Backing
	base uintptr
}

var claims struct {
	mu sync.Mutex
	m  map[claimKey]string
}

// Claim takes exclusive ownership of the peripheral at base and returns its
// register block. It fails with errcode.PeriphInUse while a previous claim
// is still live.
func Claim(b Backing, name string, base uintptr) (*Block, error) {
	claims.mu.Lock()
	defer claims.mu.Unlock()
	if claims.m == nil {
		claims.m = make(map[claimKey]string)
	}
	k := claimKey{b, base}
	if owner, ok := claims.m[k]; ok {
		return nil, &errcode.E{C: errcode.PeriphInUse, Op: "regmap.Claim", Msg: name + " held by " + owner, Err: errcode.PeriphInUse}
	}
	claims.m[k] = name
	return &Block{b: b, base: base, name: name}, nil
}

// Block is a claimed peripheral's register window. All accessors take byte
// offsets from the peripheral base.
type Block struct {
	b    Backing
	base uintptr
	name string

	released bool
}

// Name returns the claim name the block was created with.
func (r *Block) Name() string { return r.name }

// Base returns the peripheral base address.
func (r *Block) Base() uintptr { return r.base }

// Release returns the peripheral to the pool. The block must not be used
// afterwards; accessors on a released block panic, matching a use-after-move.
func (r *Block) Release() {
	claims.mu.Lock()
	defer claims.mu.Unlock()
	if r.released {
		return
	}
	r.released = true
	delete(claims.m, claimKey{r.b, r.base})
}

func (r *Block) check() {
	if r.released {
		panic("regmap: access to released block " + r.name)
	}
}

// Read returns the register at byte offset off.
func (r *Block) Read(off uintptr) uint32 {
	r.check()
	return r.b.Load32(r.base + off)
}

// Write stores v to the register at byte offset off.
func (r *Block) Write(off uintptr, v uint32) {
	r.check()
	r.b.Store32(r.base+off, v)
}

// Modify performs a read-modify-write: cleared bits first, then set bits.
func (r *Block) Modify(off uintptr, clear, set uint32) {
	r.check()
	v := r.b.Load32(r.base + off)
	r.b.Store32(r.base+off, v&^clear|set)
}

// SetBits sets mask bits in the register at off.
func (r *Block) SetBits(off uintptr, mask uint32) { r.Modify(off, 0, mask) }

// ClearBits clears mask bits in the register at off.
func (r *Block) ClearBits(off uintptr, mask uint32) { r.Modify(off, mask, 0) }

// HasBits reports whether all mask bits are set in the register at off.
func (r *Block) HasBits(off uintptr, mask uint32) bool {
	return r.Read(off)&mask == mask
}

// Field extracts (reg & msk) >> pos.
func (r *Block) Field(off uintptr, msk uint32, pos uint8) uint32 {
	return (r.Read(off) & msk) >> pos
}

// SetField replaces the msk bits with v << pos.
func (r *Block) SetField(off uintptr, msk uint32, pos uint8, v uint32) {
	r.Modify(off, msk, (v<<pos)&msk)
}

// WaitSet polls the register at off until all mask bits are set, giving up
// after spins polls. It reports whether the bits asserted in time.
func (r *Block) WaitSet(off uintptr, mask uint32, spins int) bool {
	for i := 0; i < spins; i++ {
		if r.HasBits(off, mask) {
			return true
		}
	}
	return false
}

// WaitClear polls until all mask bits are clear, bounded by spins.
func (r *Block) WaitClear(off uintptr, mask uint32, spins int) bool {
	for i := 0; i < spins; i++ {
		if r.Read(off)&mask == 0 {
			return true
		}
	}
	return false
}
