// Package sim provides a simulated register file for host builds and tests.
// Peripheral behaviour (ready flags asserting, status bits latching) is
// scripted through per-address load and store hooks, the same way the
// integration tests script device responses.
package sim

import "sync"

// LoadHook inspects or rewrites the value returned by a load.
type LoadHook func(addr uintptr, cur uint32) uint32

// StoreHook observes a store and returns the value actually retained.
type StoreHook func(addr uintptr, old, new uint32) uint32

// Backing is an in-memory register file implementing regmap.Backing.
type Backing struct {
	mu     sync.Mutex
	mem    map[uintptr]uint32
	loads  map[uintptr]LoadHook
	stores map[uintptr]StoreHook
}

// New returns an empty register file. Unwritten registers read as zero
// unless a reset value is seeded with Poke.
func New() *Backing {
	return &Backing{
		mem:    make(map[uintptr]uint32),
		loads:  make(map[uintptr]LoadHook),
		stores: make(map[uintptr]StoreHook),
	}
}

func (b *Backing) Load32(addr uintptr) uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	v := b.mem[addr]
	if h := b.loads[addr]; h != nil {
		v = h(addr, v)
		b.mem[addr] = v
	}
	return v
}

func (b *Backing) Store32(addr uintptr, v uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	old := b.mem[addr]
	if h := b.stores[addr]; h != nil {
		v = h(addr, old, v)
	}
	b.mem[addr] = v
}

// OnLoad installs a load hook for addr, replacing any previous hook.
func (b *Backing) OnLoad(addr uintptr, h LoadHook) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.loads[addr] = h
}

// OnStore installs a store hook for addr, replacing any previous hook.
func (b *Backing) OnStore(addr uintptr, h StoreHook) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stores[addr] = h
}

// Poke writes a raw value without invoking hooks (reset values, test setup).
func (b *Backing) Poke(addr uintptr, v uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mem[addr] = v
}

// Peek reads a raw value without invoking hooks.
func (b *Backing) Peek(addr uintptr) uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mem[addr]
}
