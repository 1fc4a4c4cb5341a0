//go:build stm32c011 || stm32c031 || stm32c071

// Package mmio backs regmap with real memory-mapped I/O on device builds.
// Every access goes through runtime/volatile so the compiler cannot reorder
// or elide register traffic.
package mmio

import (
	"runtime/volatile"
	"unsafe"
)

// Backing performs volatile 32-bit loads and stores at absolute addresses.
// The zero value is ready to use.
type Backing struct{}

func (Backing) Load32(addr uintptr) uint32 {
	return (*volatile.Register32)(unsafe.Pointer(addr)).Get()
}

func (Backing) Store32(addr uintptr, v uint32) {
	(*volatile.Register32)(unsafe.Pointer(addr)).Set(v)
}
