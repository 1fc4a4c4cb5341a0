// Package at24 provides a driver for AT24-style serial EEPROMs behind a
// two-wire bus. Reads use a write of the memory address followed by a
// repeated-start read, so the bus implementation's Tx MUST keep the bus
// between the two when both buffers are given.
//
// Word addressing is single-byte (parts up to 2 kbit); writes are chunked
// to the device page size so they never wrap inside a page.
package at24

import (
	"errors"

	"tinygo.org/x/drivers"
)

// AddressDefault is the 7-bit address with all select pins low.
const AddressDefault = 0x50

var (
	ErrOutOfRange = errors.New("at24: access beyond device size")
	ErrTooLong    = errors.New("at24: buffer exceeds device size")
)

// Config describes the attached part. All fields default to an AT24C02.
type Config struct {
	Address  uint16
	Size     int // bytes
	PageSize int // bytes per write page
}

// Device is an EEPROM behind a drivers.I2C bus.
type Device struct {
	bus  drivers.I2C
	addr uint16
	size int
	page int

	w [1 + 16]byte // address byte plus one page
}

// New creates the device handle. The bus must already be configured.
func New(bus drivers.I2C) *Device {
	return &Device{bus: bus, addr: AddressDefault, size: 256, page: 8}
}

// Configure applies cfg; zero fields keep their defaults.
func (d *Device) Configure(cfg Config) {
	if cfg.Address != 0 {
		d.addr = cfg.Address
	}
	if cfg.Size > 0 {
		d.size = cfg.Size
	}
	if cfg.PageSize > 0 && cfg.PageSize <= len(d.w)-1 {
		d.page = cfg.PageSize
	}
}

// ReadAt fills buf starting at the given memory offset.
func (d *Device) ReadAt(off int, buf []byte) error {
	if off < 0 || off >= d.size {
		return ErrOutOfRange
	}
	if off+len(buf) > d.size {
		return ErrTooLong
	}
	d.w[0] = byte(off)
	return d.bus.Tx(d.addr, d.w[:1], buf)
}

// WriteAt stores buf starting at the given memory offset, split into page
// writes that never cross a page boundary.
func (d *Device) WriteAt(off int, buf []byte) error {
	if off < 0 || off >= d.size {
		return ErrOutOfRange
	}
	if off+len(buf) > d.size {
		return ErrTooLong
	}
	for len(buf) > 0 {
		n := d.page - off%d.page // room left in this page
		if n > len(buf) {
			n = len(buf)
		}
		d.w[0] = byte(off)
		copy(d.w[1:], buf[:n])
		if err := d.bus.Tx(d.addr, d.w[:1+n], nil); err != nil {
			return err
		}
		off += n
		buf = buf[n:]
	}
	return nil
}

// ReadByte returns the byte at off.
func (d *Device) ReadByte(off int) (byte, error) {
	var b [1]byte
	if err := d.ReadAt(off, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// WriteByte stores b at off.
func (d *Device) WriteByte(off int, b byte) error {
	return d.WriteAt(off, []byte{b})
}
