//go:build !i2c_nonblocking_only

package i2c

import "tinygo.org/x/drivers"

// Blocking-mode surface. Excluded by the i2c_nonblocking_only build tag.

// Compile-time check: the blocking surface satisfies the TinyGo drivers
// bus contract, so existing device drivers run on this controller.
var _ drivers.I2C = (*I2C)(nil)

// Transfer drives req through the state machine by polling status flags
// until it completes or fails; the calling context is occupied for the
// whole transfer.
func (d *I2C) Transfer(req Request) error {
	if err := d.beginChecked(req); err != nil {
		return err
	}
	e := d.newEngine(req, true)
	return e.run()
}

// run spins the engine to a terminal phase. Each phase's waiting is bounded
// by the configured poll count, so the loop always terminates.
func (e *engine) run() error {
	for e.phase != PhaseComplete && e.phase != PhaseError {
		e.step()
	}
	return e.err
}

// Write sends buf to the 7-bit address addr.
func (d *I2C) Write(addr uint16, buf []byte) error {
	return d.Transfer(Request{Addr: addr, Dir: DirWrite, Buf: buf})
}

// Read fills buf from the 7-bit address addr.
func (d *I2C) Read(addr uint16, buf []byte) error {
	return d.Transfer(Request{Addr: addr, Dir: DirRead, Buf: buf})
}

// WriteRead performs a write followed by a read of the same target without
// releasing the bus in between: the write phase runs without AUTOEND and
// the read begins with a repeated start.
func (d *I2C) WriteRead(addr uint16, w, r []byte) error {
	wreq := Request{Addr: addr, Dir: DirWrite, Buf: w}
	if err := d.beginChecked(wreq); err != nil {
		return err
	}
	e := d.newEngine(wreq, false)
	if err := e.run(); err != nil {
		return err
	}
	rreq := Request{Addr: addr, Dir: DirRead, Buf: r}
	if err := validate(rreq); err != nil {
		return err
	}
	e = d.newEngine(rreq, true)
	return e.run()
}

// Tx implements drivers.I2C: write-then-read with a repeated start when
// both buffers are given, otherwise a plain write or read.
func (d *I2C) Tx(addr uint16, w, r []byte) error {
	switch {
	case len(w) > 0 && len(r) > 0:
		return d.WriteRead(addr, w, r)
	case len(w) > 0:
		return d.Write(addr, w)
	case len(r) > 0:
		return d.Read(addr, r)
	}
	return nil
}
