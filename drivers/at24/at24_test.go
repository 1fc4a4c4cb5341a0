package at24

import (
	"bytes"
	"errors"
	"testing"
)

// fakeBus records every transaction and emulates the EEPROM's word-address
// cursor.
type fakeBus struct {
	mem    [256]byte
	cursor int
	txs    []fakeTx
	err    error
}

type fakeTx struct {
	addr uint16
	w, r int // byte counts
}

func (f *fakeBus) Tx(addr uint16, w, r []byte) error {
	f.txs = append(f.txs, fakeTx{addr: addr, w: len(w), r: len(r)})
	if f.err != nil {
		return f.err
	}
	if len(w) > 0 {
		f.cursor = int(w[0])
		for _, b := range w[1:] {
			f.mem[f.cursor] = b
			f.cursor = (f.cursor + 1) % len(f.mem)
		}
	}
	for i := range r {
		r[i] = f.mem[(f.cursor+i)%len(f.mem)]
	}
	return nil
}

func TestReadUsesSingleTransaction(t *testing.T) {
	bus := &fakeBus{}
	copy(bus.mem[0x20:], []byte{1, 2, 3, 4})
	dev := New(bus)

	got := make([]byte, 4)
	if err := dev.ReadAt(0x20, got); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte{1, 2, 3, 4}) {
		t.Fatalf("read % X", got)
	}
	// One Tx carrying both buffers keeps the repeated start on the bus side.
	if len(bus.txs) != 1 || bus.txs[0].w != 1 || bus.txs[0].r != 4 {
		t.Fatalf("transactions %+v", bus.txs)
	}
	if bus.txs[0].addr != AddressDefault {
		t.Fatalf("addressed %#x", bus.txs[0].addr)
	}
}

func TestWriteChunksToPages(t *testing.T) {
	bus := &fakeBus{}
	dev := New(bus)

	// 0x06..0x13 covers the tail of one page and two more: 2+8+4 bytes.
	payload := make([]byte, 14)
	for i := range payload {
		payload[i] = byte(0x30 + i)
	}
	if err := dev.WriteAt(0x06, payload); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(bus.mem[0x06:0x06+14], payload) {
		t.Fatalf("stored % X", bus.mem[0x06:0x06+14])
	}
	want := []fakeTx{
		{AddressDefault, 1 + 2, 0},
		{AddressDefault, 1 + 8, 0},
		{AddressDefault, 1 + 4, 0},
	}
	if len(bus.txs) != len(want) {
		t.Fatalf("got %d transactions, want %d", len(bus.txs), len(want))
	}
	for i, tx := range bus.txs {
		if tx != want[i] {
			t.Fatalf("transaction %d = %+v, want %+v", i, tx, want[i])
		}
	}
}

func TestConfigureLargerPage(t *testing.T) {
	bus := &fakeBus{}
	dev := New(bus)
	dev.Configure(Config{Address: 0x57, PageSize: 16})

	if err := dev.WriteAt(0, make([]byte, 16)); err != nil {
		t.Fatal(err)
	}
	if len(bus.txs) != 1 || bus.txs[0].addr != 0x57 || bus.txs[0].w != 17 {
		t.Fatalf("transactions %+v", bus.txs)
	}
}

func TestRangeChecks(t *testing.T) {
	dev := New(&fakeBus{})

	if err := dev.ReadAt(256, make([]byte, 1)); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("got %v, want ErrOutOfRange", err)
	}
	if err := dev.ReadAt(250, make([]byte, 10)); !errors.Is(err, ErrTooLong) {
		t.Fatalf("got %v, want ErrTooLong", err)
	}
	if err := dev.WriteAt(-1, []byte{1}); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("got %v, want ErrOutOfRange", err)
	}
	if err := dev.WriteAt(255, []byte{1, 2}); !errors.Is(err, ErrTooLong) {
		t.Fatalf("got %v, want ErrTooLong", err)
	}
}

func TestBusErrorStopsWrite(t *testing.T) {
	bus := &fakeBus{err: errors.New("nack")}
	dev := New(bus)

	if err := dev.WriteAt(0, make([]byte, 20)); err == nil {
		t.Fatal("expected bus error")
	}
	// The first failing page write aborts the rest.
	if len(bus.txs) != 1 {
		t.Fatalf("kept going after failure: %+v", bus.txs)
	}
}
