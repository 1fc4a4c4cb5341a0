//go:build !i2c_blocking_only

package i2c

// Non-blocking surface. Excluded by the i2c_blocking_only build tag.

// Transfer is an in-flight non-blocking transfer. It is advanced by Poll
// and must not be shared between callers. Dropping a Transfer mid-phase
// leaves the bus wherever it was; the handle refuses new transfers until
// Recover is called.
type Transfer struct {
	e *engine
}

// Begin validates req, issues the start condition and returns the transfer
// in its address phase. The bus rejects a second transfer while one is in
// flight.
func (d *I2C) Begin(req Request) (*Transfer, error) {
	if err := d.beginChecked(req); err != nil {
		return nil, err
	}
	return &Transfer{e: d.newEngine(req, true)}, nil
}

// Poll advances the transfer by at most one byte or one phase transition:
// one status poll and, on progress, one data register access. It returns
// the state machine position reached; the transfer is pending while the
// phase is neither Complete nor Error, and the caller re-invokes Poll from
// its own scheduler. The returned error is non-nil exactly in the Error
// phase and stays stable across further calls.
func (t *Transfer) Poll() (Phase, error) {
	t.e.step()
	return t.e.phase, t.e.err
}

// Phase returns the current state machine position without advancing it.
func (t *Transfer) Phase() Phase { return t.e.phase }

// Done reports whether the transfer reached a terminal phase.
func (t *Transfer) Done() bool {
	return t.e.phase == PhaseComplete || t.e.phase == PhaseError
}
