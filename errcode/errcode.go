package errcode

// Code is a stable, API-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK Code = "ok"

	// Clock tree
	ClockUnachievable   Code = "clock_unachievable"
	ClockSourceUnstable Code = "clock_source_unstable"

	// Bus transfers
	BusNoAck           Code = "bus_no_ack"
	BusArbitrationLost Code = "bus_arbitration_lost"
	BusFault           Code = "bus_fault"
	BusTimeout         Code = "bus_timeout"
	BusNotIdle         Code = "bus_not_idle"

	// Ownership / construction
	PeriphInUse Code = "periph_in_use"
	PinInUse    Code = "pin_in_use"
	PinConsumed Code = "pin_consumed"
	PinMode     Code = "invalid_pin_mode"

	// Request validation
	InvalidAddress Code = "invalid_address"
	InvalidRequest Code = "invalid_request"

	Error Code = "error" // generic fallback
)

// Optional wrapper when we want to keep context and a cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	if e.Msg != "" {
		return string(e.C) + ": " + e.Msg
	}
	return string(e.C)
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	return Error
}

// Retryable reports whether a failed bus transfer may be retried by the
// caller without an explicit bus recovery. ArbitrationLost callers should
// back off before the retry.
func Retryable(err error) bool {
	switch Of(err) {
	case BusNoAck, BusTimeout, BusArbitrationLost:
		return true
	}
	return false
}
