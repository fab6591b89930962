// Package dmerr defines the error taxonomy shared by every stage of
// bring-up: registry lookups, binding, HDT scanning, and probing.
package dmerr

import "github.com/pkg/errors"

// Code is a stable, bring-up-facing error identifier. It is a string
// newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes from the bring-up error taxonomy.
const (
	// NotFound is a lookup miss in a registry or HDT; usually benign.
	NotFound Code = "not_found"
	// NoDriver means a descriptor names a driver absent from the registry.
	NoDriver Code = "no_driver"
	// Refused means a driver's bind hook declined to bind; benign.
	Refused Code = "refused"
	// OutOfMemory is fatal to the current bring-up step.
	OutOfMemory Code = "out_of_memory"
	// BadHdt means the HDT property is malformed for the offending node.
	BadHdt Code = "bad_hdt"
	// AlreadyInitialized is a programmer error; fatal.
	AlreadyInitialized Code = "already_initialized"
	// DriverError is a non-benign error surfaced by a driver hook.
	DriverError Code = "driver_error"
	// BadDescriptor means a static descriptor's parent index is out of range.
	BadDescriptor Code = "bad_descriptor"
	// CycleDetected means the static-descriptor pass never converged.
	CycleDetected Code = "cycle_detected"
)

// E wraps a Code with context and an optional cause, in the style of
// github.com/pkg/errors-wrapped application errors.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	if e.Msg != "" {
		return e.Op + ": " + string(e.C) + ": " + e.Msg
	}
	return e.Op + ": " + string(e.C)
}

// Unwrap exposes the wrapped cause to errors.Is/errors.As.
func (e *E) Unwrap() error { return e.Err }

// Code returns the error's taxonomy code.
func (e *E) Code() Code { return e.C }

// Wrap builds an *E for operation op with code c, wrapping cause.
func Wrap(op string, c Code, cause error, msg string) *E {
	return &E{C: c, Op: op, Msg: msg, Err: cause}
}

// New builds an *E for operation op with code c and no cause.
func New(op string, c Code, msg string) *E {
	return &E{C: c, Op: op, Msg: msg}
}

// Of extracts a Code from an error, defaulting to DriverError for any
// error that doesn't carry one of its own.
func Of(err error) Code {
	if err == nil {
		return ""
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	var x coder
	if errors.As(err, &x) {
		return x.Code()
	}
	return DriverError
}

// Is reports whether err's taxonomy code, as Of reports it, is c: the
// outermost code found through any wrapping. Codes of causes wrapped
// beneath it are not consulted.
func Is(err error, c Code) bool {
	return Of(err) == c
}

// Fatal reports whether err's code must abort the current bring-up
// step immediately rather than being recorded and skipped, per the
// propagation policy: OutOfMemory and AlreadyInitialized abort, every
// other kind is recoverable at the call site that produced it.
func Fatal(err error) bool {
	switch Of(err) {
	case OutOfMemory, AlreadyInitialized:
		return true
	default:
		return false
	}
}

// Benign reports whether err's code is downgraded to a warning at the
// top level rather than treated as a real failure.
func Benign(err error) bool {
	switch Of(err) {
	case NotFound, NoDriver, Refused:
		return true
	default:
		return false
	}
}
