// Package pipe implements the pipe runtime (C6): a capability interface for
// processing stages, a discriminated control channel, and a boxed-callable
// event probe chain.
package pipe

import "github.com/studoret/upipe/uref"

// Pipe is the capability every processing stage implements. There is no
// shared base type to upcast from; a concrete pipe (e.g. the mp2v framer)
// holds a *Common by composition and implements these methods directly,
// delegating the common bookkeeping to the free functions in this package.
type Pipe interface {
	// Input hands a uref to the pipe. It never blocks and never returns an
	// error; failures are reported out-of-band through the probe chain.
	Input(u *uref.Uref)

	// Control dispatches a single typed command. Unrecognized command types
	// return ErrUnhandled.
	Control(cmd Command) error

	// Use acquires an additional reference and returns the same pipe.
	Use() Pipe

	// Release drops a reference, tearing the pipe down when it was the
	// last one.
	Release()
}
