package pipe

import "github.com/studoret/upipe/uref"

// Common is the per-pipe state object shared by every concrete pipe
// implementation in this module. Instead of the original intrusive
// upcasting (parent/child struct embedding shared across many pipe types),
// a concrete pipe holds a *Common by composition and calls these free
// functions/methods directly (see SPEC_FULL.md §9, REDESIGN FLAGS).
type Common struct {
	output Pipe
	probes Probes
	uses   int32
}

// NewCommon constructs a Common with a reference count of 1 and the given
// probe chain.
func NewCommon(probes ...Probe) *Common {
	return &Common{probes: append(Probes(nil), probes...), uses: 1}
}

// Throw raises e through the probe chain.
func (c *Common) Throw(e Event) { c.probes.Throw(e) }

// SetOutput reassigns the downstream output.
func (c *Common) SetOutput(p Pipe) { c.output = p }

// Output returns the current downstream output, or nil.
func (c *Common) Output() Pipe { return c.output }

// HandleControl implements the generic SetOutput/GetOutput commands shared
// by every pipe. A concrete pipe's Control method should fall through to
// this after handling its own command types, e.g.:
//
//	func (f *Framer) Control(cmd pipe.Command) error {
//	    switch c := cmd.(type) {
//	    case GetSequenceInsertion:
//	        ...
//	    default:
//	        return f.common.HandleControl(cmd)
//	    }
//	}
func (c *Common) HandleControl(cmd Command) error {
	switch cc := cmd.(type) {
	case SetOutput:
		c.SetOutput(cc.Output)
		return nil
	case GetOutput:
		*cc.Result = c.Output()
		return nil
	default:
		return ErrUnhandled
	}
}

// Use increments the reference count.
func (c *Common) Use() { c.uses++ }

// Release decrements the reference count and reports whether this was the
// last reference (the caller should tear down pipe-specific state).
func (c *Common) Release() bool {
	c.uses--
	return c.uses <= 0
}

// Forward hands u to the downstream output, if one is set. A pipe with no
// output silently drops u (mirroring the teacher's "no-op on unset output"
// convention).
func (c *Common) Forward(u *uref.Uref) {
	if c.output != nil {
		c.output.Input(u)
	}
}

// Sync tracks sequence/sync-acquisition state (C6's "upipe_helper_sync"
// analogue): SyncAcquired/SyncLost only raise their event on a genuine
// state transition, never on a repeated call.
type Sync struct {
	acquired bool
}

// Acquired reports whether sync is currently held.
func (s *Sync) Acquired() bool { return s.acquired }

// Raise marks sync as acquired, throwing EventSyncAcquired only on the
// false-to-true transition.
func (s *Sync) Raise(c *Common) {
	if !s.acquired {
		s.acquired = true
		c.Throw(Event{Kind: EventSyncAcquired})
	}
}

// Lose marks sync as lost, throwing EventSyncLost only on the
// true-to-false transition.
func (s *Sync) Lose(c *Common) {
	if s.acquired {
		s.acquired = false
		c.Throw(Event{Kind: EventSyncLost})
	}
}
