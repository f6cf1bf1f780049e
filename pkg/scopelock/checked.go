// This file enables the internal invariant assertions. It is compiled
// in only when the scopelock_checked build tag is set, so a production
// binary never crashes on a bookkeeping inconsistency. Caller-observable
// error returns never depend on this tag.

//go:build scopelock_checked

package scopelock

// Checked reports whether internal invariant assertions are compiled in.
const Checked = true

func assert(cond bool, msg string) {
	if !cond {
		panic("scopelock: " + msg)
	}
}
