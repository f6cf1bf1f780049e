// This file provides the default no-op assertion layer, used unless the
// scopelock_checked build tag is set.

//go:build !scopelock_checked

package scopelock

// Checked reports whether internal invariant assertions are compiled in.
const Checked = false

func assert(bool, string) {}
