package scopelock

import "github.com/pkg/errors"

var (
	// ErrMissingScope is returned by ExitScope when the caller closed
	// more scopes than it opened
	ErrMissingScope = errors.New("exit scope without a matching enter scope")

	// ErrNotHeld is returned by Release when the guard does not hold
	// the underlying lock
	ErrNotHeld = errors.New("outermost lock is not held")

	// ErrPoisoned is reported by Exclusive implementations when a
	// previous holder failed while holding the lock, leaving the
	// protected state possibly inconsistent
	ErrPoisoned = errors.New("lock is poisoned")
)
