// Package scopelock provides a reentrancy guard for a single shared
// exclusive lock. A Guard acquires the underlying lock at most once per
// outer entry and counts the nested logical scopes opened while the lock
// is held; the lock is released exactly once, after the last scope has
// been closed.
//
// A Guard is owned by one session on one goroutine and is not safe for
// concurrent use. Sessions contend on the shared lock through their own
// Guard instances.
package scopelock

import (
	"math"

	"github.com/pkg/errors"
)

// Guard wraps a non-owning reference to an externally allocated exclusive
// lock. The guard never constructs or destroys the lock, it only acquires
// and releases it. Use New to bind a guard to a lock.
type Guard struct {
	lock  Exclusive
	token Token
	depth uint
}

// New returns an unheld guard bound to lock, with no open scopes.
func New(lock Exclusive) *Guard {
	return &Guard{lock: lock}
}

// EnterScope opens one nested scope. The depth counter saturates at its
// maximum instead of wrapping; hitting the ceiling is a scope-balance
// logic error surfaced by the balancing checks, never corrupted state.
func (g *Guard) EnterScope() {
	assert(g.token != nil, "scope opened on an unheld guard")
	if g.depth < math.MaxUint {
		g.depth++
	}
}

// ExitScope closes the innermost open scope. When no scope is open it
// returns ErrMissingScope and leaves the depth at zero.
func (g *Guard) ExitScope() error {
	assert(g.depth > 0, "exit scope without a matching enter scope")
	if g.depth == 0 {
		return ErrMissingScope
	}
	g.depth--
	return nil
}

// Acquire ensures the underlying lock is held by this guard. It is
// idempotent, calling it while the lock is already held does nothing.
// Otherwise it blocks until the lock is obtained. A poisoned-lock
// failure is propagated to the caller and the guard stays unheld.
func (g *Guard) Acquire() error {
	if g.token != nil {
		return nil
	}
	token, err := g.lock.Lock()
	if err != nil {
		return errors.Wrap(err, "failed to acquire outermost lock")
	}
	g.token = token
	return nil
}

// Release releases the underlying lock. Calling it on a guard that does
// not hold the lock returns ErrNotHeld, a caller error distinct from
// success. Releasing while scopes are still open is a protocol violation
// caught by the checked build; the release itself still follows this
// contract in every build.
func (g *Guard) Release() error {
	assert(g.depth == 0, "outermost lock released while scopes are open")
	assert(g.token != nil, "release of an unheld guard")
	if g.token == nil {
		return ErrNotHeld
	}
	token := g.token
	g.token = nil
	token.Release()
	return nil
}

// Held reports whether this guard currently holds the lock.
func (g *Guard) Held() bool {
	return g.token != nil
}

// Depth returns the number of currently open scopes.
func (g *Guard) Depth() uint {
	return g.depth
}

// Close verifies the session ended cleanly: all scopes closed and the
// lock released. A violation is a caller protocol bug, asserted in
// checked builds only. Intended for defer right after New.
func (g *Guard) Close() {
	assert(g.depth == 0, "guard closed with open scopes")
	assert(g.token == nil, "guard closed while holding the lock")
}

// InScope runs fn inside one nested scope, closing it on all return
// paths.
func (g *Guard) InScope(fn func() error) error {
	g.EnterScope()
	defer func() {
		_ = g.ExitScope()
	}()
	return fn()
}

// Locked runs fn while the guard holds the lock. When the call itself
// acquired the lock it is released on all return paths, including a
// panic in fn; when the guard was already held the outer acquisition is
// left in place. A release failure is reported only if fn succeeded.
func (g *Guard) Locked(fn func() error) (err error) {
	acquired := !g.Held()
	if err := g.Acquire(); err != nil {
		return err
	}
	if acquired {
		defer func() {
			if rerr := g.Release(); rerr != nil && err == nil {
				err = rerr
			}
		}()
	}
	return fn()
}
