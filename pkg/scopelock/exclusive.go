package scopelock

import "sync"

// Token represents one acquisition of an Exclusive lock. Releasing the
// token releases the lock; a token must be released exactly once, and
// only by the guard that obtained it.
type Token interface {
	Release()
}

// Exclusive is the underlying mutual-exclusion primitive coordinated by
// a Guard. Lock blocks until the lock is acquired and returns the token
// that releases it, or an error matching ErrPoisoned when a previous
// holder failed while holding the lock.
type Exclusive interface {
	Lock() (Token, error)
}

// Wrap adapts a plain sync.Locker into an Exclusive. The adapted lock
// can never report poisoning.
func Wrap(mu sync.Locker) Exclusive {
	return lockerExclusive{mu: mu}
}

type lockerExclusive struct {
	mu sync.Locker
}

func (l lockerExclusive) Lock() (Token, error) {
	l.mu.Lock()
	return tokenFunc(l.mu.Unlock), nil
}

// tokenFunc adapts a release callback into a Token.
type tokenFunc func()

func (f tokenFunc) Release() {
	f()
}
