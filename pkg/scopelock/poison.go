package scopelock

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// PoisonMutex is an Exclusive built on sync.Mutex that carries the
// poison semantics the Exclusive interface assumes: when a holder
// panics inside Do, the mutex is marked poisoned and every later Lock
// fails with ErrPoisoned. The zero value is an unlocked, unpoisoned
// mutex ready for use.
type PoisonMutex struct {
	mu sync.Mutex
	// poisoned is only accessed while mu is held
	poisoned bool
}

var _ Exclusive = (*PoisonMutex)(nil)

// Lock blocks until the mutex is acquired. It fails with ErrPoisoned
// once a holder has failed inside Do.
func (p *PoisonMutex) Lock() (Token, error) {
	p.mu.Lock()
	if p.poisoned {
		p.mu.Unlock()
		return nil, ErrPoisoned
	}
	return tokenFunc(p.mu.Unlock), nil
}

// Do runs fn while holding the mutex. A panic in fn poisons the mutex
// before the lock is released and is then re-raised to the caller.
func (p *PoisonMutex) Do(fn func()) error {
	token, err := p.Lock()
	if err != nil {
		return err
	}
	defer token.Release()
	defer func() {
		if r := recover(); r != nil {
			// the release defer has not run yet, mu is still held
			p.poisoned = true
			log.Error().Interface("panic", r).Msg("lock poisoned, holder failed inside critical section")
			panic(r)
		}
	}()
	fn()
	return nil
}

// Poisoned reports whether a holder has failed while holding the mutex.
func (p *PoisonMutex) Poisoned() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.poisoned
}
