package vault

import (
	"errors"
	"sync"

	"github.com/gagliardetto/solana-go"
)

// ErrReentrantCall is returned when a ledger mutation is attempted on a
// vault that already has one in flight.
var ErrReentrantCall = errors.New("reentrant call detected")

// LockRegistry is the per-vault reentrancy guard. At most one
// withdrawal-class or trade operation may hold a vault's lock at a time; a
// nested call made while the lock is held (e.g. a venue calling back into the
// engine mid-swap) fails instead of observing the ledger mid-transfer.
type LockRegistry struct {
	mu     sync.Mutex
	locked map[solana.PublicKey]struct{}
}

func NewLockRegistry() *LockRegistry {
	return &LockRegistry{locked: make(map[solana.PublicKey]struct{})}
}

// Acquire takes the lock for investor, returning a release func the caller
// must defer. Releasing via defer guarantees the guard resets on every exit
// path, success or failure.
func (r *LockRegistry) Acquire(investor solana.PublicKey) (func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, held := r.locked[investor]; held {
		return nil, ErrReentrantCall
	}
	r.locked[investor] = struct{}{}

	var once sync.Once
	release := func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.locked, investor)
			r.mu.Unlock()
		})
	}
	return release, nil
}

// Held reports whether investor's lock is currently taken.
func (r *LockRegistry) Held(investor solana.PublicKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, held := r.locked[investor]
	return held
}
