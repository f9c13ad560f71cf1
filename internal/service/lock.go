package service

import (
	"sync"
	"sync/atomic"
)

// CustomerLocks hands out one mutex per customer and forgets it once nobody
// holds or waits for it. Locks are never shared between customers.
//
// Every release advances a generation counter before the mutex is unlocked,
// so a reader that observes the new generation started after the write.
type CustomerLocks struct {
	mu    sync.Mutex
	locks map[string]*keyLock
	gen   atomic.Uint64
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func NewCustomerLocks() *CustomerLocks {
	return &CustomerLocks{locks: make(map[string]*keyLock)}
}

func (k *CustomerLocks) Lock(customerID string) (unlock func()) {
	k.mu.Lock()
	l, ok := k.locks[customerID]
	if !ok {
		l = &keyLock{}
		k.locks[customerID] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()

	return func() {
		k.gen.Add(1)
		l.mu.Unlock()

		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, customerID)
		}
		k.mu.Unlock()
	}
}

// Generation changes whenever any customer lock is released.
func (k *CustomerLocks) Generation() uint64 {
	return k.gen.Load()
}

func (k *CustomerLocks) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
