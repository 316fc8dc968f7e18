package punishment

import (
	"sync"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
)

// keyedLock serialises issuance against a single identity.
type keyedLock struct {
	m *xsync.MapOf[uuid.UUID, *sync.Mutex]
}

// newKeyedLock ...
func newKeyedLock() *keyedLock {
	return &keyedLock{m: xsync.NewMapOf[uuid.UUID, *sync.Mutex]()}
}

// Lock locks the mutex of the identity and returns the function unlocking it.
func (k *keyedLock) Lock(id uuid.UUID) func() {
	mu, _ := k.m.LoadOrCompute(id, func() *sync.Mutex {
		return &sync.Mutex{}
	})
	mu.Lock()
	return mu.Unlock
}
