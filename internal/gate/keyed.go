package gate

import "sync"

// Keyed is a per-key in-flight guard: at most one holder per key within this
// process. It is the explicit form of the auto-print in-flight set; the
// persisted printed marker remains the authoritative cross-process signal.
type Keyed struct {
	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewKeyed() *Keyed {
	return &Keyed{inflight: make(map[string]struct{})}
}

// TryAcquire takes the lease for key. It returns false when the key is
// already held.
func (k *Keyed) TryAcquire(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	if _, held := k.inflight[key]; held {
		return false
	}
	k.inflight[key] = struct{}{}
	return true
}

// Release returns the lease. Releasing an unheld key is a no-op, so callers
// can defer Release on every exit path.
func (k *Keyed) Release(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.inflight, key)
}
