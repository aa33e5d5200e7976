package orchestrator

import "sync"

// keyedMutex serializes the initialize/settle sequence per delivery
// identifier. The contract is the final arbiter of conflicting calls; this
// lock only prevents duplicate local writes from concurrent requests.
// Entries are kept for the life of the process, bounded by the number of
// distinct deliveries handled.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key and returns its unlock function.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	lock, ok := k.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		k.locks[key] = lock
	}
	k.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
