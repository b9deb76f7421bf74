package monitor

import "sync"

// dumpLocks admits at most one in-flight manual dump per domain.
type dumpLocks struct {
	mu   sync.Mutex
	held map[string]bool
}

func newDumpLocks() *dumpLocks {
	return &dumpLocks{held: make(map[string]bool)}
}

// tryAcquire reports whether the lock for domainID was free and is now held.
func (l *dumpLocks) tryAcquire(domainID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held[domainID] {
		return false
	}
	l.held[domainID] = true
	return true
}

func (l *dumpLocks) release(domainID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, domainID)
}
