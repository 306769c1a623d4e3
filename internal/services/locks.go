package services

import "sync"

// ChildLocks serializes writers per child. Grants and heartbeats for the
// same child take the same lock so a grant's bucket walk never interleaves
// with an increment; different children never contend.
type ChildLocks struct {
	mu    sync.Mutex
	locks map[string]*childLock
}

type childLock struct {
	sync.Mutex
	refs int
}

// NewChildLocks returns an empty lock table.
func NewChildLocks() *ChildLocks {
	return &ChildLocks{locks: make(map[string]*childLock)}
}

// Lock acquires the lock for childID and returns its release function.
// Entries are dropped once no goroutine holds or waits for them.
func (l *ChildLocks) Lock(childID string) (unlock func()) {
	l.mu.Lock()
	cl, ok := l.locks[childID]
	if !ok {
		cl = &childLock{}
		l.locks[childID] = cl
	}
	cl.refs++
	l.mu.Unlock()

	cl.Lock()
	return func() {
		cl.Unlock()
		l.mu.Lock()
		cl.refs--
		if cl.refs == 0 {
			delete(l.locks, childID)
		}
		l.mu.Unlock()
	}
}

func (l *ChildLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
