package services

import (
	"sync"
	"testing"
)

func TestChildLocks_SerializesAndForgets(t *testing.T) {
	l := NewChildLocks()

	var (
		wg      sync.WaitGroup
		inside  int
		maxSeen int
		counter int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock("kid-1")
			inside++
			maxSeen = max(maxSeen, inside)
			counter++
			inside--
			unlock()
		}()
	}
	wg.Wait()

	if counter != 50 || maxSeen != 1 {
		t.Fatalf("counter=%d maxSeen=%d", counter, maxSeen)
	}
	if n := l.size(); n != 0 {
		t.Fatalf("lock table kept %d entries", n)
	}

	a := l.Lock("kid-a")
	b := l.Lock("kid-b") // different children never contend
	if n := l.size(); n != 2 {
		t.Fatalf("size = %d, want 2", n)
	}
	a()
	b()
}
