package store

import (
	"sync"
	"testing"
	"time"
)

func TestKeyMutex_Serialises(t *testing.T) {
	var km KeyMutex
	var wg sync.WaitGroup
	counter := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("k")
			defer unlock()
			v := counter
			time.Sleep(time.Microsecond)
			counter = v + 1
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Errorf("expected 50, got %d", counter)
	}
	if km.Held("k") {
		t.Error("expected key to be released")
	}
}

func TestKeyMutex_IndependentKeys(t *testing.T) {
	var km KeyMutex
	unlockA := km.Lock("a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := km.Lock("b")
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on b blocked behind a")
	}
}

func TestKeyMutex_UnlockTwice(t *testing.T) {
	var km KeyMutex
	unlock := km.Lock("k")
	unlock()
	unlock()

	unlock = km.Lock("k")
	if !km.Held("k") {
		t.Error("expected key to be held")
	}
	unlock()
}
