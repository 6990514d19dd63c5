// Package storetest holds the behaviour every store.Store backend must
// share. Backend packages call Run from their own tests.
package storetest

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/yiblet/promptkeep/internal/store"
)

// Factory returns a fresh, empty store. Run closes it.
type Factory func(t *testing.T) store.Store

// Run executes the conformance suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"RoundTrip", testRoundTrip},
		{"Absent", testAbsent},
		{"Overwrite", testOverwrite},
		{"Delete", testDelete},
		{"NestedKeys", testNestedKeys},
		{"InvalidKeys", testInvalidKeys},
		{"UpdateWrites", testUpdateWrites},
		{"UpdateSkipsWrite", testUpdateSkipsWrite},
		{"UpdateError", testUpdateError},
		{"DecodeMismatch", testDecodeMismatch},
		{"ConcurrentUpdates", testConcurrentUpdates},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			defer s.Close()
			tt.fn(t, s)
		})
	}
}

func testRoundTrip(t *testing.T, s store.Store) {
	values := map[string]any{
		"null":   nil,
		"bool":   true,
		"number": 3.5,
		"string": "猫 <b>&</b> 😀",
		"list":   []any{"a", 1.0, nil},
		"object": map[string]any{"name": "中文", "tags": []any{"x"}},
	}

	for key, want := range values {
		if err := s.Set(key, want); err != nil {
			t.Fatalf("Set(%q) error: %v", key, err)
		}
		var got any
		status, err := s.Get(key, &got)
		if err != nil {
			t.Fatalf("Get(%q) error: %v", key, err)
		}
		if status != store.StatusOK {
			t.Errorf("Get(%q) status = %s, want ok", key, status)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Get(%q) mismatch (-want +got):\n%s", key, diff)
		}
	}
}

func testAbsent(t *testing.T, s store.Store) {
	got := "untouched"
	status, err := s.Get("never-written", &got)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if status != store.StatusAbsent {
		t.Errorf("status = %s, want absent", status)
	}
	if got != "untouched" {
		t.Errorf("destination modified to %q", got)
	}
}

func testOverwrite(t *testing.T, s store.Store) {
	if err := s.Set("k", []any{1.0, 2.0, 3.0}); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if err := s.Set("k", "short"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	var got any
	if _, err := s.Get("k", &got); err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got != "short" {
		t.Errorf("got %v, want %q", got, "short")
	}
}

func testDelete(t *testing.T, s store.Store) {
	if err := s.Set("k", 1); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if err := s.Delete("k"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	var got any
	status, err := s.Get("k", &got)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if status != store.StatusAbsent {
		t.Errorf("status after delete = %s, want absent", status)
	}
	if err := s.Delete("k"); err != nil {
		t.Errorf("Delete() of missing key error: %v", err)
	}
}

func testNestedKeys(t *testing.T, s store.Store) {
	if err := s.Set("group/sub.key", "v"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	var got string
	status, err := s.Get("group/sub.key", &got)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if status != store.StatusOK || got != "v" {
		t.Errorf("Get() = (%s, %q), want (ok, %q)", status, got, "v")
	}
}

func testInvalidKeys(t *testing.T, s store.Store) {
	for _, key := range []string{"", "../escape", "/abs", "k.lock"} {
		if err := s.Set(key, 1); !errors.Is(err, store.ErrInvalidKey) {
			t.Errorf("Set(%q) error = %v, want ErrInvalidKey", key, err)
		}
		var v any
		if _, err := s.Get(key, &v); !errors.Is(err, store.ErrInvalidKey) {
			t.Errorf("Get(%q) error = %v, want ErrInvalidKey", key, err)
		}
		if err := s.Delete(key); !errors.Is(err, store.ErrInvalidKey) {
			t.Errorf("Delete(%q) error = %v, want ErrInvalidKey", key, err)
		}
		err := s.Update(key, func(store.Document) (any, bool, error) { return nil, false, nil })
		if !errors.Is(err, store.ErrInvalidKey) {
			t.Errorf("Update(%q) error = %v, want ErrInvalidKey", key, err)
		}
	}
}

func testUpdateWrites(t *testing.T, s store.Store) {
	err := s.Update("counter", func(doc store.Document) (any, bool, error) {
		if doc.Status != store.StatusAbsent {
			t.Errorf("first update saw status %s, want absent", doc.Status)
		}
		return 1, true, nil
	})
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}

	err = s.Update("counter", func(doc store.Document) (any, bool, error) {
		var n int
		if _, err := doc.Decode(&n); err != nil {
			return nil, false, err
		}
		return n + 1, true, nil
	})
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}

	var n int
	if _, err := s.Get("counter", &n); err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if n != 2 {
		t.Errorf("counter = %d, want 2", n)
	}
}

func testUpdateSkipsWrite(t *testing.T, s store.Store) {
	err := s.Update("k", func(store.Document) (any, bool, error) {
		return "ignored", false, nil
	})
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	var v any
	status, err := s.Get("k", &v)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if status != store.StatusAbsent {
		t.Errorf("status = %s, want absent", status)
	}
}

func testUpdateError(t *testing.T, s store.Store) {
	if err := s.Set("k", "before"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	boom := errors.New("boom")
	err := s.Update("k", func(store.Document) (any, bool, error) {
		return "after", true, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Update() error = %v, want %v", err, boom)
	}

	var got string
	if _, err := s.Get("k", &got); err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got != "before" {
		t.Errorf("got %q, want %q", got, "before")
	}

	// The key must not stay locked after a failed update.
	if err := s.Set("k", "again"); err != nil {
		t.Fatalf("Set() after failed update error: %v", err)
	}
}

func testDecodeMismatch(t *testing.T, s store.Store) {
	if err := s.Set("k", map[string]any{"a": 1}); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	var list []any
	if _, err := s.Get("k", &list); err == nil {
		t.Error("expected error decoding an object into a slice")
	}
}

func testConcurrentUpdates(t *testing.T, s store.Store) {
	const writers = 8
	const perWriter = 25

	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				item := fmt.Sprintf("%d-%d", w, i)
				err := s.Update("list", func(doc store.Document) (any, bool, error) {
					var items []string
					if _, err := doc.Decode(&items); err != nil {
						return nil, false, err
					}
					return append(items, item), true, nil
				})
				if err != nil {
					errs <- err
					return
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("Update() error: %v", err)
	}

	var items []string
	if _, err := s.Get("list", &items); err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if len(items) != writers*perWriter {
		t.Errorf("got %d items, want %d (lost updates)", len(items), writers*perWriter)
	}
}
