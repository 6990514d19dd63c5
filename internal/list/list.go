// Package list implements array operations on documents: push, pop, shift,
// remove, clear, and indexed reads. Every mutation is one read-modify-write
// cycle under the key's write lock, so concurrent callers never lose items.
//
// A missing document and any "falsy" JSON value (null, false, 0, "", [] and
// {}) count as the empty list. Any other non-array document is rejected with
// ErrNotList rather than overwritten.
package list

import (
	"errors"
	"fmt"

	"github.com/yiblet/promptkeep/internal/store"
)

var (
	// ErrNotList is returned when a key holds a document that is not a list.
	ErrNotList = errors.New("document is not a list")

	// ErrIndexOutOfRange is wrapped by every IndexError.
	ErrIndexOutOfRange = errors.New("index out of range")
)

// IndexError reports an index outside a list.
type IndexError struct {
	Key    string
	Index  int
	Length int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("%s: index %d out of range for list of length %d", e.Key, e.Index, e.Length)
}

func (e *IndexError) Unwrap() error {
	return ErrIndexOutOfRange
}

// Push appends item to the list stored under key.
func Push(s store.Store, key string, item any) error {
	return s.Update(key, func(doc store.Document) (any, bool, error) {
		items, err := decode(doc)
		if err != nil {
			return nil, false, err
		}
		return append(items, item), true, nil
	})
}

// Pop removes and returns the last item. ok is false, and nothing is
// written, when the list is empty.
func Pop(s store.Store, key string) (item any, ok bool, err error) {
	err = s.Update(key, func(doc store.Document) (any, bool, error) {
		items, err := decode(doc)
		if err != nil || len(items) == 0 {
			return nil, false, err
		}
		item, ok = items[len(items)-1], true
		return items[:len(items)-1], true, nil
	})
	if err != nil {
		return nil, false, err
	}
	return item, ok, nil
}

// Shift removes and returns the first item. ok is false, and nothing is
// written, when the list is empty.
func Shift(s store.Store, key string) (item any, ok bool, err error) {
	err = s.Update(key, func(doc store.Document) (any, bool, error) {
		items, err := decode(doc)
		if err != nil || len(items) == 0 {
			return nil, false, err
		}
		item, ok = items[0], true
		return items[1:], true, nil
	})
	if err != nil {
		return nil, false, err
	}
	return item, ok, nil
}

// Remove deletes the item at index. Negative indexes count from the end.
// An index outside the list returns an *IndexError and writes nothing.
func Remove(s store.Store, key string, index int) error {
	return s.Update(key, func(doc store.Document) (any, bool, error) {
		items, err := decode(doc)
		if err != nil {
			return nil, false, err
		}
		i, err := resolve(key, index, len(items))
		if err != nil {
			return nil, false, err
		}
		return append(items[:i], items[i+1:]...), true, nil
	})
}

// Clear replaces the document under key with an empty list.
func Clear(s store.Store, key string) error {
	return s.Update(key, func(store.Document) (any, bool, error) {
		return []any{}, true, nil
	})
}

// Get returns the item at index without taking the lock. Negative indexes
// count from the end.
func Get(s store.Store, key string, index int) (any, error) {
	items, err := Items(s, key)
	if err != nil {
		return nil, err
	}
	i, err := resolve(key, index, len(items))
	if err != nil {
		return nil, err
	}
	return items[i], nil
}

// Len returns the number of items without taking the lock.
func Len(s store.Store, key string) (int, error) {
	items, err := Items(s, key)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

// Items returns the whole list without taking the lock.
func Items(s store.Store, key string) ([]any, error) {
	var v any
	status, err := s.Get(key, &v)
	if err != nil {
		return nil, err
	}
	return fromValue(key, status, v)
}

func decode(doc store.Document) ([]any, error) {
	v, err := doc.Value()
	if err != nil {
		return nil, err
	}
	return fromValue(doc.Key, doc.Status, v)
}

func fromValue(key string, status store.Status, v any) ([]any, error) {
	if !status.Found() || falsy(v) {
		return []any{}, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, ErrNotList)
	}
	return items, nil
}

// falsy reports whether v is a JSON value that counts as an empty list.
func falsy(v any) bool {
	switch v := v.(type) {
	case nil:
		return true
	case bool:
		return !v
	case float64:
		return v == 0
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	}
	return false
}

func resolve(key string, index, length int) (int, error) {
	i := index
	if i < 0 {
		i += length
	}
	if i < 0 || i >= length {
		return 0, &IndexError{Key: key, Index: index, Length: length}
	}
	return i, nil
}
