package history

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yiblet/promptkeep/internal/store"
)

const (
	// DefaultLimit is the number of history records kept per type.
	DefaultLimit = 100

	historyPrefix  = "history."
	favoritePrefix = "favorite."
)

// KnownTypes are the prompt types the web UI records. Other non-empty types
// are accepted.
var KnownTypes = []string{"txt2img", "txt2img_neg", "img2img", "img2img_neg"}

// ErrInvalidType is returned for a type that cannot be used in a key.
var ErrInvalidType = errors.New("invalid type")

// Record is one history or favorite entry. Tags and Prompt are opaque JSON
// values supplied by the caller.
type Record struct {
	ID     string `json:"id"`
	Time   int64  `json:"time"`
	Name   string `json:"name"`
	Tags   any    `json:"tags"`
	Prompt any    `json:"prompt"`
}

// Entry is a history record annotated with whether a favorite shares its
// id. IsFavorite is computed on every read and never stored.
type Entry struct {
	Record
	IsFavorite bool `json:"is_favorite"`
}

// HistoryKey returns the document key holding the history list for typ.
func HistoryKey(typ string) string {
	return historyPrefix + typ
}

// FavoriteKey returns the document key holding the favorites list for typ.
func FavoriteKey(typ string) string {
	return favoritePrefix + typ
}

func validateType(typ string) error {
	if typ == "" {
		return fmt.Errorf("%w: type must not be empty", ErrInvalidType)
	}
	if strings.ContainsAny(typ, `/\`) {
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidType, typ)
	}
	if err := store.ValidateKey(HistoryKey(typ)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidType, err)
	}
	return nil
}

func indexOf(records []Record, id string) int {
	for i, r := range records {
		if r.ID == id {
			return i
		}
	}
	return -1
}
