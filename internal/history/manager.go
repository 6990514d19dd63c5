// Package history manages the per-type history and favorites lists of a
// scope. The two lists live in separate documents and share records by id:
// a favorite is a copy of a history record, and edits made through the
// manager are mirrored to the copy on a best-effort basis.
package history

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yiblet/promptkeep/internal/store"
)

// Manager implements history and favorites operations on a store.
// Methods that look a record up by id report a missing record with false
// and a nil error; the error is reserved for storage failures.
type Manager struct {
	store        store.Store
	historyLimit int
	now          func() time.Time
}

// NewManager creates a manager with the default history limit.
func NewManager(s store.Store) *Manager {
	return NewManagerWithConfig(s, DefaultLimit)
}

// NewManagerWithConfig creates a manager with a custom history limit.
func NewManagerWithConfig(s store.Store, historyLimit int) *Manager {
	if historyLimit <= 0 {
		historyLimit = DefaultLimit
	}
	return &Manager{
		store:        s,
		historyLimit: historyLimit,
		now:          time.Now,
	}
}

// HistoryLimit returns the configured history limit.
func (m *Manager) HistoryLimit() int {
	return m.historyLimit
}

func (m *Manager) newRecord(tags, prompt any, name string) (Record, error) {
	id, err := uuid.NewUUID()
	if err != nil {
		return Record{}, fmt.Errorf("failed to generate id: %w", err)
	}
	return Record{
		ID:     id.String(),
		Time:   m.now().Unix(),
		Name:   name,
		Tags:   tags,
		Prompt: prompt,
	}, nil
}

// PushHistory appends a new record to the history of typ, evicting the
// oldest records while the list is at its limit.
func (m *Manager) PushHistory(typ string, tags, prompt any, name string) (Record, error) {
	if err := validateType(typ); err != nil {
		return Record{}, err
	}
	rec, err := m.newRecord(tags, prompt, name)
	if err != nil {
		return Record{}, err
	}

	err = m.modify(HistoryKey(typ), func(records []Record) ([]Record, bool) {
		if over := len(records) - m.historyLimit + 1; over > 0 {
			records = records[over:]
		}
		return append(records, rec), true
	})
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// PushFavorite appends a new record to the favorites of typ. Favorites are
// not capped.
func (m *Manager) PushFavorite(typ string, tags, prompt any, name string) (Record, error) {
	if err := validateType(typ); err != nil {
		return Record{}, err
	}
	rec, err := m.newRecord(tags, prompt, name)
	if err != nil {
		return Record{}, err
	}

	err = m.modify(FavoriteKey(typ), func(records []Record) ([]Record, bool) {
		return append(records, rec), true
	})
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Histories returns the history of typ, oldest first, with IsFavorite set
// from the current favorites.
func (m *Manager) Histories(typ string) ([]Entry, error) {
	histories, err := m.histories(typ)
	if err != nil {
		return nil, err
	}
	favorites, err := m.Favorites(typ)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, len(histories))
	for i, r := range histories {
		entries[i] = Entry{Record: r, IsFavorite: indexOf(favorites, r.ID) >= 0}
	}
	return entries, nil
}

// Favorites returns the favorites of typ in their user-defined order.
func (m *Manager) Favorites(typ string) ([]Record, error) {
	if err := validateType(typ); err != nil {
		return nil, err
	}
	return m.load(FavoriteKey(typ))
}

// IsFavorite reports whether a favorite with id exists for typ.
func (m *Manager) IsFavorite(typ, id string) (bool, error) {
	favorites, err := m.Favorites(typ)
	if err != nil {
		return false, err
	}
	return indexOf(favorites, id) >= 0, nil
}

// LatestHistory returns the most recently pushed history record, or nil
// when the history is empty.
func (m *Manager) LatestHistory(typ string) (*Record, error) {
	histories, err := m.histories(typ)
	if err != nil {
		return nil, err
	}
	if len(histories) == 0 {
		return nil, nil
	}
	latest := histories[len(histories)-1]
	return &latest, nil
}

// MoveUpFavorite swaps the favorite with id and its predecessor. It returns
// false without writing when id is first or missing.
func (m *Manager) MoveUpFavorite(typ, id string) (bool, error) {
	return m.moveFavorite(typ, id, -1)
}

// MoveDownFavorite swaps the favorite with id and its successor. It returns
// false without writing when id is last or missing.
func (m *Manager) MoveDownFavorite(typ, id string) (bool, error) {
	return m.moveFavorite(typ, id, 1)
}

func (m *Manager) moveFavorite(typ, id string, step int) (bool, error) {
	if err := validateType(typ); err != nil {
		return false, err
	}
	moved := false
	err := m.modify(FavoriteKey(typ), func(records []Record) ([]Record, bool) {
		i := indexOf(records, id)
		j := i + step
		if i < 0 || j < 0 || j >= len(records) {
			return nil, false
		}
		records[i], records[j] = records[j], records[i]
		moved = true
		return records, true
	})
	return moved, err
}

// SetHistory overwrites the tags, prompt, and name of the history record
// with id. When a favorite shares the id it receives the same values.
func (m *Manager) SetHistory(typ, id string, tags, prompt any, name string) (bool, error) {
	if err := validateType(typ); err != nil {
		return false, err
	}
	found, err := m.edit(HistoryKey(typ), id, func(r *Record) {
		r.Tags, r.Prompt, r.Name = tags, prompt, name
	})
	if err != nil || !found {
		return found, err
	}
	if _, err := m.SetFavorite(typ, id, tags, prompt, name); err != nil {
		return true, err
	}
	return true, nil
}

// SetFavorite overwrites the tags, prompt, and name of the favorite with
// id. The history record is not touched.
func (m *Manager) SetFavorite(typ, id string, tags, prompt any, name string) (bool, error) {
	if err := validateType(typ); err != nil {
		return false, err
	}
	return m.edit(FavoriteKey(typ), id, func(r *Record) {
		r.Tags, r.Prompt, r.Name = tags, prompt, name
	})
}

// SetHistoryName renames the history record with id, and the favorite
// sharing its id if there is one. Both lists are rewritten when the history
// record exists.
func (m *Manager) SetHistoryName(typ, id, name string) (bool, error) {
	return m.rename(typ, id, name, HistoryKey(typ), FavoriteKey(typ))
}

// SetFavoriteName renames the favorite with id, and the history record
// sharing its id if there is one. Both lists are rewritten when the
// favorite exists.
func (m *Manager) SetFavoriteName(typ, id, name string) (bool, error) {
	return m.rename(typ, id, name, FavoriteKey(typ), HistoryKey(typ))
}

func (m *Manager) rename(typ, id, name, primary, mirror string) (bool, error) {
	if err := validateType(typ); err != nil {
		return false, err
	}
	setName := func(r *Record) { r.Name = name }

	found, err := m.edit(primary, id, setName)
	if err != nil || !found {
		return found, err
	}
	err = m.modify(mirror, func(records []Record) ([]Record, bool) {
		if i := indexOf(records, id); i >= 0 {
			setName(&records[i])
		}
		return records, true
	})
	return true, err
}

// DoFavorite copies the history record with id into the favorites. It
// returns false when the record is already a favorite or is not in the
// history.
func (m *Manager) DoFavorite(typ, id string) (bool, error) {
	histories, err := m.histories(typ)
	if err != nil {
		return false, err
	}
	i := indexOf(histories, id)
	if i < 0 {
		return false, nil
	}
	rec := histories[i]

	added := false
	err = m.modify(FavoriteKey(typ), func(records []Record) ([]Record, bool) {
		if indexOf(records, id) >= 0 {
			return nil, false
		}
		added = true
		return append(records, rec), true
	})
	return added, err
}

// Unfavorite removes the favorite with id. The history is not touched.
func (m *Manager) Unfavorite(typ, id string) (bool, error) {
	if err := validateType(typ); err != nil {
		return false, err
	}
	return m.remove(FavoriteKey(typ), id)
}

// RemoveHistory removes the history record with id. A favorite copy of it
// is kept.
func (m *Manager) RemoveHistory(typ, id string) (bool, error) {
	if err := validateType(typ); err != nil {
		return false, err
	}
	return m.remove(HistoryKey(typ), id)
}

// RemoveHistories empties the history of typ.
func (m *Manager) RemoveHistories(typ string) error {
	if err := validateType(typ); err != nil {
		return err
	}
	return m.store.Set(HistoryKey(typ), []Record{})
}

func (m *Manager) histories(typ string) ([]Record, error) {
	if err := validateType(typ); err != nil {
		return nil, err
	}
	return m.load(HistoryKey(typ))
}

func (m *Manager) load(key string) ([]Record, error) {
	var records []Record
	if _, err := m.store.Get(key, &records); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", key, err)
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// modify runs fn on the records stored under key inside one store update.
// fn returns the new list and whether to write it.
func (m *Manager) modify(key string, fn func([]Record) ([]Record, bool)) error {
	err := m.store.Update(key, func(doc store.Document) (any, bool, error) {
		var records []Record
		if _, err := doc.Decode(&records); err != nil {
			return nil, false, err
		}
		if records == nil {
			records = []Record{}
		}
		next, write := fn(records)
		return next, write, nil
	})
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", key, err)
	}
	return nil
}

func (m *Manager) edit(key, id string, fn func(*Record)) (bool, error) {
	found := false
	err := m.modify(key, func(records []Record) ([]Record, bool) {
		i := indexOf(records, id)
		if i < 0 {
			return nil, false
		}
		fn(&records[i])
		found = true
		return records, true
	})
	return found, err
}

func (m *Manager) remove(key, id string) (bool, error) {
	removed := false
	err := m.modify(key, func(records []Record) ([]Record, bool) {
		i := indexOf(records, id)
		if i < 0 {
			return nil, false
		}
		removed = true
		return append(records[:i], records[i+1:]...), true
	})
	return removed, err
}
