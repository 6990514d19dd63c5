package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

const (
	// DocumentSuffix is appended to a key to name its document file.
	DocumentSuffix = ".json"

	// LockSuffix is appended to a key to name its lock marker.
	LockSuffix = ".lock"

	tempMarker = ".tmp-"
)

var (
	// ErrInvalidKey is returned for keys that cannot name a document.
	ErrInvalidKey = errors.New("invalid key")
)

// Status describes the outcome of loading a document.
type Status uint8

const (
	// StatusAbsent means no document exists, or its file is empty.
	StatusAbsent Status = iota

	// StatusOK means the document decoded cleanly.
	StatusOK

	// StatusRecovered means the document was not valid UTF-8 JSON but
	// decoded after transcoding from another character set.
	StatusRecovered

	// StatusCorrupt means the document could not be decoded at all. Callers
	// treat it like StatusAbsent.
	StatusCorrupt
)

// Found reports whether the status carries a usable value.
func (s Status) Found() bool {
	return s == StatusOK || s == StatusRecovered
}

func (s Status) String() string {
	switch s {
	case StatusAbsent:
		return "absent"
	case StatusOK:
		return "ok"
	case StatusRecovered:
		return "recovered"
	case StatusCorrupt:
		return "corrupt"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// Document is a stored value as loaded by a backend, normalised to UTF-8
// JSON but not yet decoded.
type Document struct {
	Key    string
	Data   []byte
	Status Status
}

// Decode decodes the document into v. When the document is not found v is
// left untouched and the status is returned with a nil error.
func (d Document) Decode(v any) (Status, error) {
	if !d.Status.Found() {
		return d.Status, nil
	}
	if err := json.Unmarshal(d.Data, v); err != nil {
		return d.Status, fmt.Errorf("failed to decode %s: %w", d.Key, err)
	}
	return d.Status, nil
}

// Value decodes the document into a generic JSON value: nil, bool, float64,
// string, []any, or map[string]any.
func (d Document) Value() (any, error) {
	var v any
	if _, err := d.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// ValidateKey checks that key can name a document. Keys are slash-separated
// relative paths in the io/fs sense, may not end with the lock suffix, and
// may not contain the temporary-file marker.
func ValidateKey(key string) error {
	switch {
	case key == "":
		return fmt.Errorf("%w: key must not be empty", ErrInvalidKey)
	case !fs.ValidPath(key) || key == ".":
		return fmt.Errorf("%w: %q is not a valid relative path", ErrInvalidKey, key)
	case strings.HasSuffix(key, LockSuffix):
		return fmt.Errorf("%w: %q ends with reserved suffix %s", ErrInvalidKey, key, LockSuffix)
	case strings.Contains(key, tempMarker):
		return fmt.Errorf("%w: %q contains reserved marker %s", ErrInvalidKey, key, tempMarker)
	}
	return nil
}
