// Package clipboard defines the clipboard used to copy prompts out of the
// store. sysboard talks to the system clipboard; mockboard is for tests.
package clipboard

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrUnsupported is returned when no clipboard is reachable.
var ErrUnsupported = errors.New("clipboard not supported on this system")

// Clipboard reads and writes clipboard text.
type Clipboard interface {
	Read() (io.ReadCloser, error)
	Write(r io.Reader) error
	IsSupported() bool
}

// WriteString replaces the clipboard content with text.
func WriteString(cb Clipboard, text string) error {
	if !cb.IsSupported() {
		return ErrUnsupported
	}
	if err := cb.Write(strings.NewReader(text)); err != nil {
		return fmt.Errorf("failed to write clipboard: %w", err)
	}
	return nil
}

// ReadString returns the clipboard content.
func ReadString(cb Clipboard) (string, error) {
	if !cb.IsSupported() {
		return "", ErrUnsupported
	}
	r, err := cb.Read()
	if err != nil {
		return "", fmt.Errorf("failed to read clipboard: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read clipboard: %w", err)
	}
	return string(data), nil
}
