// Package mockboard provides an in-memory clipboard for tests.
package mockboard

import (
	"bytes"
	"io"
	"sync"
)

// MockClipboard implements clipboard.Clipboard in memory. Setting Err makes
// every Read and Write fail with it; setting Unsupported makes IsSupported
// report false.
type MockClipboard struct {
	mu          sync.Mutex
	data        []byte
	writes      int
	Err         error
	Unsupported bool
}

// New creates a new MockClipboard instance
func New() *MockClipboard {
	return &MockClipboard{}
}

// Read returns the stored content.
func (m *MockClipboard) Read() (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return io.NopCloser(bytes.NewReader(bytes.Clone(m.data))), nil
}

// Write replaces the stored content.
func (m *MockClipboard) Write(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.data = data
	m.writes++
	return nil
}

// SetData sets the mock clipboard data directly (for testing)
func (m *MockClipboard) SetData(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = data
}

// GetData returns the current clipboard data (for testing)
func (m *MockClipboard) GetData() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data
}

// Writes returns how many successful writes were made.
func (m *MockClipboard) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// IsSupported reports !Unsupported.
func (m *MockClipboard) IsSupported() bool {
	return !m.Unsupported
}
