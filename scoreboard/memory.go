package scoreboard

import (
	"context"
	"strconv"
	"sync"
)

// MemoryStore keeps the document in process memory. It is used for local
// development and tests; its revision is a write counter.
type MemoryStore struct {
	mu       sync.Mutex
	content  []byte
	revision int
	writes   []string
	err      error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) ReadDocument(ctx context.Context) ([]byte, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, "", m.err
	}

	if m.revision == 0 {
		return nil, "", nil
	}

	return append([]byte(nil), m.content...), strconv.Itoa(m.revision), nil
}

func (m *MemoryStore) WriteDocument(ctx context.Context, content []byte, message string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return "", m.err
	}

	m.content = append([]byte(nil), content...)
	m.revision++
	m.writes = append(m.writes, message)

	return strconv.Itoa(m.revision), nil
}

// SetContent replaces the stored content directly.
func (m *MemoryStore) SetContent(content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.content = append([]byte(nil), content...)
	m.revision++
}

// Writes returns the commit messages of every write so far.
func (m *MemoryStore) Writes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]string(nil), m.writes...)
}

// SetErr makes every subsequent read and write fail with err; nil clears it.
func (m *MemoryStore) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.err = err
}
