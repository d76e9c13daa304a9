package history

import (
	"context"
	"sync"

	"jarvis/internal/domain"
)

const DefaultSize = 100

// Memory keeps the last exchanges in a fixed-size ring.
type Memory struct {
	mu      sync.Mutex
	entries []domain.Exchange
	next    int
	full    bool
}

func NewMemory(size int) *Memory {
	if size <= 0 {
		size = DefaultSize
	}
	return &Memory{entries: make([]domain.Exchange, size)}
}

func (m *Memory) Append(_ context.Context, exchange domain.Exchange) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[m.next] = exchange
	m.next = (m.next + 1) % len(m.entries)
	if m.next == 0 {
		m.full = true
	}
	return nil
}

// Recent returns up to n exchanges, newest first.
func (m *Memory) Recent(_ context.Context, n int) ([]domain.Exchange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := m.next
	if m.full {
		count = len(m.entries)
	}
	n = min(n, count)
	if n <= 0 {
		return nil, nil
	}

	out := make([]domain.Exchange, 0, n)
	for i := 1; i <= n; i++ {
		idx := (m.next - i + len(m.entries)) % len(m.entries)
		out = append(out, m.entries[idx])
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }
