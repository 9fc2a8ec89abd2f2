package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"dompet/internal/core"
	ports "dompet/internal/sheets"
)

// Store is an in-process mirror used when no spreadsheet is configured and in tests.
type Store struct {
	mu   sync.Mutex
	rows map[int64]core.Transaction
	refs map[int64]int
	next int
}

var _ ports.Mirror = (*Store)(nil)

func New() *Store {
	return &Store{rows: make(map[int64]core.Transaction), refs: make(map[int64]int), next: 2}
}

// Append stores t, keeping the row reference stable across updates.
func (s *Store) Append(_ context.Context, t core.Transaction) (string, error) {
	if t.ID <= 0 {
		return "", fmt.Errorf("transaction id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.refs[t.ID]
	if !ok {
		row = s.next
		s.next++
		s.refs[t.ID] = row
	}
	s.rows[t.ID] = t
	return fmt.Sprintf("mem:%d", row), nil
}

func (s *Store) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, id)
	return nil
}

// Get returns the mirrored copy of id.
func (s *Store) Get(id int64) (core.Transaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.rows[id]
	return t, ok
}

// Rows returns the mirrored transactions ordered by id, rendered like sheet rows.
func (s *Store) Rows() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.rows))
	for id := range s.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	out := make([][]any, 0, len(ids))
	for _, id := range ids {
		out = append(out, ports.Row(s.rows[id]))
	}
	return out
}
