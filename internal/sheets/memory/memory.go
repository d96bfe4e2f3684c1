// Package memory is an in-process TransactionMirror used in development and tests.
package memory

import (
	"context"
	"sync"

	"fintrack/internal/core"
	ports "fintrack/internal/sheets"
)

type Store struct {
	mu   sync.Mutex
	ids  map[string]struct{}
	rows [][]string
}

var _ ports.TransactionMirror = (*Store)(nil)

func New() *Store {
	return &Store{ids: map[string]struct{}{}}
}

// AppendTransactions records rows for transactions not seen before.
func (s *Store) AppendTransactions(ctx context.Context, txs []core.TransactionDetail) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	written := 0
	for _, t := range txs {
		if _, ok := s.ids[t.ID]; ok {
			continue
		}
		s.ids[t.ID] = struct{}{}
		s.rows = append(s.rows, ports.Row(t))
		written++
	}
	return written, nil
}

// Rows returns a copy of the mirrored rows in append order.
func (s *Store) Rows() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]string, len(s.rows))
	for i, r := range s.rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}
