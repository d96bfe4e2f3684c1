package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"fintrack/internal/core"
)

// TransactionStore is the transaction side of the repository.
type TransactionStore interface {
	ListTransactions(ctx context.Context, userID string, f core.TransactionFilter) ([]core.TransactionDetail, error)
	GetTransaction(ctx context.Context, userID, id string) (core.TransactionDetail, error)
	CreateTransactions(ctx context.Context, userID string, batch []core.NewTransaction) ([]core.Transaction, error)
	UpdateTransaction(ctx context.Context, userID, id string, patch core.TransactionPatch) (core.TransactionDetail, error)
	DeleteTransaction(ctx context.Context, userID, id string) (core.TransactionDetail, error)
	DeleteTransactions(ctx context.Context, userID string, ids []string) (int64, error)
}

// Invalidator forgets derived data of a user after a write.
type Invalidator interface {
	Invalidate(userID string)
}

// ListQuery carries the raw listing parameters. From and To may be empty.
type ListQuery struct {
	AccountID string
	From      string
	To        string
}

// TransactionService validates transaction writes and keeps the summary cache
// consistent with them.
type TransactionService struct {
	store       TransactionStore
	invalidator Invalidator
	now         func() time.Time
}

func NewTransactionService(store TransactionStore, invalidator Invalidator) *TransactionService {
	return &TransactionService{
		store:       store,
		invalidator: invalidator,
		now:         time.Now,
	}
}

func (s *TransactionService) WithClock(now func() time.Time) *TransactionService {
	s.now = now
	return s
}

// List returns the user's transactions, newest first. Without from the window
// is the trailing 30 days ending at to (default today).
func (s *TransactionService) List(ctx context.Context, userID string, q ListQuery) ([]core.TransactionDetail, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	p, err := core.ResolveRange(q.From, q.To, civil.DateOf(s.now()), core.ListLookbackDays)
	if err != nil {
		return nil, err
	}
	return s.store.ListTransactions(ctx, userID, core.TransactionFilter{Period: p, AccountID: strings.TrimSpace(q.AccountID)})
}

func (s *TransactionService) Get(ctx context.Context, userID, id string) (core.TransactionDetail, error) {
	if err := requireUserAndID(userID, id); err != nil {
		return core.TransactionDetail{}, err
	}
	return s.store.GetTransaction(ctx, userID, id)
}

func (s *TransactionService) Create(ctx context.Context, userID string, t core.NewTransaction) (core.Transaction, error) {
	created, err := s.CreateTransactions(ctx, userID, []core.NewTransaction{t})
	if err != nil {
		return core.Transaction{}, err
	}
	return created[0], nil
}

// CreateTransactions validates every payload before writing any of them, then
// stores the batch atomically. It satisfies importer.BulkCreator.
func (s *TransactionService) CreateTransactions(ctx context.Context, userID string, batch []core.NewTransaction) ([]core.Transaction, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if len(batch) == 0 {
		return nil, core.ErrEmptyBatch
	}

	normalized := make([]core.NewTransaction, len(batch))
	for i, t := range batch {
		t = t.Normalize()
		if err := t.Validate(); err != nil {
			if len(batch) == 1 {
				return nil, err
			}
			return nil, core.NewBadRequest(fmt.Sprintf("transaction %d: %s", i, err))
		}
		normalized[i] = t
	}

	created, err := s.store.CreateTransactions(ctx, userID, normalized)
	if err != nil {
		return nil, err
	}
	s.invalidate(userID)
	return created, nil
}

func (s *TransactionService) Update(ctx context.Context, userID, id string, patch core.TransactionPatch) (core.TransactionDetail, error) {
	if err := requireUserAndID(userID, id); err != nil {
		return core.TransactionDetail{}, err
	}
	if err := patch.Validate(); err != nil {
		return core.TransactionDetail{}, err
	}
	updated, err := s.store.UpdateTransaction(ctx, userID, id, patch)
	if err != nil {
		return core.TransactionDetail{}, err
	}
	s.invalidate(userID)
	return updated, nil
}

func (s *TransactionService) Delete(ctx context.Context, userID, id string) (core.TransactionDetail, error) {
	if err := requireUserAndID(userID, id); err != nil {
		return core.TransactionDetail{}, err
	}
	deleted, err := s.store.DeleteTransaction(ctx, userID, id)
	if err != nil {
		return core.TransactionDetail{}, err
	}
	s.invalidate(userID)
	return deleted, nil
}

func (s *TransactionService) DeleteMany(ctx context.Context, userID string, ids []string) (int64, error) {
	if err := requireUser(userID); err != nil {
		return 0, err
	}
	n, err := s.store.DeleteTransactions(ctx, userID, ids)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.invalidate(userID)
	}
	return n, nil
}

func (s *TransactionService) invalidate(userID string) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(userID)
	}
}

func requireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return core.ErrUnauthorized
	}
	return nil
}

func requireUserAndID(userID, id string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return core.ErrMissingID
	}
	return nil
}
