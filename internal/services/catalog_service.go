package services

import (
	"context"

	"fintrack/internal/core"
)

// CatalogStore is the account and category side of the repository.
type CatalogStore interface {
	ListAccounts(ctx context.Context, userID string) ([]core.Account, error)
	GetAccount(ctx context.Context, userID, id string) (core.Account, error)
	CreateAccount(ctx context.Context, userID, name string) (core.Account, error)
	UpdateAccount(ctx context.Context, userID, id, name string) (core.Account, error)
	DeleteAccount(ctx context.Context, userID, id string) (core.Account, error)
	DeleteAccounts(ctx context.Context, userID string, ids []string) (int64, error)

	ListCategories(ctx context.Context, userID string) ([]core.Category, error)
	GetCategory(ctx context.Context, userID, id string) (core.Category, error)
	CreateCategory(ctx context.Context, userID, name string) (core.Category, error)
	UpdateCategory(ctx context.Context, userID, id, name string) (core.Category, error)
	DeleteCategory(ctx context.Context, userID, id string) (core.Category, error)
	DeleteCategories(ctx context.Context, userID string, ids []string) (int64, error)
}

// CatalogService manages accounts and categories. Renames and deletes change
// what summaries report, so they invalidate the user's cached summaries.
type CatalogService struct {
	store       CatalogStore
	invalidator Invalidator
}

func NewCatalogService(store CatalogStore, invalidator Invalidator) *CatalogService {
	return &CatalogService{store: store, invalidator: invalidator}
}

func (s *CatalogService) ListAccounts(ctx context.Context, userID string) ([]core.Account, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	return s.store.ListAccounts(ctx, userID)
}

func (s *CatalogService) GetAccount(ctx context.Context, userID, id string) (core.Account, error) {
	if err := requireUserAndID(userID, id); err != nil {
		return core.Account{}, err
	}
	return s.store.GetAccount(ctx, userID, id)
}

func (s *CatalogService) CreateAccount(ctx context.Context, userID, name string) (core.Account, error) {
	if err := requireUser(userID); err != nil {
		return core.Account{}, err
	}
	if err := core.ValidateName(name); err != nil {
		return core.Account{}, err
	}
	return s.store.CreateAccount(ctx, userID, name)
}

func (s *CatalogService) UpdateAccount(ctx context.Context, userID, id, name string) (core.Account, error) {
	if err := requireUserAndID(userID, id); err != nil {
		return core.Account{}, err
	}
	if err := core.ValidateName(name); err != nil {
		return core.Account{}, err
	}
	return s.store.UpdateAccount(ctx, userID, id, name)
}

func (s *CatalogService) DeleteAccount(ctx context.Context, userID, id string) (core.Account, error) {
	if err := requireUserAndID(userID, id); err != nil {
		return core.Account{}, err
	}
	acc, err := s.store.DeleteAccount(ctx, userID, id)
	if err != nil {
		return core.Account{}, err
	}
	s.invalidate(userID)
	return acc, nil
}

func (s *CatalogService) DeleteAccounts(ctx context.Context, userID string, ids []string) (int64, error) {
	if err := requireUser(userID); err != nil {
		return 0, err
	}
	n, err := s.store.DeleteAccounts(ctx, userID, ids)
	if err != nil {
		return 0, err
	}
	s.invalidate(userID)
	return n, nil
}

func (s *CatalogService) ListCategories(ctx context.Context, userID string) ([]core.Category, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	return s.store.ListCategories(ctx, userID)
}

func (s *CatalogService) GetCategory(ctx context.Context, userID, id string) (core.Category, error) {
	if err := requireUserAndID(userID, id); err != nil {
		return core.Category{}, err
	}
	return s.store.GetCategory(ctx, userID, id)
}

func (s *CatalogService) CreateCategory(ctx context.Context, userID, name string) (core.Category, error) {
	if err := requireUser(userID); err != nil {
		return core.Category{}, err
	}
	if err := core.ValidateName(name); err != nil {
		return core.Category{}, err
	}
	return s.store.CreateCategory(ctx, userID, name)
}

func (s *CatalogService) UpdateCategory(ctx context.Context, userID, id, name string) (core.Category, error) {
	if err := requireUserAndID(userID, id); err != nil {
		return core.Category{}, err
	}
	if err := core.ValidateName(name); err != nil {
		return core.Category{}, err
	}
	cat, err := s.store.UpdateCategory(ctx, userID, id, name)
	if err != nil {
		return core.Category{}, err
	}
	s.invalidate(userID)
	return cat, nil
}

func (s *CatalogService) DeleteCategory(ctx context.Context, userID, id string) (core.Category, error) {
	if err := requireUserAndID(userID, id); err != nil {
		return core.Category{}, err
	}
	cat, err := s.store.DeleteCategory(ctx, userID, id)
	if err != nil {
		return core.Category{}, err
	}
	s.invalidate(userID)
	return cat, nil
}

func (s *CatalogService) DeleteCategories(ctx context.Context, userID string, ids []string) (int64, error) {
	if err := requireUser(userID); err != nil {
		return 0, err
	}
	n, err := s.store.DeleteCategories(ctx, userID, ids)
	if err != nil {
		return 0, err
	}
	s.invalidate(userID)
	return n, nil
}

func (s *CatalogService) invalidate(userID string) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(userID)
	}
}
