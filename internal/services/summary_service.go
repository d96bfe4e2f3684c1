package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/cache"
	"fintrack/internal/core"
)

const (
	DefaultSummaryCacheTTL = time.Minute
	summaryCacheSize       = 500
)

// SummaryStore is the aggregation side of the repository.
type SummaryStore interface {
	Aggregate(ctx context.Context, userID, accountID string, p core.Period) (core.FinancialSummary, error)
	CategoryTotals(ctx context.Context, userID, accountID string, p core.Period) ([]core.CategoryAmount, error)
}

// SummaryQuery carries the raw request parameters. From and To may be empty.
type SummaryQuery struct {
	UserID    string
	AccountID string
	From      string
	To        string
}

// SummaryService builds period-over-period summaries and caches them per user.
type SummaryService struct {
	store SummaryStore
	cache *cache.LRUCache[core.Summary]
	now   func() time.Time
}

func NewSummaryService(store SummaryStore, ttl time.Duration) *SummaryService {
	if ttl <= 0 {
		ttl = DefaultSummaryCacheTTL
	}
	return &SummaryService{
		store: store,
		cache: cache.NewLRUCache[core.Summary](summaryCacheSize, ttl),
		now:   time.Now,
	}
}

// WithClock overrides the clock used to resolve "today".
func (s *SummaryService) WithClock(now func() time.Time) *SummaryService {
	s.now = now
	return s
}

// Cache exposes the backing cache for the cleanup manager.
func (s *SummaryService) Cache() *cache.LRUCache[core.Summary] {
	return s.cache
}

// Summary resolves the requested period, aggregates it together with the
// previous period of equal length and buckets the current spending by category.
func (s *SummaryService) Summary(ctx context.Context, q SummaryQuery) (core.Summary, error) {
	if strings.TrimSpace(q.UserID) == "" {
		return core.Summary{}, core.ErrUnauthorized
	}

	q.AccountID = strings.TrimSpace(q.AccountID)

	today := civil.DateOf(s.now())
	current, previous, err := core.ResolvePeriod(q.From, q.To, today)
	if err != nil {
		return core.Summary{}, err
	}

	key := summaryKey(q.UserID, q.AccountID, current)
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	var cur, prev core.FinancialSummary
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cur, err = s.store.Aggregate(gctx, q.UserID, q.AccountID, current)
		return err
	})
	g.Go(func() error {
		var err error
		prev, err = s.store.Aggregate(gctx, q.UserID, q.AccountID, previous)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Summary{}, fmt.Errorf("aggregate periods: %w", err)
	}

	categories, err := s.store.CategoryTotals(ctx, q.UserID, q.AccountID, current)
	if err != nil {
		return core.Summary{}, fmt.Errorf("aggregate categories: %w", err)
	}

	summary := core.NewSummary(current, previous, cur, prev, categories)
	s.cache.Set(key, summary)

	slog.DebugContext(ctx, "Summary computed",
		"user_id", q.UserID,
		"account_id", q.AccountID,
		"period", current.String(),
		"categories", len(summary.FinalCategories))
	return summary, nil
}

// Invalidate drops every cached summary of userID.
func (s *SummaryService) Invalidate(userID string) {
	s.cache.DeletePrefix(userID + "\x00")
}

func summaryKey(userID, accountID string, p core.Period) string {
	return strings.Join([]string{userID, accountID, p.Start.String(), p.End.String()}, "\x00")
}
