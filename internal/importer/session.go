package importer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

// State is the view a session is in. A fresh session lists; loading parsed
// rows switches it to import until the rows are committed or cancelled.
type State string

const (
	StateList   State = "LIST"
	StateImport State = "IMPORT"
)

// SelectionStatus tracks the two-phase account selection.
type SelectionStatus string

const (
	SelectionNone     SelectionStatus = "none"
	SelectionPending  SelectionStatus = "pending"
	SelectionResolved SelectionStatus = "resolved"
	SelectionDeclined SelectionStatus = "declined"
)

var (
	ErrSessionNotFound    = fmt.Errorf("import session %w", core.ErrNotFound)
	ErrInvalidState       = core.NewConflict("operation not allowed in the current import state")
	ErrAccountNotSelected = core.NewConflict("select an account to continue")
	ErrNothingToImport    = core.NewBadRequest("no valid rows to import")
)

// BulkCreator persists a batch of transactions atomically.
type BulkCreator interface {
	CreateTransactions(ctx context.Context, userID string, batch []core.NewTransaction) ([]core.Transaction, error)
}

type Selection struct {
	Status    SelectionStatus `json:"status"`
	AccountID string          `json:"accountId,omitempty"`
}

// Session holds one user's import in progress. All methods are safe for
// concurrent use; Commit holds the session lock for the whole write so a
// batch is never created twice.
type Session struct {
	mu        sync.Mutex
	id        string
	userID    string
	state     State
	result    ParseResult
	selection Selection
	createdAt time.Time
	updatedAt time.Time
}

// SessionView is the JSON snapshot of a session.
type SessionView struct {
	ID        string       `json:"id"`
	State     State        `json:"state"`
	Rows      []Row        `json:"rows"`
	Errors    []ParseError `json:"errors"`
	Meta      Meta         `json:"meta"`
	Selection Selection    `json:"selection"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

func NewSession(userID string) *Session {
	now := time.Now().UTC()
	return &Session{
		id:        uuid.NewString(),
		userID:    userID,
		state:     StateList,
		result:    emptyResult(),
		selection: Selection{Status: SelectionNone},
		createdAt: now,
		updatedAt: now,
	}
}

func emptyResult() ParseResult {
	return ParseResult{Rows: []Row{}, Errors: []ParseError{}, Meta: Meta{Fields: []string{}}}
}

func (s *Session) ID() string     { return s.id }
func (s *Session) UserID() string { return s.userID }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) View() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := make([]Row, len(s.result.Rows))
	copy(rows, s.result.Rows)
	errs := make([]ParseError, len(s.result.Errors))
	copy(errs, s.result.Errors)

	return SessionView{
		ID:        s.id,
		State:     s.state,
		Rows:      rows,
		Errors:    errs,
		Meta:      s.result.Meta,
		Selection: s.selection,
		CreatedAt: s.createdAt,
		UpdatedAt: s.updatedAt,
	}
}

// Load moves a listing session into import with the parsed rows.
func (s *Session) Load(result ParseResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateList {
		return ErrInvalidState
	}
	if result.Rows == nil {
		result.Rows = []Row{}
	}
	if result.Errors == nil {
		result.Errors = []ParseError{}
	}
	s.result = result
	s.state = StateImport
	s.selection = Selection{Status: SelectionNone}
	s.touch()
	return nil
}

// RequestAccount opens an account selection. Any earlier answer is discarded.
func (s *Session) RequestAccount() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateImport {
		return ErrInvalidState
	}
	s.selection = Selection{Status: SelectionPending}
	s.touch()
	return nil
}

// Resolve answers a pending selection with the chosen account.
func (s *Session) Resolve(accountID string) error {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return core.ErrMissingAccount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateImport || s.selection.Status != SelectionPending {
		return ErrInvalidState
	}
	s.selection = Selection{Status: SelectionResolved, AccountID: accountID}
	s.touch()
	return nil
}

// Decline answers a pending selection without an account.
func (s *Session) Decline() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateImport || s.selection.Status != SelectionPending {
		return ErrInvalidState
	}
	s.selection = Selection{Status: SelectionDeclined}
	s.touch()
	return nil
}

// Cancel drops the loaded rows and returns to listing.
func (s *Session) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateImport {
		return ErrInvalidState
	}
	s.reset()
	return nil
}

// Commit writes the loaded rows to the selected account with a single bulk
// create. Without a resolved selection it fails with ErrAccountNotSelected.
// On any failure the session keeps its rows and selection so the client can
// retry; on success it returns to listing.
func (s *Session) Commit(ctx context.Context, creator BulkCreator) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateImport {
		return nil, ErrInvalidState
	}
	if s.selection.Status != SelectionResolved {
		return nil, ErrAccountNotSelected
	}
	if len(s.result.Rows) == 0 {
		return nil, ErrNothingToImport
	}

	batch := Reconcile(s.result.Rows, s.selection.AccountID)
	created, err := creator.CreateTransactions(ctx, s.userID, batch)
	if err != nil {
		return nil, fmt.Errorf("bulk create imported transactions: %w", err)
	}

	s.reset()
	return created, nil
}

// SelectedAccount returns the resolved account id, if any.
func (s *Session) SelectedAccount() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection.AccountID, s.selection.Status == SelectionResolved
}

func (s *Session) reset() {
	s.state = StateList
	s.result = emptyResult()
	s.selection = Selection{Status: SelectionNone}
	s.touch()
}

func (s *Session) touch() {
	s.updatedAt = time.Now().UTC()
}
