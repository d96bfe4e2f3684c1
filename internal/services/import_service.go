package services

import (
	"context"
	"io"
	"log/slog"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/importer"
	applog "fintrack/internal/log"
)

// EventPublisher announces committed imports to other processes.
type EventPublisher interface {
	PublishImportCommitted(ctx context.Context, msg *amqp.ImportCommittedMessage) error
}

// AccountReader checks that an account exists for a user.
type AccountReader interface {
	GetAccount(ctx context.Context, userID, id string) (core.Account, error)
}

// ImportService drives CSV import sessions from upload to commit.
type ImportService struct {
	sessions  *importer.Store
	accounts  AccountReader
	creator   importer.BulkCreator
	publisher EventPublisher
	options   importer.Options
}

func NewImportService(sessions *importer.Store, accounts AccountReader, creator importer.BulkCreator, publisher EventPublisher, opts importer.Options) *ImportService {
	return &ImportService{
		sessions:  sessions,
		accounts:  accounts,
		creator:   creator,
		publisher: publisher,
		options:   opts,
	}
}

// Start parses r and opens a session in the import state.
func (s *ImportService) Start(ctx context.Context, userID string, r io.Reader) (importer.SessionView, error) {
	if err := requireUser(userID); err != nil {
		return importer.SessionView{}, err
	}

	result, err := importer.Parse(r, s.options)
	if err != nil {
		return importer.SessionView{}, err
	}

	sess := s.sessions.Create(userID)
	if err := sess.Load(result); err != nil {
		return importer.SessionView{}, err
	}

	slog.InfoContext(ctx, "Import session started",
		"user_id", userID,
		"session_id", sess.ID(),
		"rows", len(result.Rows),
		"rejected", len(result.Errors))
	return sess.View(), nil
}

func (s *ImportService) List(userID string) ([]importer.SessionView, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	sessions := s.sessions.List(userID)
	views := make([]importer.SessionView, len(sessions))
	for i, sess := range sessions {
		views[i] = sess.View()
	}
	return views, nil
}

func (s *ImportService) Get(userID, id string) (importer.SessionView, error) {
	sess, err := s.session(userID, id)
	if err != nil {
		return importer.SessionView{}, err
	}
	return sess.View(), nil
}

// RequestAccount opens the account selection of a session.
func (s *ImportService) RequestAccount(userID, id string) (importer.SessionView, error) {
	return s.apply(userID, id, (*importer.Session).RequestAccount)
}

// ResolveAccount answers the pending selection. The account must belong to userID.
func (s *ImportService) ResolveAccount(ctx context.Context, userID, id, accountID string) (importer.SessionView, error) {
	sess, err := s.session(userID, id)
	if err != nil {
		return importer.SessionView{}, err
	}
	if accountID == "" {
		return importer.SessionView{}, core.ErrMissingAccount
	}
	if _, err := s.accounts.GetAccount(ctx, userID, accountID); err != nil {
		return importer.SessionView{}, err
	}
	if err := sess.Resolve(accountID); err != nil {
		return importer.SessionView{}, err
	}
	return sess.View(), nil
}

func (s *ImportService) DeclineAccount(userID, id string) (importer.SessionView, error) {
	return s.apply(userID, id, (*importer.Session).Decline)
}

func (s *ImportService) Cancel(userID, id string) (importer.SessionView, error) {
	return s.apply(userID, id, (*importer.Session).Cancel)
}

// Commit writes the session rows with one bulk create and announces the batch.
// A failed announcement is logged but does not fail the commit.
func (s *ImportService) Commit(ctx context.Context, userID, id string) ([]core.Transaction, error) {
	sess, err := s.session(userID, id)
	if err != nil {
		return nil, err
	}
	accountID, _ := sess.SelectedAccount()

	created, err := sess.Commit(ctx, s.creator)
	if err != nil {
		return nil, err
	}

	applog.NewStructuredLogger(applog.FromContext(ctx)).
		LogImportCommitted(ctx, userID, id, accountID, len(created))

	s.publish(ctx, userID, accountID, created)
	return created, nil
}

func (s *ImportService) publish(ctx context.Context, userID, accountID string, created []core.Transaction) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping import message")
		return
	}
	ids := make([]string, len(created))
	for i, t := range created {
		ids[i] = t.ID
	}
	if err := s.publisher.PublishImportCommitted(ctx, amqp.NewImportCommittedMessage(userID, accountID, ids)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish import message",
			"user_id", userID,
			"count", len(ids),
			"error", err)
	}
}

func (s *ImportService) session(userID, id string) (*importer.Session, error) {
	if err := requireUserAndID(userID, id); err != nil {
		return nil, err
	}
	return s.sessions.Get(userID, id)
}

func (s *ImportService) apply(userID, id string, op func(*importer.Session) error) (importer.SessionView, error) {
	sess, err := s.session(userID, id)
	if err != nil {
		return importer.SessionView{}, err
	}
	if err := op(sess); err != nil {
		return importer.SessionView{}, err
	}
	return sess.View(), nil
}
