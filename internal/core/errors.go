package core

import "errors"

// Error classes. Handlers map these to HTTP status codes with errors.Is.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

// Validation failures. Each one matches ErrBadRequest under errors.Is.
var (
	ErrMissingID         = badRequest("missing id")
	ErrEmptyIDs          = badRequest("ids must not be empty")
	ErrInvalidDateFormat = badRequest("invalid date format, expected yyyy-MM-dd")
	ErrInvalidPeriod     = badRequest("from must not be after to")
	ErrInvalidDate       = badRequest("invalid date")
	ErrInvalidAmount     = badRequest("invalid amount")
	ErrEmptyName         = badRequest("name is required")
	ErrNameTooLong       = badRequest("name too long (max 100 characters)")
	ErrEmptyPayee        = badRequest("payee is required")
	ErrPayeeTooLong      = badRequest("payee too long (max 200 characters)")
	ErrNotesTooLong      = badRequest("notes too long (max 1000 characters)")
	ErrMissingAccount    = badRequest("accountId is required")
	ErrEmptyPatch        = badRequest("no fields to update")
	ErrEmptyBatch        = badRequest("no transactions to create")
)

// classError carries a client-facing message and unwraps to its class.
type classError struct {
	msg   string
	class error
}

func (e *classError) Error() string { return e.msg }

func (e *classError) Unwrap() error { return e.class }

func badRequest(msg string) error {
	return &classError{msg: msg, class: ErrBadRequest}
}

// NewBadRequest returns an error that matches ErrBadRequest and whose message
// is safe to show to the client.
func NewBadRequest(msg string) error {
	return badRequest(msg)
}

// NewConflict returns an error that matches ErrConflict. Conflicts are
// recoverable: the client can fix the state and retry.
func NewConflict(msg string) error {
	return &classError{msg: msg, class: ErrConflict}
}
