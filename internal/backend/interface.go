// Package backend builds the spreadsheet mirror selected by configuration.
package backend

import (
	"context"
	"errors"

	"fintrack/internal/sheets"
)

// ErrMirrorDisabled is returned when the configuration turns the mirror off.
var ErrMirrorDisabled = errors.New("mirror backend disabled")

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the mirror instance and optional cleanup function
type BackendResult struct {
	Mirror  sheets.TransactionMirror
	Cleanup CleanupFunc
}

// Close runs the cleanup function, if any.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates mirrors based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// BackendType names a mirror implementation.
type BackendType string

const (
	NoneBackend   BackendType = "none"
	MemoryBackend BackendType = "memory"
	SheetsBackend BackendType = "sheets"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case NoneBackend, MemoryBackend, SheetsBackend:
		return true
	default:
		return false
	}
}
