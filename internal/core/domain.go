package core

import (
	"strings"

	"cloud.google.com/go/civil"
)

const (
	maxNameLength  = 100
	maxPayeeLength = 200
	maxNotesLength = 1000
)

type (
	Account struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		UserID string `json:"userId"`
	}

	Category struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		UserID string `json:"userId"`
	}

	// Transaction amounts are always milliunits: positive is income, negative is expense.
	Transaction struct {
		ID         string     `json:"id"`
		Amount     int64      `json:"amount"`
		Payee      string     `json:"payee"`
		Date       civil.Date `json:"date"`
		AccountID  string     `json:"accountId"`
		CategoryID *string    `json:"categoryId"`
		Notes      *string    `json:"notes"`
	}

	// TransactionDetail is a transaction joined with its account and category names.
	TransactionDetail struct {
		Transaction
		Account  string  `json:"account"`
		Category *string `json:"category"`
	}

	// NewTransaction is the creation payload for a single transaction.
	NewTransaction struct {
		Amount     int64      `json:"amount"`
		Payee      string     `json:"payee"`
		Date       civil.Date `json:"date"`
		AccountID  string     `json:"accountId"`
		CategoryID *string    `json:"categoryId"`
		Notes      *string    `json:"notes"`
	}

	// TransactionPatch carries the fields of a partial update. Nil fields are left
	// untouched; an empty CategoryID clears the category.
	TransactionPatch struct {
		Amount     *int64      `json:"amount"`
		Payee      *string     `json:"payee"`
		Date       *civil.Date `json:"date"`
		Notes      *string     `json:"notes"`
		CategoryID *string     `json:"categoryId"`
	}

	// TransactionFilter scopes a transaction listing.
	TransactionFilter struct {
		Period    Period
		AccountID string
	}
)

// ValidateName checks an account or category name.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > maxNameLength {
		return ErrNameTooLong
	}
	return nil
}

func (t NewTransaction) Validate() error {
	if strings.TrimSpace(t.AccountID) == "" {
		return ErrMissingAccount
	}
	if err := validatePayee(t.Payee); err != nil {
		return err
	}
	if err := validateDate(t.Date); err != nil {
		return err
	}
	if t.Notes != nil && len(*t.Notes) > maxNotesLength {
		return ErrNotesTooLong
	}
	return nil
}

// Normalize trims text fields and turns empty optionals into nil.
func (t NewTransaction) Normalize() NewTransaction {
	t.Payee = strings.TrimSpace(t.Payee)
	t.AccountID = strings.TrimSpace(t.AccountID)
	t.CategoryID = emptyToNil(t.CategoryID)
	t.Notes = emptyToNil(t.Notes)
	return t
}

func (p TransactionPatch) Validate() error {
	if p.Amount == nil && p.Payee == nil && p.Date == nil && p.Notes == nil && p.CategoryID == nil {
		return ErrEmptyPatch
	}
	if p.Payee != nil {
		if err := validatePayee(*p.Payee); err != nil {
			return err
		}
	}
	if p.Date != nil {
		if err := validateDate(*p.Date); err != nil {
			return err
		}
	}
	if p.Notes != nil && len(*p.Notes) > maxNotesLength {
		return ErrNotesTooLong
	}
	return nil
}

func validatePayee(payee string) error {
	payee = strings.TrimSpace(payee)
	if payee == "" {
		return ErrEmptyPayee
	}
	if len(payee) > maxPayeeLength {
		return ErrPayeeTooLong
	}
	return nil
}

func validateDate(d civil.Date) error {
	if d.IsZero() || !d.IsValid() {
		return ErrInvalidDate
	}
	return nil
}

func emptyToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
