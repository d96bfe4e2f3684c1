// Package sheets defines the spreadsheet mirror that receives imported
// transactions. Adapters live in the google and memory subpackages.
package sheets

import (
	"context"

	"fintrack/internal/core"
)

// Header is the column layout of a mirror sheet.
var Header = []string{"Date", "Payee", "Amount", "Account", "Category", "Notes", "ID"}

// Ports for outbound adapters.
type (
	// TransactionMirror appends transactions to a spreadsheet. Implementations
	// skip transactions whose ID is already present, so redelivered batches do
	// not produce duplicate rows. It returns how many rows were written.
	TransactionMirror interface {
		AppendTransactions(ctx context.Context, txs []core.TransactionDetail) (int, error)
	}
)

// Row renders a transaction as mirror cells in Header order.
func Row(t core.TransactionDetail) []string {
	category := core.UncategorizedCategoryName
	if t.Category != nil {
		category = *t.Category
	}
	notes := ""
	if t.Notes != nil {
		notes = *t.Notes
	}
	return []string{
		t.Date.String(),
		t.Payee,
		core.FormatMilliunits(t.Amount),
		t.Account,
		category,
		notes,
		t.ID,
	}
}
