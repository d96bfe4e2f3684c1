package importer

import "fintrack/internal/core"

// Reconcile maps parsed rows to creation payloads for accountID, keeping the
// row order. Empty notes and categories become nil.
func Reconcile(rows []Row, accountID string) []core.NewTransaction {
	out := make([]core.NewTransaction, len(rows))
	for i, r := range rows {
		out[i] = core.NewTransaction{
			Amount:     r.Amount,
			Payee:      r.Payee,
			Date:       r.Date,
			AccountID:  accountID,
			CategoryID: r.CategoryID,
			Notes:      r.Notes,
		}.Normalize()
	}
	return out
}
