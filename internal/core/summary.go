package core

const (
	// TopCategories is the number of named spending buckets kept before "Other".
	TopCategories = 3

	OtherCategoryName         = "Other"
	UncategorizedCategoryName = "Uncategorized"
)

type (
	// FinancialSummary holds the raw totals of one period in milliunits.
	// Expenses is the signed sum of negative amounts and is never positive.
	FinancialSummary struct {
		Income    int64 `json:"income"`
		Expenses  int64 `json:"expenses"`
		Remaining int64 `json:"remaining"`
	}

	// PeriodSummary is a FinancialSummary annotated with the change against the
	// previous period. The change fields are percentages.
	PeriodSummary struct {
		Period
		FinancialSummary
		IncomeChange    float64 `json:"incomeChange"`
		ExpensesChange  float64 `json:"expensesChange"`
		RemainingChange float64 `json:"remainingChange"`
	}

	// CategoryAmount is the absolute spending of one category.
	CategoryAmount struct {
		Name  string `json:"name"`
		Value int64  `json:"value"`
	}

	Summary struct {
		CurrentPeriod   PeriodSummary    `json:"currentPeriod"`
		LastPeriod      PeriodSummary    `json:"lastPeriod"`
		FinalCategories []CategoryAmount `json:"finalCategories"`
	}
)

// PercentChange returns the relative change from previous to current in percent.
// A zero previous value yields 0 when current is also zero and 100 otherwise.
func PercentChange(current, previous int64) float64 {
	if previous == 0 {
		if current == 0 {
			return 0
		}
		return 100
	}
	return float64(current-previous) / float64(previous) * 100
}

// BucketCategories keeps the first TopCategories entries of a list already
// sorted by descending value and folds the rest into a single "Other" bucket.
// The result is never nil.
func BucketCategories(sorted []CategoryAmount) []CategoryAmount {
	if len(sorted) <= TopCategories {
		out := make([]CategoryAmount, len(sorted))
		copy(out, sorted)
		return out
	}

	out := make([]CategoryAmount, 0, TopCategories+1)
	out = append(out, sorted[:TopCategories]...)

	var other int64
	for _, c := range sorted[TopCategories:] {
		other += c.Value
	}
	return append(out, CategoryAmount{Name: OtherCategoryName, Value: other})
}

// NewSummary combines the totals of both periods into the summary payload.
// Both period entries carry the same change figures.
func NewSummary(current, previous Period, cur, prev FinancialSummary, categories []CategoryAmount) Summary {
	incomeChange := PercentChange(cur.Income, prev.Income)
	expensesChange := PercentChange(cur.Expenses, prev.Expenses)
	remainingChange := PercentChange(cur.Remaining, prev.Remaining)

	return Summary{
		CurrentPeriod: PeriodSummary{
			Period:           current,
			FinancialSummary: cur,
			IncomeChange:     incomeChange,
			ExpensesChange:   expensesChange,
			RemainingChange:  remainingChange,
		},
		LastPeriod: PeriodSummary{
			Period:           previous,
			FinancialSummary: prev,
			IncomeChange:     incomeChange,
			ExpensesChange:   expensesChange,
			RemainingChange:  remainingChange,
		},
		FinalCategories: BucketCategories(categories),
	}
}

// Totals computes a FinancialSummary from individual amounts.
func Totals(amounts []int64) FinancialSummary {
	var s FinancialSummary
	for _, a := range amounts {
		if a >= 0 {
			s.Income += a
		} else {
			s.Expenses += a
		}
	}
	s.Remaining = s.Income + s.Expenses
	return s
}
