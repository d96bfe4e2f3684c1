package core

import (
	"strings"

	"cloud.google.com/go/civil"
)

const (
	// DateLayout is the only accepted wire format for dates.
	DateLayout = "2006-01-02"

	// SummaryLookbackDays is how far back a summary reaches when from is omitted.
	SummaryLookbackDays = 365
	// ListLookbackDays is the default window for transaction listings.
	ListLookbackDays = 30
)

// Period is an inclusive range of calendar days.
type Period struct {
	Start civil.Date `json:"from"`
	End   civil.Date `json:"to"`
}

// Days returns the number of calendar days covered, both ends included.
func (p Period) Days() int {
	return p.End.DaysSince(p.Start) + 1
}

// Previous returns the period of the same length that ends the day before p starts.
func (p Period) Previous() Period {
	n := p.Days()
	return Period{
		Start: p.Start.AddDays(-n),
		End:   p.End.AddDays(-n),
	}
}

func (p Period) Contains(d civil.Date) bool {
	return !d.Before(p.Start) && !d.After(p.End)
}

func (p Period) String() string {
	return p.Start.String() + ".." + p.End.String()
}

// ParseDate parses a strict yyyy-MM-dd date.
func ParseDate(s string) (civil.Date, error) {
	d, err := civil.ParseDate(strings.TrimSpace(s))
	if err != nil || !d.IsValid() {
		return civil.Date{}, ErrInvalidDateFormat
	}
	return d, nil
}

// ResolvePeriod resolves the optional from/to query values of a summary
// request into the current period and the comparison period before it.
// A missing to defaults to today; a missing from defaults to 365 days before to.
func ResolvePeriod(from, to string, today civil.Date) (current, previous Period, err error) {
	current, err = ResolveRange(from, to, today, SummaryLookbackDays)
	if err != nil {
		return Period{}, Period{}, err
	}
	return current, current.Previous(), nil
}

// ResolveRange resolves from/to with a configurable lookback for a missing from.
func ResolveRange(from, to string, today civil.Date, lookbackDays int) (Period, error) {
	end := today
	if strings.TrimSpace(to) != "" {
		d, err := ParseDate(to)
		if err != nil {
			return Period{}, err
		}
		end = d
	}

	start := end.AddDays(-lookbackDays)
	if strings.TrimSpace(from) != "" {
		d, err := ParseDate(from)
		if err != nil {
			return Period{}, err
		}
		start = d
	}

	if start.After(end) {
		return Period{}, ErrInvalidPeriod
	}
	return Period{Start: start, End: end}, nil
}
