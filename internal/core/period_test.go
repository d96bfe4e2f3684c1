package core

import (
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
)

func date(y, m, d int) civil.Date {
	return civil.Date{Year: y, Month: time.Month(m), Day: d}
}

func TestResolvePeriodDefaults(t *testing.T) {
	today := date(2025, 6, 30)
	cur, prev, err := ResolvePeriod("", "", today)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cur.Start != date(2024, 6, 30) || cur.End != today {
		t.Fatalf("unexpected current period %s", cur)
	}
	if prev.Start != date(2023, 6, 30) || prev.End != date(2024, 6, 29) {
		t.Fatalf("unexpected previous period %s", prev)
	}
	if cur.Days() != prev.Days() {
		t.Fatalf("periods differ in length: %d vs %d", cur.Days(), prev.Days())
	}
	if prev.End.AddDays(1) != cur.Start {
		t.Fatalf("previous period must end the day before the current one starts")
	}
}

func TestResolvePeriodExplicit(t *testing.T) {
	cur, prev, err := ResolvePeriod("2024-01-01", "2024-01-31", date(2025, 1, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cur.Days() != 31 {
		t.Fatalf("expected 31 days, got %d", cur.Days())
	}
	if prev.Start != date(2023, 12, 1) || prev.End != date(2023, 12, 31) {
		t.Fatalf("unexpected previous period %s", prev)
	}
}

func TestResolvePeriodOnlyTo(t *testing.T) {
	cur, _, err := ResolvePeriod("", "2024-03-01", date(2025, 1, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 2024 is a leap year, so 365 days back lands on March 2nd.
	if cur.Start != date(2023, 3, 2) {
		t.Fatalf("expected start 2023-03-02, got %s", cur.Start)
	}
}

func TestResolvePeriodSingleDay(t *testing.T) {
	cur, prev, err := ResolvePeriod("2024-05-10", "2024-05-10", date(2025, 1, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cur.Days() != 1 || prev.Start != date(2024, 5, 9) || prev.End != date(2024, 5, 9) {
		t.Fatalf("unexpected periods %s / %s", cur, prev)
	}
}

func TestResolvePeriodErrors(t *testing.T) {
	today := date(2025, 1, 1)
	cases := []struct {
		from, to string
		want     error
	}{
		{"2024-13-01", "", ErrInvalidDateFormat},
		{"01/02/2024", "", ErrInvalidDateFormat},
		{"", "2024-02-30", ErrInvalidDateFormat},
		{"2024-02-01", "2024-01-01", ErrInvalidPeriod},
	}
	for _, tc := range cases {
		_, _, err := ResolvePeriod(tc.from, tc.to, today)
		if !errors.Is(err, tc.want) {
			t.Fatalf("from=%q to=%q expected %v, got %v", tc.from, tc.to, tc.want, err)
		}
		if !errors.Is(err, ErrBadRequest) {
			t.Fatalf("from=%q to=%q expected a bad request error", tc.from, tc.to)
		}
	}
}

func TestResolveRangeListWindow(t *testing.T) {
	p, err := ResolveRange("", "", date(2024, 3, 31), ListLookbackDays)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Start != date(2024, 3, 1) {
		t.Fatalf("expected 2024-03-01, got %s", p.Start)
	}
	if !p.Contains(date(2024, 3, 15)) || p.Contains(date(2024, 2, 29)) {
		t.Fatalf("Contains is off for %s", p)
	}
}
