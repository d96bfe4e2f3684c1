package importer

import (
	"errors"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"

	"fintrack/internal/core"
)

func TestParseValidRows(t *testing.T) {
	in := "Payee,Amount,Date,Notes,Category\n" +
		"Coffee,-3.50,2024-01-02,morning,cat-1\n" +
		"Salary,2500,2024-01-31,,\n"

	res, err := Parse(strings.NewReader(in), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Rows) != 2 || len(res.Errors) != 0 {
		t.Fatalf("expected 2 rows and no errors, got %+v", res)
	}

	first := res.Rows[0]
	if first.Line != 2 || first.Payee != "Coffee" || first.Amount != -3500 {
		t.Fatalf("unexpected first row %+v", first)
	}
	if first.Date != (civil.Date{Year: 2024, Month: time.January, Day: 2}) {
		t.Fatalf("unexpected date %v", first.Date)
	}
	if first.Notes == nil || *first.Notes != "morning" || first.CategoryID == nil || *first.CategoryID != "cat-1" {
		t.Fatalf("unexpected optionals %+v", first)
	}
	if res.Rows[1].Notes != nil || res.Rows[1].CategoryID != nil {
		t.Fatalf("empty optionals must be nil, got %+v", res.Rows[1])
	}
	if res.Meta.Delimiter != "," || res.Meta.RowCount != 2 {
		t.Fatalf("unexpected meta %+v", res.Meta)
	}
}

func TestParseReportsBadLines(t *testing.T) {
	in := "payee,amount,date\n" +
		"Good,1,2024-01-01\n" +
		",2,2024-01-01\n" +
		"BadAmount,abc,2024-01-01\n" +
		"BadDate,3,01/13/2024\n"

	res, err := Parse(strings.NewReader(in), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Rows) != 1 || res.Rows[0].Payee != "Good" {
		t.Fatalf("expected only the good row, got %+v", res.Rows)
	}

	want := []ParseError{
		{Line: 3, Field: ColumnPayee},
		{Line: 4, Field: ColumnAmount},
		{Line: 5, Field: ColumnDate},
	}
	if len(res.Errors) != len(want) {
		t.Fatalf("expected %d errors, got %+v", len(want), res.Errors)
	}
	for i, w := range want {
		if res.Errors[i].Line != w.Line || res.Errors[i].Field != w.Field {
			t.Fatalf("error %d: got %+v, want line %d field %s", i, res.Errors[i], w.Line, w.Field)
		}
	}
	if res.Meta.RowCount != 4 || res.Meta.Rejected != 3 {
		t.Fatalf("unexpected meta %+v", res.Meta)
	}
}

func TestParseSemicolonAndDecimalComma(t *testing.T) {
	in := "\xef\xbb\xbfdate;payee;amount\n15/03/2024;Market;-12,34\n"

	res, err := Parse(strings.NewReader(in), Options{DateLayouts: []string{"02/01/2006"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Meta.Delimiter != ";" {
		t.Fatalf("expected ; delimiter, got %q", res.Meta.Delimiter)
	}
	if len(res.Rows) != 1 || res.Rows[0].Amount != -12340 {
		t.Fatalf("unexpected rows %+v (errors %+v)", res.Rows, res.Errors)
	}
	if res.Rows[0].Date != (civil.Date{Year: 2024, Month: time.March, Day: 15}) {
		t.Fatalf("unexpected date %v", res.Rows[0].Date)
	}
}

func TestParseStructuralErrors(t *testing.T) {
	cases := []struct {
		name string
		in   string
		opts Options
		want error
	}{
		{"empty", "   \n", Options{}, ErrEmptyFile},
		{"too many rows", "payee,amount,date\na,1,2024-01-01\nb,1,2024-01-01\n", Options{MaxRows: 1}, ErrTooManyRows},
		{"too large", "payee,amount,date\n", Options{MaxBytes: 5}, ErrTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tc.in), tc.opts)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestParseMissingColumns(t *testing.T) {
	_, err := Parse(strings.NewReader("payee,value\nx,1\n"), Options{})
	if !errors.Is(err, core.ErrBadRequest) {
		t.Fatalf("expected bad request, got %v", err)
	}
	if !strings.Contains(err.Error(), "amount") || !strings.Contains(err.Error(), "date") {
		t.Fatalf("error should name the missing columns, got %q", err.Error())
	}
}

func TestParseRejectsRowsThatCannotBeStored(t *testing.T) {
	longPayee := strings.Repeat("x", 201)
	longNotes := strings.Repeat("n", 1001)
	in := "payee,amount,date,notes\n" +
		"Good,1,2024-01-01,\n" +
		longPayee + ",2,2024-01-01,\n" +
		"Notes,3,2024-01-01," + longNotes + "\n"

	res, err := Parse(strings.NewReader(in), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Rows) != 1 || res.Rows[0].Payee != "Good" {
		t.Fatalf("expected only the good row, got %+v", res.Rows)
	}

	want := []ParseError{
		{Line: 3, Field: ColumnPayee, Message: core.ErrPayeeTooLong.Error()},
		{Line: 4, Field: ColumnNotes, Message: core.ErrNotesTooLong.Error()},
	}
	if len(res.Errors) != len(want) {
		t.Fatalf("expected %d errors, got %+v", len(want), res.Errors)
	}
	for i, w := range want {
		if res.Errors[i] != w {
			t.Fatalf("error %d: got %+v, want %+v", i, res.Errors[i], w)
		}
	}
}
