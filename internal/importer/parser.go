// Package importer turns uploaded CSV statements into transactions.
//
// An upload is parsed into rows, held in a per-user session while the client
// picks the destination account, and finally written with one bulk create.
package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"fintrack/internal/core"
)

const (
	ColumnPayee    = "payee"
	ColumnAmount   = "amount"
	ColumnDate     = "date"
	ColumnNotes    = "notes"
	ColumnCategory = "category"

	DefaultMaxRows  = 5000
	DefaultMaxBytes = 5 << 20
)

var requiredColumns = []string{ColumnPayee, ColumnAmount, ColumnDate}

// Column aliases accepted in the header row.
var columnAliases = map[string]string{
	"description": ColumnPayee,
	"categoryid":  ColumnCategory,
	"category_id": ColumnCategory,
	"note":        ColumnNotes,
}

var (
	ErrEmptyFile   = core.NewBadRequest("csv file is empty")
	ErrTooManyRows = core.NewBadRequest("csv file has too many rows")
	ErrTooLarge    = core.NewBadRequest("csv file is too large")
)

type (
	// Options tunes the parser. The zero value is usable.
	Options struct {
		MaxRows  int
		MaxBytes int64
		// DateLayouts are tried in order after yyyy-MM-dd.
		DateLayouts []string
	}

	// Row is one accepted CSV line, amount already in milliunits.
	Row struct {
		Line       int        `json:"line"`
		Payee      string     `json:"payee"`
		Amount     int64      `json:"amount"`
		Date       civil.Date `json:"date"`
		Notes      *string    `json:"notes,omitempty"`
		CategoryID *string    `json:"categoryId,omitempty"`
	}

	// ParseError describes a rejected line.
	ParseError struct {
		Line    int    `json:"line"`
		Field   string `json:"field,omitempty"`
		Message string `json:"message"`
	}

	Meta struct {
		Fields    []string `json:"fields"`
		Delimiter string   `json:"delimiter"`
		RowCount  int      `json:"rowCount"`
		Rejected  int      `json:"rejected"`
	}

	ParseResult struct {
		Rows   []Row        `json:"rows"`
		Errors []ParseError `json:"errors"`
		Meta   Meta         `json:"meta"`
	}
)

func (e ParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return fmt.Sprintf("line %d: %s: %s", e.Line, e.Field, e.Message)
}

func (o Options) withDefaults() Options {
	if o.MaxRows <= 0 {
		o.MaxRows = DefaultMaxRows
	}
	if o.MaxBytes <= 0 {
		o.MaxBytes = DefaultMaxBytes
	}
	return o
}

// Parse reads a header-driven CSV statement. Bad lines are reported in
// ParseResult.Errors and skipped; only structural problems (missing columns,
// empty or oversized input) fail the whole parse.
func Parse(r io.Reader, opts Options) (ParseResult, error) {
	opts = opts.withDefaults()

	data, err := io.ReadAll(io.LimitReader(r, opts.MaxBytes+1))
	if err != nil {
		return ParseResult{}, fmt.Errorf("read csv: %w", err)
	}
	if int64(len(data)) > opts.MaxBytes {
		return ParseResult{}, ErrTooLarge
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if len(bytes.TrimSpace(data)) == 0 {
		return ParseResult{}, ErrEmptyFile
	}

	delim := detectDelimiter(data)
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return ParseResult{}, fmt.Errorf("read csv header: %w", err)
	}
	index, fields, err := headerIndex(header)
	if err != nil {
		return ParseResult{}, err
	}

	result := ParseResult{
		Rows:   []Row{},
		Errors: []ParseError{},
		Meta:   Meta{Fields: fields, Delimiter: string(delim)},
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			result.Errors = append(result.Errors, ParseError{Line: pe.Line, Message: pe.Err.Error()})
			continue
		}
		if err != nil {
			return ParseResult{}, fmt.Errorf("read csv: %w", err)
		}

		line, _ := reader.FieldPos(0)
		if blank(record) {
			continue
		}
		if result.Meta.RowCount >= opts.MaxRows {
			return ParseResult{}, ErrTooManyRows
		}
		result.Meta.RowCount++

		row, perr := parseRecord(record, index, line, opts.DateLayouts)
		if perr != nil {
			result.Errors = append(result.Errors, *perr)
			continue
		}
		result.Rows = append(result.Rows, row)
	}

	result.Meta.Rejected = len(result.Errors)
	return result, nil
}

func detectDelimiter(data []byte) rune {
	first := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		first = data[:i]
	}
	if bytes.Count(first, []byte(";")) > bytes.Count(first, []byte(",")) {
		return ';'
	}
	return ','
}

func headerIndex(header []string) (map[string]int, []string, error) {
	index := make(map[string]int, len(header))
	fields := make([]string, 0, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		if alias, ok := columnAliases[name]; ok {
			name = alias
		}
		fields = append(fields, name)
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, nil, core.NewBadRequest("missing required columns: " + strings.Join(missing, ", "))
	}
	return index, fields, nil
}

func parseRecord(record []string, index map[string]int, line int, layouts []string) (Row, *ParseError) {
	get := func(col string) string {
		i, ok := index[col]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	row := Row{Line: line, Payee: get(ColumnPayee)}
	if row.Payee == "" {
		return Row{}, &ParseError{Line: line, Field: ColumnPayee, Message: "payee is required"}
	}

	amount, err := core.ParseMilliunits(get(ColumnAmount))
	if err != nil {
		return Row{}, &ParseError{Line: line, Field: ColumnAmount, Message: fmt.Sprintf("invalid amount %q", get(ColumnAmount))}
	}
	row.Amount = amount

	date, ok := parseDate(get(ColumnDate), layouts)
	if !ok {
		return Row{}, &ParseError{Line: line, Field: ColumnDate, Message: fmt.Sprintf("invalid date %q", get(ColumnDate))}
	}
	row.Date = date

	if v := get(ColumnNotes); v != "" {
		row.Notes = &v
	}
	if v := get(ColumnCategory); v != "" {
		row.CategoryID = &v
	}

	// The destination account is chosen later; any id passes the account check.
	candidate := core.NewTransaction{
		Amount:     row.Amount,
		Payee:      row.Payee,
		Date:       row.Date,
		AccountID:  pendingAccountID,
		CategoryID: row.CategoryID,
		Notes:      row.Notes,
	}.Normalize()
	if err := candidate.Validate(); err != nil {
		return Row{}, &ParseError{Line: line, Field: fieldOf(err), Message: err.Error()}
	}
	return row, nil
}

const pendingAccountID = "pending"

func fieldOf(err error) string {
	switch {
	case errors.Is(err, core.ErrEmptyPayee), errors.Is(err, core.ErrPayeeTooLong):
		return ColumnPayee
	case errors.Is(err, core.ErrNotesTooLong):
		return ColumnNotes
	case errors.Is(err, core.ErrInvalidDate):
		return ColumnDate
	default:
		return ""
	}
}

func parseDate(s string, layouts []string) (civil.Date, bool) {
	if d, err := core.ParseDate(s); err == nil {
		return d, true
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return civil.DateOf(t), true
		}
	}
	return civil.Date{}, false
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
