// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"cloud.google.com/go/civil"

	"fintrack/internal/core"
	"fintrack/internal/middleware/auth"
)

const maxJSONBodyBytes = 1 << 20

var errInvalidJSON = core.NewBadRequest("invalid JSON body")

// decodeJSON reads a single JSON value from the request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, core.ErrBadRequest) {
			return err
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return core.NewBadRequest("request body too large")
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return core.NewBadRequest(fmt.Sprintf("invalid value for %s", typeErr.Field))
		}
		return errInvalidJSON
	}
	if dec.More() {
		return errInvalidJSON
	}
	return nil
}

// userID returns the authenticated caller, set by the auth middleware.
func userID(r *http.Request) string {
	return auth.UserID(r.Context())
}

// Amount accepts either integer milliunits (1234) or a decimal string ("1.234")
// that is converted through the amount normalizer.
type Amount int64

func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return core.ErrInvalidAmount
		}
		v, err := core.ParseMilliunits(s)
		if err != nil {
			return err
		}
		*a = Amount(v)
		return nil
	}
	v, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return core.ErrInvalidAmount
	}
	*a = Amount(v)
	return nil
}

// Date accepts yyyy-MM-dd strings.
type Date civil.Date

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return core.ErrInvalidDateFormat
	}
	v, err := core.ParseDate(s)
	if err != nil {
		return err
	}
	*d = Date(v)
	return nil
}

type nameRequest struct {
	Name string `json:"name"`
}

type idsRequest struct {
	IDs []string `json:"ids"`
}

type transactionRequest struct {
	Amount     *Amount `json:"amount"`
	Payee      string  `json:"payee"`
	Date       *Date   `json:"date"`
	AccountID  string  `json:"accountId"`
	CategoryID *string `json:"categoryId"`
	Notes      *string `json:"notes"`
}

func (t transactionRequest) toNew() (core.NewTransaction, error) {
	if t.Amount == nil {
		return core.NewTransaction{}, core.ErrInvalidAmount
	}
	if t.Date == nil {
		return core.NewTransaction{}, core.ErrInvalidDate
	}
	return core.NewTransaction{
		Amount:     int64(*t.Amount),
		Payee:      t.Payee,
		Date:       civil.Date(*t.Date),
		AccountID:  t.AccountID,
		CategoryID: t.CategoryID,
		Notes:      t.Notes,
	}, nil
}

type patchRequest struct {
	Amount     *Amount `json:"amount"`
	Payee      *string `json:"payee"`
	Date       *Date   `json:"date"`
	Notes      *string `json:"notes"`
	CategoryID *string `json:"categoryId"`
}

func (p patchRequest) toPatch() core.TransactionPatch {
	patch := core.TransactionPatch{
		Payee:      p.Payee,
		Notes:      p.Notes,
		CategoryID: p.CategoryID,
	}
	if p.Amount != nil {
		v := int64(*p.Amount)
		patch.Amount = &v
	}
	if p.Date != nil {
		d := civil.Date(*p.Date)
		patch.Date = &d
	}
	return patch
}

type resolveRequest struct {
	AccountID string `json:"accountId"`
}

// uploadReader returns the CSV payload of an import request: the "file" part
// of a multipart form, or the raw body otherwise. The caller closes it.
func uploadReader(w http.ResponseWriter, r *http.Request, maxBytes int64) (io.ReadCloser, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return r.Body, nil
	}

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, core.NewBadRequest("csv file is too large")
		}
		return nil, core.NewBadRequest("invalid multipart body")
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, core.NewBadRequest("missing file field")
	}
	return file, nil
}
