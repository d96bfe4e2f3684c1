package http

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	txs, err := s.svc.Transactions.List(r.Context(), userID(r), services.ListQuery{
		AccountID: q.Get("accountId"),
		From:      q.Get("from"),
		To:        q.Get("to"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Field("transactions", txs).Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.svc.Transactions.Get(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(tx).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	payload, err := req.toNew()
	if err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := s.svc.Transactions.Create(r.Context(), userID(r), payload)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Data(tx).Write(w)
}

func (s *Server) handleBulkCreateTransactions(w http.ResponseWriter, r *http.Request) {
	var req []transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	batch := make([]core.NewTransaction, len(req))
	for i, item := range req {
		payload, err := item.toNew()
		if err != nil {
			writeError(w, r, core.NewBadRequest(fmt.Sprintf("transaction %d: %v", i, err)))
			return
		}
		batch[i] = payload
	}
	created, err := s.svc.Transactions.CreateTransactions(r.Context(), userID(r), batch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Data(countResponse{Count: int64(len(created))}).Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req patchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := s.svc.Transactions.Update(r.Context(), userID(r), chi.URLParam(r, "id"), req.toPatch())
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(tx).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.svc.Transactions.Delete(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(tx).Write(w)
}

func (s *Server) handleBulkDeleteTransactions(w http.ResponseWriter, r *http.Request) {
	var req idsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	n, err := s.svc.Transactions.DeleteMany(r.Context(), userID(r), req.IDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(countResponse{Count: n}).Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	summary, err := s.svc.Summary.Summary(r.Context(), services.SummaryQuery{
		UserID:    userID(r),
		AccountID: q.Get("accountId"),
		From:      q.Get("from"),
		To:        q.Get("to"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(summary).Write(w)
}
