package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"fintrack/internal/importer"
)

func (s *Server) handleListImports(w http.ResponseWriter, r *http.Request) {
	views, err := s.svc.Imports.List(userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(views).Write(w)
}

// handleStartImport accepts the CSV as the raw body or as the "file" field of
// a multipart form.
func (s *Server) handleStartImport(w http.ResponseWriter, r *http.Request) {
	body, err := uploadReader(w, r, s.opts.MaxUploadBytes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer body.Close()

	view, err := s.svc.Imports.Start(r.Context(), userID(r), body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Data(view).Write(w)
}

func (s *Server) handleGetImport(w http.ResponseWriter, r *http.Request) {
	s.writeSession(w, r)(s.svc.Imports.Get(userID(r), chi.URLParam(r, "id")))
}

func (s *Server) handleRequestSelection(w http.ResponseWriter, r *http.Request) {
	s.writeSession(w, r)(s.svc.Imports.RequestAccount(userID(r), chi.URLParam(r, "id")))
}

func (s *Server) handleResolveSelection(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	s.writeSession(w, r)(s.svc.Imports.ResolveAccount(r.Context(), userID(r), chi.URLParam(r, "id"), req.AccountID))
}

func (s *Server) handleDeclineSelection(w http.ResponseWriter, r *http.Request) {
	s.writeSession(w, r)(s.svc.Imports.DeclineAccount(userID(r), chi.URLParam(r, "id")))
}

func (s *Server) handleCancelImport(w http.ResponseWriter, r *http.Request) {
	s.writeSession(w, r)(s.svc.Imports.Cancel(userID(r), chi.URLParam(r, "id")))
}

func (s *Server) handleCommitImport(w http.ResponseWriter, r *http.Request) {
	created, err := s.svc.Imports.Commit(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Data(countResponse{Count: int64(len(created))}).Write(w)
}

func (s *Server) writeSession(w http.ResponseWriter, r *http.Request) func(importer.SessionView, error) {
	return func(view importer.SessionView, err error) {
		if err != nil {
			writeError(w, r, err)
			return
		}
		NewJSONResponse().Data(view).Write(w)
	}
}
