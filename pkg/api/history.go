package api

import (
	"errors"
	"net/http"

	"github.com/navigator-hub/flow-runner/pkg/storage"
)

func (s *Server) listHistory(w http.ResponseWriter, r *http.Request) {
	offset, limit := pageParams(r, 50)
	errorKind := r.URL.Query().Get("error_kind")

	records, err := s.store.ListHistory(offset, limit, errorKind)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}
	total, err := s.store.CountHistory(errorKind)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"total": total, "items": records})
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		WriteError(w, http.StatusUnprocessableEntity, "Invalid id")
		return
	}
	rec, err := s.store.GetHistory(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "History not found")
			return
		}
		WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}
	WriteJSON(w, http.StatusOK, rec)
}

func (s *Server) deleteHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		WriteError(w, http.StatusUnprocessableEntity, "Invalid id")
		return
	}
	if err := s.store.DeleteHistory(id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "History not found")
			return
		}
		WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
