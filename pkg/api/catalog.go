package api

import (
	"errors"
	"net/http"

	"github.com/navigator-hub/flow-runner/pkg/storage"
)

func (s *Server) listCategories(w http.ResponseWriter, _ *http.Request) {
	categories, err := s.store.ListCategories()
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}
	WriteJSON(w, http.StatusOK, categories)
}

func (s *Server) createCategory(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name        string  `json:"name"`
		Description *string `json:"description"`
	}
	if err := decodeJSON(r, &body); err != nil || body.Name == "" {
		WriteError(w, http.StatusUnprocessableEntity, "name is required")
		return
	}
	category, err := s.store.UpsertCategory(body.Name, body.Description)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}
	WriteJSON(w, http.StatusCreated, category)
}

func (s *Server) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		WriteError(w, http.StatusUnprocessableEntity, "Invalid id")
		return
	}
	if err := s.store.DeleteCategory(id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Category not found")
			return
		}
		WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listTags(w http.ResponseWriter, _ *http.Request) {
	tags, err := s.store.ListTags()
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}
	WriteJSON(w, http.StatusOK, tags)
}

func (s *Server) createTag(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name  string  `json:"name"`
		Color *string `json:"color"`
	}
	if err := decodeJSON(r, &body); err != nil || body.Name == "" {
		WriteError(w, http.StatusUnprocessableEntity, "name is required")
		return
	}
	tag, err := s.store.UpsertTag(body.Name, body.Color)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}
	WriteJSON(w, http.StatusCreated, tag)
}

func (s *Server) deleteTag(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		WriteError(w, http.StatusUnprocessableEntity, "Invalid id")
		return
	}
	if err := s.store.DeleteTag(id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Tag not found")
			return
		}
		WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
