package api

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/navigator-hub/flow-runner/pkg/storage"
)

// siteRead adds the flat tag id list clients use for edit forms.
type siteRead struct {
	storage.Site
	TagIDs []uint `json:"tag_ids"`
}

func siteToRead(site *storage.Site) siteRead {
	ids := make([]uint, 0, len(site.Tags))
	for _, tag := range site.Tags {
		ids = append(ids, tag.ID)
	}
	return siteRead{Site: *site, TagIDs: ids}
}

func validHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func (s *Server) listSites(w http.ResponseWriter, r *http.Request) {
	offset, limit := pageParams(r, 20)
	sites, err := s.store.ListSites(offset, limit)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}
	items := make([]siteRead, 0, len(sites))
	for i := range sites {
		items = append(items, siteToRead(&sites[i]))
	}
	WriteJSON(w, http.StatusOK, map[string]any{"total": len(items), "items": items})
}

func (s *Server) getSite(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		WriteError(w, http.StatusUnprocessableEntity, "Invalid id")
		return
	}
	site, err := s.store.GetSite(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Site not found")
			return
		}
		WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}
	WriteJSON(w, http.StatusOK, siteToRead(site))
}

func (s *Server) createSite(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name        string  `json:"name"`
		URL         string  `json:"url"`
		Description *string `json:"description"`
		CategoryID  *uint   `json:"category_id"`
		TagIDs      []uint  `json:"tag_ids"`
		IsActive    *bool   `json:"is_active"`
		SortOrder   int     `json:"sort_order"`
	}
	if err := decodeJSON(r, &body); err != nil {
		WriteError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	if body.Name == "" {
		WriteError(w, http.StatusUnprocessableEntity, "name is required")
		return
	}
	if !validHTTPURL(body.URL) {
		WriteError(w, http.StatusUnprocessableEntity, "Invalid url")
		return
	}

	site := &storage.Site{
		Name:        body.Name,
		URL:         body.URL,
		Description: body.Description,
		CategoryID:  body.CategoryID,
		SortOrder:   body.SortOrder,
		IsActive:    body.IsActive == nil || *body.IsActive,
	}
	created, err := s.store.CreateSite(site, body.TagIDs)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}
	WriteJSON(w, http.StatusCreated, siteToRead(created))
}

func (s *Server) updateSite(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		WriteError(w, http.StatusUnprocessableEntity, "Invalid id")
		return
	}
	site, err := s.store.GetSite(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Site not found")
			return
		}
		WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}

	var body struct {
		Name        *string `json:"name"`
		URL         *string `json:"url"`
		Description *string `json:"description"`
		CategoryID  *uint   `json:"category_id"`
		TagIDs      []uint  `json:"tag_ids"`
		IsActive    *bool   `json:"is_active"`
		SortOrder   *int    `json:"sort_order"`
	}
	if err := decodeJSON(r, &body); err != nil {
		WriteError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	if body.URL != nil && !validHTTPURL(*body.URL) {
		WriteError(w, http.StatusUnprocessableEntity, "Invalid url")
		return
	}

	if body.Name != nil {
		site.Name = *body.Name
	}
	if body.URL != nil {
		site.URL = *body.URL
	}
	if body.Description != nil {
		site.Description = body.Description
	}
	if body.CategoryID != nil {
		site.CategoryID = body.CategoryID
	}
	if body.IsActive != nil {
		site.IsActive = *body.IsActive
	}
	if body.SortOrder != nil {
		site.SortOrder = *body.SortOrder
	}

	updated, err := s.store.UpdateSite(site, body.TagIDs)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}
	WriteJSON(w, http.StatusOK, siteToRead(updated))
}

func (s *Server) deleteSite(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		WriteError(w, http.StatusUnprocessableEntity, "Invalid id")
		return
	}
	if err := s.store.DeleteSite(id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Site not found")
			return
		}
		WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
