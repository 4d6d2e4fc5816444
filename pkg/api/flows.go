package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/navigator-hub/flow-runner/pkg/core"
	"github.com/navigator-hub/flow-runner/pkg/scheduler"
	"github.com/navigator-hub/flow-runner/pkg/storage"
)

// flowRead presents the DSL as a JSON object rather than the stored string.
type flowRead struct {
	ID              uint            `json:"id"`
	SiteID          uint            `json:"site_id"`
	Name            string          `json:"name"`
	Description     *string         `json:"description"`
	CronExpression  *string         `json:"cron_expression"`
	IsActive        bool            `json:"is_active"`
	Headless        bool            `json:"headless"`
	BrowserKind     string          `json:"browser_kind"`
	BrowserPath     *string         `json:"browser_path"`
	UseAttachedMode bool            `json:"use_attached_mode"`
	DebugPort       int             `json:"debug_port"`
	ProfileDir      *string         `json:"profile_dir"`
	DSL             json.RawMessage `json:"dsl"`
	LastStatus      core.FlowStatus `json:"last_status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func flowToRead(f *storage.Flow) flowRead {
	return flowRead{
		ID:              f.ID,
		SiteID:          f.SiteID,
		Name:            f.Name,
		Description:     f.Description,
		CronExpression:  f.CronExpression,
		IsActive:        f.IsActive,
		Headless:        f.Headless,
		BrowserKind:     f.BrowserKind,
		BrowserPath:     f.BrowserPath,
		UseAttachedMode: f.UseAttachedMode,
		DebugPort:       f.DebugPort,
		ProfileDir:      f.ProfileDir,
		DSL:             json.RawMessage(f.DSL),
		LastStatus:      f.LastStatus,
		CreatedAt:       f.CreatedAt,
		UpdatedAt:       f.UpdatedAt,
	}
}

// validCron rejects a present, non-empty cron expression that does not
// parse. It writes the 400 response itself.
func validCron(w http.ResponseWriter, expr *string) bool {
	if expr == nil || *expr == "" {
		return true
	}
	if err := scheduler.ValidateCron(*expr); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (s *Server) listFlows(w http.ResponseWriter, r *http.Request) {
	offset, limit := pageParams(r, 20)
	flows, err := s.store.ListFlows(offset, limit)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}
	items := make([]flowRead, 0, len(flows))
	for i := range flows {
		items = append(items, flowToRead(&flows[i]))
	}
	WriteJSON(w, http.StatusOK, map[string]any{"total": len(items), "items": items})
}

func (s *Server) loadFlow(w http.ResponseWriter, r *http.Request) (*storage.Flow, bool) {
	id, ok := parseID(r)
	if !ok {
		WriteError(w, http.StatusUnprocessableEntity, "Invalid id")
		return nil, false
	}
	flow, err := s.store.GetFlow(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Flow not found")
			return nil, false
		}
		WriteError(w, http.StatusInternalServerError, "Database error")
		return nil, false
	}
	return flow, true
}

func (s *Server) getFlow(w http.ResponseWriter, r *http.Request) {
	flow, ok := s.loadFlow(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, flowToRead(flow))
}

func (s *Server) createFlow(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SiteID          uint            `json:"site_id"`
		Name            string          `json:"name"`
		Description     *string         `json:"description"`
		CronExpression  *string         `json:"cron_expression"`
		IsActive        *bool           `json:"is_active"`
		Headless        *bool           `json:"headless"`
		BrowserKind     string          `json:"browser_kind"`
		BrowserPath     *string         `json:"browser_path"`
		UseAttachedMode bool            `json:"use_attached_mode"`
		DebugPort       int             `json:"debug_port"`
		ProfileDir      *string         `json:"profile_dir"`
		DSL             json.RawMessage `json:"dsl"`
	}
	if err := decodeJSON(r, &body); err != nil {
		WriteError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	if body.SiteID == 0 {
		WriteError(w, http.StatusUnprocessableEntity, "site_id is required")
		return
	}
	if body.Name == "" {
		WriteError(w, http.StatusUnprocessableEntity, "name is required")
		return
	}
	if len(body.DSL) == 0 || !json.Valid(body.DSL) {
		WriteError(w, http.StatusUnprocessableEntity, "dsl must be a JSON object")
		return
	}
	if !validCron(w, body.CronExpression) {
		return
	}

	flow := &storage.Flow{
		SiteID:          body.SiteID,
		Name:            body.Name,
		Description:     body.Description,
		CronExpression:  body.CronExpression,
		IsActive:        body.IsActive == nil || *body.IsActive,
		Headless:        body.Headless == nil || *body.Headless,
		BrowserKind:     body.BrowserKind,
		BrowserPath:     body.BrowserPath,
		UseAttachedMode: body.UseAttachedMode,
		DebugPort:       body.DebugPort,
		ProfileDir:      body.ProfileDir,
		DSL:             string(body.DSL),
		LastStatus:      core.FlowIdle,
	}
	if flow.BrowserKind == "" {
		flow.BrowserKind = "chromium"
	}
	if flow.DebugPort == 0 {
		flow.DebugPort = 9222
	}
	if err := s.store.CreateFlow(flow); err != nil {
		WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}
	s.reloadSchedule()
	WriteJSON(w, http.StatusCreated, flowToRead(flow))
}

func (s *Server) updateFlow(w http.ResponseWriter, r *http.Request) {
	flow, ok := s.loadFlow(w, r)
	if !ok {
		return
	}

	var body struct {
		Name            *string         `json:"name"`
		Description     *string         `json:"description"`
		CronExpression  *string         `json:"cron_expression"`
		IsActive        *bool           `json:"is_active"`
		Headless        *bool           `json:"headless"`
		BrowserKind     *string         `json:"browser_kind"`
		BrowserPath     *string         `json:"browser_path"`
		UseAttachedMode *bool           `json:"use_attached_mode"`
		DebugPort       *int            `json:"debug_port"`
		ProfileDir      *string         `json:"profile_dir"`
		DSL             json.RawMessage `json:"dsl"`
	}
	if err := decodeJSON(r, &body); err != nil {
		WriteError(w, http.StatusUnprocessableEntity, "Invalid request body")
		return
	}
	if len(body.DSL) > 0 && !json.Valid(body.DSL) {
		WriteError(w, http.StatusUnprocessableEntity, "dsl must be a JSON object")
		return
	}
	if !validCron(w, body.CronExpression) {
		return
	}

	if body.Name != nil {
		flow.Name = *body.Name
	}
	if body.Description != nil {
		flow.Description = body.Description
	}
	if body.CronExpression != nil {
		flow.CronExpression = body.CronExpression
	}
	if body.IsActive != nil {
		flow.IsActive = *body.IsActive
	}
	if body.Headless != nil {
		flow.Headless = *body.Headless
	}
	if body.BrowserKind != nil {
		flow.BrowserKind = *body.BrowserKind
	}
	if body.BrowserPath != nil {
		flow.BrowserPath = body.BrowserPath
	}
	if body.UseAttachedMode != nil {
		flow.UseAttachedMode = *body.UseAttachedMode
	}
	if body.DebugPort != nil {
		flow.DebugPort = *body.DebugPort
	}
	if body.ProfileDir != nil {
		flow.ProfileDir = body.ProfileDir
	}
	if len(body.DSL) > 0 {
		flow.DSL = string(body.DSL)
	}

	if err := s.store.UpdateFlow(flow); err != nil {
		WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}
	s.reloadSchedule()
	WriteJSON(w, http.StatusOK, flowToRead(flow))
}

func (s *Server) deleteFlow(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		WriteError(w, http.StatusUnprocessableEntity, "Invalid id")
		return
	}
	if err := s.store.DeleteFlow(id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Flow not found")
			return
		}
		WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}
	s.reloadSchedule()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) triggerFlow(w http.ResponseWriter, r *http.Request) {
	flow, ok := s.loadFlow(w, r)
	if !ok {
		return
	}
	result := s.runner.Trigger(flow.ExecutionSpec(s.screenshotDir))
	WriteJSON(w, http.StatusOK, result)
}

func (s *Server) stopFlow(w http.ResponseWriter, r *http.Request) {
	flow, ok := s.loadFlow(w, r)
	if !ok {
		return
	}
	result := s.runner.Stop(strconv.FormatUint(uint64(flow.ID), 10))
	WriteJSON(w, http.StatusOK, result)
}

func (s *Server) flowStatus(w http.ResponseWriter, r *http.Request) {
	flow, ok := s.loadFlow(w, r)
	if !ok {
		return
	}
	running := s.runner.IsRunning(strconv.FormatUint(uint64(flow.ID), 10))
	WriteJSON(w, http.StatusOK, map[string]bool{"is_running": running})
}

func (s *Server) listRunning(w http.ResponseWriter, _ *http.Request) {
	ids := make([]int, 0)
	for _, raw := range s.runner.ListRunning() {
		if id, err := strconv.Atoi(raw); err == nil {
			ids = append(ids, id)
		}
	}
	WriteJSON(w, http.StatusOK, map[string][]int{"running_flows": ids})
}

func (s *Server) flowHistory(w http.ResponseWriter, r *http.Request) {
	flow, ok := s.loadFlow(w, r)
	if !ok {
		return
	}
	offset, limit := pageParams(r, 20)
	records, err := s.store.ListFlowHistory(flow.ID, offset, limit, r.URL.Query().Get("error_kind"))
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Database error")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"total": len(records), "items": records})
}
