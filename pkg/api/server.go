// Package api serves the HTTP interface: auth, site catalog, flow
// management, execution control and history.
package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/navigator-hub/flow-runner/pkg/auth"
	"github.com/navigator-hub/flow-runner/pkg/logger"
	"github.com/navigator-hub/flow-runner/pkg/metrics"
	"github.com/navigator-hub/flow-runner/pkg/process"
	"github.com/navigator-hub/flow-runner/pkg/storage"
)

// FlowRunner is the supervisor surface the API needs.
// *process.Supervisor satisfies it.
type FlowRunner interface {
	Trigger(spec process.Spec) process.Result
	Stop(flowID string) process.Result
	IsRunning(flowID string) bool
	ListRunning() []string
}

// ScheduleReloader re-reads the cron schedule after flows change.
// *scheduler.Scheduler satisfies it.
type ScheduleReloader interface {
	Reload(flows []storage.Flow) int
}

// Config carries the server dependencies.
type Config struct {
	Store         *storage.Store
	Tokens        *auth.Tokens
	Runner        FlowRunner
	Schedule      ScheduleReloader // optional
	Metrics       *metrics.Collector
	ScreenshotDir string
	// AuthDisabled skips token checks and acts as a built-in superuser.
	// Development only.
	AuthDisabled bool
}

// Server holds the handlers for every API route.
type Server struct {
	store         *storage.Store
	tokens        *auth.Tokens
	runner        FlowRunner
	schedule      ScheduleReloader
	collector     *metrics.Collector
	screenshotDir string
	authDisabled  bool
}

// New builds the server.
func New(cfg Config) *Server {
	return &Server{
		store:         cfg.Store,
		tokens:        cfg.Tokens,
		runner:        cfg.Runner,
		schedule:      cfg.Schedule,
		collector:     cfg.Metrics,
		screenshotDir: cfg.ScreenshotDir,
		authDisabled:  cfg.AuthDisabled,
	}
}

// Handler returns the full route table wrapped in the middleware stack.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/token", s.login)
	mux.HandleFunc("POST /api/auth/bootstrap", s.bootstrap)
	mux.HandleFunc("GET /api/auth/me", s.requireUser(s.me))

	mux.HandleFunc("GET /api/catalog/categories", s.listCategories)
	mux.HandleFunc("POST /api/catalog/categories", s.requireUser(s.createCategory))
	mux.HandleFunc("DELETE /api/catalog/categories/{id}", s.requireUser(s.deleteCategory))
	mux.HandleFunc("GET /api/catalog/tags", s.listTags)
	mux.HandleFunc("POST /api/catalog/tags", s.requireUser(s.createTag))
	mux.HandleFunc("DELETE /api/catalog/tags/{id}", s.requireUser(s.deleteTag))

	mux.HandleFunc("GET /api/sites", s.listSites)
	mux.HandleFunc("POST /api/sites", s.requireUser(s.createSite))
	mux.HandleFunc("GET /api/sites/{id}", s.getSite)
	mux.HandleFunc("PUT /api/sites/{id}", s.requireUser(s.updateSite))
	mux.HandleFunc("DELETE /api/sites/{id}", s.requireUser(s.deleteSite))

	mux.HandleFunc("GET /api/flows", s.listFlows)
	mux.HandleFunc("POST /api/flows", s.requireUser(s.createFlow))
	mux.HandleFunc("GET /api/flows/{id}", s.getFlow)
	mux.HandleFunc("PUT /api/flows/{id}", s.requireUser(s.updateFlow))
	mux.HandleFunc("DELETE /api/flows/{id}", s.requireUser(s.deleteFlow))
	mux.HandleFunc("POST /api/flows/{id}/trigger", s.requireUser(s.triggerFlow))
	mux.HandleFunc("POST /api/flows/{id}/stop", s.requireUser(s.stopFlow))
	mux.HandleFunc("GET /api/flows/{id}/status", s.flowStatus)
	mux.HandleFunc("GET /api/flows/running/list", s.requireUser(s.listRunning))
	mux.HandleFunc("GET /api/flows/{id}/history", s.flowHistory)

	mux.HandleFunc("GET /api/history", s.listHistory)
	mux.HandleFunc("GET /api/history/{id}", s.getHistory)
	mux.HandleFunc("DELETE /api/history/{id}", s.requireUser(s.deleteHistory))

	mux.HandleFunc("GET /healthz", s.healthz)
	mux.Handle("GET /metrics", promhttp.Handler())
	if s.screenshotDir != "" {
		mux.Handle("GET /screenshots/",
			http.StripPrefix("/screenshots/", http.FileServer(http.Dir(s.screenshotDir))))
	}

	middlewares := []Middleware{Recovery(), RequestID(), RequestLogger()}
	if s.collector != nil {
		middlewares = append(middlewares, HTTPMetrics(s.collector, mux))
	}
	return Chain(mux, middlewares...)
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// reloadSchedule pushes the current scheduled-flow set to the scheduler
// after a flow changed.
func (s *Server) reloadSchedule() {
	if s.schedule == nil {
		return
	}
	flows, err := s.store.ListScheduledFlows()
	if err != nil {
		logger.Warn("Cannot reload the schedule: %v", err)
		return
	}
	s.schedule.Reload(flows)
}
