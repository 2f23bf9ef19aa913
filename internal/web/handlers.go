package web

import (
	"net/http"

	"github.com/JonMunkholm/fieldverify/internal/core"
	"github.com/JonMunkholm/fieldverify/internal/logging"
	"github.com/JonMunkholm/fieldverify/internal/repository"
	"github.com/JonMunkholm/fieldverify/internal/web/templates"
)

// dashboardPageSize bounds the lead list on the landing page.
const dashboardPageSize = 50

// handleDashboard renders the main dashboard page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// A broken stats query should not take the whole page down.
	stats, err := s.service.Stats(ctx)
	if err != nil {
		logging.FromContext(ctx).Error("dashboard stats", "error", err)
	}

	page, err := s.service.ListLeads(ctx, repository.Filter{Limit: dashboardPageSize})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err = templates.Dashboard(templates.DashboardParams{
		Stats:   stats,
		Leads:   page.Leads,
		Total:   page.Total,
		Imports: s.service.ImportHistory(),
	}).Render(ctx, w)
	if err != nil {
		logging.FromContext(ctx).Error("render dashboard", "error", err)
	}
}

// healthResponse is the body of GET /healthz.
type healthResponse struct {
	Status  string                   `json:"status"`
	Storage string                   `json:"storage"`
	Imports core.ImportLimiterStatus `json:"imports"`
}

// handleHealth reports storage reachability and import slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:  "ok",
		Storage: "ok",
		Imports: s.service.ImportLimiterStatus(),
	}

	status := http.StatusOK
	if err := s.service.Ping(r.Context()); err != nil {
		logging.FromContext(r.Context()).Error("health check failed", "error", err)
		resp.Status = "degraded"
		resp.Storage = "unreachable"
		status = http.StatusServiceUnavailable
	}
	writeJSONStatus(w, status, resp)
}
