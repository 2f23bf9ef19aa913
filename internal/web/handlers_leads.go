package web

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/fieldverify/internal/lead"
	"github.com/JonMunkholm/fieldverify/internal/web/templates"
)

// leadListResponse is the JSON body of GET /api/leads.
type leadListResponse struct {
	Leads  []lead.Lead `json:"leads"`
	Total  int         `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

// handleListLeads returns a filtered page of leads. HTMX requests get the
// table fragment.
func (s *Server) handleListLeads(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r, true)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	page, err := s.service.ListLeads(r.Context(), f)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = templates.LeadTable(page.Leads, page.Total).Render(r.Context(), w)
		return
	}

	leads := page.Leads
	if leads == nil {
		leads = []lead.Lead{}
	}
	writeJSON(w, leadListResponse{
		Leads:  leads,
		Total:  page.Total,
		Limit:  f.Limit,
		Offset: f.Offset,
	})
}

func (s *Server) handleGetLead(w http.ResponseWriter, r *http.Request) {
	l, err := s.service.GetLead(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, l)
}

func (s *Server) handleCreateLead(w http.ResponseWriter, r *http.Request) {
	var l lead.Lead
	if err := decodeJSON(w, r, &l); err != nil {
		s.respondError(w, r, err)
		return
	}

	created, err := s.service.CreateLead(r.Context(), l)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, created)
}

// handleUpdateLead replaces a lead. The ID in the path wins over the body.
func (s *Server) handleUpdateLead(w http.ResponseWriter, r *http.Request) {
	var l lead.Lead
	if err := decodeJSON(w, r, &l); err != nil {
		s.respondError(w, r, err)
		return
	}
	l.ID = chi.URLParam(r, "id")

	updated, err := s.service.UpdateLead(r.Context(), l)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, updated)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	updated, err := s.service.UpdateStatus(r.Context(), chi.URLParam(r, "id"), lead.Status(strings.TrimSpace(req.Status)))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, updated)
}

type assignRequest struct {
	AssignedTo string `json:"assignedTo"`
}

// handleAssign sets or clears the agent on a lead.
func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	updated, err := s.service.Assign(r.Context(), chi.URLParam(r, "id"), req.AssignedTo)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, updated)
}

type deleteRequest struct {
	IDs []string `json:"ids"`
}

// handleDeleteLeads removes leads in bulk.
func (s *Server) handleDeleteLeads(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "no lead IDs provided")
		return
	}

	n, err := s.service.DeleteLeads(r.Context(), req.IDs)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]int{"deleted": n})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.service.Stats(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, st)
}
