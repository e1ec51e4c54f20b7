package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/yourorg/datalens/internal/model"
	"github.com/yourorg/datalens/internal/render"
)

type createDashboardRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// updateDashboardRequest covers both the partial update and the bulk replace
// form. A request with widgets replaces the whole widget set and layout
// together with any other fields it carries.
type updateDashboardRequest struct {
	Title       *string               `json:"title"`
	Description *string               `json:"description"`
	IsPublic    *bool                 `json:"isPublic"`
	Layout      *[]model.WidgetLayout `json:"layout"`
	Widgets     *[]model.WidgetConfig `json:"widgets"`
}

type renderResponse struct {
	DashboardID string          `json:"dashboardId"`
	Widgets     []render.Result `json:"widgets"`
}

func (s *Server) listDashboards(w http.ResponseWriter, r *http.Request) {
	dashboards, err := s.dashboards.List(r.Context(), userID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if dashboards == nil {
		dashboards = []model.Dashboard{}
	}
	writeJSON(w, http.StatusOK, dashboards)
}

func (s *Server) createDashboard(w http.ResponseWriter, r *http.Request) {
	var req createDashboardRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	id, err := s.dashboards.Create(r.Context(), userID(r.Context()), req.Title, req.Description)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successBody{ID: id, Success: true})
}

func (s *Server) getDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.dashboards.Get(r.Context(), userID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) updateDashboard(w http.ResponseWriter, r *http.Request) {
	var req updateDashboardRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	ctx, user, id := r.Context(), userID(r.Context()), chi.URLParam(r, "id")

	patch := model.DashboardPatch{
		Name:        req.Title,
		Description: req.Description,
		IsPublic:    req.IsPublic,
	}
	if req.Layout != nil {
		patch.Layout = *req.Layout
		patch.SetLayout = true
	}

	var err error
	if req.Widgets != nil {
		err = s.dashboards.ReplaceWidgets(ctx, user, id, *req.Widgets, patch)
	} else {
		err = s.dashboards.Update(ctx, user, id, patch)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successBody{Success: true})
}

func (s *Server) deleteDashboard(w http.ResponseWriter, r *http.Request) {
	if err := s.dashboards.Delete(r.Context(), userID(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successBody{Success: true})
}

// renderDashboard renders every widget of the dashboard. Widget failures
// are reported per widget and never fail the request.
func (s *Server) renderDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.withFetchTimeout(r.Context())
	defer cancel()

	id := chi.URLParam(r, "id")
	results, err := s.dashboards.Render(ctx, userID(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, renderResponse{DashboardID: id, Widgets: results})
}
