package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/yourorg/datalens/internal/model"
)

type createWidgetRequest struct {
	DashboardID string              `json:"dashboardId"`
	Widget      *model.WidgetConfig `json:"widget"`
}

type updateWidgetRequest struct {
	Widget *model.WidgetPatch `json:"widget"`
}

func (s *Server) createWidget(w http.ResponseWriter, r *http.Request) {
	var req createWidgetRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := requireField("dashboardId", req.DashboardID != ""); err != nil {
		writeError(w, r, err)
		return
	}
	if err := requireField("widget", req.Widget != nil); err != nil {
		writeError(w, r, err)
		return
	}

	id, err := s.dashboards.AddWidget(r.Context(), userID(r.Context()), req.DashboardID, *req.Widget)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successBody{ID: id, Success: true})
}

func (s *Server) updateWidget(w http.ResponseWriter, r *http.Request) {
	var req updateWidgetRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := requireField("widget", req.Widget != nil); err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.dashboards.UpdateWidget(r.Context(), userID(r.Context()), chi.URLParam(r, "id"), *req.Widget); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successBody{Success: true})
}

func (s *Server) deleteWidget(w http.ResponseWriter, r *http.Request) {
	if err := s.dashboards.DeleteWidget(r.Context(), userID(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successBody{Success: true})
}
