// Package dashboard enforces dashboard ownership and input rules on top of
// the persistence layer.
package dashboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/yourorg/datalens/internal/model"
	"github.com/yourorg/datalens/internal/render"
	"github.com/yourorg/datalens/internal/store"
	"github.com/yourorg/datalens/internal/validation"
)

var (
	// ErrAuthenticationRequired is returned when an operation needs a caller
	// identity and none was supplied.
	ErrAuthenticationRequired = errors.New("authentication required")

	// ErrForbidden is returned when the caller does not own the dashboard.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound is returned for a missing dashboard or widget.
	ErrNotFound = store.ErrNotFound
)

// Store is the persistence the service needs.
type Store interface {
	CreateDashboard(ctx context.Context, userID, name, description string) (string, error)
	DashboardsByUser(ctx context.Context, userID string) ([]model.Dashboard, error)
	DashboardByID(ctx context.Context, id string) (*model.Dashboard, error)
	UpdateDashboard(ctx context.Context, id string, patch model.DashboardPatch) error
	ReplaceWidgets(ctx context.Context, dashboardID string, widgets []model.WidgetConfig, patch model.DashboardPatch) error
	DeleteDashboard(ctx context.Context, id string) error
	CreateWidget(ctx context.Context, dashboardID string, w model.WidgetConfig) (string, error)
	UpdateWidget(ctx context.Context, id string, patch model.WidgetPatch) error
	DeleteWidget(ctx context.Context, id string) error
	WidgetDashboardID(ctx context.Context, id string) (string, error)
}

// Renderer renders a set of widgets.
type Renderer interface {
	RenderAll(ctx context.Context, widgets []model.WidgetConfig) []render.Result
}

// Service implements the dashboard operations for a caller identified by
// userID. An empty userID means an anonymous caller.
type Service struct {
	store    Store
	renderer Renderer
}

// NewService creates a Service.
func NewService(store Store, renderer Renderer) *Service {
	return &Service{store: store, renderer: renderer}
}

// List returns the caller's dashboards, most recently updated first.
func (s *Service) List(ctx context.Context, userID string) ([]model.Dashboard, error) {
	if userID == "" {
		return nil, ErrAuthenticationRequired
	}
	return s.store.DashboardsByUser(ctx, userID)
}

// Create makes an empty dashboard owned by the caller and returns its id.
func (s *Service) Create(ctx context.Context, userID, name, description string) (string, error) {
	if userID == "" {
		return "", ErrAuthenticationRequired
	}
	if err := validation.Title("title", name); err != nil {
		return "", err
	}
	if err := validation.Description("description", description); err != nil {
		return "", err
	}

	id, err := s.store.CreateDashboard(ctx, userID, name, description)
	if err != nil {
		return "", fmt.Errorf("create dashboard: %w", err)
	}
	logrus.WithFields(logrus.Fields{"dashboard": id, "user": userID}).Info("Dashboard created")
	return id, nil
}

// Get returns a dashboard the caller may read: their own, or any public one.
func (s *Service) Get(ctx context.Context, userID, id string) (*model.Dashboard, error) {
	d, err := s.store.DashboardByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.IsPublic || (userID != "" && d.UserID == userID) {
		return d, nil
	}
	if userID == "" {
		return nil, ErrAuthenticationRequired
	}
	return nil, ErrForbidden
}

// Render renders every widget of a readable dashboard. Widget failures are
// reported inline in the results.
func (s *Service) Render(ctx context.Context, userID, id string) ([]render.Result, error) {
	d, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return s.renderer.RenderAll(ctx, d.Widgets), nil
}

// Update applies a partial change to the caller's dashboard.
func (s *Service) Update(ctx context.Context, userID, id string, patch model.DashboardPatch) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	if err := validatePatch(patch); err != nil {
		return err
	}
	return s.store.UpdateDashboard(ctx, id, patch)
}

// ReplaceWidgets atomically swaps the widget set and layout of the caller's
// dashboard and applies the other fields of patch in the same write.
// patch.Layout is the new layout. Nothing is written unless the whole
// request is valid.
func (s *Service) ReplaceWidgets(ctx context.Context, userID, id string, widgets []model.WidgetConfig, patch model.DashboardPatch) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	if err := validation.Widgets(widgets); err != nil {
		return err
	}
	patch.SetLayout = true
	if err := validatePatch(patch); err != nil {
		return err
	}
	return s.store.ReplaceWidgets(ctx, id, widgets, patch)
}

// Delete removes the caller's dashboard with its widgets.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.store.DeleteDashboard(ctx, id); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{"dashboard": id, "user": userID}).Info("Dashboard deleted")
	return nil
}

// AddWidget appends a widget to the caller's dashboard and returns its id.
func (s *Service) AddWidget(ctx context.Context, userID, dashboardID string, w model.WidgetConfig) (string, error) {
	d, err := s.owned(ctx, userID, dashboardID)
	if err != nil {
		return "", err
	}
	if err := validation.Widget("widget", w); err != nil {
		return "", err
	}
	if len(d.Widgets) >= validation.MaxWidgets {
		return "", validation.Errorf("widget", "dashboard already has %d widgets", validation.MaxWidgets)
	}
	return s.store.CreateWidget(ctx, dashboardID, w)
}

// UpdateWidget applies a partial change to a widget on a dashboard the
// caller owns.
func (s *Service) UpdateWidget(ctx context.Context, userID, widgetID string, patch model.WidgetPatch) error {
	if err := s.ownedWidget(ctx, userID, widgetID); err != nil {
		return err
	}
	if err := validation.WidgetPatch(patch); err != nil {
		return err
	}
	return s.store.UpdateWidget(ctx, widgetID, patch)
}

// DeleteWidget removes a widget from a dashboard the caller owns.
func (s *Service) DeleteWidget(ctx context.Context, userID, widgetID string) error {
	if err := s.ownedWidget(ctx, userID, widgetID); err != nil {
		return err
	}
	return s.store.DeleteWidget(ctx, widgetID)
}

func validatePatch(patch model.DashboardPatch) error {
	if patch.Name != nil {
		if err := validation.Title("title", *patch.Name); err != nil {
			return err
		}
	}
	if patch.Description != nil {
		if err := validation.Description("description", *patch.Description); err != nil {
			return err
		}
	}
	if patch.SetLayout {
		return validation.Layout(patch.Layout)
	}
	return nil
}

// owned loads a dashboard for mutation by userID.
func (s *Service) owned(ctx context.Context, userID, id string) (*model.Dashboard, error) {
	if userID == "" {
		return nil, ErrAuthenticationRequired
	}
	d, err := s.store.DashboardByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.UserID != userID {
		logrus.WithFields(logrus.Fields{"dashboard": id, "user": userID}).Warn("Rejected mutation by non-owner")
		return nil, ErrForbidden
	}
	return d, nil
}

// ownedWidget resolves the widget's dashboard and checks its owner.
func (s *Service) ownedWidget(ctx context.Context, userID, widgetID string) error {
	if userID == "" {
		return ErrAuthenticationRequired
	}
	dashboardID, err := s.store.WidgetDashboardID(ctx, widgetID)
	if err != nil {
		return err
	}
	_, err = s.owned(ctx, userID, dashboardID)
	return err
}
