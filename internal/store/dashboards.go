package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yourorg/datalens/internal/model"
)

const dashboardColumns = `id, user_id, title, description, is_public, layout_json, created_at, updated_at`

const widgetColumns = `w.id, w.dashboard_id, w.type, w.title, w.data_source, w.params_json, w.chart_config_json`

// CreateDashboard inserts an empty dashboard owned by userID and returns its id.
func (s *Store) CreateDashboard(ctx context.Context, userID, name, description string) (string, error) {
	id := uuid.NewString()
	ts := s.timestamp()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dashboards (id, user_id, title, description, is_public, layout_json, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 0, '[]', ?, ?)`,
		id, userID, name, description, ts, ts,
	)
	if err != nil {
		return "", fmt.Errorf("insert dashboard: %w", err)
	}
	return id, nil
}

// DashboardsByUser returns every dashboard owned by userID, most recently
// updated first, with widgets loaded.
func (s *Store) DashboardsByUser(ctx context.Context, userID string) ([]model.Dashboard, error) {
	dashboards := []model.Dashboard{}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			`SELECT `+dashboardColumns+` FROM dashboards WHERE user_id = ? ORDER BY updated_at DESC, id`, userID)
		if err != nil {
			return fmt.Errorf("query dashboards: %w", err)
		}
		dashboards, err = scanDashboards(rows)
		if err != nil {
			return err
		}

		widgets, err := loadWidgets(ctx, tx,
			`SELECT `+widgetColumns+` FROM widgets w JOIN dashboards d ON d.id = w.dashboard_id
			 WHERE d.user_id = ? ORDER BY w.position, w.created_at`, userID)
		if err != nil {
			return err
		}
		for i := range dashboards {
			if ws, ok := widgets[dashboards[i].ID]; ok {
				dashboards[i].Widgets = ws
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dashboards, nil
}

// DashboardByID returns the dashboard with its widgets, or ErrNotFound.
func (s *Store) DashboardByID(ctx context.Context, id string) (*model.Dashboard, error) {
	var d *model.Dashboard
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT `+dashboardColumns+` FROM dashboards WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("query dashboard: %w", err)
		}
		found, err := scanDashboards(rows)
		if err != nil {
			return err
		}
		if len(found) == 0 {
			return ErrNotFound
		}
		d = &found[0]

		widgets, err := loadWidgets(ctx, tx,
			`SELECT `+widgetColumns+` FROM widgets w WHERE w.dashboard_id = ? ORDER BY w.position, w.created_at`, id)
		if err != nil {
			return err
		}
		if ws, ok := widgets[id]; ok {
			d.Widgets = ws
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// UpdateDashboard applies the non-nil fields of patch and bumps updated_at.
// A new layout is fitted to the dashboard's current widgets.
func (s *Store) UpdateDashboard(ctx context.Context, id string, patch model.DashboardPatch) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var ids []string
		if patch.SetLayout {
			var err error
			if ids, err = widgetIDs(ctx, tx, id); err != nil {
				return err
			}
		}
		return s.patchDashboard(ctx, tx, id, patch, ids)
	})
}

// ReplaceWidgets swaps the whole widget set of a dashboard and applies patch
// in one transaction. patch.Layout becomes the new layout whether or not
// SetLayout is set. Widget ids supplied by the client are kept. On any
// failure the previous widgets, layout and fields remain.
func (s *Store) ReplaceWidgets(ctx context.Context, dashboardID string, widgets []model.WidgetConfig, patch model.DashboardPatch) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireDashboard(ctx, tx, dashboardID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM widgets WHERE dashboard_id = ?`, dashboardID); err != nil {
			return fmt.Errorf("delete widgets: %w", err)
		}

		ids := make([]string, 0, len(widgets))
		ts := s.timestamp()
		for i, w := range widgets {
			if w.ID == "" {
				w.ID = uuid.NewString()
			}
			if err := insertWidget(ctx, tx, dashboardID, w, i, ts); err != nil {
				return err
			}
			ids = append(ids, w.ID)
		}

		patch.SetLayout = true
		return s.patchDashboard(ctx, tx, dashboardID, patch, ids)
	})
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"dashboard": dashboardID,
		"widgets":   len(widgets),
	}).Debug("Replaced dashboard widgets")
	return nil
}

// patchDashboard writes the fields of patch and bumps updated_at. When
// patch.SetLayout is set the layout is fitted to ids first.
func (s *Store) patchDashboard(ctx context.Context, tx *sql.Tx, id string, patch model.DashboardPatch, ids []string) error {
	var (
		set  []string
		args []any
	)
	if patch.Name != nil {
		set = append(set, "title = ?")
		args = append(args, *patch.Name)
	}
	if patch.Description != nil {
		set = append(set, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.IsPublic != nil {
		set = append(set, "is_public = ?")
		args = append(args, *patch.IsPublic)
	}
	if patch.SetLayout {
		raw, err := encodeBlob(fitLayout(patch.Layout, ids))
		if err != nil {
			return fmt.Errorf("encode layout: %w", err)
		}
		set = append(set, "layout_json = ?")
		args = append(args, raw)
	}
	set = append(set, "updated_at = ?")
	args = append(args, s.timestamp(), id)

	res, err := tx.ExecContext(ctx, `UPDATE dashboards SET `+strings.Join(set, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("update dashboard: %w", err)
	}
	return expectRow(res)
}

// refitLayout fits the stored layout of a dashboard to its current widgets
// and bumps updated_at.
func (s *Store) refitLayout(ctx context.Context, tx *sql.Tx, dashboardID string) error {
	var raw string
	err := tx.QueryRowContext(ctx, `SELECT layout_json FROM dashboards WHERE id = ?`, dashboardID).Scan(&raw)
	if err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("query layout: %w", err)
	}
	layout, err := decodeLayout(raw)
	if err != nil {
		return err
	}
	ids, err := widgetIDs(ctx, tx, dashboardID)
	if err != nil {
		return err
	}
	return s.patchDashboard(ctx, tx, dashboardID, model.DashboardPatch{Layout: layout, SetLayout: true}, ids)
}

// DeleteDashboard removes a dashboard together with its widgets.
func (s *Store) DeleteDashboard(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM widgets WHERE dashboard_id = ?`, id); err != nil {
			return fmt.Errorf("delete widgets: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM dashboards WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete dashboard: %w", err)
		}
		return expectRow(res)
	})
}

func scanDashboards(rows *sql.Rows) ([]model.Dashboard, error) {
	defer rows.Close()

	dashboards := []model.Dashboard{}
	for rows.Next() {
		var (
			d                model.Dashboard
			layout           string
			created, updated int64
		)
		if err := rows.Scan(&d.ID, &d.UserID, &d.Name, &d.Description, &d.IsPublic, &layout, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan dashboard: %w", err)
		}
		var err error
		if d.Layout, err = decodeLayout(layout); err != nil {
			return nil, fmt.Errorf("dashboard %s: %w", d.ID, err)
		}
		d.CreatedAt = fromTimestamp(created)
		d.UpdatedAt = fromTimestamp(updated)
		d.Widgets = []model.WidgetConfig{}
		dashboards = append(dashboards, d)
	}
	return dashboards, rows.Err()
}

// loadWidgets runs query and groups the decoded widgets by dashboard id.
func loadWidgets(ctx context.Context, tx *sql.Tx, query string, args ...any) (map[string][]model.WidgetConfig, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query widgets: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]model.WidgetConfig)
	for rows.Next() {
		var r widgetRow
		if err := rows.Scan(&r.id, &r.dashboardID, &r.typ, &r.title, &r.dataSource, &r.params, &r.chartConfig); err != nil {
			return nil, fmt.Errorf("scan widget: %w", err)
		}
		w, err := r.decode()
		if err != nil {
			return nil, err
		}
		out[r.dashboardID] = append(out[r.dashboardID], w)
	}
	return out, rows.Err()
}

// widgetIDs returns the ids of a dashboard's widgets in display order.
func widgetIDs(ctx context.Context, tx *sql.Tx, dashboardID string) ([]string, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id FROM widgets WHERE dashboard_id = ? ORDER BY position, created_at`, dashboardID)
	if err != nil {
		return nil, fmt.Errorf("query widget ids: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Grid size of a widget that has no layout entry of its own.
const (
	defaultWidgetW = 6
	defaultWidgetH = 8
)

// fitLayout returns exactly one entry per widget id, in layout order. Entries
// for unknown or repeated ids are dropped and widgets without an entry are
// stacked below the lowest row at the default size.
func fitLayout(layout []model.WidgetLayout, ids []string) []model.WidgetLayout {
	placed := make(map[string]bool, len(ids))
	for _, id := range ids {
		placed[id] = false
	}

	fitted := make([]model.WidgetLayout, 0, len(ids))
	bottom := 0
	for _, l := range layout {
		if done, known := placed[l.I]; !known || done {
			continue
		}
		placed[l.I] = true
		fitted = append(fitted, l)
		bottom = max(bottom, l.Y+l.H)
	}
	for _, id := range ids {
		if placed[id] {
			continue
		}
		placed[id] = true
		fitted = append(fitted, model.WidgetLayout{I: id, Y: bottom, W: defaultWidgetW, H: defaultWidgetH})
		bottom += defaultWidgetH
	}
	return fitted
}

// isNotFound reports whether err signals a missing row.
func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, sql.ErrNoRows)
}
