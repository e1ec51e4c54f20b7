package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/yourorg/datalens/internal/model"
)

func insertWidget(ctx context.Context, tx *sql.Tx, dashboardID string, w model.WidgetConfig, position int, ts int64) error {
	params, chart, err := encodeWidget(w)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO widgets (id, dashboard_id, type, title, data_source, params_json, chart_config_json, position, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID, dashboardID, string(w.Type), w.Title, w.DataSource, params, chart, position, ts,
	)
	if err != nil {
		return fmt.Errorf("insert widget %s: %w", w.ID, err)
	}
	return nil
}

// CreateWidget appends w to a dashboard and returns the widget id. An empty
// w.ID is replaced with a generated one. The widget gets a default layout
// entry below the existing ones.
func (s *Store) CreateWidget(ctx context.Context, dashboardID string, w model.WidgetConfig) (string, error) {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireDashboard(ctx, tx, dashboardID); err != nil {
			return err
		}

		var position int
		err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(position) + 1, 0) FROM widgets WHERE dashboard_id = ?`, dashboardID).Scan(&position)
		if err != nil {
			return fmt.Errorf("query widget position: %w", err)
		}

		ts := s.timestamp()
		if err := insertWidget(ctx, tx, dashboardID, w, position, ts); err != nil {
			return err
		}
		return s.refitLayout(ctx, tx, dashboardID)
	})
	if err != nil {
		return "", err
	}
	return w.ID, nil
}

// UpdateWidget applies the non-nil fields of patch and bumps the owning
// dashboard's updated_at.
func (s *Store) UpdateWidget(ctx context.Context, id string, patch model.WidgetPatch) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		dashboardID, err := widgetDashboardID(ctx, tx, id)
		if err != nil {
			return err
		}

		var (
			set  []string
			args []any
		)
		if patch.Type != nil {
			set = append(set, "type = ?")
			args = append(args, string(*patch.Type))
		}
		if patch.Title != nil {
			set = append(set, "title = ?")
			args = append(args, *patch.Title)
		}
		if patch.DataSource != nil {
			set = append(set, "data_source = ?")
			args = append(args, *patch.DataSource)
		}
		if patch.DataSourceConfig != nil {
			raw, err := encodeBlob(*patch.DataSourceConfig)
			if err != nil {
				return fmt.Errorf("encode params: %w", err)
			}
			set = append(set, "params_json = ?")
			args = append(args, raw)
		}
		if patch.ChartConfig != nil {
			raw, err := encodeBlob(*patch.ChartConfig)
			if err != nil {
				return fmt.Errorf("encode chart config: %w", err)
			}
			set = append(set, "chart_config_json = ?")
			args = append(args, raw)
		}

		if len(set) > 0 {
			args = append(args, id)
			if _, err := tx.ExecContext(ctx, `UPDATE widgets SET `+strings.Join(set, ", ")+` WHERE id = ?`, args...); err != nil {
				return fmt.Errorf("update widget: %w", err)
			}
		}
		return s.touch(ctx, tx, dashboardID)
	})
}

// DeleteWidget removes a widget and its layout entry.
func (s *Store) DeleteWidget(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		dashboardID, err := widgetDashboardID(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM widgets WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete widget: %w", err)
		}
		return s.refitLayout(ctx, tx, dashboardID)
	})
}

// WidgetDashboardID returns the id of the dashboard that owns a widget.
func (s *Store) WidgetDashboardID(ctx context.Context, id string) (string, error) {
	var dashboardID string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		dashboardID, err = widgetDashboardID(ctx, tx, id)
		return err
	})
	return dashboardID, err
}

func widgetDashboardID(ctx context.Context, tx *sql.Tx, id string) (string, error) {
	var dashboardID string
	err := tx.QueryRowContext(ctx, `SELECT dashboard_id FROM widgets WHERE id = ?`, id).Scan(&dashboardID)
	if err != nil {
		if isNotFound(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("query widget: %w", err)
	}
	return dashboardID, nil
}
