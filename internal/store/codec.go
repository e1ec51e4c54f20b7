package store

import (
	"encoding/json"
	"fmt"

	"github.com/yourorg/datalens/internal/model"
)

// JSON blob columns are written from typed values and read back as loose
// maps, then coerced into the typed widget shape before leaving the package.

func encodeBlob(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeObject(raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, err
	}
	return m, nil
}

func decodeLayout(raw string) ([]model.WidgetLayout, error) {
	layout := []model.WidgetLayout{}
	if raw == "" || raw == "null" {
		return layout, nil
	}
	if err := json.Unmarshal([]byte(raw), &layout); err != nil {
		return nil, fmt.Errorf("decode layout: %w", err)
	}
	if layout == nil {
		layout = []model.WidgetLayout{}
	}
	return layout, nil
}

// widgetRow mirrors one row of the widgets table.
type widgetRow struct {
	id          string
	dashboardID string
	typ         string
	title       string
	dataSource  string
	params      string
	chartConfig string
}

func (r widgetRow) decode() (model.WidgetConfig, error) {
	params, err := decodeObject(r.params)
	if err != nil {
		return model.WidgetConfig{}, fmt.Errorf("widget %s: decode params: %w", r.id, err)
	}
	dsc, err := model.DataSourceConfigFromMap(params)
	if err != nil {
		return model.WidgetConfig{}, fmt.Errorf("widget %s: %w", r.id, err)
	}
	chart, err := decodeObject(r.chartConfig)
	if err != nil {
		return model.WidgetConfig{}, fmt.Errorf("widget %s: decode chart config: %w", r.id, err)
	}
	cc, err := model.ChartConfigFromMap(chart)
	if err != nil {
		return model.WidgetConfig{}, fmt.Errorf("widget %s: %w", r.id, err)
	}
	return model.WidgetConfig{
		ID:               r.id,
		Type:             model.ChartType(r.typ),
		Title:            r.title,
		DataSource:       r.dataSource,
		DataSourceConfig: dsc,
		ChartConfig:      cc,
	}, nil
}

func encodeWidget(w model.WidgetConfig) (params, chart string, err error) {
	if params, err = encodeBlob(w.DataSourceConfig); err != nil {
		return "", "", fmt.Errorf("encode params: %w", err)
	}
	if chart, err = encodeBlob(w.ChartConfig); err != nil {
		return "", "", fmt.Errorf("encode chart config: %w", err)
	}
	return params, chart, nil
}
