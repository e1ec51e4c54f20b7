package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourorg/datalens/internal/model"
)

func validWidget(id string) model.WidgetConfig {
	return model.WidgetConfig{
		ID:               id,
		Type:             model.ChartLine,
		Title:            "Unemployment",
		DataSource:       "fred",
		DataSourceConfig: model.DataSourceConfig{Indicator: "UNRATE"},
	}
}

func TestTitle(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		wantErr bool
	}{
		{"plain", "Econ Overview", false},
		{"blank", "   ", true},
		{"too long", strings.Repeat("x", MaxTitleLength+1), true},
		{"multibyte at limit", strings.Repeat("é", MaxTitleLength), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Title("title", tt.title)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var verr *Error
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, "title", verr.Field)
		})
	}
}

func TestWidget(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(w *model.WidgetConfig)
		wantField string
	}{
		{"valid", func(w *model.WidgetConfig) {}, ""},
		{"server assigned id", func(w *model.WidgetConfig) { w.ID = "" }, ""},
		{"bad id", func(w *model.WidgetConfig) { w.ID = "widget-1" }, "widget.id"},
		{"unknown type", func(w *model.WidgetConfig) { w.Type = "radar" }, "widget.type"},
		{"no data source", func(w *model.WidgetConfig) { w.DataSource = "" }, "widget.dataSource"},
		{"no indicator", func(w *model.WidgetConfig) { w.DataSourceConfig.Indicator = " " }, "widget.dataSourceConfig.indicator"},
		{"unknown theme falls back later", func(w *model.WidgetConfig) { w.ChartConfig.ColorTheme = "neon" }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := validWidget("0f8fad5b-d9cb-469f-a165-70867728950e")
			tt.mutate(&w)
			err := Widget("widget", w)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var verr *Error
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.wantField, verr.Field)
		})
	}
}

func TestWidgets_RequiresUniqueIDs(t *testing.T) {
	id := "0f8fad5b-d9cb-469f-a165-70867728950e"
	assert.NoError(t, Widgets(nil))
	assert.NoError(t, Widgets([]model.WidgetConfig{validWidget(id)}))

	err := Widgets([]model.WidgetConfig{validWidget(id), validWidget(id)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "widgets[1].id")

	err = Widgets([]model.WidgetConfig{validWidget("")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is required")
}

func TestWidgetPatch(t *testing.T) {
	assert.Error(t, WidgetPatch(model.WidgetPatch{}))

	title := "New title"
	assert.NoError(t, WidgetPatch(model.WidgetPatch{Title: &title}))

	bad := model.ChartType("radar")
	assert.Error(t, WidgetPatch(model.WidgetPatch{Type: &bad}))

	assert.Error(t, WidgetPatch(model.WidgetPatch{DataSourceConfig: &model.DataSourceConfig{}}))
}

func TestLayout(t *testing.T) {
	tests := []struct {
		name    string
		layout  []model.WidgetLayout
		wantErr bool
	}{
		{"empty", nil, false},
		{"valid", []model.WidgetLayout{{I: "a", W: 6, H: 8}, {I: "b", X: 6, W: 6, H: 8, MinW: 2}}, false},
		{"missing i", []model.WidgetLayout{{W: 6, H: 8}}, true},
		{"duplicate i", []model.WidgetLayout{{I: "a", W: 1, H: 1}, {I: "a", W: 1, H: 1}}, true},
		{"negative x", []model.WidgetLayout{{I: "a", X: -1, W: 1, H: 1}}, true},
		{"zero width", []model.WidgetLayout{{I: "a", H: 1}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Layout(tt.layout)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOHLCV(t *testing.T) {
	good := model.OHLCVDataPoint{Date: "2024-06-14", Open: 10, High: 12, Low: 9, Close: 11, Volume: 100}
	bad := model.OHLCVDataPoint{Date: "2024-06-15", Open: 10, High: 10.5, Low: 9, Close: 11}

	assert.NoError(t, OHLCV([]model.OHLCVDataPoint{good}))
	assert.Error(t, OHLCV(nil))

	err := OHLCV([]model.OHLCVDataPoint{good, bad})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2024-06-15")
}
