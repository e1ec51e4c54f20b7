package model

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOHLCVDataPoint_IsValid(t *testing.T) {
	tests := []struct {
		name string
		bar  OHLCVDataPoint
		want bool
	}{
		{"consistent bar", OHLCVDataPoint{Open: 10, High: 12, Low: 9, Close: 11, Volume: 100}, true},
		{"flat bar", OHLCVDataPoint{Open: 10, High: 10, Low: 10, Close: 10}, true},
		{"high below close", OHLCVDataPoint{Open: 10, High: 10.5, Low: 9, Close: 11}, false},
		{"low above open", OHLCVDataPoint{Open: 8, High: 12, Low: 9, Close: 11}, false},
		{"nan volume", OHLCVDataPoint{Open: 10, High: 12, Low: 9, Close: 11, Volume: math.NaN()}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.bar.IsValid())
		})
	}
}

func TestDataSourceConfig_FetchParams(t *testing.T) {
	lat, lng := 40.7128, -74.006
	cfg := DataSourceConfig{
		Indicator: "temperature",
		Days:      30,
		Lat:       &lat,
		Lng:       &lng,
		Params:    map[string]string{"timePeriod": "20"},
	}

	params := cfg.FetchParams()
	assert.Equal(t, "30", params["days"])
	assert.Equal(t, "40.7128", params["lat"])
	assert.Equal(t, "-74.006", params["lng"])
	assert.Equal(t, "20", params["timePeriod"])
	assert.NotContains(t, params, "country", "empty fields must be left for connector defaults")
}

func TestDataPoint_XString(t *testing.T) {
	assert.Equal(t, "2024-01-01", DataPoint{X: "2024-01-01"}.XString())
	assert.Equal(t, "2020", DataPoint{X: 2020}.XString())
	assert.Equal(t, "2020", DataPoint{X: float64(2020)}.XString())
}

func TestLookupColorTheme(t *testing.T) {
	name, theme := LookupColorTheme("amber")
	assert.Equal(t, "amber", name)
	assert.Equal(t, "#F5A623", theme.Primary)

	name, theme = LookupColorTheme("neon")
	assert.Equal(t, DefaultColorTheme, name)
	assert.Equal(t, "#00D4AA", theme.Primary)
}

func TestDataSourceConfig_UnmarshalLooseShapes(t *testing.T) {
	var cfg DataSourceConfig
	err := json.Unmarshal([]byte(`{
		"indicator": "RSI",
		"symbol": "MSFT",
		"days": "90",
		"lat": "40.5",
		"lng": -73.9,
		"location": 900,
		"timePeriod": 14,
		"params": {"series_type": "close"}
	}`), &cfg)
	require.NoError(t, err)

	assert.Equal(t, "RSI", cfg.Indicator)
	assert.Equal(t, 90, cfg.Days)
	require.NotNil(t, cfg.Lat)
	assert.Equal(t, 40.5, *cfg.Lat)
	assert.Equal(t, -73.9, *cfg.Lng)
	assert.Equal(t, "900", cfg.Location)
	assert.Equal(t, map[string]string{"timePeriod": "14", "series_type": "close"}, cfg.Params)
}

func TestDataSourceConfig_UnmarshalRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"fractional days", `{"days": 1.5}`},
		{"non numeric lat", `{"lat": "north"}`},
		{"object indicator", `{"indicator": {"id": "GDP"}}`},
		{"array params", `{"params": ["a"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg DataSourceConfig
			assert.Error(t, json.Unmarshal([]byte(tt.raw), &cfg))
		})
	}
}

func TestDataSourceConfig_RoundTripKeepsParams(t *testing.T) {
	in := DataSourceConfig{Indicator: "SMA", Params: map[string]string{"timePeriod": "50"}}
	raw, err := json.Marshal(in)
	require.NoError(t, err)

	var out DataSourceConfig
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in, out)
}

func TestChartConfig_UnmarshalStringBooleans(t *testing.T) {
	var cfg ChartConfig
	require.NoError(t, json.Unmarshal([]byte(`{"colorTheme":"rose","showGrid":"true","fillArea":false,"extra":1}`), &cfg))
	assert.Equal(t, ChartConfig{ColorTheme: "rose", ShowGrid: true}, cfg)

	assert.Error(t, json.Unmarshal([]byte(`{"showGrid":"sometimes"}`), &cfg))
}
