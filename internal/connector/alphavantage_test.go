package connector

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dailySeriesBody = `{
	"Meta Data": {"2. Symbol": "IBM"},
	"Time Series (Daily)": {
		"2024-01-03": {"1. open": "161.0", "2. high": "163.5", "3. low": "160.1", "4. close": "162.2", "5. volume": "4200000"},
		"2024-01-02": {"1. open": "160.0", "2. high": "161.9", "3. low": "158.7", "4. close": "161.5", "5. volume": "3900000"}
	}
}`

func TestAlphaVantage_DailySeries(t *testing.T) {
	up := newFakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/query", r.URL.Path)
		assert.Equal(t, "TIME_SERIES_DAILY", q.Get("function"))
		assert.Equal(t, "MSFT", q.Get("symbol"))
		assert.Equal(t, "demo", q.Get("apikey"))
		writeJSON(w, dailySeriesBody)
	})
	c := NewAlphaVantage(up.options())

	ds, err := c.Fetch(context.Background(), "TIME_SERIES_DAILY", map[string]string{"symbol": "msft"})
	require.NoError(t, err)

	assert.Equal(t, "alphavantage-TIME_SERIES_DAILY-MSFT", ds.ID)
	assert.True(t, ds.Metadata.IsOHLCV)
	assert.False(t, ds.Metadata.Degraded)
	require.Len(t, ds.OHLCVData, 2)
	require.Len(t, ds.Data, 2)
	assert.Equal(t, "2024-01-02", ds.OHLCVData[0].Date)
	assert.Equal(t, 161.5, ds.Data[0].Y, "line points carry the close price")
	assert.Equal(t, "O: 160 H: 161.9 L: 158.7 V: 3900000", ds.Data[0].Label)
	assertWellFormed(t, ds)
}

func TestAlphaVantage_TechnicalIndicator(t *testing.T) {
	up := newFakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "RSI", q.Get("function"))
		assert.Equal(t, "daily", q.Get("interval"))
		assert.Equal(t, "14", q.Get("time_period"))
		assert.Equal(t, "close", q.Get("series_type"))
		writeJSON(w, `{
			"Meta Data": {"1: Symbol": "IBM"},
			"Technical Analysis: RSI": {
				"2024-01-03": {"RSI": "61.2"},
				"2024-01-02": {"RSI": "58.4"}
			}
		}`)
	})
	c := NewAlphaVantage(up.options())

	ds, err := c.Fetch(context.Background(), "RSI", nil)
	require.NoError(t, err)

	assert.Equal(t, "alphavantage-RSI-IBM-daily-14", ds.ID)
	assert.False(t, ds.Metadata.IsOHLCV)
	require.Len(t, ds.Data, 2)
	assert.Equal(t, "2024-01-02", ds.Data[0].X)
	assert.Equal(t, 58.4, ds.Data[0].Y)
	assertWellFormed(t, ds)
}

func TestAlphaVantage_MACDPrefersNamedValue(t *testing.T) {
	up := newFakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "12", r.URL.Query().Get("fastperiod"))
		writeJSON(w, `{"Technical Analysis: MACD": {
			"2024-01-02": {"MACD_Signal": "0.5", "MACD": "1.25", "MACD_Hist": "0.75"}
		}}`)
	})
	c := NewAlphaVantage(up.options())

	ds, err := c.Fetch(context.Background(), "MACD", nil)
	require.NoError(t, err)
	require.Len(t, ds.Data, 1)
	assert.Equal(t, 1.25, ds.Data[0].Y, "the value named after the indicator is preferred")
}

func TestAlphaVantage_ProviderNoticesDegrade(t *testing.T) {
	notices := map[string]string{
		"error message": `{"Error Message": "Invalid API call."}`,
		"rate limit":    `{"Note": "Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute."}`,
		"information":   `{"Information": "The **demo** API key is for demo purposes only."}`,
	}

	for name, body := range notices {
		t.Run(name, func(t *testing.T) {
			up := newFakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, body)
			})
			c := NewAlphaVantage(up.options())

			ds, err := c.Fetch(context.Background(), "TIME_SERIES_DAILY", nil)
			require.NoError(t, err)
			assert.True(t, ds.Metadata.Degraded)
			assert.Len(t, ds.OHLCVData, syntheticPoints)
			assert.Len(t, ds.Data, syntheticPoints)
			assertWellFormed(t, ds)
		})
	}
}

func TestAlphaVantage_SyntheticIntraday(t *testing.T) {
	up := newFakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	c := NewAlphaVantage(up.options())

	ds, err := c.Fetch(context.Background(), "TIME_SERIES_INTRADAY", map[string]string{"interval": "15min"})
	require.NoError(t, err)

	assert.Equal(t, "alphavantage-TIME_SERIES_INTRADAY-IBM-15min", ds.ID, "the interval is part of the id")
	assert.True(t, ds.Metadata.Degraded)
	require.Len(t, ds.OHLCVData, syntheticPoints)
	assert.Equal(t, "2024-06-15 12:00:00", ds.OHLCVData[syntheticPoints-1].Date)
	assert.Equal(t, "2024-06-15 11:45:00", ds.OHLCVData[syntheticPoints-2].Date)
	assertWellFormed(t, ds)
}

func TestAlphaVantage_InvalidInterval(t *testing.T) {
	up := newFakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {})
	c := NewAlphaVantage(up.options())

	_, err := c.Fetch(context.Background(), "TIME_SERIES_INTRADAY", map[string]string{"interval": "daily"})
	var invalid *InvalidParameterError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "interval", invalid.Param)
	assert.EqualValues(t, 0, up.hits.Load())
}
