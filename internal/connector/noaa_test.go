package connector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const forecastBody = `{"properties":{"periods":[
	{"name":"Tonight","startTime":"2024-06-15T18:00:00-04:00","temperature":68,"probabilityOfPrecipitation":{"value":null}},
	{"name":"This Afternoon","startTime":"2024-06-15T14:00:00-04:00","temperature":81,"probabilityOfPrecipitation":{"value":20}},
	{"name":"Sunday","startTime":"2024-06-16T06:00:00-04:00","temperature":84,"probabilityOfPrecipitation":{"value":40}}
]}}`

func newNOAAUpstream(t *testing.T) *fakeUpstream {
	t.Helper()
	var up *fakeUpstream
	up = newFakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "(datalens.app, contact@datalens.app)", r.Header.Get("User-Agent"))
		switch r.URL.Path {
		case "/points/40.7128,-74.006":
			writeJSON(w, fmt.Sprintf(`{"properties":{"forecast":"%s/gridpoints/OKX/33,35/forecast"}}`, up.URL))
		case "/gridpoints/OKX/33,35/forecast":
			writeJSON(w, forecastBody)
		default:
			http.NotFound(w, r)
		}
	})
	return up
}

func TestNOAA_TemperatureForecast(t *testing.T) {
	up := newNOAAUpstream(t)
	c := NewNOAA(up.options())

	ds, err := c.Fetch(context.Background(), "temperature", map[string]string{"lat": "40.7128", "lng": "-74.0060"})
	require.NoError(t, err)

	assert.Equal(t, "noaa-temperature-40.7128,-74.006", ds.ID)
	assert.Equal(t, "NOAA National Weather Service", ds.Metadata.Source)
	require.Len(t, ds.Data, 3)
	assert.Equal(t, "This Afternoon", ds.Data[0].Label)
	assert.Equal(t, 81.0, ds.Data[0].Y)
	assertWellFormed(t, ds)
	assert.EqualValues(t, 2, up.hits.Load(), "points lookup then forecast")
}

func TestNOAA_PrecipitationDefaultsMissingToZero(t *testing.T) {
	up := newNOAAUpstream(t)
	c := NewNOAA(up.options())

	ds, err := c.Fetch(context.Background(), "precipitation", map[string]string{"lat": "40.7128", "lng": "-74.006"})
	require.NoError(t, err)
	require.Len(t, ds.Data, 3)
	assert.Equal(t, []float64{20, 0, 40}, []float64{ds.Data[0].Y, ds.Data[1].Y, ds.Data[2].Y})
}

func TestNOAA_RequiresCoordinatesBeforeNetwork(t *testing.T) {
	up := newNOAAUpstream(t)
	c := NewNOAA(up.options())

	tests := []struct {
		name      string
		params    map[string]string
		wantParam string
	}{
		{"no params", nil, "lat"},
		{"missing lng", map[string]string{"lat": "40.7"}, "lng"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Fetch(context.Background(), "temperature", tt.params)
			var missing *MissingParameterError
			require.True(t, errors.As(err, &missing), "want MissingParameterError, got %v", err)
			assert.Equal(t, tt.wantParam, missing.Param)
		})
	}
	assert.EqualValues(t, 0, up.hits.Load())
}

func TestNOAA_RejectsOutOfRangeCoordinates(t *testing.T) {
	c := NewNOAA(Options{})
	_, err := c.Fetch(context.Background(), "temperature", map[string]string{"lat": "91", "lng": "0"})
	var invalid *InvalidParameterError
	assert.True(t, errors.As(err, &invalid))
}

func TestNOAA_PointsWithoutForecast(t *testing.T) {
	up := newFakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"properties":{}}`)
	})
	c := NewNOAA(up.options())

	_, err := c.Fetch(context.Background(), "temperature", map[string]string{"lat": "10", "lng": "10"})
	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Contains(t, err.Error(), "no forecast URL")
}
