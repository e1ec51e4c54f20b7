package connector

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFRED_NoAPIKeyServesDegradedData(t *testing.T) {
	up := newFakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no upstream call expected without an API key")
	})
	c := NewFRED(up.options())

	ds, err := c.Fetch(context.Background(), "UNRATE", nil)
	require.NoError(t, err)

	assert.Equal(t, "fred-UNRATE", ds.ID)
	assert.Equal(t, "FRED", ds.Metadata.Source)
	assert.Equal(t, "%", ds.Metadata.Unit)
	assert.True(t, ds.Metadata.Degraded)
	require.NotEmpty(t, ds.Data)
	assert.Equal(t, "2015-01-01", ds.Data[0].X)
	assertWellFormed(t, ds)
	assert.EqualValues(t, 0, up.hits.Load())
}

func TestFRED_SyntheticDataIsDeterministic(t *testing.T) {
	c := NewFRED(Options{Now: func() time.Time { return fixedNow }})
	params := map[string]string{"startDate": "2020-01-01", "endDate": "2020-12-31"}

	first, err := c.Fetch(context.Background(), "GDP", params)
	require.NoError(t, err)
	second, err := c.Fetch(context.Background(), "GDP", params)
	require.NoError(t, err)

	assert.Len(t, first.Data, 12)
	assert.Equal(t, first.Data, second.Data)
}

func TestFRED_FetchesAndStripsSentinels(t *testing.T) {
	up := newFakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/series/observations", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "UNRATE", q.Get("series_id"))
		assert.Equal(t, "secret", q.Get("api_key"))
		assert.Equal(t, "json", q.Get("file_type"))
		assert.Equal(t, "2015-01-01", q.Get("observation_start"))
		assert.Equal(t, "2024-06-15", q.Get("observation_end"))
		writeJSON(w, `{"observations":[
			{"date":"2024-03-01","value":"3.9"},
			{"date":"2024-01-01","value":"3.7"},
			{"date":"2024-02-01","value":"."}
		]}`)
	})
	opts := up.options()
	opts.APIKey = "secret"
	c := NewFRED(opts)

	ds, err := c.Fetch(context.Background(), "UNRATE", map[string]string{})
	require.NoError(t, err)

	assert.False(t, ds.Metadata.Degraded)
	require.Len(t, ds.Data, 2)
	assert.Equal(t, "2024-01-01", ds.Data[0].X)
	assert.Equal(t, 3.7, ds.Data[0].Y)
	assert.Equal(t, "2024-03-01", ds.Data[1].X)
	assertWellFormed(t, ds)
}

func TestFRED_UpstreamErrorPropagatesWithKey(t *testing.T) {
	up := newFakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	opts := up.options()
	opts.APIKey = "secret"
	c := NewFRED(opts)

	_, err := c.Fetch(context.Background(), "GDP", nil)
	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr), "want FetchError, got %v", err)
	assert.Equal(t, http.StatusInternalServerError, fetchErr.StatusCode)
}

func TestFRED_UnknownIndicator(t *testing.T) {
	up := newFakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {})
	opts := up.options()
	opts.APIKey = "secret"
	c := NewFRED(opts)

	_, err := c.Fetch(context.Background(), "NOT_A_SERIES", nil)
	var unknown *UnknownIndicatorError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "NOT_A_SERIES", unknown.Indicator)
	assert.EqualValues(t, 0, up.hits.Load(), "unknown indicator must fail before any network call")
}

func TestFRED_InvalidDate(t *testing.T) {
	c := NewFRED(Options{})
	_, err := c.Fetch(context.Background(), "GDP", map[string]string{"startDate": "yesterday"})
	var invalid *InvalidParameterError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "startDate", invalid.Param)
}
