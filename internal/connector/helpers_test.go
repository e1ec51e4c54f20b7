package connector

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourorg/datalens/internal/model"
	"github.com/yourorg/datalens/internal/normalize"
)

var fixedNow = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

// fakeUpstream serves handler and counts the requests it receives.
type fakeUpstream struct {
	*httptest.Server
	hits atomic.Int32
}

func newFakeUpstream(t *testing.T, handler http.HandlerFunc) *fakeUpstream {
	t.Helper()
	f := &fakeUpstream{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeUpstream) options() Options {
	return Options{
		BaseURL:    f.URL,
		HTTPClient: f.Client(),
		Now:        func() time.Time { return fixedNow },
	}
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

// assertWellFormed checks the invariants every DataSet must hold.
func assertWellFormed(t *testing.T, ds *model.DataSet) {
	t.Helper()
	require.NotNil(t, ds)
	require.NotEmpty(t, ds.ID)

	for i, p := range ds.Data {
		assert.True(t, normalize.IsFinite(p.Y), "point %d has non-finite y", i)
		if i == 0 {
			continue
		}
		prev := ds.Data[i-1]
		if a, ok := prev.X.(int); ok {
			assert.LessOrEqual(t, a, p.X.(int), "points must be ascending by x")
		} else {
			assert.LessOrEqual(t, prev.XString(), p.XString(), "points must be ascending by x")
		}
	}
	for i, b := range ds.OHLCVData {
		assert.True(t, b.IsValid(), "bar %d violates high/low bounds: %+v", i, b)
		if i > 0 {
			assert.LessOrEqual(t, ds.OHLCVData[i-1].Date, b.Date)
		}
	}
}
