package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/yourorg/datalens/internal/validation"
)

// indicatorParams are the query parameters that may name the indicator.
// Providers historically used their own names for it.
var indicatorParams = []string{"indicator", "function", "series", "coin"}

func (s *Server) listDataSources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.connectors.Catalog())
}

// fetchDataSource fetches one indicator from a provider. Every query
// parameter other than the indicator is passed to the connector.
func (s *Server) fetchDataSource(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	c, err := s.connectors.Lookup(provider)
	if err != nil {
		writeError(w, r, err)
		return
	}

	query := r.URL.Query()
	var indicator string
	params := make(map[string]string, len(query))
	for key := range query {
		params[key] = query.Get(key)
	}
	for _, key := range indicatorParams {
		if v := query.Get(key); v != "" && indicator == "" {
			indicator = v
		}
		delete(params, key)
	}
	if indicator == "" {
		writeError(w, r, validation.Errorf("indicator", "is required"))
		return
	}

	ctx, cancel := s.withFetchTimeout(r.Context())
	defer cancel()

	ds, err := c.Fetch(ctx, indicator, params)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if ds.Metadata.Degraded {
		logrus.WithFields(logrus.Fields{
			"connector": provider,
			"indicator": indicator,
			"degraded":  true,
		}).Debug("Serving synthetic data")
	}
	writeJSON(w, http.StatusOK, ds)
}
