package connector

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/yourorg/datalens/internal/model"
	"github.com/yourorg/datalens/internal/normalize"
)

const (
	fredID          = "fred"
	fredSource      = "FRED"
	fredDefaultURL  = "https://api.stlouisfed.org/fred"
	fredDefaultFrom = "2015-01-01"
)

var errNoFREDKey = errors.New("no FRED API key configured")

// fredBaseValues anchor the synthetic series near realistic levels.
var fredBaseValues = map[string]float64{
	"GDP":      21000,
	"UNRATE":   5.0,
	"CPIAUCSL": 250,
	"FEDFUNDS": 2.5,
	"T10Y2Y":   0.5,
	"DEXUSEU":  0.85,
	"SP500":    4000,
	"M2SL":     20000,
}

// FRED fetches series observations from the Federal Reserve Economic Data API.
// Without an API key it serves synthetic monthly data; with a key every
// upstream failure is returned to the caller.
type FRED struct {
	catalog
	opts    Options
	baseURL string
	up      *upstream
}

// NewFRED creates a FRED connector.
func NewFRED(opts Options) *FRED {
	base := opts.BaseURL
	if base == "" {
		base = fredDefaultURL
	}
	return &FRED{
		catalog: catalog{
			id:          fredID,
			name:        "FRED Economic Data",
			category:    CategoryEconomic,
			description: "US Federal Reserve Economic Data",
			indicators: []model.DataSourceIndicator{
				{ID: "GDP", Name: "Gross Domestic Product", Description: "US GDP in billions of dollars", Unit: "Billions USD"},
				{ID: "UNRATE", Name: "Unemployment Rate", Description: "US civilian unemployment rate", Unit: "%"},
				{ID: "CPIAUCSL", Name: "Consumer Price Index", Description: "All Urban Consumers CPI", Unit: "Index"},
				{ID: "FEDFUNDS", Name: "Federal Funds Rate", Description: "Effective federal funds rate", Unit: "%"},
				{ID: "T10Y2Y", Name: "10Y-2Y Treasury Spread", Description: "10-Year minus 2-Year Treasury spread", Unit: "%"},
				{ID: "DEXUSEU", Name: "USD/EUR Exchange Rate", Description: "US Dollars to Euro spot exchange rate", Unit: "USD/EUR"},
				{ID: "SP500", Name: "S&P 500", Description: "S&P 500 index", Unit: "Index"},
				{ID: "M2SL", Name: "M2 Money Supply", Description: "M2 money stock in billions", Unit: "Billions USD"},
			},
		},
		opts:    opts,
		baseURL: strings.TrimRight(base, "/"),
		up:      newUpstream(fredID, opts, nil),
	}
}

// Fetch implements Connector.
func (c *FRED) Fetch(ctx context.Context, indicatorID string, params map[string]string) (*model.DataSet, error) {
	ind, err := c.indicator(indicatorID)
	if err != nil {
		return nil, err
	}

	now := c.opts.now()
	startDate := param(params, ind, "startDate", fredDefaultFrom)
	endDate := param(params, ind, "endDate", normalize.FormatDate(now))
	start, ok := normalize.ParseDate(startDate)
	if !ok {
		return nil, &InvalidParameterError{Connector: fredID, Param: "startDate", Value: startDate}
	}
	end, ok := normalize.ParseDate(endDate)
	if !ok {
		return nil, &InvalidParameterError{Connector: fredID, Param: "endDate", Value: endDate}
	}

	ds := &model.DataSet{
		ID:   normalize.DataSetID(fredID, ind.ID),
		Name: ind.Name,
		Metadata: model.Metadata{
			Unit:        ind.Unit,
			Source:      fredSource,
			LastUpdated: now.UTC().Format(time.RFC3339),
		},
	}

	if c.opts.APIKey == "" {
		ds.Data = c.synthetic(ds.ID, ind.ID, start, end)
		return normalize.Finalize(markDegraded(ds, fredID, ind.ID, errNoFREDKey)), nil
	}

	q := url.Values{}
	q.Set("series_id", ind.ID)
	q.Set("api_key", c.opts.APIKey)
	q.Set("file_type", "json")
	q.Set("observation_start", startDate)
	q.Set("observation_end", endDate)
	if freq := params["frequency"]; freq != "" {
		q.Set("frequency", freq)
	}

	body, err := c.up.get(ctx, c.baseURL+"/series/observations?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var response struct {
		Observations []struct {
			Date  string `json:"date"`
			Value string `json:"value"`
		} `json:"observations"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, c.up.parseError(err)
	}

	ds.Data = make([]model.DataPoint, 0, len(response.Observations))
	for _, obs := range response.Observations {
		v, ok := normalize.ParseNumber(obs.Value)
		if !ok {
			continue
		}
		ds.Data = append(ds.Data, model.DataPoint{X: obs.Date, Y: v})
	}
	return normalize.Finalize(ds), nil
}

// synthetic generates one observation per month between start and end.
func (c *FRED) synthetic(datasetID, series string, start, end time.Time) []model.DataPoint {
	base, ok := fredBaseValues[series]
	if !ok {
		base = 100
	}

	var dates []string
	for d := start; !d.After(end); d = d.AddDate(0, 1, 0) {
		dates = append(dates, normalize.FormatDate(d))
	}

	rng := seededRand(datasetID + "|" + normalize.FormatDate(start) + "|" + normalize.FormatDate(end))
	values := randomWalk(rng, len(dates), base, 0.02, 0.5)
	points := make([]model.DataPoint, len(dates))
	for i, date := range dates {
		points[i] = model.DataPoint{X: date, Y: normalize.Round(values[i], 2)}
	}
	return points
}
