package connector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/buger/jsonparser"
	"github.com/yourorg/datalens/internal/model"
	"github.com/yourorg/datalens/internal/normalize"
)

const (
	noaaID               = "noaa"
	noaaSource           = "NOAA National Weather Service"
	noaaDefaultURL       = "https://api.weather.gov"
	noaaDefaultUserAgent = "(datalens.app, contact@datalens.app)"
)

// NOAA fetches the seven day forecast for a coordinate from the National
// Weather Service. The grid forecast URL is resolved first from /points.
type NOAA struct {
	catalog
	opts    Options
	baseURL string
	up      *upstream
}

// NewNOAA creates a NOAA connector.
func NewNOAA(opts Options) *NOAA {
	base := opts.BaseURL
	if base == "" {
		base = noaaDefaultURL
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = noaaDefaultUserAgent
	}
	return &NOAA{
		catalog: catalog{
			id:          noaaID,
			name:        "NOAA Weather",
			category:    CategoryWeather,
			description: "Weather forecasts and conditions from the National Weather Service",
			indicators: []model.DataSourceIndicator{
				{ID: "temperature", Name: "Temperature Forecast", Description: "Temperature forecast in Fahrenheit", Unit: "°F"},
				{ID: "precipitation", Name: "Precipitation Chance", Description: "Probability of precipitation", Unit: "%"},
			},
		},
		opts:    opts,
		baseURL: strings.TrimRight(base, "/"),
		up: newUpstream(noaaID, opts, map[string]string{
			"User-Agent": ua,
			"Accept":     "application/geo+json",
		}),
	}
}

// Fetch implements Connector.
func (c *NOAA) Fetch(ctx context.Context, indicatorID string, params map[string]string) (*model.DataSet, error) {
	ind, err := c.indicator(indicatorID)
	if err != nil {
		return nil, err
	}

	lat, err := coordinate(params, "lat", 90)
	if err != nil {
		return nil, err
	}
	lng, err := coordinate(params, "lng", 180)
	if err != nil {
		return nil, err
	}
	point := lat + "," + lng

	pointsBody, err := c.up.get(ctx, fmt.Sprintf("%s/points/%s", c.baseURL, point))
	if err != nil {
		return nil, err
	}
	forecastURL, err := jsonparser.GetString(pointsBody, "properties", "forecast")
	if err != nil || forecastURL == "" {
		return nil, &FetchError{Connector: noaaID, Err: errors.New("no forecast URL found for the given coordinates")}
	}

	forecastBody, err := c.up.get(ctx, forecastURL)
	if err != nil {
		return nil, err
	}

	var forecast struct {
		Properties struct {
			Periods []struct {
				Name                       string   `json:"name"`
				StartTime                  string   `json:"startTime"`
				Temperature                *float64 `json:"temperature"`
				ProbabilityOfPrecipitation struct {
					Value *float64 `json:"value"`
				} `json:"probabilityOfPrecipitation"`
			} `json:"periods"`
		} `json:"properties"`
	}
	if err := json.Unmarshal(forecastBody, &forecast); err != nil {
		return nil, c.up.parseError(err)
	}

	ds := &model.DataSet{
		ID:   normalize.DataSetID(noaaID, ind.ID, point),
		Name: ind.Name,
		Metadata: model.Metadata{
			Unit:        ind.Unit,
			Source:      noaaSource,
			LastUpdated: c.opts.now().UTC().Format(time.RFC3339),
		},
	}
	for _, p := range forecast.Properties.Periods {
		var y float64
		switch ind.ID {
		case "temperature":
			if p.Temperature == nil {
				continue
			}
			y = *p.Temperature
		case "precipitation":
			// A missing probability means no precipitation is expected.
			if p.ProbabilityOfPrecipitation.Value != nil {
				y = *p.ProbabilityOfPrecipitation.Value
			}
		}
		ds.Data = append(ds.Data, model.DataPoint{X: p.StartTime, Y: y, Label: p.Name})
	}
	return normalize.Finalize(ds), nil
}

// coordinate validates a lat/lng parameter and formats it with at most four
// decimals, the precision the points endpoint accepts without redirecting.
func coordinate(params map[string]string, name string, limit float64) (string, error) {
	raw := strings.TrimSpace(params[name])
	if raw == "" {
		return "", &MissingParameterError{Connector: noaaID, Param: name}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || !normalize.IsFinite(v) || v < -limit || v > limit {
		return "", &InvalidParameterError{Connector: noaaID, Param: name, Value: raw}
	}
	return strconv.FormatFloat(normalize.Round(v, 4), 'f', -1, 64), nil
}
