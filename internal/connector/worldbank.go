package connector

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/buger/jsonparser"
	"github.com/yourorg/datalens/internal/model"
	"github.com/yourorg/datalens/internal/normalize"
)

const (
	worldBankID         = "worldbank"
	worldBankSource     = "World Bank"
	worldBankDefaultURL = "https://api.worldbank.org/v2"
	worldBankPerPage    = "500"
)

// WorldBank fetches yearly indicators for a country. The API answers with a
// two element array: paging metadata followed by the observations.
type WorldBank struct {
	catalog
	opts    Options
	baseURL string
	up      *upstream
}

// NewWorldBank creates a World Bank connector.
func NewWorldBank(opts Options) *WorldBank {
	base := opts.BaseURL
	if base == "" {
		base = worldBankDefaultURL
	}
	return &WorldBank{
		catalog: catalog{
			id:          worldBankID,
			name:        "World Bank",
			category:    CategoryDemographic,
			description: "Global economic and demographic data from the World Bank",
			indicators: []model.DataSourceIndicator{
				{ID: "NY.GDP.MKTP.CD", Name: "GDP (Current US$)", Description: "Gross Domestic Product in current US dollars", Unit: "USD"},
				{ID: "NY.GDP.MKTP.KD.ZG", Name: "GDP Growth (Annual %)", Description: "Annual GDP growth rate", Unit: "%"},
				{ID: "SP.POP.TOTL", Name: "Total Population", Description: "Total population count", Unit: "people"},
				{ID: "SP.POP.GROW", Name: "Population Growth (Annual %)", Description: "Annual population growth rate", Unit: "%"},
				{ID: "FP.CPI.TOTL.ZG", Name: "Inflation (Annual %)", Description: "Consumer price index inflation", Unit: "%"},
				{ID: "SL.UEM.TOTL.ZS", Name: "Unemployment Rate", Description: "Total unemployment as percentage of labor force", Unit: "%"},
				{ID: "SE.XPD.TOTL.GD.ZS", Name: "Government Expenditure on Education (% of GDP)", Description: "Government spending on education as percentage of GDP", Unit: "%"},
				{ID: "SH.XPD.CHEX.GD.ZS", Name: "Current Health Expenditure (% of GDP)", Description: "Health expenditure as percentage of GDP", Unit: "%"},
			},
		},
		opts:    opts,
		baseURL: strings.TrimRight(base, "/"),
		up:      newUpstream(worldBankID, opts, nil),
	}
}

// Fetch implements Connector.
func (c *WorldBank) Fetch(ctx context.Context, indicatorID string, params map[string]string) (*model.DataSet, error) {
	ind, err := c.indicator(indicatorID)
	if err != nil {
		return nil, err
	}

	country := strings.ToUpper(param(params, ind, "country", "US"))
	startYear, err := yearParam(worldBankID, "startDate", param(params, ind, "startDate", "2015"))
	if err != nil {
		return nil, err
	}
	endYear, err := yearParam(worldBankID, "endDate", param(params, ind, "endDate", "2024"))
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("date", fmt.Sprintf("%d:%d", startYear, endYear))
	q.Set("format", "json")
	q.Set("per_page", worldBankPerPage)
	endpoint := fmt.Sprintf("%s/country/%s/indicator/%s?%s",
		c.baseURL, url.PathEscape(country), url.PathEscape(ind.ID), q.Encode())

	body, err := c.up.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	ds := &model.DataSet{
		ID:   normalize.DataSetID(worldBankID, ind.ID, country),
		Name: ind.Name,
		Metadata: model.Metadata{
			Unit:        ind.Unit,
			Source:      worldBankSource,
			LastUpdated: c.opts.now().UTC().Format(time.RFC3339),
		},
	}
	if ds.Data, err = c.transform(body); err != nil {
		return nil, err
	}
	return normalize.Finalize(ds), nil
}

// transform reads element [1] of the response. Element [0] is only consulted
// for an error message when the observations are missing.
func (c *WorldBank) transform(body []byte) ([]model.DataPoint, error) {
	if _, rootType, _, err := jsonparser.Get(body); err != nil || rootType != jsonparser.Array {
		return nil, c.up.parseError(errors.New("response is not a JSON array"))
	}

	observations, dataType, _, err := jsonparser.Get(body, "[1]")
	if err != nil || dataType == jsonparser.Null {
		if msg, mErr := jsonparser.GetString(body, "[0]", "message", "[0]", "value"); mErr == nil {
			return nil, &FetchError{Connector: worldBankID, Err: errors.New(msg)}
		}
		if errors.Is(err, jsonparser.KeyPathNotFoundError) || dataType == jsonparser.Null {
			return []model.DataPoint{}, nil
		}
		return nil, c.up.parseError(err)
	}
	if dataType != jsonparser.Array {
		return nil, c.up.parseError(fmt.Errorf("observations are %s, want array", dataType))
	}

	var points []model.DataPoint
	_, err = jsonparser.ArrayEach(observations, func(obs []byte, _ jsonparser.ValueType, _ int, _ error) {
		raw, vType, _, vErr := jsonparser.Get(obs, "value")
		if vErr != nil || vType == jsonparser.Null {
			return
		}
		y, ok := normalize.ParseNumber(string(raw))
		if !ok {
			return
		}
		date, dErr := jsonparser.GetString(obs, "date")
		if dErr != nil {
			return
		}
		year, yErr := strconv.Atoi(date)
		if yErr != nil {
			return
		}
		label, _ := jsonparser.GetString(obs, "country", "value")
		points = append(points, model.DataPoint{X: year, Y: y, Label: label})
	})
	if err != nil {
		return nil, c.up.parseError(err)
	}
	return points, nil
}

// yearParam accepts a year or an ISO date and returns the year.
func yearParam(connector, name, value string) (int, error) {
	v := strings.TrimSpace(value)
	if len(v) >= 4 {
		if year, err := strconv.Atoi(v[:4]); err == nil && (len(v) == 4 || v[4] == '-') {
			return year, nil
		}
	}
	return 0, &InvalidParameterError{Connector: connector, Param: name, Value: value}
}
