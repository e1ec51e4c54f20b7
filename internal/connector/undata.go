package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourorg/datalens/internal/model"
	"github.com/yourorg/datalens/internal/normalize"
)

const (
	unDataID              = "undata"
	unDataSource          = "UN Data Portal"
	unDataDefaultURL      = "https://population.un.org/dataportalapi/api/v1"
	unDataDefaultLocation = "900" // World
	unDataDefaultMaxPages = 50
)

// unDataIndicators maps catalog ids to UN Data Portal indicator ids.
var unDataIndicators = map[string]string{
	"life_expectancy": "47",
	"literacy_rate":   "72",
	"fertility_rate":  "68",
}

// UNData fetches demographic indicators from the UN Data Portal, following
// the nextPage cursor one page at a time.
type UNData struct {
	catalog
	opts     Options
	baseURL  string
	maxPages int
	up       *upstream
}

// NewUNData creates a UN Data Portal connector that reads at most maxPages
// pages per fetch. Zero means the default of 50.
func NewUNData(opts Options, maxPages int) *UNData {
	base := opts.BaseURL
	if base == "" {
		base = unDataDefaultURL
	}
	if maxPages <= 0 {
		maxPages = unDataDefaultMaxPages
	}
	var headers map[string]string
	if opts.APIKey != "" {
		headers = map[string]string{"Authorization": "Bearer " + opts.APIKey}
	}
	return &UNData{
		catalog: catalog{
			id:          unDataID,
			name:        "UN Data Portal",
			category:    CategoryDemographic,
			description: "Demographic and social statistics from the United Nations",
			indicators: []model.DataSourceIndicator{
				{ID: "life_expectancy", Name: "Life Expectancy at Birth", Description: "Average number of years a newborn is expected to live", Unit: "years"},
				{ID: "literacy_rate", Name: "Literacy Rate", Description: "Percentage of population aged 15+ who can read and write", Unit: "%"},
				{ID: "fertility_rate", Name: "Total Fertility Rate", Description: "Average number of children born to a woman during her reproductive years", Unit: "children per woman"},
			},
		},
		opts:     opts,
		baseURL:  strings.TrimRight(base, "/"),
		maxPages: maxPages,
		up:       newUpstream(unDataID, opts, headers),
	}
}

type unDataPage struct {
	Data []struct {
		TimeLabel    string          `json:"timeLabel"`
		Value        json.RawMessage `json:"value"`
		LocationName string          `json:"locationName"`
		Sex          string          `json:"sex"`
		Variant      string          `json:"variant"`
	} `json:"data"`
	NextPage *string `json:"nextPage"`
}

// Fetch implements Connector.
func (c *UNData) Fetch(ctx context.Context, indicatorID string, params map[string]string) (*model.DataSet, error) {
	ind, err := c.indicator(indicatorID)
	if err != nil {
		return nil, err
	}
	providerID := unDataIndicators[ind.ID]

	location := param(params, ind, "location", unDataDefaultLocation)
	if _, err := strconv.Atoi(location); err != nil {
		return nil, &InvalidParameterError{Connector: unDataID, Param: "location", Value: location}
	}
	startYear, err := yearParam(unDataID, "startDate", param(params, ind, "startDate", "1950"))
	if err != nil {
		return nil, err
	}
	endYear, err := yearParam(unDataID, "endDate", param(params, ind, "endDate", "2024"))
	if err != nil {
		return nil, err
	}

	ds := &model.DataSet{
		ID:   normalize.DataSetID(unDataID, ind.ID, location),
		Name: ind.Name,
		Metadata: model.Metadata{
			Unit:        ind.Unit,
			Source:      unDataSource,
			LastUpdated: c.opts.now().UTC().Format(time.RFC3339),
		},
	}

	next := fmt.Sprintf("%s/data/indicators/%s/locations/%s/start/%d/end/%d",
		c.baseURL, providerID, location, startYear, endYear)
	seen := make(map[string]struct{})

	for page := 0; next != ""; page++ {
		if page >= c.maxPages {
			logrus.WithFields(logrus.Fields{"connector": unDataID, "indicator": ind.ID, "pages": page}).
				Warn("Page limit reached, returning partial series")
			break
		}
		if _, dup := seen[next]; dup {
			logrus.WithFields(logrus.Fields{"connector": unDataID, "cursor": next}).
				Warn("Repeated page cursor, stopping pagination")
			break
		}
		seen[next] = struct{}{}

		body, err := c.up.get(ctx, next)
		if err != nil {
			return nil, err
		}
		var p unDataPage
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, c.up.parseError(err)
		}

		for _, rec := range p.Data {
			if !unDataHeadline(rec.Sex, rec.Variant) {
				continue
			}
			y, ok := normalize.ParseNumber(strings.Trim(string(rec.Value), `"`))
			if !ok {
				continue
			}
			label := rec.LocationName
			if label == "" {
				label = location
			}
			var x any = rec.TimeLabel
			if year, err := strconv.Atoi(rec.TimeLabel); err == nil {
				x = year
			}
			ds.Data = append(ds.Data, model.DataPoint{X: x, Y: y, Label: label})
		}

		next = ""
		if p.NextPage != nil {
			next = c.resolve(*p.NextPage)
		}
	}

	return normalize.Finalize(ds), nil
}

// unDataHeadline keeps the aggregate record when the portal breaks a value
// down by sex or projection variant.
func unDataHeadline(sex, variant string) bool {
	return (sex == "" || sex == "Both sexes") && (variant == "" || variant == "Median")
}

// resolve turns a relative nextPage cursor into an absolute URL.
func (c *UNData) resolve(cursor string) string {
	cursor = strings.TrimSpace(cursor)
	if cursor == "" {
		return ""
	}
	ref, err := url.Parse(cursor)
	if err != nil || ref.IsAbs() {
		return cursor
	}
	base, err := url.Parse(c.baseURL + "/")
	if err != nil {
		return cursor
	}
	return base.ResolveReference(ref).String()
}
