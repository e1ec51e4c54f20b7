// Package connector provides the data source abstraction: one Connector per
// external provider, each turning provider payloads into a normalized DataSet.
package connector

import (
	"context"
	"net/http"
	"time"

	"github.com/yourorg/datalens/internal/circuitbreaker"
	"github.com/yourorg/datalens/internal/model"
	"golang.org/x/time/rate"
)

// Categories of data sources
const (
	CategoryFinancial   = "financial"
	CategoryCrypto      = "crypto"
	CategoryEconomic    = "economic"
	CategoryDemographic = "demographic"
	CategoryWeather     = "weather"
)

// Connector defines the interface that all data sources must implement
type Connector interface {
	ID() string
	Name() string
	Category() string
	Description() string

	// Indicators lists the series this connector can fetch. It never does I/O.
	Indicators() []model.DataSourceIndicator

	// Fetch retrieves and normalizes one indicator. Absent params receive
	// connector defaults.
	Fetch(ctx context.Context, indicatorID string, params map[string]string) (*model.DataSet, error)
}

// Options configures the upstream side of a connector.
// Zero values fall back to the provider's public endpoint and a retrying client.
type Options struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Breaker    *circuitbreaker.CircuitBreaker
	Limiter    *rate.Limiter

	// UserAgent identifies the service to providers that require it
	UserAgent string

	// Now is used for default date ranges and synthetic data
	Now func() time.Time
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// Describe returns the catalog entry of a connector.
func Describe(c Connector) model.DataSource {
	return model.DataSource{
		ID:          c.ID(),
		Name:        c.Name(),
		Description: c.Description(),
		Category:    c.Category(),
		Indicators:  c.Indicators(),
	}
}

// catalog implements the descriptive half of Connector.
type catalog struct {
	id          string
	name        string
	category    string
	description string
	indicators  []model.DataSourceIndicator
}

func (c *catalog) ID() string          { return c.id }
func (c *catalog) Name() string        { return c.name }
func (c *catalog) Category() string    { return c.category }
func (c *catalog) Description() string { return c.description }

func (c *catalog) Indicators() []model.DataSourceIndicator {
	out := make([]model.DataSourceIndicator, len(c.indicators))
	copy(out, c.indicators)
	return out
}

// indicator resolves an indicator id or returns UnknownIndicatorError.
func (c *catalog) indicator(id string) (model.DataSourceIndicator, error) {
	for _, ind := range c.indicators {
		if ind.ID == id {
			return ind, nil
		}
	}
	return model.DataSourceIndicator{}, &UnknownIndicatorError{Connector: c.id, Indicator: id}
}

// param returns params[key], the indicator default, or fallback, in that order.
func param(params map[string]string, ind model.DataSourceIndicator, key, fallback string) string {
	if v := params[key]; v != "" {
		return v
	}
	if v := ind.DefaultParams[key]; v != "" {
		return v
	}
	return fallback
}
