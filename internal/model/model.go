// Package model defines the core data structures for datalens.
package model

import (
	"math"
	"strconv"
)

// DataPoint is a single normalized observation.
// X is either a date string (ISO date or datetime) or a numeric year.
type DataPoint struct {
	// X is the position on the horizontal axis
	X any `json:"x"`

	// Y is always a finite number
	Y float64 `json:"y"`

	// Label carries optional per-point context (country name, OHLC summary)
	Label string `json:"label,omitempty"`
}

// XString returns the x value formatted for sorting and display.
func (p DataPoint) XString() string {
	switch v := p.X.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.Itoa(int(v))
	default:
		return ""
	}
}

// OHLCVDataPoint is one price bar.
type OHLCVDataPoint struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// IsValid reports whether the bar is internally consistent:
// high >= max(open, close), low <= min(open, close), all values finite.
func (b OHLCVDataPoint) IsValid() bool {
	for _, v := range []float64{b.Open, b.High, b.Low, b.Close, b.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return b.High >= math.Max(b.Open, b.Close) && b.Low <= math.Min(b.Open, b.Close)
}

// Metadata describes where a DataSet came from.
type Metadata struct {
	Unit        string `json:"unit,omitempty"`
	Source      string `json:"source,omitempty"`
	LastUpdated string `json:"lastUpdated,omitempty"`
	IsOHLCV     bool   `json:"isOHLCV,omitempty"`

	// Degraded is set when the series was synthesized instead of fetched
	Degraded bool `json:"degraded,omitempty"`
}

// DataSet is the normalized output of every connector fetch.
// It is transient and never persisted.
type DataSet struct {
	// ID is deterministic: connector id, indicator and key params
	ID   string `json:"id"`
	Name string `json:"name"`

	// Data is sorted ascending by X
	Data []DataPoint `json:"data"`

	// OHLCVData is only present for price-bar series
	OHLCVData []OHLCVDataPoint `json:"ohlcvData,omitempty"`

	Metadata Metadata `json:"metadata"`
}

// Latest returns the last point of the series, if any.
func (d *DataSet) Latest() (DataPoint, bool) {
	if d == nil || len(d.Data) == 0 {
		return DataPoint{}, false
	}
	return d.Data[len(d.Data)-1], true
}

// DataSourceIndicator is one fetchable series offered by a connector.
type DataSourceIndicator struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	Unit          string            `json:"unit,omitempty"`
	DefaultParams map[string]string `json:"defaultParams,omitempty"`
}

// DataSource is the catalog entry for a connector.
type DataSource struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Category    string                `json:"category"`
	Indicators  []DataSourceIndicator `json:"indicators"`
}
