package connector

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net/url"
	"strings"
	"time"

	"github.com/buger/jsonparser"
	"github.com/yourorg/datalens/internal/model"
	"github.com/yourorg/datalens/internal/normalize"
)

const (
	alphaVantageID         = "alphavantage"
	alphaVantageSource     = "Alpha Vantage"
	alphaVantageDefaultURL = "https://www.alphavantage.co"

	avDaily    = "TIME_SERIES_DAILY"
	avIntraday = "TIME_SERIES_INTRADAY"
	avRSI      = "RSI"
	avMACD     = "MACD"
	avSMA      = "SMA"
	avEMA      = "EMA"

	intradayLayout  = "2006-01-02 15:04:05"
	syntheticPoints = 101
)

var (
	intradayIntervals  = map[string]time.Duration{"1min": time.Minute, "5min": 5 * time.Minute, "15min": 15 * time.Minute, "30min": 30 * time.Minute, "60min": time.Hour}
	indicatorIntervals = map[string]bool{"1min": true, "5min": true, "15min": true, "30min": true, "60min": true, "daily": true, "weekly": true, "monthly": true}

	// providerNotices are top-level keys Alpha Vantage uses instead of an HTTP error.
	providerNotices = []string{"Error Message", "Note", "Information"}
)

// AlphaVantage fetches stock price series and technical indicators.
// Any upstream problem, including the in-band notices the API sends for
// invalid symbols and exhausted quotas, falls back to synthetic data.
type AlphaVantage struct {
	catalog
	opts    Options
	baseURL string
	up      *upstream
}

// NewAlphaVantage creates an Alpha Vantage connector. An empty APIKey uses the
// provider's public "demo" key.
func NewAlphaVantage(opts Options) *AlphaVantage {
	base := opts.BaseURL
	if base == "" {
		base = alphaVantageDefaultURL
	}
	if opts.APIKey == "" {
		opts.APIKey = "demo"
	}
	return &AlphaVantage{
		catalog: catalog{
			id:          alphaVantageID,
			name:        "Alpha Vantage",
			category:    CategoryFinancial,
			description: "Stock prices and technical indicators from Alpha Vantage",
			indicators: []model.DataSourceIndicator{
				{ID: avDaily, Name: "Daily Stock Prices", Description: "Daily OHLCV stock price data", Unit: "USD",
					DefaultParams: map[string]string{"symbol": "IBM"}},
				{ID: avIntraday, Name: "Intraday Stock Prices", Description: "Intraday OHLCV stock price data", Unit: "USD",
					DefaultParams: map[string]string{"symbol": "IBM", "interval": "5min"}},
				{ID: avRSI, Name: "Relative Strength Index (RSI)", Description: "Technical momentum indicator", Unit: "Index",
					DefaultParams: map[string]string{"symbol": "IBM", "interval": "daily", "timePeriod": "14"}},
				{ID: avMACD, Name: "MACD", Description: "Moving Average Convergence Divergence", Unit: "Index",
					DefaultParams: map[string]string{"symbol": "IBM", "interval": "daily", "fastPeriod": "12", "slowPeriod": "26", "signalPeriod": "9"}},
				{ID: avSMA, Name: "Simple Moving Average (SMA)", Description: "Simple moving average technical indicator", Unit: "USD",
					DefaultParams: map[string]string{"symbol": "IBM", "interval": "daily", "timePeriod": "20"}},
				{ID: avEMA, Name: "Exponential Moving Average (EMA)", Description: "Exponential moving average technical indicator", Unit: "USD",
					DefaultParams: map[string]string{"symbol": "IBM", "interval": "daily", "timePeriod": "20"}},
			},
		},
		opts:    opts,
		baseURL: strings.TrimRight(base, "/"),
		up:      newUpstream(alphaVantageID, opts, nil),
	}
}

// Fetch implements Connector.
func (c *AlphaVantage) Fetch(ctx context.Context, indicatorID string, params map[string]string) (*model.DataSet, error) {
	ind, err := c.indicator(indicatorID)
	if err != nil {
		return nil, err
	}

	symbol := strings.ToUpper(param(params, ind, "symbol", "IBM"))
	interval := param(params, ind, "interval", "daily")
	switch ind.ID {
	case avDaily:
	case avIntraday:
		if _, ok := intradayIntervals[interval]; !ok {
			return nil, &InvalidParameterError{Connector: alphaVantageID, Param: "interval", Value: interval}
		}
	default:
		if !indicatorIntervals[interval] {
			return nil, &InvalidParameterError{Connector: alphaVantageID, Param: "interval", Value: interval}
		}
	}

	now := c.opts.now()
	ds := &model.DataSet{
		ID:   normalize.DataSetID(c.idParts(ind, symbol, interval, params)...),
		Name: fmt.Sprintf("%s - %s", ind.Name, symbol),
		Metadata: model.Metadata{
			Unit:        ind.Unit,
			Source:      alphaVantageSource,
			LastUpdated: now.UTC().Format(time.RFC3339),
			IsOHLCV:     isPriceSeries(ind.ID),
		},
	}

	body, err := c.up.get(ctx, c.queryURL(ind, symbol, interval, params))
	if err == nil {
		err = c.providerNotice(body)
	}
	if err == nil {
		err = c.transform(ds, ind.ID, body)
	}
	if err != nil {
		c.synthetic(ds, ind.ID, interval, now)
		return normalize.Finalize(markDegraded(ds, alphaVantageID, ind.ID, err)), nil
	}
	return normalize.Finalize(ds), nil
}

func isPriceSeries(indicator string) bool {
	return indicator == avDaily || indicator == avIntraday
}

// idParts lists every parameter that changes the returned series.
func (c *AlphaVantage) idParts(ind model.DataSourceIndicator, symbol, interval string, params map[string]string) []string {
	parts := []string{alphaVantageID, ind.ID, symbol}
	switch ind.ID {
	case avIntraday:
		parts = append(parts, interval)
	case avRSI, avSMA, avEMA:
		parts = append(parts, interval, param(params, ind, "timePeriod", "14"))
	case avMACD:
		parts = append(parts, interval,
			param(params, ind, "fastPeriod", "12"),
			param(params, ind, "slowPeriod", "26"),
			param(params, ind, "signalPeriod", "9"))
	}
	return parts
}

func (c *AlphaVantage) queryURL(ind model.DataSourceIndicator, symbol, interval string, params map[string]string) string {
	q := url.Values{}
	q.Set("function", ind.ID)
	q.Set("symbol", symbol)
	q.Set("apikey", c.opts.APIKey)

	switch ind.ID {
	case avIntraday:
		q.Set("interval", interval)
	case avRSI, avSMA, avEMA:
		q.Set("interval", interval)
		q.Set("time_period", param(params, ind, "timePeriod", "14"))
		q.Set("series_type", "close")
	case avMACD:
		q.Set("interval", interval)
		q.Set("fastperiod", param(params, ind, "fastPeriod", "12"))
		q.Set("slowperiod", param(params, ind, "slowPeriod", "26"))
		q.Set("signalperiod", param(params, ind, "signalPeriod", "9"))
		q.Set("series_type", "close")
	}
	return c.baseURL + "/query?" + q.Encode()
}

// providerNotice turns an in-band error or quota message into a FetchError.
func (c *AlphaVantage) providerNotice(body []byte) error {
	for _, key := range providerNotices {
		if msg, err := jsonparser.GetString(body, key); err == nil {
			return &FetchError{Connector: alphaVantageID, Err: fmt.Errorf("%s: %s", key, msg)}
		}
	}
	return nil
}

// findBlock returns the first top-level object whose key starts with prefix.
// Alpha Vantage names these blocks dynamically, e.g. "Time Series (5min)".
func findBlock(body []byte, prefix string) ([]byte, bool) {
	var block []byte
	_ = jsonparser.ObjectEach(body, func(key, value []byte, dataType jsonparser.ValueType, _ int) error {
		if block == nil && dataType == jsonparser.Object && bytes.HasPrefix(key, []byte(prefix)) {
			block = value
		}
		return nil
	})
	return block, block != nil
}

func (c *AlphaVantage) transform(ds *model.DataSet, indicator string, body []byte) error {
	if isPriceSeries(indicator) {
		return c.transformBars(ds, body)
	}
	return c.transformTechnical(ds, indicator, body)
}

func (c *AlphaVantage) transformBars(ds *model.DataSet, body []byte) error {
	series, ok := findBlock(body, "Time Series")
	if !ok {
		return c.up.parseError(errors.New("no time series block in response"))
	}

	err := jsonparser.ObjectEach(series, func(key, value []byte, _ jsonparser.ValueType, _ int) error {
		fields := make([]float64, 5)
		for i, name := range []string{"1. open", "2. high", "3. low", "4. close", "5. volume"} {
			raw, err := jsonparser.GetString(value, name)
			if err != nil {
				return nil
			}
			v, ok := normalize.ParseNumber(raw)
			if !ok {
				return nil
			}
			fields[i] = v
		}
		ds.OHLCVData = append(ds.OHLCVData, model.OHLCVDataPoint{
			Date:   string(key),
			Open:   fields[0],
			High:   fields[1],
			Low:    fields[2],
			Close:  fields[3],
			Volume: fields[4],
		})
		return nil
	})
	if err != nil {
		return c.up.parseError(err)
	}

	ds.Data = barsToPoints(ds.OHLCVData)
	return nil
}

func barsToPoints(bars []model.OHLCVDataPoint) []model.DataPoint {
	points := make([]model.DataPoint, len(bars))
	for i, b := range bars {
		points[i] = model.DataPoint{
			X:     b.Date,
			Y:     b.Close,
			Label: fmt.Sprintf("O: %g H: %g L: %g V: %.0f", b.Open, b.High, b.Low, b.Volume),
		}
	}
	return points
}

// transformTechnical reads the "Technical Analysis: X" block. Each date maps
// to one or more named values; the value named after the indicator wins,
// otherwise the first one listed.
func (c *AlphaVantage) transformTechnical(ds *model.DataSet, indicator string, body []byte) error {
	block, ok := findBlock(body, "Technical Analysis")
	if !ok {
		return c.up.parseError(errors.New("no technical analysis block in response"))
	}

	err := jsonparser.ObjectEach(block, func(date, values []byte, _ jsonparser.ValueType, _ int) error {
		var picked string
		_ = jsonparser.ObjectEach(values, func(name, value []byte, _ jsonparser.ValueType, _ int) error {
			if picked == "" || string(name) == indicator {
				picked = string(value)
			}
			return nil
		})
		if v, ok := normalize.ParseNumber(picked); ok {
			ds.Data = append(ds.Data, model.DataPoint{X: string(date), Y: v})
		}
		return nil
	})
	if err != nil {
		return c.up.parseError(err)
	}
	return nil
}

// synthetic fills ds with generated data shaped like the requested function.
func (c *AlphaVantage) synthetic(ds *model.DataSet, indicator, interval string, now time.Time) {
	rng := seededRand(ds.ID)
	ds.Data, ds.OHLCVData = nil, nil

	switch indicator {
	case avDaily:
		dates := make([]string, syntheticPoints)
		for i := range dates {
			dates[i] = normalize.FormatDate(now.AddDate(0, 0, i-syntheticPoints+1))
		}
		ds.OHLCVData = syntheticBars(rng, dates, 150, 5, 1_000_000)
		ds.Data = barsToPoints(ds.OHLCVData)
	case avIntraday:
		step := intradayIntervals[interval]
		end := now.UTC().Truncate(step)
		dates := make([]string, syntheticPoints)
		for i := range dates {
			dates[i] = end.Add(time.Duration(i-syntheticPoints+1) * step).Format(intradayLayout)
		}
		ds.OHLCVData = syntheticBars(rng, dates, 150, 2, 100_000)
		ds.Data = barsToPoints(ds.OHLCVData)
	default:
		values := technicalWalk(rng, indicator, syntheticPoints)
		ds.Data = make([]model.DataPoint, syntheticPoints)
		for i, v := range values {
			ds.Data[i] = model.DataPoint{X: normalize.FormatDate(now.AddDate(0, 0, i-syntheticPoints+1)), Y: v}
		}
	}
}

func technicalWalk(rng *rand.Rand, indicator string, n int) []float64 {
	out := make([]float64, n)
	switch indicator {
	case avRSI:
		v := 50.0
		for i := range out {
			v = math.Max(0, math.Min(100, v+(rng.Float64()-0.5)*10))
			out[i] = normalize.Round(v, 4)
		}
	case avMACD:
		v := 0.0
		for i := range out {
			v += (rng.Float64() - 0.5) * 2
			out[i] = normalize.Round(v, 4)
		}
	default:
		return randomWalk(rng, n, 150, 0.02, 0.5)
	}
	return out
}
