package connector

import (
	"hash/fnv"
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"
	"github.com/yourorg/datalens/internal/model"
	"github.com/yourorg/datalens/internal/normalize"
)

// Synthetic series stand in for provider data when a connector's fallback
// policy allows it. They are seeded from the dataset id so a given request
// always produces the same values.

func seededRand(key string) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return rand.New(rand.NewSource(int64(h.Sum64())))
}

// randomWalk returns n values drifting slightly upward from base.
// Each step moves by at most volatility*base and never drops below floor*base.
func randomWalk(rng *rand.Rand, n int, base, volatility, floor float64) []float64 {
	out := make([]float64, n)
	current := base
	for i := range out {
		change := (rng.Float64() - 0.48) * base * volatility
		current = math.Max(base*floor, current+change)
		out[i] = normalize.Round(current, 4)
	}
	return out
}

// syntheticBars builds one consistent OHLCV bar per date around a random walk of closes.
func syntheticBars(rng *rand.Rand, dates []string, base, swing, baseVolume float64) []model.OHLCVDataPoint {
	bars := make([]model.OHLCVDataPoint, 0, len(dates))
	closes := randomWalk(rng, len(dates), base, swing/base, 0.5)
	for i, date := range dates {
		closePrice := closes[i]
		open := normalize.Round(closePrice+(rng.Float64()-0.5)*swing*0.4, 4)
		high := normalize.Round(math.Max(open, closePrice)+rng.Float64()*swing*0.4, 4)
		low := normalize.Round(math.Min(open, closePrice)-rng.Float64()*swing*0.4, 4)
		bars = append(bars, model.OHLCVDataPoint{
			Date:   date,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: math.Floor(baseVolume + rng.Float64()*baseVolume*5),
		})
	}
	return bars
}

// markDegraded flags ds as synthetic and logs why.
func markDegraded(ds *model.DataSet, connector, indicator string, reason error) *model.DataSet {
	ds.Metadata.Degraded = true
	logrus.WithFields(logrus.Fields{
		"connector": connector,
		"indicator": indicator,
		"dataset":   ds.ID,
		"degraded":  true,
	}).Warnf("Serving synthetic data: %v", reason)
	return ds
}
