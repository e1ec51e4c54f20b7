// Package aggregate computes summary statistics over normalized series.
package aggregate

import (
	"math"
	"sort"

	"github.com/yourorg/datalens/internal/model"
	"github.com/yourorg/datalens/internal/normalize"
)

// Summary describes a series the way a stat card shows it.
type Summary struct {
	Latest        float64 `json:"latest"`
	LatestX       string  `json:"latestX,omitempty"`
	Previous      float64 `json:"previous"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
	Min           float64 `json:"min"`
	Max           float64 `json:"max"`
	Mean          float64 `json:"mean"`
	Median        float64 `json:"median"`
	Count         int     `json:"count"`
}

// Summarize computes the summary of points, which must be sorted by x.
// An empty series yields a zero Summary. When there is a single point the
// previous value equals the latest one.
func Summarize(points []model.DataPoint) Summary {
	values := Values(points)
	if len(values) == 0 {
		return Summary{}
	}

	n := len(values)
	latest := values[n-1]
	previous := latest
	if n > 1 {
		previous = values[n-2]
	}

	change := latest - previous
	changePercent := 0.0
	if previous != 0 {
		changePercent = change / math.Abs(previous) * 100
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	return Summary{
		Latest:        latest,
		LatestX:       points[len(points)-1].XString(),
		Previous:      previous,
		Change:        normalize.Round(change, 6),
		ChangePercent: normalize.Round(changePercent, 4),
		Min:           lo,
		Max:           hi,
		Mean:          normalize.Round(Mean(values), 6),
		Median:        Median(values),
		Count:         n,
	}
}

// Values extracts the finite y values of points in order.
func Values(points []model.DataPoint) []float64 {
	values := make([]float64, 0, len(points))
	for _, p := range points {
		if normalize.IsFinite(p.Y) {
			values = append(values, p.Y)
		}
	}
	return values
}

// Mean returns the arithmetic mean, or 0 for no values.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Median returns the median without reordering values, or 0 for no values.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}

// Tail returns at most the last n points.
func Tail(points []model.DataPoint, n int) []model.DataPoint {
	if n <= 0 || len(points) <= n {
		return points
	}
	return points[len(points)-n:]
}
