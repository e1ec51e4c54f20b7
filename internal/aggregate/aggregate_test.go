package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/yourorg/datalens/internal/model"
)

func points(ys ...float64) []model.DataPoint {
	out := make([]model.DataPoint, len(ys))
	for i, y := range ys {
		out[i] = model.DataPoint{X: 2015 + i, Y: y}
	}
	return out
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name     string
		points   []model.DataPoint
		expected Summary
	}{
		{
			name:     "empty input",
			points:   nil,
			expected: Summary{},
		},
		{
			name:   "single point",
			points: points(4.2),
			expected: Summary{
				Latest: 4.2, LatestX: "2015", Previous: 4.2,
				Min: 4.2, Max: 4.2, Mean: 4.2, Median: 4.2, Count: 1,
			},
		},
		{
			name:   "rising series",
			points: points(3.5, 4, 5, 3.5, 4.5),
			expected: Summary{
				Latest: 4.5, LatestX: "2019", Previous: 3.5,
				Change: 1, ChangePercent: 28.5714,
				Min: 3.5, Max: 5, Mean: 4.1, Median: 4, Count: 5,
			},
		},
		{
			name:   "negative previous",
			points: points(-2, -1),
			expected: Summary{
				Latest: -1, LatestX: "2016", Previous: -2,
				Change: 1, ChangePercent: 50,
				Min: -2, Max: -1, Mean: -1.5, Median: -1.5, Count: 2,
			},
		},
		{
			name:   "zero previous",
			points: points(0, 3),
			expected: Summary{
				Latest: 3, LatestX: "2016", Previous: 0,
				Change: 3, ChangePercent: 0,
				Min: 0, Max: 3, Mean: 1.5, Median: 1.5, Count: 2,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Summarize(tt.points))
		})
	}
}

func TestMedian(t *testing.T) {
	values := []float64{5, 1, 3, 2}
	assert.Equal(t, 2.5, Median(values))
	assert.Equal(t, []float64{5, 1, 3, 2}, values, "input order is untouched")
	assert.Equal(t, 3.0, Median([]float64{5, 1, 3}))
	assert.Equal(t, 0.0, Median(nil))
}

func TestMean(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.InDelta(t, 2.0, Mean([]float64{1, 2, 3}), 1e-12)
}

func TestTail(t *testing.T) {
	series := points(1, 2, 3, 4, 5)
	assert.Len(t, Tail(series, 3), 3)
	assert.Equal(t, 3.0, Tail(series, 3)[0].Y)
	assert.Len(t, Tail(series, 10), 5)
	assert.Len(t, Tail(series, 0), 5)
}
