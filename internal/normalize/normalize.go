// Package normalize holds the shared steps every connector applies before
// returning a DataSet: numeric coercion, sentinel stripping and ordering.
package normalize

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yourorg/datalens/internal/model"
)

// DateLayout is the ISO date format used for x values.
const DateLayout = "2006-01-02"

// sentinels are placeholder values providers use for missing observations.
var sentinels = map[string]struct{}{
	"":     {},
	".":    {},
	"-":    {},
	"null": {},
	"nan":  {},
	"n/a":  {},
	"..":   {},
}

// ParseNumber coerces a provider numeric string into a finite float.
// It returns false for sentinels and anything that is not a finite number.
func ParseNumber(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if _, ok := sentinels[strings.ToLower(s)]; ok {
		return 0, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	f, _ := d.Float64()
	if !IsFinite(f) {
		return 0, false
	}
	return f, true
}

// IsFinite reports whether f is neither NaN nor infinite.
func IsFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Round rounds f to the given number of decimal places.
func Round(f float64, places int32) float64 {
	r, _ := decimal.NewFromFloat(f).Round(places).Float64()
	return r
}

// DataSetID builds the deterministic id of a series from its parts.
// Empty parts are skipped.
func DataSetID(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "-")
}

// Finalize drops non-finite points and sorts both representations ascending by x.
// It mutates and returns ds.
func Finalize(ds *model.DataSet) *model.DataSet {
	if ds == nil {
		return nil
	}

	points := ds.Data[:0]
	for _, p := range ds.Data {
		if IsFinite(p.Y) {
			points = append(points, p)
		}
	}
	ds.Data = points
	SortPoints(ds.Data)

	if len(ds.OHLCVData) > 0 {
		sort.SliceStable(ds.OHLCVData, func(i, j int) bool {
			return ds.OHLCVData[i].Date < ds.OHLCVData[j].Date
		})
	}
	if ds.Data == nil {
		ds.Data = []model.DataPoint{}
	}
	return ds
}

// SortPoints orders points ascending by x. Numeric x values compare numerically,
// date strings compare lexicographically which matches chronological order.
func SortPoints(points []model.DataPoint) {
	sort.SliceStable(points, func(i, j int) bool {
		ni, iNum := numericX(points[i].X)
		nj, jNum := numericX(points[j].X)
		if iNum && jNum {
			return ni < nj
		}
		return points[i].XString() < points[j].XString()
	})
}

// FormatDate renders t as an ISO date in UTC.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// ParseDate parses an ISO date, reporting false on malformed input.
func ParseDate(s string) (time.Time, bool) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func numericX(x any) (float64, bool) {
	switch v := x.(type) {
	case int:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}
