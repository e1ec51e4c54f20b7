package render

import (
	"errors"
	"fmt"

	"github.com/yourorg/datalens/internal/aggregate"
	"github.com/yourorg/datalens/internal/model"
	"github.com/yourorg/datalens/internal/validation"
)

// ErrUnsupportedData is returned when a data set cannot back the requested chart.
var ErrUnsupportedData = errors.New("data set not supported by chart type")

// pieSlices caps the slices a pie chart shows.
const pieSlices = 10

// extra pie colors appended after the theme palette
var pieExtras = []string{"#A855F7", "#F43F5E", "#06B6D4", "#F5A623"}

// Point is one drawable chart point.
type Point struct {
	X     any     `json:"x"`
	Y     float64 `json:"y"`
	Label string  `json:"label,omitempty"`
}

// Chart is the chart-ready payload for a single widget.
type Chart struct {
	Type    model.ChartType        `json:"type"`
	Theme   string                 `json:"theme"`
	Colors  model.ColorTheme       `json:"colors"`
	Palette []string               `json:"palette,omitempty"`
	Options model.ChartConfig      `json:"options"`
	Unit    string                 `json:"unit,omitempty"`
	Points  []Point                `json:"points,omitempty"`
	Candles []model.OHLCVDataPoint `json:"candles,omitempty"`
	Stat    *aggregate.Summary     `json:"stat,omitempty"`
}

// builder shapes a data set for one chart type.
type builder func(ds *model.DataSet, c *Chart) error

var builders = map[model.ChartType]builder{
	model.ChartLine:        series,
	model.ChartArea:        series,
	model.ChartBar:         bars,
	model.ChartScatter:     scatter,
	model.ChartPie:         pie,
	model.ChartStat:        stat,
	model.ChartCandlestick: candlestick,
}

// Build turns ds into the payload for chart type t.
func Build(t model.ChartType, ds *model.DataSet, cfg model.ChartConfig) (*Chart, error) {
	build, ok := builders[t]
	if !ok {
		return nil, fmt.Errorf("unknown chart type %q", t)
	}
	theme, colors := model.LookupColorTheme(cfg.ColorTheme)
	cfg.ColorTheme = theme

	c := &Chart{
		Type:    t,
		Theme:   theme,
		Colors:  colors,
		Options: cfg,
		Unit:    ds.Metadata.Unit,
	}
	if err := build(ds, c); err != nil {
		return nil, err
	}
	return c, nil
}

func series(ds *model.DataSet, c *Chart) error {
	c.Points = make([]Point, 0, len(ds.Data))
	for _, p := range ds.Data {
		c.Points = append(c.Points, Point{X: p.X, Y: p.Y, Label: p.Label})
	}
	return nil
}

// bars uses categorical x values.
func bars(ds *model.DataSet, c *Chart) error {
	c.Points = make([]Point, 0, len(ds.Data))
	for _, p := range ds.Data {
		c.Points = append(c.Points, Point{X: p.XString(), Y: p.Y, Label: p.Label})
	}
	return nil
}

// scatter plots values against their position and keeps x as the label.
func scatter(ds *model.DataSet, c *Chart) error {
	c.Points = make([]Point, 0, len(ds.Data))
	for i, p := range ds.Data {
		c.Points = append(c.Points, Point{X: i, Y: p.Y, Label: p.XString()})
	}
	return nil
}

// pie shows the most recent observations as slices.
func pie(ds *model.DataSet, c *Chart) error {
	tail := aggregate.Tail(ds.Data, pieSlices)
	c.Points = make([]Point, 0, len(tail))
	for _, p := range tail {
		c.Points = append(c.Points, Point{X: p.XString(), Y: p.Y, Label: p.Label})
	}
	c.Palette = append([]string{c.Colors.Primary, c.Colors.Secondary}, c.Colors.Gradient...)
	c.Palette = append(c.Palette, pieExtras...)
	return nil
}

func stat(ds *model.DataSet, c *Chart) error {
	summary := aggregate.Summarize(ds.Data)
	c.Stat = &summary
	return nil
}

func candlestick(ds *model.DataSet, c *Chart) error {
	if err := validation.OHLCV(ds.OHLCVData); err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedData, err)
	}
	c.Candles = ds.OHLCVData
	return nil
}
