package render

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourorg/datalens/internal/connector"
	"github.com/yourorg/datalens/internal/model"
)

// fakeConnector serves canned data sets keyed by indicator.
type fakeConnector struct {
	id    string
	sets  map[string]*model.DataSet
	err   error
	calls atomic.Int32
}

func (f *fakeConnector) ID() string                              { return f.id }
func (f *fakeConnector) Name() string                            { return f.id }
func (f *fakeConnector) Category() string                        { return connector.CategoryEconomic }
func (f *fakeConnector) Description() string                     { return "" }
func (f *fakeConnector) Indicators() []model.DataSourceIndicator { return nil }

func (f *fakeConnector) Fetch(_ context.Context, indicator string, _ map[string]string) (*model.DataSet, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	ds, ok := f.sets[indicator]
	if !ok {
		return nil, &connector.UnknownIndicatorError{Connector: f.id, Indicator: indicator}
	}
	return ds, nil
}

func yearly(ys ...float64) []model.DataPoint {
	out := make([]model.DataPoint, len(ys))
	for i, y := range ys {
		out[i] = model.DataPoint{X: 2010 + i, Y: y}
	}
	return out
}

func unrate() *model.DataSet {
	return &model.DataSet{
		ID:       "fred-UNRATE",
		Name:     "Unemployment Rate",
		Data:     yearly(3.5, 4, 5, 3.5, 4.5),
		Metadata: model.Metadata{Unit: "%", Source: "FRED"},
	}
}

func widget(id string, t model.ChartType, source, indicator string) model.WidgetConfig {
	return model.WidgetConfig{
		ID:               id,
		Type:             t,
		Title:            indicator,
		DataSource:       source,
		DataSourceConfig: model.DataSourceConfig{Indicator: indicator},
	}
}

func newFrame(t *testing.T, conns ...connector.Connector) *Frame {
	t.Helper()
	reg, err := connector.NewRegistry(conns...)
	require.NoError(t, err)
	return NewFrame(reg)
}

func TestRender_StatCard(t *testing.T) {
	fred := &fakeConnector{id: "fred", sets: map[string]*model.DataSet{"UNRATE": unrate()}}
	frame := newFrame(t, fred)

	res := frame.Render(context.Background(), widget("w1", model.ChartStat, "fred", "UNRATE"))
	require.False(t, res.Failed(), res.Error)
	require.NotNil(t, res.Chart.Stat)

	assert.Equal(t, 4.5, res.Chart.Stat.Latest)
	assert.Equal(t, 1.0, res.Chart.Stat.Change)
	assert.Equal(t, "%", res.Chart.Unit)
	assert.Equal(t, "FRED", res.Metadata.Source)
	assert.Equal(t, "teal", res.Chart.Theme)
}

func TestRender_UnknownDataSource(t *testing.T) {
	frame := newFrame(t)

	res := frame.Render(context.Background(), widget("w1", model.ChartLine, "bloomberg", "X"))
	assert.True(t, res.Failed())
	assert.Equal(t, "unknown data source: bloomberg", res.Error)
	assert.Nil(t, res.Chart)
}

func TestRender_CandlestickRejectsPlainSeries(t *testing.T) {
	fred := &fakeConnector{id: "fred", sets: map[string]*model.DataSet{"UNRATE": unrate()}}
	frame := newFrame(t, fred)

	res := frame.Render(context.Background(), widget("w1", model.ChartCandlestick, "fred", "UNRATE"))
	assert.True(t, res.Failed())
	assert.Contains(t, res.Error, "cannot render candlestick chart")
}

func TestRenderAll_IsolatesFailures(t *testing.T) {
	fred := &fakeConnector{id: "fred", sets: map[string]*model.DataSet{"UNRATE": unrate()}}
	broken := &fakeConnector{id: "worldbank", err: &connector.FetchError{Connector: "worldbank", Err: errors.New("connection reset")}}
	frame := newFrame(t, fred, broken)

	widgets := []model.WidgetConfig{
		widget("w1", model.ChartLine, "fred", "UNRATE"),
		widget("w2", model.ChartBar, "worldbank", "SP.POP.TOTL"),
		widget("w3", model.ChartStat, "fred", "UNRATE"),
	}
	results := frame.RenderAll(context.Background(), widgets)
	require.Len(t, results, 3)

	assert.Equal(t, "w1", results[0].WidgetID)
	assert.False(t, results[0].Failed())
	assert.True(t, results[1].Failed())
	assert.Contains(t, results[1].Error, "connection reset")
	assert.False(t, results[2].Failed())

	assert.Equal(t, int32(1), broken.calls.Load(), "a failed fetch is not retried")
}

func TestBuild_ChartShapes(t *testing.T) {
	ds := unrate()

	t.Run("bar stringifies x", func(t *testing.T) {
		c, err := Build(model.ChartBar, ds, model.ChartConfig{})
		require.NoError(t, err)
		assert.Equal(t, "2010", c.Points[0].X)
	})

	t.Run("scatter indexes x and keeps it as label", func(t *testing.T) {
		c, err := Build(model.ChartScatter, ds, model.ChartConfig{})
		require.NoError(t, err)
		assert.Equal(t, 4, c.Points[4].X)
		assert.Equal(t, "2014", c.Points[4].Label)
	})

	t.Run("pie keeps the last ten points", func(t *testing.T) {
		long := &model.DataSet{Data: yearly(1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12)}
		c, err := Build(model.ChartPie, long, model.ChartConfig{ColorTheme: "rose"})
		require.NoError(t, err)
		require.Len(t, c.Points, 10)
		assert.Equal(t, "2012", c.Points[0].X)
		assert.Equal(t, "#F43F5E", c.Palette[0])
	})

	t.Run("unknown theme falls back", func(t *testing.T) {
		c, err := Build(model.ChartLine, ds, model.ChartConfig{ColorTheme: "neon"})
		require.NoError(t, err)
		assert.Equal(t, "teal", c.Theme)
		assert.Equal(t, "teal", c.Options.ColorTheme)
	})

	t.Run("candlestick passes bars through", func(t *testing.T) {
		bars := &model.DataSet{OHLCVData: []model.OHLCVDataPoint{
			{Date: "2024-06-14", Open: 10, High: 12, Low: 9, Close: 11, Volume: 100},
		}}
		c, err := Build(model.ChartCandlestick, bars, model.ChartConfig{})
		require.NoError(t, err)
		assert.Len(t, c.Candles, 1)
	})

	t.Run("unknown chart type", func(t *testing.T) {
		_, err := Build("radar", ds, model.ChartConfig{})
		assert.Error(t, err)
	})
}
