// Package render resolves widgets to connector data and shapes it for charts.
package render

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/yourorg/datalens/internal/connector"
	"github.com/yourorg/datalens/internal/model"
	tracing "github.com/yourorg/datalens/internal/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Resolver finds the connector for a data source id.
type Resolver interface {
	Lookup(id string) (connector.Connector, error)
}

// Result is the render outcome of one widget. Exactly one of Chart and
// Error is set.
type Result struct {
	WidgetID string          `json:"widgetId"`
	Title    string          `json:"title"`
	Type     model.ChartType `json:"type"`
	Chart    *Chart          `json:"chart,omitempty"`
	Metadata *model.Metadata `json:"metadata,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// Failed reports whether the widget rendered as an error state.
func (r Result) Failed() bool {
	return r.Error != ""
}

// Frame renders widgets. It never retries; a failure becomes an inline error
// on that widget only.
type Frame struct {
	connectors Resolver
}

// NewFrame creates a Frame resolving data sources through connectors.
func NewFrame(connectors Resolver) *Frame {
	return &Frame{connectors: connectors}
}

// Render fetches the widget's data and builds its chart.
func (f *Frame) Render(ctx context.Context, w model.WidgetConfig) Result {
	ctx, span := tracing.Tracer().Start(ctx, "widget.render", trace.WithAttributes(
		attribute.String("widget.id", w.ID),
		attribute.String("widget.type", string(w.Type)),
		attribute.String("widget.data_source", w.DataSource),
	))
	defer span.End()

	res := Result{WidgetID: w.ID, Title: w.Title, Type: w.Type}

	chart, meta, err := f.render(ctx, w)
	if err != nil {
		tracing.RecordError(ctx, err)
		logrus.WithFields(logrus.Fields{
			"widget":      w.ID,
			"data_source": w.DataSource,
			"indicator":   w.DataSourceConfig.Indicator,
		}).WithError(err).Warn("Widget render failed")
		res.Error = err.Error()
		return res
	}
	res.Chart = chart
	res.Metadata = meta
	return res
}

func (f *Frame) render(ctx context.Context, w model.WidgetConfig) (*Chart, *model.Metadata, error) {
	c, err := f.connectors.Lookup(w.DataSource)
	if err != nil {
		if errors.Is(err, connector.ErrUnknownConnector) {
			return nil, nil, fmt.Errorf("unknown data source: %s", w.DataSource)
		}
		return nil, nil, err
	}

	ds, err := c.Fetch(ctx, w.DataSourceConfig.Indicator, w.DataSourceConfig.FetchParams())
	if err != nil {
		return nil, nil, err
	}

	chart, err := Build(w.Type, ds, w.ChartConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot render %s chart: %w", w.Type, err)
	}
	return chart, &ds.Metadata, nil
}

// RenderAll renders widgets concurrently. Results keep the order of widgets
// and a failing widget never affects its siblings.
func (f *Frame) RenderAll(ctx context.Context, widgets []model.WidgetConfig) []Result {
	results := make([]Result, len(widgets))

	var wg sync.WaitGroup
	for i := range widgets {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = f.Render(ctx, widgets[i])
		}(i)
	}
	wg.Wait()

	return results
}
