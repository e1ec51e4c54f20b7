// Package validation checks client supplied dashboards and widgets, and the
// data sets handed to chart renderers.
package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yourorg/datalens/internal/model"
)

// Limits applied to client input
const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 2000
	MaxWidgets           = 100
)

// Error reports a missing or invalid request field.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Errorf builds an *Error for field.
func Errorf(field, format string, args ...any) *Error {
	return &Error{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Title checks a required display name.
func Title(field, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return Errorf(field, "is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return Errorf(field, "must be at most %d characters", MaxTitleLength)
	}
	return nil
}

// Description checks an optional free text field.
func Description(field, desc string) error {
	if utf8.RuneCountInString(desc) > MaxDescriptionLength {
		return Errorf(field, "must be at most %d characters", MaxDescriptionLength)
	}
	return nil
}

// Widget checks a complete widget definition. The id may be empty when the
// server is expected to assign one.
func Widget(field string, w model.WidgetConfig) error {
	if w.ID != "" {
		if _, err := uuid.Parse(w.ID); err != nil {
			return Errorf(field+".id", "%q is not a UUID", w.ID)
		}
	}
	if !w.Type.Valid() {
		return Errorf(field+".type", "unknown chart type %q", w.Type)
	}
	if utf8.RuneCountInString(w.Title) > MaxTitleLength {
		return Errorf(field+".title", "must be at most %d characters", MaxTitleLength)
	}
	if strings.TrimSpace(w.DataSource) == "" {
		return Errorf(field+".dataSource", "is required")
	}
	if strings.TrimSpace(w.DataSourceConfig.Indicator) == "" {
		return Errorf(field+".dataSourceConfig.indicator", "is required")
	}
	return nil
}

// Widgets checks a full widget set as used by bulk replace. Every widget
// needs a client assigned id and ids must be unique.
func Widgets(widgets []model.WidgetConfig) error {
	if len(widgets) > MaxWidgets {
		return Errorf("widgets", "at most %d widgets are allowed", MaxWidgets)
	}
	seen := make(map[string]struct{}, len(widgets))
	for i, w := range widgets {
		field := fmt.Sprintf("widgets[%d]", i)
		if w.ID == "" {
			return Errorf(field+".id", "is required")
		}
		if err := Widget(field, w); err != nil {
			return err
		}
		if _, dup := seen[w.ID]; dup {
			return Errorf(field+".id", "duplicate widget id %q", w.ID)
		}
		seen[w.ID] = struct{}{}
	}
	return nil
}

// WidgetPatch checks the fields a partial widget update supplies.
func WidgetPatch(p model.WidgetPatch) error {
	if p.Empty() {
		return Errorf("widget", "no fields to update")
	}
	if p.Type != nil && !p.Type.Valid() {
		return Errorf("widget.type", "unknown chart type %q", *p.Type)
	}
	if p.Title != nil && utf8.RuneCountInString(*p.Title) > MaxTitleLength {
		return Errorf("widget.title", "must be at most %d characters", MaxTitleLength)
	}
	if p.DataSource != nil && strings.TrimSpace(*p.DataSource) == "" {
		return Errorf("widget.dataSource", "must not be empty")
	}
	if p.DataSourceConfig != nil && strings.TrimSpace(p.DataSourceConfig.Indicator) == "" {
		return Errorf("widget.dataSourceConfig.indicator", "is required")
	}
	return nil
}

// Layout checks grid entries. Entries that point at no widget are not an
// error here; storage prunes them.
func Layout(layout []model.WidgetLayout) error {
	seen := make(map[string]struct{}, len(layout))
	for i, l := range layout {
		field := fmt.Sprintf("layout[%d]", i)
		if l.I == "" {
			return Errorf(field+".i", "is required")
		}
		if _, dup := seen[l.I]; dup {
			return Errorf(field+".i", "duplicate layout entry for %q", l.I)
		}
		seen[l.I] = struct{}{}
		if l.X < 0 || l.Y < 0 {
			return Errorf(field, "position must not be negative")
		}
		if l.W <= 0 || l.H <= 0 {
			return Errorf(field, "width and height must be positive")
		}
		if l.MinW < 0 || l.MinH < 0 {
			return Errorf(field, "minimum size must not be negative")
		}
	}
	return nil
}

// OHLCV reports whether bars can back a candlestick chart: at least one bar
// and every bar within its high/low bounds.
func OHLCV(bars []model.OHLCVDataPoint) error {
	if len(bars) == 0 {
		return fmt.Errorf("data set carries no OHLCV bars")
	}
	for i, b := range bars {
		if !b.IsValid() {
			logrus.WithFields(logrus.Fields{
				"date":  b.Date,
				"open":  b.Open,
				"high":  b.High,
				"low":   b.Low,
				"close": b.Close,
			}).Debug("Rejected malformed OHLCV bar")
			return fmt.Errorf("bar %d (%s) violates high/low bounds", i, b.Date)
		}
	}
	return nil
}
