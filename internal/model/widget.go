package model

import (
	"strconv"
	"time"
)

// ChartType selects the renderer for a widget.
type ChartType string

// Supported chart types
const (
	ChartLine        ChartType = "line"
	ChartBar         ChartType = "bar"
	ChartArea        ChartType = "area"
	ChartScatter     ChartType = "scatter"
	ChartPie         ChartType = "pie"
	ChartStat        ChartType = "stat"
	ChartCandlestick ChartType = "candlestick"
)

// ChartTypes lists every supported chart type in display order.
var ChartTypes = []ChartType{
	ChartLine, ChartBar, ChartArea, ChartScatter, ChartPie, ChartStat, ChartCandlestick,
}

// Valid reports whether t is a known chart type.
func (t ChartType) Valid() bool {
	for _, c := range ChartTypes {
		if c == t {
			return true
		}
	}
	return false
}

// DataSourceConfig holds the fetch parameters of a widget.
type DataSourceConfig struct {
	Indicator string   `json:"indicator"`
	Country   string   `json:"country,omitempty"`
	Symbol    string   `json:"symbol,omitempty"`
	Days      int      `json:"days,omitempty"`
	StartDate string   `json:"startDate,omitempty"`
	EndDate   string   `json:"endDate,omitempty"`
	Frequency string   `json:"frequency,omitempty"`
	Interval  string   `json:"interval,omitempty"`
	Lat       *float64 `json:"lat,omitempty"`
	Lng       *float64 `json:"lng,omitempty"`
	Location  string   `json:"location,omitempty"`

	// Params holds connector specific extras such as timePeriod
	Params map[string]string `json:"params,omitempty"`
}

// FetchParams flattens the config into the string map connectors accept.
// Empty fields are omitted so connectors can apply their own defaults.
func (c DataSourceConfig) FetchParams() map[string]string {
	params := make(map[string]string, len(c.Params)+8)
	for k, v := range c.Params {
		params[k] = v
	}
	set := func(k, v string) {
		if v != "" {
			params[k] = v
		}
	}
	set("country", c.Country)
	set("symbol", c.Symbol)
	set("startDate", c.StartDate)
	set("endDate", c.EndDate)
	set("frequency", c.Frequency)
	set("interval", c.Interval)
	set("location", c.Location)
	if c.Days > 0 {
		params["days"] = strconv.Itoa(c.Days)
	}
	if c.Lat != nil {
		params["lat"] = strconv.FormatFloat(*c.Lat, 'f', -1, 64)
	}
	if c.Lng != nil {
		params["lng"] = strconv.FormatFloat(*c.Lng, 'f', -1, 64)
	}
	return params
}

// ChartConfig holds presentation options.
type ChartConfig struct {
	ColorTheme string `json:"colorTheme"`
	ShowGrid   bool   `json:"showGrid,omitempty"`
	ShowLegend bool   `json:"showLegend,omitempty"`
	LineSmooth bool   `json:"lineSmooth,omitempty"`
	FillArea   bool   `json:"fillArea,omitempty"`
}

// WidgetConfig is a persisted widget definition.
type WidgetConfig struct {
	ID               string           `json:"id"`
	Type             ChartType        `json:"type"`
	Title            string           `json:"title"`
	DataSource       string           `json:"dataSource"`
	DataSourceConfig DataSourceConfig `json:"dataSourceConfig"`
	ChartConfig      ChartConfig      `json:"chartConfig"`
}

// WidgetLayout positions a widget on the dashboard grid.
// I matches the id of exactly one widget.
type WidgetLayout struct {
	I    string `json:"i"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
	W    int    `json:"w"`
	H    int    `json:"h"`
	MinW int    `json:"minW,omitempty"`
	MinH int    `json:"minH,omitempty"`
}

// Dashboard is a user owned collection of widgets and their layout.
type Dashboard struct {
	ID          string         `json:"id"`
	UserID      string         `json:"userId"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	IsPublic    bool           `json:"isPublic"`
	Widgets     []WidgetConfig `json:"widgets"`
	Layout      []WidgetLayout `json:"layout"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// DashboardPatch lists the dashboard fields to change. Nil fields are left as is.
type DashboardPatch struct {
	Name        *string
	Description *string
	IsPublic    *bool
	Layout      []WidgetLayout
	SetLayout   bool
}

// WidgetPatch lists the widget fields to change. Nil fields are left as is.
type WidgetPatch struct {
	Type             *ChartType        `json:"type"`
	Title            *string           `json:"title"`
	DataSource       *string           `json:"dataSource"`
	DataSourceConfig *DataSourceConfig `json:"dataSourceConfig"`
	ChartConfig      *ChartConfig      `json:"chartConfig"`
}

// Empty reports whether the patch changes nothing.
func (p WidgetPatch) Empty() bool {
	return p.Type == nil && p.Title == nil && p.DataSource == nil &&
		p.DataSourceConfig == nil && p.ChartConfig == nil
}
