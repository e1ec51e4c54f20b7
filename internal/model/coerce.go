package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DataSourceConfigFromMap coerces a loosely typed JSON object into a
// DataSourceConfig. Numbers and numeric strings are accepted interchangeably
// and unknown scalar keys are kept in Params.
func DataSourceConfigFromMap(m map[string]any) (DataSourceConfig, error) {
	var c DataSourceConfig
	for k, v := range m {
		var err error
		switch k {
		case "indicator":
			c.Indicator, err = scalarString(k, v)
		case "country":
			c.Country, err = scalarString(k, v)
		case "symbol":
			c.Symbol, err = scalarString(k, v)
		case "startDate":
			c.StartDate, err = scalarString(k, v)
		case "endDate":
			c.EndDate, err = scalarString(k, v)
		case "frequency":
			c.Frequency, err = scalarString(k, v)
		case "interval":
			c.Interval, err = scalarString(k, v)
		case "location":
			c.Location, err = scalarString(k, v)
		case "days":
			c.Days, err = scalarInt(k, v)
		case "lat":
			c.Lat, err = scalarFloat(k, v)
		case "lng":
			c.Lng, err = scalarFloat(k, v)
		case "params":
			err = c.mergeParams(v)
		default:
			if v == nil {
				continue
			}
			var s string
			if s, err = scalarString(k, v); err == nil && s != "" {
				c.setParam(k, s)
			}
		}
		if err != nil {
			return DataSourceConfig{}, err
		}
	}
	return c, nil
}

func (c *DataSourceConfig) setParam(k, v string) {
	if c.Params == nil {
		c.Params = make(map[string]string)
	}
	c.Params[k] = v
}

func (c *DataSourceConfig) mergeParams(v any) error {
	if v == nil {
		return nil
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return fmt.Errorf("params: expected object, got %T", v)
	}
	for k, pv := range obj {
		s, err := scalarString("params."+k, pv)
		if err != nil {
			return err
		}
		if s != "" {
			c.setParam(k, s)
		}
	}
	return nil
}

// UnmarshalJSON accepts the loose shapes clients and older rows use.
func (c *DataSourceConfig) UnmarshalJSON(b []byte) error {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	parsed, err := DataSourceConfigFromMap(m)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ChartConfigFromMap coerces a loosely typed JSON object into a ChartConfig.
// Unknown keys are ignored.
func ChartConfigFromMap(m map[string]any) (ChartConfig, error) {
	var c ChartConfig
	var err error
	for k, v := range m {
		switch k {
		case "colorTheme":
			c.ColorTheme, err = scalarString(k, v)
		case "showGrid":
			c.ShowGrid, err = scalarBool(k, v)
		case "showLegend":
			c.ShowLegend, err = scalarBool(k, v)
		case "lineSmooth":
			c.LineSmooth, err = scalarBool(k, v)
		case "fillArea":
			c.FillArea, err = scalarBool(k, v)
		}
		if err != nil {
			return ChartConfig{}, err
		}
	}
	return c, nil
}

// UnmarshalJSON accepts booleans encoded as strings.
func (c *ChartConfig) UnmarshalJSON(b []byte) error {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	parsed, err := ChartConfigFromMap(m)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func scalarString(key string, v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(t), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case json.Number:
		return t.String(), nil
	case bool:
		return strconv.FormatBool(t), nil
	default:
		return "", fmt.Errorf("%s: expected scalar, got %T", key, v)
	}
}

func scalarInt(key string, v any) (int, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case float64:
		if t != math.Trunc(t) || math.Abs(t) > math.MaxInt32 {
			return 0, fmt.Errorf("%s: %v is not an integer", key, t)
		}
		return int(t), nil
	case string:
		if strings.TrimSpace(t) == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, fmt.Errorf("%s: %q is not an integer", key, t)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%s: expected integer, got %T", key, v)
	}
}

func scalarFloat(key string, v any) (*float64, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case float64:
		return &t, nil
	case string:
		if strings.TrimSpace(t) == "" {
			return nil, nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%s: %q is not a number", key, t)
		}
		return &f, nil
	default:
		return nil, fmt.Errorf("%s: expected number, got %T", key, v)
	}
}

func scalarBool(key string, v any) (bool, error) {
	switch t := v.(type) {
	case nil:
		return false, nil
	case bool:
		return t, nil
	case string:
		b, err := strconv.ParseBool(t)
		if err != nil {
			return false, fmt.Errorf("%s: %q is not a boolean", key, t)
		}
		return b, nil
	default:
		return false, fmt.Errorf("%s: expected boolean, got %T", key, v)
	}
}
