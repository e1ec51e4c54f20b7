package connector

import (
	"errors"
	"fmt"
)

// ErrUnknownConnector is returned when no connector is registered under an id.
var ErrUnknownConnector = errors.New("unknown connector")

// UnknownIndicatorError is returned for an indicator the connector does not offer.
type UnknownIndicatorError struct {
	Connector string
	Indicator string
}

func (e *UnknownIndicatorError) Error() string {
	return fmt.Sprintf("%s: unknown indicator %q", e.Connector, e.Indicator)
}

// MissingParameterError is returned before any network call when a required
// fetch parameter is absent.
type MissingParameterError struct {
	Connector string
	Param     string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("%s: missing required parameter %q", e.Connector, e.Param)
}

// InvalidParameterError is returned when a parameter is present but malformed.
type InvalidParameterError struct {
	Connector string
	Param     string
	Value     string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("%s: invalid value %q for parameter %q", e.Connector, e.Value, e.Param)
}

// FetchError wraps any upstream failure: transport errors, non-2xx responses
// and unparsable payloads.
type FetchError struct {
	Connector  string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: upstream status %d: %v", e.Connector, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Connector, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsClientError reports whether err was caused by the caller's request
// rather than by the upstream provider.
func IsClientError(err error) bool {
	var (
		unknown *UnknownIndicatorError
		missing *MissingParameterError
		invalid *InvalidParameterError
	)
	return errors.As(err, &unknown) || errors.As(err, &missing) || errors.As(err, &invalid)
}
