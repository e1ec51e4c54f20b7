package connector

import (
	"fmt"

	"github.com/yourorg/datalens/internal/model"
)

// Registry maps connector ids to connectors. It is built once at startup
// and is read-only afterwards.
type Registry struct {
	order []Connector
	byID  map[string]Connector
}

// NewRegistry registers conns in order. A duplicate id is a configuration error.
func NewRegistry(conns ...Connector) (*Registry, error) {
	r := &Registry{byID: make(map[string]Connector, len(conns))}
	for _, c := range conns {
		if c == nil {
			return nil, fmt.Errorf("nil connector registered")
		}
		if _, dup := r.byID[c.ID()]; dup {
			return nil, fmt.Errorf("duplicate connector id %q", c.ID())
		}
		r.byID[c.ID()] = c
		r.order = append(r.order, c)
	}
	return r, nil
}

// Get returns the connector registered under id.
func (r *Registry) Get(id string) (Connector, bool) {
	c, ok := r.byID[id]
	return c, ok
}

// Lookup is like Get but reports a missing id as ErrUnknownConnector.
func (r *Registry) Lookup(id string) (Connector, error) {
	c, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownConnector, id)
	}
	return c, nil
}

// All returns every connector in registration order.
func (r *Registry) All() []Connector {
	out := make([]Connector, len(r.order))
	copy(out, r.order)
	return out
}

// Catalog describes every registered connector in registration order.
func (r *Registry) Catalog() []model.DataSource {
	out := make([]model.DataSource, 0, len(r.order))
	for _, c := range r.order {
		out = append(out, Describe(c))
	}
	return out
}
