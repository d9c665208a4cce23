package query

import (
	"fmt"
	"sort"
	"time"
)

// Descriptor identifies an API resource plus the filters to apply to it.
// It is immutable: inputs are copied on construction and accessors return
// copies.
type Descriptor struct {
	resource Resource
	params   []Parameter
}

// NewDescriptor creates a descriptor for the resource. It does not
// validate; call Validate before issuing requests.
func NewDescriptor(resource Resource, params ...Parameter) Descriptor {
	d := Descriptor{resource: resource, params: make([]Parameter, len(params))}
	for i, p := range params {
		d.params[i] = p.clone()
	}
	return d
}

// Resource returns the resource the descriptor addresses.
func (d Descriptor) Resource() Resource { return d.resource }

// Endpoint returns the endpoint path.
func (d Descriptor) Endpoint() string { return d.resource.Endpoint }

// Parameters returns a copy of the filters in their original order.
func (d Descriptor) Parameters() []Parameter {
	out := make([]Parameter, len(d.params))
	for i, p := range d.params {
		out[i] = p.clone()
	}
	return out
}

// Equal reports whether both descriptors address the same endpoint with
// the same parameters, regardless of parameter order.
func (d Descriptor) Equal(o Descriptor) bool {
	if d.Endpoint() != o.Endpoint() || len(d.params) != len(o.params) {
		return false
	}
	a, b := sortedByName(d.params), sortedByName(o.params)
	for i := range a {
		if !a[i].equal(b[i]) {
			return false
		}
	}
	return true
}

func sortedByName(params []Parameter) []Parameter {
	out := make([]Parameter, len(params))
	copy(out, params)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Validate checks the filters against the resource before any request is
// made. Unrecognised names yield *UnknownParameterError; every other
// problem yields *InvalidParameterError.
func (d Descriptor) Validate() error {
	seen := make(map[string]struct{}, len(d.params))
	for _, p := range d.params {
		if p.Name == KeyOffset || p.Name == KeyLimit {
			return &InvalidParameterError{Name: p.Name, Reason: "reserved for pagination"}
		}
		if !d.resource.Recognizes(p.Name) {
			return &UnknownParameterError{
				Name:     p.Name,
				Resource: d.resource.Name,
				Allowed:  d.resource.Filters,
			}
		}
		if _, dup := seen[p.Name]; dup {
			return &InvalidParameterError{Name: p.Name, Reason: "duplicate parameter name"}
		}
		seen[p.Name] = struct{}{}
		if len(p.Values) == 0 {
			return &InvalidParameterError{Name: p.Name, Reason: "no values"}
		}
		for _, v := range p.Values {
			if err := checkValue(p.Name, v); err != nil {
				return err
			}
		}
	}
	return nil
}

var enumValues = map[string][]string{
	FilterSortOrder:       {"asc", "desc"},
	FilterSortField:       {"id", "name", "mindate", "maxdate", "datacoverage"},
	FilterUnits:           {"standard", "metric"},
	FilterIncludeMetadata: {"true", "false"},
}

func checkValue(name, value string) error {
	if value == "" {
		return &InvalidParameterError{Name: name, Reason: "empty value"}
	}
	switch name {
	case FilterStartDate, FilterEndDate:
		if _, err := time.Parse(DateLayout, value); err == nil {
			return nil
		}
		if _, err := time.Parse("2006-01-02T15:04:05", value); err == nil {
			return nil
		}
		return &InvalidParameterError{Name: name, Reason: fmt.Sprintf("%q is not an ISO date", value)}
	}
	if allowed, ok := enumValues[name]; ok {
		for _, a := range allowed {
			if a == value {
				return nil
			}
		}
		return &InvalidParameterError{Name: name, Reason: fmt.Sprintf("%q not one of %v", value, allowed)}
	}
	return nil
}
