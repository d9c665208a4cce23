package query

import "strings"

// Field is one single-valued filter of an AtomicSet.
type Field struct {
	Name  string
	Value string
}

// AtomicSet is one concrete combination of filters, sent in one request.
type AtomicSet []Field

// Get returns the value for name.
func (s AtomicSet) Get(name string) (string, bool) {
	for _, f := range s {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// String renders the set as "name=value,name=value", or "(none)" when empty.
func (s AtomicSet) String() string {
	if len(s) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for i, f := range s {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(f.Name)
		b.WriteByte('=')
		b.WriteString(f.Value)
	}
	return b.String()
}

// Combine returns the cartesian product of the parameters' values. The
// first parameter varies slowest; values keep their given order. An empty
// input yields a single empty set.
func Combine(params []Parameter) ([]AtomicSet, error) {
	total := 1
	seen := make(map[string]struct{}, len(params))
	for _, p := range params {
		if _, dup := seen[p.Name]; dup {
			return nil, &InvalidParameterError{Name: p.Name, Reason: "duplicate parameter name"}
		}
		seen[p.Name] = struct{}{}
		if len(p.Values) == 0 {
			return nil, &InvalidParameterError{Name: p.Name, Reason: "no values"}
		}
		total *= len(p.Values)
	}

	out := make([]AtomicSet, total)
	fields := make([]Field, total*len(params))
	idx := make([]int, len(params))
	for n := 0; n < total; n++ {
		set := AtomicSet(fields[n*len(params) : (n+1)*len(params) : (n+1)*len(params)])
		for i, p := range params {
			set[i] = Field{Name: p.Name, Value: p.Values[idx[i]]}
		}
		out[n] = set

		// odometer: advance the innermost (last) parameter first
		for i := len(params) - 1; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(params[i].Values) {
				break
			}
			idx[i] = 0
		}
	}
	return out, nil
}

// CombineFor validates the parameters against the resource, then combines
// them.
func CombineFor(resource Resource, params []Parameter) ([]AtomicSet, error) {
	if err := NewDescriptor(resource, params...).Validate(); err != nil {
		return nil, err
	}
	return Combine(params)
}
