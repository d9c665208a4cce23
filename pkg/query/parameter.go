// Package query models NCEI CDO filter parameters and turns them into
// request targets.
//
// Everything in this package is pure: no I/O, no shared state. A
// Descriptor names a resource and its (possibly multi-valued) filters,
// Combine expands those filters into single-valued AtomicSets, and Builder
// renders one AtomicSet plus pagination controls into a request target.
package query

import (
	"fmt"
	"strconv"
	"time"
)

// DateLayout is the ISO date format accepted by the API.
const DateLayout = "2006-01-02"

// Parameter is a named filter with one or more candidate values.
// Multiple values mean "any of", and are expanded by Combine.
type Parameter struct {
	Name   string
	Values []string
}

// NewParameter builds a Parameter, formatting each scalar value.
func NewParameter(name string, values ...any) Parameter {
	p := Parameter{Name: name, Values: make([]string, 0, len(values))}
	for _, v := range values {
		p.Values = append(p.Values, formatScalar(v))
	}
	return p
}

// equal compares name and the ordered value sequence.
func (p Parameter) equal(o Parameter) bool {
	if p.Name != o.Name || len(p.Values) != len(o.Values) {
		return false
	}
	for i := range p.Values {
		if p.Values[i] != o.Values[i] {
			return false
		}
	}
	return true
}

func (p Parameter) clone() Parameter {
	values := make([]string, len(p.Values))
	copy(values, p.Values)
	return Parameter{Name: p.Name, Values: values}
}

func formatScalar(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case uint:
		return strconv.FormatUint(uint64(x), 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(DateLayout)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}
