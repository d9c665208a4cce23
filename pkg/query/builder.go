package query

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Reserved pagination keys, present on every request.
const (
	KeyOffset = "offset"
	KeyLimit  = "limit"
)

// Builder renders request targets. With an empty BaseURL targets are
// relative ("/data?...").
type Builder struct {
	BaseURL string
}

// Build returns BaseURL/endpoint?query for one atomic set and page. Keys
// are encoded in sorted order, so equal inputs give byte-identical output.
func (b Builder) Build(endpoint string, set AtomicSet, offset, limit int) string {
	v := make(url.Values, len(set)+2)
	for _, f := range set {
		v.Set(f.Name, f.Value)
	}
	v.Set(KeyOffset, strconv.Itoa(offset))
	v.Set(KeyLimit, strconv.Itoa(limit))

	return strings.TrimRight(b.BaseURL, "/") + "/" + strings.Trim(endpoint, "/") + "?" + v.Encode()
}

// Target is a parsed request target.
type Target struct {
	Endpoint string
	Set      AtomicSet
	Offset   int
	Limit    int
}

// Parse reverses Build. The endpoint is the last path segment; filters are
// returned sorted by name.
func Parse(target string) (Target, error) {
	u, err := url.Parse(target)
	if err != nil {
		return Target{}, fmt.Errorf("parse target: %w", err)
	}

	path := strings.Trim(u.Path, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		path = path[i+1:]
	}
	t := Target{Endpoint: path}

	q := u.Query()
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		val := q.Get(k)
		switch k {
		case KeyOffset:
			if t.Offset, err = strconv.Atoi(val); err != nil {
				return Target{}, fmt.Errorf("parse offset %q: %w", val, err)
			}
		case KeyLimit:
			if t.Limit, err = strconv.Atoi(val); err != nil {
				return Target{}, fmt.Errorf("parse limit %q: %w", val, err)
			}
		default:
			t.Set = append(t.Set, Field{Name: k, Value: val})
		}
	}
	return t, nil
}
