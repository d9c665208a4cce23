package bulk

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMissingKey is returned when a record lacks a natural key field.
var ErrMissingKey = errors.New("record missing natural key field")

// Record is one flat JSON object from a results array. Numbers are kept as
// json.Number.
type Record = map[string]any

// keySep joins natural key parts; it cannot occur in CDO identifiers.
const keySep = "\x1f"

// Collection is a set of records deduplicated by natural key. Iteration
// order is the order in which keys were first seen; re-adding a key
// replaces the record in place.
type Collection struct {
	keyFields []string
	index     map[string]int
	records   []Record
	keys      []string
}

// NewCollection creates an empty collection keyed by keyFields.
func NewCollection(keyFields ...string) *Collection {
	fields := make([]string, len(keyFields))
	copy(fields, keyFields)
	return &Collection{
		keyFields: fields,
		index:     make(map[string]int),
	}
}

// KeyFields returns the natural key fields.
func (c *Collection) KeyFields() []string {
	out := make([]string, len(c.keyFields))
	copy(out, c.keyFields)
	return out
}

// Key returns the natural key of r.
func (c *Collection) Key(r Record) (string, error) {
	parts := make([]string, len(c.keyFields))
	for i, f := range c.keyFields {
		v, ok := r[f]
		if !ok || v == nil {
			return "", fmt.Errorf("%w %q", ErrMissingKey, f)
		}
		parts[i] = keyPart(v)
	}
	return strings.Join(parts, keySep), nil
}

func keyPart(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// Add inserts or replaces r.
func (c *Collection) Add(r Record) error {
	key, err := c.Key(r)
	if err != nil {
		return err
	}
	c.put(key, r)
	return nil
}

func (c *Collection) put(key string, r Record) {
	if i, ok := c.index[key]; ok {
		c.records[i] = r
		return
	}
	c.index[key] = len(c.records)
	c.records = append(c.records, r)
	c.keys = append(c.keys, key)
}

// Merge adds all records, or none if any of them lacks a key field.
func (c *Collection) Merge(records []Record) error {
	keys := make([]string, len(records))
	for i, r := range records {
		key, err := c.Key(r)
		if err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		keys[i] = key
	}
	for i, r := range records {
		c.put(keys[i], r)
	}
	return nil
}

// MergeCollection adds every record of o, in o's order. Records of o that
// lack one of c's key fields are dropped.
func (c *Collection) MergeCollection(o *Collection) {
	if o == nil {
		return
	}
	reuse := sameFields(c.keyFields, o.keyFields)
	for i, r := range o.records {
		if reuse {
			c.put(o.keys[i], r)
			continue
		}
		key, err := c.Key(r)
		if err != nil {
			continue
		}
		c.put(key, r)
	}
}

func sameFields(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Len returns the number of distinct records.
func (c *Collection) Len() int {
	return len(c.records)
}

// Records returns the records in first-seen order. The slice is a copy;
// the records themselves are shared.
func (c *Collection) Records() []Record {
	out := make([]Record, len(c.records))
	copy(out, c.records)
	return out
}

// Lookup returns the record with the given key parts.
func (c *Collection) Lookup(parts ...string) (Record, bool) {
	i, ok := c.index[strings.Join(parts, keySep)]
	if !ok {
		return nil, false
	}
	return c.records[i], true
}
