package query

import (
	"errors"
	"testing"
)

func TestCombine_ProductSize(t *testing.T) {
	tests := []struct {
		name   string
		params []Parameter
		want   int
	}{
		{
			name:   "no parameters yields one empty set",
			params: nil,
			want:   1,
		},
		{
			name:   "single value",
			params: []Parameter{NewParameter("datasetid", "GHCND")},
			want:   1,
		},
		{
			name: "two by three",
			params: []Parameter{
				NewParameter("type", "A", "B"),
				NewParameter("year", 2020, 2021, 2022),
			},
			want: 6,
		},
		{
			name: "three dimensions",
			params: []Parameter{
				NewParameter("a", 1, 2),
				NewParameter("b", 1, 2, 3),
				NewParameter("c", 1, 2, 3, 4),
			},
			want: 24,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sets, err := Combine(tt.params)
			if err != nil {
				t.Fatalf("Combine() error = %v", err)
			}
			if len(sets) != tt.want {
				t.Errorf("len(Combine()) = %d, want %d", len(sets), tt.want)
			}
			for i, s := range sets {
				if len(s) != len(tt.params) {
					t.Errorf("set[%d] has %d fields, want %d", i, len(s), len(tt.params))
				}
			}
		})
	}
}

func TestCombine_Order(t *testing.T) {
	sets, err := Combine([]Parameter{
		NewParameter("type", "A", "B"),
		NewParameter("year", 2020, 2021, 2022),
	})
	if err != nil {
		t.Fatalf("Combine() error = %v", err)
	}

	want := []string{
		"type=A,year=2020",
		"type=A,year=2021",
		"type=A,year=2022",
		"type=B,year=2020",
		"type=B,year=2021",
		"type=B,year=2022",
	}
	for i, s := range sets {
		if s.String() != want[i] {
			t.Errorf("set[%d] = %s, want %s", i, s, want[i])
		}
	}
}

func TestCombine_SetsAreIndependent(t *testing.T) {
	sets, err := Combine([]Parameter{NewParameter("a", "1", "2")})
	if err != nil {
		t.Fatalf("Combine() error = %v", err)
	}
	sets[0] = append(sets[0], Field{Name: "b", Value: "x"})
	if len(sets[1]) != 1 || sets[1][0].Value != "2" {
		t.Errorf("appending to one set modified another: %v", sets[1])
	}
}

func TestCombine_Errors(t *testing.T) {
	tests := []struct {
		name   string
		params []Parameter
	}{
		{
			name: "duplicate names",
			params: []Parameter{
				NewParameter("datatypeid", "TMAX"),
				NewParameter("datatypeid", "TMIN"),
			},
		},
		{
			name:   "empty values",
			params: []Parameter{{Name: "datatypeid"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Combine(tt.params)
			var invalid *InvalidParameterError
			if !errors.As(err, &invalid) {
				t.Fatalf("Combine() error = %v, want *InvalidParameterError", err)
			}
			if !errors.Is(err, ErrInvalidParameter) {
				t.Error("errors.Is(err, ErrInvalidParameter) = false")
			}
		})
	}
}

func TestCombineFor_UnknownName(t *testing.T) {
	_, err := CombineFor(Datasets, []Parameter{NewParameter("foo", "bar")})

	var unknown *UnknownParameterError
	if !errors.As(err, &unknown) {
		t.Fatalf("CombineFor() error = %v, want *UnknownParameterError", err)
	}
	if unknown.Name != "foo" || unknown.Resource != "datasets" {
		t.Errorf("UnknownParameterError = %+v", unknown)
	}
	if !errors.Is(err, ErrInvalidParameter) {
		t.Error("unknown parameter should also match ErrInvalidParameter")
	}
}

func TestAtomicSet_Get(t *testing.T) {
	set := AtomicSet{{Name: "datasetid", Value: "GHCND"}}

	if v, ok := set.Get("datasetid"); !ok || v != "GHCND" {
		t.Errorf("Get(datasetid) = %q, %v", v, ok)
	}
	if _, ok := set.Get("stationid"); ok {
		t.Error("Get(stationid) found a value in a set without it")
	}
	if got := (AtomicSet{}).String(); got != "(none)" {
		t.Errorf("empty String() = %q", got)
	}
}
