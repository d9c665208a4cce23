package ncei

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Sternrassler/ncei-cdo-client/pkg/bulk"
	"github.com/Sternrassler/ncei-cdo-client/pkg/query"
)

// Decode converts generic records into T, keeping their order.
func Decode[T any](records []bulk.Record) ([]T, error) {
	out := make([]T, 0, len(records))
	for i, r := range records {
		raw, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("record %d: encode: %w", i, err)
		}
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("record %d: decode %T: %w", i, v, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Results holds the typed records of one bulk query and its failure
// manifest.
type Results[T any] struct {
	RunID    string
	Items    []T
	Failures []bulk.Failure
}

// Partial reports whether some records may be missing.
func (r *Results[T]) Partial() bool {
	return len(r.Failures) > 0
}

// Service runs typed bulk queries with a fixed token.
type Service struct {
	engine *bulk.Engine
	token  string
}

// NewService creates a Service.
func NewService(engine *bulk.Engine, token string) *Service {
	return &Service{engine: engine, token: token}
}

func run[T any](ctx context.Context, s *Service, resource query.Resource, params []query.Parameter) (*Results[T], error) {
	result, err := s.engine.QueryAll(ctx, query.NewDescriptor(resource, params...), s.token)
	if err != nil {
		return nil, err
	}
	items, err := Decode[T](result.Records.Records())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", resource.Name, err)
	}
	return &Results[T]{
		RunID:    result.RunID,
		Items:    items,
		Failures: result.Failures,
	}, nil
}

// Datasets queries the datasets endpoint.
func (s *Service) Datasets(ctx context.Context, params ...query.Parameter) (*Results[Dataset], error) {
	return run[Dataset](ctx, s, query.Datasets, params)
}

// DataCategories queries the datacategories endpoint.
func (s *Service) DataCategories(ctx context.Context, params ...query.Parameter) (*Results[DataCategory], error) {
	return run[DataCategory](ctx, s, query.DataCategories, params)
}

// DataTypes queries the datatypes endpoint.
func (s *Service) DataTypes(ctx context.Context, params ...query.Parameter) (*Results[DataType], error) {
	return run[DataType](ctx, s, query.DataTypes, params)
}

// LocationCategories queries the locationcategories endpoint.
func (s *Service) LocationCategories(ctx context.Context, params ...query.Parameter) (*Results[LocationCategory], error) {
	return run[LocationCategory](ctx, s, query.LocationCategories, params)
}

// Locations queries the locations endpoint.
func (s *Service) Locations(ctx context.Context, params ...query.Parameter) (*Results[Location], error) {
	return run[Location](ctx, s, query.Locations, params)
}

// Stations queries the stations endpoint.
func (s *Service) Stations(ctx context.Context, params ...query.Parameter) (*Results[Station], error) {
	return run[Station](ctx, s, query.Stations, params)
}

// Data queries the data endpoint. The API requires datasetid, startdate
// and enddate.
func (s *Service) Data(ctx context.Context, params ...query.Parameter) (*Results[Observation], error) {
	return run[Observation](ctx, s, query.Data, params)
}
