// Package bulk runs complete NCEI CDO queries: it expands multi-valued
// filters into atomic parameter sets, discovers how many records each set
// matches, pages through them and merges everything into one deduplicated
// Collection.
//
// Example usage:
//
//	c, _ := client.New(client.DefaultConfig(nil, "my-app/1.0 (me@example.com)"))
//	engine, _ := bulk.NewEngine(c, bulk.DefaultConfig())
//
//	desc := query.NewDescriptor(query.Data,
//		query.NewParameter(query.FilterDatasetID, "GHCND"),
//		query.NewParameter(query.FilterStationID, "GHCND:USW00094728"),
//		query.NewParameter(query.FilterDataTypeID, "TMAX", "TMIN"),
//		query.NewParameter(query.FilterStartDate, "2020-01-01"),
//		query.NewParameter(query.FilterEndDate, "2020-01-31"),
//	)
//	result, err := engine.QueryAll(ctx, desc, token)
//
// Every atomic set moves through
//
//	validating -> counting -> paginating -> merging -> done
//
// A failing count request ends the set in state failed; a failing page
// ends it in state partial, keeps the pages already merged and records the
// failing and skipped offsets in Result.Failures. Other sets are not
// affected. Authentication errors are different: they abort the whole call
// and no Result is returned.
//
// If every set fails and nothing was collected, QueryAll returns a
// *TotalFailureError carrying the failure manifest.
package bulk
