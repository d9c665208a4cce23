// Package pagination plans page requests for CDO endpoints and runs work
// items over a bounded worker pool.
//
// CDO reports the number of matching records in metadata.resultset.count
// and serves at most 1000 records per request. Plan turns a count and a
// page limit into the list of logical offsets to request:
//
//	offsets := pagination.Plan(30, 25) // [0 25]
//
// RunPool dispatches indexed jobs (one per atomic parameter set in the
// bulk engine) to a fixed number of workers:
//
//	started := pagination.RunPool(ctx, len(sets), 4, func(ctx context.Context, i int) {
//		outcomes[i] = runSet(ctx, sets[i])
//	})
//
// Each job writes only its own slot; the caller reads results after
// RunPool returns.
package pagination
