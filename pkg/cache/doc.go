// Package cache stores NCEI CDO responses in Redis.
//
// CDO data is historical and changes rarely, so repeated bulk runs over the
// same filters can be served from cache instead of spending the per-token
// daily request budget (10,000 requests/day).
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	manager := cache.NewManager(redisClient)
//
//	key := cache.CacheKey{
//		Endpoint:    "/data",
//		QueryParams: url.Values{"datasetid": []string{"GHCND"}, "offset": []string{"1"}},
//		Credential:  cache.Fingerprint(token),
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if err == cache.ErrCacheMiss {
//		// fetch from CDO
//	}
//
// # HTTP Response Caching
//
//	entry, err := cache.ResponseToEntry(resp, cache.DefaultTTL)
//	if err != nil {
//		return err
//	}
//	if err := manager.Set(ctx, key, entry); err != nil {
//		return err
//	}
//
// Keys carry a fingerprint of the API token, never the token itself, so a
// response cached for one token is never served to another.
//
// # Metrics
//
//   - ncei_cache_hits_total{layer="redis"} - Cache hits
//   - ncei_cache_misses_total - Cache misses
//   - ncei_cache_size_bytes{layer="redis"} - Bytes written to / read from cache
//   - ncei_cache_errors_total{operation} - Cache operation errors
package cache
