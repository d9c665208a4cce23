package cache

import (
	"fmt"
	"hash/fnv"
	"net/url"
	"sort"
	"strings"
)

// CacheKey represents a unique identifier for a cached CDO response.
type CacheKey struct {
	// Endpoint is the CDO endpoint path (e.g., "/data")
	Endpoint string

	// QueryParams are the filters plus offset and limit
	QueryParams url.Values

	// Credential is the token fingerprint (see Fingerprint); empty for none
	Credential string
}

// String generates a deterministic cache key string.
// Format: ncei:endpoint:query1=val1:query2=val2:tok=fingerprint
//
// Example:
//
//	ncei:data:datasetid=GHCND:limit=25:offset=1:tok=9f3a1c0b
func (k CacheKey) String() string {
	parts := []string{"ncei"}

	endpoint := strings.Trim(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	// Add query params (sorted for determinism)
	if len(k.QueryParams) > 0 {
		queryKeys := make([]string, 0, len(k.QueryParams))
		for key := range k.QueryParams {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, k.QueryParams.Get(key)))
		}
	}

	if k.Credential != "" {
		parts = append(parts, "tok="+k.Credential)
	}

	return strings.Join(parts, ":")
}

// Fingerprint returns a short non-reversible identifier for an API token,
// for use in cache and quota keys.
func Fingerprint(token string) string {
	if token == "" {
		return ""
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(token))
	return fmt.Sprintf("%016x", h.Sum64())
}
