// Package initcache deduplicates expensive init-segment fetches across
// concurrent segment requests. It is the one process-wide shared
// mutable structure in the proxy (every other piece of per-request
// state lives only as long as one HTTP request): a bounded LRU guarded
// by a single mutex, with the upstream fetch performed outside the
// critical section, upgraded with golang.org/x/sync/singleflight so
// concurrent misses on the same key collapse into one fetch rather
// than the "at most N" bound the baseline design allows.
package initcache

import (
	"context"
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/ManuGH/hlsgate/internal/hls"
	"github.com/ManuGH/hlsgate/internal/metrics"
)

// DefaultCapacity is the default number of init segments held in the
// LRU.
const DefaultCapacity = 100

// Key identifies one cached init segment fetch.
type Key struct {
	URL               string
	HeadersFingerprint uint64
	ByteRange          string // ByteRange.String(), "" when absent
}

// Fetcher performs the underlying upstream fetch on a cache miss.
type Fetcher interface {
	Get(ctx context.Context, url string, headers map[string]string, httpRange string) ([]byte, error)
}

// Cache is a bounded LRU of fetched init-segment bytes.
type Cache struct {
	lru   *lru.Cache[Key, []byte]
	sfg   singleflight.Group
	fetch Fetcher
}

// New returns a Cache with the given capacity backed by fetcher.
func New(capacity int, fetcher Fetcher) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	l, _ := lru.New[Key, []byte](capacity) // error only for capacity<=0, guarded above
	return &Cache{lru: l, fetch: fetcher}
}

// FingerprintHeaders hashes an unordered header map into the 64-bit
// fingerprint used as part of the cache key. Equality of the map
// implies equality of the fingerprint with negligible collision
// probability for this non-trust-boundary use; headers originate from
// the proxy's own caller, not an untrusted upstream.
func FingerprintHeaders(headers map[string]string) uint64 {
	if len(headers) == 0 {
		return 0
	}
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := xxhash.New()
	for _, k := range keys {
		_, _ = h.WriteString(k)
		_, _ = h.WriteString("\x00")
		_, _ = h.WriteString(headers[k])
		_, _ = h.WriteString("\x01")
	}
	return h.Sum64()
}

// GetOrFetch returns the cached bytes for (url, headers, br), fetching
// through the configured Fetcher on a miss. Concurrent misses on the
// same key are coalesced by singleflight into one upstream fetch; the
// result is shared with every waiter and the single winning Add
// populates the LRU.
func (c *Cache) GetOrFetch(ctx context.Context, url string, headers map[string]string, br *hls.ByteRange) ([]byte, error) {
	key := Key{URL: url, HeadersFingerprint: FingerprintHeaders(headers)}
	if br != nil {
		key.ByteRange = br.String()
	}

	if v, ok := c.lru.Get(key); ok {
		metrics.InitCacheHitsTotal.Inc()
		cloned := make([]byte, len(v))
		copy(cloned, v)
		return cloned, nil
	}
	metrics.InitCacheMissesTotal.Inc()

	sfKey := fmt.Sprintf("%s|%d|%s", key.URL, key.HeadersFingerprint, key.ByteRange)
	var httpRange string
	if br != nil {
		httpRange = br.HTTPRange()
	}

	v, err, _ := c.sfg.Do(sfKey, func() (any, error) {
		body, err := c.fetch.Get(ctx, url, headers, httpRange)
		if err != nil {
			return nil, err
		}
		c.lru.Add(key, body)
		return body, nil
	})
	if err != nil {
		return nil, err
	}

	body := v.([]byte)
	cloned := make([]byte, len(body))
	copy(cloned, body)
	return cloned, nil
}

// Len reports the number of entries currently cached, for tests and
// metrics.
func (c *Cache) Len() int { return c.lru.Len() }
