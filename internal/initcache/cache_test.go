package initcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/hlsgate/internal/hls"
)

type countingFetcher struct {
	calls   int32
	delay   time.Duration
	body    []byte
	err     error
	seenURL string
}

func (f *countingFetcher) Get(ctx context.Context, url string, headers map[string]string, httpRange string) ([]byte, error) {
	atomic.AddInt32(&f.calls, 1)
	f.seenURL = url
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.body, nil
}

func TestGetOrFetchCachesAfterFirstFetch(t *testing.T) {
	fetcher := &countingFetcher{body: []byte("init segment bytes")}
	c := New(10, fetcher)

	out1, err := c.GetOrFetch(context.Background(), "https://cdn.example.com/init.mp4", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "init segment bytes", string(out1))

	out2, err := c.GetOrFetch(context.Background(), "https://cdn.example.com/init.mp4", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "init segment bytes", string(out2))

	assert.Equal(t, int32(1), atomic.LoadInt32(&fetcher.calls))
	assert.Equal(t, 1, c.Len())
}

func TestGetOrFetchReturnsDistinctSlicesPerCall(t *testing.T) {
	fetcher := &countingFetcher{body: []byte("immutable")}
	c := New(10, fetcher)

	out1, err := c.GetOrFetch(context.Background(), "https://cdn.example.com/init.mp4", nil, nil)
	require.NoError(t, err)
	out1[0] = 'X'

	out2, err := c.GetOrFetch(context.Background(), "https://cdn.example.com/init.mp4", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "immutable", string(out2)) // mutation of a prior result must not leak into cache
}

func TestGetOrFetchDistinguishesByteRanges(t *testing.T) {
	fetcher := &countingFetcher{body: []byte("data")}
	c := New(10, fetcher)

	br1 := &hls.ByteRange{Length: 100, Offset: 0, HasOff: true}
	br2 := &hls.ByteRange{Length: 200, Offset: 100, HasOff: true}

	_, err := c.GetOrFetch(context.Background(), "https://cdn.example.com/init.mp4", nil, br1)
	require.NoError(t, err)
	_, err = c.GetOrFetch(context.Background(), "https://cdn.example.com/init.mp4", nil, br2)
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&fetcher.calls))
	assert.Equal(t, 2, c.Len())
}

func TestGetOrFetchPropagatesFetchError(t *testing.T) {
	fetcher := &countingFetcher{err: errors.New("upstream unreachable")}
	c := New(10, fetcher)

	_, err := c.GetOrFetch(context.Background(), "https://cdn.example.com/init.mp4", nil, nil)
	assert.Error(t, err)
	assert.Equal(t, 0, c.Len()) // failed fetch never populates the cache
}

func TestGetOrFetchCoalescesConcurrentMisses(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	fetcher := &countingFetcher{body: []byte("shared"), delay: 50 * time.Millisecond}
	c := New(10, fetcher)

	var wg sync.WaitGroup
	results := make([][]byte, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := c.GetOrFetch(context.Background(), "https://cdn.example.com/init.mp4", nil, nil)
			require.NoError(t, err)
			results[i] = out
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, "shared", string(r))
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&fetcher.calls))
}

func TestFingerprintHeadersOrderIndependent(t *testing.T) {
	a := map[string]string{"Authorization": "Bearer x", "X-Forwarded-For": "1.2.3.4"}
	b := map[string]string{"X-Forwarded-For": "1.2.3.4", "Authorization": "Bearer x"}
	assert.Equal(t, FingerprintHeaders(a), FingerprintHeaders(b))
}

func TestFingerprintHeadersDifferOnValueChange(t *testing.T) {
	a := map[string]string{"Authorization": "Bearer x"}
	b := map[string]string{"Authorization": "Bearer y"}
	assert.NotEqual(t, FingerprintHeaders(a), FingerprintHeaders(b))
}

func TestFingerprintHeadersEmptyIsZero(t *testing.T) {
	assert.Equal(t, uint64(0), FingerprintHeaders(nil))
	assert.Equal(t, uint64(0), FingerprintHeaders(map[string]string{}))
}
