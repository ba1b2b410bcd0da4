package httpserver

import (
	"context"

	"github.com/ManuGH/hlsgate/internal/proxyclient"
)

// ProxyClientAdapter adapts *proxyclient.Client to the narrower
// Fetcher interface the handlers depend on. InitFetcherAdapter below
// serves internal/initcache.Fetcher.
type ProxyClientAdapter struct {
	Client *proxyclient.Client
}

func (a ProxyClientAdapter) Get(ctx context.Context, url string, headers map[string]string, httpRange string) ([]byte, string, error) {
	res, err := a.Client.Get(ctx, url, headers, httpRange)
	if err != nil {
		return nil, "", err
	}
	return res.Body, res.ContentType, nil
}

// InitFetcherAdapter satisfies internal/initcache.Fetcher, discarding
// the content type the init cache has no use for.
type InitFetcherAdapter struct {
	Client *proxyclient.Client
}

func (a InitFetcherAdapter) Get(ctx context.Context, url string, headers map[string]string, httpRange string) ([]byte, error) {
	res, err := a.Client.Get(ctx, url, headers, httpRange)
	if err != nil {
		return nil, err
	}
	return res.Body, nil
}
