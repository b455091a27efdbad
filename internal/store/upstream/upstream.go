// Package upstream implements a read-only origin store backed by another
// HTTP server, e.g. a legacy static file host or a public bucket endpoint.
package upstream

import (
	"context"
	"fmt"
	"github.com/cirruslabs/mocha/internal/store"
	"io"
	"net/http"
	"net/url"
	"strings"
)

type Upstream struct {
	baseURL    *url.URL
	secret     string
	httpClient *http.Client
}

func New(baseURL string, opts ...Option) (*Upstream, error) {
	parsedBaseURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse upstream URL %q: %w", baseURL, err)
	}

	if parsedBaseURL.Scheme != "http" && parsedBaseURL.Scheme != "https" {
		return nil, fmt.Errorf("upstream URL %q should use either HTTP or HTTPS scheme", baseURL)
	}

	upstream := &Upstream{
		baseURL:    parsedBaseURL,
		httpClient: http.DefaultClient,
	}

	// Apply options
	for _, opt := range opts {
		opt(upstream)
	}

	return upstream, nil
}

func (upstream *Upstream) Exists(ctx context.Context, key string) (bool, error) {
	response, err := upstream.do(ctx, http.MethodHead, key)
	if err != nil {
		return false, store.Unavailable(err, "check existence of", key)
	}
	defer response.Body.Close()

	switch response.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound, http.StatusGone:
		return false, nil
	default:
		return false, store.Unavailable(fmt.Errorf("unexpected HTTP %d", response.StatusCode),
			"check existence of", key)
	}
}

func (upstream *Upstream) Get(ctx context.Context, key string) (io.ReadCloser, store.Metadata, error) {
	response, err := upstream.do(ctx, http.MethodGet, key)
	if err != nil {
		return nil, store.Metadata{}, store.Unavailable(err, "retrieve", key)
	}

	switch response.StatusCode {
	case http.StatusOK:
		// All good, continue
	case http.StatusNotFound, http.StatusGone:
		_ = response.Body.Close()

		return nil, store.Metadata{}, store.ErrNotFound
	default:
		_ = response.Body.Close()

		return nil, store.Metadata{}, store.Unavailable(fmt.Errorf("unexpected HTTP %d",
			response.StatusCode), "retrieve", key)
	}

	return response.Body, store.Metadata{
		ContentType:  response.Header.Get("Content-Type"),
		CacheControl: response.Header.Get("Cache-Control"),
	}, nil
}

func (upstream *Upstream) do(ctx context.Context, method string, key string) (*http.Response, error) {
	request, err := http.NewRequestWithContext(ctx, method, upstream.url(key), nil)
	if err != nil {
		return nil, err
	}

	// Provide authorization
	if upstream.secret != "" {
		request.Header.Set("Authorization", "Bearer "+upstream.secret)
	}

	return upstream.httpClient.Do(request)
}

func (upstream *Upstream) url(key string) string {
	segments := strings.Split(key, "/")

	return upstream.baseURL.JoinPath(segments...).String()
}
