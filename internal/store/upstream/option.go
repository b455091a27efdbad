package upstream

import "net/http"

type Option func(upstream *Upstream)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(upstream *Upstream) {
		upstream.httpClient = httpClient
	}
}

func WithSecret(secret string) Option {
	return func(upstream *Upstream) {
		upstream.secret = secret
	}
}
