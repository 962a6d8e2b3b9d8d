package api

import (
	"net/http"

	"github.com/gregjones/httpcache"
	"github.com/gregjones/httpcache/diskcache"
)

// NewCachingTransport wraps base with an RFC 7234 cache so repeated feed and
// list fetches honour the server's Cache-Control headers. With an empty
// cacheDir the cache lives in memory only.
func NewCachingTransport(base http.RoundTripper, cacheDir string) http.RoundTripper {
	var cache httpcache.Cache
	if cacheDir == "" {
		cache = httpcache.NewMemoryCache()
	} else {
		cache = diskcache.New(cacheDir)
	}

	transport := httpcache.NewTransport(cache)
	transport.Transport = base
	return transport
}
