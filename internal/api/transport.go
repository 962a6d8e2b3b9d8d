package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
)

// CredentialSource supplies the bearer credential for outgoing requests.
// An empty string means no credential is attached and the request is sent
// unmodified.
type CredentialSource interface {
	AccessCredential() string
}

// Transport attaches the bearer credential to every outgoing request and
// applies the blanket unauthorized policy: any 401 response fires the
// OnUnauthorized hook before the response is handed back to the caller.
// There is no retry-with-refresh and no distinction between an expired and an
// invalid credential.
type Transport struct {
	Base        http.RoundTripper
	Credentials CredentialSource

	// OnUnauthorized is invoked once per 401 response. The session store
	// registers its clear-and-redirect behaviour here.
	OnUnauthorized func()
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())

	if t.Credentials != nil {
		if cred := t.Credentials.AccessCredential(); cred != "" {
			req.Header.Set("Authorization", "Bearer "+cred)
		}
	}
	req.Header.Set("X-Request-Id", uuid.NewString())
	if req.Header.Get("Accept-Encoding") == "" {
		req.Header.Set("Accept-Encoding", "gzip")
	}

	resp, err := t.base().RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			resp.Body.Close()
			return nil, err
		}
		resp.Body = &gzipBody{Reader: gz, underlying: resp.Body}
		resp.Header.Del("Content-Encoding")
		resp.Header.Del("Content-Length")
		resp.ContentLength = -1
	}

	if resp.StatusCode == http.StatusUnauthorized && t.OnUnauthorized != nil {
		t.OnUnauthorized()
	}

	return resp, nil
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

// gzipBody closes both the gzip reader and the wrapped response body.
type gzipBody struct {
	*gzip.Reader
	underlying interface{ Close() error }
}

func (b *gzipBody) Close() error {
	if err := b.Reader.Close(); err != nil {
		b.underlying.Close()
		return err
	}
	return b.underlying.Close()
}

// LoggingTransport logs every round trip with method, path, status and
// duration.
type LoggingTransport struct {
	Base   http.RoundTripper
	Logger zerolog.Logger
}

func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	started := time.Now()

	resp, err := t.base().RoundTrip(req)
	if err != nil {
		t.Logger.Error().
			Err(err).
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Dur("duration", time.Since(started)).
			Msg("http request")
		return nil, err
	}

	t.Logger.Debug().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(started)).
		Msg("http request")

	return resp, nil
}

func (t *LoggingTransport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}
