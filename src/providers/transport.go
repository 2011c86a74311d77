package providers

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/time/rate"
)

// MaxBodyBytes caps buffered (non event-stream) response bodies.
const MaxBodyBytes = 5 * 1024 * 1024

// Transport is the host transport every provider client goes through.
// Event-stream responses pass through untouched; anything else has its
// declared length checked and its body truncated to MaxBytes.
type Transport struct {
	Base    http.RoundTripper
	Limiter *rate.Limiter
	Logger  *slog.Logger
	// MaxBytes defaults to MaxBodyBytes when zero.
	MaxBytes int64
}

// NewTransport wraps base (http.DefaultTransport when nil). limiter may be nil.
func NewTransport(base http.RoundTripper, limiter *rate.Limiter, logger *slog.Logger) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Transport{
		Base:    base,
		Limiter: limiter,
		Logger:  logger.With("component", "host_transport"),
	}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	logger := t.Logger.With("method", req.Method, "url", redactURL(req))

	if t.Limiter != nil {
		if err := t.Limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
	}

	logger.Debug("sending request")
	resp, err := t.Base.RoundTrip(req)
	if err != nil {
		logger.Debug("request failed", "error", err)
		return nil, err
	}
	logger.Debug("received response", "status", resp.StatusCode)

	if isEventStream(req.Header.Get("Accept")) || isEventStream(resp.Header.Get("Content-Type")) {
		return resp, nil
	}

	limit := t.MaxBytes
	if limit <= 0 {
		limit = MaxBodyBytes
	}
	if resp.ContentLength > limit {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %d bytes", ErrResponseTooLarge, resp.ContentLength)
	}

	resp.Body = &cappedBody{
		Reader: io.LimitReader(resp.Body, limit),
		closer: resp.Body,
	}
	return resp, nil
}

type cappedBody struct {
	io.Reader
	closer io.Closer
}

func (b *cappedBody) Close() error {
	return b.closer.Close()
}

func isEventStream(v string) bool {
	return strings.Contains(v, "text/event-stream")
}

// redactURL drops the query string, which carries the key for some
// google endpoints.
func redactURL(req *http.Request) string {
	u := *req.URL
	u.RawQuery = ""
	return u.String()
}

// headerTransport adds fixed headers to every request.
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if len(t.headers) == 0 {
		return t.base.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.base.RoundTrip(req)
}

// withHeaders returns a client sharing c's transport that also sets headers.
func withHeaders(c *http.Client, headers map[string]string) *http.Client {
	if len(headers) == 0 {
		return c
	}
	base := c.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	return &http.Client{
		Transport:     &headerTransport{base: base, headers: headers},
		Timeout:       c.Timeout,
		CheckRedirect: c.CheckRedirect,
		Jar:           c.Jar,
	}
}
