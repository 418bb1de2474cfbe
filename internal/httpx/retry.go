// Package httpx provides the shared rate-limit handling used by both
// platform clients.
package httpx

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// DefaultRetryAfter is used when a 429 response carries no usable
// Retry-After header.
const DefaultRetryAfter = 2 * time.Second

// Doer executes HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RateLimitDoer wraps a Doer and transparently replays requests that come
// back with 429 Too Many Requests. Each 429 triggers one sleep-and-replay;
// repeated 429s repeat the cycle, there is no retry ceiling at this layer.
type RateLimitDoer struct {
	inner Doer
	log   *slog.Logger
	sleep func(time.Duration)
}

// NewRateLimitDoer wraps inner with 429 replay behavior.
func NewRateLimitDoer(inner Doer, log *slog.Logger) *RateLimitDoer {
	return &RateLimitDoer{inner: inner, log: log, sleep: time.Sleep}
}

// SetSleep replaces the sleep function. Tests use this to avoid real delays.
func (d *RateLimitDoer) SetSleep(sleep func(time.Duration)) {
	d.sleep = sleep
}

// Do executes the request, waiting out any 429 responses. The request must
// have GetBody set when it carries a body so it can be reissued; requests
// built with http.NewRequest from a bytes.Reader satisfy this.
func (d *RateLimitDoer) Do(req *http.Request) (*http.Response, error) {
	for {
		resp, err := d.inner.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		wait := retryAfter(resp)
		resp.Body.Close()
		d.log.Warn("rate limited, waiting before retry",
			"url", req.URL.Path, "wait", wait)
		d.sleep(wait)

		if req.Body != nil {
			if req.GetBody == nil {
				return nil, fmt.Errorf("cannot replay request to %s: body is not rewindable", req.URL.Path)
			}
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("rewind request body: %w", err)
			}
			req.Body = body
		}
	}
}

// retryAfter parses the Retry-After header, falling back to
// DefaultRetryAfter when missing or malformed. Only the delta-seconds form
// is honored.
func retryAfter(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return DefaultRetryAfter
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return DefaultRetryAfter
	}
	return time.Duration(secs) * time.Second
}
