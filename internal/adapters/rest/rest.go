// Package rest performs outbound JSON API calls with a per-call timeout and
// bounded retries on throttling and server errors.
package rest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

// HTTPError carries status/body for non-2xx responses.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http error: %s %s status=%d body=%s", e.Method, e.URL, e.StatusCode, Snippet(e.Body, 300))
}

// Snippet trims b for logs and error messages.
func Snippet(b []byte, max int) string {
	s := strings.TrimSpace(string(b))
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

type Request struct {
	Method string
	URL    string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// FullURL is the request URL with its encoded query.
func (r Request) FullURL() string {
	if len(r.Query) == 0 {
		return r.URL
	}
	sep := "?"
	if strings.Contains(r.URL, "?") {
		sep = "&"
	}
	return r.URL + sep + r.Query.Encode()
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Doer is the transport seen by source clients.
type Doer interface {
	Do(ctx context.Context, req Request) (Response, error)
}

type Client struct {
	HTTP       *http.Client
	Timeout    time.Duration
	MaxRetries uint64
	BaseDelay  time.Duration
}

func New(timeout time.Duration, maxRetries int) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	tr := &http.Transport{
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &Client{
		HTTP:       &http.Client{Transport: tr},
		Timeout:    timeout,
		MaxRetries: uint64(maxRetries),
		BaseDelay:  250 * time.Millisecond,
	}
}

// Do sends req. The whole call, retries included, is bounded by c.Timeout.
// Non-2xx responses return *HTTPError alongside the response.
func (c *Client) Do(ctx context.Context, req Request) (Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	target := req.FullURL()
	requestID := uuid.NewString()

	backoff := retry.WithMaxRetries(c.MaxRetries, retry.NewExponential(c.BaseDelay))

	var out Response
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var body io.Reader
		if req.Body != nil {
			body = bytes.NewReader(req.Body)
		}
		r, err := http.NewRequestWithContext(ctx, method, target, body)
		if err != nil {
			return err
		}
		for k, vs := range req.Header {
			for _, v := range vs {
				r.Header.Add(k, v)
			}
		}
		r.Header.Set("X-Request-Id", requestID)

		resp, err := c.HTTP.Do(r)
		if err != nil {
			if isRetryableNetErr(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		b, err := readAndClose(resp.Body)
		if err != nil {
			return retry.RetryableError(err)
		}
		out = Response{StatusCode: resp.StatusCode, Header: resp.Header.Clone(), Body: b}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		herr := &HTTPError{Method: method, URL: target, StatusCode: resp.StatusCode, Body: b}
		if isRetryableStatus(resp.StatusCode) {
			return retry.RetryableError(herr)
		}
		return herr
	})
	return out, err
}

func readAndClose(rc io.ReadCloser) ([]byte, error) {
	defer rc.Close()
	return io.ReadAll(rc)
}

func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusRequestTimeout:
		return true
	}
	return code >= 500 && code <= 599
}

func isRetryableNetErr(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		return nerr.Timeout()
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection reset") || strings.Contains(msg, "broken pipe")
}
