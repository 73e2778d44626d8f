package rest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(retries int) *Client {
	c := New(2*time.Second, retries)
	c.BaseDelay = time.Millisecond
	return c
}

func TestDoSuccessSendsQueryAndHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("email") != "*@albion.edu" {
			t.Errorf("email query = %q", r.URL.Query().Get("email"))
		}
		if r.Header.Get("brightpearl-auth") != "tok" {
			t.Errorf("auth header = %q", r.Header.Get("brightpearl-auth"))
		}
		if r.Header.Get("X-Request-Id") == "" {
			t.Error("expected request id header")
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	resp, err := newTestClient(0).Do(context.Background(), Request{
		URL:    server.URL + "/contacts",
		Query:  url.Values{"email": {"*@albion.edu"}},
		Header: http.Header{"brightpearl-auth": {"tok"}},
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if resp.StatusCode != http.StatusOK || string(resp.Body) != `{"ok":true}` {
		t.Errorf("unexpected response %d %s", resp.StatusCode, resp.Body)
	}
}

func TestDoRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	if _, err := newTestClient(2).Do(context.Background(), Request{URL: server.URL}); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestDoDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`bad key`))
	}))
	defer server.Close()

	resp, err := newTestClient(3).Do(context.Background(), Request{URL: server.URL})
	var herr *HTTPError
	if !errors.As(err, &herr) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if herr.StatusCode != http.StatusUnauthorized || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d / %d", herr.StatusCode, resp.StatusCode)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestDoTimesOut(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer server.Close()

	c := newTestClient(0)
	c.Timeout = 50 * time.Millisecond
	if _, err := c.Do(context.Background(), Request{URL: server.URL}); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestSnippet(t *testing.T) {
	if got := Snippet([]byte("  short  "), 10); got != "short" {
		t.Errorf("Snippet = %q", got)
	}
	if got := Snippet([]byte("long text here"), 4); got != "long..." {
		t.Errorf("Snippet = %q", got)
	}
}

func TestFullURL(t *testing.T) {
	r := Request{URL: "https://x.test/a?b=1", Query: url.Values{"c": {"2"}}}
	if got := r.FullURL(); got != "https://x.test/a?b=1&c=2" {
		t.Errorf("FullURL = %q", got)
	}
}
