package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"schooldash/internal/domain"
)

type fakeSchools struct {
	created []string
	err     error
}

func (f *fakeSchools) Create(_ context.Context, d string) (domain.SchoolSnapshot, domain.RawData, error) {
	if f.err != nil {
		return domain.SchoolSnapshot{}, domain.RawData{}, f.err
	}
	f.created = append(f.created, d)
	dir := domain.Succeeded("ok", domain.DirectoryData{TotalStaff: 3})
	return domain.SchoolSnapshot{Domain: d}, domain.RawData{Directory: &dir}, nil
}

func (f *fakeSchools) Refresh(context.Context, string) (domain.RawData, error) {
	return domain.RawData{}, f.err
}

func (f *fakeSchools) Delete(_ context.Context, d string) (domain.SchoolSnapshot, error) {
	return domain.SchoolSnapshot{Domain: d}, f.err
}

func (f *fakeSchools) Get(_ context.Context, d string) (domain.SchoolSnapshot, error) {
	return domain.SchoolSnapshot{Domain: d, SchoolName: "Albion"}, f.err
}

func (f *fakeSchools) List(context.Context) ([]domain.SchoolSnapshot, error) { return nil, f.err }

func (f *fakeSchools) RefreshAll(context.Context) ([]domain.RefreshOutcome, error) {
	return []domain.RefreshOutcome{{Domain: "albion.edu", Success: true}}, f.err
}

func (f *fakeSchools) SourceStatus(context.Context) map[string]bool {
	return map[string]bool{"directory": true, "orders": false, "marketing": false}
}

type fakeCredentials struct {
	saved []domain.Credentials
}

func (f *fakeCredentials) Save(_ context.Context, c domain.Credentials) error {
	if c.Service == "csd" {
		return domain.ErrInvalidService
	}
	f.saved = append(f.saved, c)
	return nil
}

func (f *fakeCredentials) List(context.Context) ([]domain.Credentials, error) {
	return []domain.Credentials{{Service: "marketing", APIKey: "****cdef"}}, nil
}

func (f *fakeCredentials) Test(_ context.Context, service string) (bool, error) {
	return service == "directory", nil
}

func newTestServer(schools *fakeSchools) (*httptest.Server, *fakeCredentials) {
	creds := &fakeCredentials{}
	srv := httptest.NewServer(New(schools, creds, "s3cret", 0).Routes())
	return srv, creds
}

type decoded struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func do(t *testing.T, method, target, contentType, body, token string) (*http.Response, decoded) {
	t.Helper()
	req, err := http.NewRequest(method, target, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, target, err)
	}
	defer resp.Body.Close()
	var out decoded
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestAddSchool(t *testing.T) {
	schools := &fakeSchools{}
	srv, _ := newTestServer(schools)
	defer srv.Close()

	resp, body := do(t, http.MethodPost, srv.URL+"/api/schools", "application/json", `{"domain":"albion.edu"}`, "")
	if resp.StatusCode != http.StatusOK || !body.Success || body.Message != "School added successfully" {
		t.Fatalf("status=%d body=%+v", resp.StatusCode, body)
	}
	var raw map[string]json.RawMessage
	_ = json.Unmarshal(body.Data, &raw)
	if _, ok := raw["directory"]; !ok || len(raw) != 1 {
		t.Errorf("data = %s", body.Data)
	}
	if resp.Header.Get("X-Request-Id") == "" {
		t.Error("missing X-Request-Id")
	}

	form := url.Values{"domain": {"hope.edu"}}.Encode()
	resp, _ = do(t, http.MethodPost, srv.URL+"/api/schools", "application/x-www-form-urlencoded", form, "")
	if resp.StatusCode != http.StatusOK || len(schools.created) != 2 || schools.created[1] != "hope.edu" {
		t.Errorf("form post: status=%d created=%v", resp.StatusCode, schools.created)
	}
}

func TestAddSchoolValidation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		err     error
		status  int
		message string
	}{
		{"missing domain", `{}`, nil, http.StatusBadRequest, "School domain is required"},
		{"bad json", `{`, nil, http.StatusBadRequest, "Invalid request body"},
		{"invalid", `{"domain":"x"}`, domain.ErrInvalidDomain, http.StatusBadRequest, "Invalid domain format"},
		{"duplicate", `{"domain":"albion.edu"}`, domain.ErrAlreadyExists, http.StatusConflict, "School with this domain already exists"},
		{"store down", `{"domain":"albion.edu"}`, errors.New("db down"), http.StatusInternalServerError, "Failed to add school"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := newTestServer(&fakeSchools{err: tc.err})
			defer srv.Close()
			resp, body := do(t, http.MethodPost, srv.URL+"/api/schools", "application/json", tc.body, "")
			if resp.StatusCode != tc.status || body.Success || body.Message != tc.message {
				t.Errorf("status=%d body=%+v", resp.StatusCode, body)
			}
		})
	}
}

func TestRefreshUnknownSchool(t *testing.T) {
	srv, _ := newTestServer(&fakeSchools{err: domain.ErrNotFound})
	defer srv.Close()

	resp, body := do(t, http.MethodPost, srv.URL+"/api/schools/refresh", "application/json", `{"domain":"albion.edu"}`, "")
	if resp.StatusCode != http.StatusNotFound || body.Message != "School with this domain does not exist" {
		t.Errorf("status=%d body=%+v", resp.StatusCode, body)
	}
}

func TestDeleteRequiresAdmin(t *testing.T) {
	srv, _ := newTestServer(&fakeSchools{})
	defer srv.Close()

	resp, _ := do(t, http.MethodPost, srv.URL+"/api/schools/delete", "application/json", `{"domain":"albion.edu"}`, "")
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("without token status = %d", resp.StatusCode)
	}
	resp, _ = do(t, http.MethodPost, srv.URL+"/api/schools/delete", "application/json", `{"domain":"albion.edu"}`, "wrong")
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("wrong token status = %d", resp.StatusCode)
	}
	resp, body := do(t, http.MethodPost, srv.URL+"/api/schools/delete", "application/json", `{"domain":"albion.edu"}`, "s3cret")
	if resp.StatusCode != http.StatusOK || body.Message != "School deleted successfully" {
		t.Errorf("status=%d body=%+v", resp.StatusCode, body)
	}
}

func TestReadEndpoints(t *testing.T) {
	srv, _ := newTestServer(&fakeSchools{})
	defer srv.Close()

	resp, body := do(t, http.MethodGet, srv.URL+"/api/schools", "", "", "")
	if resp.StatusCode != http.StatusOK || string(body.Data) != "[]" {
		t.Errorf("list: status=%d data=%s", resp.StatusCode, body.Data)
	}

	_, body = do(t, http.MethodGet, srv.URL+"/api/schools/albion.edu", "", "", "")
	var snap domain.SchoolSnapshot
	_ = json.Unmarshal(body.Data, &snap)
	if snap.Domain != "albion.edu" {
		t.Errorf("details = %s", body.Data)
	}

	_, body = do(t, http.MethodGet, srv.URL+"/api/sources", "", "", "")
	var status map[string]bool
	_ = json.Unmarshal(body.Data, &status)
	if !status["directory"] || status["orders"] || len(status) != 3 {
		t.Errorf("sources = %s", body.Data)
	}

	resp, _ = do(t, http.MethodGet, srv.URL+"/healthz", "", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d", resp.StatusCode)
	}

	resp, body = do(t, http.MethodPost, srv.URL+"/api/schools/refresh-all", "", "", "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body.Data), "albion.edu") {
		t.Errorf("refresh-all: status=%d data=%s", resp.StatusCode, body.Data)
	}
}

func TestCredentialsEndpoints(t *testing.T) {
	srv, creds := newTestServer(&fakeSchools{})
	defer srv.Close()

	body := `{"api_key":"pk_live","additional_data":{"api_version":"2024-02-15"}}`
	resp, out := do(t, http.MethodPut, srv.URL+"/api/credentials/marketing", "application/json", body, "s3cret")
	if resp.StatusCode != http.StatusOK || !out.Success {
		t.Fatalf("save: status=%d body=%+v", resp.StatusCode, out)
	}
	if len(creds.saved) != 1 || creds.saved[0].Service != "marketing" || creds.saved[0].Extra("api_version", "") != "2024-02-15" {
		t.Errorf("saved = %+v", creds.saved)
	}

	resp, out = do(t, http.MethodPut, srv.URL+"/api/credentials/csd", "application/json", `{}`, "s3cret")
	if resp.StatusCode != http.StatusBadRequest || out.Message != "Invalid service specified" {
		t.Errorf("bad service: status=%d body=%+v", resp.StatusCode, out)
	}

	resp, out = do(t, http.MethodGet, srv.URL+"/api/credentials", "", "", "s3cret")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(out.Data), "****cdef") {
		t.Errorf("list: status=%d data=%s", resp.StatusCode, out.Data)
	}

	_, out = do(t, http.MethodPost, srv.URL+"/api/credentials/directory/test", "", "", "s3cret")
	if !out.Success {
		t.Errorf("directory test = %+v", out)
	}
	_, out = do(t, http.MethodPost, srv.URL+"/api/credentials/orders/test", "", "", "s3cret")
	if out.Success || out.Message != "Connection failed" {
		t.Errorf("orders test = %+v", out)
	}
}

func TestInternalErrorHidesDetail(t *testing.T) {
	srv, _ := newTestServer(&fakeSchools{err: errors.New("dial tcp 10.0.0.5:5432: password authentication failed")})
	defer srv.Close()

	resp, body := do(t, http.MethodPost, srv.URL+"/api/schools/refresh", "application/json", `{"domain":"albion.edu"}`, "")
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body.Message != "Failed to refresh school data" || strings.Contains(body.Message, "password") {
		t.Errorf("message = %q", body.Message)
	}
}

func TestRequestIDEchoed(t *testing.T) {
	srv, _ := newTestServer(&fakeSchools{})
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/healthz", http.NoBody)
	req.Header.Set("X-Request-Id", "abc-123")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("X-Request-Id"); got != "abc-123" {
		t.Errorf("X-Request-Id = %q", got)
	}
}

func TestRecovery(t *testing.T) {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, EchoRequestID, middleware.Recoverer)
	r.Get("/", func(http.ResponseWriter, *http.Request) { panic("boom") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rec.Code)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("missing X-Request-Id on recovered response")
	}
}
