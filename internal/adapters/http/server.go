package httpadapter

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"schooldash/internal/domain"
	"schooldash/internal/ports"
)

type Server struct {
	schools     ports.Schools
	credentials ports.Credentials
	adminToken  string
	timeout     time.Duration
}

// New builds the server. timeout bounds each request, including the
// upstream calls made by add and refresh.
func New(schools ports.Schools, credentials ports.Credentials, adminToken string, timeout time.Duration) *Server {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Server{schools: schools, credentials: credentials, adminToken: adminToken, timeout: timeout}
}

func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, EchoRequestID, AccessLog, middleware.Recoverer, middleware.Timeout(s.timeout))

	r.Get("/healthz", s.healthz)

	r.Route("/api", func(r chi.Router) {
		r.Get("/sources", s.sourceStatus)

		r.Get("/schools", s.listSchools)
		r.Post("/schools", s.addSchool)
		r.Post("/schools/refresh", s.refreshSchool)
		r.Post("/schools/refresh-all", s.refreshAll)
		r.Get("/schools/{domain}", s.getSchool)

		r.Group(func(r chi.Router) {
			r.Use(AdminAuth(s.adminToken))
			r.Post("/schools/delete", s.deleteSchool)
			r.Get("/credentials", s.listCredentials)
			r.Put("/credentials/{service}", s.saveCredentials)
			r.Post("/credentials/{service}/test", s.testCredentials)
		})
	})
	return r
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// domainParam reads "domain" from a JSON body or a form post.
func domainParam(r *http.Request) (string, error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		var body struct {
			Domain string `json:"domain"`
		}
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		return strings.TrimSpace(body.Domain), nil
	}
	return strings.TrimSpace(r.FormValue("domain")), nil
}

// requireDomain writes the 400 response itself and returns ok=false when
// the domain is missing.
func requireDomain(w http.ResponseWriter, r *http.Request) (string, bool) {
	d, err := domainParam(r)
	if err != nil {
		writeFail(w, http.StatusBadRequest, "Invalid request body")
		return "", false
	}
	if d == "" {
		writeFail(w, http.StatusBadRequest, "School domain is required")
		return "", false
	}
	return d, true
}

func (s *Server) addSchool(w http.ResponseWriter, r *http.Request) {
	d, ok := requireDomain(w, r)
	if !ok {
		return
	}
	_, raw, err := s.schools.Create(r.Context(), d)
	if err != nil {
		writeError(w, r, err, "Failed to add school")
		return
	}
	writeOK(w, "School added successfully", raw)
}

func (s *Server) refreshSchool(w http.ResponseWriter, r *http.Request) {
	d, ok := requireDomain(w, r)
	if !ok {
		return
	}
	raw, err := s.schools.Refresh(r.Context(), d)
	if err != nil {
		writeError(w, r, err, "Failed to refresh school data")
		return
	}
	writeOK(w, "School data refreshed successfully", raw)
}

func (s *Server) refreshAll(w http.ResponseWriter, r *http.Request) {
	out, err := s.schools.RefreshAll(r.Context())
	if err != nil {
		writeError(w, r, err, "Failed to refresh schools")
		return
	}
	writeOK(w, "Schools refreshed", out)
}

func (s *Server) deleteSchool(w http.ResponseWriter, r *http.Request) {
	d, ok := requireDomain(w, r)
	if !ok {
		return
	}
	snap, err := s.schools.Delete(r.Context(), d)
	if err != nil {
		writeError(w, r, err, "Error deleting school")
		return
	}
	writeOK(w, "School deleted successfully", snap)
}

func (s *Server) listSchools(w http.ResponseWriter, r *http.Request) {
	list, err := s.schools.List(r.Context())
	if err != nil {
		writeError(w, r, err, "Failed to list schools")
		return
	}
	if list == nil {
		list = []domain.SchoolSnapshot{}
	}
	writeOK(w, "", list)
}

func (s *Server) getSchool(w http.ResponseWriter, r *http.Request) {
	snap, err := s.schools.Get(r.Context(), chi.URLParam(r, "domain"))
	if err != nil {
		writeError(w, r, err, "Failed to load school")
		return
	}
	writeOK(w, "", snap)
}

func (s *Server) sourceStatus(w http.ResponseWriter, r *http.Request) {
	writeOK(w, "", s.schools.SourceStatus(r.Context()))
}

func (s *Server) listCredentials(w http.ResponseWriter, r *http.Request) {
	list, err := s.credentials.List(r.Context())
	if err != nil {
		writeError(w, r, err, "Failed to load credentials")
		return
	}
	if list == nil {
		list = []domain.Credentials{}
	}
	writeOK(w, "", list)
}

type credentialsBody struct {
	APIKey         string            `json:"api_key"`
	APISecret      string            `json:"api_secret"`
	AccessToken    string            `json:"access_token"`
	RefreshToken   string            `json:"refresh_token"`
	ExpiresAt      *time.Time        `json:"expires_at"`
	AdditionalData map[string]string `json:"additional_data"`
}

func (s *Server) saveCredentials(w http.ResponseWriter, r *http.Request) {
	var body credentialsBody
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&body); err != nil {
		writeFail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	service := chi.URLParam(r, "service")
	err := s.credentials.Save(r.Context(), domain.Credentials{
		Service:        service,
		APIKey:         body.APIKey,
		APISecret:      body.APISecret,
		AccessToken:    body.AccessToken,
		RefreshToken:   body.RefreshToken,
		ExpiresAt:      body.ExpiresAt,
		AdditionalData: body.AdditionalData,
	})
	if err != nil {
		writeError(w, r, err, "Error saving credentials")
		return
	}
	writeOK(w, strings.ToLower(service)+" credentials saved successfully", nil)
}

func (s *Server) testCredentials(w http.ResponseWriter, r *http.Request) {
	ok, err := s.credentials.Test(r.Context(), chi.URLParam(r, "service"))
	if err != nil {
		writeError(w, r, err, "Connection test failed")
		return
	}
	msg := "Connection successful"
	if !ok {
		msg = "Connection failed"
	}
	writeJSON(w, http.StatusOK, envelope{Success: ok, Message: msg})
}
