// Package marketing reads email engagement for a school from the marketing
// platform (Klaviyo).
package marketing

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"schooldash/internal/adapters/rest"
	"schooldash/internal/domain"
	"schooldash/internal/ports"
	"schooldash/internal/sources/payload"
)

type Config struct {
	BaseURL  string
	Revision string
}

type Client struct {
	cfg   Config
	creds ports.CredentialRepository
	http  rest.Doer
	log   *slog.Logger
}

var _ ports.MarketingSource = (*Client)(nil)

func New(cfg Config, creds ports.CredentialRepository, doer rest.Doer, log *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://a.klaviyo.com/api"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Revision == "" {
		cfg.Revision = "2023-09-15"
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{cfg: cfg, creds: creds, http: doer, log: log.With("source", domain.ServiceMarketing)}
}

func (c *Client) Name() string { return domain.ServiceMarketing }

func (c *Client) credentials(ctx context.Context) (domain.Credentials, error) {
	exists, creds, err := c.creds.GetCredentials(ctx, domain.ServiceMarketing)
	if err != nil {
		return creds, fmt.Errorf("load marketing credentials: %w", err)
	}
	if !exists || creds.APIKey == "" {
		return creds, domain.ErrNotConfigured
	}
	return creds, nil
}

func (c *Client) IsAvailable(ctx context.Context) bool {
	_, err := c.credentials(ctx)
	return err == nil
}

// FetchSchoolData collects the profiles with an address at d and their
// aggregate email metrics. A failure of either call fails the result.
func (c *Client) FetchSchoolData(ctx context.Context, d string) domain.SourceResult[domain.MarketingData] {
	creds, err := c.credentials(ctx)
	if err != nil {
		return domain.Failed[domain.MarketingData]("Marketing API is not configured: " + err.Error())
	}

	profiles, total, err := c.searchProfiles(ctx, creds, d)
	if err != nil {
		return domain.Failed[domain.MarketingData]("Profile search failed: " + err.Error())
	}
	metrics, err := c.emailMetrics(ctx, creds, d)
	if err != nil {
		return domain.Failed[domain.MarketingData]("Metrics request failed: " + err.Error())
	}

	return domain.Succeeded("School data retrieved successfully", domain.MarketingData{
		Profiles:      profiles,
		TotalProfiles: total,
		Metrics:       metrics,
		EmailCount:    metrics.Sent,
		OpenRate:      metrics.OpenRate,
		ClickRate:     metrics.ClickRate,
		OrderRate:     metrics.ConversionRate,
	})
}

// searchProfiles reads the first page of matching profiles only; links.next
// is never followed. total is the count the API reports, falling back to
// the number of profiles on the page.
func (c *Client) searchProfiles(ctx context.Context, creds domain.Credentials, d string) ([]domain.Profile, int, error) {
	body, err := c.get(ctx, creds, rest.Request{
		URL:   c.cfg.BaseURL + "/profiles",
		Query: url.Values{"filter": {fmt.Sprintf(`ends-with(email,"@%s")`, d)}},
	})
	if err != nil {
		return nil, 0, err
	}
	v, err := payload.Decode(body)
	if err != nil {
		return nil, 0, err
	}
	doc := payload.Object(v)

	profiles := []domain.Profile{}
	items, _ := doc["data"].([]any)
	for _, item := range items {
		profiles = append(profiles, profileFrom(payload.Object(item)))
	}
	total := len(profiles)
	if t := payload.Pick(payload.Object(doc["meta"]), "total", "count"); t != nil {
		total = payload.Int(t)
	}
	return profiles, total, nil
}

func profileFrom(item map[string]any) domain.Profile {
	attrs := payload.Object(item["attributes"])
	if attrs == nil {
		attrs = item
	}
	return domain.Profile{
		ID:        payload.String(item["id"]),
		Email:     payload.String(payload.Pick(attrs, "email")),
		FirstName: payload.String(payload.Pick(attrs, "first_name", "firstName")),
		LastName:  payload.String(payload.Pick(attrs, "last_name", "lastName")),
		Created:   payload.String(payload.Pick(attrs, "created", "created_at")),
	}
}

func (c *Client) emailMetrics(ctx context.Context, creds domain.Credentials, d string) (domain.MetricSet, error) {
	body, err := c.get(ctx, creds, rest.Request{
		URL:   c.cfg.BaseURL + "/metrics/email",
		Query: url.Values{"filter": {fmt.Sprintf(`contains(profile.email,"@%s")`, d)}},
	})
	if err != nil {
		return domain.MetricSet{}, err
	}
	v, err := payload.Decode(body)
	if err != nil {
		return domain.MetricSet{}, err
	}
	return metricsFrom(payload.Object(v)), nil
}

// metricsFrom reads the counters from the top level, "data" or
// "data.attributes", whichever carries them. Missing values are 0.
func metricsFrom(doc map[string]any) domain.MetricSet {
	m := doc
	if data := payload.Object(doc["data"]); data != nil {
		m = data
		if attrs := payload.Object(data["attributes"]); attrs != nil {
			m = attrs
		}
	}
	return domain.MetricSet{
		Sent:           payload.Int(payload.Pick(m, "sent", "recipients")),
		OpenRate:       payload.Float(payload.Pick(m, "open_rate", "openRate")),
		ClickRate:      payload.Float(payload.Pick(m, "click_rate", "clickRate")),
		ConversionRate: payload.Float(payload.Pick(m, "conversion_rate", "conversionRate")),
	}
}

func (c *Client) get(ctx context.Context, creds domain.Credentials, req rest.Request) ([]byte, error) {
	revision := creds.Extra("api_version", c.cfg.Revision)
	req.Method = http.MethodGet
	req.Header = http.Header{
		"Accept":        {"application/json"},
		"Content-Type":  {"application/json"},
		"Revision":      {revision},
		"Authorization": {"Klaviyo-API-Key " + creds.APIKey},
	}
	resp, err := c.http.Do(ctx, req)

	level := slog.LevelInfo
	if err != nil {
		level = slog.LevelError
	}
	c.log.Log(ctx, level, "marketing api call",
		"endpoint", req.URL,
		"params", req.Query.Encode(),
		"status", resp.StatusCode,
		"success", err == nil,
		"response", rest.Snippet(resp.Body, 500),
	)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
