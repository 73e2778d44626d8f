// Package orders reads customer orders for a school from the order
// management API (Brightpearl).
package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"schooldash/internal/adapters/rest"
	"schooldash/internal/domain"
	"schooldash/internal/ports"
)

type Config struct {
	BaseURL     string
	AccountCode string
}

type Client struct {
	cfg   Config
	creds ports.CredentialRepository
	http  rest.Doer
	log   *slog.Logger
	now   func() time.Time
}

var _ ports.OrdersSource = (*Client)(nil)

func New(cfg Config, creds ports.CredentialRepository, doer rest.Doer, log *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://ws-use.brightpearl.com"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if log == nil {
		log = slog.Default()
	}
	return &Client{cfg: cfg, creds: creds, http: doer, log: log.With("source", domain.ServiceOrders), now: time.Now}
}

func (c *Client) Name() string { return domain.ServiceOrders }

type session struct {
	creds   domain.Credentials
	account string
}

func (c *Client) session(ctx context.Context) (session, error) {
	exists, creds, err := c.creds.GetCredentials(ctx, domain.ServiceOrders)
	if err != nil {
		return session{}, fmt.Errorf("load orders credentials: %w", err)
	}
	if !exists || creds.APIKey == "" || creds.AccessToken == "" {
		return session{}, domain.ErrNotConfigured
	}
	if creds.Expired(c.now()) {
		if creds, err = c.refreshToken(ctx, creds); err != nil {
			return session{}, fmt.Errorf("access token expired: %w", err)
		}
	}
	account := creds.Extra("account_code", c.cfg.AccountCode)
	if account == "" {
		return session{}, fmt.Errorf("missing account code: %w", domain.ErrNotConfigured)
	}
	return session{creds: creds, account: account}, nil
}

// refreshToken would exchange the refresh token for a new access token.
// TODO: implement the OAuth refresh grant once the app is registered for it;
// until then an expired token needs the credentials re-saved.
func (c *Client) refreshToken(_ context.Context, creds domain.Credentials) (domain.Credentials, error) {
	return creds, domain.ErrTokenRefreshUnsupported
}

// IsAvailable reports whether usable credentials are stored. An expired
// token makes the source unavailable.
func (c *Client) IsAvailable(ctx context.Context) bool {
	_, err := c.session(ctx)
	if err != nil && !errors.Is(err, domain.ErrNotConfigured) {
		c.log.Warn("orders source unavailable", "error", err)
	}
	return err == nil
}

// FetchSchoolData looks up customers with an address at d and sums their
// orders.
func (c *Client) FetchSchoolData(ctx context.Context, d string) domain.SourceResult[domain.OrdersData] {
	s, err := c.session(ctx)
	if err != nil {
		return domain.Failed[domain.OrdersData]("Orders API is not configured: " + err.Error())
	}

	customers, err := c.searchCustomers(ctx, s, d)
	if err != nil {
		return domain.Failed[domain.OrdersData]("Customer search failed: " + err.Error())
	}
	ids := contactIDs(customers)
	if len(ids) == 0 {
		return domain.Succeeded("No customers found with this email domain", domain.OrdersData{
			Customers: customers,
			Orders:    []domain.OrderRecord{},
		})
	}

	orders, err := c.searchOrders(ctx, s, ids)
	if err != nil {
		return domain.Failed[domain.OrdersData]("Order search failed: " + err.Error())
	}
	return domain.Succeeded("School data retrieved successfully", summarize(customers, orders))
}

func (c *Client) searchCustomers(ctx context.Context, s session, d string) ([]domain.Customer, error) {
	body, err := c.get(ctx, s, "/contact-service/contact-search", url.Values{"email": {"*@" + d}})
	if err != nil {
		return nil, err
	}
	rows, err := rowsOf(body)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Customer, 0, len(rows))
	for _, r := range rows {
		out = append(out, customerFrom(r))
	}
	return out, nil
}

func (c *Client) searchOrders(ctx context.Context, s session, ids []string) ([]domain.OrderRecord, error) {
	body, err := c.get(ctx, s, "/order-service/order-search", url.Values{"contactId": {strings.Join(ids, ",")}})
	if err != nil {
		return nil, err
	}
	rows, err := rowsOf(body)
	if err != nil {
		return nil, err
	}
	out := make([]domain.OrderRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, orderFrom(r))
	}
	return out, nil
}

// get calls an account-scoped endpoint and writes the audit log line.
func (c *Client) get(ctx context.Context, s session, path string, params url.Values) ([]byte, error) {
	h := http.Header{}
	h.Set("Accept", "application/json")
	h.Set("Content-Type", "application/json")
	h.Set("brightpearl-auth", s.creds.AccessToken)
	if ref := s.creds.Extra("app_ref", ""); ref != "" {
		h.Set("brightpearl-app-ref", ref)
		h.Set("brightpearl-account-token", s.creds.APIKey)
	}

	endpoint := c.cfg.BaseURL + "/" + url.PathEscape(s.account) + path
	resp, err := c.http.Do(ctx, rest.Request{Method: http.MethodGet, URL: endpoint, Query: params, Header: h})

	level := slog.LevelInfo
	if err != nil {
		level = slog.LevelError
	}
	c.log.Log(ctx, level, "orders api call",
		"endpoint", endpoint,
		"params", params.Encode(),
		"status", resp.StatusCode,
		"success", err == nil,
		"response", rest.Snippet(resp.Body, 500),
	)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
