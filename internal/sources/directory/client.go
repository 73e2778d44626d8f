// Package directory reads school staff from the college sports directory
// database. Schools are resolved from an email domain through an ordered
// list of match strategies.
package directory

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"schooldash/internal/domain"
	"schooldash/internal/names"
	"schooldash/internal/ports"
)

// Settings are the connection parameters stored in the directory
// credentials' additional data.
type Settings struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
	Prefix   string
}

// Opener connects to the directory database. release is called once the
// caller is done with db.
type Opener func(ctx context.Context, s Settings) (db *sql.DB, release func(), err error)

type Config struct {
	DefaultPrefix    string
	StatementTimeout time.Duration
}

type Client struct {
	cfg   Config
	creds ports.CredentialRepository
	open  Opener
	log   *slog.Logger
}

var _ ports.DirectorySource = (*Client)(nil)

var prefixRe = regexp.MustCompile(`^[A-Za-z0-9_]*$`)

func New(cfg Config, creds ports.CredentialRepository, open Opener, log *slog.Logger) *Client {
	if cfg.DefaultPrefix == "" {
		cfg.DefaultPrefix = "csd_"
	}
	if cfg.StatementTimeout <= 0 {
		cfg.StatementTimeout = 5 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{cfg: cfg, creds: creds, open: open, log: log.With("source", domain.ServiceDirectory)}
}

func (c *Client) Name() string { return domain.ServiceDirectory }

// settings re-reads credentials on every call; an admin may edit them at
// any time.
func (c *Client) settings(ctx context.Context) (Settings, error) {
	exists, creds, err := c.creds.GetCredentials(ctx, domain.ServiceDirectory)
	if err != nil {
		return Settings{}, fmt.Errorf("load directory credentials: %w", err)
	}
	if !exists {
		return Settings{}, domain.ErrNotConfigured
	}
	s := Settings{
		Host:     creds.Extra("db_host", ""),
		Port:     creds.Extra("db_port", "3306"),
		Database: creds.Extra("db_name", ""),
		User:     creds.Extra("db_user", ""),
		Password: creds.Extra("db_pass", ""),
		Prefix:   creds.Extra("db_prefix", c.cfg.DefaultPrefix),
	}
	if s.Host == "" || s.Database == "" || s.User == "" {
		return Settings{}, domain.ErrNotConfigured
	}
	if !prefixRe.MatchString(s.Prefix) {
		return Settings{}, fmt.Errorf("invalid table prefix %q: %w", s.Prefix, domain.ErrNotConfigured)
	}
	return s, nil
}

func (c *Client) connect(ctx context.Context) (*queries, func(), error) {
	s, err := c.settings(ctx)
	if err != nil {
		return nil, nil, err
	}
	db, release, err := c.open(ctx, s)
	if err != nil {
		return nil, nil, fmt.Errorf("connect directory database: %w", err)
	}
	return newQueries(db, s.Prefix, c.cfg.StatementTimeout), release, nil
}

// IsAvailable reports whether the three directory tables can be queried.
func (c *Client) IsAvailable(ctx context.Context) bool {
	q, release, err := c.connect(ctx)
	if err != nil {
		c.log.Debug("directory unavailable", "error", err)
		return false
	}
	defer release()
	if err := q.checkTables(ctx); err != nil {
		c.log.Debug("directory tables missing", "error", err)
		return false
	}
	return true
}

// FetchSchoolData resolves the school for d and returns its full staff
// roster. Errors are reported in the result.
func (c *Client) FetchSchoolData(ctx context.Context, d string) domain.SourceResult[domain.DirectoryData] {
	q, release, err := c.connect(ctx)
	if err != nil {
		c.log.Error("directory connect failed", "domain", d, "error", err)
		return domain.Failed[domain.DirectoryData]("Directory database unavailable: " + err.Error())
	}
	defer release()

	data, found, err := resolve(ctx, q, d)
	if err != nil {
		c.log.Error("directory query failed", "domain", d, "error", err)
		return domain.Failed[domain.DirectoryData]("Directory query failed: " + err.Error())
	}
	if !found {
		c.log.Info("school not found in directory", "domain", d)
		return domain.Failed[domain.DirectoryData]("School not found in College Sports Directory")
	}

	if data.Staff == nil {
		data.Staff = []domain.StaffRecord{}
	}
	for i := range data.Staff {
		enrichName(&data.Staff[i])
	}
	data.TotalStaff = len(data.Staff)
	c.log.Info("directory data retrieved", "domain", d, "matched_by", data.MatchedBy, "staff", data.TotalStaff)
	return domain.Succeeded("School data retrieved successfully", data)
}

// enrichName fills name components for records that only carry a full name.
func enrichName(s *domain.StaffRecord) {
	if s.FirstName != "" || s.LastName != "" || s.FullName == "" {
		return
	}
	p := names.Parse(s.FullName)
	s.NameTitle = p.Title
	s.FirstName = p.FirstName
	s.MiddleName = p.MiddleName
	s.LastName = p.LastName
	s.Suffix = p.Suffix
}
