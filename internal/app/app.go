// Package app assembles the store, sources and services from a Config.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	httpadapter "schooldash/internal/adapters/http"
	pg "schooldash/internal/adapters/postgres"
	"schooldash/internal/adapters/rest"
	"schooldash/internal/adapters/sqlite"
	"schooldash/internal/config"
	"schooldash/internal/ports"
	"schooldash/internal/services/aggregator"
	credsvc "schooldash/internal/services/credentials"
	schoolsvc "schooldash/internal/services/schools"
	"schooldash/internal/sources/directory"
	"schooldash/internal/sources/marketing"
	"schooldash/internal/sources/orders"
)

var errUnsupportedStore = errors.New("unsupported DATABASE_URL scheme")

// NewLogger builds the process logger. Unknown levels fall back to info and
// any format other than "json" yields text output.
func NewLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// OpenStore connects to and migrates the store named by url:
// postgres:// or postgresql:// for Postgres, sqlite:<path> or file: for
// SQLite.
func OpenStore(ctx context.Context, url string) (ports.Store, error) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		db, err := pg.Connect(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return db, nil
	case strings.HasPrefix(url, "sqlite:"):
		return sqlite.Connect(ctx, strings.TrimPrefix(url, "sqlite:"))
	case strings.HasPrefix(url, "file:"):
		return sqlite.Connect(ctx, url)
	}
	return nil, fmt.Errorf("%w: %q", errUnsupportedStore, url)
}

type App struct {
	Store       ports.Store
	Schools     *schoolsvc.Service
	Credentials *credsvc.Service
	Server      *httpadapter.Server
	Log         *slog.Logger
}

// New opens the configured store and wires everything on top of it.
func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	store, err := OpenStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	return Build(cfg, store, directory.MySQLOpener(cfg.SQLTimeout), log), nil
}

// Build wires the sources and services over an open store. open connects
// to the staff directory database.
func Build(cfg config.Config, store ports.Store, open directory.Opener, log *slog.Logger) *App {
	if log == nil {
		log = slog.Default()
	}
	client := rest.New(cfg.RESTTimeout, cfg.RESTMaxRetries)

	dir := directory.New(directory.Config{
		DefaultPrefix:    cfg.DirectoryPrefix,
		StatementTimeout: cfg.SQLTimeout,
	}, store, open, log)
	ord := orders.New(orders.Config{
		BaseURL:     cfg.OrdersAPIURL,
		AccountCode: cfg.OrdersAccountCode,
	}, store, client, log)
	mkt := marketing.New(marketing.Config{
		BaseURL:  cfg.MarketingAPIURL,
		Revision: cfg.MarketingAPIVersion,
	}, store, client, log)
	probes := []ports.SourceProbe{dir, ord, mkt}

	agg := aggregator.New(store, dir, ord, mkt, log)
	schools := schoolsvc.New(store, agg, probes, cfg.RefreshWorkers, log)
	creds := credsvc.New(store, probes, log)

	return &App{
		Store:       store,
		Schools:     schools,
		Credentials: creds,
		Server:      httpadapter.New(schools, creds, cfg.AdminToken, 0),
		Log:         log,
	}
}

func (a *App) Close() { a.Store.Close() }
