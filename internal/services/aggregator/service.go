// Package aggregator refreshes a school snapshot from every available
// source.
package aggregator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"schooldash/internal/domain"
	"schooldash/internal/ports"
)

type Service struct {
	schools   ports.SchoolRepository
	directory ports.DirectorySource
	orders    ports.OrdersSource
	marketing ports.MarketingSource
	log       *slog.Logger
	now       func() time.Time
}

var _ ports.Refresher = (*Service)(nil)

// New builds the aggregator. Any source may be nil, which is the same as
// it never being available.
func New(schools ports.SchoolRepository, directory ports.DirectorySource, orders ports.OrdersSource, marketing ports.MarketingSource, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		schools:   schools,
		directory: directory,
		orders:    orders,
		marketing: marketing,
		log:       log,
		now:       time.Now,
	}
}

// Refresh fetches d from the available sources in parallel and stores the
// summary fields of the successful ones. Unavailable sources are left out of
// the returned map. Only a missing school row fails the call.
func (s *Service) Refresh(ctx context.Context, d string) (domain.RawData, error) {
	var raw domain.RawData

	exists, _, err := s.schools.GetSchool(ctx, d)
	if err != nil {
		return raw, fmt.Errorf("load school: %w", err)
	}
	if !exists {
		return raw, domain.ErrNotFound
	}

	// Each goroutine owns one field of raw.
	var g errgroup.Group
	g.Go(func() error {
		raw.Directory = fetch(ctx, s.directory, d)
		return nil
	})
	g.Go(func() error {
		raw.Orders = fetch(ctx, s.orders, d)
		return nil
	})
	g.Go(func() error {
		raw.Marketing = fetch(ctx, s.marketing, d)
		return nil
	})
	_ = g.Wait()

	logOutcome(s.log, d, domain.ServiceDirectory, raw.Directory)
	logOutcome(s.log, d, domain.ServiceOrders, raw.Orders)
	logOutcome(s.log, d, domain.ServiceMarketing, raw.Marketing)

	if err := s.schools.UpdateSummary(ctx, d, stage(raw), raw, s.now()); err != nil {
		return raw, fmt.Errorf("store snapshot: %w", err)
	}
	return raw, nil
}

func fetch[T any](ctx context.Context, src ports.SourceClient[T], d string) *domain.SourceResult[T] {
	if src == nil || !src.IsAvailable(ctx) {
		return nil
	}
	res := src.FetchSchoolData(ctx, d)
	return &res
}

func logOutcome[T any](log *slog.Logger, d, source string, res *domain.SourceResult[T]) {
	switch {
	case res == nil:
		log.Debug("source skipped", "domain", d, "source", source)
	case res.Success:
		log.Info("source refreshed", "domain", d, "source", source, "message", res.Message)
	default:
		log.Warn("source failed", "domain", d, "source", source, "message", res.Message)
	}
}

// stage collects the summary fields owned by each successful source.
func stage(raw domain.RawData) domain.SummaryUpdate {
	var u domain.SummaryUpdate
	if r := raw.Directory; r != nil && r.Success && r.Data != nil {
		staff := r.Data.TotalStaff
		u.StaffCount = &staff
		if r.Data.School != nil {
			id := r.Data.School.ID
			u.DirectorySchoolID = &id
		}
	}
	if r := raw.Orders; r != nil && r.Success && r.Data != nil {
		count := r.Data.TotalOrders
		total := r.Data.TotalValue.Round(2)
		u.OrderCount = &count
		u.OrderTotal = &total
	}
	if r := raw.Marketing; r != nil && r.Success && r.Data != nil {
		emails := r.Data.EmailCount
		open, click, order := r.Data.OpenRate, r.Data.ClickRate, r.Data.OrderRate
		u.EmailCount = &emails
		u.OpenRate = &open
		u.ClickRate = &click
		u.OrderRate = &order
	}
	return u
}
