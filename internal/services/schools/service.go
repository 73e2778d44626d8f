// Package schools implements the school use cases behind the HTTP and CLI
// adapters: add, refresh, delete and read snapshots.
package schools

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"schooldash/internal/domain"
	"schooldash/internal/ports"
	"schooldash/internal/workers/refreshrunner"
)

type Service struct {
	schools   ports.SchoolRepository
	refresher ports.Refresher
	probes    []ports.SourceProbe
	workers   int
	log       *slog.Logger
	now       func() time.Time
}

var _ ports.Schools = (*Service)(nil)

// New wires the service. workers bounds RefreshAll.
func New(schools ports.SchoolRepository, refresher ports.Refresher, probes []ports.SourceProbe, workers int, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{schools: schools, refresher: refresher, probes: probes, workers: workers, log: log, now: time.Now}
}

// Create inserts a bare snapshot for the domain and runs the first refresh.
func (s *Service) Create(ctx context.Context, rawDomain string) (domain.SchoolSnapshot, domain.RawData, error) {
	d, err := domain.NormalizeDomain(rawDomain)
	if err != nil {
		return domain.SchoolSnapshot{}, domain.RawData{}, err
	}
	exists, _, err := s.schools.GetSchool(ctx, d)
	if err != nil {
		return domain.SchoolSnapshot{}, domain.RawData{}, err
	}
	if exists {
		return domain.SchoolSnapshot{}, domain.RawData{}, domain.ErrAlreadyExists
	}

	snap, err := s.schools.CreateSchool(ctx, d, domain.SchoolNameFromDomain(d), s.now())
	if err != nil {
		return snap, domain.RawData{}, err
	}
	s.log.Info("school added", "domain", d, "school_name", snap.SchoolName)

	raw, err := s.refresher.Refresh(ctx, d)
	if err != nil {
		return snap, raw, fmt.Errorf("initial refresh: %w", err)
	}
	_, snap, err = s.schools.GetSchool(ctx, d)
	return snap, raw, err
}

func (s *Service) Refresh(ctx context.Context, rawDomain string) (domain.RawData, error) {
	d, err := domain.NormalizeDomain(rawDomain)
	if err != nil {
		return domain.RawData{}, err
	}
	return s.refresher.Refresh(ctx, d)
}

// Delete removes the snapshot and returns what was stored.
func (s *Service) Delete(ctx context.Context, rawDomain string) (domain.SchoolSnapshot, error) {
	snap, err := s.Get(ctx, rawDomain)
	if err != nil {
		return snap, err
	}
	if err := s.schools.DeleteSchool(ctx, snap.Domain); err != nil {
		return snap, err
	}
	s.log.Info("school deleted", "domain", snap.Domain)
	return snap, nil
}

func (s *Service) Get(ctx context.Context, rawDomain string) (domain.SchoolSnapshot, error) {
	d, err := domain.NormalizeDomain(rawDomain)
	if err != nil {
		return domain.SchoolSnapshot{}, err
	}
	exists, snap, err := s.schools.GetSchool(ctx, d)
	if err != nil {
		return snap, err
	}
	if !exists {
		return snap, domain.ErrNotFound
	}
	return snap, nil
}

func (s *Service) List(ctx context.Context) ([]domain.SchoolSnapshot, error) {
	return s.schools.ListSchools(ctx)
}

// RefreshAll refreshes every stored school. A school deleted mid-run shows
// up as a failed outcome.
func (s *Service) RefreshAll(ctx context.Context) ([]domain.RefreshOutcome, error) {
	list, err := s.schools.ListSchools(ctx)
	if err != nil {
		return nil, err
	}
	domains := make([]string, len(list))
	for i, snap := range list {
		domains[i] = snap.Domain
	}
	out := refreshrunner.Run(ctx, s.refresher, domains, s.workers, s.log)

	failed := 0
	for _, o := range out {
		if !o.Success {
			failed++
		}
	}
	s.log.Info("bulk refresh finished", "schools", len(out), "failed", failed)
	return out, nil
}

// SourceStatus probes every source concurrently.
func (s *Service) SourceStatus(ctx context.Context) map[string]bool {
	status := make(map[string]bool, len(domain.Services))
	for _, name := range domain.Services {
		status[name] = false
	}

	var mu sync.Mutex
	var g errgroup.Group
	for _, p := range s.probes {
		g.Go(func() error {
			ok := p.IsAvailable(ctx)
			mu.Lock()
			status[p.Name()] = ok
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return status
}
