// Package credentials manages the stored secrets for each upstream source.
package credentials

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"schooldash/internal/domain"
	"schooldash/internal/ports"
)

type Service struct {
	repo   ports.CredentialRepository
	probes map[string]ports.SourceProbe
	log    *slog.Logger
	now    func() time.Time
}

var _ ports.Credentials = (*Service)(nil)

func New(repo ports.CredentialRepository, probes []ports.SourceProbe, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	byName := make(map[string]ports.SourceProbe, len(probes))
	for _, p := range probes {
		byName[p.Name()] = p
	}
	return &Service{repo: repo, probes: byName, log: log, now: time.Now}
}

// Save validates and stores c, replacing any previous credentials for the
// same service.
func (s *Service) Save(ctx context.Context, c domain.Credentials) error {
	c.Service = strings.ToLower(strings.TrimSpace(c.Service))
	if !slices.Contains(domain.Services, c.Service) {
		return domain.ErrInvalidService
	}
	c.APIKey = strings.TrimSpace(c.APIKey)
	c.AccessToken = strings.TrimSpace(c.AccessToken)
	if err := validate(c); err != nil {
		return err
	}
	c.UpdatedAt = s.now()
	if err := s.repo.SaveCredentials(ctx, c); err != nil {
		return err
	}
	s.log.Info("credentials saved", "service", c.Service)
	return nil
}

func validate(c domain.Credentials) error {
	var missing []string
	switch c.Service {
	case domain.ServiceDirectory:
		for _, k := range []string{"db_host", "db_name", "db_user"} {
			if strings.TrimSpace(c.AdditionalData[k]) == "" {
				missing = append(missing, k)
			}
		}
	case domain.ServiceOrders:
		if c.APIKey == "" {
			missing = append(missing, "api_key")
		}
		if c.AccessToken == "" {
			missing = append(missing, "access_token")
		}
	case domain.ServiceMarketing:
		if c.APIKey == "" {
			missing = append(missing, "api_key")
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", domain.ErrInvalidCredentials, strings.Join(missing, ", "))
	}
	return nil
}

// List returns every stored credential set with secrets masked.
func (s *Service) List(ctx context.Context) ([]domain.Credentials, error) {
	all, err := s.repo.ListCredentials(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		all[i] = all[i].Masked()
	}
	return all, nil
}

// Test checks the stored credentials the same way a refresh would.
func (s *Service) Test(ctx context.Context, service string) (bool, error) {
	p, ok := s.probes[strings.ToLower(strings.TrimSpace(service))]
	if !ok {
		return false, domain.ErrInvalidService
	}
	return p.IsAvailable(ctx), nil
}
