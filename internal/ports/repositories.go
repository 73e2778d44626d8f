package ports

import (
	"context"
	"time"

	"schooldash/internal/domain"
)

// SchoolRepository stores one snapshot row per school domain.
type SchoolRepository interface {
	CreateSchool(ctx context.Context, domainName, schoolName string, now time.Time) (domain.SchoolSnapshot, error)
	GetSchool(ctx context.Context, domainName string) (exists bool, snap domain.SchoolSnapshot, err error)
	ListSchools(ctx context.Context) ([]domain.SchoolSnapshot, error)
	// UpdateSummary overwrites the non-nil summary fields, replaces the raw
	// data blob and stamps last_updated. Missing rows yield domain.ErrNotFound.
	UpdateSummary(ctx context.Context, domainName string, update domain.SummaryUpdate, raw domain.RawData, now time.Time) error
	DeleteSchool(ctx context.Context, domainName string) error
}

// CredentialRepository holds per-service upstream credentials.
type CredentialRepository interface {
	GetCredentials(ctx context.Context, service string) (exists bool, creds domain.Credentials, err error)
	SaveCredentials(ctx context.Context, creds domain.Credentials) error
	ListCredentials(ctx context.Context) ([]domain.Credentials, error)
}

// Store is the full persistence surface a backend provides.
type Store interface {
	SchoolRepository
	CredentialRepository
	Close()
}
