package ports

import (
	"context"

	"schooldash/internal/domain"
)

// SourceClient is one upstream system queried by school domain. Fetch
// failures are reported inside the result, never as a Go error.
type SourceClient[T any] interface {
	Name() string
	IsAvailable(ctx context.Context) bool
	FetchSchoolData(ctx context.Context, domainName string) domain.SourceResult[T]
}

// SourceProbe is the availability half of a SourceClient.
type SourceProbe interface {
	Name() string
	IsAvailable(ctx context.Context) bool
}

type (
	DirectorySource = SourceClient[domain.DirectoryData]
	OrdersSource    = SourceClient[domain.OrdersData]
	MarketingSource = SourceClient[domain.MarketingData]
)

// Refresher re-aggregates an existing school.
type Refresher interface {
	Refresh(ctx context.Context, domainName string) (domain.RawData, error)
}

// Schools is the use-case surface behind the HTTP and CLI adapters.
type Schools interface {
	Create(ctx context.Context, rawDomain string) (domain.SchoolSnapshot, domain.RawData, error)
	Refresh(ctx context.Context, rawDomain string) (domain.RawData, error)
	Delete(ctx context.Context, rawDomain string) (domain.SchoolSnapshot, error)
	Get(ctx context.Context, rawDomain string) (domain.SchoolSnapshot, error)
	List(ctx context.Context) ([]domain.SchoolSnapshot, error)
	RefreshAll(ctx context.Context) ([]domain.RefreshOutcome, error)
	SourceStatus(ctx context.Context) map[string]bool
}

// Credentials is the admin surface for upstream secrets.
type Credentials interface {
	Save(ctx context.Context, creds domain.Credentials) error
	List(ctx context.Context) ([]domain.Credentials, error)
	// Test reports whether the stored credentials make service usable.
	Test(ctx context.Context, service string) (bool, error)
}
