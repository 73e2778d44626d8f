// Package refreshrunner refreshes many schools through a bounded pool of
// workers.
package refreshrunner

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"schooldash/internal/domain"
	"schooldash/internal/ports"
)

// Run refreshes every domain with at most concurrency workers. Outcomes are
// returned in the order of domains; one failure does not stop the batch.
func Run(ctx context.Context, refresher ports.Refresher, domains []string, concurrency int, log *slog.Logger) []domain.RefreshOutcome {
	if log == nil {
		log = slog.Default()
	}
	out := make([]domain.RefreshOutcome, len(domains))
	if len(domains) == 0 {
		return out
	}
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > len(domains) {
		concurrency = len(domains)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := range jobs {
				out[i] = process(ctx, refresher, domains[i])
				if !out[i].Success {
					log.Warn("refresh failed", "worker", worker, "domain", domains[i], "error", out[i].Message)
				}
			}
		}(w)
	}

	// dispatcher; stops handing out work once ctx is done
dispatch:
	for i := range domains {
		select {
		case <-ctx.Done():
			for j := i; j < len(domains); j++ {
				out[j] = domain.RefreshOutcome{Domain: domains[j], Message: ctx.Err().Error()}
			}
			break dispatch
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()
	return out
}

func process(ctx context.Context, refresher ports.Refresher, d string) domain.RefreshOutcome {
	if err := ctx.Err(); err != nil {
		return domain.RefreshOutcome{Domain: d, Message: err.Error()}
	}
	raw, err := refresher.Refresh(ctx, d)
	if err != nil {
		return domain.RefreshOutcome{Domain: d, Message: err.Error()}
	}
	return domain.RefreshOutcome{Domain: d, Success: true, Message: summarize(raw)}
}

// summarize lists which sources answered, e.g. "directory ok, orders failed".
func summarize(raw domain.RawData) string {
	var parts []string
	add := func(name string, present, ok bool) {
		switch {
		case !present:
		case ok:
			parts = append(parts, name+" ok")
		default:
			parts = append(parts, name+" failed")
		}
	}
	add(domain.ServiceDirectory, raw.Directory != nil, raw.Directory != nil && raw.Directory.Success)
	add(domain.ServiceOrders, raw.Orders != nil, raw.Orders != nil && raw.Orders.Success)
	add(domain.ServiceMarketing, raw.Marketing != nil, raw.Marketing != nil && raw.Marketing.Success)
	if len(parts) == 0 {
		return "no sources available"
	}
	return strings.Join(parts, ", ")
}
