package gather

import (
	"context"

	"reporter/internal/domain"
)

// Gatherer is the interface for all scheduled reporting processes.
type Gatherer interface {
	// Name returns the gatherer identifier.
	Name() string
	// Run performs one complete gathering pass and returns when it is done.
	Run(ctx context.Context) error
}

// CountSource reports how many pages changed on one site within a window.
type CountSource interface {
	CountChangedPages(ctx context.Context, siteTargetID int, start, end string) (int, error)
}

// SiteFailure records a site whose count could not be fetched.
type SiteFailure struct {
	Site domain.Site
	Err  error
}
