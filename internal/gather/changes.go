package gather

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"reporter/internal/domain"
)

// ChangeObserver receives per-site fetch results. It may be nil.
type ChangeObserver interface {
	ObserveSiteCount(site domain.Site, count int)
	ObserveSiteFailure(site domain.Site)
}

// Pacer gates each outbound request.
type Pacer interface {
	Wait(ctx context.Context) error
}

// ChangeFetcher fetches changed-page counts for the fixed site list.
type ChangeFetcher struct {
	source     CountSource
	sites      []domain.Site
	maxWorkers int
	pacer      Pacer
	observer   ChangeObserver
	log        *slog.Logger
}

// NewChangeFetcher creates a ChangeFetcher over all known sites. maxWorkers
// bounds concurrent requests; values below 1 mean one request per site.
func NewChangeFetcher(source CountSource, maxWorkers int, observer ChangeObserver, log *slog.Logger) *ChangeFetcher {
	if log == nil {
		log = slog.Default()
	}
	sites := domain.Sites()
	if maxWorkers < 1 || maxWorkers > len(sites) {
		maxWorkers = len(sites)
	}
	return &ChangeFetcher{
		source:     source,
		sites:      sites,
		maxWorkers: maxWorkers,
		observer:   observer,
		log:        log.With("component", "change-fetcher"),
	}
}

// WithPacer makes every request wait on p first. A nil p leaves requests
// unpaced.
func (f *ChangeFetcher) WithPacer(p Pacer) *ChangeFetcher {
	f.pacer = p
	return f
}

// Fetch returns the changed-page count for one site within the period.
func (f *ChangeFetcher) Fetch(ctx context.Context, site domain.Site, period domain.Period) (domain.SiteChangeCount, error) {
	if !site.Valid() {
		return domain.SiteChangeCount{}, fmt.Errorf("unknown site %q", site)
	}
	if f.pacer != nil {
		if err := f.pacer.Wait(ctx); err != nil {
			return domain.SiteChangeCount{}, fmt.Errorf("waiting to fetch %s: %w", site, err)
		}
	}
	n, err := f.source.CountChangedPages(ctx, site.TargetID(), period.StartParam(), period.EndParam())
	if err != nil {
		return domain.SiteChangeCount{}, fmt.Errorf("fetching changes for %s: %w", site, err)
	}
	return domain.SiteChangeCount{Site: site, Count: n}, nil
}

// FetchAll fetches every site concurrently and waits for all of them. A
// failed site is logged and returned in failures; it never stops the other
// fetches.
func (f *ChangeFetcher) FetchAll(ctx context.Context, period domain.Period) ([]domain.SiteChangeCount, []SiteFailure) {
	type result struct {
		count domain.SiteChangeCount
		err   error
	}
	results := make([]result, len(f.sites))

	f.log.Info("gathering changed pages for each site",
		"period", period.Label(),
		"start", period.StartParam(),
		"end", period.EndParam(),
		"sites", len(f.sites),
	)
	runStart := time.Now()

	var g errgroup.Group
	g.SetLimit(f.maxWorkers)
	for i, site := range f.sites {
		g.Go(func() error {
			c, err := f.Fetch(ctx, site, period)
			results[i] = result{count: c, err: err}
			return nil // failures are per site
		})
	}
	_ = g.Wait()

	var (
		counts   []domain.SiteChangeCount
		failures []SiteFailure
	)
	for i, r := range results {
		site := f.sites[i]
		if r.err != nil {
			f.log.Warn("no data found", "site", site, "err", r.err)
			failures = append(failures, SiteFailure{Site: site, Err: r.err})
			if f.observer != nil {
				f.observer.ObserveSiteFailure(site)
			}
			continue
		}
		f.log.Info("changed pages", "site", site, "count", r.count.Count)
		counts = append(counts, r.count)
		if f.observer != nil {
			f.observer.ObserveSiteCount(site, r.count.Count)
		}
	}

	f.log.Debug("fetch complete",
		"ok", len(counts),
		"failed", len(failures),
		"elapsed", time.Since(runStart).Round(time.Millisecond),
	)
	return counts, failures
}
