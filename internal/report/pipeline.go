package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"reporter/internal/domain"
	"reporter/internal/gather"
	"reporter/internal/util"
)

// ---------------------------------------------------------------------------
// Compile-time interface check
// ---------------------------------------------------------------------------

var _ gather.Gatherer = (*Pipeline)(nil)

// State is a step of a reporting run. Runs only move forward.
type State int

const (
	StateStart State = iota
	StateGuardChecked
	StateAborted
	StateFetching
	StateAggregated
	StateSubmitted
	StateDone
)

var stateNames = map[State]string{
	StateStart:        "start",
	StateGuardChecked: "guard-checked",
	StateAborted:      "aborted",
	StateFetching:     "fetching",
	StateAggregated:   "aggregated",
	StateSubmitted:    "submitted",
	StateDone:         "done",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Result describes what one run did.
type Result struct {
	RunID    string
	Period   domain.Period
	State    State
	Record   *domain.ReportRecord
	Failures []gather.SiteFailure
	Outcome  *Outcome // nil when nothing was submitted
}

// RunObserver receives run-level results. It may be nil.
type RunObserver interface {
	ObserveSubmission(statusCode int, created bool, at time.Time)
	ObserveRun(d time.Duration)
}

// Options tunes a Pipeline.
type Options struct {
	Now      func() time.Time // defaults to time.Now
	DryRun   bool             // build the record but do not submit it
	Observer RunObserver
	Logger   *slog.Logger
}

// Pipeline runs one monthly report: guard, fetch, aggregate, submit.
type Pipeline struct {
	calendar  *util.ReportingCalendar
	guard     *Guard
	fetcher   *gather.ChangeFetcher
	submitter *Submitter
	now       func() time.Time
	dryRun    bool
	observer  RunObserver
	tracer    trace.Tracer
	log       *slog.Logger
}

// NewPipeline wires the pipeline stages together.
func NewPipeline(calendar *util.ReportingCalendar, guard *Guard, fetcher *gather.ChangeFetcher, submitter *Submitter, opts Options) *Pipeline {
	p := &Pipeline{
		calendar:  calendar,
		guard:     guard,
		fetcher:   fetcher,
		submitter: submitter,
		now:       opts.Now,
		dryRun:    opts.DryRun,
		observer:  opts.Observer,
		tracer:    otel.Tracer("reporter/internal/report"),
		log:       opts.Logger,
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.log == nil {
		p.log = slog.Default()
	}
	p.log = p.log.With("gatherer", p.Name())
	return p
}

// Name returns the gatherer identifier.
func (p *Pipeline) Name() string { return "monthly-publishing-report" }

// Run executes one reporting run and logs its outcome. A duplicate period
// and a failed submission are logged outcomes, not errors; an error is
// returned only when the run could not tell whether the period was already
// reported.
func (p *Pipeline) Run(ctx context.Context) error {
	res, err := p.Execute(ctx)
	switch {
	case errors.Is(err, ErrPeriodReported):
		return nil
	case err != nil:
		return err
	}

	if res.Outcome != nil && !res.Outcome.Created() {
		p.log.Error("report not recorded", "run_id", res.RunID, "period", res.Period.Label(), "outcome", res.Outcome.String())
	}
	return nil
}

// Execute walks the run through its states and returns what happened. The
// returned error wraps ErrPeriodReported when the period already has a
// report, or the guard's lookup error. When no site returned a count the
// record is not submitted and the outcome is Failed, so an empty term never
// blocks a later run for the same period.
func (p *Pipeline) Execute(ctx context.Context) (*Result, error) {
	started := time.Now()
	period := p.calendar.PreviousMonth(p.now())
	res := &Result{
		RunID:  uuid.NewString(),
		Period: period,
		State:  StateStart,
	}
	log := p.log.With("run_id", res.RunID, "period", period.Label())
	if p.observer != nil {
		defer func() { p.observer.ObserveRun(time.Since(started)) }()
	}

	ctx, span := p.tracer.Start(ctx, "report.run", trace.WithAttributes(
		attribute.String("report.period", period.Label()),
		attribute.String("report.run_id", res.RunID),
	))
	defer span.End()

	log.Info("starting report run",
		"start", period.StartParam(),
		"end", period.EndParam(),
		"dry_run", p.dryRun,
	)

	// Start -> GuardChecked | Aborted
	if err := p.checkGuard(ctx, period); err != nil {
		res.State = StateAborted
		if errors.Is(err, ErrPeriodReported) {
			log.Info("report already recorded for period, nothing to do")
			span.SetAttributes(attribute.String("report.state", res.State.String()))
			return res, err
		}
		log.Error("duplicate check failed, aborting", "err", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "duplicate check failed")
		return res, err
	}
	p.advance(log, res, StateGuardChecked)

	// GuardChecked -> Fetching -> Aggregated
	p.advance(log, res, StateFetching)
	counts, failures := p.fetch(ctx, period)
	res.Failures = failures
	res.Record = Aggregate(period, counts)
	p.advance(log, res, StateAggregated)

	log.Info("data to send for recording",
		"name", res.Record.Label,
		"sites", len(res.Record.Counts),
		"missing", res.Record.Missing(),
	)
	log.Debug("report attributes", "attributes", res.Record.Attributes())

	if p.dryRun {
		log.Info("dry run, skipping submission")
		p.advance(log, res, StateDone)
		return res, nil
	}

	if len(res.Record.Counts) == 0 {
		// An empty term would block a later run for the same period.
		outcome := Outcome{Kind: OutcomeFailed, Reason: "no site counts gathered"}
		res.Outcome = &outcome
		log.Error("no data gathered for any site, not submitting")
		span.SetStatus(codes.Error, outcome.Reason)
		p.advance(log, res, StateDone)
		return res, nil
	}

	// Aggregated -> Submitted -> Done
	outcome := p.submit(ctx, res.Record)
	res.Outcome = &outcome
	p.advance(log, res, StateSubmitted)
	if p.observer != nil {
		p.observer.ObserveSubmission(outcome.StatusCode, outcome.Created(), p.now())
	}

	if outcome.Created() {
		log.Info("report generated successfully", "status", outcome.StatusCode)
	} else {
		log.Error("report submission failed", "status", outcome.StatusCode, "reason", outcome.Reason)
		span.SetStatus(codes.Error, outcome.String())
	}
	p.advance(log, res, StateDone)
	return res, nil
}

func (p *Pipeline) advance(log *slog.Logger, res *Result, next State) {
	log.Debug("state change", "from", res.State.String(), "to", next.String())
	res.State = next
}

func (p *Pipeline) checkGuard(ctx context.Context, period domain.Period) error {
	ctx, span := p.tracer.Start(ctx, "report.guard")
	defer span.End()
	err := p.guard.Check(ctx, period.Label())
	if err != nil && !errors.Is(err, ErrPeriodReported) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup failed")
	}
	span.SetAttributes(attribute.Bool("report.exists", errors.Is(err, ErrPeriodReported)))
	return err
}

func (p *Pipeline) fetch(ctx context.Context, period domain.Period) ([]domain.SiteChangeCount, []gather.SiteFailure) {
	ctx, span := p.tracer.Start(ctx, "report.fetch")
	defer span.End()
	counts, failures := p.fetcher.FetchAll(ctx, period)
	span.SetAttributes(
		attribute.Int("report.sites_ok", len(counts)),
		attribute.Int("report.sites_failed", len(failures)),
	)
	return counts, failures
}

func (p *Pipeline) submit(ctx context.Context, record *domain.ReportRecord) Outcome {
	ctx, span := p.tracer.Start(ctx, "report.submit")
	defer span.End()
	outcome := p.submitter.Submit(ctx, record)
	span.SetAttributes(attribute.Int("http.response.status_code", outcome.StatusCode))
	if !outcome.Created() {
		span.SetStatus(codes.Error, outcome.Reason)
	}
	return outcome
}
