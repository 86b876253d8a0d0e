// Package report builds the monthly publishing report and submits it to the
// CMS backend as a reporting_entries taxonomy term.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Vocabulary is the taxonomy that holds one term per reported period.
const Vocabulary = "reporting_entries"

// ErrPeriodReported is returned when the backend already has a report for
// the period.
var ErrPeriodReported = errors.New("report already exists for period")

// TermCounter counts taxonomy terms with an exact name.
type TermCounter interface {
	CountTermsNamed(ctx context.Context, vocabulary, name string) (int, error)
}

// Guard stops a run when the period has already been reported.
//
// The check and the later submission are not atomic: two runs started for
// the same period at the same time can both pass the guard.
type Guard struct {
	terms TermCounter
	log   *slog.Logger
}

// NewGuard creates a Guard backed by the given term counter.
func NewGuard(terms TermCounter, log *slog.Logger) *Guard {
	if log == nil {
		log = slog.Default()
	}
	return &Guard{terms: terms, log: log.With("component", "duplicate-guard")}
}

// Check returns nil only when the backend reports exactly zero terms named
// label, ErrPeriodReported when one or more exist, and any other error when
// the lookup failed or returned a count that cannot be trusted.
func (g *Guard) Check(ctx context.Context, label string) error {
	n, err := g.terms.CountTermsNamed(ctx, Vocabulary, label)
	if err != nil {
		return fmt.Errorf("looking up existing report %s: %w", label, err)
	}
	if n < 0 {
		return fmt.Errorf("looking up existing report %s: negative count %d", label, n)
	}
	g.log.Debug("existing reports", "period", label, "count", n)
	if n > 0 {
		return fmt.Errorf("%w: %s (%d found)", ErrPeriodReported, label, n)
	}
	return nil
}
