package report

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"reporter/internal/domain"
	"reporter/pkg/drupal"
)

// OutcomeKind tags a submission result.
type OutcomeKind int

const (
	OutcomeCreated OutcomeKind = iota + 1
	OutcomeFailed
)

// Outcome is the terminal result of a submission.
type Outcome struct {
	Kind       OutcomeKind
	StatusCode int    // 0 when no response was received
	Reason     string // reason phrase or transport error
}

// Created reports whether the backend created the term.
func (o Outcome) Created() bool { return o.Kind == OutcomeCreated }

func (o Outcome) String() string {
	if o.Created() {
		return fmt.Sprintf("created (%d %s)", o.StatusCode, o.Reason)
	}
	return fmt.Sprintf("failed (%d %s)", o.StatusCode, o.Reason)
}

// TermCreator creates taxonomy terms.
type TermCreator interface {
	CreateTerm(ctx context.Context, vocabulary string, attrs map[string]any) (*drupal.Response, error)
}

// Submitter posts report records to the backend.
type Submitter struct {
	terms TermCreator
	log   *slog.Logger
}

// NewSubmitter creates a Submitter backed by the given term creator.
func NewSubmitter(terms TermCreator, log *slog.Logger) *Submitter {
	if log == nil {
		log = slog.Default()
	}
	return &Submitter{terms: terms, log: log.With("component", "submitter")}
}

// Submit sends the record once. Only 201 Created counts as success.
func (s *Submitter) Submit(ctx context.Context, record *domain.ReportRecord) Outcome {
	resp, err := s.terms.CreateTerm(ctx, Vocabulary, record.Attributes())
	if err != nil {
		return Outcome{Kind: OutcomeFailed, Reason: err.Error()}
	}

	s.log.Info("backend response", "period", record.Label, "status", resp.StatusCode, "reason", resp.Status)
	if resp.StatusCode != http.StatusCreated {
		if len(resp.Body) > 0 {
			s.log.Debug("backend response body", "body", string(resp.Body))
		}
		return Outcome{Kind: OutcomeFailed, StatusCode: resp.StatusCode, Reason: resp.Status}
	}
	return Outcome{Kind: OutcomeCreated, StatusCode: resp.StatusCode, Reason: resp.Status}
}
