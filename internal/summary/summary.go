// Package summary produces streamed AI summaries of a user's work log.
package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/balkashynov/wroklog/internal/apperr"
	"github.com/balkashynov/wroklog/internal/content"
	"github.com/balkashynov/wroklog/internal/db"
	"github.com/balkashynov/wroklog/internal/logger"
	"github.com/balkashynov/wroklog/internal/metrics"
	"github.com/balkashynov/wroklog/internal/models"
	"github.com/balkashynov/wroklog/internal/quota"
)

const (
	maxDocuments = 50
	// NoDocumentsText is streamed when the filter matches nothing.
	NoDocumentsText = "No documents found matching your search criteria."
)

// ErrNotConfigured is returned when no generator is available.
var ErrNotConfigured = errors.New("summary generator is not configured")

// Generator streams generated text for a prompt. emit is called once per
// chunk; an error from emit aborts generation.
type Generator interface {
	Stream(ctx context.Context, prompt string, emit func(chunk string) error) error
}

// Request selects the entries to summarize. Dates are "2006-01-02".
type Request struct {
	FromDate string `json:"from_date" form:"from_date"`
	ToDate   string `json:"to_date" form:"to_date"`
}

// Service ties document lookup, the quota gate and a Generator together.
type Service struct {
	documents *db.DocumentStore
	parser    *content.Parser
	gate      *quota.Gate
	generator Generator
}

// NewService returns a Service. A nil generator makes Summarize fail with
// ErrNotConfigured.
func NewService(documents *db.DocumentStore, parser *content.Parser, gate *quota.Gate, generator Generator) *Service {
	return &Service{documents: documents, parser: parser, gate: gate, generator: generator}
}

// Summarize streams a summary of the owner's matching entries through emit.
// One unit of monthly quota is consumed per summary that produces output.
func (s *Service) Summarize(ctx context.Context, ownerID string, req Request, emit func(string) error) error {
	if s.generator == nil {
		return ErrNotConfigured
	}
	for _, d := range []string{req.FromDate, req.ToDate} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(models.DayLayout, d); err != nil {
			return apperr.With(apperr.ErrInvalidInput, fmt.Sprintf("invalid date %q, want YYYY-MM-DD", d), err)
		}
	}

	docs, _, err := s.documents.List(ctx, ownerID, db.DocumentFilter{
		FromDate: req.FromDate,
		ToDate:   req.ToDate,
		Limit:    maxDocuments,
	})
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return emit(NoDocumentsText)
	}

	month := s.gate.CurrentMonth()
	decision, err := s.gate.CheckAndReserve(ctx, ownerID, month)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		metrics.SummaryRequests.WithLabelValues("quota_exhausted").Inc()
		return apperr.With(apperr.ErrQuotaExhausted,
			fmt.Sprintf("you've used all %d AI summaries for this month; resets on the 1st", decision.Limit), nil)
	}

	prompt, err := s.prompt(ctx, docs)
	if err != nil {
		s.refund(ctx, ownerID, month)
		return err
	}

	emitted := false
	err = s.generator.Stream(ctx, prompt, func(chunk string) error {
		if chunk == "" {
			return nil
		}
		emitted = true
		return emit(chunk)
	})
	if err != nil {
		metrics.SummaryRequests.WithLabelValues("error").Inc()
		if !emitted {
			s.refund(ctx, ownerID, month)
		}
		return err
	}
	metrics.SummaryRequests.WithLabelValues("granted").Inc()
	logger.Info("summary generated", "owner", ownerID, "documents", len(docs), "remaining", decision.Remaining)
	return nil
}

func (s *Service) refund(ctx context.Context, ownerID, month string) {
	if err := s.gate.Release(context.WithoutCancel(ctx), ownerID, month); err != nil {
		logger.Warn("failed to refund summary quota", "owner", ownerID, "error", err)
	}
}

// prompt renders each entry's latest text, oldest first.
func (s *Service) prompt(ctx context.Context, docs []models.Document) (string, error) {
	parts := make([]string, 0, len(docs))
	for i := len(docs) - 1; i >= 0; i-- {
		doc := docs[i]
		version, err := s.documents.Version(ctx, doc.ID, doc.CurrentVersion)
		if err != nil {
			return "", err
		}
		text := ""
		if parsed, err := s.parser.Parse(version.Content); err == nil {
			text = parsed.Text()
		}
		if text == "" {
			text = "(empty)"
		}
		title := doc.Title
		if title == "" {
			title = "Untitled"
		}
		parts = append(parts, fmt.Sprintf("--- %s: %s ---\n%s", doc.LogDate, title, text))
	}
	return fmt.Sprintf(
		"Here are %d work log entries. Summarize what the person accomplished, key activities, and any patterns you notice. Keep the response to a brief overview, not a detailed report.\n\n%s",
		len(docs), strings.Join(parts, "\n\n"),
	), nil
}
