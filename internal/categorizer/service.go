// Package categorizer assigns a spending category and confidence to
// transactions. Remote classifiers are tried first; the keyword rule table is
// always available as the fallback. Categorization never fails its caller.
package categorizer

import (
	"context"
	"fmt"
	"time"

	interfaces "github.com/sheikh-saqib/personal-banking-ledger/internal/interfaces"
	"github.com/sheikh-saqib/personal-banking-ledger/internal/logging"
	"github.com/sheikh-saqib/personal-banking-ledger/internal/models"
)

// DefaultTimeout bounds each remote classifier call.
const DefaultTimeout = 10 * time.Second

// CategoryWriter persists a categorization result onto a committed record.
type CategoryWriter interface {
	UpdateCategory(ctx context.Context, transactionID, category string, confidence float64) error
}

// Service implements interfaces.Categorizer.
type Service struct {
	classifiers []Classifier
	rules       *RuleSet
	writer      CategoryWriter
	logger      logging.Logger
	timeout     time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithClassifier appends a remote classifier. Classifiers are tried in the
// order they were added.
func WithClassifier(c Classifier) Option {
	return func(s *Service) {
		if c != nil {
			s.classifiers = append(s.classifiers, c)
		}
	}
}

// WithRules replaces the built-in rule table.
func WithRules(rules *RuleSet) Option {
	return func(s *Service) {
		if rules != nil {
			s.rules = rules
		}
	}
}

// WithTimeout bounds each remote classifier call.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithLogger(logger logging.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a categorizer that writes results for persisted
// transactions through writer.
func NewService(writer CategoryWriter, opts ...Option) *Service {
	s := &Service{
		rules:   DefaultRuleSet(),
		writer:  writer,
		logger:  logging.NewNop(),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Categorize labels t. A persisted t (non-empty ID) gets the result written
// back to the store and onto t itself; a transient preview is only labelled
// in the returned value. Any failure degrades to UNCATEGORIZED with zero
// confidence.
func (s *Service) Categorize(ctx context.Context, t *models.Transaction) (result models.CategoryResult) {
	if t == nil {
		s.logger.Warn("Attempted to categorize nil transaction")
		return models.Uncategorized()
	}

	log := s.logger.WithField(logging.FieldTransactionID, t.ID)
	defer func() {
		if r := recover(); r != nil {
			log.WithError(fmt.Errorf("panic: %v", r)).Error("Categorization failed")
			result = models.Uncategorized()
		}
	}()

	result = s.classify(ctx, log, t)

	if !t.Persisted() {
		log.Debug("Transaction not persisted, skipping write-back",
			logging.F(logging.FieldCategory, result.Category))
		return result
	}
	if s.writer == nil {
		log.Warn("No category writer configured")
		return models.Uncategorized()
	}
	if err := s.writer.UpdateCategory(ctx, t.ID, result.Category, result.Confidence); err != nil {
		log.WithError(err).Warn("Failed to save transaction category")
		return models.Uncategorized()
	}

	category, confidence := result.Category, result.Confidence
	t.Category = &category
	t.Confidence = &confidence
	log.Info("Transaction categorized",
		logging.F(logging.FieldCategory, result.Category),
		logging.F(logging.FieldConfidence, result.Confidence))
	return result
}

func (s *Service) classify(ctx context.Context, log logging.Logger, t *models.Transaction) models.CategoryResult {
	for _, c := range s.classifiers {
		start := time.Now()
		result, err := s.callClassifier(ctx, c, t)
		if err == nil {
			log.Debug("Remote classifier answered",
				logging.F(logging.FieldStrategy, c.Name()),
				logging.F(logging.FieldCategory, result.Category),
				logging.F(logging.FieldDuration, time.Since(start).Milliseconds()))
			return result
		}
		log.WithError(err).Warn("Remote classifier failed, falling back",
			logging.F(logging.FieldStrategy, c.Name()))
	}

	result := s.rules.Match(t.Description)
	log.Debug("Rule-based categorization",
		logging.F(logging.FieldStrategy, "rules"),
		logging.F(logging.FieldCategory, result.Category))
	return result
}

func (s *Service) callClassifier(ctx context.Context, c Classifier, t *models.Transaction) (result models.CategoryResult, err error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("classifier %s panicked: %v", c.Name(), r)
		}
	}()
	return c.Classify(ctx, t.Description, t.Amount)
}

var _ interfaces.Categorizer = (*Service)(nil)
