package application

import (
	"context"

	"github.com/cjdquick/putaway-service/internal/domain"
	apperrors "github.com/cjdquick/putaway-service/pkg/errors"
	"github.com/cjdquick/putaway-service/pkg/logging"
	"github.com/cjdquick/putaway-service/pkg/metrics"
	"github.com/cjdquick/putaway-service/pkg/tenant"
)

const (
	// candidatePoolSize bounds the number of bins loaded for a ranking pass
	candidatePoolSize = 200
	// defaultSuggestionLimit is the number of suggestions returned when the
	// caller does not ask for a specific count
	defaultSuggestionLimit = 5
	maxSuggestionLimit     = 50
)

// BinSuggester ranks candidate bins for putaway requests. Suggestions are
// advisory: capacity is only committed when a task reserves it.
type BinSuggester struct {
	binRepo domain.BinRepository
	weights domain.ScoringWeights
	metrics *metrics.Metrics
	logger  *logging.Logger
}

// NewBinSuggester creates a new BinSuggester with the default ranking policy
func NewBinSuggester(binRepo domain.BinRepository, m *metrics.Metrics, logger *logging.Logger) *BinSuggester {
	return &BinSuggester{
		binRepo: binRepo,
		weights: domain.DefaultScoringWeights(),
		metrics: m,
		logger:  logger,
	}
}

// Suggest returns up to limit ranked bin suggestions for the request
func (s *BinSuggester) Suggest(ctx context.Context, scope *tenant.Scope, req domain.SuggestionRequest, limit int) ([]domain.BinSuggestion, error) {
	if req.SKUID == "" {
		return nil, apperrors.ErrValidation("skuId is required")
	}
	if req.Quantity <= 0 {
		return nil, apperrors.ErrValidation("quantity must be positive")
	}
	if limit <= 0 {
		limit = defaultSuggestionLimit
	}
	if limit > maxSuggestionLimit {
		limit = maxSuggestionLimit
	}

	bins, err := s.binRepo.FindCandidates(ctx, scope, candidatePoolSize)
	if err != nil {
		s.recordOutcome("error")
		return nil, apperrors.ErrInternal("failed to load candidate bins").Wrap(err)
	}

	suggestions := domain.RankBins(bins, req, s.weights)
	if len(suggestions) == 0 {
		s.recordOutcome("no_bins")
		return nil, apperrors.ErrNotFound("eligible bin").Wrap(domain.ErrNoEligibleBins)
	}

	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}

	s.recordOutcome("ok")
	s.logger.WithContext(ctx).Debug("Ranked bin suggestions",
		"skuId", req.SKUID,
		"quantity", req.Quantity,
		"candidates", len(bins),
		"suggestions", len(suggestions),
		"topBin", suggestions[0].BinCode,
	)

	return suggestions, nil
}

// Best returns the highest ranked suggestion, or nil when no bin qualifies
func (s *BinSuggester) Best(ctx context.Context, scope *tenant.Scope, req domain.SuggestionRequest) (*domain.BinSuggestion, error) {
	suggestions, err := s.Suggest(ctx, scope, req, 1)
	if err != nil {
		return nil, err
	}
	return &suggestions[0], nil
}

func (s *BinSuggester) recordOutcome(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordBinSuggestion(outcome)
	}
}
