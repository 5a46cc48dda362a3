// Package quota enforces per-account upload limits.
package quota

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"lumina/internal/domain"
	"lumina/internal/infra"
	"lumina/internal/metrics"
)

// Service reads and consumes usage quota.
type Service struct {
	repo    domain.UsageRepository
	logger  *infra.Logger
	metrics *metrics.Metrics
}

// NewService wires a Service. logger and m may be nil.
func NewService(repo domain.UsageRepository, logger *infra.Logger, m *metrics.Metrics) *Service {
	if logger == nil {
		discard := zerolog.New(io.Discard)
		logger = &discard
	}
	return &Service{repo: repo, logger: logger, metrics: m}
}

// Get returns the current counters of a user.
func (s *Service) Get(ctx context.Context, userID string) (domain.UsageQuota, error) {
	if userID == "" {
		return domain.UsageQuota{}, domain.ErrUnauthorized
	}
	q, err := s.repo.GetUsage(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.UsageQuota{}, err
		}
		return domain.UsageQuota{}, fmt.Errorf("quota: get usage: %w", err)
	}
	return q, nil
}

// Check implements upload.QuotaGate. It only reads; Consume enforces.
func (s *Service) Check(ctx context.Context, userID string) (domain.UsageQuota, error) {
	return s.Get(ctx, userID)
}

// Consume takes one unit of quota or returns *domain.LimitReachedError.
func (s *Service) Consume(ctx context.Context, userID string) (domain.UsageQuota, error) {
	if userID == "" {
		return domain.UsageQuota{}, domain.ErrUnauthorized
	}
	q, ok, err := s.repo.IncrementUsage(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.UsageQuota{}, err
		}
		return domain.UsageQuota{}, fmt.Errorf("quota: increment usage: %w", err)
	}
	if !ok {
		s.metrics.QuotaDenied()
		s.logger.Info().
			Str("user_id", userID).
			Int("usage_count", q.UsageCount).
			Int("usage_limit", q.UsageLimit).
			Msg("usage limit reached")
		q.CanUpload = false
		return q, &domain.LimitReachedError{Quota: q}
	}
	return q, nil
}
