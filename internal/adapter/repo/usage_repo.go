package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"lumina/internal/domain"
	"lumina/internal/infra"
	"lumina/internal/sqlinline"
)

// UsageRepositoryPG implements domain.UsageRepository on the users table.
type UsageRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewUsageRepository creates a repository running queries through sql.
func NewUsageRepository(sql infra.SQLExecutor) *UsageRepositoryPG {
	return &UsageRepositoryPG{sql: sql}
}

// GetUsage loads the quota counters of a user.
func (r *UsageRepositoryPG) GetUsage(ctx context.Context, userID string) (domain.UsageQuota, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectUsage, userID)
	return scanUsage(row)
}

// IncrementUsage consumes one unit of quota in a single conditional update.
// ok is false when the user was already at the limit; quota then holds the
// counts observed after the failed update.
func (r *UsageRepositoryPG) IncrementUsage(ctx context.Context, userID string) (domain.UsageQuota, bool, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QIncrementUsage, userID)
	q, err := scanUsage(row)
	if err == nil {
		return q, true, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.UsageQuota{}, false, err
	}
	current, err := r.GetUsage(ctx, userID)
	if err != nil {
		return domain.UsageQuota{}, false, err
	}
	return current, false, nil
}

func scanUsage(row pgx.Row) (domain.UsageQuota, error) {
	var count, limit int
	var plan string
	if err := row.Scan(&count, &limit, &plan); err != nil {
		if infra.IsNoRows(err) {
			return domain.UsageQuota{}, domain.ErrNotFound
		}
		return domain.UsageQuota{}, fmt.Errorf("repo: scan usage: %w", err)
	}
	return domain.NewUsageQuota(count, limit, domain.Plan(plan)), nil
}

var _ domain.UsageRepository = (*UsageRepositoryPG)(nil)
