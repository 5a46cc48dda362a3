package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"lumina/internal/domain"
	"lumina/internal/infra"
	"lumina/internal/sqlinline"
)

// UserPlan is the billing view of a user.
type UserPlan struct {
	ID    string
	Email string
	Quota domain.UsageQuota
}

// UserRepositoryPG manages plans and limits for the admin tooling.
type UserRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewUserRepository creates a new UserRepositoryPG.
func NewUserRepository(sql infra.SQLExecutor) *UserRepositoryPG {
	return &UserRepositoryPG{sql: sql}
}

// Find resolves a user by UUID or, when ref contains '@', by email.
func (r *UserRepositoryPG) Find(ctx context.Context, ref string) (*UserPlan, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, errors.New("repo: user reference is required")
	}
	query := sqlinline.QSelectUserPlanByID
	if strings.Contains(ref, "@") {
		query = sqlinline.QSelectUserPlanByEmail
	}
	return scanUserPlan(r.sql.QueryRow(ctx, query, ref))
}

// UpdatePlan sets plan and usage limit, optionally resetting the counter.
func (r *UserRepositoryPG) UpdatePlan(ctx context.Context, id string, plan domain.Plan, limit int, reset bool) (*UserPlan, error) {
	if limit < 0 {
		return nil, fmt.Errorf("repo: invalid usage limit %d", limit)
	}
	return scanUserPlan(r.sql.QueryRow(ctx, sqlinline.QUpdateUserPlan, id, string(plan), limit, reset))
}

// Ensure registers a user on the free plan if it does not exist yet.
func (r *UserRepositoryPG) Ensure(ctx context.Context, id, email string, limit int) error {
	if _, err := r.sql.Exec(ctx, sqlinline.QEnsureUser, id, email, limit); err != nil {
		return fmt.Errorf("repo: ensure user: %w", err)
	}
	return nil
}

func scanUserPlan(row pgx.Row) (*UserPlan, error) {
	var u UserPlan
	var plan string
	var count, limit int
	if err := row.Scan(&u.ID, &u.Email, &plan, &count, &limit); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("repo: scan user: %w", err)
	}
	u.Quota = domain.NewUsageQuota(count, limit, domain.Plan(plan))
	return &u, nil
}
