package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"lumina/internal/adapter/repo"
	"lumina/internal/domain"
	"lumina/internal/infra"
)

// Limits applied when -limit is not given.
var defaultLimits = map[domain.Plan]int{
	domain.PlanFree: 3,
	domain.PlanPro:  100,
}

func main() {
	_ = godotenv.Load()

	var (
		idFlag        string
		emailFlag     string
		planFlag      string
		limitFlag     int
		keepUsageFlag bool
		ensureFlag    bool
	)

	flag.StringVar(&idFlag, "id", "", "user ID to update (UUID)")
	flag.StringVar(&emailFlag, "email", "", "user email to update")
	flag.StringVar(&planFlag, "plan", "pro", "plan to assign (free, pro)")
	flag.IntVar(&limitFlag, "limit", 0, "usage limit to enforce (<=0 uses the plan default)")
	flag.BoolVar(&keepUsageFlag, "keep-usage", false, "preserve the current usage count instead of resetting it to 0")
	flag.BoolVar(&ensureFlag, "ensure", false, "create the user on the free plan first (requires -id and -email)")
	flag.Parse()

	userID := strings.TrimSpace(idFlag)
	email := strings.TrimSpace(emailFlag)

	if userID == "" && email == "" {
		exitWithError(errors.New("either -id or -email must be provided"))
	}
	plan, err := parsePlan(planFlag)
	if err != nil {
		exitWithError(err)
	}
	limit := limitFlag
	if limit <= 0 {
		limit = defaultLimits[plan]
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()

	logger := infra.NewLogger("cli", os.Getenv("LOG_LEVEL")).With().Str("cmd", "userplan").Logger()
	users := repo.NewUserRepository(infra.NewSQLRunner(pool, logger))

	if ensureFlag {
		if userID == "" || email == "" {
			exitWithError(errors.New("-ensure requires both -id and -email"))
		}
		if err := users.Ensure(ctx, userID, email, defaultLimits[domain.PlanFree]); err != nil {
			exitWithError(err)
		}
	}

	ref := userID
	if ref == "" {
		ref = email
	}
	current, err := users.Find(ctx, ref)
	if err != nil {
		exitWithError(fmt.Errorf("failed to load user: %w", err))
	}

	updated, err := users.UpdatePlan(ctx, current.ID, plan, limit, !keepUsageFlag)
	if err != nil {
		exitWithError(fmt.Errorf("failed to update user plan: %w", err))
	}

	fmt.Printf("User %s (%s) updated to plan %s\n", updated.ID, updated.Email, updated.Quota.Plan)
	fmt.Printf("usage_count=%d\n", updated.Quota.UsageCount)
	fmt.Printf("usage_limit=%d\n", updated.Quota.UsageLimit)
	fmt.Printf("can_upload=%t\n", updated.Quota.CanUpload)
}

func parsePlan(raw string) (domain.Plan, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "free":
		return domain.PlanFree, nil
	case "pro":
		return domain.PlanPro, nil
	case "":
		return "", errors.New("-plan is required")
	default:
		return "", fmt.Errorf("unsupported plan %q", raw)
	}
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
