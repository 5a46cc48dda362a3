package domain

import "context"

// UsageRepository persists per-account usage counters.
type UsageRepository interface {
	GetUsage(ctx context.Context, userID string) (UsageQuota, error)
	// IncrementUsage increments the counter only while it is below the limit.
	// ok is false when the limit was already reached; the returned quota then
	// carries the unchanged counts.
	IncrementUsage(ctx context.Context, userID string) (quota UsageQuota, ok bool, err error)
}
