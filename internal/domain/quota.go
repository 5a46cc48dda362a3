package domain

// Plan enumerates billing plans.
type Plan string

const (
	PlanFree Plan = "Free"
	PlanPro  Plan = "Pro"
)

// UsageQuota is the per-account upload counter.
type UsageQuota struct {
	UsageCount int  `json:"usageCount"`
	UsageLimit int  `json:"usageLimit"`
	Plan       Plan `json:"plan"`
	CanUpload  bool `json:"canUpload"`
}

// NewUsageQuota derives CanUpload from the counts.
func NewUsageQuota(count, limit int, plan Plan) UsageQuota {
	return UsageQuota{
		UsageCount: count,
		UsageLimit: limit,
		Plan:       plan,
		CanUpload:  count < limit,
	}
}
