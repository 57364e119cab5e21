package entitlements

import "strings"

type Plan string

const (
	PlanFree    Plan = "free"
	PlanPremium Plan = "premium"
)

// Digest sizing per plan. Free subscribers see exactly one deal and get the
// remainder as locked teasers; premium subscribers see everything up to the
// cap.
const (
	FreeVisibleDeals   = 1
	PremiumVisibleCap  = 10
	DigestCandidateCap = 25
)

// Normalize maps arbitrary stored plan strings onto the closed plan set.
func Normalize(plan string) Plan {
	switch strings.ToLower(strings.TrimSpace(plan)) {
	case string(PlanPremium):
		return PlanPremium
	default:
		return PlanFree
	}
}

// Rank orders plans for comparisons; higher is more entitled.
func Rank(plan Plan) int {
	if plan == PlanPremium {
		return 1
	}
	return 0
}

// VisibleDealLimit returns how many deals a plan may see in one digest.
func VisibleDealLimit(plan Plan) int {
	if plan == PlanPremium {
		return PremiumVisibleCap
	}
	return FreeVisibleDeals
}
