// Package entitlement maps plan tiers to quota and feature limits.
package entitlement

import "github.com/ghostpost/capsule-server/internal/model"

// Limits is the set of quotas derived from a plan tier.
type Limits struct {
	MaxCapsules     int
	MaxHorizonYears int
	MediaAllowed    bool
	VideoAllowed    bool
	MaxMediaBytes   int64
}

const unlimitedCapsules = 999999

var limitsByTier = map[model.PlanTier]Limits{
	model.PlanFree: {
		MaxCapsules:     3,
		MaxHorizonYears: 1,
	},
	model.PlanTimeKeeper: {
		MaxCapsules:     10,
		MaxHorizonYears: 10,
		MediaAllowed:    true,
		MaxMediaBytes:   10 << 20,
	},
	model.PlanTimeLord: {
		MaxCapsules:     unlimitedCapsules,
		MaxHorizonYears: 50,
		MediaAllowed:    true,
		VideoAllowed:    true,
		MaxMediaBytes:   50 << 20,
	},
}

// ForTier resolves the limits for a plan tier. Unknown tiers resolve to the
// most restrictive plan.
func ForTier(tier model.PlanTier) Limits {
	if limits, ok := limitsByTier[tier]; ok {
		return limits
	}
	return limitsByTier[model.PlanFree]
}
