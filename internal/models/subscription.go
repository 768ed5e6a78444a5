package models

import "time"

type SubscriptionPlan string

const (
	PlanFree         SubscriptionPlan = "free"
	PlanProfessional SubscriptionPlan = "professional"
	PlanEnterprise   SubscriptionPlan = "enterprise"
)

// planRank orders plans so that each tier's entitlements contain the tiers
// below it.
var planRank = map[SubscriptionPlan]int{
	PlanFree:         1,
	PlanProfessional: 2,
	PlanEnterprise:   3,
}

func IsValidPlan(plan SubscriptionPlan) bool {
	_, ok := planRank[plan]
	return ok
}

// PlanAtLeast reports whether plan sits at or above required in the tier order.
func PlanAtLeast(plan, required SubscriptionPlan) bool {
	return planRank[plan] >= planRank[required]
}

type Subscription struct {
	ID        string           `json:"id" db:"id"`
	UserID    string           `json:"user_id" db:"user_id"`
	Plan      SubscriptionPlan `json:"plan" db:"plan"`
	IsActive  bool             `json:"is_active" db:"is_active"`
	StartedAt time.Time        `json:"started_at" db:"started_at"`
	ExpiresAt *time.Time       `json:"expires_at,omitempty" db:"expires_at"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt time.Time        `json:"updated_at" db:"updated_at"`
}

// EffectivePlan resolves the plan that entitlement decisions should use at
// the given instant. An inactive or expired subscription degrades to the
// free tier rather than producing an error.
func (s Subscription) EffectivePlan(now time.Time) SubscriptionPlan {
	if !s.IsActive {
		return PlanFree
	}
	if s.ExpiresAt != nil && !s.ExpiresAt.After(now) {
		return PlanFree
	}
	if !IsValidPlan(s.Plan) {
		return PlanFree
	}
	return s.Plan
}
