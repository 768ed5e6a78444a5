package collaboration

import (
	"time"

	"github.com/collabthon/collabthon-api/internal/models"
)

// Capability names an action a subscription tier may unlock.
type Capability string

const (
	CapabilityUnlimitedProjects Capability = "unlimited_projects"
	CapabilityAdvancedSearch    Capability = "advanced_search"
	CapabilityPrioritySupport   Capability = "priority_support"
	CapabilityTeamCollaboration Capability = "team_collaboration"
)

// capabilityTier maps each capability to the lowest plan that grants it.
// Because plans are totally ordered, every higher tier grants it too, which
// keeps entitlements monotonic across tiers.
var capabilityTier = map[Capability]models.SubscriptionPlan{
	CapabilityUnlimitedProjects: models.PlanProfessional,
	CapabilityAdvancedSearch:    models.PlanProfessional,
	CapabilityPrioritySupport:   models.PlanProfessional,
	CapabilityTeamCollaboration: models.PlanEnterprise,
}

// freeTierCap bounds outstanding pending requests and open project listings
// on the free plan.
const freeTierCap = 5

// HasCapability decides whether the subscription permits the capability at
// the given instant. It is a pure function of its inputs; an inactive,
// expired, or missing subscription degrades to the free tier.
func HasCapability(sub models.Subscription, capability Capability, now time.Time) bool {
	required, ok := capabilityTier[capability]
	if !ok {
		return false
	}
	return models.PlanAtLeast(sub.EffectivePlan(now), required)
}

// PendingRequestCap returns the maximum number of outstanding pending
// collaboration requests the plan allows, or a negative value for no cap.
func PendingRequestCap(plan models.SubscriptionPlan) int {
	if plan == models.PlanFree {
		return freeTierCap
	}
	return -1
}

// OpenProjectCap returns the maximum number of open project listings the
// plan allows, or a negative value for no cap.
func OpenProjectCap(plan models.SubscriptionPlan) int {
	if plan == models.PlanFree {
		return freeTierCap
	}
	return -1
}

// PlanInfo describes one entry of the public plan catalog.
type PlanInfo struct {
	Plan         models.SubscriptionPlan `json:"plan"`
	Name         string                  `json:"name"`
	Price        int                     `json:"price"`
	Features     []string                `json:"features"`
	ProjectLimit *int                    `json:"project_limit"`
	DurationDays int                     `json:"duration_days"`
}

// Plans returns the subscription catalog, cheapest first.
func Plans() []PlanInfo {
	freeLimit := freeTierCap
	return []PlanInfo{
		{
			Plan:         models.PlanFree,
			Name:         "Free",
			Price:        0,
			Features:     []string{"Basic profile", "5 project listings", "Limited search"},
			ProjectLimit: &freeLimit,
			DurationDays: 30,
		},
		{
			Plan:         models.PlanProfessional,
			Name:         "Professional",
			Price:        2999,
			Features:     []string{"Enhanced profile", "Unlimited projects", "Advanced search", "Priority support"},
			DurationDays: 30,
		},
		{
			Plan:         models.PlanEnterprise,
			Name:         "Enterprise",
			Price:        7999,
			Features:     []string{"All Professional features", "Team collaboration", "Custom integrations", "24/7 support"},
			DurationDays: 30,
		},
	}
}
