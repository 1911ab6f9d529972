package unlock

import (
	"github.com/xraph/unlock/grant"
	"github.com/xraph/unlock/subscription"
)

// Re-export common types so callers rarely need the sub-packages.

// Sections is re-exported from the grant package.
type Sections = grant.Sections

// SubscriptionState is re-exported from the subscription package.
type SubscriptionState = subscription.State

// Plan is re-exported from the subscription package.
type Plan = subscription.Plan

// Re-export plans and section names
const (
	PlanMonthly = subscription.PlanMonthly
	PlanYearly  = subscription.PlanYearly

	GlobalTrait          = grant.GlobalTrait
	SectionAdUnlock      = grant.SectionAdUnlock
	SectionPremium       = grant.SectionPremium
	SectionPremiumGlobal = grant.SectionPremiumGlobal
)
