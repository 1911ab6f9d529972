package subscription

import (
	"strings"
	"time"

	"github.com/xraph/unlock/id"
)

// Status is the lifecycle position of the manager.
type Status string

const (
	StatusUninitialized Status = "uninitialized"
	StatusInitializing  Status = "initializing"
	StatusReady         Status = "ready"
	StatusMock          Status = "mock"
	StatusError         Status = "error"
)

// Plan is the billing period of the active subscription.
type Plan string

const (
	PlanNone    Plan = ""
	PlanMonthly Plan = "monthly"
	PlanYearly  Plan = "yearly"
)

// State is the normalized subscription view consumed by the unlock ledger.
// It is derived from the provider's customer info and never stored.
type State struct {
	IsActive        bool       `json:"is_active"`
	Plan            Plan       `json:"plan,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	IsLoading       bool       `json:"is_loading"`
	IsActiveChecked bool       `json:"is_active_checked"`
	Status          Status     `json:"status"`
	Error           string     `json:"error,omitempty"`
}

// Premium reports whether premium content may be shown. IsActive alone is
// not enough: before the first check completes it holds a default.
func (s State) Premium() bool {
	return s.IsActive && s.IsActiveChecked
}

func (s State) equal(o State) bool {
	if s.IsActive != o.IsActive || s.Plan != o.Plan || s.IsLoading != o.IsLoading ||
		s.IsActiveChecked != o.IsActiveChecked || s.Status != o.Status || s.Error != o.Error {
		return false
	}
	switch {
	case s.ExpiresAt == nil && o.ExpiresAt == nil:
		return true
	case s.ExpiresAt == nil || o.ExpiresAt == nil:
		return false
	default:
		return s.ExpiresAt.Equal(*o.ExpiresAt)
	}
}

// Result is the outcome of a purchase, restore or cancel. Expected
// rejections are reported here, never as Go errors.
type Result struct {
	ID        id.ID  `json:"id"`
	Success   bool   `json:"success"`
	Cancelled bool   `json:"cancelled,omitempty"`
	Reason    string `json:"error,omitempty"`
	Err       error  `json:"-"`
	State     State  `json:"state"`
}

// planFromProduct infers the billing period from a store product id.
func planFromProduct(productID string) Plan {
	p := strings.ToLower(productID)
	switch {
	case strings.Contains(p, "year"), strings.Contains(p, "annual"):
		return PlanYearly
	case strings.Contains(p, "month"):
		return PlanMonthly
	default:
		return PlanNone
	}
}
