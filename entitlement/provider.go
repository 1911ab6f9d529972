// Package entitlement defines the contract of the remote entitlement
// service (the billing SDK) and a network-free mock of it.
package entitlement

import (
	"context"
	"errors"
)

// Sentinel errors for provider failures.
var (
	ErrUserCancelled   = errors.New("entitlement: purchase cancelled by user")
	ErrInvalidAPIKey   = errors.New("entitlement: missing or malformed api key")
	ErrPackageNotFound = errors.New("entitlement: package not found")
	ErrProviderFailure = errors.New("entitlement: provider failure")
	ErrNoOfferings     = errors.New("entitlement: no current offering")
)

// Provider is the billing SDK as seen by the subscription manager. Real
// implementations wrap a platform SDK; every method may block on network.
// PurchasePackage must return an error matching ErrUserCancelled when the
// user backs out of the checkout sheet.
type Provider interface {
	Configure(ctx context.Context, apiKey string) error
	GetCustomerInfo(ctx context.Context) (*CustomerInfo, error)
	GetOfferings(ctx context.Context) (*Offerings, error)
	PurchasePackage(ctx context.Context, pkg Package) (*CustomerInfo, error)
	RestorePurchases(ctx context.Context) (*CustomerInfo, error)
}

// ValidateAPIKey rejects keys that cannot be handed to a provider.
func ValidateAPIKey(key string) error {
	if len(key) < 8 {
		return ErrInvalidAPIKey
	}
	for _, r := range key {
		if r == ' ' || r == '\t' || r == '\n' {
			return ErrInvalidAPIKey
		}
	}
	return nil
}
