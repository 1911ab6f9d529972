package entitlement

import "time"

// CustomerInfo is the provider's raw view of one customer.
type CustomerInfo struct {
	Entitlements Entitlements `json:"entitlements"`
}

// Entitlements groups the customer's entitlements by state.
type Entitlements struct {
	Active map[string]EntitlementInfo `json:"active"`
}

// EntitlementInfo describes one active entitlement.
type EntitlementInfo struct {
	ProductIdentifier string     `json:"product_identifier"`
	ExpirationDate    *time.Time `json:"expiration_date,omitempty"`
}

// Active returns the named active entitlement, if present.
func (c *CustomerInfo) Active(key string) (EntitlementInfo, bool) {
	if c == nil || c.Entitlements.Active == nil {
		return EntitlementInfo{}, false
	}
	info, ok := c.Entitlements.Active[key]
	return info, ok
}

// PackageType classifies a purchasable package by billing period.
type PackageType string

const (
	PackageMonthly PackageType = "MONTHLY"
	PackageAnnual  PackageType = "ANNUAL"
	PackageCustom  PackageType = "CUSTOM"
)

// Product is the store product behind a package.
type Product struct {
	Identifier  string `json:"identifier"`
	PriceString string `json:"price_string"`
}

// Package is one purchasable entry of an offering.
type Package struct {
	Identifier  string      `json:"identifier"`
	PackageType PackageType `json:"package_type"`
	Product     Product     `json:"product"`
}

// Offering is a catalog of packages.
type Offering struct {
	Identifier        string    `json:"identifier"`
	AvailablePackages []Package `json:"available_packages"`
}

// Offerings wraps the provider's current offering.
type Offerings struct {
	Current *Offering `json:"current,omitempty"`
}

// Placeholder identifiers exposed when the real catalog is unavailable.
const (
	PlaceholderOfferingID = "placeholder"
	PlaceholderMonthlyID  = "$rc_monthly"
	PlaceholderAnnualID   = "$rc_annual"
)

// PlaceholderOffering returns a static catalog so pricing UI can render in
// mock and error modes.
func PlaceholderOffering() *Offering {
	return &Offering{
		Identifier: PlaceholderOfferingID,
		AvailablePackages: []Package{
			{
				Identifier:  PlaceholderMonthlyID,
				PackageType: PackageMonthly,
				Product:     Product{Identifier: "premium_monthly", PriceString: "$2.99"},
			},
			{
				Identifier:  PlaceholderAnnualID,
				PackageType: PackageAnnual,
				Product:     Product{Identifier: "premium_yearly", PriceString: "$19.99"},
			},
		},
	}
}
