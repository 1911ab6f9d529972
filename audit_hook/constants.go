package audithook

// Action constants for audit events.
const (
	// Unlock actions
	ActionSectionUnlocked = "section.unlocked"
	ActionUnlockDenied    = "unlock.denied"

	// Ad actions
	ActionAdRewarded = "ad.rewarded"
	ActionAdFailed   = "ad.failed"

	// Subscription actions
	ActionSubscriptionActivated   = "subscription.activated"
	ActionSubscriptionDeactivated = "subscription.deactivated"
	ActionSubscriptionChanged     = "subscription.changed"

	// Purchase actions
	ActionPurchaseCompleted = "purchase.completed"
	ActionPurchaseFailed    = "purchase.failed"
	ActionPurchaseCancelled = "purchase.cancelled"
	ActionRestoreCompleted  = "restore.completed"
	ActionRestoreFailed     = "restore.failed"
	ActionCancelRequested   = "cancel.requested"

	// Storage actions
	ActionStorageFailed = "storage.failed"
)

// Resource constants for audit events.
const (
	ResourceSection      = "section"
	ResourceAd           = "ad"
	ResourceSubscription = "subscription"
	ResourcePurchase     = "purchase"
	ResourceStorage      = "storage"
)

// Category constants for audit events.
const (
	CategoryAccess       = "access"
	CategoryAds          = "ads"
	CategorySubscription = "subscription"
	CategoryPayment      = "payment"
	CategoryStorage      = "storage"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
