// Package unlock decides which sections of a psychological test a user may
// see, and records the sections they unlock.
//
// Unlock is designed as a library, not a service. A Ledger combines three
// collaborators, each constructed explicitly and passed in:
//
//   - a grant.Store holding the persisted grant and daily-usage blobs
//   - a subscription source (usually *subscription.Manager) that resolves
//     the premium entitlement
//   - an ad shower (usually *ads.Manager) that shows rewarded ads with a
//     per-placement cooldown
//
// # Quick Start
//
//	kv := memory.New()
//	subs := subscription.NewManager(realProvider,
//	    subscription.WithAPIKey(apiKey),
//	    subscription.WithEnvironment(platform.Environment{Platform: platform.IOS}),
//	)
//	adm := ads.NewManager(sdk, ads.WithAdUnitID(adUnitID))
//
//	l := unlock.New(grant.NewKVStore(kv), subs, adm)
//	if err := l.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Stop()
//
//	if !l.IsUnlocked("autoestima", "confianza", "ad_unlock") {
//	    res, err := l.UnlockSection(ctx, "autoestima", "confianza", "ad_unlock", unlock.MethodAd)
//	    ...
//	}
//
// # Unlock rules
//
// Sections named "premium" or "premium_global", and every section of the
// "global" trait, are visible exactly while the subscription is active and
// has been checked at least once. They are never stored as grants, so a
// lapsed subscription hides them immediately.
//
// Every other section is visible once a grant is stored for it. Grants are
// earned by watching a rewarded ad to completion or by spending the
// section's free unlock, available once per calendar day. Grants never
// expire.
//
// # Failure model
//
// Expected denials (premium required, free unlock used, ad cooldown, ad
// closed early) are returned as a Result with a Spanish message. Storage
// failures are logged and reported to plugins but never fail an unlock.
//
// # Integration
//
// The extension package registers the engine with Forge; audit_hook and
// observability provide audit and metrics plugins.
package unlock
