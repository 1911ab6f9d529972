// Package grant holds the unlock ledger's data model: the nested map of
// permanent section grants and the per-section record of the last day a
// free unlock was consumed.
package grant

import "time"

// GlobalTrait marks a grant that covers a whole test rather than one trait.
const GlobalTrait = "global"

// Sections a ledger section may carry. Apps may use any other name.
const (
	SectionAdUnlock      = "ad_unlock"
	SectionPremium       = "premium"
	SectionPremiumGlobal = "premium_global"
)

// PremiumGated reports whether visibility of (trait, section) is derived
// from the subscription instead of a stored grant.
func PremiumGated(trait, section string) bool {
	return section == SectionPremium || section == SectionPremiumGlobal || trait == GlobalTrait
}

// Sections maps test id → trait → section → granted. Missing path
// components read as not granted.
type Sections map[string]map[string]map[string]bool

// Get returns the stored grant without creating intermediate maps.
func (s Sections) Get(testID, trait, section string) bool {
	return s[testID][trait][section]
}

// Set records a permanent grant, creating the path as needed.
func (s Sections) Set(testID, trait, section string) {
	traits := s[testID]
	if traits == nil {
		traits = make(map[string]map[string]bool)
		s[testID] = traits
	}
	sections := traits[trait]
	if sections == nil {
		sections = make(map[string]bool)
		traits[trait] = sections
	}
	sections[section] = true
}

// DeleteTest drops every grant of testID and reports whether any existed.
func (s Sections) DeleteTest(testID string) bool {
	if _, ok := s[testID]; !ok {
		return false
	}
	delete(s, testID)
	return true
}

// Merge adds every grant of other to s. Grants are never revoked by a
// merge.
func (s Sections) Merge(other Sections) {
	for testID, traits := range other {
		for trait, sections := range traits {
			for section, granted := range sections {
				if granted {
					s.Set(testID, trait, section)
				}
			}
		}
	}
}

// Count returns the number of granted sections.
func (s Sections) Count() int {
	n := 0
	for _, traits := range s {
		for _, sections := range traits {
			for _, granted := range sections {
				if granted {
					n++
				}
			}
		}
	}
	return n
}

// Clone returns a deep copy.
func (s Sections) Clone() Sections {
	out := make(Sections, len(s))
	for testID, traits := range s {
		t := make(map[string]map[string]bool, len(traits))
		for trait, sections := range traits {
			sc := make(map[string]bool, len(sections))
			for k, v := range sections {
				sc[k] = v
			}
			t[trait] = sc
		}
		out[testID] = t
	}
	return out
}

// DayLayout formats calendar days the way the persisted blobs store them,
// e.g. "Mon Jan 06 2025".
const DayLayout = "Mon Jan 02 2006"

// Day returns the calendar day of t in t's location.
func Day(t time.Time) string {
	return t.Format(DayLayout)
}

// Key returns the daily-usage key for a section.
func Key(testID, trait, section string) string {
	return testID + "_" + trait + "_" + section
}

// DailyUsage maps Key(...) to the last day a free unlock was used there.
type DailyUsage map[string]string

// UsedOn reports whether the free unlock for key was consumed on day.
func (d DailyUsage) UsedOn(key, day string) bool {
	last, ok := d[key]
	return ok && last == day
}

// Merge adds the entries of other whose keys d does not have yet.
func (d DailyUsage) Merge(other DailyUsage) {
	for k, v := range other {
		if _, ok := d[k]; !ok {
			d[k] = v
		}
	}
}

// Clone returns a copy.
func (d DailyUsage) Clone() DailyUsage {
	out := make(DailyUsage, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}
