package unlock

import "github.com/xraph/unlock/id"

// ID is the primary identifier type for grants, purchases and ad
// impressions.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
