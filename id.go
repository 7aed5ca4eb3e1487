package talentwire

import "github.com/xraph/talentwire/id"

// ID is the primary identifier type for all talentwire entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
