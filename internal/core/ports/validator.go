package ports

import "github.com/atvirokodosprendimai/entitygen/internal/core/domain"

// StructuralValidator checks decoded JSON values against the entity schema
// document. Decode parses serialized input into the value representation
// Validate expects. A non-nil error from Validate means validation could
// not run; structural mismatches are reported as violations.
type StructuralValidator interface {
	Decode(raw []byte) (any, error)
	Validate(v any) ([]domain.Violation, error)
}
