package errmap

import "github.com/atvirokodosprendimai/entitygen/internal/core/domain"

// FamilyMapper maps a whole error input of one family. Accepted inputs are
// domain.Errors, map[string]string and []domain.Violation.
type FamilyMapper interface {
	CanHandle(input any) bool
	Map(input any) domain.Errors
}

// ViolationsMapper handles non-empty violation lists through a Chain.
type ViolationsMapper struct {
	chain *Chain
}

func NewViolationsMapper(chain *Chain) *ViolationsMapper {
	if chain == nil {
		chain = NewChain()
	}
	return &ViolationsMapper{chain: chain}
}

func (m *ViolationsMapper) CanHandle(input any) bool {
	vs, ok := input.([]domain.Violation)
	return ok && len(vs) > 0
}

// Map also serves as the universal fallback: inputs it does not understand
// map to empty Errors.
func (m *ViolationsMapper) Map(input any) domain.Errors {
	vs, ok := input.([]domain.Violation)
	if !ok {
		return domain.Errors{}
	}
	return m.chain.MapAll(vs)
}

// ErrorsMapper passes key/message maps through unchanged.
type ErrorsMapper struct{}

func (ErrorsMapper) CanHandle(input any) bool {
	switch input.(type) {
	case domain.Errors, *domain.Errors, map[string]string:
		return true
	}
	return false
}

func (ErrorsMapper) Map(input any) domain.Errors {
	switch v := input.(type) {
	case domain.Errors:
		return v
	case *domain.Errors:
		if v == nil {
			return domain.Errors{}
		}
		return *v
	case map[string]string:
		return domain.ErrorsFromMap(v)
	}
	return domain.Errors{}
}

// Registry selects the first FamilyMapper accepting an input and falls back
// to a universal mapper otherwise.
type Registry struct {
	chain    []FamilyMapper
	fallback FamilyMapper
}

// NewRegistry builds a registry. A nil fallback defaults to a violations
// mapper over the built-in chain; an empty chain defaults to
// [violations, errors].
func NewRegistry(chain []FamilyMapper, fallback FamilyMapper) *Registry {
	violations := NewViolationsMapper(nil)
	if fallback == nil {
		fallback = violations
	}
	if len(chain) == 0 {
		chain = []FamilyMapper{violations, ErrorsMapper{}}
	}
	out := make([]FamilyMapper, len(chain))
	copy(out, chain)
	return &Registry{chain: out, fallback: fallback}
}

// DefaultRegistry is NewRegistry(nil, nil) with violations mapped by c.
func DefaultRegistry(c *Chain) *Registry {
	violations := NewViolationsMapper(c)
	return NewRegistry([]FamilyMapper{violations, ErrorsMapper{}}, violations)
}

func (r *Registry) Map(input any) domain.Errors {
	for _, m := range r.chain {
		if m.CanHandle(input) {
			return m.Map(input)
		}
	}
	return r.fallback.Map(input)
}
