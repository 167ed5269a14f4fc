package usecase

import (
	"context"
	"sync"

	"github.com/atvirokodosprendimai/entitygen/internal/core/appctx"
	"github.com/atvirokodosprendimai/entitygen/internal/core/domain"
	"github.com/atvirokodosprendimai/entitygen/internal/core/projection"
)

// EntityGenService validates entity schemas against one long-lived context
// and derives the view-model on success.
type EntityGenService struct {
	validator *SchemaValidator

	mu  sync.Mutex
	ctx *EntityContext
}

func NewEntityGenService(validator *SchemaValidator, opts ...appctx.Option) *EntityGenService {
	return &EntityGenService{
		validator: validator,
		ctx:       NewEntityContext(nil, opts...),
	}
}

// Validate runs one validation attempt and returns the shared context.
func (s *EntityGenService) Validate(ctx context.Context, input any) *EntityContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ValidateEntity(ctx, s.validator, s.ctx, input)
}

// Context returns the shared context. Callers must not use it concurrently
// with Validate.
func (s *EntityGenService) Context() *EntityContext {
	return s.ctx
}

// Raise converts a failed context into an *domain.ErrSchemaViolation when
// the failure configuration allows raising.
func (s *EntityGenService) Raise(c *EntityContext) error {
	return RaiseOnFailure(s.validator.Failures().AllowRaiseOnFailure(), c)
}

// ValidateEntity validates input into c and sets the resource to the
// projected view-model on success.
func ValidateEntity(ctx context.Context, v *SchemaValidator, c *EntityContext, input any) *EntityContext {
	v.ValidateInto(ctx, c, input)
	if c.Success() && c.Data() != nil {
		vm := projection.Project(*c.Data())
		return c.SetResource(&vm)
	}
	return c.SetResource(nil)
}

// RaiseOnFailure returns nil for successful contexts or when allow is false.
func RaiseOnFailure(allow bool, c *EntityContext) error {
	if !allow || c.Success() {
		return nil
	}
	return &domain.ErrSchemaViolation{Errors: c.Errors()}
}
