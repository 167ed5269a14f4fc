package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/atvirokodosprendimai/entitygen/internal/core/appctx"
	"github.com/atvirokodosprendimai/entitygen/internal/core/domain"
	"github.com/atvirokodosprendimai/entitygen/internal/core/errmap"
	"github.com/atvirokodosprendimai/entitygen/internal/core/failure"
	"github.com/atvirokodosprendimai/entitygen/internal/core/ports"
)

type (
	EntityContext = appctx.Context[domain.EntitySchema, domain.ViewModel]
	EntityState   = appctx.State[domain.EntitySchema, domain.ViewModel]
	EntityPartial = appctx.Partial[domain.EntitySchema, domain.ViewModel]
)

// NewEntityContext returns an empty context for entity schemas.
func NewEntityContext(input map[string]any, opts ...appctx.Option) *EntityContext {
	return appctx.New[domain.EntitySchema, domain.ViewModel](input, opts...)
}

// SchemaValidator validates entity schemas given as decoded maps, typed
// schemas or serialized JSON. It is stateless and safe for concurrent use.
type SchemaValidator struct {
	structural ports.StructuralValidator
	chain      *errmap.Chain
	registry   *errmap.Registry
	failures   *failure.Config
}

type ValidatorOption func(*SchemaValidator)

func WithChain(c *errmap.Chain) ValidatorOption {
	return func(v *SchemaValidator) {
		if c != nil {
			v.chain = c
		}
	}
}

func WithRegistry(r *errmap.Registry) ValidatorOption {
	return func(v *SchemaValidator) {
		if r != nil {
			v.registry = r
		}
	}
}

func WithFailureConfig(c *failure.Config) ValidatorOption {
	return func(v *SchemaValidator) {
		if c != nil {
			v.failures = c
		}
	}
}

func NewSchemaValidator(structural ports.StructuralValidator, opts ...ValidatorOption) *SchemaValidator {
	v := &SchemaValidator{structural: structural}
	for _, opt := range opts {
		opt(v)
	}
	if v.chain == nil {
		v.chain = errmap.NewChain()
	}
	if v.registry == nil {
		v.registry = errmap.DefaultRegistry(v.chain)
	}
	if v.failures == nil {
		v.failures = failure.NewConfig()
	}
	return v
}

// Failures returns the failure configuration shared by this validator.
func (v *SchemaValidator) Failures() *failure.Config {
	return v.failures
}

// Chain returns the mapper chain used for violations.
func (v *SchemaValidator) Chain() *errmap.Chain {
	return v.chain
}

// Validate runs a stateless validation.
func (v *SchemaValidator) Validate(input any) *Result {
	return v.ValidateContext(context.Background(), input)
}

func (v *SchemaValidator) ValidateContext(ctx context.Context, input any) *Result {
	out := v.run(ctx, input)
	if len(out.violations) > 0 {
		return NewResult(nil, out.violations, v.chain)
	}
	return NewResult(out.data, nil, v.chain)
}

// ValidateInto validates input against the long-lived context c and returns
// c. Decoded objects become the context input. On failure data and resource
// are cleared and errors are replaced by the mapped violations; on success
// data is set and errors are cleared. The resource is always cleared;
// deriving it is up to the caller.
func (v *SchemaValidator) ValidateInto(ctx context.Context, c *EntityContext, input any) *EntityContext {
	out := v.run(ctx, input)
	if out.input != nil {
		c.SetInput(out.input)
	}

	var errs domain.Errors
	var data *domain.EntitySchema
	if len(out.violations) > 0 {
		errs = v.registry.Map(out.violations)
	} else {
		data = out.data
	}

	return c.Patch(EntityPartial{
		Data:     appctx.Some(data),
		Resource: appctx.Some[*domain.ViewModel](nil),
		Errors:   &errs,
	})
}

type outcome struct {
	data       *domain.EntitySchema
	violations []domain.Violation
	input      map[string]any
}

func (v *SchemaValidator) run(ctx context.Context, input any) outcome {
	n := v.normalize(input)
	if n.violation != nil {
		return outcome{violations: []domain.Violation{*n.violation}}
	}

	violations, err := v.structural.Validate(n.value)
	if err != nil {
		v.failures.Handle(ctx, input, err)
		return outcome{
			violations: []domain.Violation{domain.BaseViolation(fmt.Sprintf("Validation failed: %v", err))},
			input:      n.object(),
		}
	}
	if len(violations) > 0 {
		return outcome{violations: violations, input: n.object()}
	}

	var schema domain.EntitySchema
	if err := json.Unmarshal(n.raw, &schema); err != nil {
		var fe *domain.PropertyFieldError
		if errors.As(err, &fe) {
			return outcome{violations: []domain.Violation{fe.Violation()}, input: n.object()}
		}
		return outcome{
			violations: []domain.Violation{domain.BaseViolation(invalidJSONMessage(n.raw, err))},
			input:      n.object(),
		}
	}
	return outcome{data: &schema, input: n.object()}
}

type normalized struct {
	value     any
	raw       []byte
	violation *domain.Violation
}

// object returns the normalized value when it is a JSON object.
func (n normalized) object() map[string]any {
	m, _ := n.value.(map[string]any)
	return m
}

func (v *SchemaValidator) normalize(input any) normalized {
	var raw []byte
	switch in := input.(type) {
	case string:
		raw = []byte(in)
	case []byte:
		raw = in
	case json.RawMessage:
		raw = in
	case map[string]any:
		if in == nil {
			return rejected()
		}
		b, err := json.Marshal(in)
		if err != nil {
			return failed(invalidJSONMessage([]byte(fmt.Sprint(in)), err))
		}
		raw = b
	case domain.EntitySchema:
		return v.normalize(&in)
	case *domain.EntitySchema:
		if in == nil {
			return rejected()
		}
		b, err := json.Marshal(in)
		if err != nil {
			return failed(invalidJSONMessage([]byte(fmt.Sprint(*in)), err))
		}
		raw = b
	default:
		return rejected()
	}

	value, err := v.structural.Decode(raw)
	if err != nil {
		return failed(invalidJSONMessage(raw, err))
	}
	return normalized{value: value, raw: raw}
}

func rejected() normalized {
	vi := domain.BaseViolation(appctx.InputNotObjectMessage)
	return normalized{violation: &vi}
}

func failed(message string) normalized {
	vi := domain.BaseViolation(message)
	return normalized{violation: &vi}
}

func invalidJSONMessage(raw []byte, err error) string {
	return fmt.Sprintf("Invalid JSON input: %s. Reason: %v", raw, err)
}

// Registry returns the registry used to map violations into errors.
func (v *SchemaValidator) Registry() *errmap.Registry {
	return v.registry
}
