// Package appctx implements the application context: a mutable session
// object that accumulates input, parameters, derived data, a derived
// resource and errors across validation attempts.
//
// Every operation is a synchronous state machine transition. The context
// is either clean or error; after each mutating operation the status is
// re-derived from the error map. A Context is not safe for concurrent use;
// callers sharing one must serialize access.
package appctx

import (
	"github.com/atvirokodosprendimai/entitygen/internal/core/domain"
	"github.com/atvirokodosprendimai/entitygen/internal/core/errmap"
)

// InputNotObjectMessage is recorded under "base" when SetInput receives a
// value that is not a key/value mapping.
const InputNotObjectMessage = "Input must be a plain object"

// State is the externally visible state of a Context. Data and Resource are
// shared by reference and must be treated as immutable.
type State[T, R any] struct {
	Input    map[string]any
	Params   map[string]any
	Data     *T
	Resource *R
	Errors   domain.Errors
	Messages []string
}

// Field distinguishes an absent value from an explicitly set one (including
// an explicit nil).
type Field[V any] struct {
	Value V
	Set   bool
}

func Some[V any](v V) Field[V] {
	return Field[V]{Value: v, Set: true}
}

// Partial is the argument of Patch and Merge. Nil maps and a nil Errors
// pointer mean "absent".
type Partial[T, R any] struct {
	Input    map[string]any
	Params   map[string]any
	Data     Field[*T]
	Resource Field[*R]
	Errors   *domain.Errors
}

// PartialFromState marks every key of s as present.
func PartialFromState[T, R any](s State[T, R]) Partial[T, R] {
	errs := s.Errors
	return Partial[T, R]{
		Input:    s.Input,
		Params:   s.Params,
		Data:     Some(s.Data),
		Resource: Some(s.Resource),
		Errors:   &errs,
	}
}

type options struct {
	registry     *errmap.Registry
	onTransition func(Transition)
}

type Option func(*options)

// WithRegistry sets the registry used by AddErrors.
func WithRegistry(r *errmap.Registry) Option {
	return func(o *options) {
		if r != nil {
			o.registry = r
		}
	}
}

// WithTransitionHook is called after every processed event.
func WithTransitionHook(fn func(Transition)) Option {
	return func(o *options) {
		o.onTransition = fn
	}
}

type Context[T, R any] struct {
	initialInput map[string]any
	state        State[T, R]
	status       Status
	registry     *errmap.Registry
	onTransition func(Transition)
}

// New returns a clean context whose input is input. A nil input becomes an
// empty mapping.
func New[T, R any](input map[string]any, opts ...Option) *Context[T, R] {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = errmap.NewRegistry(nil, nil)
	}

	initial := cloneMap(input)
	return &Context[T, R]{
		initialInput: initial,
		state: State[T, R]{
			Input:    cloneMap(initial),
			Params:   map[string]any{},
			Errors:   domain.Errors{},
			Messages: []string{},
		},
		status:       StatusClean,
		registry:     o.registry,
		onTransition: o.onTransition,
	}
}

// FromState builds a fresh context from state.Input and merges the rest of
// state into it. The construction input of the new context is state.Input.
func FromState[T, R any](state State[T, R], opts ...Option) *Context[T, R] {
	c := New[T, R](state.Input, opts...)
	return c.Merge(PartialFromState(state))
}

func (c *Context[T, R]) apply(ev Event, fn func(s *State[T, R])) *Context[T, R] {
	fn(&c.state)
	c.state.Messages = c.state.Errors.Messages()

	from := c.status
	c.status = next(from, ev, !c.state.Errors.Empty())
	if c.onTransition != nil {
		c.onTransition(Transition{Event: ev, From: from, To: c.status})
	}
	return c
}

// SetInput replaces the input when value is a key/value mapping. Anything
// else leaves the input unchanged and records a base error.
func (c *Context[T, R]) SetInput(value any) *Context[T, R] {
	return c.apply(EventSetInput, func(s *State[T, R]) {
		m, ok := value.(map[string]any)
		if !ok || m == nil {
			s.Errors = s.Errors.With(domain.BaseKey, InputNotObjectMessage)
			return
		}
		s.Input = cloneMap(m)
	})
}

// AddParams shallow-merges params; later keys overwrite earlier ones.
func (c *Context[T, R]) AddParams(params map[string]any) *Context[T, R] {
	return c.apply(EventAddParams, func(s *State[T, R]) {
		s.Params = mergeMaps(s.Params, params)
	})
}

func (c *Context[T, R]) SetData(data *T) *Context[T, R] {
	return c.apply(EventSetData, func(s *State[T, R]) {
		s.Data = data
	})
}

func (c *Context[T, R]) SetResource(resource *R) *Context[T, R] {
	return c.apply(EventSetResource, func(s *State[T, R]) {
		s.Resource = resource
	})
}

// ClearData clears data and the resource derived from it.
func (c *Context[T, R]) ClearData() *Context[T, R] {
	return c.apply(EventClearData, func(s *State[T, R]) {
		s.Data = nil
		s.Resource = nil
	})
}

// AddErrors maps input through the registry and merges the result into the
// current errors. input is domain.Errors, map[string]string or
// []domain.Violation.
func (c *Context[T, R]) AddErrors(input any) *Context[T, R] {
	mapped := c.registry.Map(input)
	return c.apply(EventAddErrors, func(s *State[T, R]) {
		s.Errors = s.Errors.Merge(mapped)
	})
}

// Fail is AddErrors.
func (c *Context[T, R]) Fail(input any) *Context[T, R] {
	return c.AddErrors(input)
}

func (c *Context[T, R]) ClearErrors() *Context[T, R] {
	return c.apply(EventClearErrors, func(s *State[T, R]) {
		s.Errors = domain.Errors{}
	})
}

// Patch replaces whichever of params, data, resource and errors are present
// in p. Nothing is merged.
func (c *Context[T, R]) Patch(p Partial[T, R]) *Context[T, R] {
	return c.apply(EventPatch, func(s *State[T, R]) {
		if p.Params != nil {
			s.Params = cloneMap(p.Params)
		}
		if p.Data.Set {
			s.Data = p.Data.Value
		}
		if p.Resource.Set {
			s.Resource = p.Resource.Value
		}
		if p.Errors != nil {
			s.Errors = p.Errors.Merge(domain.Errors{})
		}
	})
}

// Merge folds p into the state: input is replaced when present, params and
// errors are shallow-merged with p winning, and data and resource are
// replaced only when p marks them as set. A set key is authoritative even
// when its value is nil.
func (c *Context[T, R]) Merge(p Partial[T, R]) *Context[T, R] {
	return c.apply(EventMerge, func(s *State[T, R]) {
		if p.Input != nil {
			s.Input = cloneMap(p.Input)
		}
		s.Params = mergeMaps(s.Params, p.Params)
		if p.Data.Set {
			s.Data = p.Data.Value
		}
		if p.Resource.Set {
			s.Resource = p.Resource.Value
		}
		if p.Errors != nil {
			s.Errors = s.Errors.Merge(*p.Errors)
		}
	})
}

// MergeContext merges the full state of other, including its input.
func (c *Context[T, R]) MergeContext(other *Context[T, R]) *Context[T, R] {
	if other == nil {
		return c.Merge(Partial[T, R]{})
	}
	return c.Merge(PartialFromState(other.State()))
}

// Reset empties params, data, resource and errors and restores the input
// given at construction.
func (c *Context[T, R]) Reset() *Context[T, R] {
	return c.apply(EventReset, func(s *State[T, R]) {
		s.Input = cloneMap(c.initialInput)
		s.Params = map[string]any{}
		s.Data = nil
		s.Resource = nil
		s.Errors = domain.Errors{}
	})
}

// ToState exports a copy of the state, excluding the construction input.
func (c *Context[T, R]) ToState() State[T, R] {
	return State[T, R]{
		Input:    cloneMap(c.state.Input),
		Params:   cloneMap(c.state.Params),
		Data:     c.state.Data,
		Resource: c.state.Resource,
		Errors:   c.state.Errors,
		Messages: append([]string{}, c.state.Messages...),
	}
}

// State is ToState.
func (c *Context[T, R]) State() State[T, R] {
	return c.ToState()
}

func (c *Context[T, R]) Status() Status {
	return c.status
}

func (c *Context[T, R]) Success() bool {
	return c.state.Errors.Empty()
}

func (c *Context[T, R]) Failure() bool {
	return !c.Success()
}

func (c *Context[T, R]) Input() map[string]any {
	return cloneMap(c.state.Input)
}

func (c *Context[T, R]) Params() map[string]any {
	return cloneMap(c.state.Params)
}

func (c *Context[T, R]) Data() *T {
	return c.state.Data
}

func (c *Context[T, R]) Resource() *R {
	return c.state.Resource
}

func (c *Context[T, R]) Errors() domain.Errors {
	return c.state.Errors
}

func (c *Context[T, R]) Messages() []string {
	return append([]string{}, c.state.Messages...)
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func mergeMaps(base, incoming map[string]any) map[string]any {
	out := cloneMap(base)
	for k, v := range incoming {
		out[k] = v
	}
	return out
}
