package usecase

import (
	"github.com/atvirokodosprendimai/entitygen/internal/core/domain"
	"github.com/atvirokodosprendimai/entitygen/internal/core/errmap"
	"github.com/atvirokodosprendimai/entitygen/internal/core/projection"
)

// Result is the outcome of one stateless validation. All derived values are
// computed by NewResult; a Result is never modified afterwards.
type Result struct {
	data          *domain.EntitySchema
	violations    []domain.Violation
	errors        []domain.MappedError
	messagesByKey domain.Errors
	messages      []string
	viewModel     *domain.ViewModel
}

// NewResult maps violations through chain. The view-model is only built when
// there are no violations and data has the shape of an entity schema.
func NewResult(data *domain.EntitySchema, violations []domain.Violation, chain *errmap.Chain) *Result {
	if chain == nil {
		chain = errmap.NewChain()
	}
	vs := append([]domain.Violation{}, violations...)
	mapped := chain.MapEach(vs)

	var byKey domain.Errors
	for _, e := range mapped {
		byKey = byKey.With(e.Key, e.Message)
	}

	r := &Result{
		data:          data,
		violations:    vs,
		errors:        mapped,
		messagesByKey: byKey,
		messages:      byKey.Messages(),
	}
	if r.Success() && data != nil && projection.LooksLikeSchema(data) {
		vm := projection.Project(*data)
		r.viewModel = &vm
	}
	return r
}

func (r *Result) Success() bool {
	return len(r.errors) == 0
}

func (r *Result) Failure() bool {
	return !r.Success()
}

// Data is the validated schema, nil on failure.
func (r *Result) Data() *domain.EntitySchema {
	return r.data
}

func (r *Result) Violations() []domain.Violation {
	return append([]domain.Violation{}, r.violations...)
}

func (r *Result) Errors() []domain.MappedError {
	return append([]domain.MappedError{}, r.errors...)
}

func (r *Result) MessagesByKey() domain.Errors {
	return r.messagesByKey
}

func (r *Result) Messages() []string {
	return append([]string{}, r.messages...)
}

// ViewModel is set only on success.
func (r *Result) ViewModel() *domain.ViewModel {
	return r.viewModel
}
