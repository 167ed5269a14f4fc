// Package errmap turns structural validator violations into caller facing
// key/message pairs.
//
// Two granularities exist. A Chain maps one violation at a time through an
// ordered list of ViolationMappers; the first mapper whose CanHandle accepts
// the violation produces the result. A Registry works on whole error inputs
// (an error map or a violation list) and picks a FamilyMapper for the input.
package errmap

import (
	"fmt"
	"sort"
	"strings"

	"github.com/atvirokodosprendimai/entitygen/internal/core/domain"
)

const (
	KeywordRequired = "required"
	KeywordEnum     = "enum"

	ParamMissingProperty = "missingProperty"
	ParamAllowedValues   = "allowedValues"

	defaultMessage  = "invalid"
	requiredMessage = "is required"
)

// ViolationMapper converts a single violation.
type ViolationMapper interface {
	CanHandle(v domain.Violation) bool
	Map(v domain.Violation) domain.MappedError
}

// RequiredFieldMapper keys missing required properties by the property name
// instead of the path of the containing object.
type RequiredFieldMapper struct{}

func (RequiredFieldMapper) CanHandle(v domain.Violation) bool {
	if v.Keyword != KeywordRequired {
		return false
	}
	name, ok := v.Params[ParamMissingProperty].(string)
	return ok && name != ""
}

func (RequiredFieldMapper) Map(v domain.Violation) domain.MappedError {
	msg := v.Message
	if msg == "" {
		msg = requiredMessage
	}
	return domain.MappedError{Key: v.Params[ParamMissingProperty].(string), Message: msg}
}

// DefaultPathMapper accepts every violation and keys it by its dotted path.
type DefaultPathMapper struct{}

func (DefaultPathMapper) CanHandle(domain.Violation) bool {
	return true
}

func (DefaultPathMapper) Map(v domain.Violation) domain.MappedError {
	msg := v.Message
	if msg == "" {
		msg = defaultMessage
	}
	return domain.MappedError{Key: DotPath(v.Path), Message: msg}
}

// EnumMapper lists the allowed values of enum violations. It is not part of
// the default chain; add it with WithCustom.
type EnumMapper struct{}

func (EnumMapper) CanHandle(v domain.Violation) bool {
	if v.Keyword != KeywordEnum {
		return false
	}
	_, ok := v.Params[ParamAllowedValues].([]any)
	return ok
}

func (EnumMapper) Map(v domain.Violation) domain.MappedError {
	allowed := v.Params[ParamAllowedValues].([]any)
	parts := make([]string, 0, len(allowed))
	for _, a := range allowed {
		parts = append(parts, fmt.Sprint(a))
	}
	return domain.MappedError{
		Key:     DotPath(v.Path),
		Message: "must be one of: " + strings.Join(parts, ", "),
	}
}

// DotPath converts a JSON pointer such as "/a/b" into "a.b". The root
// pointer maps to "base".
func DotPath(pointer string) string {
	p := strings.TrimPrefix(pointer, "/")
	if p == "" {
		return domain.BaseKey
	}
	segments := strings.Split(p, "/")
	for i, s := range segments {
		s = strings.ReplaceAll(s, "~1", "/")
		segments[i] = strings.ReplaceAll(s, "~0", "~")
	}
	return strings.Join(segments, ".")
}

// Chain runs mappers in order until one handles the violation. It is
// stateless and safe for concurrent use.
type Chain struct {
	mappers []ViolationMapper
}

// NewChain returns a chain over mappers, or the built-in chain when none are
// given.
func NewChain(mappers ...ViolationMapper) *Chain {
	if len(mappers) == 0 {
		return &Chain{mappers: builtins()}
	}
	out := make([]ViolationMapper, len(mappers))
	copy(out, mappers)
	return &Chain{mappers: out}
}

// WithCustom places custom mappers ahead of the built-ins.
func WithCustom(custom ...ViolationMapper) *Chain {
	out := make([]ViolationMapper, 0, len(custom)+2)
	out = append(out, custom...)
	out = append(out, builtins()...)
	return &Chain{mappers: out}
}

func builtins() []ViolationMapper {
	return []ViolationMapper{RequiredFieldMapper{}, DefaultPathMapper{}}
}

// Map returns the result of the first mapper accepting v. When a custom chain
// has no catch-all the default path mapping is used, so Map always answers.
func (c *Chain) Map(v domain.Violation) domain.MappedError {
	for _, m := range c.mappers {
		if m.CanHandle(v) {
			return m.Map(v)
		}
	}
	return DefaultPathMapper{}.Map(v)
}

// MapEach maps every violation, one MappedError per violation, in order.
func (c *Chain) MapEach(vs []domain.Violation) []domain.MappedError {
	out := make([]domain.MappedError, 0, len(vs))
	for _, v := range vs {
		out = append(out, c.Map(v))
	}
	return out
}

// MapAll folds the mapped violations into Errors. Colliding keys are
// resolved last-write-wins.
func (c *Chain) MapAll(vs []domain.Violation) domain.Errors {
	var out domain.Errors
	for _, m := range c.MapEach(vs) {
		out = out.With(m.Key, m.Message)
	}
	return out
}

// SortViolations orders violations by path then keyword so results do not
// depend on validator traversal order.
func SortViolations(vs []domain.Violation) {
	sort.SliceStable(vs, func(i, j int) bool {
		if vs[i].Path != vs[j].Path {
			return vs[i].Path < vs[j].Path
		}
		return vs[i].Keyword < vs[j].Keyword
	})
}
