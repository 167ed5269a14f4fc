package errmap

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/atvirokodosprendimai/entitygen/internal/core/domain"
)

func TestRegistryMapsViolationLists(t *testing.T) {
	r := NewRegistry(nil, nil)
	got := r.Map([]domain.Violation{
		{Keyword: "required", Params: map[string]any{"missingProperty": "entityName"}, Message: "is required"},
	})
	if got.Get("entityName") != "is required" {
		t.Fatalf("unexpected errors: %v", got.Messages())
	}
}

func TestRegistryPassesErrorMapsThrough(t *testing.T) {
	r := NewRegistry(nil, nil)

	got := r.Map(domain.NewErrors("foo", "bad"))
	if diff := cmp.Diff([]string{"foo: bad"}, got.Messages()); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}

	got = r.Map(map[string]string{"b": "2", "a": "1"})
	if diff := cmp.Diff([]string{"a: 1", "b: 2"}, got.Messages()); diff != "" {
		t.Fatalf("plain maps should be sorted (-want +got):\n%s", diff)
	}
}

func TestRegistryFallback(t *testing.T) {
	r := NewRegistry(nil, nil)
	if got := r.Map([]domain.Violation{}); !got.Empty() {
		t.Fatalf("empty violation list should map to no errors, got %v", got.Messages())
	}
	if got := r.Map(42); !got.Empty() {
		t.Fatalf("unknown input should map to no errors, got %v", got.Messages())
	}
}

type constantFamily struct{ key string }

func (constantFamily) CanHandle(any) bool { return false }
func (c constantFamily) Map(any) domain.Errors {
	return domain.NewErrors(c.key, "fallback")
}

func TestRegistryCustomFallback(t *testing.T) {
	r := NewRegistry([]FamilyMapper{ErrorsMapper{}}, constantFamily{key: "x"})
	got := r.Map([]domain.Violation{{Path: "/a", Message: "m"}})
	if got.Get("x") != "fallback" {
		t.Fatalf("expected fallback mapper, got %v", got.Messages())
	}
}

func TestDefaultRegistryUsesChain(t *testing.T) {
	r := DefaultRegistry(WithCustom(EnumMapper{}))
	got := r.Map([]domain.Violation{{
		Path:    "/primaryKey/strategy",
		Keyword: "enum",
		Params:  map[string]any{"allowedValues": []any{"uuid", "increment"}},
	}})
	if got.Get("primaryKey.strategy") != "must be one of: uuid, increment" {
		t.Fatalf("unexpected errors: %v", got.Messages())
	}
}
