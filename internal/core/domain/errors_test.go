package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestErrorsKeepInsertionOrder(t *testing.T) {
	e := NewErrors("tableName", "is required", "base", "broken")
	e = e.With("entityName", "is required").With("tableName", "replaced")

	if diff := cmp.Diff([]string{"tableName", "base", "entityName"}, e.Keys()); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
	if got := e.Get("tableName"); got != "replaced" {
		t.Fatalf("last write should win, got %q", got)
	}
	want := []string{"tableName: replaced", "base: broken", "entityName: is required"}
	if diff := cmp.Diff(want, e.Messages()); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}
}

func TestErrorsAreImmutable(t *testing.T) {
	a := NewErrors("a", "1")
	b := a.With("b", "2")
	c := a.Merge(NewErrors("a", "3"))

	if a.Len() != 1 || a.Get("a") != "1" {
		t.Fatalf("original changed: %v", a)
	}
	if b.Len() != 2 || c.Get("a") != "3" {
		t.Fatalf("unexpected derived values: %v %v", b, c)
	}
}

func TestErrorsMergeIncomingWins(t *testing.T) {
	got := NewErrors("a", "1", "b", "2").Merge(NewErrors("b", "20", "c", "30"))
	want := NewErrors("a", "1", "b", "20", "c", "30")
	if !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	if !NewErrors("a", "1").Merge(Errors{}).Equal(NewErrors("a", "1")) {
		t.Fatalf("merging nothing must be a no-op")
	}
}

func TestErrorsFromMapSortsKeys(t *testing.T) {
	got := ErrorsFromMap(map[string]string{"z": "1", "a": "2"})
	if diff := cmp.Diff([]string{"a", "z"}, got.Keys()); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
}

func TestErrorsJSONPreservesOrder(t *testing.T) {
	e := NewErrors("z", "last letter", "a", "first letter")
	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"z":"last letter","a":"first letter"}` {
		t.Fatalf("unexpected json: %s", data)
	}

	var back Errors
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(e) {
		t.Fatalf("order lost: %v", back)
	}

	var empty Errors
	if data, _ := json.Marshal(empty); string(data) != "{}" {
		t.Fatalf("empty errors must encode as an object, got %s", data)
	}
	if err := json.Unmarshal([]byte(`null`), &back); err != nil || !back.Empty() {
		t.Fatalf("null should decode to empty errors: %v %v", back, err)
	}
	if err := json.Unmarshal([]byte(`["a"]`), &back); err == nil {
		t.Fatalf("expected error for non-object")
	}
}

func TestErrSchemaViolation(t *testing.T) {
	var err error = &ErrSchemaViolation{Errors: NewErrors("tableName", "is required", "base", "broken")}
	var target *ErrSchemaViolation
	if !errors.As(err, &target) {
		t.Fatalf("errors.As failed")
	}
	if !strings.Contains(err.Error(), "tableName: is required; base: broken") {
		t.Fatalf("unexpected message: %s", err)
	}
}
