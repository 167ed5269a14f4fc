package jsonschema

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/atvirokodosprendimai/entitygen/internal/core/domain"
	"github.com/atvirokodosprendimai/entitygen/internal/core/errmap"
	"github.com/atvirokodosprendimai/entitygen/internal/core/usecase"
)

const userSchema = `{
  "entityName": "User",
  "tableName": "users",
  "primaryKey": {"name": "id", "type": "uuid", "strategy": "uuid"},
  "properties": {"email": {"type": "varchar", "length": 255}}
}`

func newValidator(t *testing.T, opts ...usecase.ValidatorOption) *usecase.SchemaValidator {
	t.Helper()
	v, err := NewEntityValidator()
	if err != nil {
		t.Fatalf("compile entity schema: %v", err)
	}
	return usecase.NewSchemaValidator(v, opts...)
}

func TestValidUserSchema(t *testing.T) {
	res := newValidator(t).Validate(userSchema)
	if !res.Success() {
		t.Fatalf("expected success, got %v", res.Messages())
	}
	if !res.MessagesByKey().Empty() {
		t.Fatalf("expected no errors, got %v", res.MessagesByKey())
	}

	vm := res.ViewModel()
	if vm == nil {
		t.Fatal("expected view-model")
	}
	wantPrimary := domain.PrimaryView{Name: "id", Strategy: domain.StrategyUUID, TargetType: "string"}
	if diff := cmp.Diff(wantPrimary, vm.Primary); diff != "" {
		t.Fatalf("primary mismatch (-want +got):\n%s", diff)
	}
	if len(vm.Fields) != 1 {
		t.Fatalf("expected one field, got %+v", vm.Fields)
	}
	email := vm.Fields[0]
	if email.Name != "email" || email.TargetType != "string" || email.Nullable {
		t.Fatalf("unexpected email field %+v", email)
	}
	if email.Length == nil || *email.Length != 255 {
		t.Fatalf("unexpected email length %v", email.Length)
	}
}

func TestMissingEntityNameIsKeyedByField(t *testing.T) {
	input := strings.Replace(userSchema, `"entityName": "User",`, "", 1)
	res := newValidator(t).Validate(input)
	if !res.Failure() {
		t.Fatal("expected failure")
	}
	msg := res.MessagesByKey().Get("entityName")
	if !strings.Contains(msg, "required") {
		t.Fatalf("expected required message for entityName, got %v", res.MessagesByKey())
	}
	if res.Data() != nil || res.ViewModel() != nil {
		t.Fatal("failed result must not carry data or view-model")
	}
}

func TestTruncatedJSONIsBaseError(t *testing.T) {
	raw := `{"entityName":`
	res := newValidator(t).Validate(raw)
	if !res.Failure() {
		t.Fatal("expected failure")
	}
	base := res.MessagesByKey().Get(domain.BaseKey)
	if !strings.Contains(base, "Invalid JSON input") || !strings.Contains(base, raw) {
		t.Fatalf("unexpected base error %q", base)
	}
}

func TestMalformedInputsEmbedRawText(t *testing.T) {
	for _, raw := range []string{"", "{", "not json", `{"a":1}}`, `[1,2`} {
		res := newValidator(t).Validate(raw)
		base := res.MessagesByKey().Get(domain.BaseKey)
		if base == "" || !strings.Contains(base, raw) {
			t.Fatalf("input %q: unexpected base error %q", raw, base)
		}
	}
}

func TestIncrementStrategyYieldsNumericKey(t *testing.T) {
	input := strings.Replace(userSchema, `"strategy": "uuid"`, `"strategy": "increment"`, 1)
	res := newValidator(t).Validate(input)
	if !res.Success() {
		t.Fatalf("expected success, got %v", res.Messages())
	}
	if got := res.ViewModel().Primary.TargetType; got != "number" {
		t.Fatalf("expected number target type, got %q", got)
	}
}

func TestUnknownStrategyWithEnumMapper(t *testing.T) {
	input := strings.Replace(userSchema, `"strategy": "uuid"`, `"strategy": "random"`, 1)
	res := newValidator(t, usecase.WithChain(errmap.WithCustom(errmap.EnumMapper{}))).Validate(input)
	want := domain.NewErrors("primaryKey.strategy", "must be one of: uuid, increment")
	if diff := cmp.Diff(want, res.MessagesByKey()); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestMultipleMissingPropertiesAreReportedSeparately(t *testing.T) {
	res := newValidator(t).Validate(`{"entityName":"User","tableName":"users"}`)
	for _, key := range []string{"primaryKey", "properties"} {
		if !res.MessagesByKey().Has(key) {
			t.Fatalf("expected %s error, got %v", key, res.MessagesByKey())
		}
	}
	if len(res.Errors()) != len(res.Violations()) {
		t.Fatalf("expected one mapped error per violation, got %d/%d", len(res.Errors()), len(res.Violations()))
	}
}

func TestInvalidPropertyNameIsRejected(t *testing.T) {
	input := strings.Replace(userSchema, `"email"`, `"e-mail"`, 1)
	res := newValidator(t).Validate(input)
	if !res.MessagesByKey().Has("properties") {
		t.Fatalf("expected properties error, got %v", res.MessagesByKey())
	}
}

func TestEmptyPropertiesAreRejected(t *testing.T) {
	input := `{"entityName":"User","tableName":"users","primaryKey":{"name":"id","type":"uuid","strategy":"uuid"},"properties":{}}`
	res := newValidator(t).Validate(input)
	if !res.MessagesByKey().Has("properties") {
		t.Fatalf("expected properties error, got %v", res.MessagesByKey())
	}
}

func TestValidateTwiceIsIdempotent(t *testing.T) {
	v := newValidator(t)
	first := v.Validate(userSchema)
	second := v.Validate(userSchema)
	if diff := cmp.Diff(first, second, cmp.AllowUnexported(usecase.Result{})); diff != "" {
		t.Fatalf("results differ (-first +second):\n%s", diff)
	}
}

func TestMapInputIsValidated(t *testing.T) {
	input := map[string]any{
		"entityName": "User",
		"tableName":  "users",
		"primaryKey": map[string]any{"name": "id", "type": "int", "strategy": "increment"},
		"properties": map[string]any{
			"name":      map[string]any{"type": "text"},
			"createdAt": map[string]any{"type": "datetime"},
		},
	}
	res := newValidator(t).Validate(input)
	if !res.Success() {
		t.Fatalf("expected success, got %v", res.Messages())
	}
	if _, ok := res.ViewModel().Field("createdAt"); ok {
		t.Fatal("createdAt must be excluded from the view-model")
	}
}

func TestNonObjectInputIsRejected(t *testing.T) {
	res := newValidator(t).Validate(42)
	if got := res.MessagesByKey().Get(domain.BaseKey); got != "Input must be a plain object" {
		t.Fatalf("unexpected base error %q", got)
	}
}

func TestStatefulValidationAccumulatesInContext(t *testing.T) {
	v := newValidator(t)
	c := usecase.NewEntityContext(nil)

	usecase.ValidateEntity(context.Background(), v, c, `{"entityName":`)
	if c.Success() || !c.Errors().Has(domain.BaseKey) {
		t.Fatalf("expected base error, got %v", c.Errors())
	}

	usecase.ValidateEntity(context.Background(), v, c, userSchema)
	if !c.Success() {
		t.Fatalf("expected success after fixing input, got %v", c.Messages())
	}
	if c.Data() == nil || c.Resource() == nil {
		t.Fatal("expected data and resource after success")
	}
	if c.Input()["entityName"] != "User" {
		t.Fatalf("expected decoded input, got %v", c.Input())
	}

	usecase.ValidateEntity(context.Background(), v, c, strings.Replace(userSchema, `"tableName": "users",`, "", 1))
	if c.Success() || c.Data() != nil || c.Resource() != nil {
		t.Fatal("failed attempt must clear data and resource")
	}
	if c.Errors().Has(domain.BaseKey) {
		t.Fatalf("errors of earlier attempts must not leak, got %v", c.Errors())
	}
}

func TestIntegralLengthForms(t *testing.T) {
	for _, tt := range []struct {
		raw  string
		want int
	}{
		{"255", 255},
		{"255.0", 255},
		{"1e3", 1000},
		{"2.55e2", 255},
	} {
		t.Run(tt.raw, func(t *testing.T) {
			input := strings.Replace(userSchema, `"length": 255`, `"length": `+tt.raw, 1)
			res := newValidator(t).Validate(input)
			if !res.Success() {
				t.Fatalf("expected success, got %v", res.Messages())
			}
			got := res.ViewModel().Fields[0].Length
			if got == nil || *got != tt.want {
				t.Fatalf("expected length %d, got %v", tt.want, got)
			}
		})
	}
}

func TestOversizedLengthIsFieldViolation(t *testing.T) {
	for _, raw := range []string{"1e30", "2147483648", "2.5"} {
		t.Run(raw, func(t *testing.T) {
			input := strings.Replace(userSchema, `"length": 255`, `"length": `+raw, 1)
			res := newValidator(t).Validate(input)
			if !res.Failure() {
				t.Fatal("expected failure")
			}
			if res.MessagesByKey().Has(domain.BaseKey) {
				t.Fatalf("length must not be reported as an input error: %v", res.MessagesByKey())
			}
			if !res.MessagesByKey().Has("properties.email.length") {
				t.Fatalf("expected properties.email.length error, got %v", res.MessagesByKey())
			}
		})
	}
}
