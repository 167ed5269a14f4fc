// Package jsonschema validates entity schemas with a JSON Schema document
// and reports mismatches as domain violations.
package jsonschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	santhosh "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/atvirokodosprendimai/entitygen/internal/core/domain"
	"github.com/atvirokodosprendimai/entitygen/internal/core/errmap"
	"github.com/atvirokodosprendimai/entitygen/internal/core/ports"
)

//go:embed entity.schema.json
var entitySchemaJSON []byte

const entitySchemaURL = "entity.schema.json"

// EntitySchemaDocument returns a copy of the embedded schema document.
func EntitySchemaDocument() json.RawMessage {
	return append(json.RawMessage(nil), entitySchemaJSON...)
}

var quotedName = regexp.MustCompile(`['"]([^'"]+)['"]`)

// Validator is safe for concurrent use.
type Validator struct {
	schema *santhosh.Schema
	doc    any
}

var _ ports.StructuralValidator = (*Validator)(nil)

// NewEntityValidator compiles the embedded entity schema document.
func NewEntityValidator() (*Validator, error) {
	return New(entitySchemaJSON)
}

// New compiles schemaJSON as a draft 7 document.
func New(schemaJSON []byte) (*Validator, error) {
	compiler := santhosh.NewCompiler()
	compiler.Draft = santhosh.Draft7
	if err := compiler.AddResource(entitySchemaURL, bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	compiled, err := compiler.Compile(entitySchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	doc, err := decodeJSON(schemaJSON)
	if err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	return &Validator{schema: compiled, doc: doc}, nil
}

// Decode parses raw JSON the way the validator expects values: numbers are
// kept as json.Number and trailing data is rejected.
func (v *Validator) Decode(raw []byte) (any, error) {
	return decodeJSON(raw)
}

func decodeJSON(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("invalid character after top-level value")
	}
	return out, nil
}

func (v *Validator) Validate(value any) ([]domain.Violation, error) {
	err := v.schema.Validate(value)
	if err == nil {
		return nil, nil
	}
	var ve *santhosh.ValidationError
	if !errors.As(err, &ve) {
		return nil, fmt.Errorf("validate: %w", err)
	}

	var out []domain.Violation
	for _, leaf := range leaves(ve) {
		out = append(out, v.toViolations(leaf)...)
	}
	errmap.SortViolations(out)
	return out, nil
}

func leaves(ve *santhosh.ValidationError) []*santhosh.ValidationError {
	if len(ve.Causes) == 0 {
		return []*santhosh.ValidationError{ve}
	}
	var out []*santhosh.ValidationError
	for _, cause := range ve.Causes {
		out = append(out, leaves(cause)...)
	}
	return out
}

func (v *Validator) toViolations(ve *santhosh.ValidationError) []domain.Violation {
	keyword := lastSegment(ve.KeywordLocation)
	switch keyword {
	case errmap.KeywordRequired:
		var out []domain.Violation
		for _, m := range quotedName.FindAllStringSubmatch(ve.Message, -1) {
			out = append(out, domain.Violation{
				Path:    ve.InstanceLocation,
				Keyword: keyword,
				Params:  map[string]any{errmap.ParamMissingProperty: m[1]},
				Message: fmt.Sprintf("must have required property '%s'", m[1]),
			})
		}
		if len(out) > 0 {
			return out
		}
	case errmap.KeywordEnum:
		params := map[string]any{}
		if allowed, ok := resolvePointer(v.doc, ve.KeywordLocation).([]any); ok {
			params[errmap.ParamAllowedValues] = allowed
		}
		return []domain.Violation{{
			Path:    ve.InstanceLocation,
			Keyword: keyword,
			Params:  params,
			Message: ve.Message,
		}}
	}
	return []domain.Violation{{
		Path:    ve.InstanceLocation,
		Keyword: keyword,
		Params:  map[string]any{},
		Message: ve.Message,
	}}
}

func lastSegment(pointer string) string {
	if i := strings.LastIndex(pointer, "/"); i >= 0 {
		return pointer[i+1:]
	}
	return pointer
}

// resolvePointer walks a JSON pointer through a decoded document.
func resolvePointer(doc any, pointer string) any {
	if pointer == "" {
		return doc
	}
	cur := doc
	for _, seg := range strings.Split(strings.TrimPrefix(pointer, "/"), "/") {
		seg = strings.ReplaceAll(strings.ReplaceAll(seg, "~1", "/"), "~0", "~")
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[seg]
	}
	return cur
}
