package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
)

// Strategy is the primary key generation strategy of an entity.
type Strategy string

const (
	StrategyUUID      Strategy = "uuid"
	StrategyIncrement Strategy = "increment"
)

func (s Strategy) Valid() bool {
	return s == StrategyUUID || s == StrategyIncrement
}

var fieldNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// ValidFieldName reports whether name may be used as a property name.
func ValidFieldName(name string) bool {
	return fieldNamePattern.MatchString(name)
}

// EntitySchema is the declarative description of one entity to generate.
type EntitySchema struct {
	EntityName string       `json:"entityName"`
	TableName  string       `json:"tableName"`
	PrimaryKey PrimaryKey   `json:"primaryKey"`
	Properties PropertyList `json:"properties"`
}

type PrimaryKey struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Strategy Strategy `json:"strategy"`
}

type Property struct {
	Name     string `json:"-"`
	Type     string `json:"type"`
	Nullable *bool  `json:"nullable,omitempty"`
	Length   *int   `json:"length,omitempty"`
}

// PropertyFieldError reports a property attribute that is well-formed JSON
// but cannot be represented, such as a length beyond 32 bits.
type PropertyFieldError struct {
	Property string
	Field    string
	Err      error
}

func (e *PropertyFieldError) Error() string {
	return fmt.Sprintf("property %s: %s: %v", e.Property, e.Field, e.Err)
}

func (e *PropertyFieldError) Unwrap() error {
	return e.Err
}

// Violation reports e against its JSON pointer.
func (e *PropertyFieldError) Violation() Violation {
	return Violation{
		Path:    "/properties/" + e.Property + "/" + e.Field,
		Keyword: "type",
		Params:  map[string]any{},
		Message: e.Err.Error(),
	}
}

// UnmarshalJSON accepts any integral length, including forms such as 255.0
// and 1e3.
func (p *Property) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type     string          `json:"type"`
		Nullable *bool           `json:"nullable"`
		Length   json.RawMessage `json:"length"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.Type = raw.Type
	p.Nullable = raw.Nullable
	p.Length = nil

	if len(raw.Length) == 0 || string(raw.Length) == "null" {
		return nil
	}
	n, err := parseLength(raw.Length)
	if err != nil {
		return &PropertyFieldError{Field: "length", Err: err}
	}
	p.Length = &n
	return nil
}

func parseLength(raw json.RawMessage) (int, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, err
	}
	num, ok := v.(json.Number)
	if !ok {
		return 0, errors.New("must be an integer")
	}
	if i, err := num.Int64(); err == nil {
		if i < math.MinInt32 || i > math.MaxInt32 {
			return 0, errors.New("must fit in 32 bits")
		}
		return int(i), nil
	}
	f, err := num.Float64()
	if err != nil {
		return 0, errors.New("must fit in 32 bits")
	}
	if f != math.Trunc(f) {
		return 0, errors.New("must be an integer")
	}
	if f < math.MinInt32 || f > math.MaxInt32 {
		return 0, errors.New("must fit in 32 bits")
	}
	return int(f), nil
}

// IsNullable treats an omitted nullable flag as false.
func (p Property) IsNullable() bool {
	return p.Nullable != nil && *p.Nullable
}

// PropertyList keeps properties in declaration order. It is encoded as a JSON
// object keyed by property name.
type PropertyList []Property

// Lookup returns the property named name.
func (l PropertyList) Lookup(name string) (Property, bool) {
	for _, p := range l {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

func (l PropertyList) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range l {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(p.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(p)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (l *PropertyList) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		*l = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("properties must be a json object")
	}

	out := make(PropertyList, 0)
	seen := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected property key %v", tok)
		}
		var p Property
		if err := dec.Decode(&p); err != nil {
			var fe *PropertyFieldError
			if errors.As(err, &fe) {
				fe.Property = name
				return fe
			}
			return fmt.Errorf("property %s: %w", name, err)
		}
		p.Name = name
		// duplicate keys keep the first position and the last value
		if idx, dup := seen[name]; dup {
			out[idx] = p
			continue
		}
		seen[name] = len(out)
		out = append(out, p)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*l = out
	return nil
}

// Check verifies the structural invariants of a decoded schema. The JSON
// Schema document enforces the same rules; Check guards values that were
// built in code rather than decoded.
func (s EntitySchema) Check() error {
	switch {
	case s.EntityName == "":
		return errors.New("entityName must not be empty")
	case s.TableName == "":
		return errors.New("tableName must not be empty")
	case !s.PrimaryKey.Strategy.Valid():
		return fmt.Errorf("unknown primary key strategy %q", s.PrimaryKey.Strategy)
	case len(s.Properties) == 0:
		return errors.New("properties must not be empty")
	}
	for _, p := range s.Properties {
		if !ValidFieldName(p.Name) {
			return fmt.Errorf("invalid property name %q", p.Name)
		}
	}
	return nil
}
