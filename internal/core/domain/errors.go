package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidKey     = errors.New("invalid key")
	ErrInvalidSession = errors.New("invalid session")
	ErrConflict       = errors.New("version conflict")
	ErrInvalidFilter  = errors.New("invalid filter")
)

// BaseKey is the error key used for problems that belong to the whole input.
const BaseKey = "base"

// ErrSchemaViolation is returned at the API boundary when an entity schema
// failed validation. Errors holds the mapped key/message pairs.
type ErrSchemaViolation struct {
	Errors Errors
}

func (e *ErrSchemaViolation) Error() string {
	return fmt.Sprintf("schema validation failed: %s", strings.Join(e.Errors.Messages(), "; "))
}

// Errors is an insertion-ordered key → message map. Values are immutable:
// every mutating method returns a new Errors. Setting an existing key keeps
// its original position.
type Errors struct {
	keys   []string
	values map[string]string
}

// NewErrors builds Errors from alternating key, message pairs. A trailing
// key without message is ignored.
func NewErrors(pairs ...string) Errors {
	var e Errors
	for i := 0; i+1 < len(pairs); i += 2 {
		e = e.With(pairs[i], pairs[i+1])
	}
	return e
}

// ErrorsFromMap copies m. Go maps carry no order, so keys are sorted.
func ErrorsFromMap(m map[string]string) Errors {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var e Errors
	for _, k := range keys {
		e = e.With(k, m[k])
	}
	return e
}

func (e Errors) With(key, message string) Errors {
	out := e.clone()
	if _, ok := out.values[key]; !ok {
		out.keys = append(out.keys, key)
	}
	out.values[key] = message
	return out
}

// Merge returns e with every entry of other applied on top; other wins on
// conflicting keys.
func (e Errors) Merge(other Errors) Errors {
	if other.Len() == 0 {
		return e.clone()
	}
	out := e.clone()
	for _, k := range other.keys {
		if _, ok := out.values[k]; !ok {
			out.keys = append(out.keys, k)
		}
		out.values[k] = other.values[k]
	}
	return out
}

func (e Errors) Get(key string) string {
	return e.values[key]
}

func (e Errors) Has(key string) bool {
	_, ok := e.values[key]
	return ok
}

func (e Errors) Len() int {
	return len(e.keys)
}

func (e Errors) Empty() bool {
	return len(e.keys) == 0
}

func (e Errors) Keys() []string {
	out := make([]string, len(e.keys))
	copy(out, e.keys)
	return out
}

// Map returns an unordered copy.
func (e Errors) Map() map[string]string {
	out := make(map[string]string, len(e.keys))
	for k, v := range e.values {
		out[k] = v
	}
	return out
}

// Messages renders every entry as "key: message" in insertion order.
func (e Errors) Messages() []string {
	out := make([]string, 0, len(e.keys))
	for _, k := range e.keys {
		out = append(out, k+": "+e.values[k])
	}
	return out
}

// Equal compares entries and their order.
func (e Errors) Equal(other Errors) bool {
	if len(e.keys) != len(other.keys) {
		return false
	}
	for i, k := range e.keys {
		if other.keys[i] != k || other.values[k] != e.values[k] {
			return false
		}
	}
	return true
}

func (e Errors) String() string {
	return strings.Join(e.Messages(), ", ")
}

func (e Errors) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range e.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(e.values[k])
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

func (e *Errors) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		*e = Errors{}
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("errors must be a json object")
	}
	var out Errors
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected error key %v", tok)
		}
		var msg string
		if err := dec.Decode(&msg); err != nil {
			return fmt.Errorf("error %s: %w", key, err)
		}
		out = out.With(key, msg)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*e = out
	return nil
}

func (e Errors) clone() Errors {
	out := Errors{
		keys:   make([]string, len(e.keys), len(e.keys)+1),
		values: make(map[string]string, len(e.keys)+1),
	}
	copy(out.keys, e.keys)
	for k, v := range e.values {
		out.values[k] = v
	}
	return out
}
