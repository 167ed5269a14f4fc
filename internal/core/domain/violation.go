package domain

// Violation is one structural mismatch reported by a structural validator.
// Path is a JSON pointer into the validated value ("" for the root).
type Violation struct {
	Path    string         `json:"path"`
	Keyword string         `json:"keyword"`
	Params  map[string]any `json:"params,omitempty"`
	Message string         `json:"message"`
}

// MappedError is the caller facing form of a Violation.
type MappedError struct {
	Key     string `json:"key"`
	Message string `json:"message"`
}

// BaseViolation builds a violation that belongs to the whole input.
func BaseViolation(message string) Violation {
	return Violation{Path: "", Keyword: BaseKey, Params: map[string]any{}, Message: message}
}
