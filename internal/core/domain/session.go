package domain

import (
	"regexp"
	"time"
)

var keyPattern = regexp.MustCompile(`^[a-zA-Z0-9._:/-]+$`)

// ValidateKey checks tenant ids, session ids and other opaque identifiers.
func ValidateKey(key string) error {
	if key == "" || !keyPattern.MatchString(key) {
		return ErrInvalidKey
	}
	return nil
}

// SessionState is the persisted form of an editing session's application
// context. It carries exactly the externally visible context state.
type SessionState struct {
	Input    map[string]any `json:"input"`
	Params   map[string]any `json:"params"`
	Data     *EntitySchema  `json:"data"`
	Resource *ViewModel     `json:"resource"`
	Errors   Errors         `json:"errors"`
	Messages []string       `json:"messages"`
}

// Session is one long-lived editing session: repeated validation attempts of
// the same entity definition accumulate into State. InitialInput is the
// input the session was created with; reset restores it.
type Session struct {
	ID           string
	TenantID     string
	Status       string
	Version      int64
	InitialInput map[string]any
	State        SessionState
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (s Session) Validate() error {
	if err := ValidateKey(s.TenantID); err != nil {
		return err
	}
	if err := ValidateKey(s.ID); err != nil {
		return ErrInvalidSession
	}
	return nil
}
