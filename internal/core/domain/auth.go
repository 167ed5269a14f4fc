package domain

import "time"

// APIKey grants one tenant access to its sessions. Only the SHA-256 hash of
// the token is stored.
type APIKey struct {
	TokenHash  string
	TenantID   string
	Name       string
	Active     bool
	CreatedAt  time.Time
	LastUsedAt *time.Time
	RevokedAt  *time.Time
}

// Actor is the name recorded on session events caused with this key.
func (k APIKey) Actor() string {
	if k.Name == "" {
		return "api"
	}
	return k.Name
}
