package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/atvirokodosprendimai/entitygen/internal/core/domain"
	"github.com/atvirokodosprendimai/entitygen/internal/core/ports"
)

var ErrUnauthorized = errors.New("unauthorized")

type AuthService struct {
	repo ports.APIKeyRepository
	now  func() time.Time
}

func NewAuthService(repo ports.APIKeyRepository) *AuthService {
	return &AuthService{repo: repo, now: time.Now}
}

// Authenticate resolves token to an active key and records its use. A failed
// usage update is logged and does not reject the request.
func (s *AuthService) Authenticate(ctx context.Context, token string) (domain.APIKey, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.APIKey{}, ErrUnauthorized
	}

	apiKey, err := s.repo.FindByTokenHash(ctx, HashToken(token))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.APIKey{}, ErrUnauthorized
		}
		return domain.APIKey{}, err
	}
	if !apiKey.Active {
		return domain.APIKey{}, ErrUnauthorized
	}

	now := s.now().UTC()
	if err := s.repo.TouchLastUsed(ctx, apiKey.TokenHash, now); err != nil {
		log.Printf("record api key use tenant=%s name=%s: %v", apiKey.TenantID, apiKey.Name, err)
	} else {
		apiKey.LastUsedAt = &now
	}
	return apiKey, nil
}

// Register stores an active key for tenantID. Only the token hash is kept.
func (s *AuthService) Register(ctx context.Context, token, tenantID, name string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrUnauthorized
	}
	if err := domain.ValidateKey(tenantID); err != nil {
		return err
	}
	return s.repo.Upsert(ctx, domain.APIKey{
		TokenHash: HashToken(token),
		TenantID:  tenantID,
		Name:      name,
		Active:    true,
		CreatedAt: s.now().UTC(),
	})
}

// Revoke deactivates the key for token. Unknown tokens return
// domain.ErrNotFound.
func (s *AuthService) Revoke(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.ErrNotFound
	}
	return s.repo.Revoke(ctx, HashToken(token), s.now().UTC())
}

// Keys lists the keys of tenantID, oldest first.
func (s *AuthService) Keys(ctx context.Context, tenantID string) ([]domain.APIKey, error) {
	if err := domain.ValidateKey(tenantID); err != nil {
		return nil, err
	}
	return s.repo.ListByTenant(ctx, tenantID)
}

func HashToken(token string) string {
	digest := sha256.Sum256([]byte(token))
	return hex.EncodeToString(digest[:])
}
