package socialaccount

import (
	"context"

	"flux/internal/core/socialaccount"

	"github.com/gofrs/uuid"
)

// SocialAccountRepository is the outbound port for credential records.
type SocialAccountRepository interface {
	// FindByUserIDAndPlatform returns nil, socialaccount.ErrNotFound when
	// the user has no connection for the platform.
	FindByUserIDAndPlatform(ctx context.Context, userID uuid.UUID, platform string) (*socialaccount.SocialAccount, error)
	Create(ctx context.Context, account *socialaccount.SocialAccount) (*socialaccount.SocialAccount, error)
	// Update persists the full record; refresh flows re-encrypt AuthData and
	// advance ExpiresAt in one save.
	Update(ctx context.Context, account *socialaccount.SocialAccount) (*socialaccount.SocialAccount, error)
}

type SocialAccountDTO struct {
	ID             string `json:"id"`
	Platform       string `json:"platform"`
	PlatformUserID string `json:"platform_user_id"`
	Username       string `json:"username"`
	ExpiresAt      string `json:"expires_at"`
	IsActive       bool   `json:"is_active"`
}
