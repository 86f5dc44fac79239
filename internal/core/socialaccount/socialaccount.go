package socialaccount

import (
	"time"

	"github.com/gofrs/uuid"
)

// Keys of the decrypted auth-data map. The encrypted blob is the only
// at-rest representation; the plaintext map lives in memory only for the
// duration of a publish or refresh call and is never logged.
const (
	KeyAccessToken       = "access_token"
	KeyAccessTokenSecret = "access_token_secret"
	KeyRefreshToken      = "refresh_token"
	KeyScope             = "scope"
	KeyAuthMethod        = "auth_method"

	AuthMethodOAuth1 = "oauth1"
	AuthMethodOAuth2 = "oauth2"
)

// SocialAccount holds one platform connection per (user, platform) pair.
// AuthData is ciphertext produced by the credential vault.
type SocialAccount struct {
	ID             uuid.UUID `gorm:"primary_key;type:char(36)"`
	UserID         uuid.UUID `gorm:"type:char(36);not null;index:idx_accounts_user_platform,unique"`
	Platform       string    `gorm:"type:varchar(32);not null;index:idx_accounts_user_platform,unique"`
	PlatformUserID string    `gorm:"type:varchar(64)"`
	Username       string    `gorm:"type:varchar(64)"`
	AuthData       string    `gorm:"type:text;not null"`
	ExpiresAt      time.Time
	IsActive       bool `gorm:"not null;default:true"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
