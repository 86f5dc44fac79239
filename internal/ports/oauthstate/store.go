package oauthstate

import (
	"context"
	"errors"
	"time"
)

// ErrStateNotFound covers expired, already-consumed and never-issued state.
var ErrStateNotFound = errors.New("oauth state not found or expired")

// AuthRequest is a pending PKCE authorization request, keyed by its state
// parameter until the callback consumes it.
type AuthRequest struct {
	UserID       string `json:"user_id"`
	CodeVerifier string `json:"code_verifier"`
}

// Store keeps short-lived OAuth flow state. Entries expire on their own and
// every read consumes the entry, so a state or request token can be redeemed
// at most once.
type Store interface {
	SaveAuthRequest(ctx context.Context, state string, req *AuthRequest, ttl time.Duration) error
	ConsumeAuthRequest(ctx context.Context, state string) (*AuthRequest, error)

	// Request-token secrets for the legacy OAuth1 flow, keyed by oauth_token.
	SaveRequestSecret(ctx context.Context, oauthToken, secret, userID string, ttl time.Duration) error
	ConsumeRequestSecret(ctx context.Context, oauthToken string) (secret, userID string, err error)
}
