package platform

import (
	"context"
	"fmt"
)

// Client is the outbound port for the X platform API. The publish and token
// endpoints are fixed third-party contracts; implementations must honor the
// wire shapes exactly.
type Client interface {
	// PublishText posts a tweet with an OAuth2 bearer token.
	PublishText(ctx context.Context, accessToken, text string) (*PublishResponse, error)
	// RefreshToken exchanges a refresh token using Basic client credentials.
	RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error)
	// ExchangeCode redeems a PKCE authorization code.
	ExchangeCode(ctx context.Context, code, codeVerifier string) (*TokenResponse, error)
	// UserInfo resolves the authenticated user's id and username.
	UserInfo(ctx context.Context, accessToken string) (*UserInfo, error)

	// Legacy OAuth1 token exchange. Responses are the platform's
	// query-string bodies parsed into maps (oauth_token,
	// oauth_token_secret, screen_name, user_id, ...).
	RequestToken(ctx context.Context, callbackURL string) (map[string]string, error)
	AccessToken(ctx context.Context, oauthToken, verifier, tokenSecret string) (map[string]string, error)
	AuthorizeURL(oauthToken string) string
}

// TokenResponse mirrors the /2/oauth2/token response body.
type TokenResponse struct {
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	AccessToken  string `json:"access_token"`
	Scope        string `json:"scope"`
	RefreshToken string `json:"refresh_token"`
}

// PublishResponse mirrors the /2/tweets response body.
type PublishResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

// UserInfo mirrors the /2/users/me response body.
type UserInfo struct {
	Data struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"data"`
}

// APIError is a non-2xx platform response with its body preserved for the
// post's failure record.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("platform API error (status %d): %s", e.StatusCode, e.Body)
}
