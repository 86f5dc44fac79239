package accountapp

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"flux/internal/core/socialaccount"
	"flux/internal/core/vault"
	"flux/internal/ports/oauthstate"
	platformPort "flux/internal/ports/platform"
	accountPort "flux/internal/ports/socialaccount"

	"github.com/gofrs/uuid"
	"go.uber.org/zap"
)

const (
	platformX = "X"

	authorizeBaseURL = "https://x.com/i/oauth2/authorize"
	oauth2Scope      = "tweet.write tweet.read users.read offline.access"

	codeVerifierLength = 64

	// stateTTL bounds how long an authorization round-trip may take.
	stateTTL = 10 * time.Minute

	fallbackTokenLifetime = 60 * 24 * time.Hour

	// oauth1Lifetime: OAuth1 access tokens do not expire; the stored
	// expiry is pushed far out so the publish path never tries to refresh
	// them.
	oauth1Lifetime = 10 * 365 * 24 * time.Hour
)

// AccountService runs the connect flows that create credential records:
// the PKCE OAuth2 flow and the legacy OAuth1 token exchange.
type AccountService struct {
	AccountRepository accountPort.SocialAccountRepository
	Platform          platformPort.Client
	Vault             *vault.Vault
	States            oauthstate.Store
	Logger            *zap.Logger

	ClientID    string
	RedirectURI string
}

func NewAccountService(
	accountRepo accountPort.SocialAccountRepository,
	client platformPort.Client,
	v *vault.Vault,
	states oauthstate.Store,
	logger *zap.Logger,
	clientID, redirectURI string,
) *AccountService {
	return &AccountService{
		AccountRepository: accountRepo,
		Platform:          client,
		Vault:             v,
		States:            states,
		Logger:            logger,
		ClientID:          clientID,
		RedirectURI:       redirectURI,
	}
}

// BeginConnect starts the PKCE flow: generates verifier, challenge and
// state, parks them in the state store and returns the authorize URL the
// user should be redirected to.
func (s *AccountService) BeginConnect(ctx context.Context, userID uuid.UUID) (string, error) {
	verifier, err := socialaccount.GenerateCodeVerifier(codeVerifierLength)
	if err != nil {
		return "", err
	}
	state, err := socialaccount.GenerateState()
	if err != nil {
		return "", err
	}

	req := &oauthstate.AuthRequest{
		UserID:       userID.String(),
		CodeVerifier: verifier,
	}
	if err := s.States.SaveAuthRequest(ctx, state, req, stateTTL); err != nil {
		return "", fmt.Errorf("failed to save authorization request: %w", err)
	}

	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", s.ClientID)
	q.Set("redirect_uri", s.RedirectURI)
	q.Set("scope", oauth2Scope)
	q.Set("state", state)
	q.Set("code_challenge", socialaccount.CodeChallenge(verifier))
	q.Set("code_challenge_method", "S256")

	s.Logger.Info("Built authorization URL", zap.String("userID", userID.String()))
	return authorizeBaseURL + "?" + q.Encode(), nil
}

// CompleteConnect handles the OAuth2 callback: consumes the state (once),
// exchanges the code, resolves the platform identity and stores the
// encrypted token set.
func (s *AccountService) CompleteConnect(ctx context.Context, state, code string) (*accountPort.SocialAccountDTO, error) {
	req, err := s.States.ConsumeAuthRequest(ctx, state)
	if err != nil {
		return nil, err
	}
	userID, err := uuid.FromString(req.UserID)
	if err != nil {
		return nil, fmt.Errorf("corrupt authorization request: %w", err)
	}

	token, err := s.Platform.ExchangeCode(ctx, code, req.CodeVerifier)
	if err != nil {
		return nil, fmt.Errorf("code exchange failed: %w", err)
	}

	info, err := s.Platform.UserInfo(ctx, token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}

	authData := map[string]string{
		socialaccount.KeyAccessToken: token.AccessToken,
		socialaccount.KeyAuthMethod:  socialaccount.AuthMethodOAuth2,
	}
	if token.RefreshToken != "" {
		authData[socialaccount.KeyRefreshToken] = token.RefreshToken
	}
	if token.Scope != "" {
		authData[socialaccount.KeyScope] = token.Scope
	}
	if token.ExpiresIn > 0 {
		authData["expires_in"] = strconv.FormatInt(token.ExpiresIn, 10)
	}

	expiresAt := time.Now().Add(fallbackTokenLifetime)
	if token.ExpiresIn > 0 {
		expiresAt = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	}

	return s.saveCredentials(ctx, userID, info.Data.ID, info.Data.Username, authData, expiresAt)
}

// BeginLegacyConnect starts the OAuth1 flow: obtains a request token,
// parks its secret keyed by the token and returns the authorize URL.
func (s *AccountService) BeginLegacyConnect(ctx context.Context, userID uuid.UUID, callbackURL string) (string, error) {
	resp, err := s.Platform.RequestToken(ctx, callbackURL)
	if err != nil {
		return "", fmt.Errorf("request token failed: %w", err)
	}
	oauthToken := resp["oauth_token"]
	tokenSecret := resp["oauth_token_secret"]
	if oauthToken == "" || tokenSecret == "" {
		return "", fmt.Errorf("request token response missing oauth_token fields")
	}

	if err := s.States.SaveRequestSecret(ctx, oauthToken, tokenSecret, userID.String(), stateTTL); err != nil {
		return "", fmt.Errorf("failed to save request token secret: %w", err)
	}
	return s.Platform.AuthorizeURL(oauthToken), nil
}

// CompleteLegacyConnect handles the OAuth1 callback: redeems the request
// token + verifier for an access token pair and stores it encrypted.
func (s *AccountService) CompleteLegacyConnect(ctx context.Context, oauthToken, verifier string) (*accountPort.SocialAccountDTO, error) {
	tokenSecret, userIDStr, err := s.States.ConsumeRequestSecret(ctx, oauthToken)
	if err != nil {
		return nil, err
	}
	userID, err := uuid.FromString(userIDStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt request token record: %w", err)
	}

	resp, err := s.Platform.AccessToken(ctx, oauthToken, verifier, tokenSecret)
	if err != nil {
		return nil, fmt.Errorf("access token exchange failed: %w", err)
	}
	accessToken := resp["oauth_token"]
	accessSecret := resp["oauth_token_secret"]
	if accessToken == "" || accessSecret == "" {
		return nil, fmt.Errorf("access token response missing oauth_token fields")
	}

	authData := map[string]string{
		socialaccount.KeyAccessToken:       accessToken,
		socialaccount.KeyAccessTokenSecret: accessSecret,
		socialaccount.KeyAuthMethod:        socialaccount.AuthMethodOAuth1,
	}

	return s.saveCredentials(ctx, userID, resp["user_id"], resp["screen_name"], authData, time.Now().Add(oauth1Lifetime))
}

// saveCredentials encrypts the auth data and upserts the (user, platform)
// credential record.
func (s *AccountService) saveCredentials(ctx context.Context, userID uuid.UUID, platformUserID, username string, authData map[string]string, expiresAt time.Time) (*accountPort.SocialAccountDTO, error) {
	encrypted, err := s.Vault.Encrypt(authData)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt auth data: %w", err)
	}

	account, err := s.AccountRepository.FindByUserIDAndPlatform(ctx, userID, platformX)
	switch {
	case err == nil:
		account.PlatformUserID = platformUserID
		account.Username = username
		account.AuthData = encrypted
		account.ExpiresAt = expiresAt
		account.IsActive = true
		account, err = s.AccountRepository.Update(ctx, account)
	case errors.Is(err, socialaccount.ErrNotFound):
		now := time.Now().UTC()
		account = &socialaccount.SocialAccount{
			ID:             uuid.Must(uuid.NewV4()),
			UserID:         userID,
			Platform:       platformX,
			PlatformUserID: platformUserID,
			Username:       username,
			AuthData:       encrypted,
			ExpiresAt:      expiresAt,
			IsActive:       true,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		account, err = s.AccountRepository.Create(ctx, account)
	default:
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save social account: %w", err)
	}

	s.Logger.Info("✅ Social account connected",
		zap.String("userID", userID.String()),
		zap.String("username", username))

	return &accountPort.SocialAccountDTO{
		ID:             account.ID.String(),
		Platform:       account.Platform,
		PlatformUserID: account.PlatformUserID,
		Username:       account.Username,
		ExpiresAt:      account.ExpiresAt.UTC().Format(time.RFC3339),
		IsActive:       account.IsActive,
	}, nil
}
