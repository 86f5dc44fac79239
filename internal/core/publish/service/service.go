package publishapp

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"flux/internal/core/socialaccount"
	"flux/internal/core/vault"
	platformPort "flux/internal/ports/platform"
	postPort "flux/internal/ports/post"
	accountPort "flux/internal/ports/socialaccount"

	"github.com/gofrs/uuid"
	"go.uber.org/zap"
)

const (
	platformX = "X"

	// publishConcurrency bounds the fan-out within one scheduler tick to
	// respect the platform's rate limits.
	publishConcurrency = 2

	// fallbackTokenLifetime applies when the token endpoint omits expires_in.
	fallbackTokenLifetime = 60 * 24 * time.Hour
)

// PublishService is the dispatcher: it resolves credentials (refreshing
// expired ones), calls the platform publish endpoint and applies the
// resulting post state transition.
type PublishService struct {
	AccountRepository accountPort.SocialAccountRepository
	PostRepository    postPort.PostRepository
	Platform          platformPort.Client
	Vault             *vault.Vault
	Logger            *zap.Logger
}

func NewPublishService(
	accountRepo accountPort.SocialAccountRepository,
	postRepo postPort.PostRepository,
	client platformPort.Client,
	v *vault.Vault,
	logger *zap.Logger,
) *PublishService {
	return &PublishService{
		AccountRepository: accountRepo,
		PostRepository:    postRepo,
		Platform:          client,
		Vault:             v,
		Logger:            logger,
	}
}

// ResolveAndPublish publishes text on behalf of userID: loads the credential
// record, refreshes it first when expired, decrypts the token and calls the
// publish endpoint. It is the synchronous entry point shared by the
// scheduler and the post-now request path.
func (s *PublishService) ResolveAndPublish(ctx context.Context, userID uuid.UUID, text string) (*platformPort.PublishResponse, error) {
	account, err := s.AccountRepository.FindByUserIDAndPlatform(ctx, userID, platformX)
	if err != nil {
		if errors.Is(err, socialaccount.ErrNotFound) {
			return nil, socialaccount.ErrNotConnected
		}
		return nil, err
	}
	if !account.IsActive {
		return nil, socialaccount.ErrNotConnected
	}

	if time.Now().After(account.ExpiresAt) {
		s.Logger.Info("Access token expired, refreshing",
			zap.String("userID", userID.String()))
		account, err = s.refreshAccount(ctx, account)
		if err != nil {
			return nil, err
		}
	}

	accessToken, err := s.decryptToken(account, socialaccount.KeyAccessToken)
	if err != nil {
		return nil, err
	}

	return s.Platform.PublishText(ctx, accessToken, text)
}

// refreshAccount exchanges the stored refresh token and saves the
// re-encrypted token set. All-or-nothing: any failure leaves the stored
// record exactly as it was. Refreshes for the same account are not
// serialized; two in-flight publishes may both refresh and the last save
// wins.
func (s *PublishService) refreshAccount(ctx context.Context, account *socialaccount.SocialAccount) (*socialaccount.SocialAccount, error) {
	refreshToken, err := s.decryptToken(account, socialaccount.KeyRefreshToken)
	if err != nil {
		return nil, err
	}

	resp, err := s.Platform.RefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", socialaccount.ErrRefreshFailed, err)
	}

	authData := map[string]string{
		socialaccount.KeyAccessToken: resp.AccessToken,
		socialaccount.KeyAuthMethod:  socialaccount.AuthMethodOAuth2,
	}
	if resp.RefreshToken != "" {
		authData[socialaccount.KeyRefreshToken] = resp.RefreshToken
	}
	if resp.Scope != "" {
		authData[socialaccount.KeyScope] = resp.Scope
	}
	if resp.ExpiresIn > 0 {
		authData["expires_in"] = strconv.FormatInt(resp.ExpiresIn, 10)
	}

	encrypted, err := s.Vault.Encrypt(authData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", socialaccount.ErrRefreshFailed, err)
	}

	account.AuthData = encrypted
	account.ExpiresAt = expiryTime(resp.ExpiresIn)
	account.IsActive = true

	updated, err := s.AccountRepository.Update(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", socialaccount.ErrRefreshFailed, err)
	}
	s.Logger.Info("✅ Refreshed access token",
		zap.String("accountID", account.ID.String()))
	return updated, nil
}

// decryptToken opens the account's auth blob and pulls one field. The
// plaintext never leaves this call. A decryption failure means the
// ciphertext is corrupted or the key rotated; it is surfaced as-is so it is
// never mistaken for a transient publish failure.
func (s *PublishService) decryptToken(account *socialaccount.SocialAccount, key string) (string, error) {
	data, err := s.Vault.Decrypt(account.AuthData)
	if err != nil {
		s.Logger.Error("❌ Failed to decrypt auth data, blob may be corrupted",
			zap.String("accountID", account.ID.String()),
			zap.Error(err))
		return "", err
	}
	token, ok := data[key]
	if !ok || token == "" {
		return "", fmt.Errorf("%w: %q missing from decrypted auth data", vault.ErrDecryptFailed, key)
	}
	return token, nil
}

// ExecutePosting claims a batch of due posts and publishes them with a
// bounded fan-out. Failures are isolated per post: each one is recorded on
// its own row and never aborts the rest of the batch.
func (s *PublishService) ExecutePosting(ctx context.Context, batchSize int) error {
	claimed, err := s.PostRepository.ClaimDue(ctx, batchSize)
	if err != nil {
		return fmt.Errorf("failed to claim due posts: %w", err)
	}
	if len(claimed) == 0 {
		return nil
	}
	s.Logger.Info("Claimed due posts", zap.Int("count", len(claimed)))

	sem := make(chan struct{}, publishConcurrency)
	var wg sync.WaitGroup
	for _, p := range claimed {
		wg.Add(1)
		sem <- struct{}{}
		go func(id, userID uuid.UUID, content string) {
			defer wg.Done()
			defer func() { <-sem }()
			s.publishOne(ctx, id, userID, content)
		}(p.ID, p.UserID, p.Content)
	}
	wg.Wait()
	return nil
}

func (s *PublishService) publishOne(ctx context.Context, id, userID uuid.UUID, content string) {
	resp, err := s.ResolveAndPublish(ctx, userID, content)
	if err != nil {
		s.Logger.Warn("❌ Publish failed",
			zap.String("postID", id.String()),
			zap.Error(err))
		if _, markErr := s.PostRepository.MarkFailed(ctx, id, safeMsg(err)); markErr != nil {
			s.Logger.Error("Could not mark post failed",
				zap.String("postID", id.String()),
				zap.Error(markErr))
		}
		return
	}

	if _, err := s.PostRepository.MarkPublished(ctx, id, time.Now().UTC()); err != nil {
		s.Logger.Error("Could not mark post published",
			zap.String("postID", id.String()),
			zap.Error(err))
		return
	}
	s.Logger.Info("✅ Post published",
		zap.String("postID", id.String()),
		zap.String("tweetID", resp.Data.ID))
}

// safeMsg guarantees a non-empty human-readable failure message, falling
// back to the error's type name.
func safeMsg(err error) string {
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		return fmt.Sprintf("%T", err)
	}
	return msg
}

func expiryTime(expiresIn int64) time.Time {
	if expiresIn <= 0 {
		return time.Now().Add(fallbackTokenLifetime)
	}
	return time.Now().Add(time.Duration(expiresIn) * time.Second)
}
