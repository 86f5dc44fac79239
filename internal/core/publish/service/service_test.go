package publishapp

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	postEntity "flux/internal/core/post"
	"flux/internal/core/socialaccount"
	"flux/internal/core/vault"
	platformPort "flux/internal/ports/platform"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memPostRepo mirrors the claim semantics of the database adapter: only
// due scheduled posts are claimable, each at most once.
type memPostRepo struct {
	mu    sync.Mutex
	posts map[uuid.UUID]*postEntity.Post
}

func newMemPostRepo() *memPostRepo {
	return &memPostRepo{posts: map[uuid.UUID]*postEntity.Post{}}
}

func (r *memPostRepo) Create(ctx context.Context, p *postEntity.Post) (*postEntity.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.posts[p.ID] = p
	return p, nil
}

func (r *memPostRepo) FindByID(ctx context.Context, id uuid.UUID) (*postEntity.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return nil, postEntity.ErrNotFound
	}
	return p, nil
}

func (r *memPostRepo) ClaimDue(ctx context.Context, batchSize int) ([]*postEntity.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	due := make([]*postEntity.Post, 0)
	for _, p := range r.posts {
		if p.Status == postEntity.StatusScheduled && !p.ScheduledAt.After(now) {
			due = append(due, p)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ScheduledAt.Before(due[j].ScheduledAt) })
	if len(due) > batchSize {
		due = due[:batchSize]
	}
	claimed := make([]*postEntity.Post, 0, len(due))
	for _, p := range due {
		p.Status = postEntity.StatusPublishing
		cp := *p
		claimed = append(claimed, &cp)
	}
	return claimed, nil
}

func (r *memPostRepo) MarkPublished(ctx context.Context, id uuid.UUID, publishedAt time.Time) (*postEntity.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return nil, postEntity.ErrNotFound
	}
	p.Status = postEntity.StatusPublished
	p.PublishedAt = &publishedAt
	p.ErrorMessage = nil
	return p, nil
}

func (r *memPostRepo) MarkFailed(ctx context.Context, id uuid.UUID, message string) (*postEntity.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return nil, postEntity.ErrNotFound
	}
	p.Status = postEntity.StatusFailed
	p.ErrorMessage = &message
	p.RetryCount++
	return p, nil
}

func (r *memPostRepo) FindPage(ctx context.Context, userID uuid.UUID, status *postEntity.Status, cursor *postEntity.Cursor, limit int) ([]*postEntity.Post, error) {
	return nil, nil
}

func (r *memPostRepo) get(id uuid.UUID) *postEntity.Post {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *r.posts[id]
	return &cp
}

type memAccountRepo struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*socialaccount.SocialAccount
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{accounts: map[uuid.UUID]*socialaccount.SocialAccount{}}
}

func (r *memAccountRepo) FindByUserIDAndPlatform(ctx context.Context, userID uuid.UUID, platform string) (*socialaccount.SocialAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[userID]
	if !ok {
		return nil, socialaccount.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *memAccountRepo) Create(ctx context.Context, a *socialaccount.SocialAccount) (*socialaccount.SocialAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[a.UserID] = a
	return a, nil
}

func (r *memAccountRepo) Update(ctx context.Context, a *socialaccount.SocialAccount) (*socialaccount.SocialAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	r.accounts[a.UserID] = &cp
	return a, nil
}

// fakePlatform records calls; publishErr makes PublishText fail, refreshErr
// makes RefreshToken fail.
type fakePlatform struct {
	mu            sync.Mutex
	publishErr    error
	refreshErr    error
	refreshed     []string
	publishTokens []string
	inFlight      int
	maxInFlight   int
	publishDelay  time.Duration
}

func (f *fakePlatform) PublishText(ctx context.Context, accessToken, text string) (*platformPort.PublishResponse, error) {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.publishTokens = append(f.publishTokens, accessToken)
	f.mu.Unlock()

	if f.publishDelay > 0 {
		time.Sleep(f.publishDelay)
	}

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()

	if f.publishErr != nil {
		return nil, f.publishErr
	}
	resp := &platformPort.PublishResponse{}
	resp.Data.ID = "1850000000000000000"
	resp.Data.Text = text
	return resp, nil
}

func (f *fakePlatform) RefreshToken(ctx context.Context, refreshToken string) (*platformPort.TokenResponse, error) {
	f.mu.Lock()
	f.refreshed = append(f.refreshed, refreshToken)
	f.mu.Unlock()
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return &platformPort.TokenResponse{
		TokenType:    "bearer",
		ExpiresIn:    7200,
		AccessToken:  "new-access-token",
		RefreshToken: "new-refresh-token",
		Scope:        "tweet.read tweet.write users.read offline.access",
	}, nil
}

func (f *fakePlatform) ExchangeCode(ctx context.Context, code, codeVerifier string) (*platformPort.TokenResponse, error) {
	return nil, errors.New("not implemented")
}

func (f *fakePlatform) UserInfo(ctx context.Context, accessToken string) (*platformPort.UserInfo, error) {
	return nil, errors.New("not implemented")
}

func (f *fakePlatform) RequestToken(ctx context.Context, callbackURL string) (map[string]string, error) {
	return nil, errors.New("not implemented")
}

func (f *fakePlatform) AccessToken(ctx context.Context, oauthToken, verifier, tokenSecret string) (map[string]string, error) {
	return nil, errors.New("not implemented")
}

func (f *fakePlatform) AuthorizeURL(oauthToken string) string { return "" }

func newTestVault(t *testing.T) *vault.Vault {
	t.Helper()
	v, err := vault.New([]byte("test-master-secret"))
	require.NoError(t, err)
	return v
}

func connectedAccount(t *testing.T, v *vault.Vault, userID uuid.UUID, expiresAt time.Time) *socialaccount.SocialAccount {
	t.Helper()
	blob, err := v.Encrypt(map[string]string{
		socialaccount.KeyAccessToken:  "valid-access-token",
		socialaccount.KeyRefreshToken: "valid-refresh-token",
		socialaccount.KeyAuthMethod:   socialaccount.AuthMethodOAuth2,
	})
	require.NoError(t, err)
	return &socialaccount.SocialAccount{
		ID:        uuid.Must(uuid.NewV4()),
		UserID:    userID,
		Platform:  "X",
		AuthData:  blob,
		ExpiresAt: expiresAt,
		IsActive:  true,
	}
}

func duePost(userID uuid.UUID) *postEntity.Post {
	return &postEntity.Post{
		ID:          uuid.Must(uuid.NewV4()),
		UserID:      userID,
		Platform:    "X",
		Content:     "hello world",
		ScheduledAt: time.Now().Add(-time.Minute),
		Status:      postEntity.StatusScheduled,
	}
}

func newService(accounts *memAccountRepo, posts *memPostRepo, client *fakePlatform, v *vault.Vault) *PublishService {
	return NewPublishService(accounts, posts, client, v, zap.NewNop())
}

func TestExecutePosting_Success(t *testing.T) {
	v := newTestVault(t)
	accounts := newMemAccountRepo()
	posts := newMemPostRepo()
	client := &fakePlatform{}

	userID := uuid.Must(uuid.NewV4())
	accounts.accounts[userID] = connectedAccount(t, v, userID, time.Now().Add(time.Hour))
	p := duePost(userID)
	posts.posts[p.ID] = p

	svc := newService(accounts, posts, client, v)
	require.NoError(t, svc.ExecutePosting(context.Background(), 10))

	got := posts.get(p.ID)
	assert.Equal(t, postEntity.StatusPublished, got.Status)
	require.NotNil(t, got.PublishedAt)
	assert.Nil(t, got.ErrorMessage)
	assert.Equal(t, 0, got.RetryCount)
	assert.Equal(t, []string{"valid-access-token"}, client.publishTokens)
}

func TestExecutePosting_PlatformFailureRecorded(t *testing.T) {
	v := newTestVault(t)
	accounts := newMemAccountRepo()
	posts := newMemPostRepo()
	client := &fakePlatform{publishErr: errors.New("rate limited")}

	userID := uuid.Must(uuid.NewV4())
	accounts.accounts[userID] = connectedAccount(t, v, userID, time.Now().Add(time.Hour))
	p := duePost(userID)
	posts.posts[p.ID] = p

	svc := newService(accounts, posts, client, v)
	require.NoError(t, svc.ExecutePosting(context.Background(), 10))

	got := posts.get(p.ID)
	assert.Equal(t, postEntity.StatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, "rate limited", *got.ErrorMessage)
	assert.Equal(t, 1, got.RetryCount)
	assert.Nil(t, got.PublishedAt)
}

func TestExecutePosting_MissingAccountFailsPost(t *testing.T) {
	v := newTestVault(t)
	accounts := newMemAccountRepo()
	posts := newMemPostRepo()
	client := &fakePlatform{}

	p := duePost(uuid.Must(uuid.NewV4()))
	posts.posts[p.ID] = p

	svc := newService(accounts, posts, client, v)
	require.NoError(t, svc.ExecutePosting(context.Background(), 10))

	got := posts.get(p.ID)
	assert.Equal(t, postEntity.StatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, socialaccount.ErrNotConnected.Error(), *got.ErrorMessage)
	assert.Empty(t, client.publishTokens, "no publish attempt without credentials")
}

func TestExecutePosting_FailureIsolation(t *testing.T) {
	v := newTestVault(t)
	accounts := newMemAccountRepo()
	posts := newMemPostRepo()
	client := &fakePlatform{}

	connected := uuid.Must(uuid.NewV4())
	accounts.accounts[connected] = connectedAccount(t, v, connected, time.Now().Add(time.Hour))
	good := duePost(connected)
	bad := duePost(uuid.Must(uuid.NewV4())) // no account
	posts.posts[good.ID] = good
	posts.posts[bad.ID] = bad

	svc := newService(accounts, posts, client, v)
	require.NoError(t, svc.ExecutePosting(context.Background(), 10))

	assert.Equal(t, postEntity.StatusPublished, posts.get(good.ID).Status)
	assert.Equal(t, postEntity.StatusFailed, posts.get(bad.ID).Status)
}

func TestResolveAndPublish_RefreshesExpiredToken(t *testing.T) {
	v := newTestVault(t)
	accounts := newMemAccountRepo()
	posts := newMemPostRepo()
	client := &fakePlatform{}

	userID := uuid.Must(uuid.NewV4())
	stale := connectedAccount(t, v, userID, time.Now().Add(-time.Hour))
	originalBlob := stale.AuthData
	accounts.accounts[userID] = stale

	svc := newService(accounts, posts, client, v)
	resp, err := svc.ResolveAndPublish(context.Background(), userID, "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Data.Text)

	assert.Equal(t, []string{"valid-refresh-token"}, client.refreshed)
	assert.Equal(t, []string{"new-access-token"}, client.publishTokens,
		"publish uses the refreshed token")

	saved := accounts.accounts[userID]
	assert.NotEqual(t, originalBlob, saved.AuthData, "token set re-encrypted on refresh")
	assert.True(t, saved.ExpiresAt.After(time.Now().Add(time.Hour)))
	assert.True(t, saved.IsActive)

	data, err := v.Decrypt(saved.AuthData)
	require.NoError(t, err)
	assert.Equal(t, "new-access-token", data[socialaccount.KeyAccessToken])
	assert.Equal(t, "new-refresh-token", data[socialaccount.KeyRefreshToken])
}

func TestResolveAndPublish_RefreshFailureLeavesRecordUntouched(t *testing.T) {
	v := newTestVault(t)
	accounts := newMemAccountRepo()
	posts := newMemPostRepo()
	client := &fakePlatform{refreshErr: errors.New("invalid_grant")}

	userID := uuid.Must(uuid.NewV4())
	stale := connectedAccount(t, v, userID, time.Now().Add(-time.Hour))
	originalBlob := stale.AuthData
	originalExpiry := stale.ExpiresAt
	accounts.accounts[userID] = stale

	svc := newService(accounts, posts, client, v)
	_, err := svc.ResolveAndPublish(context.Background(), userID, "hello")
	assert.ErrorIs(t, err, socialaccount.ErrRefreshFailed)
	assert.Empty(t, client.publishTokens)

	saved := accounts.accounts[userID]
	assert.Equal(t, originalBlob, saved.AuthData)
	assert.Equal(t, originalExpiry, saved.ExpiresAt)
}

func TestResolveAndPublish_FallbackExpiryWhenOmitted(t *testing.T) {
	v := newTestVault(t)
	accounts := newMemAccountRepo()
	posts := newMemPostRepo()
	client := &fakePlatform{}

	userID := uuid.Must(uuid.NewV4())
	accounts.accounts[userID] = connectedAccount(t, v, userID, time.Now().Add(-time.Hour))

	svc := newService(accounts, posts, client, v)
	// exercise expiryTime directly for the omission case
	cutoff := time.Now().Add(fallbackTokenLifetime - time.Minute)
	assert.True(t, expiryTime(0).After(cutoff))
	assert.True(t, expiryTime(-1).After(cutoff))

	_, err := svc.ResolveAndPublish(context.Background(), userID, "hello")
	require.NoError(t, err)
}

func TestResolveAndPublish_CorruptedBlob(t *testing.T) {
	v := newTestVault(t)
	accounts := newMemAccountRepo()
	posts := newMemPostRepo()
	client := &fakePlatform{}

	userID := uuid.Must(uuid.NewV4())
	account := connectedAccount(t, v, userID, time.Now().Add(time.Hour))
	account.AuthData = "not-a-valid-blob"
	accounts.accounts[userID] = account

	svc := newService(accounts, posts, client, v)
	_, err := svc.ResolveAndPublish(context.Background(), userID, "hello")
	assert.ErrorIs(t, err, vault.ErrDecryptFailed)
	assert.Empty(t, client.publishTokens)
}

func TestResolveAndPublish_InactiveAccount(t *testing.T) {
	v := newTestVault(t)
	accounts := newMemAccountRepo()
	client := &fakePlatform{}

	userID := uuid.Must(uuid.NewV4())
	account := connectedAccount(t, v, userID, time.Now().Add(time.Hour))
	account.IsActive = false
	accounts.accounts[userID] = account

	svc := newService(accounts, newMemPostRepo(), client, v)
	_, err := svc.ResolveAndPublish(context.Background(), userID, "hello")
	assert.ErrorIs(t, err, socialaccount.ErrNotConnected)
	assert.Empty(t, client.publishTokens, "deactivated credentials must never be used")
}

func TestResolveAndPublish_NotConnected(t *testing.T) {
	v := newTestVault(t)
	svc := newService(newMemAccountRepo(), newMemPostRepo(), &fakePlatform{}, v)

	_, err := svc.ResolveAndPublish(context.Background(), uuid.Must(uuid.NewV4()), "hello")
	assert.ErrorIs(t, err, socialaccount.ErrNotConnected)
}

func TestExecutePosting_BoundedConcurrency(t *testing.T) {
	v := newTestVault(t)
	accounts := newMemAccountRepo()
	posts := newMemPostRepo()
	client := &fakePlatform{publishDelay: 20 * time.Millisecond}

	userID := uuid.Must(uuid.NewV4())
	accounts.accounts[userID] = connectedAccount(t, v, userID, time.Now().Add(time.Hour))
	for i := 0; i < 8; i++ {
		p := duePost(userID)
		posts.posts[p.ID] = p
	}

	svc := newService(accounts, posts, client, v)
	require.NoError(t, svc.ExecutePosting(context.Background(), 8))

	assert.LessOrEqual(t, client.maxInFlight, publishConcurrency)
	assert.Len(t, client.publishTokens, 8)
}

func TestClaimDue_ConcurrentClaimersAreDisjoint(t *testing.T) {
	posts := newMemPostRepo()
	userID := uuid.Must(uuid.NewV4())
	for i := 0; i < 20; i++ {
		p := duePost(userID)
		posts.posts[p.ID] = p
	}

	var wg sync.WaitGroup
	results := make([][]*postEntity.Post, 2)
	claimErrs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], claimErrs[i] = posts.ClaimDue(context.Background(), 15)
		}(i)
	}
	wg.Wait()
	require.NoError(t, claimErrs[0])
	require.NoError(t, claimErrs[1])

	seen := map[uuid.UUID]bool{}
	total := 0
	for _, batch := range results {
		for _, p := range batch {
			assert.False(t, seen[p.ID], "post %s claimed twice", p.ID)
			seen[p.ID] = true
			total++
			assert.Equal(t, postEntity.StatusPublishing, p.Status)
		}
	}
	assert.Equal(t, 20, total, "the two claimers partition the due set")
}

func TestExecutePosting_EmptyBatch(t *testing.T) {
	v := newTestVault(t)
	svc := newService(newMemAccountRepo(), newMemPostRepo(), &fakePlatform{}, v)
	require.NoError(t, svc.ExecutePosting(context.Background(), 10))
}

func TestSafeMsg(t *testing.T) {
	assert.Equal(t, "boom", safeMsg(errors.New("boom")))
	assert.Equal(t, "*errors.errorString", safeMsg(errors.New("   ")))
}
