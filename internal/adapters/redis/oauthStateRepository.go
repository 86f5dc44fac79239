package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"flux/internal/ports/oauthstate"

	"github.com/go-redis/redis/v8"
)

// OAuthStateRepositoryRedis keeps short-lived OAuth flow state in Redis.
// TTL handles expiry and GETDEL makes every entry consumable exactly once.
type OAuthStateRepositoryRedis struct {
	Client *redis.Client
}

func NewOAuthStateRepositoryRedis(client *redis.Client) *OAuthStateRepositoryRedis {
	return &OAuthStateRepositoryRedis{Client: client}
}

func (r *OAuthStateRepositoryRedis) SaveAuthRequest(ctx context.Context, state string, req *oauthstate.AuthRequest, ttl time.Duration) error {
	raw, err := json.Marshal(req)
	if err != nil {
		return err
	}
	return r.Client.Set(ctx, "oauth2state:"+state, raw, ttl).Err()
}

func (r *OAuthStateRepositoryRedis) ConsumeAuthRequest(ctx context.Context, state string) (*oauthstate.AuthRequest, error) {
	raw, err := r.Client.GetDel(ctx, "oauth2state:"+state).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, oauthstate.ErrStateNotFound
		}
		return nil, err
	}
	var req oauthstate.AuthRequest
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		return nil, err
	}
	return &req, nil
}

type requestSecret struct {
	Secret string `json:"secret"`
	UserID string `json:"user_id"`
}

func (r *OAuthStateRepositoryRedis) SaveRequestSecret(ctx context.Context, oauthToken, secret, userID string, ttl time.Duration) error {
	raw, err := json.Marshal(requestSecret{Secret: secret, UserID: userID})
	if err != nil {
		return err
	}
	return r.Client.Set(ctx, "oauth1secret:"+oauthToken, raw, ttl).Err()
}

func (r *OAuthStateRepositoryRedis) ConsumeRequestSecret(ctx context.Context, oauthToken string) (string, string, error) {
	raw, err := r.Client.GetDel(ctx, "oauth1secret:"+oauthToken).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", "", oauthstate.ErrStateNotFound
		}
		return "", "", err
	}
	var rs requestSecret
	if err := json.Unmarshal([]byte(raw), &rs); err != nil {
		return "", "", err
	}
	return rs.Secret, rs.UserID, nil
}
