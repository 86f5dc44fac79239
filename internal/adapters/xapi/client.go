package xapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"flux/internal/config"
	"flux/internal/core/oauth1"
	"flux/internal/ports/platform"

	"go.uber.org/zap"
)

const defaultBaseURL = "https://api.twitter.com"

// Client talks to the X API: tweet publishing, OAuth2 token grants and the
// legacy OAuth1 token exchange.
type Client struct {
	// BaseURL and OAuth1BaseURL are overridable for tests.
	BaseURL       string
	OAuth1BaseURL string

	httpClient   *http.Client
	clientID     string
	clientSecret string
	redirectURI  string
	signer       *oauth1.Signer
}

func NewClient(clientID, clientSecret, redirectURI, consumerKey, consumerSecret string) *Client {
	return &Client{
		BaseURL:       defaultBaseURL,
		OAuth1BaseURL: defaultBaseURL,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		clientID:      clientID,
		clientSecret:  clientSecret,
		redirectURI:   redirectURI,
		signer:        oauth1.NewSigner(consumerKey, consumerSecret),
	}
}

func (c *Client) PublishText(ctx context.Context, accessToken, text string) (*platform.PublishResponse, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/2/tweets", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	var resp platform.PublishResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	config.Logger.Info("✅ Posted tweet", zap.String("tweetID", resp.Data.ID))
	return &resp, nil
}

func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*platform.TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	return c.tokenRequest(ctx, form)
}

func (c *Client) ExchangeCode(ctx context.Context, code, codeVerifier string) (*platform.TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", c.clientID)
	form.Set("redirect_uri", c.redirectURI)
	form.Set("code_verifier", codeVerifier)
	return c.tokenRequest(ctx, form)
}

func (c *Client) tokenRequest(ctx context.Context, form url.Values) (*platform.TokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/2/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Basic "+c.basicCredentials())

	var resp platform.TokenResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) UserInfo(ctx context.Context, accessToken string) (*platform.UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/2/users/me", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	var resp platform.UserInfo
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RequestToken performs the signed OAuth1 request-token call. The response
// body is a query string (oauth_token=...&oauth_token_secret=...).
func (c *Client) RequestToken(ctx context.Context, callbackURL string) (map[string]string, error) {
	endpoint := c.OAuth1BaseURL + "/oauth/request_token"
	params := c.signer.BuildParams(callbackURL, "")
	params["oauth_signature"] = c.signer.Sign(http.MethodPost, endpoint, params, "")
	return c.oauth1Request(ctx, endpoint, params)
}

// AccessToken exchanges an authorized request token for an access token.
func (c *Client) AccessToken(ctx context.Context, oauthToken, verifier, tokenSecret string) (map[string]string, error) {
	endpoint := c.OAuth1BaseURL + "/oauth/access_token"
	params := c.signer.BuildParams("", oauthToken)
	params["oauth_verifier"] = verifier
	params["oauth_signature"] = c.signer.Sign(http.MethodPost, endpoint, params, tokenSecret)
	return c.oauth1Request(ctx, endpoint, params)
}

func (c *Client) AuthorizeURL(oauthToken string) string {
	return c.OAuth1BaseURL + "/oauth/authorize?oauth_token=" + url.QueryEscape(oauthToken)
}

func (c *Client) oauth1Request(ctx context.Context, endpoint string, params map[string]string) (map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", c.signer.AuthHeader(params))

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, &platform.APIError{StatusCode: res.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return parseQueryString(string(body)), nil
}

func (c *Client) do(req *http.Request, out interface{}) error {
	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		config.Logger.Error("❌ X API error",
			zap.Int("status", res.StatusCode),
			zap.String("path", req.URL.Path))
		return &platform.APIError{StatusCode: res.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding X API response: %w", err)
	}
	return nil
}

func (c *Client) basicCredentials() string {
	return base64.StdEncoding.EncodeToString([]byte(c.clientID + ":" + c.clientSecret))
}

// parseQueryString parses bodies like "oauth_token=abc&oauth_token_secret=def".
func parseQueryString(body string) map[string]string {
	result := make(map[string]string)
	for _, kv := range strings.Split(body, "&") {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) == 2 && parts[0] != "" {
			result[parts[0]] = parts[1]
		}
	}
	return result
}
