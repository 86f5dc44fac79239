package oauth1

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Golden vector from the X developer documentation ("Creating a signature"):
// fixed nonce, timestamp and keys must always produce the same signature.
func TestSign_GoldenVector(t *testing.T) {
	s := NewSigner("xvz1evFS4wEEPTGEFPHBog", "kAcSOqF21Fu85e7zjz7ZN2U4ZRhfV3WpwPAoE3Z7kBw")

	params := map[string]string{
		"status":                 "Hello Ladies + Gentlemen, a signed OAuth request!",
		"include_entities":       "true",
		"oauth_consumer_key":     "xvz1evFS4wEEPTGEFPHBog",
		"oauth_nonce":            "kYjzVBB8Y0ZFabxSWbWovY3uYSQ2pTgmZeNu2VS4cg",
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        "1318622958",
		"oauth_token":            "370773112-GmHxMAgYyLbNEtIKZeRNFsMKPR9EyMZeS9weJAEb",
		"oauth_version":          "1.0",
	}

	got := s.Sign("post", "https://api.twitter.com/1/statuses/update.json", params,
		"LswwdoUaIvS8ltyTt5jkRh4J50vUPVVHtR2YPi5kE")

	assert.Equal(t, "tnnArxj06cWHq44gCs1OSKk/jLY=", got)
}

func TestSign_Deterministic(t *testing.T) {
	s := NewSigner("key", "secret")
	params := map[string]string{
		"oauth_consumer_key":     "key",
		"oauth_nonce":            "fixed-nonce",
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        "1700000000",
		"oauth_version":          "1.0",
	}

	first := s.Sign("POST", "https://api.twitter.com/oauth/request_token", params, "")
	second := s.Sign("POST", "https://api.twitter.com/oauth/request_token", params, "")
	assert.Equal(t, first, second)
}

func TestPercentEncode(t *testing.T) {
	cases := map[string]string{
		"Ladies + Gentlemen": "Ladies%20%2B%20Gentlemen",
		"An encoded string!": "An%20encoded%20string%21",
		"Dogs, Cats & Mice":  "Dogs%2C%20Cats%20%26%20Mice",
		"☃":                  "%E2%98%83",
		"abc-._~XYZ019":      "abc-._~XYZ019",
		"*":                  "%2A",
	}
	for in, want := range cases {
		assert.Equal(t, want, percentEncode(in), "encoding %q", in)
	}
}

func TestBuildParams(t *testing.T) {
	s := NewSigner("ck", "cs")

	params := s.BuildParams("https://app.example/callback", "")
	assert.Equal(t, "ck", params["oauth_consumer_key"])
	assert.Equal(t, "HMAC-SHA1", params["oauth_signature_method"])
	assert.Equal(t, "1.0", params["oauth_version"])
	assert.Equal(t, "https://app.example/callback", params["oauth_callback"])
	assert.NotContains(t, params, "oauth_token")
	assert.NotEmpty(t, params["oauth_nonce"])
	assert.NotEmpty(t, params["oauth_timestamp"])

	withToken := s.BuildParams("", "req-token")
	assert.Equal(t, "req-token", withToken["oauth_token"])
	assert.NotContains(t, withToken, "oauth_callback")
}

func TestBuildParams_NonceNotReused(t *testing.T) {
	s := NewSigner("ck", "cs")
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		n := s.BuildParams("", "")["oauth_nonce"]
		require.False(t, seen[n], "nonce reused")
		seen[n] = true
	}
}

func TestAuthHeader_OnlyOAuthParamsSorted(t *testing.T) {
	s := NewSigner("ck", "cs")
	params := map[string]string{
		"status":             "ignored",
		"oauth_token":        "tok",
		"oauth_consumer_key": "ck",
		"oauth_signature":    "si/g=",
	}

	header := s.AuthHeader(params)
	require.True(t, strings.HasPrefix(header, "OAuth "))
	assert.Equal(t, `OAuth oauth_consumer_key="ck", oauth_signature="si%2Fg%3D", oauth_token="tok"`, header)
	assert.NotContains(t, header, "status")
}
