// Package oauth1 implements RFC 5849 request signing for the legacy
// X token-exchange flow: HMAC-SHA1 over a canonical base string built
// from the method, URL and sorted request parameters.
package oauth1

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

var nonNonceChars = regexp.MustCompile(`[^a-zA-Z0-9]`)

type Signer struct {
	consumerKey    string
	consumerSecret string
}

func NewSigner(consumerKey, consumerSecret string) *Signer {
	return &Signer{consumerKey: consumerKey, consumerSecret: consumerSecret}
}

// BuildParams returns the oauth_* parameter set for a new request: a fresh
// high-entropy nonce (never reused, replay protection) and the current unix
// timestamp. callbackURL and token are included only when non-empty.
func (s *Signer) BuildParams(callbackURL, token string) map[string]string {
	params := map[string]string{
		"oauth_consumer_key":     s.consumerKey,
		"oauth_nonce":            nonce(),
		"oauth_signature_method": "HMAC-SHA1",
		"oauth_timestamp":        fmt.Sprintf("%d", time.Now().Unix()),
		"oauth_version":          "1.0",
	}
	if callbackURL != "" {
		params["oauth_callback"] = callbackURL
	}
	if token != "" {
		params["oauth_token"] = token
	}
	return params
}

// Sign computes base64(HMAC-SHA1(signing key, base string)). It is a pure
// function of its inputs: with the nonce and timestamp fixed in params the
// signature is fully deterministic.
func (s *Signer) Sign(method, rawurl string, params map[string]string, tokenSecret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, percentEncode(k)+"="+percentEncode(params[k]))
	}
	paramString := strings.Join(pairs, "&")

	baseString := strings.ToUpper(method) + "&" + percentEncode(rawurl) + "&" + percentEncode(paramString)
	signingKey := percentEncode(s.consumerSecret) + "&" + percentEncode(tokenSecret)

	mac := hmac.New(sha1.New, []byte(signingKey))
	mac.Write([]byte(baseString))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// AuthHeader renders the oauth_* parameters (only those) sorted by key into
// an "OAuth ..." authorization header value.
func (s *Signer) AuthHeader(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if strings.HasPrefix(k, "oauth_") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, percentEncode(k)+"=\""+percentEncode(params[k])+"\"")
	}
	return "OAuth " + strings.Join(pairs, ", ")
}

func nonce() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return nonNonceChars.ReplaceAllString(base64.StdEncoding.EncodeToString(b), "")
}

// percentEncode applies the RFC 3986 variant OAuth1 requires: unreserved
// characters pass through, space becomes %20 (not +), '*' is escaped and
// '~' is not.
func percentEncode(value string) string {
	var b strings.Builder
	for i := 0; i < len(value); i++ {
		c := value[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9',
			c == '-', c == '.', c == '_', c == '~':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}
