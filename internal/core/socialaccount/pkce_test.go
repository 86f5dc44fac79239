package socialaccount

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCodeVerifier(t *testing.T) {
	for _, length := range []int{43, 64, 128} {
		v, err := GenerateCodeVerifier(length)
		require.NoError(t, err)
		assert.Len(t, v, length)
		for _, c := range v {
			assert.True(t, strings.ContainsRune(pkceChars, c), "unexpected byte %q", c)
		}
	}
}

func TestGenerateCodeVerifier_LengthBounds(t *testing.T) {
	_, err := GenerateCodeVerifier(42)
	assert.Error(t, err)
	_, err = GenerateCodeVerifier(129)
	assert.Error(t, err)
}

func TestCodeChallenge(t *testing.T) {
	// RFC 7636 appendix B example
	assert.Equal(t, "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM",
		CodeChallenge("dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"))

	assert.NotEqual(t, CodeChallenge("verifier-a"), CodeChallenge("verifier-b"))
}

func TestGenerateState_Unique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		s, err := GenerateState()
		require.NoError(t, err)
		assert.False(t, seen[s])
		seen[s] = true
	}
}
