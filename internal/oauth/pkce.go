package oauth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/oauth2"
)

// GenerateCodeVerifier returns a PKCE verifier: 32 random bytes, base64url
// encoded without padding.
func GenerateCodeVerifier() string {
	return oauth2.GenerateVerifier()
}

// GenerateCodeChallenge derives the S256 challenge for a verifier.
func GenerateCodeChallenge(verifier string) string {
	return oauth2.S256ChallengeFromVerifier(verifier)
}

var randReader io.Reader = rand.Reader

// GenerateState returns an unguessable value for the state parameter.
func GenerateState() (string, error) {
	b := make([]byte, 16)
	if _, err := io.ReadFull(randReader, b); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return hex.EncodeToString(b), nil
}
