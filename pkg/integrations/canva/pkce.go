package canva

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// GeneratePKCE returns a code verifier and its S256 code challenge.
// The verifier is 86 URL-safe characters, within the 43..128 range
// required by RFC 7636.
func GeneratePKCE() (verifier, challenge string, err error) {
	buf := make([]byte, 64)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate verifier: %w", err)
	}
	verifier = base64.RawURLEncoding.EncodeToString(buf)
	if len(verifier) > 128 {
		verifier = verifier[:128]
	}
	return verifier, Challenge(verifier), nil
}

// Challenge derives the S256 code challenge for verifier.
func Challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
