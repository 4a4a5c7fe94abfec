package access

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// tokenBytes gives 256 bits of CSPRNG entropy per token; the encoded form is
// 43 URL-safe characters.
const tokenBytes = 32

// GenerateToken returns a new opaque access token. Tokens are bearer secrets:
// never log them.
func GenerateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
