// internal/app/system/tokens/tokens.go
//
// Invitation tokens admit whoever presents them, so they come from
// crypto/rand, never math/rand.
package tokens

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Length is the token size in bytes (32 bytes = 64 hex chars).
const Length = 32

// NewInviteToken returns a fresh hex-encoded random token.
func NewInviteToken() (string, error) {
	buf := make([]byte, Length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate invite token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
