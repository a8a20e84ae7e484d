package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"
)

// GenerateReferralCode returns a URL-safe random token identifying a user as
// a referral source. 8 random bytes keep the space large enough that the DB
// unique index is the only collision handling we need.
func GenerateReferralCode() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate referral code: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// GenerateLinkCode returns the opaque code for one shareable tracking link.
// A UUID fragment: short enough to share, random enough that the unique
// index never fires in practice, and it leaks nothing about the owner.
func GenerateLinkCode() string {
	return uuid.NewString()[:8]
}
