package internal

import (
	"crypto/rand"
	"encoding/base64"
)

const opaqueTokenSize = 32

// NewOpaqueToken returns 32 bytes of CSPRNG output, base64url without padding.
func NewOpaqueToken() (string, error) {
	var raw [opaqueTokenSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// RedactToken keeps only a short prefix of token for log output.
func RedactToken(token string) string {
	if len(token) <= 6 {
		return "***"
	}
	return token[:6] + "***"
}
