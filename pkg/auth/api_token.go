package auth

import (
	"strings"

	"github.com/google/uuid"
)

// APITokenPrefix marks bookmarklet tokens so they are recognisable in logs.
const APITokenPrefix = "edn_"

// NewAPIToken returns a fresh opaque bookmarklet token.
func NewAPIToken() string {
	a := strings.ReplaceAll(uuid.NewString(), "-", "")
	b := strings.ReplaceAll(uuid.NewString(), "-", "")
	return APITokenPrefix + a + b
}

// LooksLikeAPIToken performs a cheap shape check before a store lookup.
func LooksLikeAPIToken(token string) bool {
	return strings.HasPrefix(token, APITokenPrefix) && len(token) == len(APITokenPrefix)+64
}

// MaskToken keeps only a short prefix of token for logging.
func MaskToken(token string) string {
	if len(token) <= len(APITokenPrefix)+4 {
		return "****"
	}
	return token[:len(APITokenPrefix)+4] + "****"
}
