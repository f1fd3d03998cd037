// Package businessflow contains the core business logic and use cases for subscription workflows
package businessflow

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"

	"github.com/google/uuid"
)

// GenerateToken produces the confirmation secret issued per submission. The
// token authorizes activation of the subscription, so it is drawn from
// crypto/rand (the legacy md5-over-uniqid scheme was guessable) and salted
// with a UUID so two calls can never collide even under a broken entropy
// source. The encoding is URL-safe and fixed length so the token can ride a
// query string untouched.
func GenerateToken() string {
	seed := make([]byte, 32)
	// rand.Read is documented to never fail
	_, _ = rand.Read(seed)

	salt := uuid.New()
	sum := sha256.Sum256(append(seed, salt[:]...))

	return base64.RawURLEncoding.EncodeToString(sum[:])
}
