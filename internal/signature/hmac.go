package signature

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/fantasylifeleague/healthapi/internal/health"
	"github.com/fantasylifeleague/healthapi/internal/keys"
)

// ErrInvalidSignature is returned when a payload's tag does not match, or when no
// signing key exists for the user. Callers cannot tell the two cases apart.
var ErrInvalidSignature = errors.New("invalid data signature")

// Sign returns the lowercase hex HMAC-SHA256 tag of the canonical payload.
func Sign(raw health.RawHealthData, key []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(Canonicalize(raw))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether data carries a valid tag for key.
// Any failure while computing the digest yields false.
func Verify(data health.VerifiedHealthData, key []byte) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	if len(key) == 0 || data.Signature == "" {
		return false
	}

	expected := Sign(data.RawData, key)
	return hmac.Equal([]byte(strings.ToLower(data.Signature)), []byte(expected))
}

// Verifier checks submissions against per-user signing keys.
type Verifier struct {
	keys keys.Store
}

// NewVerifier creates a Verifier backed by the given key store.
func NewVerifier(store keys.Store) *Verifier {
	return &Verifier{keys: store}
}

// Verify checks the tag on data using the signing key of userID.
// It returns ErrInvalidSignature for a mismatch or an unknown user; other errors
// come from the key store.
func (v *Verifier) Verify(ctx context.Context, userID string, data health.VerifiedHealthData) error {
	key, err := v.keys.SigningKey(ctx, userID)
	if err != nil {
		if errors.Is(err, keys.ErrKeyNotFound) {
			return ErrInvalidSignature
		}
		return fmt.Errorf("loading signing key: %w", err)
	}

	if !Verify(data, key) {
		return ErrInvalidSignature
	}
	return nil
}
