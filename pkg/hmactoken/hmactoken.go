package hmactoken

import (
	"crypto/subtle"
	"errors"
	"time"
)

var (
	errTokenMalformed = errors.New("token malformed")
	errBadSignature   = errors.New("token bad signature")
	errTokenExpired   = errors.New("token expired")
	errNoSecret       = errors.New("no signing secret configured")
)

func ErrTokenMalformed() error { return errTokenMalformed }
func ErrBadSignature() error   { return errBadSignature }
func ErrTokenExpired() error   { return errTokenExpired }
func ErrNoSecret() error       { return errNoSecret }

// Context is the immutable validation configuration shared by every request.
// Construct a fresh Context when the secret rotates; never mutate one that
// is already visible to request handlers.
type Context struct {
	Secret   []byte
	Validity time.Duration
}

// Verify checks a parsed proof against the client IP it should be bound to.
//
// The signed message is rebuilt from the proof's original timestamp text, so
// a token signed over "1700000000.500" never silently becomes
// "1700000000.5" on this side. The signature comparison runs over the full
// encoded length in constant time. The signature is checked before the
// validity window, so a forged-but-expired token reports ErrBadSignature.
func (c Context) Verify(clientIP string, proof Proof, now time.Time) error {
	if len(c.Secret) == 0 {
		return errNoSecret
	}

	expected := Sign(c.Secret, clientIP, proof.TimestampText)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(proof.Signature)) != 1 {
		return errBadSignature
	}

	age := nowSeconds(now) - proof.Timestamp
	if age < 0 || age > c.Validity.Seconds() {
		return errTokenExpired
	}

	return nil
}

// VerifyRaw parses a raw proof segment and verifies it in one step.
func (c Context) VerifyRaw(clientIP string, rawProof string, now time.Time) error {
	proof, err := ParseProof(rawProof)
	if err != nil {
		return err
	}
	return c.Verify(clientIP, proof, now)
}

func nowSeconds(now time.Time) float64 {
	return float64(now.UnixMilli()) / 1000.0
}
