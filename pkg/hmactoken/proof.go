package hmactoken

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Proof is the parsed cloudflare-token segment: "<timestamp>-<signature>".
// TimestampText keeps the timestamp exactly as it appeared on the wire; the
// signed message is rebuilt from it, never from the parsed float.
type Proof struct {
	TimestampText string
	Timestamp     float64
	Signature     string
}

// ParseProof splits a raw proof on its last '-'. The timestamp is decimal
// and contains no dash, and the signature is padded standard base64 (which
// also contains no dash), so the last dash is always the separator.
func ParseProof(raw string) (Proof, error) {
	sep := strings.LastIndex(raw, "-")
	if sep <= 0 || sep == len(raw)-1 {
		return Proof{}, fmt.Errorf("%w: proof missing timestamp-signature separator", errTokenMalformed)
	}

	tsText := raw[:sep]
	signature := raw[sep+1:]

	ts, err := strconv.ParseFloat(tsText, 64)
	if err != nil {
		return Proof{}, fmt.Errorf("%w: non-numeric timestamp", errTokenMalformed)
	}
	if ts < 0 || math.IsNaN(ts) || math.IsInf(ts, 0) {
		return Proof{}, fmt.Errorf("%w: timestamp out of range", errTokenMalformed)
	}

	digest, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return Proof{}, fmt.Errorf("%w: signature is not valid base64", errTokenMalformed)
	}
	if len(digest) != sha256.Size {
		return Proof{}, fmt.Errorf("%w: signature has wrong digest length", errTokenMalformed)
	}

	return Proof{
		TimestampText: tsText,
		Timestamp:     ts,
		Signature:     signature,
	}, nil
}

// Sign computes the base64 HMAC-SHA256 signature over the exact message
// "<clientIP>:<timestampText>". The IP is used verbatim: any formatting
// difference between issuance and validation breaks the signature.
func Sign(secret []byte, clientIP string, timestampText string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(clientIP + ":" + timestampText))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Issue builds a complete proof segment for a token issued at the given
// time, rendering the timestamp with millisecond precision.
func Issue(secret []byte, clientIP string, issuedAt time.Time) string {
	tsText := FormatTimestamp(issuedAt)
	return tsText + "-" + Sign(secret, clientIP, tsText)
}

// FormatTimestamp renders an issuance time the way the issuer does:
// fractional seconds with exactly three decimal places.
func FormatTimestamp(t time.Time) string {
	return strconv.FormatFloat(float64(t.UnixMilli())/1000.0, 'f', 3, 64)
}
