// Package hmactoken implements the composite login token carried by the
// `oait` query parameter, and the HMAC proof that binds it to a client IP
// and an issuance time.
//
// A composite token has two or three segments joined by the literal
// delimiter "++":
//
//	formsToken++cloudflareToken[++accessToken]
//
//   - formsToken: opaque value forwarded to the origin unchanged
//   - cloudflareToken: the HMAC proof, format "<timestamp>-<signature>"
//   - accessToken: optional bearer credential, promoted to a cookie by the
//     gate after a successful validation
//
// The proof signature is HMAC-SHA256 over the exact string
// "<clientIP>:<timestampText>" using a shared secret, encoded with padded
// standard base64. The timestamp is a decimal number of seconds (millisecond
// precision); its original text is part of the signed message, so validation
// never re-renders it from a parsed float.
//
// # Issuing
//
//	proof := hmactoken.Issue(secret, "203.0.113.7", time.Now())
//	oait := hmactoken.BuildComposite("form-abc123", proof, "")
//
// # Validating
//
//	tok, err := hmactoken.ParseComposite(oait)
//	if err != nil {
//	    // structurally invalid: errors.Is(err, hmactoken.ErrTokenMalformed())
//	}
//	ctx := hmactoken.Context{Secret: secret, Validity: 300 * time.Second}
//	err = ctx.Verify(clientIP, tok.Proof, time.Now())
//	switch {
//	case errors.Is(err, hmactoken.ErrBadSignature()):
//	    // signature mismatch for this IP/timestamp
//	case errors.Is(err, hmactoken.ErrTokenExpired()):
//	    // outside the validity window (future-dated counts as expired)
//	}
//
// The signature comparison is constant time over the full encoded length;
// it does not short-circuit on the first differing byte.
package hmactoken
