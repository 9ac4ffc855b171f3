package hmactoken

import (
	"fmt"
	"strings"
)

// Delimiter separates the segments of a composite token. Padded standard
// base64 signatures always end in '=', so a signature can never bleed into
// the delimiter; a '+' can still appear inside a signature, which is why
// splitting happens on the two-character sequence and segment counts are
// checked strictly.
const Delimiter = "++"

// Composite is the parsed `oait` parameter.
type Composite struct {
	FormsToken  string
	Proof       Proof
	RawProof    string
	AccessToken string
}

// ParseComposite splits a raw composite token into its segments and parses
// the proof. Exactly two or three segments are accepted; the forms token and
// the proof segment must be non-empty. A third, empty segment is treated as
// no access token.
func ParseComposite(raw string) (*Composite, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: empty composite token", errTokenMalformed)
	}

	segments := strings.Split(raw, Delimiter)
	if len(segments) < 2 || len(segments) > 3 {
		return nil, fmt.Errorf("%w: expected 2 or 3 segments, found %d", errTokenMalformed, len(segments))
	}

	formsToken := segments[0]
	rawProof := strings.TrimSpace(segments[1])
	if formsToken == "" {
		return nil, fmt.Errorf("%w: empty forms token segment", errTokenMalformed)
	}
	if rawProof == "" {
		return nil, fmt.Errorf("%w: empty proof segment", errTokenMalformed)
	}

	proof, err := ParseProof(rawProof)
	if err != nil {
		return nil, err
	}

	composite := &Composite{
		FormsToken: formsToken,
		Proof:      proof,
		RawProof:   rawProof,
	}
	if len(segments) == 3 {
		composite.AccessToken = segments[2]
	}

	return composite, nil
}

// BuildComposite joins segments into a composite token. An empty accessToken
// yields the two-segment form.
func BuildComposite(formsToken string, proof string, accessToken string) string {
	if accessToken == "" {
		return formsToken + Delimiter + proof
	}
	return formsToken + Delimiter + proof + Delimiter + accessToken
}
