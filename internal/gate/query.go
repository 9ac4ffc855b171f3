package gate

import "strings"

// rawQueryValue finds a parameter in the undecoded query string. Pairs are
// split on '&' and '=' only; neither keys nor values are percent-decoded,
// mirroring how the token was produced on the issuing side.
func rawQueryValue(rawQuery string, key string) (string, bool) {
	for _, pair := range strings.Split(rawQuery, "&") {
		k, v, _ := strings.Cut(pair, "=")
		if k == key {
			return v, true
		}
	}
	return "", false
}

// rewriteTokenParam swaps the token parameter's value for the bare forms
// token. Every other pair is carried verbatim in its original position.
func rewriteTokenParam(rawQuery string, formsToken string) string {
	pairs := strings.Split(rawQuery, "&")
	for i, pair := range pairs {
		k, _, _ := strings.Cut(pair, "=")
		if k == TokenParam {
			pairs[i] = TokenParam + "=" + formsToken
		}
	}
	return strings.Join(pairs, "&")
}
