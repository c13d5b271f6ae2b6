package linkage

import (
	"regexp"
	"strings"
)

// issuers maps lower-case substrings of account names to issuer names.
// Earlier entries win.
var issuers = []struct {
	needle string
	issuer string
}{
	{"american express", "Amex"},
	{"amex", "Amex"},
	{"chase", "Chase"},
	{"citi", "Citi"},
	{"capital one", "Capital One"},
	{"discover", "Discover"},
	{"wells fargo", "Wells Fargo"},
	{"bank of america", "Bank of America"},
	{"barclays", "Barclays"},
	{"us bank", "U.S. Bank"},
	{"apple", "Apple"},
	{"synchrony", "Synchrony"},
}

var issuerPrefix = regexp.MustCompile(`(?i)^(.*?)(?:[-–—|:,/(]|\bcard\b|\bcredit\b)`)

// InferIssuer guesses the issuer from free-text account naming. Known
// issuers are matched case-insensitively anywhere in the text; otherwise
// the text before the first separator or the word "card" or "credit" is
// used. It returns "" when neither yields anything.
func InferIssuer(text string) string {
	lower := strings.ToLower(text)
	for _, e := range issuers {
		if strings.Contains(lower, e.needle) {
			return e.issuer
		}
	}

	m := issuerPrefix.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}
