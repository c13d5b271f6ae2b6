// Package seed inserts illustrative transactions for accounts. Every
// account gets at most one seed, from the first rule that matches it, under
// an id derived from the account and the rule name.
package seed

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/baely/walletsync/internal/common/errors"
	"github.com/baely/walletsync/internal/wallet"
)

// Rule describes which accounts it applies to and the transaction it seeds.
// Empty Types or Subtypes match any value.
type Rule struct {
	Name           string          `yaml:"name"`
	Types          []string        `yaml:"types"`
	Subtypes       []string        `yaml:"subtypes"`
	Description    string          `yaml:"description"`
	MerchantName   string          `yaml:"merchant_name"`
	PaymentChannel string          `yaml:"payment_channel"`
	Amount         decimal.Decimal `yaml:"amount"`
	Categories     []string        `yaml:"categories"`
	// DaysAgo places the seed this many days before the as-of date.
	DaysAgo int `yaml:"days_ago"`
}

// Matches reports whether the rule applies to the account.
func (r Rule) Matches(a wallet.Account) bool {
	return matchAny(r.Types, a.Type) && matchAny(r.Subtypes, a.Subtype)
}

func matchAny(values []string, v string) bool {
	if len(values) == 0 {
		return true
	}
	for _, want := range values {
		if strings.EqualFold(strings.TrimSpace(want), strings.TrimSpace(v)) {
			return true
		}
	}
	return false
}

// FirstMatch returns the first rule in order that matches the account.
func FirstMatch(a wallet.Account, rules []Rule) (Rule, bool) {
	for _, r := range rules {
		if r.Matches(a) {
			return r, true
		}
	}
	return Rule{}, false
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// SeedID is the transaction id of the seed a rule creates for an account:
// seed-<len(accountID)>-<accountID>-<slug>. The length prefix keeps ids of
// hyphenated account ids apart.
func SeedID(accountID, ruleName string) string {
	slug := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(ruleName), "-"), "-")
	return "seed-" + strconv.Itoa(len(accountID)) + "-" + accountID + "-" + slug
}

// DefaultRules are used when no rule file is configured.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:           "Credit Card Autopay",
			Types:          []string{"credit"},
			Description:    "Credit Card Autopay",
			PaymentChannel: "other",
			Amount:         decimal.RequireFromString("-250.00"),
			Categories:     []string{"Payment", "Credit Card"},
			DaysAgo:        3,
		},
		{
			Name:           "Monthly Rent",
			Types:          []string{"depository"},
			Subtypes:       []string{"checking"},
			Description:    "Monthly Rent",
			MerchantName:   "Property Management",
			PaymentChannel: "online",
			Amount:         decimal.RequireFromString("1850.00"),
			Categories:     []string{"Payment", "Rent"},
			DaysAgo:        1,
		},
		{
			Name:           "Savings Interest",
			Types:          []string{"depository"},
			Subtypes:       []string{"savings"},
			Description:    "Interest Payment",
			PaymentChannel: "other",
			Amount:         decimal.RequireFromString("-4.12"),
			Categories:     []string{"Interest", "Interest Earned"},
			DaysAgo:        0,
		},
		{
			Name:           "Loan Payment",
			Types:          []string{"loan"},
			Description:    "Loan Payment",
			PaymentChannel: "online",
			Amount:         decimal.RequireFromString("320.00"),
			Categories:     []string{"Payment", "Loan"},
			DaysAgo:        5,
		},
	}
}

type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRules reads an ordered rule list from a YAML file with a top-level
// "rules" key.
func LoadRules(path string) ([]Rule, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read seed rules")
	}
	return ParseRules(raw)
}

// ParseRules decodes a YAML rule list.
func ParseRules(raw []byte) ([]Rule, error) {
	var f ruleFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, "parse seed rules: %v", err)
	}
	seen := make(map[string]bool, len(f.Rules))
	for i, r := range f.Rules {
		if strings.TrimSpace(r.Name) == "" {
			return nil, errors.Wrap(errors.ErrInvalidInput, "seed rule %d has no name", i)
		}
		id := SeedID("", r.Name)
		if seen[id] {
			return nil, errors.Wrap(errors.ErrInvalidInput, "seed rule %q duplicates another rule id", r.Name)
		}
		seen[id] = true
	}
	return f.Rules, nil
}
