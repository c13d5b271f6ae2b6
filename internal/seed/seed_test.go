package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"github.com/baely/walletsync/internal/common/errors"
	"github.com/baely/walletsync/internal/store"
	"github.com/baely/walletsync/internal/wallet"
)

var asOf = time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

func TestFirstMatch(t *testing.T) {
	rules := DefaultRules()
	tests := []struct {
		account wallet.Account
		want    string
	}{
		{wallet.Account{Type: "credit", Subtype: "credit card"}, "Credit Card Autopay"},
		{wallet.Account{Type: "Depository", Subtype: "Checking"}, "Monthly Rent"},
		{wallet.Account{Type: "depository", Subtype: "savings"}, "Savings Interest"},
		{wallet.Account{Type: "loan", Subtype: "mortgage"}, "Loan Payment"},
		{wallet.Account{Type: "depository", Subtype: "cd"}, ""},
		{wallet.Account{Type: "investment"}, ""},
	}
	for _, tt := range tests {
		got, ok := FirstMatch(tt.account, rules)
		if got.Name != tt.want || ok != (tt.want != "") {
			t.Errorf("FirstMatch(%s/%s) = %q, %v; want %q", tt.account.Type, tt.account.Subtype, got.Name, ok, tt.want)
		}
	}
}

func TestFirstMatch_Priority(t *testing.T) {
	rules := []Rule{
		{Name: "Specific", Types: []string{"credit"}, Subtypes: []string{"credit card"}},
		{Name: "Any Credit", Types: []string{"credit"}},
		{Name: "Catch All"},
	}
	got, _ := FirstMatch(wallet.Account{Type: "credit", Subtype: "credit card"}, rules)
	if got.Name != "Specific" {
		t.Errorf("got %q, want the earlier rule", got.Name)
	}
	got, _ = FirstMatch(wallet.Account{Type: "credit", Subtype: "paypal"}, rules)
	if got.Name != "Any Credit" {
		t.Errorf("got %q, want Any Credit", got.Name)
	}
}

func TestSeedID(t *testing.T) {
	tests := map[string]string{
		"Credit Card Autopay": "seed-5-acc-1-credit-card-autopay",
		"  Rent / Mortgage  ": "seed-5-acc-1-rent-mortgage",
		"Loan":                "seed-5-acc-1-loan",
	}
	for name, want := range tests {
		if got := SeedID("acc-1", name); got != want {
			t.Errorf("SeedID(%q) = %q, want %q", name, got, want)
		}
	}
	if SeedID("acc-1", "Loan") != SeedID("acc-1", "Loan") {
		t.Error("SeedID is not stable")
	}
	if a, b := SeedID("acct", "Monthly Rent"), SeedID("acct-monthly", "Rent"); a == b {
		t.Errorf("distinct pairs share id %q", a)
	}
}

func TestSeed_HyphenatedAccountIDs(t *testing.T) {
	c, err := store.OpenSQLite(filepath.Join(t.TempDir(), "wallet.sqlite3"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer c.Close()
	ctx := context.Background()
	if err := c.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}

	accounts := []wallet.Account{
		{AccountID: "acct", Type: "depository", Subtype: "checking"},
		{AccountID: "acct-monthly", Type: "depository", Subtype: "savings"},
	}
	rules := []Rule{
		{Name: "Monthly Rent", Subtypes: []string{"checking"}, Amount: decimal.NewFromInt(1)},
		{Name: "Rent", Subtypes: []string{"savings"}, Amount: decimal.NewFromInt(2)},
	}

	var res Result
	err = c.WithTx(ctx, func(tx *store.Tx) error {
		for _, a := range accounts {
			if err := tx.UpsertAccount(ctx, a); err != nil {
				return err
			}
		}
		var err error
		res, err = Seed(ctx, tx, accounts, rules, asOf)
		return err
	})
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if res != (Result{Inserted: 2}) {
		t.Errorf("result = %+v, want two seeds", res)
	}

	for _, a := range accounts {
		rule, _ := FirstMatch(a, rules)
		txn, err := c.Transaction(ctx, SeedID(a.AccountID, rule.Name))
		if err != nil {
			t.Fatalf("seed for %s: %v", a.AccountID, err)
		}
		if txn.AccountID != a.AccountID {
			t.Errorf("seed %s belongs to %s", txn.TransactionID, txn.AccountID)
		}
	}
}

func TestParseRules(t *testing.T) {
	raw := []byte(`
rules:
  - name: Gym Membership
    types: [depository]
    subtypes: [checking]
    description: Gym
    payment_channel: online
    amount: 49.99
    categories: [Recreation, Gyms and Fitness Centers]
    days_ago: 2
  - name: Anything Else
    amount: "-1.50"
`)
	rules, err := ParseRules(raw)
	if err != nil {
		t.Fatalf("ParseRules: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("rules = %d, want 2", len(rules))
	}
	gym := rules[0]
	if !gym.Amount.Equal(decimal.RequireFromString("49.99")) || gym.DaysAgo != 2 {
		t.Errorf("gym = %+v", gym)
	}
	if diff := cmp.Diff([]string{"Recreation", "Gyms and Fitness Centers"}, gym.Categories); diff != "" {
		t.Errorf("categories mismatch (-want +got):\n%s", diff)
	}
	if !rules[1].Amount.Equal(decimal.RequireFromString("-1.50")) {
		t.Errorf("quoted amount = %s", rules[1].Amount)
	}

	if _, err := ParseRules([]byte("rules:\n  - types: [credit]\n")); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("nameless rule accepted: %v", err)
	}
	if _, err := ParseRules([]byte("rules:\n  - name: A b\n  - name: a-B\n")); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("colliding rule ids accepted: %v", err)
	}
}

func TestLoadRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte("rules:\n  - name: Only\n    amount: 1\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	rules, err := LoadRules(path)
	if err != nil || len(rules) != 1 || rules[0].Name != "Only" {
		t.Fatalf("LoadRules = %+v, %v", rules, err)
	}
	if _, err := LoadRules(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSeed_OncePerAccount(t *testing.T) {
	c, err := store.OpenSQLite(filepath.Join(t.TempDir(), "wallet.sqlite3"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer c.Close()
	ctx := context.Background()
	if err := c.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}

	accounts := []wallet.Account{
		{AccountID: "acc-credit", Type: "credit", Subtype: "credit card"},
		{AccountID: "acc-checking", Type: "depository", Subtype: "checking"},
		{AccountID: "acc-invest", Type: "investment", Subtype: "brokerage"},
	}

	err = c.WithTx(ctx, func(tx *store.Tx) error {
		for _, a := range accounts {
			if err := tx.UpsertAccount(ctx, a); err != nil {
				return err
			}
		}
		// A real transaction on the account must not suppress its seed.
		return tx.UpsertTransaction(ctx, wallet.Transaction{TransactionID: "real-1", AccountID: "acc-credit", Date: "2024-03-01", Amount: decimal.NewFromInt(12)})
	})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	for run := 0; run < 3; run++ {
		var res Result
		err := c.WithTx(ctx, func(tx *store.Tx) error {
			var err error
			res, err = Seed(ctx, tx, accounts, DefaultRules(), asOf.AddDate(0, 0, run))
			return err
		})
		if err != nil {
			t.Fatalf("Seed run %d: %v", run, err)
		}

		want := Result{Inserted: 2, Unmatched: 1}
		if run > 0 {
			want = Result{Skipped: 2, Unmatched: 1}
		}
		if res != want {
			t.Errorf("run %d result = %+v, want %+v", run, res, want)
		}
	}

	snap, err := c.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap["transactions"]) != 3 {
		t.Errorf("transactions = %v, want real-1 plus two seeds", snap["transactions"])
	}

	autopay, err := c.Transaction(ctx, "seed-10-acc-credit-credit-card-autopay")
	if err != nil {
		t.Fatalf("autopay seed: %v", err)
	}
	if autopay.Date != "2024-03-07" || !autopay.Amount.Equal(decimal.RequireFromString("-250")) {
		t.Errorf("autopay = %+v", autopay)
	}
	if diff := cmp.Diff([]string{"Payment", "Credit Card"}, autopay.Category); diff != "" {
		t.Errorf("categories mismatch (-want +got):\n%s", diff)
	}
}
