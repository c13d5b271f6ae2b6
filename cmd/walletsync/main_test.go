package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/subcommands"

	"github.com/baely/walletsync/internal/store"
)

const document = `{
  "accounts": [{"account_id": "acc-1", "mask": "0000", "name": "Plaid Checking", "official_name": null, "subtype": "checking", "type": "depository"}],
  "transactions": [{"transaction_id": "tx-1", "account_id": "acc-1", "amount": 6.33, "date": "2024-03-01", "name": "Uber", "merchant_name": null, "payment_channel": "online", "category": ["Travel", "Taxi"]}],
  "item": {"item_id": "item-1", "institution_id": "ins_109508", "webhook": ""},
  "request_id": "req-1",
  "total_transactions": 1
}`

func execute(t *testing.T, cmd subcommands.Command, args ...string) subcommands.ExitStatus {
	t.Helper()
	f := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	cmd.SetFlags(f)
	if err := f.Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return cmd.Execute(context.Background(), f)
}

func TestSyncCmd(t *testing.T) {
	dir := t.TempDir()
	docPath := filepath.Join(dir, "plaid.json")
	storePath := filepath.Join(dir, "wallet.sqlite3")
	if err := os.WriteFile(docPath, []byte(document), 0o600); err != nil {
		t.Fatal(err)
	}

	if got := execute(t, &syncCmd{}, "-driver", "sqlite", "-as-of", "2024-03-10", docPath, storePath); got != subcommands.ExitSuccess {
		t.Fatalf("sync exit = %v", got)
	}

	c, err := store.OpenSQLite(storePath)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer c.Close()
	txn, err := c.Transaction(context.Background(), "seed-5-acc-1-monthly-rent")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if txn.Date != "2024-03-09" {
		t.Errorf("seed date = %s", txn.Date)
	}
}

func TestSyncCmd_Failures(t *testing.T) {
	dir := t.TempDir()
	storePath := filepath.Join(dir, "wallet.sqlite3")
	malformed := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(malformed, []byte(`[1, 2]`), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
		want subcommands.ExitStatus
	}{
		{"missing document", []string{filepath.Join(dir, "none.json"), storePath}, subcommands.ExitFailure},
		{"malformed document", []string{malformed, storePath}, subcommands.ExitFailure},
		{"bad as-of", []string{"-as-of", "March", malformed, storePath}, subcommands.ExitFailure},
		{"missing argument", []string{malformed}, subcommands.ExitUsageError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := execute(t, &syncCmd{}, tt.args...); got != tt.want {
				t.Errorf("exit = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSchemaAndCountsCmd(t *testing.T) {
	storePath := filepath.Join(t.TempDir(), "wallet.sqlite3")

	if got := execute(t, &schemaCmd{}, storePath); got != subcommands.ExitSuccess {
		t.Fatalf("schema exit = %v", got)
	}
	if got := execute(t, &schemaCmd{}, storePath); got != subcommands.ExitSuccess {
		t.Fatalf("second schema exit = %v", got)
	}
	if got := execute(t, &countsCmd{}, storePath); got != subcommands.ExitSuccess {
		t.Fatalf("counts exit = %v", got)
	}
}

func TestPerksCmd(t *testing.T) {
	dir := t.TempDir()
	cardsPath := filepath.Join(dir, "cards.json")
	storePath := filepath.Join(dir, "wallet.sqlite3")
	cards := `[{"card_name": "Gold Card", "issuer": "Amex", "annual_fee": 250, "type": "charge", "base_reward_rate": 1,
	  "bonus_categories": [{"category_name": "Dining", "reward_rate": 4}], "perks": [{"perk_name": "Uber Cash", "frequency": "monthly"}]}]`
	if err := os.WriteFile(cardsPath, []byte(cards), 0o600); err != nil {
		t.Fatal(err)
	}

	if got := execute(t, &perksCmd{}, cardsPath, storePath); got != subcommands.ExitSuccess {
		t.Fatalf("perks exit = %v", got)
	}

	c, err := store.OpenSQLite(storePath)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer c.Close()
	stored, err := c.Cards(context.Background())
	if err != nil || len(stored) != 1 || len(stored[0].BonusCategories) != 1 {
		t.Errorf("cards = %+v, %v", stored, err)
	}
}
