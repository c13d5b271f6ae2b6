package linkage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/baely/walletsync/internal/store"
	"github.com/baely/walletsync/internal/wallet"
)

func id(v int64) *int64 { return &v }

func TestResolve(t *testing.T) {
	tests := []struct {
		name         string
		byLinkage    *int64
		byNaturalKey *int64
		want         Decision
	}{
		{"nothing stored", nil, nil, Decision{Action: Insert}},
		{"linked card", id(3), nil, Decision{Action: UpdateByLinkage, CardID: 3}},
		{"linked card wins over natural key", id(3), id(7), Decision{Action: UpdateByLinkage, CardID: 3}},
		{"natural key only", nil, id(7), Decision{Action: UpdateByNaturalKey, CardID: 7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve(tt.byLinkage, tt.byNaturalKey); got != tt.want {
				t.Errorf("Resolve = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestInferIssuer(t *testing.T) {
	tests := map[string]string{
		"American Express Gold Card":                   "Amex",
		"AMEX Platinum":                                "Amex",
		"Chase Sapphire Preferred":                     "Chase",
		"Capital One Venture":                          "Capital One",
		"Plaid Diamond 12.5% APR Interest Credit Card": "Plaid Diamond 12.5% APR Interest",
		"Acme Bank - Rewards":                          "Acme Bank",
		"Acme Rewards Card":                            "Acme Rewards",
		"Acme | Platinum":                              "Acme",
		"Credit Card":                                  "",
		"Plaid Saving":                                 "",
		"":                                             "",
	}
	for in, want := range tests {
		if got := InferIssuer(in); got != want {
			t.Errorf("InferIssuer(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCardFromAccount(t *testing.T) {
	card := CardFromAccount(wallet.Account{AccountID: "acc-1", OfficialName: "Amex Gold Card", Type: "credit"})
	if card.Name != "Amex Gold Card" || card.Issuer != "Amex" || card.Type != wallet.CreditType {
		t.Errorf("card = %+v", card)
	}
	if !card.AnnualFee.Decimal.IsZero() || !card.BaseRewardRate.Decimal.Equal(decimal.NewFromInt(1)) {
		t.Errorf("defaults = %s / %s", card.AnnualFee.Decimal, card.BaseRewardRate.Decimal)
	}

	card = CardFromAccount(wallet.Account{AccountID: "acc-2", Name: "Gold Card", OfficialName: "Plaid Gold Standard 0% Interest Checking"})
	if card.Name != "Gold Card" || card.Issuer != "Gold" {
		t.Errorf("card = %+v", card)
	}
}

func openStore(t *testing.T) *store.Client {
	t.Helper()
	c, err := store.OpenSQLite(filepath.Join(t.TempDir(), "wallet.sqlite3"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	if err := c.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	return c
}

func link(t *testing.T, c *store.Client, a wallet.Account) Decision {
	t.Helper()
	var d Decision
	err := c.WithTx(context.Background(), func(tx *store.Tx) error {
		var err error
		d, _, err = Link(context.Background(), tx, a)
		return err
	})
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	return d
}

func TestLink_AttachesToCuratedCard(t *testing.T) {
	c := openStore(t)
	ctx := context.Background()

	var curated int64
	err := c.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		curated, err = tx.UpsertCard(ctx, wallet.Card{
			Name:      "Gold Card",
			Issuer:    "Amex",
			AnnualFee: decimal.NewNullDecimal(decimal.NewFromInt(250)),
			Type:      "charge",
		})
		return err
	})
	if err != nil {
		t.Fatalf("seed card: %v", err)
	}

	account := wallet.Account{AccountID: "acc-gold", Name: "Gold Card", OfficialName: "American Express Gold Card", Type: "credit"}
	d := link(t, c, account)
	if d.Action != UpdateByNaturalKey || d.CardID != curated {
		t.Fatalf("decision = %+v, want natural key update of %d", d, curated)
	}

	again := link(t, c, account)
	if again.Action != UpdateByLinkage || again.CardID != curated {
		t.Errorf("replay decision = %+v, want linkage update of %d", again, curated)
	}

	cards, err := c.Cards(ctx)
	if err != nil {
		t.Fatalf("Cards: %v", err)
	}
	if len(cards) != 1 {
		t.Fatalf("cards = %d, want 1", len(cards))
	}
	got := cards[0]
	if got.AccountID != "acc-gold" {
		t.Errorf("account id = %q, want acc-gold", got.AccountID)
	}
	if !got.AnnualFee.Decimal.Equal(decimal.NewFromInt(250)) {
		t.Errorf("curated fee overwritten: %s", got.AnnualFee.Decimal)
	}
}

func TestLink_InsertsOnce(t *testing.T) {
	c := openStore(t)

	account := wallet.Account{AccountID: "acc-1", Name: "Plaid Credit Card", OfficialName: "Plaid Diamond 12.5% APR Interest Credit Card", Type: "credit"}
	first := link(t, c, account)
	if first.Action != Insert {
		t.Fatalf("first decision = %+v, want insert", first)
	}

	account.Name = "Plaid Credit Card Renamed"
	second := link(t, c, account)
	if second.Action != UpdateByLinkage || second.CardID != first.CardID {
		t.Fatalf("second decision = %+v", second)
	}

	cards, _ := c.Cards(context.Background())
	if len(cards) != 1 || cards[0].Name != "Plaid Credit Card Renamed" || cards[0].Issuer != "Plaid Diamond 12.5% APR Interest" {
		t.Errorf("cards = %+v", cards)
	}
	if !cards[0].BaseRewardRate.Decimal.Equal(decimal.NewFromInt(1)) {
		t.Errorf("base rate = %s, want 1", cards[0].BaseRewardRate.Decimal)
	}
}

func TestLink_SkipsNonCredit(t *testing.T) {
	c := openStore(t)

	err := c.WithTx(context.Background(), func(tx *store.Tx) error {
		_, ok, err := Link(context.Background(), tx, wallet.Account{AccountID: "acc-1", Name: "Checking", Type: "depository"})
		if ok {
			t.Errorf("depository account was linked")
		}
		return err
	})
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	if cards, _ := c.Cards(context.Background()); len(cards) != 0 {
		t.Errorf("cards = %+v, want none", cards)
	}
}
