package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"github.com/baely/walletsync/internal/common/errors"
	"github.com/baely/walletsync/internal/wallet"
)

func openTestStore(t *testing.T) *Client {
	t.Helper()
	c, err := OpenSQLite(filepath.Join(t.TempDir(), "wallet.sqlite3"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	if err := c.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	return c
}

func mustTx(t *testing.T, c *Client, fn func(tx *Tx) error) {
	t.Helper()
	if err := c.WithTx(context.Background(), fn); err != nil {
		t.Fatalf("WithTx: %v", err)
	}
}

func TestRebind(t *testing.T) {
	q := `SELECT a FROM t WHERE b = ? AND c = ?`
	if got := rebind(SQLite, q); got != q {
		t.Errorf("sqlite query rewritten: %s", got)
	}
	if got, want := rebind(Postgres, q), `SELECT a FROM t WHERE b = $1 AND c = $2`; got != want {
		t.Errorf("rebind = %s, want %s", got, want)
	}
}

func TestParseDialect(t *testing.T) {
	for in, want := range map[string]Dialect{"": SQLite, "sqlite": SQLite, "postgres": Postgres, "PostgreSQL": Postgres} {
		got, err := ParseDialect(in)
		if err != nil || got != want {
			t.Errorf("ParseDialect(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseDialect("mysql"); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("expected invalid input for mysql, got %v", err)
	}
}

func TestEnsureSchema_Idempotent(t *testing.T) {
	c := openTestStore(t)
	ctx := context.Background()

	mustTx(t, c, func(tx *Tx) error {
		return tx.UpsertAccount(ctx, wallet.Account{AccountID: "acc-1", Name: "Checking"})
	})

	for i := 0; i < 2; i++ {
		if err := c.EnsureSchema(ctx); err != nil {
			t.Fatalf("EnsureSchema run %d: %v", i+2, err)
		}
	}

	if _, err := c.Account(ctx, "acc-1"); err != nil {
		t.Errorf("data lost across schema runs: %v", err)
	}

	var linked int
	if err := c.DB().QueryRow(`SELECT COUNT(*) FROM pragma_table_info('cards') WHERE name = 'account_id'`).Scan(&linked); err != nil {
		t.Fatalf("inspect cards: %v", err)
	}
	if linked != 1 {
		t.Errorf("cards.account_id columns = %d, want 1", linked)
	}
}

func TestCounts_Missing(t *testing.T) {
	c, err := OpenSQLite(filepath.Join(t.TempDir(), "empty.sqlite3"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer c.Close()

	counts, err := c.Counts(context.Background())
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if len(counts) != len(Tables) {
		t.Fatalf("counts = %d, want %d", len(counts), len(Tables))
	}
	for _, tc := range counts {
		if !tc.Missing || tc.String() != tc.Table+"=MISSING" {
			t.Errorf("%s should be missing, got %s", tc.Table, tc)
		}
	}
}

func TestReplaceTransactionCategories(t *testing.T) {
	c := openTestStore(t)
	ctx := context.Background()

	txn := wallet.Transaction{TransactionID: "tx-1", AccountID: "acc-1", Amount: decimal.RequireFromString("10.25"), Date: "2024-01-01"}
	mustTx(t, c, func(tx *Tx) error {
		if err := tx.UpsertAccount(ctx, wallet.Account{AccountID: "acc-1"}); err != nil {
			return err
		}
		if err := tx.UpsertTransaction(ctx, txn); err != nil {
			return err
		}
		return tx.ReplaceTransactionCategories(ctx, "tx-1", []string{"A", "B"})
	})
	mustTx(t, c, func(tx *Tx) error {
		return tx.ReplaceTransactionCategories(ctx, "tx-1", []string{"C"})
	})

	got, err := c.Categories(ctx, "tx-1")
	if err != nil {
		t.Fatalf("Categories: %v", err)
	}
	if diff := cmp.Diff([]string{"C"}, got); diff != "" {
		t.Errorf("categories mismatch (-want +got):\n%s", diff)
	}

	var idx int
	if err := c.DB().QueryRow(`SELECT idx FROM transaction_categories WHERE transaction_id = 'tx-1'`).Scan(&idx); err != nil || idx != 0 {
		t.Errorf("remaining category ordinal = %d (%v), want 0", idx, err)
	}

	mustTx(t, c, func(tx *Tx) error {
		return tx.ReplaceTransactionCategories(ctx, "tx-1", nil)
	})
	if got, _ := c.Categories(ctx, "tx-1"); len(got) != 0 {
		t.Errorf("empty input should leave zero rows, got %v", got)
	}
}

func TestInsertCategoriesIfAbsent(t *testing.T) {
	c := openTestStore(t)
	ctx := context.Background()

	mustTx(t, c, func(tx *Tx) error {
		if err := tx.UpsertAccount(ctx, wallet.Account{AccountID: "acc-1"}); err != nil {
			return err
		}
		if _, err := tx.InsertTransactionIfAbsent(ctx, wallet.Transaction{TransactionID: "s-1", AccountID: "acc-1", Date: "2024-01-01"}); err != nil {
			return err
		}
		return tx.InsertCategoriesIfAbsent(ctx, "s-1", []string{"Payment", "Rent"})
	})
	mustTx(t, c, func(tx *Tx) error {
		inserted, err := tx.InsertTransactionIfAbsent(ctx, wallet.Transaction{TransactionID: "s-1", AccountID: "acc-1", Date: "2030-01-01"})
		if err != nil {
			return err
		}
		if inserted {
			t.Errorf("second insert reported as inserted")
		}
		return tx.InsertCategoriesIfAbsent(ctx, "s-1", []string{"Edited"})
	})

	got, _ := c.Categories(ctx, "s-1")
	if diff := cmp.Diff([]string{"Payment", "Rent"}, got); diff != "" {
		t.Errorf("insert-if-absent must not edit rows (-want +got):\n%s", diff)
	}
	txn, err := c.Transaction(ctx, "s-1")
	if err != nil || txn.Date != "2024-01-01" {
		t.Errorf("transaction edited by second insert: %+v, %v", txn, err)
	}
}

func TestDeleteAccount_Cascades(t *testing.T) {
	c := openTestStore(t)
	ctx := context.Background()

	mustTx(t, c, func(tx *Tx) error {
		for _, id := range []string{"acc-1", "acc-2"} {
			if err := tx.UpsertAccount(ctx, wallet.Account{AccountID: id}); err != nil {
				return err
			}
		}
		for _, txn := range []wallet.Transaction{
			{TransactionID: "tx-1", AccountID: "acc-1", Date: "2024-01-01"},
			{TransactionID: "tx-2", AccountID: "acc-1", Date: "2024-01-02"},
			{TransactionID: "tx-3", AccountID: "acc-2", Date: "2024-01-03"},
		} {
			if err := tx.UpsertTransaction(ctx, txn); err != nil {
				return err
			}
			if err := tx.ReplaceTransactionCategories(ctx, txn.TransactionID, []string{"X", "Y"}); err != nil {
				return err
			}
		}
		return nil
	})

	mustTx(t, c, func(tx *Tx) error {
		deleted, err := tx.DeleteAccount(ctx, "acc-1")
		if !deleted {
			t.Errorf("acc-1 not deleted")
		}
		return err
	})

	snap, err := c.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap["transactions"]) != 1 {
		t.Errorf("transactions left = %v", snap["transactions"])
	}
	want := []string{
		"transaction_id=tx-3 idx=0 category=X",
		"transaction_id=tx-3 idx=1 category=Y",
	}
	if diff := cmp.Diff(want, snap["transaction_categories"]); diff != "" {
		t.Errorf("orphan categories survived (-want +got):\n%s", diff)
	}
}

func TestUpsertTransaction_ForeignKey(t *testing.T) {
	c := openTestStore(t)
	ctx := context.Background()

	err := c.WithTx(ctx, func(tx *Tx) error {
		return tx.UpsertTransaction(ctx, wallet.Transaction{TransactionID: "tx-1", AccountID: "nobody", Date: "2024-01-01"})
	})
	if err == nil {
		t.Fatal("expected foreign key failure")
	}
}

func TestUpsertOverwritesEveryField(t *testing.T) {
	c := openTestStore(t)
	ctx := context.Background()

	mustTx(t, c, func(tx *Tx) error {
		return tx.UpsertAccount(ctx, wallet.Account{AccountID: "acc-1", Mask: "1111", Name: "Old", OfficialName: "Old Official", Subtype: "checking", Type: "depository"})
	})
	mustTx(t, c, func(tx *Tx) error {
		return tx.UpsertAccount(ctx, wallet.Account{AccountID: "acc-1", Name: "New", Type: "depository"})
	})

	got, err := c.Account(ctx, "acc-1")
	if err != nil {
		t.Fatalf("Account: %v", err)
	}
	want := wallet.Account{AccountID: "acc-1", Name: "New", Type: "depository"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("account mismatch (-want +got):\n%s", diff)
	}

	mustTx(t, c, func(tx *Tx) error {
		return tx.EnsureAccount(ctx, wallet.Account{AccountID: "acc-1", Name: "Ignored"})
	})
	if got, _ := c.Account(ctx, "acc-1"); got.Name != "New" {
		t.Errorf("EnsureAccount overwrote an existing account: %+v", got)
	}
}

func TestDecimalsKeepPrecision(t *testing.T) {
	c := openTestStore(t)
	ctx := context.Background()

	amount := decimal.RequireFromString("12345678901234567.891")
	mustTx(t, c, func(tx *Tx) error {
		if err := tx.UpsertAccount(ctx, wallet.Account{AccountID: "acc-1", Type: "depository"}); err != nil {
			return err
		}
		return tx.UpsertTransaction(ctx, wallet.Transaction{TransactionID: "tx-1", AccountID: "acc-1", Amount: amount, Date: "2024-03-01"})
	})

	got, err := c.Transaction(ctx, "tx-1")
	if err != nil {
		t.Fatalf("Transaction: %v", err)
	}
	if !got.Amount.Equal(amount) {
		t.Errorf("amount = %s, want %s", got.Amount, amount)
	}

	snap, err := c.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if rows := snap["transactions"]; len(rows) != 1 || !strings.Contains(rows[0], "amount=12345678901234567.891") {
		t.Errorf("transactions = %v", rows)
	}
}

func TestReplaceMeta(t *testing.T) {
	c := openTestStore(t)
	ctx := context.Background()

	if _, err := c.Meta(ctx); !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound before first run, got %v", err)
	}

	for i, m := range []wallet.Meta{
		{RequestID: "req-1", TotalTransactions: wallet.Int64(5)},
		{RequestID: "req-2"},
	} {
		mustTx(t, c, func(tx *Tx) error { return tx.ReplaceMeta(ctx, m) })

		var n int
		if err := c.DB().QueryRow(`SELECT COUNT(*) FROM meta`).Scan(&n); err != nil || n != 1 {
			t.Fatalf("run %d: meta rows = %d (%v), want 1", i, n, err)
		}
	}

	got, err := c.Meta(ctx)
	if err != nil {
		t.Fatalf("Meta: %v", err)
	}
	if got.RequestID != "req-2" || got.TotalTransactions != nil {
		t.Errorf("meta = %+v", got)
	}
}

func TestWithTx_RollsBack(t *testing.T) {
	c := openTestStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := c.WithTx(ctx, func(tx *Tx) error {
		if err := tx.UpsertAccount(ctx, wallet.Account{AccountID: "acc-1"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx err = %v, want boom", err)
	}
	if _, err := c.Account(ctx, "acc-1"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("rolled back account is visible: %v", err)
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Errorf("panic was swallowed")
			}
		}()
		_ = c.WithTx(ctx, func(tx *Tx) error {
			_ = tx.UpsertAccount(ctx, wallet.Account{AccountID: "acc-2"})
			panic("boom")
		})
	}()
	if _, err := c.Account(ctx, "acc-2"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("account from panicking tx is visible: %v", err)
	}
}
