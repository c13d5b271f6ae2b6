package store

import (
	"context"
	"database/sql"

	"github.com/baely/walletsync/internal/common/errors"
	"github.com/baely/walletsync/internal/wallet"
)

// UpsertAccount inserts the account or overwrites every field of the stored
// row.
func (t *Tx) UpsertAccount(ctx context.Context, a wallet.Account) error {
	q := `INSERT INTO accounts (account_id, mask, name, official_name, subtype, type)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (account_id) DO UPDATE SET
		  mask = excluded.mask,
		  name = excluded.name,
		  official_name = excluded.official_name,
		  subtype = excluded.subtype,
		  type = excluded.type`
	_, err := t.exec(ctx, q, a.AccountID, a.Mask, a.Name, a.OfficialName, a.Subtype, a.Type)
	return errors.Wrap(err, "upsert account %s", a.AccountID)
}

// EnsureAccount inserts the account only when no row exists for its id.
func (t *Tx) EnsureAccount(ctx context.Context, a wallet.Account) error {
	q := `INSERT INTO accounts (account_id, mask, name, official_name, subtype, type)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (account_id) DO NOTHING`
	_, err := t.exec(ctx, q, a.AccountID, a.Mask, a.Name, a.OfficialName, a.Subtype, a.Type)
	return errors.Wrap(err, "ensure account %s", a.AccountID)
}

// AccountExists reports whether an account row exists.
func (t *Tx) AccountExists(ctx context.Context, accountID string) (bool, error) {
	return t.exists(ctx, `SELECT 1 FROM accounts WHERE account_id = ?`, accountID)
}

// DeleteAccount removes the account; its transactions and their categories
// go with it.
func (t *Tx) DeleteAccount(ctx context.Context, accountID string) (bool, error) {
	res, err := t.exec(ctx, `DELETE FROM accounts WHERE account_id = ?`, accountID)
	if err != nil {
		return false, errors.Wrap(err, "delete account %s", accountID)
	}
	return affected(res)
}

// UpsertTransaction inserts the transaction or overwrites every field of the
// stored row. Categories are untouched; see ReplaceTransactionCategories.
func (t *Tx) UpsertTransaction(ctx context.Context, txn wallet.Transaction) error {
	q := `INSERT INTO transactions (transaction_id, account_id, amount, date, name, merchant_name, payment_channel)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (transaction_id) DO UPDATE SET
		  account_id = excluded.account_id,
		  amount = excluded.amount,
		  date = excluded.date,
		  name = excluded.name,
		  merchant_name = excluded.merchant_name,
		  payment_channel = excluded.payment_channel`
	_, err := t.exec(ctx, q, txn.TransactionID, txn.AccountID, txn.Amount, txn.Date, txn.Name, txn.MerchantName, txn.PaymentChannel)
	return errors.Wrap(err, "upsert transaction %s", txn.TransactionID)
}

// InsertTransactionIfAbsent inserts the transaction unless its id is
// already stored, and reports whether it did.
func (t *Tx) InsertTransactionIfAbsent(ctx context.Context, txn wallet.Transaction) (bool, error) {
	q := `INSERT INTO transactions (transaction_id, account_id, amount, date, name, merchant_name, payment_channel)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (transaction_id) DO NOTHING`
	res, err := t.exec(ctx, q, txn.TransactionID, txn.AccountID, txn.Amount, txn.Date, txn.Name, txn.MerchantName, txn.PaymentChannel)
	if err != nil {
		return false, errors.Wrap(err, "insert transaction %s", txn.TransactionID)
	}
	return affected(res)
}

// TransactionExists reports whether a transaction row exists.
func (t *Tx) TransactionExists(ctx context.Context, transactionID string) (bool, error) {
	return t.exists(ctx, `SELECT 1 FROM transactions WHERE transaction_id = ?`, transactionID)
}

// DeleteTransaction removes the transaction and its categories.
func (t *Tx) DeleteTransaction(ctx context.Context, transactionID string) (bool, error) {
	res, err := t.exec(ctx, `DELETE FROM transactions WHERE transaction_id = ?`, transactionID)
	if err != nil {
		return false, errors.Wrap(err, "delete transaction %s", transactionID)
	}
	return affected(res)
}

// ReplaceTransactionCategories deletes every category row of the
// transaction and inserts categories at ordinals 0..n-1.
func (t *Tx) ReplaceTransactionCategories(ctx context.Context, transactionID string, categories []string) error {
	if _, err := t.exec(ctx, `DELETE FROM transaction_categories WHERE transaction_id = ?`, transactionID); err != nil {
		return errors.Wrap(err, "clear categories of %s", transactionID)
	}
	for i, category := range categories {
		q := `INSERT INTO transaction_categories (transaction_id, idx, category) VALUES (?, ?, ?)`
		if _, err := t.exec(ctx, q, transactionID, int64(i), category); err != nil {
			return errors.Wrap(err, "insert category %d of %s", i, transactionID)
		}
	}
	return nil
}

// InsertCategoriesIfAbsent inserts categories at ordinals 0..n-1, leaving
// any ordinal that is already stored as it is.
func (t *Tx) InsertCategoriesIfAbsent(ctx context.Context, transactionID string, categories []string) error {
	for i, category := range categories {
		q := `INSERT INTO transaction_categories (transaction_id, idx, category) VALUES (?, ?, ?)
			ON CONFLICT (transaction_id, idx) DO NOTHING`
		if _, err := t.exec(ctx, q, transactionID, int64(i), category); err != nil {
			return errors.Wrap(err, "insert category %d of %s", i, transactionID)
		}
	}
	return nil
}

// UpsertItem inserts the item or overwrites every field of the stored row.
func (t *Tx) UpsertItem(ctx context.Context, item wallet.Item) error {
	q := `INSERT INTO items (item_id, institution_id, webhook)
		VALUES (?, ?, ?)
		ON CONFLICT (item_id) DO UPDATE SET
		  institution_id = excluded.institution_id,
		  webhook = excluded.webhook`
	_, err := t.exec(ctx, q, item.ItemID, item.InstitutionID, item.Webhook)
	return errors.Wrap(err, "upsert item %s", item.ItemID)
}

// ReplaceMeta empties the meta table and writes the single row for this
// run. Meta is a slot, not a keyed table: clearing it first is what keeps
// exactly one row.
func (t *Tx) ReplaceMeta(ctx context.Context, m wallet.Meta) error {
	if _, err := t.exec(ctx, `DELETE FROM meta`); err != nil {
		return errors.Wrap(err, "clear meta")
	}
	_, err := t.exec(ctx, `INSERT INTO meta (request_id, total_transactions) VALUES (?, ?)`, m.RequestID, nullInt(m.TotalTransactions))
	return errors.Wrap(err, "insert meta")
}

func (t *Tx) exists(ctx context.Context, query string, args ...interface{}) (bool, error) {
	var one int
	err := t.queryRow(ctx, query, args...).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func nullInt(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func intPtr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}
