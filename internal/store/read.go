package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/baely/walletsync/internal/common/errors"
	"github.com/baely/walletsync/internal/wallet"
)

// TableCount is the row count of one table. Missing is set when the table
// does not exist.
type TableCount struct {
	Table   string
	Rows    int64
	Missing bool
}

func (tc TableCount) String() string {
	if tc.Missing {
		return tc.Table + "=MISSING"
	}
	return fmt.Sprintf("%s=%d", tc.Table, tc.Rows)
}

// Counts returns the row count of every table in Tables order.
func (c *Client) Counts(ctx context.Context) ([]TableCount, error) {
	counts := make([]TableCount, 0, len(Tables))
	for _, table := range Tables {
		ok, err := c.tableExists(ctx, table)
		if err != nil {
			return nil, err
		}
		if !ok {
			counts = append(counts, TableCount{Table: table, Missing: true})
			continue
		}
		var n int64
		if err := c.queryRow(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, errors.Wrap(err, "count %s", table)
		}
		counts = append(counts, TableCount{Table: table, Rows: n})
	}
	return counts, nil
}

func (c *Client) tableExists(ctx context.Context, table string) (bool, error) {
	q := `SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`
	if c.dialect == Postgres {
		q = `SELECT table_name FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = ?`
	}
	var name string
	err := c.queryRow(ctx, q, table).Scan(&name)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, errors.Wrap(err, "look up table %s", table)
	}
	return true, nil
}

// Meta returns the run summary row.
func (c *Client) Meta(ctx context.Context) (wallet.Meta, error) {
	var requestID sql.NullString
	var total sql.NullInt64
	err := c.queryRow(ctx, `SELECT request_id, total_transactions FROM meta`).Scan(&requestID, &total)
	if errors.Is(err, sql.ErrNoRows) {
		return wallet.Meta{}, errors.Wrap(errors.ErrNotFound, "meta")
	}
	if err != nil {
		return wallet.Meta{}, errors.Wrap(err, "read meta")
	}
	return wallet.Meta{RequestID: requestID.String, TotalTransactions: intPtr(total)}, nil
}

// Account returns one stored account.
func (c *Client) Account(ctx context.Context, accountID string) (wallet.Account, error) {
	var a wallet.Account
	var mask, name, official, subtype, typ sql.NullString
	q := `SELECT account_id, mask, name, official_name, subtype, type FROM accounts WHERE account_id = ?`
	err := c.queryRow(ctx, q, accountID).Scan(&a.AccountID, &mask, &name, &official, &subtype, &typ)
	if errors.Is(err, sql.ErrNoRows) {
		return a, errors.Wrap(errors.ErrNotFound, "account %s", accountID)
	}
	if err != nil {
		return a, errors.Wrap(err, "read account %s", accountID)
	}
	a.Mask, a.Name, a.OfficialName, a.Subtype, a.Type = mask.String, name.String, official.String, subtype.String, typ.String
	return a, nil
}

// Transaction returns one stored transaction with its categories.
func (c *Client) Transaction(ctx context.Context, transactionID string) (wallet.Transaction, error) {
	var t wallet.Transaction
	var name, merchant, channel sql.NullString
	q := `SELECT transaction_id, account_id, amount, date, name, merchant_name, payment_channel
		FROM transactions WHERE transaction_id = ?`
	err := c.queryRow(ctx, q, transactionID).Scan(&t.TransactionID, &t.AccountID, &t.Amount, &t.Date, &name, &merchant, &channel)
	if errors.Is(err, sql.ErrNoRows) {
		return t, errors.Wrap(errors.ErrNotFound, "transaction %s", transactionID)
	}
	if err != nil {
		return t, errors.Wrap(err, "read transaction %s", transactionID)
	}
	t.Name, t.MerchantName, t.PaymentChannel = name.String, merchant.String, channel.String

	if t.Category, err = c.Categories(ctx, transactionID); err != nil {
		return t, err
	}
	return t, nil
}

// Categories returns the categories of a transaction in ordinal order.
func (c *Client) Categories(ctx context.Context, transactionID string) ([]string, error) {
	rows, err := c.query(ctx, `SELECT category FROM transaction_categories WHERE transaction_id = ? ORDER BY idx`, transactionID)
	if err != nil {
		return nil, errors.Wrap(err, "query categories of %s", transactionID)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var category string
		if err := rows.Scan(&category); err != nil {
			return nil, errors.Wrap(err, "scan category")
		}
		out = append(out, category)
	}
	return out, rows.Err()
}

// Cards returns every card with its terms, ordered by id.
func (c *Client) Cards(ctx context.Context) ([]wallet.Card, error) {
	rows, err := c.query(ctx, `SELECT id, account_id, card_name, issuer, annual_fee, type, base_reward_rate FROM cards ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "query cards")
	}

	var cards []wallet.Card
	for rows.Next() {
		var card wallet.Card
		var account, typ sql.NullString
		if err := rows.Scan(&card.ID, &account, &card.Name, &card.Issuer, &card.AnnualFee, &typ, &card.BaseRewardRate); err != nil {
			rows.Close()
			return nil, errors.Wrap(err, "scan card")
		}
		card.AccountID, card.Type = account.String, typ.String
		cards = append(cards, card)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range cards {
		if err := c.cardTerms(ctx, &cards[i]); err != nil {
			return nil, err
		}
	}
	return cards, nil
}

func (c *Client) cardTerms(ctx context.Context, card *wallet.Card) error {
	rows, err := c.query(ctx, `SELECT category_name, reward_rate, cap, note FROM bonus_categories WHERE card_id = ? ORDER BY idx`, card.ID)
	if err != nil {
		return errors.Wrap(err, "query bonus categories of card %d", card.ID)
	}
	for rows.Next() {
		var b wallet.BonusCategory
		var note sql.NullString
		if err := rows.Scan(&b.CategoryName, &b.RewardRate, &b.Cap, &note); err != nil {
			rows.Close()
			return errors.Wrap(err, "scan bonus category")
		}
		b.Note = note.String
		card.BonusCategories = append(card.BonusCategories, b)
	}
	rows.Close()

	rows, err = c.query(ctx, `SELECT perk_name, description, frequency FROM perks WHERE card_id = ? ORDER BY idx`, card.ID)
	if err != nil {
		return errors.Wrap(err, "query perks of card %d", card.ID)
	}
	for rows.Next() {
		var p wallet.Perk
		var desc, freq sql.NullString
		if err := rows.Scan(&p.PerkName, &desc, &freq); err != nil {
			rows.Close()
			return errors.Wrap(err, "scan perk")
		}
		p.Description, p.Frequency = desc.String, freq.String
		card.Perks = append(card.Perks, p)
	}
	rows.Close()

	var wb wallet.WelcomeBonus
	var points, months sql.NullInt64
	q := `SELECT points, cash_back, points_or_cash, spend_requirement, time_frame_months FROM welcome_bonuses WHERE card_id = ?`
	err = c.queryRow(ctx, q, card.ID).Scan(&points, &wb.CashBack, &wb.PointsOrCash, &wb.SpendRequirement, &months)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return errors.Wrap(err, "read welcome bonus of card %d", card.ID)
	default:
		wb.Points, wb.TimeFrameMonths = intPtr(points), intPtr(months)
		card.WelcomeBonus = &wb
	}

	var start, end sql.NullString
	err = c.queryRow(ctx, `SELECT start_date, end_date FROM card_current_period WHERE card_id = ?`, card.ID).Scan(&start, &end)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return errors.Wrap(err, "read current period of card %d", card.ID)
	default:
		card.CurrentPeriod = &wallet.CurrentPeriod{StartDate: start.String, EndDate: end.String}
	}

	return nil
}

// Snapshot renders every row of every table as sorted text lines, keyed by
// table. Two stores with equal snapshots hold the same data.
func (c *Client) Snapshot(ctx context.Context) (map[string][]string, error) {
	out := make(map[string][]string, len(Tables))
	for _, table := range Tables {
		rows, err := c.query(ctx, "SELECT * FROM "+table)
		if err != nil {
			return nil, errors.Wrap(err, "snapshot %s", table)
		}
		cols, err := rows.Columns()
		if err != nil {
			rows.Close()
			return nil, err
		}

		lines := []string{}
		for rows.Next() {
			values := make([]interface{}, len(cols))
			ptrs := make([]interface{}, len(cols))
			for i := range values {
				ptrs[i] = &values[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				rows.Close()
				return nil, errors.Wrap(err, "scan %s", table)
			}
			fields := make([]string, len(cols))
			for i, v := range values {
				fields[i] = cols[i] + "=" + render(v)
			}
			lines = append(lines, strings.Join(fields, " "))
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}

		sort.Strings(lines)
		out[table] = lines
	}
	return out, nil
}

func render(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(t)
	case float64:
		return decimal.NewFromFloat(t).String()
	}
	return fmt.Sprint(v)
}
