package store

import (
	"context"
	"database/sql"

	"github.com/baely/walletsync/internal/common/errors"
	"github.com/baely/walletsync/internal/wallet"
)

// UpsertCard inserts the card or updates fee, type and base rate of the row
// with the same (card_name, issuer), returning the row id. Linkage is left
// alone.
func (t *Tx) UpsertCard(ctx context.Context, c wallet.Card) (int64, error) {
	q := `INSERT INTO cards (card_name, issuer, annual_fee, type, base_reward_rate)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (card_name, issuer) DO UPDATE SET
		  annual_fee = excluded.annual_fee,
		  type = excluded.type,
		  base_reward_rate = excluded.base_reward_rate
		RETURNING id`
	var id int64
	err := t.queryRow(ctx, q, c.Name, c.Issuer, c.AnnualFee, c.Type, c.BaseRewardRate).Scan(&id)
	if err != nil {
		return 0, errors.Wrap(err, "upsert card %s/%s", c.Name, c.Issuer)
	}
	return id, nil
}

// CardByLinkage returns the id of the card linked to accountID, or nil.
func (t *Tx) CardByLinkage(ctx context.Context, accountID string) (*int64, error) {
	var id int64
	err := t.queryRow(ctx, `SELECT id FROM cards WHERE account_id = ?`, accountID).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, errors.Wrap(err, "card by linkage %s", accountID)
	}
	return &id, nil
}

// CardByNaturalKey returns the id of the card stored under (name, issuer)
// and the account it is linked to, if any. The id is nil when no such card
// exists.
func (t *Tx) CardByNaturalKey(ctx context.Context, name, issuer string) (*int64, string, error) {
	var id int64
	var linked sql.NullString
	q := `SELECT id, account_id FROM cards WHERE card_name = ? AND issuer = ?`
	err := t.queryRow(ctx, q, name, issuer).Scan(&id, &linked)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, "", nil
	case err != nil:
		return nil, "", errors.Wrap(err, "card by natural key %s/%s", name, issuer)
	}
	return &id, linked.String, nil
}

// InsertLinkedCard creates a card carrying its linkage key. It reports false
// without error when another card already holds the natural key.
func (t *Tx) InsertLinkedCard(ctx context.Context, c wallet.Card) (int64, bool, error) {
	q := `INSERT INTO cards (account_id, card_name, issuer, annual_fee, type, base_reward_rate)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
		RETURNING id`
	var id int64
	err := t.queryRow(ctx, q, c.AccountID, c.Name, c.Issuer, c.AnnualFee, c.Type, c.BaseRewardRate).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return 0, false, nil
	case err != nil:
		return 0, false, errors.Wrap(err, "insert card %s/%s", c.Name, c.Issuer)
	}
	return id, true, nil
}

// UpdateLinkedCard refreshes the descriptive fields of the card with the
// given id. With rename false the natural key columns are kept.
func (t *Tx) UpdateLinkedCard(ctx context.Context, id int64, c wallet.Card, rename bool) error {
	var err error
	if rename {
		_, err = t.exec(ctx, `UPDATE cards SET card_name = ?, issuer = ?, type = ? WHERE id = ?`, c.Name, c.Issuer, c.Type, id)
	} else {
		_, err = t.exec(ctx, `UPDATE cards SET type = ? WHERE id = ?`, c.Type, id)
	}
	return errors.Wrap(err, "update card %d", id)
}

// UpdateCardLinkage attaches accountID to an existing card and refreshes its
// type. Fee and reward rate stay as curated.
func (t *Tx) UpdateCardLinkage(ctx context.Context, id int64, c wallet.Card) error {
	_, err := t.exec(ctx, `UPDATE cards SET account_id = ?, type = ? WHERE id = ?`, c.AccountID, c.Type, id)
	return errors.Wrap(err, "link card %d to %s", id, c.AccountID)
}

// ReplaceBonusCategories rewrites the bonus tiers of a card.
func (t *Tx) ReplaceBonusCategories(ctx context.Context, cardID int64, bonuses []wallet.BonusCategory) error {
	if _, err := t.exec(ctx, `DELETE FROM bonus_categories WHERE card_id = ?`, cardID); err != nil {
		return errors.Wrap(err, "clear bonus categories of card %d", cardID)
	}
	for i, b := range bonuses {
		q := `INSERT INTO bonus_categories (card_id, idx, category_name, reward_rate, cap, note) VALUES (?, ?, ?, ?, ?, ?)`
		if _, err := t.exec(ctx, q, cardID, int64(i), b.CategoryName, b.RewardRate, b.Cap, b.Note); err != nil {
			return errors.Wrap(err, "insert bonus category %d of card %d", i, cardID)
		}
	}
	return nil
}

// ReplacePerks rewrites the perks of a card.
func (t *Tx) ReplacePerks(ctx context.Context, cardID int64, perks []wallet.Perk) error {
	if _, err := t.exec(ctx, `DELETE FROM perks WHERE card_id = ?`, cardID); err != nil {
		return errors.Wrap(err, "clear perks of card %d", cardID)
	}
	for i, p := range perks {
		q := `INSERT INTO perks (card_id, idx, perk_name, description, frequency) VALUES (?, ?, ?, ?, ?)`
		if _, err := t.exec(ctx, q, cardID, int64(i), p.PerkName, p.Description, p.Frequency); err != nil {
			return errors.Wrap(err, "insert perk %d of card %d", i, cardID)
		}
	}
	return nil
}

// ReplaceWelcomeBonus deletes the card's welcome bonus and writes wb in its
// place. A nil wb leaves the card without one.
func (t *Tx) ReplaceWelcomeBonus(ctx context.Context, cardID int64, wb *wallet.WelcomeBonus) error {
	if _, err := t.exec(ctx, `DELETE FROM welcome_bonuses WHERE card_id = ?`, cardID); err != nil {
		return errors.Wrap(err, "clear welcome bonus of card %d", cardID)
	}
	if wb == nil {
		return nil
	}
	q := `INSERT INTO welcome_bonuses (card_id, points, cash_back, points_or_cash, spend_requirement, time_frame_months)
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err := t.exec(ctx, q, cardID, nullInt(wb.Points), wb.CashBack, wb.PointsOrCash, wb.SpendRequirement, nullInt(wb.TimeFrameMonths))
	return errors.Wrap(err, "insert welcome bonus of card %d", cardID)
}

// ReplaceCurrentPeriod deletes the card's current period and writes p in
// its place. A nil p leaves the card without one.
func (t *Tx) ReplaceCurrentPeriod(ctx context.Context, cardID int64, p *wallet.CurrentPeriod) error {
	if _, err := t.exec(ctx, `DELETE FROM card_current_period WHERE card_id = ?`, cardID); err != nil {
		return errors.Wrap(err, "clear current period of card %d", cardID)
	}
	if p == nil {
		return nil
	}
	q := `INSERT INTO card_current_period (card_id, start_date, end_date) VALUES (?, ?, ?)`
	_, err := t.exec(ctx, q, cardID, p.StartDate, p.EndDate)
	return errors.Wrap(err, "insert current period of card %d", cardID)
}
