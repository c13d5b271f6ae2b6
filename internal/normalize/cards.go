package normalize

import (
	"fmt"

	"github.com/baely/walletsync/internal/common/errors"
	"github.com/baely/walletsync/internal/wallet"
)

// Cards parses a perk document: an array of card objects, or a single card
// object.
func Cards(data []byte) ([]wallet.Card, error) {
	var v interface{}
	if err := decode(data, &v); err != nil {
		return nil, err
	}

	var objects []interface{}
	switch t := v.(type) {
	case []interface{}:
		objects = t
	case map[string]interface{}:
		objects = []interface{}{t}
	default:
		return nil, errors.Wrap(errors.ErrMalformedDocument, "top level is %s, want array or object", jsonKind(v))
	}

	cards := make([]wallet.Card, 0, len(objects))
	for i, o := range objects {
		m, ok := o.(map[string]interface{})
		if !ok {
			return nil, &errors.MalformedRecordError{Kind: "card", Field: fmt.Sprintf("[%d]", i), Reason: "is not an object"}
		}
		c, err := Card(m)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, nil
}

// Card normalizes one card object with its nested terms.
func Card(m map[string]interface{}) (wallet.Card, error) {
	r := record{kind: "card", fields: m}
	if s, ok := plain(m["card_name"]); ok {
		r.key = s
	}

	var c wallet.Card
	var err error
	if c.Name, err = r.reqString("card_name"); err != nil {
		return wallet.Card{}, err
	}
	if c.Issuer, err = r.optString("issuer"); err != nil {
		return wallet.Card{}, err
	}
	if c.Type, err = r.optString("type"); err != nil {
		return wallet.Card{}, err
	}
	if c.AnnualFee, err = r.optDecimal("annual_fee"); err != nil {
		return wallet.Card{}, err
	}
	if c.BaseRewardRate, err = r.optDecimal("base_reward_rate"); err != nil {
		return wallet.Card{}, err
	}

	wb, err := r.object("welcome_bonus")
	if err != nil {
		return wallet.Card{}, err
	}
	if wb != nil {
		if c.WelcomeBonus, err = welcomeBonus(c.Name, wb); err != nil {
			return wallet.Card{}, err
		}
	}

	period, err := r.object("current_period")
	if err != nil {
		return wallet.Card{}, err
	}
	if period != nil {
		if c.CurrentPeriod, err = currentPeriod(c.Name, period); err != nil {
			return wallet.Card{}, err
		}
	}

	bonuses, err := r.objects("bonus_categories")
	if err != nil {
		return wallet.Card{}, err
	}
	for _, b := range bonuses {
		bc, err := bonusCategory(c.Name, b)
		if err != nil {
			return wallet.Card{}, err
		}
		c.BonusCategories = append(c.BonusCategories, bc)
	}

	perks, err := r.objects("perks")
	if err != nil {
		return wallet.Card{}, err
	}
	for _, p := range perks {
		pk, err := perk(c.Name, p)
		if err != nil {
			return wallet.Card{}, err
		}
		c.Perks = append(c.Perks, pk)
	}

	return c, nil
}

func welcomeBonus(card string, m map[string]interface{}) (*wallet.WelcomeBonus, error) {
	r := record{kind: "welcome bonus", key: card, fields: m}

	wb := &wallet.WelcomeBonus{}
	var err error
	if wb.Points, err = r.optInt("points"); err != nil {
		return nil, err
	}
	if wb.CashBack, err = r.optDecimal("cash_back"); err != nil {
		return nil, err
	}
	if wb.PointsOrCash, err = r.optDecimal("points_or_cash"); err != nil {
		return nil, err
	}
	if wb.SpendRequirement, err = r.optDecimal("spend_requirement"); err != nil {
		return nil, err
	}
	if wb.TimeFrameMonths, err = r.optInt("time_frame_months"); err != nil {
		return nil, err
	}
	return wb, nil
}

func currentPeriod(card string, m map[string]interface{}) (*wallet.CurrentPeriod, error) {
	r := record{kind: "current period", key: card, fields: m}

	p := &wallet.CurrentPeriod{}
	var err error
	if p.StartDate, err = r.optString("start_date"); err != nil {
		return nil, err
	}
	if p.EndDate, err = r.optString("end_date"); err != nil {
		return nil, err
	}
	return p, nil
}

func bonusCategory(card string, m map[string]interface{}) (wallet.BonusCategory, error) {
	r := record{kind: "bonus category", key: card, fields: m}

	var b wallet.BonusCategory
	var err error
	if b.CategoryName, err = r.reqString("category_name"); err != nil {
		return b, err
	}
	if b.RewardRate, err = r.optDecimal("reward_rate"); err != nil {
		return b, err
	}
	if b.Cap, err = r.optDecimal("cap"); err != nil {
		return b, err
	}
	if b.Note, err = r.optString("note"); err != nil {
		return b, err
	}
	return b, nil
}

func perk(card string, m map[string]interface{}) (wallet.Perk, error) {
	r := record{kind: "perk", key: card, fields: m}

	var p wallet.Perk
	var err error
	if p.PerkName, err = r.reqString("perk_name"); err != nil {
		return p, err
	}
	if p.Description, err = r.optString("description"); err != nil {
		return p, err
	}
	if p.Frequency, err = r.optString("frequency"); err != nil {
		return p, err
	}
	return p, nil
}
