// Package wallet holds the canonical records merged into the store and the
// interchange documents exchanged between the provider pull and the merge.
package wallet

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// CreditType is the account type that denotes a revolving-credit instrument.
const CreditType = "credit"

// Account is a financial account as reported by the provider.
type Account struct {
	AccountID    string `json:"account_id"`
	Mask         string `json:"mask"`
	Name         string `json:"name"`
	OfficialName string `json:"official_name"`
	Subtype      string `json:"subtype"`
	Type         string `json:"type"`
}

// Transaction is a single posted or pending transaction. Amount keeps the
// provider's sign convention.
type Transaction struct {
	TransactionID  string          `json:"transaction_id"`
	AccountID      string          `json:"account_id"`
	Amount         decimal.Decimal `json:"amount"`
	Date           string          `json:"date"`
	Name           string          `json:"name"`
	MerchantName   string          `json:"merchant_name"`
	PaymentChannel string          `json:"payment_channel"`
	Category       []string        `json:"category"`

	// AmountDefaulted is set when the source record carried no amount and
	// Amount was filled in as zero.
	AmountDefaulted bool `json:"-"`
}

// MarshalJSON writes the amount as a bare JSON number.
func (t Transaction) MarshalJSON() ([]byte, error) {
	type alias Transaction
	category := t.Category
	if category == nil {
		category = []string{}
	}
	return json.Marshal(struct {
		alias
		Amount   json.Number `json:"amount"`
		Category []string    `json:"category"`
	}{
		alias:    alias(t),
		Amount:   json.Number(t.Amount.String()),
		Category: category,
	})
}

// Item is one provider linkage session.
type Item struct {
	ItemID        string `json:"item_id"`
	InstitutionID string `json:"institution_id"`
	Webhook       string `json:"webhook"`
}

// Meta is the singleton run summary row.
type Meta struct {
	RequestID         string
	TotalTransactions *int64
}

// Document is the interchange document handed from a provider pull to the
// merge. Removed lists transaction ids the provider reported as deleted.
type Document struct {
	Accounts     []Account
	Transactions []Transaction
	Removed      []string
	Item         Item
	Meta         Meta
}

// MarshalJSON writes the document in the loader shape.
func (d Document) MarshalJSON() ([]byte, error) {
	accounts := d.Accounts
	if accounts == nil {
		accounts = []Account{}
	}
	transactions := d.Transactions
	if transactions == nil {
		transactions = []Transaction{}
	}
	return json.Marshal(struct {
		Accounts          []Account     `json:"accounts"`
		Transactions      []Transaction `json:"transactions"`
		Removed           []string      `json:"removed,omitempty"`
		Item              Item          `json:"item"`
		RequestID         string        `json:"request_id"`
		TotalTransactions *int64        `json:"total_transactions"`
	}{
		Accounts:          accounts,
		Transactions:      transactions,
		Removed:           d.Removed,
		Item:              d.Item,
		RequestID:         d.Meta.RequestID,
		TotalTransactions: d.Meta.TotalTransactions,
	})
}

// Card is the local instrument record. AccountID is the optional provider
// linkage key; Name and Issuer form the natural key.
type Card struct {
	ID             int64
	AccountID      string
	Name           string
	Issuer         string
	AnnualFee      decimal.NullDecimal
	Type           string
	BaseRewardRate decimal.NullDecimal

	WelcomeBonus    *WelcomeBonus
	BonusCategories []BonusCategory
	Perks           []Perk
	CurrentPeriod   *CurrentPeriod
}

// BonusCategory is an elevated reward rate on a spending category.
type BonusCategory struct {
	CategoryName string
	RewardRate   decimal.NullDecimal
	Cap          decimal.NullDecimal
	Note         string
}

// Perk is a non-rate benefit of a card.
type Perk struct {
	PerkName    string
	Description string
	Frequency   string
}

// WelcomeBonus holds sign-up reward terms. Whichever columns apply are set.
type WelcomeBonus struct {
	Points           *int64
	CashBack         decimal.NullDecimal
	PointsOrCash     decimal.NullDecimal
	SpendRequirement decimal.NullDecimal
	TimeFrameMonths  *int64
}

// CurrentPeriod is the card's current statement or benefit period.
type CurrentPeriod struct {
	StartDate string
	EndDate   string
}

// Int64 returns a pointer to v.
func Int64(v int64) *int64 {
	return &v
}
