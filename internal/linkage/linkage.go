// Package linkage mirrors credit accounts into the cards table.
//
// A card is found by the account id it is linked to, otherwise created, and
// when creation collides with a card that already holds the same
// (card_name, issuer) that card is linked instead. Replaying an account
// never adds a second card.
package linkage

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/baely/walletsync/internal/common/errors"
	"github.com/baely/walletsync/internal/common/logger"
	"github.com/baely/walletsync/internal/wallet"
)

// Action is the outcome of resolving an account against existing cards.
type Action int

const (
	// UpdateByLinkage refreshes the card already linked to the account.
	UpdateByLinkage Action = iota
	// Insert creates a new linked card.
	Insert
	// UpdateByNaturalKey links the card that holds the same name and issuer.
	UpdateByNaturalKey
)

func (a Action) String() string {
	switch a {
	case UpdateByLinkage:
		return "update_by_linkage"
	case Insert:
		return "insert"
	case UpdateByNaturalKey:
		return "update_by_natural_key"
	}
	return "unknown"
}

// Decision names the action and, for updates, the card it applies to.
type Decision struct {
	Action Action
	CardID int64
}

// Resolve picks the action from the cards found by linkage key and by
// natural key. A linked card always wins.
func Resolve(byLinkage, byNaturalKey *int64) Decision {
	switch {
	case byLinkage != nil:
		return Decision{Action: UpdateByLinkage, CardID: *byLinkage}
	case byNaturalKey != nil:
		return Decision{Action: UpdateByNaturalKey, CardID: *byNaturalKey}
	}
	return Decision{Action: Insert}
}

// Store is the part of a store transaction the resolver writes through.
type Store interface {
	CardByLinkage(ctx context.Context, accountID string) (*int64, error)
	CardByNaturalKey(ctx context.Context, name, issuer string) (*int64, string, error)
	InsertLinkedCard(ctx context.Context, c wallet.Card) (int64, bool, error)
	UpdateLinkedCard(ctx context.Context, id int64, c wallet.Card, rename bool) error
	UpdateCardLinkage(ctx context.Context, id int64, c wallet.Card) error
}

// CardFromAccount derives the card a credit account describes. New cards
// start with no annual fee and a base reward rate of 1.
func CardFromAccount(a wallet.Account) wallet.Card {
	name := a.Name
	if name == "" {
		name = a.OfficialName
	}
	issuer := InferIssuer(a.OfficialName)
	if issuer == "" {
		issuer = InferIssuer(a.Name)
	}
	return wallet.Card{
		AccountID:      a.AccountID,
		Name:           name,
		Issuer:         issuer,
		AnnualFee:      decimal.NewNullDecimal(decimal.Zero),
		Type:           wallet.CreditType,
		BaseRewardRate: decimal.NewNullDecimal(decimal.NewFromInt(1)),
	}
}

// Link resolves a credit account to its card, creating or linking one as
// needed. The returned decision carries the card id. ok is false for
// accounts that are not credit accounts; nothing is written for them.
func Link(ctx context.Context, s Store, a wallet.Account) (Decision, bool, error) {
	if a.Type != wallet.CreditType {
		return Decision{}, false, nil
	}
	log := logger.FromContext(ctx).With("account_id", a.AccountID)

	card := CardFromAccount(a)
	if card.Name == "" {
		return Decision{}, false, &errors.MalformedRecordError{Kind: "account", Key: a.AccountID, Field: "name", Reason: "is empty, cannot name card"}
	}

	byLinkage, err := s.CardByLinkage(ctx, a.AccountID)
	if err != nil {
		return Decision{}, false, err
	}
	byNaturalKey, linkedTo, err := s.CardByNaturalKey(ctx, card.Name, card.Issuer)
	if err != nil {
		return Decision{}, false, err
	}

	d := Resolve(byLinkage, byNaturalKey)
	switch d.Action {
	case UpdateByLinkage:
		// A natural key held by another card is left alone.
		rename := byNaturalKey == nil || *byNaturalKey == d.CardID
		if !rename {
			log.Warn("Card name taken by another card, keeping old name",
				"card_id", d.CardID, "card_name", card.Name, "issuer", card.Issuer)
		}
		if err := s.UpdateLinkedCard(ctx, d.CardID, card, rename); err != nil {
			return Decision{}, false, err
		}

	case Insert:
		id, inserted, err := s.InsertLinkedCard(ctx, card)
		if err != nil {
			return Decision{}, false, err
		}
		if inserted {
			d.CardID = id
			break
		}
		byNaturalKey, linkedTo, err = s.CardByNaturalKey(ctx, card.Name, card.Issuer)
		if err != nil {
			return Decision{}, false, err
		}
		if byNaturalKey == nil {
			return Decision{}, false, errors.Wrap(errors.ErrInternal, "card %s/%s conflicted but was not found", card.Name, card.Issuer)
		}
		d = Decision{Action: UpdateByNaturalKey, CardID: *byNaturalKey}
		fallthrough

	case UpdateByNaturalKey:
		if linkedTo != "" && linkedTo != a.AccountID {
			log.Warn("Relinking card from another account", "card_id", d.CardID, "previous_account_id", linkedTo)
		}
		if err := s.UpdateCardLinkage(ctx, d.CardID, card); err != nil {
			return Decision{}, false, err
		}
	}

	log.Debug("Linked card", "card_id", d.CardID, "action", d.Action.String())
	return d, true, nil
}
