package seed

import (
	"context"
	"time"

	"github.com/baely/walletsync/internal/common/logger"
	"github.com/baely/walletsync/internal/wallet"
)

// Store is the part of a store transaction seeding writes through.
type Store interface {
	TransactionExists(ctx context.Context, transactionID string) (bool, error)
	InsertTransactionIfAbsent(ctx context.Context, txn wallet.Transaction) (bool, error)
	InsertCategoriesIfAbsent(ctx context.Context, transactionID string, categories []string) error
}

// Result counts what a Seed call did.
type Result struct {
	Inserted int
	Skipped  int
	// Unmatched counts accounts no rule applied to.
	Unmatched int
}

// Build returns the seed transaction a rule creates for an account.
func Build(a wallet.Account, r Rule, asOf time.Time) wallet.Transaction {
	return wallet.Transaction{
		TransactionID:  SeedID(a.AccountID, r.Name),
		AccountID:      a.AccountID,
		Amount:         r.Amount,
		Date:           asOf.AddDate(0, 0, -r.DaysAgo).Format("2006-01-02"),
		Name:           r.Description,
		MerchantName:   r.MerchantName,
		PaymentChannel: r.PaymentChannel,
		Category:       r.Categories,
	}
}

// Seed inserts one seed per account from its first matching rule. A seed
// whose id is already stored is skipped; other transactions on the account
// do not matter.
func Seed(ctx context.Context, s Store, accounts []wallet.Account, rules []Rule, asOf time.Time) (Result, error) {
	log := logger.FromContext(ctx)

	var res Result
	for _, a := range accounts {
		rule, ok := FirstMatch(a, rules)
		if !ok {
			res.Unmatched++
			continue
		}

		txn := Build(a, rule, asOf)
		exists, err := s.TransactionExists(ctx, txn.TransactionID)
		if err != nil {
			return res, err
		}
		if exists {
			res.Skipped++
			continue
		}

		if _, err := s.InsertTransactionIfAbsent(ctx, txn); err != nil {
			return res, err
		}
		if err := s.InsertCategoriesIfAbsent(ctx, txn.TransactionID, txn.Category); err != nil {
			return res, err
		}
		res.Inserted++
		log.Debug("Seeded transaction", "account_id", a.AccountID, "rule", rule.Name, "transaction_id", txn.TransactionID)
	}
	return res, nil
}
