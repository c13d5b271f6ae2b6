// Package pipeline runs merges against the store. Every run executes in a
// single store transaction and commits only after all of its writes
// succeeded.
//
// The engine serializes its own runs. Separate processes writing to the same
// store must be serialized by the caller.
package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/baely/walletsync/internal/common/errors"
	"github.com/baely/walletsync/internal/common/logger"
	"github.com/baely/walletsync/internal/linkage"
	"github.com/baely/walletsync/internal/seed"
	"github.com/baely/walletsync/internal/store"
	"github.com/baely/walletsync/internal/wallet"
)

// Config contains configuration for the Engine
type Config struct {
	// Rules are the seed rules, evaluated in order. Nil uses seed.DefaultRules.
	Rules []seed.Rule
	// NoSeed disables seeding.
	NoSeed bool
	// Now supplies the seeding as-of date.
	Now    func() time.Time
	Logger *slog.Logger
}

// DefaultConfig returns the default engine configuration
func DefaultConfig() *Config {
	return &Config{
		Rules:  seed.DefaultRules(),
		Now:    time.Now,
		Logger: slog.Default(),
	}
}

// Engine merges documents, cards and single transactions into a store.
type Engine struct {
	db     *store.Client
	rules  []seed.Rule
	noSeed bool
	now    func() time.Time
	logger *slog.Logger

	mu sync.Mutex

	// beforeCommit runs last inside every merge transaction.
	beforeCommit func(tx *store.Tx) error
}

// New creates an Engine with the default configuration
func New(db *store.Client) *Engine {
	return NewWithConfig(db, DefaultConfig())
}

// NewWithConfig creates an Engine with custom configuration
func NewWithConfig(db *store.Client, cfg *Config) *Engine {
	e := &Engine{
		db:     db,
		rules:  cfg.Rules,
		noSeed: cfg.NoSeed,
		now:    cfg.Now,
		logger: cfg.Logger,
	}
	if e.rules == nil {
		e.rules = seed.DefaultRules()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// run executes fn in one store transaction under a fresh run id.
func (e *Engine) run(ctx context.Context, op string, fn func(ctx context.Context, tx *store.Tx, r *Report) error) (*Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	r := &Report{RunID: uuid.New()}
	log := e.logger.With("run_id", r.RunID.String(), "op", op)
	ctx = logger.WithContext(ctx, log)

	start := time.Now()
	err := e.db.WithTx(ctx, func(tx *store.Tx) error {
		if err := fn(ctx, tx, r); err != nil {
			return err
		}
		if e.beforeCommit != nil {
			return e.beforeCommit(tx)
		}
		return nil
	})
	if err != nil {
		log.Error("Run rolled back", "error", err, "duration", time.Since(start))
		return r, err
	}

	log.Info("Run committed", "summary", r.Summary(), "duration", time.Since(start))
	return r, nil
}

// Merge writes an interchange document: accounts, transactions with their
// categories, removals, card linkage for credit accounts, seeds, the item
// and the meta row. A transaction whose account does not exist, or a credit
// account with no name to give its card, is recorded as a violation and
// skipped. Any other failure rolls the whole run back.
func (e *Engine) Merge(ctx context.Context, doc *wallet.Document) (*Report, error) {
	if doc == nil {
		return nil, errors.Wrap(errors.ErrMalformedDocument, "nil document")
	}
	return e.run(ctx, "merge", func(ctx context.Context, tx *store.Tx, r *Report) error {
		log := logger.FromContext(ctx)

		for _, a := range doc.Accounts {
			if err := tx.UpsertAccount(ctx, a); err != nil {
				return err
			}
			r.Accounts++
		}

		known := make(map[string]bool, len(doc.Accounts))
		for _, a := range doc.Accounts {
			known[a.AccountID] = true
		}
		for _, txn := range doc.Transactions {
			if !known[txn.AccountID] {
				exists, err := tx.AccountExists(ctx, txn.AccountID)
				if err != nil {
					return err
				}
				if !exists {
					v := &errors.ConstraintViolation{
						Entity:     "transaction",
						Key:        txn.TransactionID,
						Constraint: "transactions.account_id references accounts",
						Ref:        txn.AccountID,
					}
					log.Warn("Skipping transaction", "error", v)
					r.Violations = append(r.Violations, v)
					continue
				}
				known[txn.AccountID] = true
			}

			if txn.AmountDefaulted {
				log.Warn("Transaction has no amount, stored as 0", "transaction_id", txn.TransactionID)
				r.DefaultedAmounts++
			}
			if err := tx.UpsertTransaction(ctx, txn); err != nil {
				return err
			}
			if err := tx.ReplaceTransactionCategories(ctx, txn.TransactionID, txn.Category); err != nil {
				return err
			}
			r.Transactions++
			r.Categories += len(txn.Category)
		}

		// A removed id wins over the same id in the transaction list.
		for _, id := range doc.Removed {
			deleted, err := tx.DeleteTransaction(ctx, id)
			if err != nil {
				return err
			}
			if deleted {
				r.Removed++
			}
		}

		for _, a := range doc.Accounts {
			_, linked, err := linkage.Link(ctx, tx, a)
			var malformed *errors.MalformedRecordError
			if errors.As(err, &malformed) {
				v := &errors.ConstraintViolation{
					Entity:     "card",
					Key:        a.AccountID,
					Constraint: "cards.card_name not null",
					Ref:        malformed.Field,
				}
				log.Warn("Skipping card linkage", "error", v)
				r.Violations = append(r.Violations, v)
				continue
			}
			if err != nil {
				return err
			}
			if linked {
				r.Cards++
			}
		}

		if !e.noSeed {
			res, err := seed.Seed(ctx, tx, doc.Accounts, e.rules, e.now())
			if err != nil {
				return err
			}
			r.Seeded = res.Inserted
			r.SeedsSkipped = res.Skipped
		}

		if doc.Item.ItemID != "" {
			if err := tx.UpsertItem(ctx, doc.Item); err != nil {
				return err
			}
		}

		return tx.ReplaceMeta(ctx, doc.Meta)
	})
}

// MergeCards upserts cards by natural key and replaces each card's bonus
// categories, perks, welcome bonus and current period.
func (e *Engine) MergeCards(ctx context.Context, cards []wallet.Card) (*Report, error) {
	return e.run(ctx, "cards", func(ctx context.Context, tx *store.Tx, r *Report) error {
		for _, c := range cards {
			id, err := tx.UpsertCard(ctx, c)
			if err != nil {
				return err
			}
			if err := tx.ReplaceBonusCategories(ctx, id, c.BonusCategories); err != nil {
				return err
			}
			if err := tx.ReplacePerks(ctx, id, c.Perks); err != nil {
				return err
			}
			if err := tx.ReplaceWelcomeBonus(ctx, id, c.WelcomeBonus); err != nil {
				return err
			}
			if err := tx.ReplaceCurrentPeriod(ctx, id, c.CurrentPeriod); err != nil {
				return err
			}
			r.Cards++
		}
		return nil
	})
}

// ApplyTransaction merges one pushed transaction. The account is inserted
// only if it is not stored yet; the transaction and its categories are
// replaced.
func (e *Engine) ApplyTransaction(ctx context.Context, account wallet.Account, txn wallet.Transaction) (*Report, error) {
	return e.run(ctx, "apply", func(ctx context.Context, tx *store.Tx, r *Report) error {
		if err := tx.EnsureAccount(ctx, account); err != nil {
			return err
		}
		r.Accounts++
		if txn.AmountDefaulted {
			r.DefaultedAmounts++
		}
		if err := tx.UpsertTransaction(ctx, txn); err != nil {
			return err
		}
		if err := tx.ReplaceTransactionCategories(ctx, txn.TransactionID, txn.Category); err != nil {
			return err
		}
		r.Transactions++
		r.Categories += len(txn.Category)
		return nil
	})
}
