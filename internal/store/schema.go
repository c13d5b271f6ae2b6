package store

import (
	"context"
	"log/slog"
	"strings"

	"github.com/baely/walletsync/internal/common/errors"
)

// Tables lists every table the schema owns, parents before children.
var Tables = []string{
	"accounts",
	"transactions",
	"transaction_categories",
	"items",
	"meta",
	"cards",
	"bonus_categories",
	"perks",
	"welcome_bonuses",
	"card_current_period",
}

// {{id}} is replaced with the dialect's auto-increment primary key and
// {{decimal}} with its exact decimal column type. sqlite would coerce NUMERIC
// to REAL, so decimals are kept there as TEXT.
const schema = `
CREATE TABLE IF NOT EXISTS accounts (
  account_id     TEXT PRIMARY KEY,
  mask           TEXT,
  name           TEXT,
  official_name  TEXT,
  subtype        TEXT,
  type           TEXT
);

CREATE TABLE IF NOT EXISTS transactions (
  transaction_id   TEXT PRIMARY KEY,
  account_id       TEXT NOT NULL REFERENCES accounts(account_id) ON DELETE CASCADE,
  amount           {{decimal}} NOT NULL,
  date             TEXT NOT NULL,
  name             TEXT,
  merchant_name    TEXT,
  payment_channel  TEXT
);

CREATE TABLE IF NOT EXISTS transaction_categories (
  transaction_id TEXT NOT NULL REFERENCES transactions(transaction_id) ON DELETE CASCADE,
  idx            INTEGER NOT NULL,
  category       TEXT NOT NULL,
  PRIMARY KEY (transaction_id, idx)
);

CREATE TABLE IF NOT EXISTS items (
  item_id         TEXT PRIMARY KEY,
  institution_id  TEXT,
  webhook         TEXT
);

CREATE TABLE IF NOT EXISTS meta (
  request_id         TEXT,
  total_transactions INTEGER
);

CREATE TABLE IF NOT EXISTS cards (
  id               {{id}},
  card_name        TEXT NOT NULL,
  issuer           TEXT NOT NULL DEFAULT '',
  annual_fee       {{decimal}},
  type             TEXT,
  base_reward_rate {{decimal}},
  UNIQUE (card_name, issuer)
);

CREATE TABLE IF NOT EXISTS bonus_categories (
  card_id       INTEGER NOT NULL REFERENCES cards(id) ON DELETE CASCADE,
  idx           INTEGER NOT NULL,
  category_name TEXT NOT NULL,
  reward_rate   {{decimal}},
  cap           {{decimal}},
  note          TEXT,
  PRIMARY KEY (card_id, idx)
);

CREATE TABLE IF NOT EXISTS perks (
  card_id     INTEGER NOT NULL REFERENCES cards(id) ON DELETE CASCADE,
  idx         INTEGER NOT NULL,
  perk_name   TEXT NOT NULL,
  description TEXT,
  frequency   TEXT,
  PRIMARY KEY (card_id, idx)
);

CREATE TABLE IF NOT EXISTS welcome_bonuses (
  card_id            INTEGER PRIMARY KEY REFERENCES cards(id) ON DELETE CASCADE,
  points             INTEGER,
  cash_back          {{decimal}},
  points_or_cash     {{decimal}},
  spend_requirement  {{decimal}},
  time_frame_months  INTEGER
);

CREATE TABLE IF NOT EXISTS card_current_period (
  card_id    INTEGER PRIMARY KEY REFERENCES cards(id) ON DELETE CASCADE,
  start_date TEXT,
  end_date   TEXT
);

CREATE INDEX IF NOT EXISTS idx_transactions_account ON transactions(account_id);
CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(date);
CREATE INDEX IF NOT EXISTS idx_cards_issuer ON cards(issuer);
CREATE INDEX IF NOT EXISTS idx_bonus_categories_card ON bonus_categories(card_id);
CREATE INDEX IF NOT EXISTS idx_perks_card ON perks(card_id);
`

type migration struct {
	name     string
	sqlite   string
	postgres string
}

// migrations are additive steps applied after the base schema. A step that
// fails, typically because it was already applied, is logged and skipped.
var migrations = []migration{
	{
		name:     "cards.account_id",
		sqlite:   `ALTER TABLE cards ADD COLUMN account_id TEXT`,
		postgres: `ALTER TABLE cards ADD COLUMN IF NOT EXISTS account_id TEXT`,
	},
	{
		name:     "cards.account_id unique",
		sqlite:   `CREATE UNIQUE INDEX IF NOT EXISTS idx_cards_account ON cards(account_id)`,
		postgres: `CREATE UNIQUE INDEX IF NOT EXISTS idx_cards_account ON cards(account_id)`,
	},
}

// EnsureSchema creates every table and index that is missing, then applies
// the additive migrations. It is safe to call on every run.
func (c *Client) EnsureSchema(ctx context.Context) error {
	idType, decimalType := "INTEGER PRIMARY KEY AUTOINCREMENT", "TEXT"
	if c.dialect == Postgres {
		idType, decimalType = "BIGSERIAL PRIMARY KEY", "NUMERIC"
	}
	ddl := strings.NewReplacer("{{id}}", idType, "{{decimal}}", decimalType).Replace(schema)

	for _, stmt := range strings.Split(ddl, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "ensure schema")
		}
	}

	for _, m := range migrations {
		stmt := m.sqlite
		if c.dialect == Postgres {
			stmt = m.postgres
		}
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			level := slog.LevelWarn
			if alreadyApplied(err) {
				level = slog.LevelDebug
			}
			c.logger.Log(ctx, level, "Migration skipped", "error", &errors.SchemaMigrationError{Step: m.name, Err: err})
			continue
		}
		c.logger.Debug("Migration applied", "step", m.name)
	}

	return nil
}

func alreadyApplied(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate column") || strings.Contains(msg, "already exists")
}
