package pipeline

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/baely/walletsync/internal/common/errors"
)

// Report counts what one run wrote.
type Report struct {
	RunID            uuid.UUID
	Accounts         int
	Transactions     int
	Categories       int
	Removed          int
	Cards            int
	Seeded           int
	SeedsSkipped     int
	DefaultedAmounts int
	Violations       []*errors.ConstraintViolation
}

// Summary renders the report as one line.
func (r *Report) Summary() string {
	return fmt.Sprintf("accounts=%d transactions=%d categories=%d removed=%d cards=%d seeded=%d seeds_skipped=%d defaulted_amounts=%d violations=%d",
		r.Accounts, r.Transactions, r.Categories, r.Removed, r.Cards,
		r.Seeded, r.SeedsSkipped, r.DefaultedAmounts, len(r.Violations))
}
