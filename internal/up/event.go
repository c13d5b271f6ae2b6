// Package up receives Up Bank webhooks and merges each pushed transaction
// into the store.
package up

import (
	"context"

	"github.com/baely/walletsync/internal/pipeline"
	"github.com/baely/walletsync/internal/wallet"
)

// TransactionEvent is one pushed transaction, already normalized.
type TransactionEvent struct {
	Account     wallet.Account
	Transaction wallet.Transaction
}

// TransactionEventHandler handles transaction events
type TransactionEventHandler interface {
	HandleEvent(ctx context.Context, event TransactionEvent) error
}

// Applier merges a single transaction.
type Applier interface {
	ApplyTransaction(ctx context.Context, account wallet.Account, txn wallet.Transaction) (*pipeline.Report, error)
}

// MergeHandler writes every event through an Applier.
type MergeHandler struct {
	applier Applier
}

// NewMergeHandler creates a handler merging events through applier.
func NewMergeHandler(applier Applier) *MergeHandler {
	return &MergeHandler{applier: applier}
}

// HandleEvent merges the event's account and transaction.
func (h *MergeHandler) HandleEvent(ctx context.Context, event TransactionEvent) error {
	_, err := h.applier.ApplyTransaction(ctx, event.Account, event.Transaction)
	return err
}

func (h *MergeHandler) String() string {
	return "merge"
}
