package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"sync"

	"github.com/baely/walletsync/internal/common/errors"
	"github.com/baely/walletsync/internal/normalize"
	"github.com/baely/walletsync/internal/plaid"
	"github.com/baely/walletsync/internal/wallet"
)

// SyncerConfig contains configuration for the Syncer
type SyncerConfig struct {
	// AccessToken is used by webhook-triggered runs.
	AccessToken string
	// SnapshotPath, when set, receives the interchange document of every
	// pull before it is merged.
	SnapshotPath string
	Logger       *slog.Logger
}

// DefaultSyncerConfig returns the default syncer configuration
func DefaultSyncerConfig() *SyncerConfig {
	return &SyncerConfig{
		AccessToken:  os.Getenv("PLAID_ACCESS_TOKEN"),
		SnapshotPath: os.Getenv("WALLETSYNC_SNAPSHOT"),
		Logger:       slog.Default(),
	}
}

// Syncer pulls everything from the provider and merges it.
type Syncer struct {
	puller      *plaid.Puller
	engine      *Engine
	accessToken string
	snapshot    string
	logger      *slog.Logger

	mu     sync.Mutex
	itemID string
}

// NewSyncer creates a Syncer with the default configuration
func NewSyncer(puller *plaid.Puller, engine *Engine) *Syncer {
	return NewSyncerWithConfig(puller, engine, DefaultSyncerConfig())
}

// NewSyncerWithConfig creates a Syncer with custom configuration
func NewSyncerWithConfig(puller *plaid.Puller, engine *Engine, cfg *SyncerConfig) *Syncer {
	s := &Syncer{
		puller:      puller,
		engine:      engine,
		accessToken: cfg.AccessToken,
		snapshot:    cfg.SnapshotPath,
		logger:      cfg.Logger,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Pull fetches every transaction page, the accounts and the item, and
// builds the interchange document. Nothing is written to the store.
func (s *Syncer) Pull(ctx context.Context, accessToken string) (*wallet.Document, error) {
	pull, err := s.puller.PullAll(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	accounts, err := s.puller.PullAccounts(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	item, err := s.puller.PullItem(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	doc, err := normalize.FromProvider(pull, accounts, item)
	if err != nil {
		return nil, err
	}

	if s.snapshot != "" {
		if err := WriteDocument(s.snapshot, doc); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// Sync pulls and merges in one run. A failed pull leaves the store untouched.
func (s *Syncer) Sync(ctx context.Context, accessToken string) (*Report, error) {
	doc, err := s.Pull(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	report, err := s.engine.Merge(ctx, doc)
	if err != nil {
		return report, err
	}

	s.mu.Lock()
	s.itemID = doc.Item.ItemID
	s.mu.Unlock()
	return report, nil
}

// HandleSyncUpdate runs a sync with the configured access token. Updates for
// an item other than the one last synced are ignored.
func (s *Syncer) HandleSyncUpdate(ctx context.Context, itemID string) error {
	if s.accessToken == "" {
		return errors.Wrap(errors.ErrUnauthorized, "no access token configured for item %s", itemID)
	}

	s.mu.Lock()
	known := s.itemID
	s.mu.Unlock()
	if known != "" && itemID != "" && itemID != known {
		s.logger.Warn("Ignoring sync update for unknown item", "item_id", itemID, "known_item_id", known)
		return nil
	}

	report, err := s.Sync(ctx, s.accessToken)
	if err != nil {
		return errors.Wrap(err, "sync item %s", itemID)
	}
	s.logger.Info("Synced item", "item_id", itemID, "run_id", report.RunID.String(), "summary", report.Summary())
	return nil
}

// WriteDocument writes doc as indented JSON.
func WriteDocument(path string, doc *wallet.Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode document")
	}
	return errors.Wrap(os.WriteFile(path, append(data, '\n'), 0o644), "write document %s", path)
}

// ReadDocument reads and normalizes an interchange document.
func ReadDocument(path string) (*wallet.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read document %s", path)
	}
	return normalize.Document(data)
}
