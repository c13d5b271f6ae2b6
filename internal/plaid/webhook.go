package plaid

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/baely/walletsync/internal/common/errors"
	commonHttp "github.com/baely/walletsync/internal/common/http"
)

// SyncHandler reacts to "new transaction data is available" webhooks.
type SyncHandler interface {
	HandleSyncUpdate(ctx context.Context, itemID string) error
}

// WebhookEvent is the part of a Plaid webhook body we route on
type WebhookEvent struct {
	WebhookType string `json:"webhook_type"`
	WebhookCode string `json:"webhook_code"`
	ItemID      string `json:"item_id"`
}

var syncCodes = map[string]bool{
	"SYNC_UPDATES_AVAILABLE": true,
	"INITIAL_UPDATE":         true,
	"HISTORICAL_UPDATE":      true,
	"DEFAULT_UPDATE":         true,
}

// WebhookConfig contains configuration for the WebhookService
type WebhookConfig struct {
	// Verifier checks the Plaid-Verification header; nil disables the check.
	Verifier *Verifier
	Logger   *slog.Logger
}

// WebhookService receives Plaid webhooks and triggers sync runs
type WebhookService struct {
	rawChan  chan []byte
	router   chi.Router
	handlers []SyncHandler
	verifier *Verifier
	logger   *slog.Logger
}

// NewWebhook creates a WebhookService verifying tokens through client unless
// PLAID_WEBHOOK_VERIFY is false
func NewWebhook(client *Client) *WebhookService {
	cfg := &WebhookConfig{Logger: slog.Default()}
	if verify, err := strconv.ParseBool(os.Getenv("PLAID_WEBHOOK_VERIFY")); err != nil || verify {
		cfg.Verifier = NewVerifier(client)
	}
	return NewWebhookWithConfig(cfg)
}

// NewWebhookWithConfig creates a new WebhookService with custom configuration
func NewWebhookWithConfig(cfg *WebhookConfig) *WebhookService {
	service := &WebhookService{
		rawChan:  make(chan []byte, 100),
		verifier: cfg.Verifier,
		logger:   cfg.Logger,
	}

	r := commonHttp.NewRouter()
	service.Routes(r)
	r.Post("/webhook", service.handleWebhook)

	service.router = r

	go service.processEvents()

	return service
}

// Chi returns the router for this service
func (s *WebhookService) Chi() chi.Router {
	return s.router
}

// Routes registers the service's webhook endpoint, /plaid/webhook, on a shared
// router.
func (s *WebhookService) Routes(r chi.Router) {
	r.Post("/plaid/webhook", s.handleWebhook)
}

// RegisterHandler registers a handler for sync updates
func (s *WebhookService) RegisterHandler(handler SyncHandler) {
	s.logger.Info("Registering sync handler", "handler", handler)
	s.handlers = append(s.handlers, handler)
}

// handleWebhook verifies and queues an incoming webhook
func (s *WebhookService) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.logger.Error("Failed to read request body", "error", err)
		commonHttp.Error(w, errors.Wrap(err, "failed to read request body"), http.StatusInternalServerError)
		return
	}

	if s.verifier != nil {
		if err := s.verifier.Verify(r.Context(), body, r.Header.Get("Plaid-Verification")); err != nil {
			s.logger.Warn("Invalid webhook verification", "error", err)
			commonHttp.HandleError(w, err)
			return
		}
	}

	s.rawChan <- body

	commonHttp.Accepted(w)
}

// processEvents handles queued webhooks one at a time, so sync runs
// triggered from here never overlap
func (s *WebhookService) processEvents() {
	s.logger.Info("Starting plaid webhook processor")
	for raw := range s.rawChan {
		s.processEvent(context.Background(), raw)
	}
}

func (s *WebhookService) processEvent(ctx context.Context, raw []byte) {
	var event WebhookEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		s.logger.Error("Failed to parse webhook event", "error", err)
		return
	}

	s.logger.Info("Processing event", "type", event.WebhookType, "code", event.WebhookCode, "item_id", event.ItemID)

	if event.WebhookType != "TRANSACTIONS" || !syncCodes[event.WebhookCode] {
		s.logger.Info("Ignoring webhook", "type", event.WebhookType, "code", event.WebhookCode)
		return
	}

	for _, h := range s.handlers {
		if err := h.HandleSyncUpdate(ctx, event.ItemID); err != nil {
			s.logger.Error("Handler failed to process sync update", "handler", h, "item_id", event.ItemID, "error", err)
		}
	}
}
