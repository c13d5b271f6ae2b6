package up

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/baely/balance/pkg/model"
	"github.com/go-chi/chi/v5"

	"github.com/baely/walletsync/internal/common/errors"
	commonHttp "github.com/baely/walletsync/internal/common/http"
	"github.com/baely/walletsync/internal/normalize"
)

// Config contains configuration for the WebhookService
type Config struct {
	UpAccessToken string
	WebhookSecret string
	// BaseURI overrides the Up API location.
	BaseURI string
	Logger  *slog.Logger
}

// DefaultConfig reads the configuration from the environment
func DefaultConfig() *Config {
	return &Config{
		UpAccessToken: os.Getenv("UP_ACCESS_TOKEN"),
		WebhookSecret: os.Getenv("UP_WEBHOOK_SECRET"),
		BaseURI:       upBaseUri,
		Logger:        slog.Default(),
	}
}

// WebhookService handles webhook events from Up Banking
type WebhookService struct {
	upClient *Client
	secret   string
	rawChan  chan []byte
	router   chi.Router
	handlers []TransactionEventHandler
	logger   *slog.Logger
}

// New creates a new WebhookService with default configuration
func New() *WebhookService {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a new WebhookService with custom configuration
func NewWithConfig(cfg *Config) *WebhookService {
	base := cfg.BaseURI
	if base == "" {
		base = upBaseUri
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	service := &WebhookService{
		upClient: NewClientWithBase(cfg.UpAccessToken, base),
		secret:   cfg.WebhookSecret,
		rawChan:  make(chan []byte, 100),
		logger:   logger,
	}

	r := commonHttp.NewRouter()
	service.Routes(r)
	r.Post("/event", service.handleWebhook)

	service.router = r

	go service.processEvents()

	return service
}

// Chi returns the router for this service
func (s *WebhookService) Chi() chi.Router {
	return s.router
}

// Routes registers the service's webhook endpoint, /up/event, on a shared
// router.
func (s *WebhookService) Routes(r chi.Router) {
	r.Post("/up/event", s.handleWebhook)
}

// RegisterHandler registers a handler for transaction events
func (s *WebhookService) RegisterHandler(handler TransactionEventHandler) {
	s.logger.Info("Registering transaction handler", "handler", handler)
	s.handlers = append(s.handlers, handler)
}

func (s *WebhookService) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.logger.Error("Failed to read request body", "error", err)
		commonHttp.Error(w, errors.Wrap(err, "failed to read request body"), http.StatusInternalServerError)
		return
	}

	signature := r.Header.Get("X-Up-Authenticity-Signature")
	if !ValidSignature(s.secret, body, signature) {
		s.logger.Warn("Invalid webhook signature", "signature", signature)
		commonHttp.HandleError(w, errors.ErrUnauthorized)
		return
	}

	s.rawChan <- body

	commonHttp.Accepted(w)
}

// processEvents handles queued events one at a time
func (s *WebhookService) processEvents() {
	s.logger.Info("Starting up webhook processor")
	for raw := range s.rawChan {
		if err := s.processEvent(context.Background(), raw); err != nil {
			s.logger.Error("Failed to process event", "error", err)
		}
	}
}

func (s *WebhookService) processEvent(ctx context.Context, raw []byte) error {
	var event model.WebhookEventCallback
	if err := json.Unmarshal(raw, &event); err != nil {
		return errors.Wrap(errors.ErrInvalidInput, "parse webhook event: %v", err)
	}
	s.logger.Info("Processing event", "type", event.Data.Type, "id", event.Data.Id)

	eventTransaction := event.Data.Relationships.Transaction
	if eventTransaction == nil {
		s.logger.Info("Event contains no transaction")
		return nil
	}
	transactionID := eventTransaction.Data.Id

	transaction, err := s.upClient.GetTransaction(ctx, transactionID)
	if err != nil {
		return errors.Wrap(err, "retrieve transaction %s", transactionID)
	}

	accountID := transaction.Relationships.Account.Data.Id
	account, err := s.upClient.GetAccount(ctx, accountID)
	if err != nil {
		return errors.Wrap(err, "retrieve account %s", accountID)
	}

	txn, err := normalize.UpTransaction(account.AccountID, transactionID, transaction)
	if err != nil {
		return err
	}

	data := TransactionEvent{Account: account, Transaction: txn}
	for _, h := range s.handlers {
		if err := h.HandleEvent(ctx, data); err != nil {
			s.logger.Error("Handler failed to process event", "handler", h, "transaction_id", transactionID, "error", err)
		}
	}
	return nil
}
