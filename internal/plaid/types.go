package plaid

import (
	"encoding/json"
	"fmt"
)

// AccountType is the provider's top-level account classification.
type AccountType string

// AccountSubtype refines AccountType ("checking", "credit card", ...).
type AccountSubtype string

// PaymentChannel is how a transaction was made ("online", "in store", "other").
type PaymentChannel string

const (
	AccountTypeDepository AccountType = "depository"
	AccountTypeCredit     AccountType = "credit"
	AccountTypeLoan       AccountType = "loan"
	AccountTypeInvestment AccountType = "investment"
)

// Account is an account as returned by /accounts/get.
type Account struct {
	AccountID    string          `json:"account_id"`
	Mask         *string         `json:"mask"`
	Name         string          `json:"name"`
	OfficialName *string         `json:"official_name"`
	Type         AccountType     `json:"type"`
	Subtype      *AccountSubtype `json:"subtype"`
}

// PersonalFinanceCategory is the provider's current category taxonomy.
type PersonalFinanceCategory struct {
	Primary  string `json:"primary"`
	Detailed string `json:"detailed"`
}

// Transaction is a transaction as returned by /transactions/sync. Amount is
// kept as the exact number text the provider sent.
type Transaction struct {
	TransactionID           string                   `json:"transaction_id"`
	AccountID               string                   `json:"account_id"`
	Amount                  json.Number              `json:"amount"`
	Date                    string                   `json:"date"`
	Name                    string                   `json:"name"`
	MerchantName            *string                  `json:"merchant_name"`
	PaymentChannel          PaymentChannel           `json:"payment_channel"`
	Category                []string                 `json:"category"`
	PersonalFinanceCategory *PersonalFinanceCategory `json:"personal_finance_category"`
	Pending                 bool                     `json:"pending"`
}

// RemovedTransaction identifies a transaction the provider deleted.
type RemovedTransaction struct {
	TransactionID string `json:"transaction_id"`
	AccountID     string `json:"account_id"`
}

// Item is a linkage session as returned by /item/get.
type Item struct {
	ItemID        string  `json:"item_id"`
	InstitutionID *string `json:"institution_id"`
	Webhook       *string `json:"webhook"`
}

// SyncRequest is the /transactions/sync request body. Cursor is a pointer so
// the first request omits it entirely instead of sending an empty string.
type SyncRequest struct {
	AccessToken string  `json:"access_token"`
	Cursor      *string `json:"cursor,omitempty"`
	Count       int     `json:"count,omitempty"`
}

// SyncResponse is one page of /transactions/sync.
type SyncResponse struct {
	Added      []Transaction        `json:"added"`
	Modified   []Transaction        `json:"modified"`
	Removed    []RemovedTransaction `json:"removed"`
	NextCursor string               `json:"next_cursor"`
	HasMore    bool                 `json:"has_more"`
	RequestID  string               `json:"request_id"`
}

// AccountsResponse is the /accounts/get response body.
type AccountsResponse struct {
	Accounts  []Account `json:"accounts"`
	Item      Item      `json:"item"`
	RequestID string    `json:"request_id"`
}

// ItemResponse is the /item/get response body.
type ItemResponse struct {
	Item      Item   `json:"item"`
	RequestID string `json:"request_id"`
}

// JWK is a webhook verification key.
type JWK struct {
	Alg       string `json:"alg"`
	Crv       string `json:"crv"`
	Kid       string `json:"kid"`
	Kty       string `json:"kty"`
	Use       string `json:"use"`
	X         string `json:"x"`
	Y         string `json:"y"`
	CreatedAt int64  `json:"created_at"`
	ExpiredAt *int64 `json:"expired_at"`
}

// APIError is the error body the provider returns with non-200 responses.
type APIError struct {
	StatusCode   int    `json:"-"`
	ErrorType    string `json:"error_type"`
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
	RequestID    string `json:"request_id"`
}

func (e *APIError) Error() string {
	if e.ErrorCode == "" {
		return fmt.Sprintf("request failed with status: %d", e.StatusCode)
	}
	return fmt.Sprintf("%s/%s: %s (request %s)", e.ErrorType, e.ErrorCode, e.ErrorMessage, e.RequestID)
}
