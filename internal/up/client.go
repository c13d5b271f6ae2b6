package up

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/baely/balance/pkg/model"

	"github.com/baely/walletsync/internal/common/errors"
	"github.com/baely/walletsync/internal/wallet"
)

const upBaseUri = "https://api.up.com.au/api/v1/"

// Client reads accounts and transactions from the Up API.
type Client struct {
	accessToken string
	baseURI     string
	client      *http.Client
}

// NewClient creates a Client for the production API.
func NewClient(accessToken string) *Client {
	return NewClientWithBase(accessToken, upBaseUri)
}

// NewClientWithBase creates a Client against another base URI.
func NewClientWithBase(accessToken, baseURI string) *Client {
	if !strings.HasSuffix(baseURI, "/") {
		baseURI += "/"
	}
	return &Client{
		accessToken: accessToken,
		baseURI:     baseURI,
		client:      &http.Client{},
	}
}

func (c *Client) request(ctx context.Context, endpoint string, ret interface{}) error {
	uri := fmt.Sprintf("%s%s", c.baseURI, endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return &errors.ProviderError{Op: "up/" + endpoint, Err: err}
	}

	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", c.accessToken))

	resp, err := c.client.Do(req)
	if err != nil {
		return &errors.ProviderError{Op: "up/" + endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &errors.ProviderError{
			Op:         "up/" + endpoint,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("request failed with status: %d", resp.StatusCode),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(ret); err != nil {
		return &errors.ProviderError{Op: "up/" + endpoint, StatusCode: resp.StatusCode, Err: err}
	}
	return nil
}

// accountResponse is the part of GET /accounts/{id} the merge needs.
type accountResponse struct {
	Data struct {
		Id         string `json:"id"`
		Attributes struct {
			DisplayName string `json:"displayName"`
			AccountType string `json:"accountType"`
		} `json:"attributes"`
	} `json:"data"`
}

// GetAccount fetches an account as a wallet account.
func (c *Client) GetAccount(ctx context.Context, accountId string) (wallet.Account, error) {
	var resp accountResponse

	if err := c.request(ctx, fmt.Sprintf("accounts/%s", accountId), &resp); err != nil {
		return wallet.Account{}, err
	}

	id := resp.Data.Id
	if id == "" {
		id = accountId
	}
	typ, subtype := accountType(resp.Data.Attributes.AccountType)
	return wallet.Account{
		AccountID: id,
		Name:      resp.Data.Attributes.DisplayName,
		Type:      typ,
		Subtype:   subtype,
	}, nil
}

// accountType maps Up's account types onto the provider classification.
func accountType(upType string) (string, string) {
	switch upType {
	case "TRANSACTIONAL":
		return "depository", "checking"
	case "SAVER":
		return "depository", "savings"
	case "HOME_LOAN":
		return "loan", "mortgage"
	}
	return "other", strings.ToLower(upType)
}

// GetTransaction fetches one transaction.
func (c *Client) GetTransaction(ctx context.Context, transactionId string) (model.TransactionResource, error) {
	var resp model.GetTransactionResponse

	if err := c.request(ctx, fmt.Sprintf("transactions/%s", transactionId), &resp); err != nil {
		return model.TransactionResource{}, err
	}

	return resp.Data, nil
}
