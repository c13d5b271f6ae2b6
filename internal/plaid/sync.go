package plaid

import (
	"context"
	"log/slog"

	"github.com/baely/walletsync/internal/common/errors"
	"github.com/baely/walletsync/internal/common/logger"
)

// API is the subset of the provider used by the Puller.
type API interface {
	TransactionsSync(ctx context.Context, req SyncRequest) (*SyncResponse, error)
	AccountsGet(ctx context.Context, accessToken string) (*AccountsResponse, error)
	ItemGet(ctx context.Context, accessToken string) (*ItemResponse, error)
}

// PullResult accumulates every page of one incremental sync.
type PullResult struct {
	Added     []Transaction
	Modified  []Transaction
	Removed   []RemovedTransaction
	RequestID string
	// Cursor is the final next_cursor; callers may persist it to resume.
	Cursor string
	Pages  int
}

// Puller drives cursor pagination against the provider. It holds no state
// between calls; every PullAll restarts from the beginning.
type Puller struct {
	api      API
	pageSize int
}

// NewPuller creates a Puller. A pageSize of 0 uses the provider default.
func NewPuller(api API, pageSize int) *Puller {
	return &Puller{api: api, pageSize: pageSize}
}

// PullAll fetches every page of transaction updates. The first request has
// no cursor; each later request carries the previous page's next_cursor.
// Any failure aborts the pull with a ProviderError holding the last cursor
// that was returned by a successful page.
func (p *Puller) PullAll(ctx context.Context, accessToken string) (PullResult, error) {
	log := logger.FromContext(ctx)

	var result PullResult
	var cursor string
	used := make(map[string]bool)

	for {
		if err := ctx.Err(); err != nil {
			return PullResult{}, &errors.ProviderError{Op: "transactions/sync", Cursor: cursor, Err: err}
		}

		req := SyncRequest{AccessToken: accessToken, Count: p.pageSize}
		if cursor != "" {
			c := cursor
			req.Cursor = &c
			used[cursor] = true
		}

		resp, err := p.api.TransactionsSync(ctx, req)
		if err != nil {
			return PullResult{}, providerError("transactions/sync", cursor, err)
		}

		result.Added = append(result.Added, resp.Added...)
		result.Modified = append(result.Modified, resp.Modified...)
		result.Removed = append(result.Removed, resp.Removed...)
		result.RequestID = resp.RequestID
		result.Pages++

		log.Debug("Fetched transactions page",
			"page", result.Pages,
			"added", len(resp.Added),
			"modified", len(resp.Modified),
			"removed", len(resp.Removed),
			"has_more", resp.HasMore)

		if !resp.HasMore {
			result.Cursor = resp.NextCursor
			break
		}

		switch {
		case resp.NextCursor == "":
			return PullResult{}, &errors.ProviderError{
				Op:     "transactions/sync",
				Cursor: cursor,
				Err:    errors.New("has_more set without next_cursor"),
			}
		case used[resp.NextCursor]:
			return PullResult{}, &errors.ProviderError{
				Op:     "transactions/sync",
				Cursor: cursor,
				Err:    errors.Wrap(errors.ErrInvalidInput, "cursor %q returned twice", resp.NextCursor),
			}
		}
		cursor = resp.NextCursor
	}

	log.Info("Pulled transactions",
		slog.Int("pages", result.Pages),
		slog.Int("added", len(result.Added)),
		slog.Int("modified", len(result.Modified)),
		slog.Int("removed", len(result.Removed)))

	return result, nil
}

// PullAccounts fetches all accounts in a single call.
func (p *Puller) PullAccounts(ctx context.Context, accessToken string) ([]Account, error) {
	resp, err := p.api.AccountsGet(ctx, accessToken)
	if err != nil {
		return nil, providerError("accounts/get", "", err)
	}
	return resp.Accounts, nil
}

// PullItem fetches the item behind the access token.
func (p *Puller) PullItem(ctx context.Context, accessToken string) (Item, error) {
	resp, err := p.api.ItemGet(ctx, accessToken)
	if err != nil {
		return Item{}, providerError("item/get", "", err)
	}
	return resp.Item, nil
}

func providerError(op, cursor string, err error) error {
	pe := &errors.ProviderError{Op: op, Cursor: cursor, Err: err}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		pe.StatusCode = apiErr.StatusCode
		pe.Code = apiErr.ErrorCode
	}
	return pe
}
