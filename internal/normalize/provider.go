package normalize

import (
	"github.com/baely/balance/pkg/model"
	"github.com/shopspring/decimal"

	"github.com/baely/walletsync/internal/common/errors"
	"github.com/baely/walletsync/internal/plaid"
	"github.com/baely/walletsync/internal/wallet"
)

// FromProvider builds the interchange document for one provider pull. Added
// and modified transactions are merged the same way; removed ids are carried
// through so the merge can delete them.
func FromProvider(pull plaid.PullResult, accounts []plaid.Account, item plaid.Item) (*wallet.Document, error) {
	doc := &wallet.Document{
		Item: wallet.Item{
			ItemID:        item.ItemID,
			InstitutionID: deref(item.InstitutionID),
			Webhook:       deref(item.Webhook),
		},
	}

	for _, a := range accounts {
		if a.AccountID == "" {
			return nil, &errors.MalformedRecordError{Kind: "account", Field: "account_id", Reason: "is missing"}
		}
		var subtype string
		if a.Subtype != nil {
			subtype = string(*a.Subtype)
		}
		doc.Accounts = append(doc.Accounts, wallet.Account{
			AccountID:    a.AccountID,
			Mask:         deref(a.Mask),
			Name:         a.Name,
			OfficialName: deref(a.OfficialName),
			Subtype:      subtype,
			Type:         string(a.Type),
		})
	}

	txns := make([]plaid.Transaction, 0, len(pull.Added)+len(pull.Modified))
	txns = append(txns, pull.Added...)
	txns = append(txns, pull.Modified...)
	for _, t := range txns {
		txn, err := providerTransaction(t)
		if err != nil {
			return nil, err
		}
		doc.Transactions = append(doc.Transactions, txn)
	}

	for _, r := range pull.Removed {
		doc.Removed = append(doc.Removed, r.TransactionID)
	}

	doc.Meta = wallet.Meta{
		RequestID:         pull.RequestID,
		TotalTransactions: wallet.Int64(int64(len(doc.Transactions))),
	}
	return doc, nil
}

func providerTransaction(t plaid.Transaction) (wallet.Transaction, error) {
	malformed := func(field, reason string) error {
		return &errors.MalformedRecordError{Kind: "transaction", Key: t.TransactionID, Field: field, Reason: reason}
	}
	switch {
	case t.TransactionID == "":
		return wallet.Transaction{}, malformed("transaction_id", "is missing")
	case t.AccountID == "":
		return wallet.Transaction{}, malformed("account_id", "is missing")
	case t.Date == "":
		return wallet.Transaction{}, malformed("date", "is missing")
	}

	txn := wallet.Transaction{
		TransactionID:  t.TransactionID,
		AccountID:      t.AccountID,
		Date:           t.Date,
		Name:           t.Name,
		MerchantName:   deref(t.MerchantName),
		PaymentChannel: string(t.PaymentChannel),
		Category:       categories(t),
	}

	if t.Amount == "" {
		txn.Amount = decimal.Zero
		txn.AmountDefaulted = true
		return txn, nil
	}
	amount, err := decimal.NewFromString(t.Amount.String())
	if err != nil {
		return wallet.Transaction{}, malformed("amount", "is not numeric")
	}
	txn.Amount = amount
	return txn, nil
}

// categories prefers the legacy category list and falls back to the
// personal finance category.
func categories(t plaid.Transaction) []string {
	if len(t.Category) > 0 {
		return append([]string(nil), t.Category...)
	}
	pfc := t.PersonalFinanceCategory
	if pfc == nil {
		return nil
	}
	var out []string
	for _, c := range []string{pfc.Primary, pfc.Detailed} {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

// UpTransaction converts an Up Bank transaction pushed through the webhook.
// Amounts keep Up's sign: spending is negative.
func UpTransaction(accountID, transactionID string, t model.TransactionResource) (wallet.Transaction, error) {
	if transactionID == "" {
		return wallet.Transaction{}, &errors.MalformedRecordError{Kind: "transaction", Field: "id", Reason: "is missing"}
	}
	if accountID == "" {
		return wallet.Transaction{}, &errors.MalformedRecordError{Kind: "transaction", Key: transactionID, Field: "account", Reason: "is missing"}
	}

	txn := wallet.Transaction{
		TransactionID:  transactionID,
		AccountID:      accountID,
		Amount:         decimal.New(int64(t.Attributes.Amount.ValueInBaseUnits), -2),
		Date:           t.Attributes.CreatedAt.Format("2006-01-02"),
		Name:           t.Attributes.Description,
		PaymentChannel: "other",
	}
	if raw := t.Attributes.RawText; raw != nil {
		txn.MerchantName = *raw
	}
	if t.Relationships.Category.Data != nil {
		txn.Category = []string{t.Relationships.Category.Data.Id}
	}
	return txn, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
