// Package normalize turns loosely typed records, from interchange documents
// or from the provider client, into canonical wallet records.
//
// Absent optional strings become "", absent optional numbers stay null, and
// a missing transaction amount becomes zero with AmountDefaulted set. Only a
// missing structurally required key, or a field of the wrong shape, is an
// error.
package normalize

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/baely/walletsync/internal/common/errors"
	"github.com/baely/walletsync/internal/wallet"
)

// Account normalizes one account object.
func Account(m map[string]interface{}) (wallet.Account, error) {
	r := record{kind: "account", fields: m}
	if s, ok := plain(m["account_id"]); ok {
		r.key = s
	}

	var a wallet.Account
	var err error
	if a.AccountID, err = r.reqString("account_id"); err != nil {
		return wallet.Account{}, err
	}
	for field, dst := range map[string]*string{
		"mask":          &a.Mask,
		"name":          &a.Name,
		"official_name": &a.OfficialName,
		"subtype":       &a.Subtype,
		"type":          &a.Type,
	} {
		if *dst, err = r.optString(field); err != nil {
			return wallet.Account{}, err
		}
	}
	return a, nil
}

// Transaction normalizes one transaction object.
func Transaction(m map[string]interface{}) (wallet.Transaction, error) {
	r := record{kind: "transaction", fields: m}
	if s, ok := plain(m["transaction_id"]); ok {
		r.key = s
	}

	var t wallet.Transaction
	var err error
	if t.TransactionID, err = r.reqString("transaction_id"); err != nil {
		return wallet.Transaction{}, err
	}
	if t.AccountID, err = r.reqString("account_id"); err != nil {
		return wallet.Transaction{}, err
	}
	if t.Date, err = r.reqString("date"); err != nil {
		return wallet.Transaction{}, err
	}
	for field, dst := range map[string]*string{
		"name":            &t.Name,
		"merchant_name":   &t.MerchantName,
		"payment_channel": &t.PaymentChannel,
	} {
		if *dst, err = r.optString(field); err != nil {
			return wallet.Transaction{}, err
		}
	}

	amount, err := r.optDecimal("amount")
	if err != nil {
		return wallet.Transaction{}, err
	}
	if amount.Valid {
		t.Amount = amount.Decimal
	} else {
		t.Amount = decimal.Zero
		t.AmountDefaulted = true
	}

	if t.Category, err = r.strings("category"); err != nil {
		return wallet.Transaction{}, err
	}
	return t, nil
}

// Item normalizes the item object. An item without item_id is valid; the
// merge skips it.
func Item(m map[string]interface{}) (wallet.Item, error) {
	r := record{kind: "item", fields: m}

	var it wallet.Item
	var err error
	for field, dst := range map[string]*string{
		"item_id":        &it.ItemID,
		"institution_id": &it.InstitutionID,
		"webhook":        &it.Webhook,
	} {
		if *dst, err = r.optString(field); err != nil {
			return wallet.Item{}, err
		}
	}
	return it, nil
}

// Document parses an interchange document. The top level must be an
// object; amounts keep their exact decimal text.
func Document(data []byte) (*wallet.Document, error) {
	top, err := decodeObject(data)
	if err != nil {
		return nil, err
	}
	r := record{kind: "document", fields: top}

	doc := &wallet.Document{}

	accounts, err := r.objects("accounts")
	if err != nil {
		return nil, err
	}
	for _, m := range accounts {
		a, err := Account(m)
		if err != nil {
			return nil, err
		}
		doc.Accounts = append(doc.Accounts, a)
	}

	transactions, err := r.objects("transactions")
	if err != nil {
		return nil, err
	}
	for _, m := range transactions {
		t, err := Transaction(m)
		if err != nil {
			return nil, err
		}
		doc.Transactions = append(doc.Transactions, t)
	}

	if doc.Removed, err = r.strings("removed"); err != nil {
		return nil, err
	}

	item, err := r.object("item")
	if err != nil {
		return nil, err
	}
	if item != nil {
		if doc.Item, err = Item(item); err != nil {
			return nil, err
		}
	}

	if doc.Meta.RequestID, err = r.optString("request_id"); err != nil {
		return nil, err
	}
	if doc.Meta.TotalTransactions, err = r.optInt("total_transactions"); err != nil {
		return nil, err
	}

	return doc, nil
}

func decodeObject(data []byte) (map[string]interface{}, error) {
	var v interface{}
	if err := decode(data, &v); err != nil {
		return nil, err
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, errors.Wrap(errors.ErrMalformedDocument, "top level is %s, want object", jsonKind(v))
	}
	return m, nil
}

func decode(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(errors.ErrMalformedDocument, "decode: %v", err)
	}
	if dec.More() {
		return errors.Wrap(errors.ErrMalformedDocument, "trailing data after document")
	}
	return nil
}

func jsonKind(v interface{}) string {
	switch v.(type) {
	case nil:
		return "null"
	case []interface{}:
		return "array"
	case map[string]interface{}:
		return "object"
	case string:
		return "string"
	case bool:
		return "boolean"
	}
	return "number"
}
