package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/baely/walletsync/internal/common/errors"
)

// record is one loosely typed JSON object being normalized. kind and key
// only label errors.
type record struct {
	kind   string
	key    string
	fields map[string]interface{}
}

func (r record) malformed(field, reason string) error {
	return &errors.MalformedRecordError{Kind: r.kind, Key: r.key, Field: field, Reason: reason}
}

// optString returns the field as a plain string; absent or null is "".
func (r record) optString(field string) (string, error) {
	s, ok := plain(r.fields[field])
	if !ok {
		return "", r.malformed(field, fmt.Sprintf("has unsupported type %T", r.fields[field]))
	}
	return s, nil
}

// reqString is optString for structurally required fields.
func (r record) reqString(field string) (string, error) {
	v, present := r.fields[field]
	if !present || v == nil {
		return "", r.malformed(field, "is missing")
	}
	s, err := r.optString(field)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", r.malformed(field, "is empty")
	}
	return s, nil
}

// optDecimal returns an absent or null field as an invalid NullDecimal.
func (r record) optDecimal(field string) (decimal.NullDecimal, error) {
	v := r.fields[field]
	if v == nil {
		return decimal.NullDecimal{}, nil
	}
	d, err := toDecimal(v)
	if err != nil {
		return decimal.NullDecimal{}, r.malformed(field, err.Error())
	}
	return decimal.NewNullDecimal(d), nil
}

func (r record) optInt(field string) (*int64, error) {
	v := r.fields[field]
	if v == nil {
		return nil, nil
	}
	d, err := toDecimal(v)
	if err != nil {
		return nil, r.malformed(field, err.Error())
	}
	if !d.IsInteger() || d.Abs().GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
		return nil, r.malformed(field, "is not an integer")
	}
	n := d.IntPart()
	return &n, nil
}

func (r record) strings(field string) ([]string, error) {
	v := r.fields[field]
	if v == nil {
		return nil, nil
	}
	list, ok := v.([]interface{})
	if !ok {
		return nil, r.malformed(field, "is not an array")
	}
	out := make([]string, 0, len(list))
	for i, item := range list {
		s, ok := plain(item)
		if !ok {
			return nil, r.malformed(fmt.Sprintf("%s[%d]", field, i), fmt.Sprintf("has unsupported type %T", item))
		}
		out = append(out, s)
	}
	return out, nil
}

func (r record) object(field string) (map[string]interface{}, error) {
	v := r.fields[field]
	if v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, r.malformed(field, "is not an object")
	}
	return m, nil
}

func (r record) objects(field string) ([]map[string]interface{}, error) {
	v := r.fields[field]
	if v == nil {
		return nil, nil
	}
	list, ok := v.([]interface{})
	if !ok {
		return nil, r.malformed(field, "is not an array")
	}
	out := make([]map[string]interface{}, 0, len(list))
	for i, item := range list {
		m, ok := item.(map[string]interface{})
		if !ok {
			return nil, r.malformed(fmt.Sprintf("%s[%d]", field, i), "is not an object")
		}
		out = append(out, m)
	}
	return out, nil
}

// plain reduces enum-like values to their string form. Wrapped values of the
// form {"value": x} are unwrapped.
func plain(v interface{}) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", true
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	case fmt.Stringer:
		return t.String(), true
	case map[string]interface{}:
		inner, ok := t["value"]
		if !ok || len(t) != 1 {
			return "", false
		}
		return plain(inner)
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.String {
		return rv.String(), true
	}
	return "", false
}

func toDecimal(v interface{}) (decimal.Decimal, error) {
	switch t := v.(type) {
	case json.Number:
		return decimal.NewFromString(t.String())
	case string:
		d, err := decimal.NewFromString(t)
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("is not numeric: %q", t)
		}
		return d, nil
	case float64:
		return decimal.NewFromFloat(t), nil
	case int:
		return decimal.NewFromInt(int64(t)), nil
	case int64:
		return decimal.NewFromInt(t), nil
	}
	return decimal.Decimal{}, fmt.Errorf("is not numeric (%T)", v)
}
