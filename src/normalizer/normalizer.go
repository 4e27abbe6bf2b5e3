// Package normalizer maps loosely shaped trade input (form posts, CSV rows,
// legacy records) onto the canonical trades schema.
package normalizer

import (
	"encoding/json"
	"strings"
	"time"

	"gorm.io/datatypes"

	"tradejournal/src/coerce"
	"tradejournal/src/model"
)

// NumericFields are coerced to float-or-nil.
var NumericFields = []string{"entry_price", "exit_price", "gross_pnl", "fees", "pnl", "rr"}

// IntegerFields are coerced to int-or-nil.
var IntegerFields = []string{"size", "rating", "account_id"}

// priceFields are additionally rounded to 4 decimal places.
var priceFields = map[string]bool{"entry_price": true, "exit_price": true}

var imageAliases = []string{"screenshot_url", "screenshotUrl", "screenshot"}

// AllowedColumns is the closed set of keys that survive normalization.
var AllowedColumns = map[string]struct{}{
	"id":              {},
	"user_id":         {},
	"account_id":      {},
	"symbol":          {},
	"direction":       {},
	"date":            {},
	"time":            {},
	"entry_time":      {},
	"exit_time":       {},
	"duration":        {},
	"size":            {},
	"entry_price":     {},
	"exit_price":      {},
	"gross_pnl":       {},
	"fees":            {},
	"pnl":             {},
	"rr":              {},
	"tags":            {},
	"rating":          {},
	"emotion":         {},
	"accountType":     {},
	"details":         {},
	"setup":           {},
	"image_url":       {},
	"is_imported":     {},
	"source":          {},
	"broker_trade_id": {},
	"created_at":      {},
	"updated_at":      {},
}

// Normalize returns the canonical trade for raw, owned by userID. It never
// fails: unusable values end up nil or empty. Required-field validation is
// left to the caller.
func Normalize(raw model.RawTrade, userID string) *model.Trade {
	return toTrade(Prepare(raw, userID))
}

// Prepare applies the normalization steps to a copy of raw and returns the
// whitelisted record. The order of the steps matters: derivation needs the
// coerced numbers and the whitelist must run last.
func Prepare(raw model.RawTrade, userID string) model.RawTrade {
	m := raw.Clone()

	m["user_id"] = userID

	if v, ok := m["symbol"]; ok {
		if s, ok := coerce.String(v); ok {
			m["symbol"] = strings.ToUpper(s)
		}
	}

	coerceNumbers(m)
	deriveMoney(m)
	m["tags"] = normalizeTags(m["tags"])
	harmonizeImage(m)
	foldDetails(m)

	for k := range m {
		if _, ok := AllowedColumns[k]; !ok {
			delete(m, k)
		}
	}

	return m
}

func coerceNumbers(m model.RawTrade) {
	for _, field := range NumericFields {
		v, ok := m[field]
		if !ok {
			continue
		}
		f := coerce.Float(v)
		if f != nil && priceFields[field] {
			f = coerce.RoundPtr(f, 4)
		}
		m[field] = f
	}

	for _, field := range IntegerFields {
		v, ok := m[field]
		if !ok {
			continue
		}
		m[field] = coerce.Int(v)
	}
}

// deriveMoney keeps pnl, gross_pnl and fees consistent. The first rule that
// matches wins; with too little data the missing values stay nil.
func deriveMoney(m model.RawTrade) {
	gross := floatField(m, "gross_pnl")
	fees := floatField(m, "fees")
	pnl := floatField(m, "pnl")

	switch {
	case gross != nil && fees != nil:
		m["pnl"] = floatPtr(coerce.Round2(*gross - *fees))
	case pnl != nil && fees != nil:
		m["gross_pnl"] = floatPtr(coerce.Round2(*pnl + *fees))
	case gross != nil && pnl == nil:
		m["pnl"] = floatPtr(coerce.Round2(*gross))
	case pnl != nil && gross == nil:
		m["gross_pnl"] = floatPtr(coerce.Round2(*pnl))
	}
}

func normalizeTags(v interface{}) []string {
	tags := []string{}

	switch t := v.(type) {
	case []string:
		for _, tag := range t {
			if s := strings.TrimSpace(tag); s != "" {
				tags = append(tags, s)
			}
		}
	case []interface{}:
		for _, tag := range t {
			if coerce.Falsy(tag) {
				continue
			}
			if s, ok := coerce.String(tag); ok {
				tags = append(tags, s)
			}
		}
	case datatypes.JSONSlice[string]:
		return normalizeTags([]string(t))
	case string:
		for _, tag := range strings.Split(t, ",") {
			if s := strings.TrimSpace(tag); s != "" {
				tags = append(tags, s)
			}
		}
	}

	return tags
}

func harmonizeImage(m model.RawTrade) {
	if coerce.Falsy(m["image_url"]) {
		for _, alias := range imageAliases {
			if v := m[alias]; !coerce.Falsy(v) {
				m["image_url"] = v
				break
			}
		}
	}

	for _, alias := range imageAliases {
		delete(m, alias)
	}
}

func foldDetails(m model.RawTrade) {
	details := toMap(m["details"])

	for _, key := range []string{"notes", "session"} {
		v, ok := m[key]
		if !ok {
			continue
		}
		if details == nil {
			details = make(map[string]interface{})
		}
		details[key] = v
		delete(m, key)
	}

	if len(details) == 0 {
		delete(m, "details")
		return
	}
	m["details"] = details
}

// toMap accepts the shapes a details or setup bag arrives in.
func toMap(v interface{}) map[string]interface{} {
	switch d := v.(type) {
	case nil:
		return nil
	case map[string]interface{}:
		out := make(map[string]interface{}, len(d))
		for k, val := range d {
			out[k] = val
		}
		return out
	case model.RawTrade:
		return toMap(map[string]interface{}(d))
	case string:
		if strings.TrimSpace(d) == "" {
			return nil
		}
		var out map[string]interface{}
		if err := json.Unmarshal([]byte(d), &out); err != nil {
			return nil
		}
		return out
	default:
		b, err := json.Marshal(d)
		if err != nil {
			return nil
		}
		var out map[string]interface{}
		if err := json.Unmarshal(b, &out); err != nil {
			return nil
		}
		return out
	}
}

func toTrade(m model.RawTrade) *model.Trade {
	t := &model.Trade{
		UserID:        stringField(m, "user_id"),
		Symbol:        stringField(m, "symbol"),
		Direction:     stringField(m, "direction"),
		Date:          dateField(m["date"]),
		Time:          stringField(m, "time"),
		EntryTime:     timeField(m["entry_time"]),
		ExitTime:      timeField(m["exit_time"]),
		Duration:      coerce.StringPtr(m["duration"]),
		Size:          intField(m, "size"),
		EntryPrice:    floatField(m, "entry_price"),
		ExitPrice:     floatField(m, "exit_price"),
		GrossPnl:      floatField(m, "gross_pnl"),
		Fees:          floatField(m, "fees"),
		Pnl:           floatField(m, "pnl"),
		RR:            floatField(m, "rr"),
		Rating:        intField(m, "rating"),
		Emotion:       coerce.StringPtr(m["emotion"]),
		AccountType:   coerce.StringPtr(m["accountType"]),
		ImageURL:      coerce.StringPtr(m["image_url"]),
		IsImported:    coerce.Bool(m["is_imported"]),
		Source:        coerce.StringPtr(m["source"]),
		BrokerTradeID: coerce.StringPtr(m["broker_trade_id"]),
	}

	if tags, ok := m["tags"].([]string); ok {
		t.Tags = datatypes.NewJSONSlice(tags)
	}

	if id := coerce.Int(m["id"]); id != nil && *id > 0 {
		t.ID = uint(*id)
	}
	if accountID := intField(m, "account_id"); accountID != nil && *accountID > 0 {
		a := uint(*accountID)
		t.AccountID = &a
	}

	if d := model.TradeDetailsFromMap(toMap(m["details"])); !d.IsEmpty() {
		jt := datatypes.NewJSONType(d)
		t.Details = &jt
	}
	if s := setupFromMap(toMap(m["setup"])); !s.IsEmpty() {
		jt := datatypes.NewJSONType(s)
		t.Setup = &jt
	}

	return t
}

func setupFromMap(raw map[string]interface{}) model.TradeSetup {
	var s model.TradeSetup
	if raw == nil {
		return s
	}
	if v, ok := coerce.String(raw["entryCriteria"]); ok {
		s.EntryCriteria = v
	}
	if c := normalizeTags(raw["confluences"]); len(c) > 0 {
		s.Confluences = c
	}
	return s
}

func floatField(m model.RawTrade, key string) *float64 {
	switch v := m[key].(type) {
	case *float64:
		return v
	case nil:
		return nil
	default:
		return coerce.Float(v)
	}
}

func intField(m model.RawTrade, key string) *int64 {
	switch v := m[key].(type) {
	case *int64:
		return v
	case nil:
		return nil
	default:
		return coerce.Int(v)
	}
}

func stringField(m model.RawTrade, key string) string {
	s, _ := coerce.String(m[key])
	return s
}

func dateField(v interface{}) string {
	switch d := v.(type) {
	case time.Time:
		return d.Format("2006-01-02")
	case *time.Time:
		if d == nil {
			return ""
		}
		return d.Format("2006-01-02")
	default:
		s, _ := coerce.String(v)
		return s
	}
}

func timeField(v interface{}) *time.Time {
	t := coerce.Timestamp(v)
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func floatPtr(f float64) *float64 { return &f }
