package normalizer

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradejournal/src/coerce"
	"tradejournal/src/model"
)

func TestNormalize_GrossAndPnlWithoutFees(t *testing.T) {
	trade := Normalize(model.RawTrade{
		"gross_pnl": 100,
		"pnl":       100,
		"fees":      nil,
		"symbol":    "x",
	}, "u1")

	assert.Equal(t, "X", trade.Symbol)
	assert.Equal(t, "u1", trade.UserID)
	assert.Nil(t, trade.Fees)
	require.NotNil(t, trade.GrossPnl)
	require.NotNil(t, trade.Pnl)
	assert.Equal(t, 100.0, *trade.GrossPnl)
	assert.Equal(t, 100.0, *trade.Pnl)
}

func TestNormalize_MoneyDerivation(t *testing.T) {
	tests := []struct {
		name      string
		in        model.RawTrade
		wantGross *float64
		wantFees  *float64
		wantPnl   *float64
	}{
		{
			name:      "gross and fees derive net",
			in:        model.RawTrade{"gross_pnl": "105.00", "fees": "5.00"},
			wantGross: f(105), wantFees: f(5), wantPnl: f(100),
		},
		{
			name:      "gross and fees override a conflicting net",
			in:        model.RawTrade{"gross_pnl": 105, "fees": 5, "pnl": 42},
			wantGross: f(105), wantFees: f(5), wantPnl: f(100),
		},
		{
			name:      "net and fees derive gross",
			in:        model.RawTrade{"pnl": "98.5", "fees": "1.25"},
			wantGross: f(99.75), wantFees: f(1.25), wantPnl: f(98.5),
		},
		{
			name:      "gross only copies into net",
			in:        model.RawTrade{"gross_pnl": 12.346},
			wantGross: f(12.346), wantPnl: f(12.35),
		},
		{
			name:      "net only copies into gross",
			in:        model.RawTrade{"pnl": -20},
			wantGross: f(-20), wantPnl: f(-20),
		},
		{
			name:     "fees only stays partial",
			in:       model.RawTrade{"fees": 3},
			wantFees: f(3),
		},
		{
			name: "unparsable money is dropped",
			in:   model.RawTrade{"gross_pnl": "n/a", "fees": ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in["symbol"] = "es"
			trade := Normalize(tt.in, "u1")

			assertFloat(t, tt.wantGross, trade.GrossPnl, "gross_pnl")
			assertFloat(t, tt.wantFees, trade.Fees, "fees")
			assertFloat(t, tt.wantPnl, trade.Pnl, "pnl")

			if trade.GrossPnl != nil && trade.Fees != nil && trade.Pnl != nil {
				assert.Equal(t, coerce.Round2(*trade.GrossPnl-*trade.Fees), *trade.Pnl)
			}
		})
	}
}

func TestPrepare_WhitelistAndOwnership(t *testing.T) {
	raw := model.RawTrade{
		"symbol":                "aapl",
		"user_id":               "someone-else",
		"arbitraryUnknownField": 1,
		"screenshotUrl":         "https://img/1.png",
	}

	out := Prepare(raw, "u1")

	assert.Equal(t, "u1", out["user_id"])
	assert.Equal(t, "AAPL", out["symbol"])
	assert.NotContains(t, out, "arbitraryUnknownField")
	assert.NotContains(t, out, "screenshotUrl")
	assert.Equal(t, "https://img/1.png", out["image_url"])

	// caller's map is untouched
	assert.Equal(t, "aapl", raw["symbol"])
	assert.Contains(t, raw, "arbitraryUnknownField")

	for k := range out {
		_, ok := AllowedColumns[k]
		assert.True(t, ok, "unexpected key %q", k)
	}
}

func TestNormalize_Tags(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want []string
	}{
		{name: "array drops falsy", in: []interface{}{"breakout", "", nil, "A+"}, want: []string{"breakout", "A+"}},
		{name: "comma string", in: " breakout, ,revenge ,", want: []string{"breakout", "revenge"}},
		{name: "duplicates kept", in: []string{"a", "a"}, want: []string{"a", "a"}},
		{name: "absent", in: nil, want: []string{}},
		{name: "unsupported type", in: 7, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trade := Normalize(model.RawTrade{"symbol": "nq", "tags": tt.in}, "u1")
			assert.Equal(t, tt.want, []string(trade.Tags))
		})
	}
}

func TestNormalize_ImageAliases(t *testing.T) {
	trade := Normalize(model.RawTrade{
		"symbol":         "es",
		"image_url":      "",
		"screenshot_url": "",
		"screenshotUrl":  nil,
		"screenshot":     "user/1.png",
	}, "u1")
	require.NotNil(t, trade.ImageURL)
	assert.Equal(t, "user/1.png", *trade.ImageURL)

	trade = Normalize(model.RawTrade{
		"symbol":     "es",
		"image_url":  "https://keep",
		"screenshot": "user/1.png",
	}, "u1")
	assert.Equal(t, "https://keep", *trade.ImageURL)

	trade = Normalize(model.RawTrade{"symbol": "es"}, "u1")
	assert.Nil(t, trade.ImageURL)
}

func TestNormalize_DetailsFolding(t *testing.T) {
	out := Prepare(model.RawTrade{
		"symbol":  "es",
		"notes":   "chased the open",
		"session": "NY AM",
		"details": map[string]interface{}{"mistake": "size"},
	}, "u1")

	assert.NotContains(t, out, "notes")
	assert.NotContains(t, out, "session")
	assert.Equal(t, map[string]interface{}{
		"mistake": "size",
		"notes":   "chased the open",
		"session": "NY AM",
	}, out["details"])

	trade := Normalize(model.RawTrade{"symbol": "es", "notes": "n1"}, "u1")
	require.NotNil(t, trade.Details)
	assert.Equal(t, "n1", trade.Details.Data().Notes)

	b, err := json.Marshal(trade.Details)
	require.NoError(t, err)
	assert.JSONEq(t, `{"notes":"n1"}`, string(b))
}

func TestNormalize_DetailsOmittedWhenEmpty(t *testing.T) {
	out := Prepare(model.RawTrade{"symbol": "es", "details": map[string]interface{}{}}, "u1")
	assert.NotContains(t, out, "details")

	trade := Normalize(model.RawTrade{"symbol": "es"}, "u1")
	assert.Nil(t, trade.Details)
}

func TestNormalize_SetupAndTyping(t *testing.T) {
	trade := Normalize(model.RawTrade{
		"id":          "17",
		"symbol":      "cl",
		"direction":   "Short",
		"date":        "2024-03-01",
		"time":        "10:05",
		"entry_time":  "2024-03-01T10:05:00-05:00",
		"exit_time":   "garbage",
		"size":        "3.0",
		"entry_price": "78.123456",
		"rating":      "4",
		"account_id":  "9",
		"accountType": "Funded",
		"is_imported": "true",
		"setup": map[string]interface{}{
			"entryCriteria": "ORB",
			"confluences":   []interface{}{"VWAP", ""},
		},
	}, "u1")

	assert.Equal(t, uint(17), trade.ID)
	assert.Equal(t, "CL", trade.Symbol)
	assert.Equal(t, "Short", trade.Direction)
	require.NotNil(t, trade.EntryTime)
	assert.True(t, trade.EntryTime.Equal(time.Date(2024, 3, 1, 15, 5, 0, 0, time.UTC)))
	assert.Nil(t, trade.ExitTime)
	require.NotNil(t, trade.Size)
	assert.Equal(t, int64(3), *trade.Size)
	assert.Equal(t, 78.1235, *trade.EntryPrice)
	assert.Equal(t, int64(4), *trade.Rating)
	require.NotNil(t, trade.AccountID)
	assert.Equal(t, uint(9), *trade.AccountID)
	assert.Equal(t, "Funded", *trade.AccountType)
	assert.True(t, trade.IsImported)
	require.NotNil(t, trade.Setup)
	assert.Equal(t, "ORB", trade.Setup.Data().EntryCriteria)
	assert.Equal(t, []string{"VWAP"}, trade.Setup.Data().Confluences)
}

func assertFloat(t *testing.T, want, got *float64, field string) {
	t.Helper()
	if want == nil {
		assert.Nil(t, got, field)
		return
	}
	if assert.NotNil(t, got, field) {
		assert.InDelta(t, *want, *got, 1e-9, field)
	}
}

func f(v float64) *float64 { return &v }
