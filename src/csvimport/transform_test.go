package csvimport

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradejournal/src/normalizer"
)

func sampleRow() Row {
	return Row{
		ColContractName: "ESZ4",
		ColType:         "Long",
		ColEnteredAt:    "2024-01-02T09:30:00Z",
		ColExitedAt:     "2024-01-02T09:45:00Z",
		ColEntryPrice:   "4500.25",
		ColExitPrice:    "4505.50",
		ColSize:         "2",
		ColPnL:          "105.00",
		ColFees:         "5.00",
		ColTradeDay:     "2024-01-02",
	}
}

func TestTransformRows_EndToEnd(t *testing.T) {
	rows := TransformRows([]Row{sampleRow()})
	require.Len(t, rows, 1)

	trade := normalizer.Normalize(rows[0], "u1")

	assert.Equal(t, "ES", trade.Symbol)
	assert.Equal(t, 100.0, *trade.Pnl)
	assert.Equal(t, 105.0, *trade.GrossPnl)
	assert.Equal(t, 5.0, *trade.Fees)
	assert.Equal(t, "2024-01-02", trade.Date)
	assert.Equal(t, "09:30", trade.Time)
	assert.True(t, trade.IsImported)
	require.NotNil(t, trade.Source)
	assert.Equal(t, "csv-import", *trade.Source)
	assert.Equal(t, int64(2), *trade.Size)
	assert.Equal(t, 4505.5, *trade.ExitPrice)
	require.NotNil(t, trade.EntryTime)
	assert.True(t, trade.EntryTime.Equal(time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)))
}

func TestTransformRow_MissingMoneyDefaultsToZero(t *testing.T) {
	row := sampleRow()
	delete(row, ColFees)
	row[ColPnL] = ""

	out := TransformRow(row)
	assert.Equal(t, 0.0, out["gross_pnl"])
	assert.Equal(t, 0.0, out["fees"])
	assert.Equal(t, 0.0, out["pnl"])
}

func TestTransformRow_BadDates(t *testing.T) {
	row := sampleRow()
	row[ColEnteredAt] = "yesterday"
	row[ColExitedAt] = ""
	row[ColTradeDay] = "not a day"

	out := TransformRow(row)
	assert.Nil(t, out["entry_time"])
	assert.Nil(t, out["exit_time"])
	assert.Equal(t, "00:00", out["time"])
	assert.Nil(t, out["date"])
}

func TestTransformRow_DateFallsBackToEntry(t *testing.T) {
	row := sampleRow()
	row[ColTradeDay] = ""
	row[ColEnteredAt] = "2024-02-05T23:10:00-05:00"

	out := TransformRow(row)
	assert.Equal(t, "2024-02-05", out["date"])
	assert.Equal(t, "23:10", out["time"])
}

func TestTransformRow_PricesRounded(t *testing.T) {
	row := sampleRow()
	row[ColEntryPrice] = "1.234567"
	out := TransformRow(row)

	price, ok := out["entry_price"].(*float64)
	require.True(t, ok)
	assert.Equal(t, 1.2346, *price)
}

func TestParseSymbol(t *testing.T) {
	tests := map[string]string{
		"ESZ4":    "ES",
		"MNQH25":  "MNQ",
		" cLf5 ":  "CL",
		"AAPL":    "AAPL",
		"6EZ4":    UnknownSymbol,
		"":        UnknownSymbol,
		"Z4":      "Z",
		"NQ.FUT":  "NQ",
		"GCJ2025": "GC",
	}

	for in, want := range tests {
		assert.Equal(t, want, ParseSymbol(in), in)
	}
}

func TestReadRows(t *testing.T) {
	data := "\ufeffId,ContractName, EnteredAt,ExitedAt,Type,Size\n" +
		"77,ESZ4,2024-01-02T09:30:00Z,2024-01-02T09:45:00Z,Long,2\n" +
		"78,NQZ4\n"

	rows, err := ReadRows(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "77", rows[0][ColID])
	assert.Equal(t, "ESZ4", rows[0][ColContractName])
	assert.Equal(t, "2024-01-02T09:30:00Z", rows[0][ColEnteredAt])
	assert.Equal(t, "", rows[1][ColExitedAt])

	out := TransformRow(rows[0])
	assert.Equal(t, "77", out["broker_trade_id"])
}

func TestReadRows_Empty(t *testing.T) {
	_, err := ReadRows(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestReadRows_Malformed(t *testing.T) {
	_, err := ReadRows(strings.NewReader("ContractName,Type\n\"ESZ4,Long\n"))
	assert.ErrorIs(t, err, ErrMalformedFile)
}
