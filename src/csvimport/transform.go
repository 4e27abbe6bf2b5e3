// Package csvimport turns broker CSV exports into pre-normalized trade rows.
package csvimport

import (
	"strings"
	"time"

	logger "github.com/sirupsen/logrus"

	"tradejournal/src/coerce"
	"tradejournal/src/model"
)

// Broker export column names. They must match the header exactly.
const (
	ColEnteredAt     = "EnteredAt"
	ColExitedAt      = "ExitedAt"
	ColContractName  = "ContractName"
	ColType          = "Type"
	ColPnL           = "PnL"
	ColFees          = "Fees"
	ColTradeDay      = "TradeDay"
	ColEntryPrice    = "EntryPrice"
	ColExitPrice     = "ExitPrice"
	ColSize          = "Size"
	ColTradeDuration = "TradeDuration"

	// ColID is optional; when present it is kept as broker_trade_id.
	ColID = "Id"
)

// UnknownSymbol is used when a contract name has no leading letters.
const UnknownSymbol = "UNKNOWN"

const defaultTime = "00:00"

// futuresMonthCodes are the CME month letters that follow a root symbol.
const futuresMonthCodes = "FGHJKMNQUVXZ"

// Row is one CSV record keyed by header name.
type Row map[string]string

// TransformRows maps broker rows into the shape the normalizer consumes.
// Bad cells never fail a row; they end up nil or defaulted.
func TransformRows(rows []Row) []model.RawTrade {
	out := make([]model.RawTrade, 0, len(rows))
	for _, row := range rows {
		out = append(out, TransformRow(row))
	}
	return out
}

// TransformRow maps a single broker row. CSV exports always carry both the
// gross figure and fees, so missing money cells count as zero and the net
// value is always set.
func TransformRow(row Row) model.RawTrade {
	entered := coerce.Timestamp(row[ColEnteredAt])
	exited := coerce.Timestamp(row[ColExitedAt])

	if entered == nil && strings.TrimSpace(row[ColEnteredAt]) != "" {
		logger.WithFields(map[string]interface{}{
			"component": "csvimport",
			"column":    ColEnteredAt,
			"value":     row[ColEnteredAt],
		}).Debug("Unparsable entry timestamp, leaving it empty")
	}

	gross := coerce.FloatOr(row[ColPnL], 0)
	fees := coerce.FloatOr(row[ColFees], 0)

	trade := model.RawTrade{
		"symbol":      ParseSymbol(row[ColContractName]),
		"direction":   strings.TrimSpace(row[ColType]),
		"date":        tradeDate(row[ColTradeDay], entered),
		"time":        clock(entered),
		"entry_time":  timeOrNil(entered),
		"exit_time":   timeOrNil(exited),
		"entry_price": roundedPrice(row[ColEntryPrice]),
		"exit_price":  roundedPrice(row[ColExitPrice]),
		"size":        coerce.Int(row[ColSize]),
		"gross_pnl":   gross,
		"fees":        fees,
		"pnl":         coerce.Round2(gross - fees),
		"duration":    coerce.StringPtr(row[ColTradeDuration]),
		"is_imported": true,
		"source":      model.SourceCSVImport,
	}

	if id, ok := coerce.String(row[ColID]); ok {
		trade["broker_trade_id"] = id
	}

	return trade
}

// ParseSymbol extracts the root symbol from a contract name: the leading run
// of letters, uppercased, minus a trailing futures month code when the name
// continues with the contract year ("ESZ4" -> "ES", "MNQH25" -> "MNQ").
func ParseSymbol(contract string) string {
	contract = strings.ToUpper(strings.TrimSpace(contract))

	end := 0
	for end < len(contract) && contract[end] >= 'A' && contract[end] <= 'Z' {
		end++
	}
	if end == 0 {
		return UnknownSymbol
	}

	root := contract[:end]
	if end > 1 && end < len(contract) && contract[end] >= '0' && contract[end] <= '9' &&
		strings.IndexByte(futuresMonthCodes, root[end-1]) >= 0 {
		root = root[:end-1]
	}
	return root
}

func tradeDate(tradeDay string, entered *time.Time) interface{} {
	if day := coerce.Timestamp(tradeDay); day != nil {
		return day.Format("2006-01-02")
	}
	if entered != nil {
		return entered.Format("2006-01-02")
	}
	return nil
}

func clock(entered *time.Time) string {
	if entered == nil {
		return defaultTime
	}
	return entered.Format("15:04")
}

func timeOrNil(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

func roundedPrice(v string) *float64 {
	return coerce.RoundPtr(coerce.Float(v), 4)
}
