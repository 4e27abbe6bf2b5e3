// Package fingerprint derives the identity of a trade fill, used to keep
// imports from storing the same fill twice.
package fingerprint

import (
	"math"
	"strconv"
	"strings"
	"time"

	"tradejournal/src/model"
)

const (
	// Separator joins the identity parts.
	Separator = "|"

	legacySeparator = "_"

	isoLayout = "2006-01-02T15:04:05.000Z"
)

// Build returns the fill identity of t: symbol, direction, entry and exit
// timestamps, entry and exit price and size. P&L and fees are not part of it,
// so correcting commissions on an imported fill keeps its identity.
// The second return value is false when symbol or either timestamp is
// missing; such trades cannot be imported.
//
// Fills that agree on every part collide on purpose, including partial exits
// at the same prices and size.
func Build(t *model.Trade) (string, bool) {
	if t == nil || strings.TrimSpace(t.Symbol) == "" || t.EntryTime == nil || t.ExitTime == nil {
		return "", false
	}

	direction := strings.TrimSpace(t.Direction)
	if direction == "" {
		direction = model.DirectionLong
	}

	parts := []string{
		strings.ToUpper(strings.TrimSpace(t.Symbol)),
		strings.ToUpper(direction),
		iso(*t.EntryTime),
		iso(*t.ExitTime),
		price(t.EntryPrice),
		price(t.ExitPrice),
		size(t.Size),
	}

	return strings.Join(parts, Separator), true
}

// Legacy returns the older symbol/entry/exit identity. It collides far more
// often than Build and only exists to match identities stored by earlier
// versions; do not use it for new de-dup decisions.
func Legacy(t *model.Trade) (string, bool) {
	if t == nil || strings.TrimSpace(t.Symbol) == "" || t.EntryTime == nil || t.ExitTime == nil {
		return "", false
	}

	return strings.Join([]string{
		strings.ToUpper(strings.TrimSpace(t.Symbol)),
		iso(*t.EntryTime),
		iso(*t.ExitTime),
	}, legacySeparator), true
}

// Set fingerprints trades and returns the identities that could be built.
func Set(trades []model.Trade) map[string]struct{} {
	out := make(map[string]struct{}, len(trades))
	for i := range trades {
		if key, ok := Build(&trades[i]); ok {
			out[key] = struct{}{}
		}
	}
	return out
}

func iso(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

func price(p *float64) string {
	if p == nil || math.IsNaN(*p) || math.IsInf(*p, 0) {
		return "0.0000"
	}
	return strconv.FormatFloat(*p, 'f', 4, 64)
}

func size(s *int64) string {
	if s == nil {
		return "0"
	}
	return strconv.FormatInt(*s, 10)
}
