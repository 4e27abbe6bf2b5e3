package fingerprint

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradejournal/src/model"
)

func sampleTrade() *model.Trade {
	entry := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	exit := time.Date(2024, 1, 2, 9, 45, 0, 0, time.UTC)
	size := int64(2)
	entryPrice := 4500.25
	exitPrice := 4505.5
	return &model.Trade{
		Symbol:     "es",
		Direction:  "Long",
		EntryTime:  &entry,
		ExitTime:   &exit,
		EntryPrice: &entryPrice,
		ExitPrice:  &exitPrice,
		Size:       &size,
	}
}

func TestBuild(t *testing.T) {
	key, ok := Build(sampleTrade())
	require.True(t, ok)
	assert.Equal(t, "ES|LONG|2024-01-02T09:30:00.000Z|2024-01-02T09:45:00.000Z|4500.2500|4505.5000|2", key)
}

func TestBuild_StableAndIgnoresMoney(t *testing.T) {
	base := sampleTrade()
	first, ok := Build(base)
	require.True(t, ok)

	again, _ := Build(base)
	assert.Equal(t, first, again)

	pnl, gross, fees := 100.0, 105.0, 5.0
	edited := sampleTrade()
	edited.Pnl = &pnl
	edited.GrossPnl = &gross
	edited.Fees = &fees

	withMoney, _ := Build(edited)
	assert.Equal(t, first, withMoney)
}

func TestBuild_NormalizesTimezoneAndDefaults(t *testing.T) {
	tr := sampleTrade()
	ny := time.FixedZone("EST", -5*3600)
	entry := tr.EntryTime.In(ny)
	tr.EntryTime = &entry
	tr.Direction = ""
	tr.EntryPrice = nil
	tr.Size = nil

	key, ok := Build(tr)
	require.True(t, ok)
	assert.Equal(t, "ES|LONG|2024-01-02T09:30:00.000Z|2024-01-02T09:45:00.000Z|0.0000|4505.5000|0", key)
}

func TestBuild_MissingIdentity(t *testing.T) {
	noExit := sampleTrade()
	noExit.ExitTime = nil
	_, ok := Build(noExit)
	assert.False(t, ok)

	noSymbol := sampleTrade()
	noSymbol.Symbol = " "
	_, ok = Build(noSymbol)
	assert.False(t, ok)

	_, ok = Build(nil)
	assert.False(t, ok)
}

func TestBuild_DirectionMatters(t *testing.T) {
	long, _ := Build(sampleTrade())
	short := sampleTrade()
	short.Direction = "Short"
	shortKey, _ := Build(short)
	assert.NotEqual(t, long, shortKey)
}

func TestLegacy(t *testing.T) {
	key, ok := Legacy(sampleTrade())
	require.True(t, ok)
	assert.Equal(t, "ES_2024-01-02T09:30:00.000Z_2024-01-02T09:45:00.000Z", key)

	// a different size collides under the legacy identity but not the current one
	other := sampleTrade()
	bigger := int64(5)
	other.Size = &bigger
	legacyOther, _ := Legacy(other)
	assert.Equal(t, key, legacyOther)

	current, _ := Build(sampleTrade())
	currentOther, _ := Build(other)
	assert.NotEqual(t, current, currentOther)
}

func TestSet(t *testing.T) {
	invalid := sampleTrade()
	invalid.EntryTime = nil

	set := Set([]model.Trade{*sampleTrade(), *sampleTrade(), *invalid})
	assert.Len(t, set, 1)
}
