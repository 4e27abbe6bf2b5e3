package migrations

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"tradejournal/src/model"
)

func newTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open in memory db: %v", err)
	}
	return db
}

func TestRunOnce(t *testing.T) {
	db := newTestDB(t, "run_once")

	calls := 0
	fn := func(*gorm.DB) error {
		calls++
		return nil
	}

	require.NoError(t, RunOnce(db, "00000_test", fn))
	require.NoError(t, RunOnce(db, "00000_test", fn))
	assert.Equal(t, 1, calls)

	assert.Error(t, RunOnce(db, "", fn))
	assert.Error(t, RunOnce(db, "00000_nil", nil))

	failing := func(*gorm.DB) error { return errors.New("boom") }
	require.Error(t, RunOnce(db, "00000_retry", failing))
	// not recorded, so the next start tries again
	require.NoError(t, RunOnce(db, "00000_retry", fn))
	assert.Equal(t, 2, calls)
}

func TestLegacyTradeMigrations(t *testing.T) {
	db := newTestDB(t, "legacy_trades")

	require.NoError(t, db.Exec(`CREATE TABLE trades (
		id integer PRIMARY KEY AUTOINCREMENT,
		user_id text NOT NULL,
		symbol text NOT NULL,
		"accountType" text,
		screenshot_url text
	)`).Error)
	require.NoError(t, db.Exec(`INSERT INTO trades (user_id, symbol, "accountType", screenshot_url) VALUES
		('u1', 'ES', 'Apex', 'https://img/1.png'),
		('u1', 'NQ', 'Apex', ''),
		('u2', 'CL', 'Topstep', NULL)`).Error)

	require.NoError(t, PrepareLegacyTradeColumns(db))
	assert.True(t, db.Migrator().HasColumn("trades", "account_type"))

	require.NoError(t, db.AutoMigrate(&model.Account{}, &model.Trade{}))
	require.NoError(t, Run(db))
	// second run is a no-op
	require.NoError(t, Run(db))

	assert.False(t, db.Migrator().HasColumn("trades", "screenshot_url"))

	var trades []model.Trade
	require.NoError(t, db.Order("id").Find(&trades).Error)
	require.Len(t, trades, 3)

	require.NotNil(t, trades[0].ImageURL)
	assert.Equal(t, "https://img/1.png", *trades[0].ImageURL)
	assert.Nil(t, trades[1].ImageURL)

	var accounts []model.Account
	require.NoError(t, db.Order("user_id").Find(&accounts).Error)
	require.Len(t, accounts, 2)

	require.NotNil(t, trades[0].AccountID)
	require.NotNil(t, trades[1].AccountID)
	assert.Equal(t, *trades[0].AccountID, *trades[1].AccountID)
	require.NotNil(t, trades[2].AccountID)
	assert.NotEqual(t, *trades[0].AccountID, *trades[2].AccountID)
}
