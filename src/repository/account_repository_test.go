package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"tradejournal/src/model"
)

func TestAccountRepository(t *testing.T) {
	repo := (&AccountRepository{}).WithDB(newSQLiteDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &model.Account{UserID: "u1", Name: "Topstep 50k"}))
	require.NoError(t, repo.Create(ctx, &model.Account{UserID: "u1", Name: "Apex"}))
	require.NoError(t, repo.Create(ctx, &model.Account{UserID: "u2", Name: "Apex"}))

	err := repo.Create(ctx, &model.Account{UserID: "u1", Name: "Apex"})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	accounts, err := repo.FindByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "Apex", accounts[0].Name)

	found, err := repo.FindByID(ctx, accounts[0].ID, "u2")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestExceptionRepository(t *testing.T) {
	repo := (&ExceptionRepository{}).WithDB(newSQLiteDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &model.Exception{
		Service: "trade_service",
		Module:  "importer",
		Method:  "AddMultipleTrades",
		UserID:  "u1",
		Message: "connection refused",
		Level:   "error",
		Context: datatypes.JSON(`{"rows":3}`),
	}))

	out, err := repo.FindRecentByUser(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "AddMultipleTrades", out[0].Method)
}
