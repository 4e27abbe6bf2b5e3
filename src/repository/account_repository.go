package repository

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradejournal/src/database"
	"tradejournal/src/model"
)

// AccountRepository handles read/write operations for trading accounts.
type AccountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new repository instance using the main read/write database.
func NewAccountRepository() *AccountRepository {
	return &AccountRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *AccountRepository) WithDB(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create inserts a new account. A second account with the same name for the
// same user fails with gorm.ErrDuplicatedKey.
func (r *AccountRepository) Create(
	ctx context.Context,
	account *model.Account,
) error {

	logger.WithFields(map[string]interface{}{
		"repo":    "AccountRepository",
		"op":      "Create",
		"user_id": account.UserID,
		"name":    account.Name,
	}).Debug("Creating account")

	if err := r.db.WithContext(ctx).Create(account).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "AccountRepository",
			"op":      "Create",
			"user_id": account.UserID,
		}).WithError(err).Error("Failed to create account")

		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo":       "AccountRepository",
		"op":         "Create",
		"account_id": account.ID,
	}).Info("Account created")

	return nil
}

// FindByUser lists the user's accounts by name.
func (r *AccountRepository) FindByUser(
	ctx context.Context,
	userID string,
) ([]model.Account, error) {

	var accounts []model.Account
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("name ASC").
		Find(&accounts).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "AccountRepository",
			"op":      "FindByUser",
			"user_id": userID,
		}).WithError(err).Error("Failed to list accounts")

		return nil, err
	}

	return accounts, nil
}

// FindByID fetches one account of the user.
// Returns (nil, nil) if the account is not found.
func (r *AccountRepository) FindByID(
	ctx context.Context,
	id uint,
	userID string,
) (*model.Account, error) {

	var account model.Account
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&account).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo": "AccountRepository",
			"op":   "FindByID",
			"id":   id,
		}).WithError(err).Error("Failed to fetch account")

		return nil, err
	}

	return &account, nil
}
