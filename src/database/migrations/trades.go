package migrations

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"tradejournal/src/model"
)

const legacyScreenshotColumn = "screenshot_url"

// foldLegacyScreenshotColumn copies screenshot_url into image_url where the
// latter is empty, then drops the old column.
func foldLegacyScreenshotColumn(db *gorm.DB) error {
	migrator := db.Migrator()
	if !migrator.HasColumn(tradesTable, legacyScreenshotColumn) {
		return nil
	}

	err := db.Exec(fmt.Sprintf(
		"UPDATE %s SET image_url = %s WHERE (image_url IS NULL OR image_url = '') AND %s IS NOT NULL AND %s <> ''",
		tradesTable, legacyScreenshotColumn, legacyScreenshotColumn, legacyScreenshotColumn,
	)).Error
	if err != nil {
		return fmt.Errorf("copy %s into image_url: %w", legacyScreenshotColumn, err)
	}

	if err := migrator.DropColumn(tradesTable, legacyScreenshotColumn); err != nil {
		return fmt.Errorf("drop %s: %w", legacyScreenshotColumn, err)
	}

	return nil
}

type userAccountType struct {
	UserID      string
	AccountType string
}

// backfillAccountsFromAccountType creates one account per distinct free-text
// account_type of a user and links the user's unlinked trades to it.
func backfillAccountsFromAccountType(db *gorm.DB) error {
	var pairs []userAccountType
	err := db.Model(&model.Trade{}).
		Distinct("user_id", "account_type").
		Where("account_id IS NULL AND account_type IS NOT NULL AND account_type <> ''").
		Scan(&pairs).Error
	if err != nil {
		return fmt.Errorf("collect account types: %w", err)
	}

	for _, pair := range pairs {
		accountID, err := ensureAccount(db, pair.UserID, pair.AccountType)
		if err != nil {
			return fmt.Errorf("ensure account %q for user %s: %w", pair.AccountType, pair.UserID, err)
		}

		err = db.Model(&model.Trade{}).
			Where("user_id = ? AND account_type = ? AND account_id IS NULL", pair.UserID, pair.AccountType).
			Update("account_id", accountID).Error
		if err != nil {
			return fmt.Errorf("link trades to account %d: %w", accountID, err)
		}
	}

	return nil
}

func ensureAccount(db *gorm.DB, userID, name string) (uint, error) {
	var account model.Account
	err := db.Where("user_id = ? AND name = ?", userID, name).First(&account).Error
	if err == nil {
		return account.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}

	account = model.Account{UserID: userID, Name: name}
	if err := db.Create(&account).Error; err != nil {
		return 0, err
	}
	return account.ID, nil
}
