package migrations

import (
	"errors"
	"fmt"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DataMigration is one row of the ledger of applied journal data migrations.
type DataMigration struct {
	ID        string    `gorm:"primaryKey;size:200;column:id"`
	AppliedAt time.Time `gorm:"not null;column:applied_at"`
}

func (DataMigration) TableName() string { return "data_migrations" }

// RunOnce applies migrate inside a transaction unless id is already in the
// ledger. The ledger row is written in the same transaction, so a failed
// migration is retried on the next start.
func RunOnce(db *gorm.DB, id string, migrate func(*gorm.DB) error) error {
	switch {
	case db == nil:
		return nil
	case id == "":
		return errors.New("data migration without an id")
	case migrate == nil:
		return fmt.Errorf("data migration %s has no body", id)
	}

	if err := db.AutoMigrate(&DataMigration{}); err != nil {
		return fmt.Errorf("create migration ledger: %w", err)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var applied int64
		if err := tx.Model(&DataMigration{}).Where("id = ?", id).Count(&applied).Error; err != nil {
			return fmt.Errorf("read migration ledger for %s: %w", id, err)
		}
		if applied > 0 {
			return nil
		}

		logger.WithField("migration", id).Info("Applying data migration")

		if err := migrate(tx); err != nil {
			return fmt.Errorf("data migration %s: %w", id, err)
		}

		entry := DataMigration{ID: id, AppliedAt: time.Now().UTC()}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("write migration ledger for %s: %w", id, err)
		}
		return nil
	})
}

// Run executes all data migrations that go beyond schema auto-migrations.
// Append new migrations at the bottom with a stable unique id.
func Run(db *gorm.DB) error {
	if db == nil {
		return nil
	}

	if err := RunOnce(db, "00001_fold_legacy_screenshot_column", foldLegacyScreenshotColumn); err != nil {
		return err
	}

	if err := RunOnce(db, "00002_backfill_accounts_from_account_type", backfillAccountsFromAccountType); err != nil {
		return err
	}

	return nil
}
