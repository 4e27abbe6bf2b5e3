package migrations

import (
	"fmt"

	"gorm.io/gorm"
)

const tradesTable = "trades"

// legacyTradeColumns maps column names written by older clients to the
// current ones.
var legacyTradeColumns = map[string]string{
	"accountType": "account_type",
	"grossPnl":    "gross_pnl",
	"isImported":  "is_imported",
}

// PrepareLegacyTradeColumns renames camelCase trade columns before
// AutoMigrate runs, so it does not add empty snake_case twins next to them.
func PrepareLegacyTradeColumns(db *gorm.DB) error {
	migrator := db.Migrator()
	if !migrator.HasTable(tradesTable) {
		return nil
	}

	for legacy, current := range legacyTradeColumns {
		if !migrator.HasColumn(tradesTable, legacy) || migrator.HasColumn(tradesTable, current) {
			continue
		}
		if err := migrator.RenameColumn(tradesTable, legacy, current); err != nil {
			return fmt.Errorf("rename %s.%s to %s: %w", tradesTable, legacy, current, err)
		}
	}

	return nil
}
