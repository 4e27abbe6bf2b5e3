package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tradejournal/src/database"
	"tradejournal/src/model"
)

// ErrUpsertUnsupported is returned by UpsertIgnoringDuplicates when the
// store cannot resolve the conflict target (upserts disabled, or the unique
// index on the fill identity is missing).
var ErrUpsertUnsupported = errors.New("upsert with conflict target is not supported")

// pgInvalidConflictTarget is "there is no unique or exclusion constraint
// matching the ON CONFLICT specification".
const pgInvalidConflictTarget = "42P10"

// TradeSearchOptions filters a user's trades. UserID is always applied.
type TradeSearchOptions struct {
	UserID    string
	AccountID *uint
	Symbol    *string
	DateFrom  *string
	DateTo    *string
	Limit     int
	Offset    int
}

// TradeRepository handles read/write operations for journaled trades.
// Every query is scoped to a user.
type TradeRepository struct {
	db            *gorm.DB
	upsertEnabled bool
}

// NewTradeRepository creates a new repository instance using the main read/write database.
func NewTradeRepository() *TradeRepository {
	logger.WithField("component", "TradeRepository").
		Info("Creating new TradeRepository with MainDB")

	return &TradeRepository{
		db:            database.MainDB,
		upsertEnabled: database.GetConfig().EnableUpsert,
	}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests or when using a specific session/transaction.
func (r *TradeRepository) WithDB(db *gorm.DB) *TradeRepository {
	logger.WithField("component", "TradeRepository").
		Debug("Creating TradeRepository with custom DB instance")

	return &TradeRepository{db: db, upsertEnabled: r.upsertEnabled}
}

// WithUpsert toggles use of the conflict-target upsert.
func (r *TradeRepository) WithUpsert(enabled bool) *TradeRepository {
	return &TradeRepository{db: r.db, upsertEnabled: enabled}
}

// Create inserts a new trade. The given trade is updated with the generated ID and timestamps.
func (r *TradeRepository) Create(
	ctx context.Context,
	trade *model.Trade,
) error {

	logger.WithFields(map[string]interface{}{
		"repo":    "TradeRepository",
		"op":      "Create",
		"user_id": trade.UserID,
		"symbol":  trade.Symbol,
	}).Debug("Creating new trade")

	if err := r.db.WithContext(ctx).Create(trade).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "TradeRepository",
			"op":      "Create",
			"user_id": trade.UserID,
		}).WithError(err).Error("Failed to create trade")

		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo":     "TradeRepository",
		"op":       "Create",
		"trade_id": trade.ID,
	}).Info("Trade created successfully")

	return nil
}

// CreateMany inserts trades in one batch with no conflict handling.
// A unique violation fails the whole batch with gorm.ErrDuplicatedKey.
func (r *TradeRepository) CreateMany(
	ctx context.Context,
	trades []*model.Trade,
) error {

	if len(trades) == 0 {
		return nil
	}

	logger.WithFields(map[string]interface{}{
		"repo":  "TradeRepository",
		"op":    "CreateMany",
		"count": len(trades),
	}).Debug("Inserting trades")

	if err := r.db.WithContext(ctx).Create(&trades).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":  "TradeRepository",
			"op":    "CreateMany",
			"count": len(trades),
		}).WithError(err).Error("Failed to insert trades")

		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo":  "TradeRepository",
		"op":    "CreateMany",
		"count": len(trades),
	}).Info("Trades inserted")

	return nil
}

// UpsertIgnoringDuplicates inserts trades one row at a time inside a single
// transaction, silently skipping rows that collide on (user_id + fill
// identity columns). It returns the trades that were actually created, in
// input order; skipped trades keep a zero ID.
func (r *TradeRepository) UpsertIgnoringDuplicates(
	ctx context.Context,
	trades []*model.Trade,
) ([]*model.Trade, error) {

	if len(trades) == 0 {
		return nil, nil
	}
	if !r.upsertEnabled {
		return nil, ErrUpsertUnsupported
	}

	logger.WithFields(map[string]interface{}{
		"repo":  "TradeRepository",
		"op":    "UpsertIgnoringDuplicates",
		"count": len(trades),
	}).Debug("Upserting trades")

	columns := []clause.Column{{Name: "user_id"}}
	for _, name := range model.IdentityColumns {
		columns = append(columns, clause.Column{Name: name})
	}

	created := make([]*model.Trade, 0, len(trades))
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, trade := range trades {
			res := tx.Clauses(clause.OnConflict{
				Columns:   columns,
				DoNothing: true,
			}).Create(trade)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				trade.ID = 0
				continue
			}
			created = append(created, trade)
		}
		return nil
	})

	if err != nil {
		// rolled back, so no ID handed out above is valid
		for _, trade := range created {
			trade.ID = 0
		}

		if isInvalidConflictTarget(err) {
			logger.WithFields(map[string]interface{}{
				"repo": "TradeRepository",
				"op":   "UpsertIgnoringDuplicates",
			}).WithError(err).Warn("Conflict target not available")

			return nil, ErrUpsertUnsupported
		}

		logger.WithFields(map[string]interface{}{
			"repo":  "TradeRepository",
			"op":    "UpsertIgnoringDuplicates",
			"count": len(trades),
		}).WithError(err).Error("Failed to upsert trades")

		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"repo":    "TradeRepository",
		"op":      "UpsertIgnoringDuplicates",
		"count":   len(trades),
		"created": len(created),
	}).Info("Trades upserted")

	return created, nil
}

func isInvalidConflictTarget(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgInvalidConflictTarget
	}
	// sqlite reports it as a plain message
	return strings.Contains(err.Error(), "ON CONFLICT clause does not match")
}

// FindIdentityColumns returns every trade of the user with only the columns
// a fill identity is built from.
func (r *TradeRepository) FindIdentityColumns(
	ctx context.Context,
	userID string,
) ([]model.Trade, error) {

	logger.WithFields(map[string]interface{}{
		"repo":    "TradeRepository",
		"op":      "FindIdentityColumns",
		"user_id": userID,
	}).Debug("Fetching trade identity columns")

	var trades []model.Trade

	err := r.db.WithContext(ctx).
		Model(&model.Trade{}).
		Select(append([]string{"id"}, model.IdentityColumns...)).
		Where("user_id = ?", userID).
		Find(&trades).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "TradeRepository",
			"op":      "FindIdentityColumns",
			"user_id": userID,
		}).WithError(err).Error("Failed to fetch trade identity columns")

		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"repo":        "TradeRepository",
		"op":          "FindIdentityColumns",
		"user_id":     userID,
		"rows_return": len(trades),
	}).Debug("Trade identity columns fetched")

	return trades, nil
}

// FindByID fetches a single trade of the user.
// Returns (nil, nil) if the trade is not found.
func (r *TradeRepository) FindByID(
	ctx context.Context,
	id uint,
	userID string,
) (*model.Trade, error) {

	logger.WithFields(map[string]interface{}{
		"repo":    "TradeRepository",
		"op":      "FindByID",
		"id":      id,
		"user_id": userID,
	}).Debug("Fetching trade by ID")

	var trade model.Trade

	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&trade).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.WithFields(map[string]interface{}{
				"repo": "TradeRepository",
				"op":   "FindByID",
				"id":   id,
			}).Info("Trade not found")

			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo": "TradeRepository",
			"op":   "FindByID",
			"id":   id,
		}).WithError(err).Error("Failed to fetch trade by ID")

		return nil, err
	}

	return &trade, nil
}

// Update replaces every normalizable column of the trade with the given
// values (nil values are written as NULL) and returns the stored record.
// Returns (nil, nil) if no trade with that id belongs to the user.
func (r *TradeRepository) Update(
	ctx context.Context,
	id uint,
	trade *model.Trade,
) (*model.Trade, error) {

	logger.WithFields(map[string]interface{}{
		"repo":    "TradeRepository",
		"op":      "Update",
		"id":      id,
		"user_id": trade.UserID,
	}).Debug("Updating trade")

	trade.ID = id
	trade.UpdatedAt = time.Now()

	result := r.db.WithContext(ctx).
		Model(&model.Trade{}).
		Where("id = ? AND user_id = ?", id, trade.UserID).
		Select("*").
		Omit("id", "created_at").
		Updates(trade)

	if result.Error != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "TradeRepository",
			"op":   "Update",
			"id":   id,
		}).WithError(result.Error).Error("Failed to update trade")

		return nil, result.Error
	}

	if result.RowsAffected == 0 {
		logger.WithFields(map[string]interface{}{
			"repo":    "TradeRepository",
			"op":      "Update",
			"id":      id,
			"user_id": trade.UserID,
		}).Info("Trade not found for update")

		return nil, nil
	}

	logger.WithFields(map[string]interface{}{
		"repo": "TradeRepository",
		"op":   "Update",
		"id":   id,
	}).Info("Trade updated successfully")

	return r.FindByID(ctx, id, trade.UserID)
}

// Delete removes one trade of the user and reports how many rows went away.
func (r *TradeRepository) Delete(
	ctx context.Context,
	id uint,
	userID string,
) (int64, error) {

	logger.WithFields(map[string]interface{}{
		"repo":    "TradeRepository",
		"op":      "Delete",
		"id":      id,
		"user_id": userID,
	}).Debug("Deleting trade")

	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&model.Trade{})

	if result.Error != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "TradeRepository",
			"op":   "Delete",
			"id":   id,
		}).WithError(result.Error).Error("Failed to delete trade")

		return 0, result.Error
	}

	logger.WithFields(map[string]interface{}{
		"repo":          "TradeRepository",
		"op":            "Delete",
		"id":            id,
		"rows_affected": result.RowsAffected,
	}).Info("Trade deleted")

	return result.RowsAffected, nil
}

// DeleteAllByUser removes every trade of the user.
func (r *TradeRepository) DeleteAllByUser(
	ctx context.Context,
	userID string,
) (int64, error) {

	logger.WithFields(map[string]interface{}{
		"repo":    "TradeRepository",
		"op":      "DeleteAllByUser",
		"user_id": userID,
	}).Debug("Deleting all trades of user")

	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&model.Trade{})

	if result.Error != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "TradeRepository",
			"op":      "DeleteAllByUser",
			"user_id": userID,
		}).WithError(result.Error).Error("Failed to delete trades of user")

		return 0, result.Error
	}

	logger.WithFields(map[string]interface{}{
		"repo":          "TradeRepository",
		"op":            "DeleteAllByUser",
		"user_id":       userID,
		"rows_affected": result.RowsAffected,
	}).Info("All trades of user deleted")

	return result.RowsAffected, nil
}

// Search lists the user's trades, newest first.
func (r *TradeRepository) Search(
	ctx context.Context,
	options TradeSearchOptions,
) ([]model.Trade, error) {

	logger.WithFields(map[string]interface{}{
		"repo":    "TradeRepository",
		"op":      "Search",
		"user_id": options.UserID,
	}).Debug("Searching trades")

	query := r.db.WithContext(ctx).Where("user_id = ?", options.UserID)

	if options.AccountID != nil {
		query = query.Where("account_id = ?", *options.AccountID)
	}
	if options.Symbol != nil {
		query = query.Where("symbol = ?", strings.ToUpper(*options.Symbol))
	}
	if options.DateFrom != nil {
		query = query.Where("date >= ?", *options.DateFrom)
	}
	if options.DateTo != nil {
		query = query.Where("date <= ?", *options.DateTo)
	}

	query = query.Order("date DESC, id DESC")

	if options.Limit > 0 {
		query = query.Limit(options.Limit)
	}
	if options.Offset > 0 {
		query = query.Offset(options.Offset)
	}

	var trades []model.Trade
	if err := query.Find(&trades).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "TradeRepository",
			"op":      "Search",
			"user_id": options.UserID,
		}).WithError(err).Error("Failed to search trades")

		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"repo":        "TradeRepository",
		"op":          "Search",
		"user_id":     options.UserID,
		"rows_return": len(trades),
	}).Info("Trades fetched")

	return trades, nil
}
