package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradejournal/src/database"
	"tradejournal/src/model"
)

// ExceptionRepository handles persistence of captured failures.
type ExceptionRepository struct {
	db *gorm.DB
}

// NewExceptionRepository creates a new repository instance.
func NewExceptionRepository() *ExceptionRepository {
	return &ExceptionRepository{
		db: database.MainDB,
	}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *ExceptionRepository) WithDB(db *gorm.DB) *ExceptionRepository {
	return &ExceptionRepository{db: db}
}

// Create persists a new exception in the database.
func (r *ExceptionRepository) Create(
	ctx context.Context,
	exc *model.Exception,
) error {

	logger.WithFields(map[string]interface{}{
		"service": exc.Service,
		"module":  exc.Module,
		"method":  exc.Method,
		"level":   exc.Level,
		"user_id": exc.UserID,
	}).Error("Persisting exception")

	return r.db.WithContext(ctx).Create(exc).Error
}

// FindRecentByUser returns the latest exceptions recorded for a user.
func (r *ExceptionRepository) FindRecentByUser(
	ctx context.Context,
	userID string,
	limit int,
) ([]model.Exception, error) {

	var out []model.Exception
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "ExceptionRepository",
			"op":      "FindRecentByUser",
			"user_id": userID,
		}).WithError(err).Error("Failed to list exceptions")

		return nil, err
	}

	return out, nil
}
