package service

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"tradejournal/src/model"
)

const serviceName = "trade_service"

const (
	defaultFailureLimit = 20
	maxFailureLimit     = 100
)

// ExceptionStore persists captured failures.
type ExceptionStore interface {
	Create(ctx context.Context, exc *model.Exception) error
	FindRecentByUser(ctx context.Context, userID string, limit int) ([]model.Exception, error)
}

// ListImportFailures returns the latest failures captured for the current
// user, newest first. limit defaults to 20 and is capped at 100.
func (s *TradeService) ListImportFailures(ctx context.Context, limit int) ([]model.Exception, error) {
	userID, err := currentUserID(ctx)
	if err != nil {
		return nil, err
	}
	if s.exceptions == nil {
		return []model.Exception{}, nil
	}

	if limit <= 0 {
		limit = defaultFailureLimit
	}
	if limit > maxFailureLimit {
		limit = maxFailureLimit
	}

	failures, err := s.exceptions.FindRecentByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list import failures: %w", err)
	}
	return failures, nil
}

// capture records a failure, logs it locally and persists it when a store
// is configured. It never changes the error the caller returns.
func (s *TradeService) capture(
	ctx context.Context,
	module string,
	method string,
	userID string,
	err error,
	contextData map[string]interface{},
) {

	if err == nil {
		return
	}

	var ctxJSON datatypes.JSON
	if contextData != nil {
		if b, e := json.Marshal(contextData); e == nil {
			ctxJSON = b
		}
	}

	exc := &model.Exception{
		Service:   serviceName,
		Module:    module,
		Method:    method,
		UserID:    userID,
		Message:   err.Error(),
		Stack:     string(debug.Stack()),
		Level:     "error",
		Context:   ctxJSON,
		CreatedAt: time.Now(),
	}

	logger.WithFields(map[string]interface{}{
		"service": serviceName,
		"module":  module,
		"method":  method,
		"user_id": userID,
	}).WithError(err).Error("Exception captured")

	if s.exceptions != nil {
		if e := s.exceptions.Create(ctx, exc); e != nil {
			logger.WithError(e).Error("Failed to persist exception")
		}
	}
}
