package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tradejournal/src/csvimport"
	"tradejournal/src/service"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.WithError(err).Error("failed to encode response")
	}
}

// writeError maps service errors to status codes. Anything unknown is a 500
// and its message is not sent to the client.
func writeError(w http.ResponseWriter, err error, op string) {
	status := http.StatusInternalServerError
	message := "Internal Server Error"

	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		status, message = http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, service.ErrTradeNotFound), errors.Is(err, service.ErrAccountNotFound):
		status, message = http.StatusNotFound, err.Error()
	case errors.Is(err, service.ErrInvalidAccount), errors.Is(err, csvimport.ErrEmptyFile),
		errors.Is(err, csvimport.ErrMalformedFile):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrForbiddenPath):
		status, message = http.StatusForbidden, err.Error()
	case errors.Is(err, service.ErrStorageDisabled):
		status, message = http.StatusServiceUnavailable, err.Error()
	case errors.Is(err, gorm.ErrDuplicatedKey):
		status, message = http.StatusConflict, "already exists"
	}

	entry := logger.WithField("op", op).WithError(err)
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Warn("request rejected")
	}

	writeJSON(w, status, map[string]string{"error": message})
}

func idParam(r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func optionalUint(value string) (*uint, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return nil, err
	}
	id := uint(parsed)
	return &id, nil
}
