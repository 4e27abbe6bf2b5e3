package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	logger "github.com/sirupsen/logrus"

	"tradejournal/src/auth"
	"tradejournal/src/model"
	"tradejournal/src/service"
)

type tradeLister interface {
	ListTrades(ctx context.Context, options service.ListOptions) ([]model.Trade, error)
}

type tradeWriter interface {
	AddTrade(ctx context.Context, raw model.RawTrade) (*model.Trade, error)
	UpdateTrade(ctx context.Context, id uint, raw model.RawTrade) (*model.Trade, error)
	DeleteTrade(ctx context.Context, id uint) error
	DeleteAllTrades(ctx context.Context) (int64, error)
}

// ListTradesHandler returns a handler that lists trades for the authenticated user.
// Supports pagination and filters (accountId, symbol, dateFrom, dateTo).
func ListTradesHandler(svc tradeLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		query := r.URL.Query()

		accountID, err := optionalUint(query.Get("accountId"))
		if err != nil {
			http.Error(w, "invalid accountId", http.StatusBadRequest)
			return
		}

		var symbol *string
		if symbolParam := query.Get("symbol"); symbolParam != "" {
			symbol = &symbolParam
		}

		var dateFrom, dateTo *string
		for param, target := range map[string]**string{"dateFrom": &dateFrom, "dateTo": &dateTo} {
			value := query.Get(param)
			if value == "" {
				continue
			}
			if _, err := time.Parse("2006-01-02", value); err != nil {
				http.Error(w, "invalid "+param, http.StatusBadRequest)
				return
			}
			*target = &value
		}

		page := 1
		if pageParam := query.Get("page"); pageParam != "" {
			parsedPage, err := strconv.Atoi(pageParam)
			if err != nil || parsedPage <= 0 {
				http.Error(w, "invalid page", http.StatusBadRequest)
				return
			}
			page = parsedPage
		}

		pageSize := 0
		if sizeParam := query.Get("pageSize"); sizeParam != "" {
			parsedSize, err := strconv.Atoi(sizeParam)
			if err != nil || parsedSize <= 0 {
				http.Error(w, "invalid pageSize", http.StatusBadRequest)
				return
			}
			pageSize = parsedSize
		}

		trades, err := svc.ListTrades(r.Context(), service.ListOptions{
			AccountID: accountID,
			Symbol:    symbol,
			DateFrom:  dateFrom,
			DateTo:    dateTo,
			Page:      page,
			PageSize:  pageSize,
		})
		if err != nil {
			writeError(w, err, "ListTrades")
			return
		}

		logger.WithFields(map[string]interface{}{
			"user_id": user.ID,
			"count":   len(trades),
		}).Debug("trades listed")

		writeJSON(w, http.StatusOK, trades)
	}
}

// CreateTradeHandler stores one trade from a form post.
func CreateTradeHandler(svc tradeWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.GetUserFromContext(r.Context()); !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		raw, ok := decodeRawTrade(w, r)
		if !ok {
			return
		}

		trade, err := svc.AddTrade(r.Context(), raw)
		if err != nil {
			writeError(w, err, "AddTrade")
			return
		}

		writeJSON(w, http.StatusCreated, trade)
	}
}

// UpdateTradeHandler replaces the trade named by the {id} URL parameter.
func UpdateTradeHandler(svc tradeWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.GetUserFromContext(r.Context()); !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		id, ok := idParam(r)
		if !ok {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}

		raw, ok := decodeRawTrade(w, r)
		if !ok {
			return
		}

		trade, err := svc.UpdateTrade(r.Context(), id, raw)
		if err != nil {
			writeError(w, err, "UpdateTrade")
			return
		}

		writeJSON(w, http.StatusOK, trade)
	}
}

// DeleteTradeHandler removes the trade named by the {id} URL parameter.
func DeleteTradeHandler(svc tradeWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.GetUserFromContext(r.Context()); !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		id, ok := idParam(r)
		if !ok {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}

		if err := svc.DeleteTrade(r.Context(), id); err != nil {
			writeError(w, err, "DeleteTrade")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// DeleteAllTradesHandler removes every trade of the user.
func DeleteAllTradesHandler(svc tradeWriter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.GetUserFromContext(r.Context()); !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		deleted, err := svc.DeleteAllTrades(r.Context())
		if err != nil {
			writeError(w, err, "DeleteAllTrades")
			return
		}

		writeJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
	}
}

func decodeRawTrade(w http.ResponseWriter, r *http.Request) (model.RawTrade, bool) {
	var raw model.RawTrade
	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&raw); err != nil || raw == nil {
		logger.WithError(err).Warn("invalid trade payload")
		http.Error(w, "Invalid payload", http.StatusBadRequest)
		return nil, false
	}
	return raw, true
}
