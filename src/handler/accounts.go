package handler

import (
	"context"
	"encoding/json"
	"net/http"

	logger "github.com/sirupsen/logrus"

	"tradejournal/src/auth"
	"tradejournal/src/model"
)

type accountService interface {
	ListAccounts(ctx context.Context) ([]model.Account, error)
	CreateAccount(ctx context.Context, payload model.CreateAccountPayload) (*model.Account, error)
}

func ListAccountsHandler(svc accountService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.GetUserFromContext(r.Context()); !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		accounts, err := svc.ListAccounts(r.Context())
		if err != nil {
			writeError(w, err, "ListAccounts")
			return
		}

		writeJSON(w, http.StatusOK, accounts)
	}
}

func CreateAccountHandler(svc accountService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.GetUserFromContext(r.Context()); !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		var payload model.CreateAccountPayload
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&payload); err != nil {
			logger.WithError(err).Warn("invalid account payload")
			http.Error(w, "Invalid payload", http.StatusBadRequest)
			return
		}

		account, err := svc.CreateAccount(r.Context(), payload)
		if err != nil {
			writeError(w, err, "CreateAccount")
			return
		}

		writeJSON(w, http.StatusCreated, account)
	}
}
