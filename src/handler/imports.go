package handler

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strconv"

	logger "github.com/sirupsen/logrus"

	"tradejournal/src/auth"
	"tradejournal/src/importer"
	"tradejournal/src/model"
	"tradejournal/src/service"
)

const formFileField = "file"

type tradeImporter interface {
	AddMultipleTrades(ctx context.Context, rows []model.RawTrade) (*importer.Result, error)
	ImportCSV(ctx context.Context, r io.Reader, accountID *uint) (*importer.Result, error)
}

type importPreviewer interface {
	PreviewCSV(ctx context.Context, r io.Reader) ([]service.PreviewRow, error)
}

type tradeKeyLister interface {
	GetExistingTradeKeys(ctx context.Context) ([]string, error)
}

type importFailureLister interface {
	ListImportFailures(ctx context.Context, limit int) ([]model.Exception, error)
}

// ImportTradesHandler imports either a JSON array of pre-normalized rows or a
// multipart CSV upload in the "file" field (optional "accountId" field).
func ImportTradesHandler(svc tradeImporter, maxUploadBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.GetUserFromContext(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

		var (
			result *importer.Result
			err    error
		)

		if isMultipart(r) {
			file, closeFile, ok := formFile(w, r, maxUploadBytes)
			if !ok {
				return
			}
			defer closeFile()

			accountID, parseErr := optionalUint(r.FormValue("accountId"))
			if parseErr != nil {
				http.Error(w, "invalid accountId", http.StatusBadRequest)
				return
			}

			result, err = svc.ImportCSV(r.Context(), file, accountID)
		} else {
			var rows []model.RawTrade
			decoder := json.NewDecoder(r.Body)
			decoder.UseNumber()
			if decodeErr := decoder.Decode(&rows); decodeErr != nil {
				logger.WithError(decodeErr).Warn("invalid import payload")
				http.Error(w, "Invalid payload", http.StatusBadRequest)
				return
			}

			result, err = svc.AddMultipleTrades(r.Context(), rows)
		}

		if err != nil {
			writeError(w, err, "ImportTrades")
			return
		}

		logger.WithFields(map[string]interface{}{
			"user_id":  user.ID,
			"imported": len(result.Imported),
			"skipped":  result.Skipped.Total(),
		}).Info("import request completed")

		writeJSON(w, http.StatusOK, result)
	}
}

// PreviewImportHandler transforms an uploaded CSV without storing it.
func PreviewImportHandler(svc importPreviewer, maxUploadBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.GetUserFromContext(r.Context()); !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

		file, closeFile, ok := formFile(w, r, maxUploadBytes)
		if !ok {
			return
		}
		defer closeFile()

		preview, err := svc.PreviewCSV(r.Context(), file)
		if err != nil {
			writeError(w, err, "PreviewCSV")
			return
		}

		writeJSON(w, http.StatusOK, preview)
	}
}

// TradeKeysHandler lists the fingerprints of the user's stored trades.
func TradeKeysHandler(svc tradeKeyLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.GetUserFromContext(r.Context()); !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		keys, err := svc.GetExistingTradeKeys(r.Context())
		if err != nil {
			writeError(w, err, "GetExistingTradeKeys")
			return
		}

		writeJSON(w, http.StatusOK, keys)
	}
}

// ImportFailuresHandler lists the user's recent import failures. The
// optional "limit" query parameter bounds the result.
func ImportFailuresHandler(svc importFailureLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.GetUserFromContext(r.Context()); !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 0 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			limit = parsed
		}

		failures, err := svc.ListImportFailures(r.Context(), limit)
		if err != nil {
			writeError(w, err, "ListImportFailures")
			return
		}

		writeJSON(w, http.StatusOK, failures)
	}
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

func formFile(w http.ResponseWriter, r *http.Request, maxUploadBytes int64) (io.Reader, func(), bool) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		logger.WithError(err).Warn("invalid multipart upload")
		http.Error(w, "invalid upload", http.StatusBadRequest)
		return nil, nil, false
	}

	file, _, err := r.FormFile(formFileField)
	if err != nil {
		http.Error(w, "missing file", http.StatusBadRequest)
		return nil, nil, false
	}

	return file, func() { _ = file.Close() }, true
}
