// Package importer persists batches of trades while skipping fills the
// user already has and repeated fills inside the batch.
package importer

import (
	"context"
	"errors"
	"fmt"

	logger "github.com/sirupsen/logrus"

	"tradejournal/src/fingerprint"
	"tradejournal/src/model"
	"tradejournal/src/normalizer"
	"tradejournal/src/repository"
)

// Store is the slice of the trade repository the importer needs.
type Store interface {
	FindIdentityColumns(ctx context.Context, userID string) ([]model.Trade, error)
	UpsertIgnoringDuplicates(ctx context.Context, trades []*model.Trade) ([]*model.Trade, error)
	CreateMany(ctx context.Context, trades []*model.Trade) error
}

// SkipCounts tells why rows were left out of an import.
type SkipCounts struct {
	Existing       int `json:"existing"`
	BatchDuplicate int `json:"batchDuplicate"`
	Invalid        int `json:"invalid"`
}

// Total is the number of skipped rows.
func (s SkipCounts) Total() int {
	return s.Existing + s.BatchDuplicate + s.Invalid
}

// Result of one import call.
type Result struct {
	Imported []model.Trade `json:"imported"`
	Skipped  SkipCounts    `json:"skipped"`
}

// Importer runs the de-dup pipeline against a Store.
type Importer struct {
	store Store
}

// New creates an Importer backed by store.
func New(store Store) *Importer {
	return &Importer{store: store}
}

// ExistingKeys returns the fingerprints of every trade the user already has.
func (i *Importer) ExistingKeys(ctx context.Context, userID string) (map[string]struct{}, error) {
	trades, err := i.store.FindIdentityColumns(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing trades: %w", err)
	}
	return fingerprint.Set(trades), nil
}

// Import normalizes rows for userID and stores the ones whose fingerprint is
// new. Rows are handled in input order and the first occurrence of a
// fingerprint wins. Result.Imported holds only rows the store created.
// Only store failures are returned as errors; a batch that failed to
// persist can be submitted again as is.
func (i *Importer) Import(ctx context.Context, userID string, rows []model.RawTrade) (*Result, error) {
	existing, err := i.ExistingKeys(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := &Result{Imported: []model.Trade{}}
	seen := make(map[string]struct{}, len(rows))
	survivors := make([]*model.Trade, 0, len(rows))

	for _, row := range rows {
		trade := normalizer.Normalize(row, userID)

		key, ok := fingerprint.Build(trade)
		if !ok {
			result.Skipped.Invalid++
			continue
		}
		if _, found := existing[key]; found {
			result.Skipped.Existing++
			continue
		}
		if _, found := seen[key]; found {
			result.Skipped.BatchDuplicate++
			continue
		}

		seen[key] = struct{}{}
		survivors = append(survivors, trade)
	}

	if len(survivors) > 0 {
		created, err := i.persist(ctx, survivors)
		if err != nil {
			return nil, err
		}
		// rows stored by a concurrent import after the snapshot above
		result.Skipped.Existing += len(survivors) - len(created)
		for _, trade := range created {
			result.Imported = append(result.Imported, *trade)
		}
	}

	logger.WithFields(map[string]interface{}{
		"component":               "importer",
		"user_id":                 userID,
		"rows":                    len(rows),
		"imported":                len(result.Imported),
		"skipped_existing":        result.Skipped.Existing,
		"skipped_batch_duplicate": result.Skipped.BatchDuplicate,
		"skipped_invalid":         result.Skipped.Invalid,
	}).Info("Import batch processed")

	return result, nil
}

// persist returns the trades the store actually created.
func (i *Importer) persist(ctx context.Context, trades []*model.Trade) ([]*model.Trade, error) {
	created, err := i.store.UpsertIgnoringDuplicates(ctx, trades)
	if errors.Is(err, repository.ErrUpsertUnsupported) {
		logger.WithFields(map[string]interface{}{
			"component": "importer",
			"count":     len(trades),
		}).Warn("Upsert unavailable, falling back to plain insert")

		created, err = trades, i.store.CreateMany(ctx, trades)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to persist imported trades: %w", err)
	}
	return created, nil
}
