// Package service exposes the journal operations to the HTTP and CLI
// surfaces. Every call acts on behalf of the user stored in the context.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/patrickmn/go-cache"
	logger "github.com/sirupsen/logrus"

	"tradejournal/src/auth"
	"tradejournal/src/csvimport"
	"tradejournal/src/fingerprint"
	"tradejournal/src/importer"
	"tradejournal/src/model"
	"tradejournal/src/normalizer"
	"tradejournal/src/repository"
)

var (
	// ErrUnauthenticated is returned before any work when no user is in the context.
	ErrUnauthenticated = errors.New("user is not authenticated")
	ErrTradeNotFound   = errors.New("trade not found")
	ErrAccountNotFound = errors.New("account not found")
	ErrInvalidAccount  = errors.New("account name is required")
)

// TradeStore is the trade persistence the service needs.
type TradeStore interface {
	importer.Store
	Create(ctx context.Context, trade *model.Trade) error
	Update(ctx context.Context, id uint, trade *model.Trade) (*model.Trade, error)
	Delete(ctx context.Context, id uint, userID string) (int64, error)
	DeleteAllByUser(ctx context.Context, userID string) (int64, error)
	Search(ctx context.Context, options repository.TradeSearchOptions) ([]model.Trade, error)
}

// AccountStore is the account persistence the service needs.
type AccountStore interface {
	Create(ctx context.Context, account *model.Account) error
	FindByUser(ctx context.Context, userID string) ([]model.Account, error)
	FindByID(ctx context.Context, id uint, userID string) (*model.Account, error)
}

// ListOptions filters ListTrades. Page starts at 1.
type ListOptions struct {
	AccountID *uint
	Symbol    *string
	DateFrom  *string
	DateTo    *string
	Page      int
	PageSize  int
}

// PreviewRow is a transformed CSV row with its fingerprint and whether the
// user already has that fill.
type PreviewRow struct {
	Trade       model.RawTrade `json:"trade"`
	Fingerprint string         `json:"fingerprint,omitempty"`
	Valid       bool           `json:"valid"`
	Existing    bool           `json:"existing"`
}

// TradeService implements the journal operations.
type TradeService struct {
	trades     TradeStore
	accounts   AccountStore
	exceptions ExceptionStore
	objects    ObjectStore
	importer   *importer.Importer
	keys       *cache.Cache
	config     Config
}

// NewTradeService wires the service. accounts, exceptions and objects may be
// nil; the operations that need them then fail or skip persistence.
func NewTradeService(
	trades TradeStore,
	accounts AccountStore,
	exceptions ExceptionStore,
	objects ObjectStore,
	config Config,
) *TradeService {
	return &TradeService{
		trades:     trades,
		accounts:   accounts,
		exceptions: exceptions,
		objects:    objects,
		importer:   importer.New(trades),
		keys:       cache.New(config.KeysCacheTTL, 2*config.KeysCacheTTL),
		config:     config,
	}
}

func currentUserID(ctx context.Context) (string, error) {
	user, ok := auth.GetUserFromContext(ctx)
	if !ok {
		return "", ErrUnauthenticated
	}
	return user.ID, nil
}

// AddTrade normalizes raw for the current user and stores it.
func (s *TradeService) AddTrade(ctx context.Context, raw model.RawTrade) (*model.Trade, error) {
	userID, err := currentUserID(ctx)
	if err != nil {
		return nil, err
	}

	trade := normalizer.Normalize(raw, userID)
	trade.ID = 0

	if err := s.checkAccount(ctx, trade.AccountID, userID); err != nil {
		return nil, err
	}

	if err := s.trades.Create(ctx, trade); err != nil {
		return nil, fmt.Errorf("failed to add trade: %w", err)
	}
	s.invalidateKeys(userID)

	return trade, nil
}

// UpdateTrade replaces the trade with id by raw, normalized again for the
// current user. Money fields are derived again from whatever subset raw carries.
func (s *TradeService) UpdateTrade(ctx context.Context, id uint, raw model.RawTrade) (*model.Trade, error) {
	userID, err := currentUserID(ctx)
	if err != nil {
		return nil, err
	}

	trade := normalizer.Normalize(raw, userID)

	if err := s.checkAccount(ctx, trade.AccountID, userID); err != nil {
		return nil, err
	}

	updated, err := s.trades.Update(ctx, id, trade)
	if err != nil {
		return nil, fmt.Errorf("failed to update trade %d: %w", id, err)
	}
	if updated == nil {
		return nil, ErrTradeNotFound
	}
	s.invalidateKeys(userID)

	return updated, nil
}

// DeleteTrade removes the trade with id. Deleting a trade that does not
// exist, or belongs to someone else, is not an error.
func (s *TradeService) DeleteTrade(ctx context.Context, id uint) error {
	userID, err := currentUserID(ctx)
	if err != nil {
		return err
	}

	if _, err := s.trades.Delete(ctx, id, userID); err != nil {
		return fmt.Errorf("failed to delete trade %d: %w", id, err)
	}
	s.invalidateKeys(userID)

	return nil
}

// DeleteAllTrades removes every trade of the current user.
func (s *TradeService) DeleteAllTrades(ctx context.Context) (int64, error) {
	userID, err := currentUserID(ctx)
	if err != nil {
		return 0, err
	}

	deleted, err := s.trades.DeleteAllByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete trades: %w", err)
	}
	s.invalidateKeys(userID)

	return deleted, nil
}

// AddMultipleTrades imports a batch of pre-normalized rows, skipping fills
// the user already has and repeats within the batch. A row that references
// an account the user does not own rejects the whole batch.
func (s *TradeService) AddMultipleTrades(ctx context.Context, rows []model.RawTrade) (*importer.Result, error) {
	userID, err := currentUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.checkRowAccounts(ctx, rows, userID); err != nil {
		return nil, err
	}

	result, err := s.importer.Import(ctx, userID, rows)
	if err != nil {
		s.capture(ctx, "importer", "AddMultipleTrades", userID, err, map[string]interface{}{
			"rows": len(rows),
		})
		return nil, err
	}
	if len(result.Imported) > 0 {
		s.invalidateKeys(userID)
	}

	return result, nil
}

// ImportCSV reads a broker export and imports its rows. A non-nil accountID
// is applied to every row.
func (s *TradeService) ImportCSV(ctx context.Context, r io.Reader, accountID *uint) (*importer.Result, error) {
	userID, err := currentUserID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.checkAccount(ctx, accountID, userID); err != nil {
		return nil, err
	}

	csvRows, err := csvimport.ReadRows(r)
	if err != nil {
		return nil, err
	}

	rows := s.TransformCSVRowsToTrades(csvRows)
	if accountID != nil {
		for _, row := range rows {
			row["account_id"] = *accountID
		}
	}

	return s.AddMultipleTrades(ctx, rows)
}

// PreviewCSV transforms a broker export without storing it and flags rows
// the user already has. The flag comes from the cached key list and is for
// display only; the import itself always checks a fresh snapshot.
func (s *TradeService) PreviewCSV(ctx context.Context, r io.Reader) ([]PreviewRow, error) {
	userID, err := currentUserID(ctx)
	if err != nil {
		return nil, err
	}

	csvRows, err := csvimport.ReadRows(r)
	if err != nil {
		return nil, err
	}

	existing, err := s.existingKeySet(ctx, userID)
	if err != nil {
		return nil, err
	}

	rows := s.TransformCSVRowsToTrades(csvRows)
	preview := make([]PreviewRow, 0, len(rows))
	for _, row := range rows {
		key, ok := s.BuildTradeFingerprint(row)
		_, found := existing[key]
		preview = append(preview, PreviewRow{
			Trade:       row,
			Fingerprint: key,
			Valid:       ok,
			Existing:    ok && found,
		})
	}

	return preview, nil
}

// GetExistingTradeKeys returns the sorted fingerprints of the current
// user's trades. Results are cached per user until the next write.
func (s *TradeService) GetExistingTradeKeys(ctx context.Context) ([]string, error) {
	userID, err := currentUserID(ctx)
	if err != nil {
		return nil, err
	}

	set, err := s.existingKeySet(ctx, userID)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return keys, nil
}

func (s *TradeService) existingKeySet(ctx context.Context, userID string) (map[string]struct{}, error) {
	if cached, ok := s.keys.Get(userID); ok {
		return cached.(map[string]struct{}), nil
	}

	set, err := s.importer.ExistingKeys(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.keys.SetDefault(userID, set)

	return set, nil
}

func (s *TradeService) invalidateKeys(userID string) {
	s.keys.Delete(userID)
}

// TransformCSVRowsToTrades maps broker rows into pre-normalized trades.
func (s *TradeService) TransformCSVRowsToTrades(rows []csvimport.Row) []model.RawTrade {
	return csvimport.TransformRows(rows)
}

// BuildTradeFingerprint normalizes raw and returns its fill identity.
func (s *TradeService) BuildTradeFingerprint(raw model.RawTrade) (string, bool) {
	return fingerprint.Build(normalizer.Normalize(raw, ""))
}

// ListTrades returns one page of the current user's trades, newest first.
func (s *TradeService) ListTrades(ctx context.Context, options ListOptions) ([]model.Trade, error) {
	userID, err := currentUserID(ctx)
	if err != nil {
		return nil, err
	}

	pageSize := options.PageSize
	if pageSize <= 0 {
		pageSize = s.config.DefaultPageSize
	}
	if s.config.MaxPageSize > 0 && pageSize > s.config.MaxPageSize {
		pageSize = s.config.MaxPageSize
	}
	page := options.Page
	if page < 1 {
		page = 1
	}

	var symbol *string
	if options.Symbol != nil && strings.TrimSpace(*options.Symbol) != "" {
		upper := strings.ToUpper(strings.TrimSpace(*options.Symbol))
		symbol = &upper
	}

	trades, err := s.trades.Search(ctx, repository.TradeSearchOptions{
		UserID:    userID,
		AccountID: options.AccountID,
		Symbol:    symbol,
		DateFrom:  options.DateFrom,
		DateTo:    options.DateTo,
		Limit:     pageSize,
		Offset:    (page - 1) * pageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}

	return trades, nil
}

// ListAccounts returns the current user's accounts.
func (s *TradeService) ListAccounts(ctx context.Context) ([]model.Account, error) {
	userID, err := currentUserID(ctx)
	if err != nil {
		return nil, err
	}

	accounts, err := s.accounts.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

// CreateAccount adds an account for the current user.
func (s *TradeService) CreateAccount(ctx context.Context, payload model.CreateAccountPayload) (*model.Account, error) {
	userID, err := currentUserID(ctx)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(payload.Name)
	if name == "" {
		return nil, ErrInvalidAccount
	}

	account := &model.Account{
		UserID: userID,
		Name:   name,
		Broker: strings.TrimSpace(payload.Broker),
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return account, nil
}

func (s *TradeService) checkRowAccounts(ctx context.Context, rows []model.RawTrade, userID string) error {
	checked := make(map[uint]struct{})
	for _, row := range rows {
		accountID := normalizer.Normalize(row, userID).AccountID
		if accountID == nil {
			continue
		}
		if _, done := checked[*accountID]; done {
			continue
		}
		if err := s.checkAccount(ctx, accountID, userID); err != nil {
			return err
		}
		checked[*accountID] = struct{}{}
	}
	return nil
}

func (s *TradeService) checkAccount(ctx context.Context, accountID *uint, userID string) error {
	if accountID == nil || s.accounts == nil {
		return nil
	}

	account, err := s.accounts.FindByID(ctx, *accountID, userID)
	if err != nil {
		return fmt.Errorf("failed to look up account %d: %w", *accountID, err)
	}
	if account == nil {
		logger.WithFields(map[string]interface{}{
			"service":    serviceName,
			"user_id":    userID,
			"account_id": *accountID,
		}).Warn("Trade references an unknown account")

		return ErrAccountNotFound
	}

	return nil
}
