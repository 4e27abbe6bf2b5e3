// Package app builds the shared pieces used by the server and the CLI.
package app

import (
	"os"
	"strings"

	logger "github.com/sirupsen/logrus"

	"tradejournal/src/database"
	"tradejournal/src/repository"
	"tradejournal/src/service"
	"tradejournal/src/storage"
)

// SetupLogger applies LOG_LEVEL and LOG_FORMAT.
func SetupLogger() {
	config := database.GetConfig()

	level, err := logger.ParseLevel(strings.ToLower(config.LogLevel))
	if err != nil {
		level = logger.DebugLevel
	}
	logger.SetLevel(level)
	logger.SetOutput(os.Stdout)

	if strings.EqualFold(config.LogFormat, "json") {
		logger.SetFormatter(&logger.JSONFormatter{})
		return
	}
	logger.SetFormatter(&logger.TextFormatter{
		FullTimestamp: true,
	})
}

// NewTradeService connects the database, migrates it and wires the service
// to the production repositories and object store.
func NewTradeService() (*service.TradeService, error) {
	if err := database.InitMainDB(); err != nil {
		return nil, err
	}

	return service.NewTradeService(
		repository.NewTradeRepository(),
		repository.NewAccountRepository(),
		repository.NewExceptionRepository(),
		storage.NewClient(storage.GetConfig()),
		service.GetConfig(),
	), nil
}
