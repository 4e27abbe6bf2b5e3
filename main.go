package main

import (
	"context"
	"fmt"
	"os"
	"time"

	logger "github.com/sirupsen/logrus"

	"tradejournal/src/app"
	"tradejournal/src/auth"
	"tradejournal/src/database"
	"tradejournal/src/server"
)

var APP_NAME = os.Getenv("APP_NAME")

func main() {
	app.SetupLogger()
	defer handlePanic()

	svc, err := app.NewTradeService()
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}

	config := server.GetConfig()
	router := server.NewRouter(config, auth.NewVerifier(auth.GetConfig()), svc, func(ctx context.Context) error {
		return database.Ping(ctx, database.MainDB)
	})

	server.StartServer(config.Port, router)
}

func handlePanic() {
	if r := recover(); r != nil {
		logger.WithError(fmt.Errorf("%+v", r)).Error(fmt.Sprintf("Application %s panic", APP_NAME))
		//nolint
		time.Sleep(time.Second * 5)
	}
}
