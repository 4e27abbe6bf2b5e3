package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"tradejournal/src/app"
	"tradejournal/src/auth"
	"tradejournal/src/csvimport"
	"tradejournal/src/database"
	"tradejournal/src/fingerprint"
	"tradejournal/src/model"
	"tradejournal/src/normalizer"
	"tradejournal/src/server"
)

var Version string

func main() {
	app.SetupLogger()

	cliApp := cli.NewApp()
	cliApp.Name = "tradejournal"
	cliApp.Usage = "The trade journal command line interface"
	cliApp.Version = Version

	cliApp.Commands = []cli.Command{
		serveCMD,
		migrateCMD,
		importCMD,
		fingerprintCMD,
		tokenCMD,
	}

	if err := cliApp.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	serveCMD = cli.Command{
		Name:        "serve",
		Usage:       "run the HTTP API",
		Action:      serveAction,
		Description: `Connect, migrate and serve the journal API until interrupted`,
	}
	migrateCMD = cli.Command{
		Name:        "migrate",
		Usage:       "run schema and data migrations",
		Action:      migrateAction,
		Description: `Run AutoMigrate and pending data migrations, then exit`,
	}
	importCMD = cli.Command{
		Name:      "import",
		Usage:     "import a broker CSV export for a user",
		Action:    importAction,
		ArgsUsage: "",
		Flags: []cli.Flag{
			cli.StringFlag{Name: "user", Usage: "user id (token subject)"},
			cli.StringFlag{Name: "file", Usage: "path to the CSV export"},
			cli.UintFlag{Name: "account", Usage: "optional account id applied to every row"},
		},
		Description: `Runs the same de-duplicating import as POST /trades/import`,
	}
	fingerprintCMD = cli.Command{
		Name:   "fingerprint",
		Usage:  "print the fingerprint of every row of a CSV export",
		Action: fingerprintAction,
		Flags: []cli.Flag{
			cli.StringFlag{Name: "file", Usage: "path to the CSV export"},
		},
		Description: `Works offline, no database access`,
	}
	tokenCMD = cli.Command{
		Name:   "token",
		Usage:  "issue a bearer token for local testing",
		Action: tokenAction,
		Flags: []cli.Flag{
			cli.StringFlag{Name: "user", Usage: "user id, a new one is generated when empty"},
			cli.StringFlag{Name: "email", Usage: "optional email claim"},
		},
	}
)

func serveAction(_ *cli.Context) error {
	logrus.WithField("cmd", "serve").Info("Starting API")

	svc, err := app.NewTradeService()
	if err != nil {
		return err
	}

	config := server.GetConfig()
	router := server.NewRouter(config, auth.NewVerifier(auth.GetConfig()), svc, func(ctx context.Context) error {
		return database.Ping(ctx, database.MainDB)
	})
	server.StartServer(config.Port, router)

	return nil
}

func migrateAction(_ *cli.Context) error {
	logrus.WithField("cmd", "migrate").Info("Running migrations")

	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Error("Migration failed")
		return err
	}
	return nil
}

func importAction(c *cli.Context) error {
	log := logrus.WithField("cmd", "import")

	userID := c.String("user")
	if _, err := uuid.Parse(userID); err != nil {
		return errors.New("--user must be a user id")
	}
	if c.String("file") == "" {
		return errors.New("--file is required")
	}

	file, err := os.Open(c.String("file"))
	if err != nil {
		return err
	}
	defer file.Close()

	var accountID *uint
	if c.IsSet("account") {
		id := c.Uint("account")
		accountID = &id
	}

	svc, err := app.NewTradeService()
	if err != nil {
		return err
	}

	ctx := auth.WithUser(context.Background(), &model.User{ID: userID})
	result, err := svc.ImportCSV(ctx, file, accountID)
	if err != nil {
		log.WithError(err).Error("Import failed")
		return err
	}

	log.WithFields(logrus.Fields{
		"imported":                len(result.Imported),
		"skipped_existing":        result.Skipped.Existing,
		"skipped_batch_duplicate": result.Skipped.BatchDuplicate,
		"skipped_invalid":         result.Skipped.Invalid,
	}).Info("Import finished")

	return json.NewEncoder(os.Stdout).Encode(result.Skipped)
}

func fingerprintAction(c *cli.Context) error {
	if c.String("file") == "" {
		return errors.New("--file is required")
	}

	file, err := os.Open(c.String("file"))
	if err != nil {
		return err
	}
	defer file.Close()

	rows, err := csvimport.ReadRows(file)
	if err != nil {
		return err
	}

	for i, raw := range csvimport.TransformRows(rows) {
		key, ok := fingerprint.Build(normalizer.Normalize(raw, ""))
		if !ok {
			key = "invalid"
		}
		fmt.Printf("%d\t%s\n", i+1, key)
	}

	return nil
}

func tokenAction(c *cli.Context) error {
	userID := c.String("user")
	if userID == "" {
		userID = uuid.NewString()
	}

	token, err := auth.NewVerifier(auth.GetConfig()).Issue(model.User{ID: userID, Email: c.String("email")})
	if err != nil {
		return err
	}

	fmt.Println(token)
	return nil
}
