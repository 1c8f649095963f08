// Command genie runs WagerGenie maintenance tasks outside the server.
//
// Usage:
//
//	go run ./cmd/genie migrate
//	go run ./cmd/genie adduser --username padraic --password testing
//	go run ./cmd/genie odds
//	go run ./cmd/genie scrape
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/padraicbc/wagergenie/app"
	"github.com/padraicbc/wagergenie/config"
	"github.com/padraicbc/wagergenie/db"
	"github.com/padraicbc/wagergenie/handlers"
	"github.com/padraicbc/wagergenie/ingest"
	applog "github.com/padraicbc/wagergenie/logger"
	"github.com/padraicbc/wagergenie/models"
	"github.com/padraicbc/wagergenie/store"
)

var (
	cfg    *config.Config
	logger *zap.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "genie",
		Short:         "WagerGenie maintenance: schema, users and one-off ingestion runs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg = config.Read()
			if err := cfg.ValidateStorage(); err != nil {
				return err
			}
			var err error
			logger, err = applog.New(cfg.Debug, "genie")
			return err
		},
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(addUserCmd())
	rootCmd.AddCommand(runJobCmd("odds", "Fetch bookmaker odds once and store snapshots", func(a *app.App) runner { return a.OddsJob }))
	rootCmd.AddCommand(runJobCmd("scrape", "Scrape expert picks once and store them", func(a *app.App) runner { return a.ScrapeJob }))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create tables and constraints if they do not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			bdb, err := db.Setup(cfg)
			if err != nil {
				return err
			}
			defer bdb.Close()

			if err := db.CreateTables(cmd.Context(), bdb); err != nil {
				return fmt.Errorf("create tables: %w", err)
			}
			fmt.Println("schema up to date")
			return nil
		},
	}
}

func addUserCmd() *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create a user or reset an existing user's password",
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := handlers.HashPasswordForUser(username, password)
			if err != nil {
				return err
			}

			bdb, err := db.Setup(cfg)
			if err != nil {
				return err
			}
			defer bdb.Close()

			user := &models.User{Username: username, Password: hash}
			if err := store.New(bdb).UpsertUser(cmd.Context(), user); err != nil {
				return fmt.Errorf("insert user: %w", err)
			}
			fmt.Printf("user %q saved\n", username)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "username (required)")
	cmd.Flags().StringVar(&password, "password", "", "plain-text password (required)")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

type runner interface {
	Run(ctx context.Context) (ingest.RunResult, error)
}

func runJobCmd(name, short string, pick func(*app.App) runner) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.Open(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := pick(a).Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("%s run %s: %w", name, res.RunID, err)
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
}
