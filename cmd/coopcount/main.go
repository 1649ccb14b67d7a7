package main

import (
	"context"
	"coopcount/cmd/coopcount/cmds"
	"coopcount/internal/api"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historyLang  string
	exportOut    string
	servePort    int
)

var rootCmd = &cobra.Command{
	Use:   "coopcount",
	Short: "Poultry counter with persisted count history",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cmds.SetupLogging()
	},
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the counter HTTP server",
	RunE:  runServe,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print the stored counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *cmds.App) error {
			return cmds.PrintHistory(ctx, cmd.OutOrStdout(), app.History, historyLimit, historyLang)
		})
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the stored counts as Timestamp,Count text",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *cmds.App) error {
			return cmds.Export(ctx, cmd.OutOrStdout(), app.History, exportOut)
		})
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the stored counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *cmds.App) error {
			return cmds.Reset(ctx, app.History)
		})
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 0, "show only the most recent N entries")
	historyCmd.Flags().StringVar(&historyLang, "lang", "en", "label language (en, hi)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default stdout)")
	serveCmd.Flags().IntVar(&servePort, "port", defaultPort(), "listen port (PORT)")
	rootCmd.AddCommand(serveCmd, historyCmd, exportCmd, resetCmd)
}

func main() {
	// Load environment variables
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	err := godotenv.Load(envFile)
	if err != nil {
		log.Info("The .env file not found.")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, app *cmds.App) error {
		// Like the page loading its model on start: an unavailable model only disables AI counting.
		if err := app.Counter.CheckDetector(ctx); err != nil {
			log.WithError(err).Warn("detector not ready, AI count disabled until it recovers")
		}
		return api.RunServer(ctx, servePort, app.Counter, app.History)
	})
}

func withApp(cmd *cobra.Command, fn func(ctx context.Context, app *cmds.App) error) error {
	ctx := cmd.Context()
	app, err := cmds.NewApp(ctx)
	if err != nil {
		log.WithError(err).Error("failed to initialize")
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.WithError(err).Warn("failed to close history backend")
		}
	}()
	return fn(ctx, app)
}

func defaultPort() int {
	if p, err := strconv.Atoi(os.Getenv("PORT")); err == nil && p > 0 {
		return p
	}
	return 8080
}
