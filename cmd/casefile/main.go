package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/myrjola/casefile/internal/ai"
	"github.com/myrjola/casefile/internal/config"
	"github.com/myrjola/casefile/internal/errors"
	"github.com/myrjola/casefile/internal/logging"
	"github.com/myrjola/casefile/internal/sqlite"
	"github.com/spf13/cobra"
)

var (
	casesGroup = &cobra.Group{
		ID:    "cases",
		Title: "Case operations",
	}
	interrogationGroup = &cobra.Group{
		ID:    "interrogation",
		Title: "Interrogation",
	}
)

// cli holds what the commands share. The fields are swapped in tests.
type cli struct {
	lookupEnv func(string) (string, bool)
	// clients builds the model clients from the configuration.
	clients func(cfg config.Config) (ai.Clients, error)
	verbose bool
}

func newRootCmd(c *cli) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "casefile",
		Short: "Generate mystery cases and interrogate their suspects",
		Long: `casefile drafts mystery cases with language models, validates them against the case schema,
stores them in SQLite, and lets you question the characters.

Environment variables:
  OPENAI_API_KEY         API key for the OpenAI models
  GROQ_API_KEY           API key for the Groq models
  CASEFILE_SQLITE_URL    database file (default ./casefile.sqlite)
  CASEFILE_MODELS_FILE   YAML document overriding the model registry`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log debug output to stderr")

	rootCmd.AddGroup(casesGroup, interrogationGroup)
	rootCmd.AddCommand(
		c.generateCmd(),
		c.validateCmd(),
		c.listCmd(),
		c.showCmd(),
		c.askCmd(),
		c.modelsCmd(),
	)
	return rootCmd
}

func (c *cli) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if c.verbose {
		level = slog.LevelDebug
	}
	return logging.NewLogger(cmd.ErrOrStderr(), level, false)
}

func (c *cli) config() (config.Config, error) {
	cfg, err := config.Load(c.lookupEnv)
	if err != nil {
		return config.Config{}, errors.Wrap(err, "load config")
	}
	return cfg, nil
}

// openDatabase opens the configured database. The returned function closes it.
func (c *cli) openDatabase(
	ctx context.Context,
	cfg config.Config,
	logger *slog.Logger,
) (*sqlite.Database, func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	db, err := sqlite.NewDatabase(ctx, cfg.SqliteURL, logger)
	if err != nil {
		cancel()
		return nil, nil, errors.Wrap(err, "open database", slog.String("url", cfg.SqliteURL))
	}
	return db, func() {
		cancel()
		if closeErr := db.Close(); closeErr != nil {
			logger.LogAttrs(ctx, slog.LevelError, "close database", errors.SlogError(closeErr))
		}
	}, nil
}

func defaultClients(cfg config.Config) (ai.Clients, error) {
	return cfg.Clients()
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	c := &cli{lookupEnv: os.LookupEnv, clients: defaultClients, verbose: false}
	rootCmd := newRootCmd(c)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	return rootCmd.ExecuteContext(ctx)
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}
