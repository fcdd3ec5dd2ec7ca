package main

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/myrjola/casefile/internal/ai"
	"github.com/myrjola/casefile/internal/broker"
	"github.com/myrjola/casefile/internal/config"
	"github.com/myrjola/casefile/internal/errors"
	"github.com/myrjola/casefile/internal/generator"
	"github.com/myrjola/casefile/internal/interrogation"
	"github.com/myrjola/casefile/internal/logging"
	"github.com/myrjola/casefile/internal/pprofserver"
	"github.com/myrjola/casefile/internal/repositories"
	"github.com/myrjola/casefile/internal/sqlite"
)

// streamKey identifies the answer stream of one NPC.
type streamKey struct {
	caseID string
	npcID  string
}

type application struct {
	logger         *slog.Logger
	cases          *repositories.CaseRepository
	investigations *repositories.InvestigationRepository
	generator      *generator.Generator
	interrogator   *interrogation.Interrogator
	streams        *broker.ChannelBroker[streamKey, string]
	// asking holds the streamKeys with an answer in progress.
	asking sync.Map
	// answers holds the *answerResult of the latest question per streamKey.
	answers sync.Map
	// generateTimeout bounds the whole case generation pipeline.
	generateTimeout time.Duration
	// answerTimeout bounds an NPC answer including storing it.
	answerTimeout time.Duration
}

func newApplication(
	ctx context.Context,
	logger *slog.Logger,
	db *sqlite.Database,
	clients ai.Clients,
	stageTimeout time.Duration,
) *application {
	cases := repositories.NewCaseRepository(db, logger)
	investigations := repositories.NewInvestigationRepository(db, logger)
	gen := generator.New(clients, logger)
	gen.StageTimeout = stageTimeout
	streams := broker.NewChannelBroker[streamKey, string]()
	go streams.Start(ctx)

	return &application{
		logger:         logger,
		cases:          cases,
		investigations: investigations,
		generator:      gen,
		interrogator:   interrogation.NewInterrogator(cases, investigations, clients.Creative, logger),
		streams:        streams,
		asking:         sync.Map{},
		answers:        sync.Map{},
		// Draft, repair and the concurrent enrichment stages.
		generateTimeout: 3*stageTimeout + 5*time.Second, //nolint:mnd // slack for storing the case
		answerTimeout:   stageTimeout,
	}
}

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error {
	var (
		err     error
		cfg     config.Config
		clients ai.Clients
		db      *sqlite.Database
	)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg, err = config.Load(lookupEnv); err != nil {
		return errors.Wrap(err, "load config")
	}
	if clients, err = cfg.Clients(); err != nil {
		return errors.Wrap(err, "create model clients")
	}
	for _, m := range []ai.Completer{clients.Creative, clients.Cheap, clients.Full} {
		logger.LogAttrs(ctx, slog.LevelInfo, "configured model", slog.Any("model", m.Model()))
	}

	if db, err = sqlite.NewDatabase(ctx, cfg.SqliteURL, logger); err != nil {
		return errors.Wrap(err, "open database", slog.String("url", cfg.SqliteURL))
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.LogAttrs(ctx, slog.LevelError, "close database", errors.SlogError(closeErr))
		}
	}()

	// Initialise pprof listening on localhost so that it's not open to the world.
	pprofserver.Launch(ctx, cfg.PprofPort, logger)

	app := newApplication(ctx, logger, db, clients, cfg.StageTimeout)
	if err = app.configureAndStartServer(ctx, cfg.Addr); err != nil {
		return errors.Wrap(err, "start server")
	}
	return nil
}

func main() {
	ctx := context.Background()
	logger := logging.NewLogger(os.Stdout, slog.LevelDebug, true)
	if err := config.LoadDotEnv(); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure loading .env", errors.SlogError(err))
		os.Exit(1)
	}
	if err := run(ctx, logger, os.LookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure starting application", errors.SlogError(err))
		os.Exit(1)
	}
}
