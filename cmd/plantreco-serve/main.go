// Command plantreco-serve loads the trained artifacts and serves the
// recommendation, diagnostic and feedback API until interrupted.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ezoic/plantreco/config"
	"github.com/ezoic/plantreco/feedback"
	"github.com/ezoic/plantreco/pkg/log"
	"github.com/ezoic/plantreco/recommend"
	"github.com/ezoic/plantreco/server"
)

func main() {
	if err := run(); err != nil {
		log.Failure(err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log.SetupLoggerWithFormat(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)

	rc, err := recommend.Load(cfg.ServingPaths())
	if err != nil {
		return err
	}
	log.GetLogger().Info().
		Str(log.PhaseKey, log.PhaseServing).
		Int("catalog", rc.CatalogSize()).
		Int(log.ClassesKey, len(rc.Classes())).
		Msg("Artifacts loaded")

	store := feedback.NewStore(cfg.Paths.Feedback, feedback.WithLogger(log.GetLoggerWithName("feedback")))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.New(rc, store, cfg.Server).Run(ctx)
}
