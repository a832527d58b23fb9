// Command plantreco-clean turns the raw plant catalog into the cleaned
// dataset and fits the preprocessor used by training and serving.
package main

import (
	"fmt"
	"os"

	"github.com/ezoic/plantreco/config"
	"github.com/ezoic/plantreco/pkg/log"
	"github.com/ezoic/plantreco/plant"
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

	cleaner := plant.NewCleaner(log.GetLoggerWithName("cleaner"))
	if _, err := cleaner.Run(cfg.CleanPaths()); err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout, plant.SuccessMessage)
	return nil
}
