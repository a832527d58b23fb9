// Command plantreco-train fits the random forest on the cleaned dataset,
// saves it and prints the train and test accuracy.
package main

import (
	"fmt"
	"os"

	"github.com/ezoic/plantreco/config"
	"github.com/ezoic/plantreco/pkg/log"
	"github.com/ezoic/plantreco/training"
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

	trainer := training.NewTrainer(cfg.TrainerConfig(), log.GetLoggerWithName("trainer"))
	report, err := trainer.Run(cfg.TrainingPaths())
	if err != nil {
		return err
	}

	for _, line := range report.Lines() {
		fmt.Fprintln(os.Stdout, line)
	}
	return nil
}
