package cli

import (
	"flag"
	"fmt"
	"os"

	"github.com/lodeapp/lode/internal/config"
	"github.com/lodeapp/lode/internal/entities"
	"github.com/lodeapp/lode/internal/entrypoint"
	"github.com/lodeapp/lode/internal/jobs"
)

// ReindexCommand rebuilds the full-text index and recomputes stored
// conversation statistics.
type ReindexCommand struct {
	DatabasePath string
}

func NewReindexCommand() *ReindexCommand {
	return &ReindexCommand{}
}

func (cmd *ReindexCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("reindex", flag.ExitOnError)

	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the local database file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s reindex [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Rebuild the full-text search index and recompute conversation statistics.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

func (cmd *ReindexCommand) Run() error {
	cfg := config.NewConfig()
	cfg.Database.Path = cmd.DatabasePath

	app, err := entrypoint.NewApp(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	id, err := app.Manager.Submit(entities.JobTypeReindex, jobs.Params{})
	if err != nil {
		return err
	}

	view, err := waitForJob(app.Manager, id)
	if err != nil {
		return err
	}

	fmt.Printf("\nReindex %s\n", view.Status)
	for key, value := range view.Result {
		fmt.Printf("  %s: %v\n", key, value)
	}
	if view.Status == entities.JobStatusFailed {
		return fmt.Errorf("reindex failed: %s", view.Error)
	}
	return nil
}
