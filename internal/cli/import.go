package cli

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/lodeapp/lode/internal/config"
	"github.com/lodeapp/lode/internal/entities"
	"github.com/lodeapp/lode/internal/entrypoint"
	"github.com/lodeapp/lode/internal/jobs"
)

// ImportCommand imports a conversation export file into the local store.
// One instance per source format; the format decides which adapter parses
// the file.
type ImportCommand struct {
	Source entities.AISource

	FilePath     string
	DatabasePath string
	Stats        bool
	BuildIndex   bool
}

func NewImportCommand(source entities.AISource) *ImportCommand {
	return &ImportCommand{Source: source}
}

func (cmd *ImportCommand) name() string {
	return "import-" + string(cmd.Source)
}

func (cmd *ImportCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet(cmd.name(), flag.ExitOnError)

	fs.StringVar(&cmd.FilePath, "file", "", "Path to the export file (required)")
	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the local database file")
	fs.BoolVar(&cmd.Stats, "stats", true, "Compute word/URL/code-block statistics during import")
	fs.BoolVar(&cmd.BuildIndex, "index", true, "Rebuild the full-text index after import")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s %s -file <path> [options]\n\n", os.Args[0], cmd.name())
		fmt.Fprintf(os.Stderr, "Import a %s conversation export into the local database.\n\n", cmd.Source)
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExample:\n")
		fmt.Fprintf(os.Stderr, "  %s %s -file conversations.json\n", os.Args[0], cmd.name())
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.FilePath == "" {
		return fmt.Errorf("required flag -file not provided")
	}

	return nil
}

func (cmd *ImportCommand) Run() error {
	if _, err := os.Stat(cmd.FilePath); os.IsNotExist(err) {
		return fmt.Errorf("export file not found: %s", cmd.FilePath)
	}

	cfg := config.NewConfig()
	cfg.Database.Path = cmd.DatabasePath

	app, err := entrypoint.NewApp(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	id, err := app.Manager.Submit(entities.JobTypeImport, jobs.Params{
		SourceType:     cmd.Source,
		FilePath:       cmd.FilePath,
		CalculateStats: cmd.Stats,
		BuildIndex:     cmd.BuildIndex,
	})
	if err != nil {
		return err
	}

	view, err := waitForJob(app.Manager, id)
	if err != nil {
		return err
	}

	fmt.Printf("\nImport %s\n", view.Status)
	printResult(view.Result)
	if view.Status == entities.JobStatusFailed {
		return fmt.Errorf("import failed: %s", view.Error)
	}
	return nil
}

// waitForJob polls the manager until the job reaches a terminal state,
// echoing progress to stdout.
func waitForJob(manager *jobs.Manager, id string) (jobs.View, error) {
	lastProgress := -1
	for {
		view, err := manager.Get(id)
		if err != nil {
			return jobs.View{}, err
		}
		if view.Progress != lastProgress {
			lastProgress = view.Progress
			fmt.Printf("  %3d%%  %s\n", view.Progress, view.Message)
		}
		if view.Status.Terminal() {
			return view, nil
		}
		time.Sleep(100 * time.Millisecond)
	}
}

func printResult(result map[string]any) {
	for _, key := range []string{
		"batch_id",
		"conversations_imported",
		"conversations_failed",
		"messages_imported",
		"duplicates_skipped",
	} {
		if value, ok := result[key]; ok {
			fmt.Printf("  %s: %v\n", key, value)
		}
	}
}
