package main

import (
	"fmt"
	"os"

	"github.com/lodeapp/lode/internal/cli"
	"github.com/lodeapp/lode/internal/config"
	"github.com/lodeapp/lode/internal/entities"
	"github.com/lodeapp/lode/internal/entrypoint"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	// If no arguments or "serve" command, run the HTTP server
	if len(os.Args) < 2 || os.Args[1] == "serve" {
		cfg := config.NewConfig()
		entrypoint.Run(cfg, Version)
		return
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "import-openai":
		runCommand(cli.NewImportCommand(entities.AISourceOpenAI), args)

	case "import-claude":
		runCommand(cli.NewImportCommand(entities.AISourceClaude), args)

	case "import-lode":
		runCommand(cli.NewImportCommand(entities.AISourceLode), args)

	case "reindex":
		runCommand(cli.NewReindexCommand(), args)

	case "-h", "--help", "help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

type command interface {
	ParseFlags(args []string) error
	Run() error
}

func runCommand(cmd command, args []string) {
	if err := cmd.ParseFlags(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  serve          Start the HTTP server (default if no command given)\n")
	fmt.Fprintf(os.Stderr, "  import-openai  Import an OpenAI conversations.json export\n")
	fmt.Fprintf(os.Stderr, "  import-claude  Import a Claude conversation export\n")
	fmt.Fprintf(os.Stderr, "  import-lode    Import a native Lode export file\n")
	fmt.Fprintf(os.Stderr, "  reindex        Rebuild the search index and recompute statistics\n")
	fmt.Fprintf(os.Stderr, "\nUse '%s <command> -h' for help on a specific command.\n", os.Args[0])
}
