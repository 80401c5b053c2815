package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := buildRoot().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// GlobalFlags holds persistent flags shared by every command
type GlobalFlags struct {
	ConfigPath string
}

// buildRoot creates the root command and its subcommands
func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	root := &cobra.Command{
		Use:   "folio",
		Short: "Local portfolio server",
		Long: `Folio serves a categorized list of an account's public GitHub repositories
and shuts itself down once the browser stops sending heartbeats.

Examples:
  folio serve folio.toml
  folio projects --api-url=http://127.0.0.1:5005/api
  folio heartbeat --every=5s
  folio categorize --name=nlp-bot --description="NLP automation bot"`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&globalFlags.ConfigPath, "config", "", "path to TOML config file (optional)")

	root.AddCommand(
		createServeCommand(globalFlags),
		createProjectsCommand(),
		createHeartbeatCommand(),
		createCategorizeCommand(),
	)
	return root
}
