package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/loykin/folio"
	"github.com/loykin/folio/pkg/client"
)

// APIFlags selects a running server
type APIFlags struct {
	APIUrl     string
	APITimeout time.Duration
}

func (f *APIFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.APIUrl, "api-url", "http://127.0.0.1:5005/api", "server API URL")
	cmd.Flags().DurationVar(&f.APITimeout, "api-timeout", 10*time.Second, "request timeout")
}

func (f *APIFlags) client() *client.Client {
	return client.New(client.Config{BaseURL: f.APIUrl, Timeout: f.APITimeout})
}

func createServeCommand(globalFlags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve [config.toml]",
		Short: "Start the portfolio server",
		Long: `Start the portfolio server. Configuration is read from the TOML file (optional),
the env file and FOLIO_* environment variables.

The GitHub account is required: set account in the config file, or
GITHUB_USERNAME / FOLIO_ACCOUNT in the environment or the env file
(Secure/.env by default). GITHUB_TOKEN raises the API rate limit.

Examples:
  folio serve
  folio serve folio.toml
  GITHUB_USERNAME=octocat folio serve`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := globalFlags.ConfigPath
			if len(args) > 0 {
				path = args[0]
			}
			return runServe(cmd.Context(), path)
		},
	}
}

func runServe(parent context.Context, configPath string) error {
	cfg, err := folio.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	app, err := folio.NewApp(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app.Logger().Info("starting folio", "account", cfg.Account, "listen", cfg.Server.Listen, "engine", cfg.Server.Engine, "store", cfg.Store.Type)
	return app.Run(ctx)
}

func createProjectsCommand() *cobra.Command {
	flags := &APIFlags{}
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List projects from a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), flags.APITimeout)
			defer cancel()
			ps, err := flags.client().Projects(ctx)
			if err != nil {
				return err
			}
			return printProjects(cmd.OutOrStdout(), ps, asJSON)
		},
	}
	flags.bind(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON")
	return cmd
}

func printProjects(w io.Writer, ps []client.Project, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(ps)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tCATEGORY\tSTARS\tLANGUAGE")
	for _, p := range ps {
		lang := "-"
		if p.Language != nil {
			lang = *p.Language
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", p.Name, p.Category, p.Stars, lang)
	}
	return tw.Flush()
}

func createHeartbeatCommand() *cobra.Command {
	flags := &APIFlags{}
	var every time.Duration
	cmd := &cobra.Command{
		Use:   "heartbeat",
		Short: "Send liveness heartbeats to a running server",
		Long: `Send one heartbeat, or keep sending every --every interval until interrupted.

Examples:
  folio heartbeat
  folio heartbeat --every=5s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := flags.client()
			if every <= 0 {
				return sendHeartbeat(cmd.Context(), c, flags.APITimeout, cmd.OutOrStdout())
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			t := time.NewTicker(every)
			defer t.Stop()
			for {
				if err := sendHeartbeat(ctx, c, flags.APITimeout, cmd.OutOrStdout()); err != nil {
					return err
				}
				select {
				case <-ctx.Done():
					return nil
				case <-t.C:
				}
			}
		},
	}
	flags.bind(cmd)
	cmd.Flags().DurationVar(&every, "every", 0, "repeat interval (0 sends once)")
	return cmd
}

func sendHeartbeat(ctx context.Context, c *client.Client, timeout time.Duration, w io.Writer) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := c.Heartbeat(ctx); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(w, "ok")
	return nil
}

func createCategorizeCommand() *cobra.Command {
	var name, description string
	cmd := &cobra.Command{
		Use:   "categorize",
		Short: "Print the category a project would receive",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), folio.Categorize(name, description))
			return err
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "project name (required)")
	cmd.Flags().StringVar(&description, "description", "", "project description")
	if err := cmd.MarkFlagRequired("name"); err != nil {
		panic(err)
	}
	return cmd
}
