// Package main is the entry point for the interactive mail agent.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bhagyeshsagole/Mail-Any-Professors-at-UIC/internal/composer"
	"github.com/bhagyeshsagole/Mail-Any-Professors-at-UIC/internal/config"
	"github.com/bhagyeshsagole/Mail-Any-Professors-at-UIC/internal/resolver"
	"github.com/bhagyeshsagole/Mail-Any-Professors-at-UIC/internal/session"
	"github.com/bhagyeshsagole/Mail-Any-Professors-at-UIC/internal/signature"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "mail-agent",
		Short: "Find a recipient's address, draft an email with an LLM and send it",
		Long: `mail-agent looks up a recipient from a free-text description using a
web-search capable model, drafts the email from a short instruction, and lets
you review, edit and dispatch it from the terminal.

Configuration comes from environment variables (a .env file is loaded first)
with an optional YAML or TOML file underneath.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), configPath, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML or TOML configuration file (optional)")
	root.AddCommand(newStorePasswordCmd(&configPath))
	return root
}

func run(ctx context.Context, configPath string, in io.Reader, out io.Writer) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	closeLog, err := setupLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer closeLog()

	if err := cfg.ResolveSecrets(ctx); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	searcher, err := selectSearcher(ctx, cfg)
	if err != nil {
		return err
	}
	completer, err := selectCompleter(ctx, cfg)
	if err != nil {
		return err
	}
	prov, err := selectProvider(ctx, cfg, out)
	if err != nil {
		return err
	}

	logger := slog.Default()
	s := session.New(session.Options{
		In:  in,
		Out: out,
		Resolver: resolver.New(searcher, resolver.Scope{
			Organization: cfg.Agent.Organization,
			Domain:       cfg.Agent.Domain,
			Role:         cfg.Agent.Role,
		}, logger),
		Composer:     composer.New(completer, signature.New(cfg.Agent.ClosingPhrase, cfg.Agent.SenderName), cfg.Agent.Role, logger),
		Dispatcher:   prov,
		Sender:       cfg.Agent.SenderAddress,
		Organization: shortOrg(cfg.Agent.Domain, cfg.Agent.Organization),
		Domain:       cfg.Agent.Domain,
		Role:         cfg.Agent.Role,
		EditMode:     session.EditMode(cfg.Agent.EditMode),
		Timeout:      cfg.LLM.Timeout,
		Logger:       logger,
	})

	slog.Info("starting mail-agent",
		"search_provider", searcher.Name(),
		"draft_provider", completer.Name(),
		"dispatch", prov.Name(),
		"edit_mode", cfg.Agent.EditMode,
	)

	err = s.Run(ctx)
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(out)
		slog.Info("interrupted")
		return nil
	}
	return err
}

// loadConfig loads configuration from the given file (with env overrides)
// or from the environment alone when path is empty.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// setupLogger installs a JSON slog handler. Stdout belongs to the
// interactive loop, so logs go to stderr unless a log file is configured.
func setupLogger(cfg config.LoggingConfig) (func(), error) {
	var w io.Writer = os.Stderr
	closeFn := func() {}

	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w = f
		closeFn = func() { f.Close() }
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: parseLevel(cfg.Level)})
	slog.SetDefault(slog.New(handler))
	return closeFn, nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// shortOrg labels the banner with the first domain label, e.g. "UIC" for
// uic.edu, falling back to the organization name.
func shortOrg(domain, org string) string {
	if label, _, _ := strings.Cut(domain, "."); label != "" {
		return strings.ToUpper(label)
	}
	return org
}
