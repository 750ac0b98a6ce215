package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziyad188/sentinel-bot-webwic/internal/api"
	"github.com/ziyad188/sentinel-bot-webwic/internal/config"
	"github.com/ziyad188/sentinel-bot-webwic/internal/sentinel"
	"github.com/ziyad188/sentinel-bot-webwic/internal/session"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagProject    string
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
)

// httpClientTimeout prevents hung connections from blocking CLI commands
// indefinitely.
const httpClientTimeout = 30 * time.Second

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sentinelctl",
		Short:   "Sentinel dashboard CLI",
		Long:    "CLI client for the Sentinel QA dashboard: runs, issues, evidence, and reviewers.",
		Version: version,
		// Silence Cobra's default error/usage printing — we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagProject, "project", "", "project ID (overrides config)")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "machine-readable JSON output")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress status output")

	cmd.AddCommand(
		newLoginCmd(),
		newSignupCmd(),
		newLogoutCmd(),
		newWhoamiCmd(),
		newRunsCmd(),
		newIssuesCmd(),
		newCategoriesCmd(),
		newSummaryCmd(),
		newEvidenceCmd(),
		newUsersCmd(),
		newDevicesCmd(),
		newNetworksCmd(),
		newProjectsCmd(),
	)

	return cmd
}

// app bundles the wired collaborators every command needs: one config, one
// session store, one shared executor, one domain client.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *session.FileStore
	api    *api.Client
	client *sentinel.Client
	auth   *sentinel.Authenticator
}

// newApp loads config and wires the client stack. The session store and
// executor are constructed exactly once here and passed by reference to
// every consumer — there is no ambient global session.
func newApp() (*app, error) {
	logger := newLogger()

	path := flagConfigPath
	if path == "" {
		var err error

		path, err = config.DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if flagProject != "" {
		cfg.ProjectID = flagProject
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	baseURL := config.NormalizeBaseURL(cfg.BaseURL)
	httpClient := &http.Client{Timeout: httpClientTimeout}

	store := session.NewFileStore(cfg.SessionPath, logger)
	refresher := session.NewRefresher(baseURL, httpClient, store, logger)

	apiClient := api.NewClient(baseURL, httpClient, store, refresher, notifySessionExpired, logger)

	return &app{
		cfg:    cfg,
		logger: logger,
		store:  store,
		api:    apiClient,
		client: sentinel.NewClient(apiClient, logger),
		auth:   sentinel.NewAuthenticator(baseURL, httpClient, store, logger),
	}, nil
}

// newLocalApp wires only the config and session store, skipping base-URL
// validation — for commands that never touch the network (whoami).
func newLocalApp() (*app, error) {
	logger := newLogger()

	path := flagConfigPath
	if path == "" {
		var err error

		path, err = config.DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:    cfg,
		logger: logger,
		store:  session.NewFileStore(cfg.SessionPath, logger),
	}, nil
}

// requireProject returns the effective project ID or a usage error.
func (a *app) requireProject() (string, error) {
	if a.cfg.ProjectID == "" {
		return "", fmt.Errorf("no project selected: pass --project or set project_id in the config")
	}

	return a.cfg.ProjectID, nil
}

// notifySessionExpired is the user-facing hook the executor fires once per
// terminal session loss.
func notifySessionExpired() {
	fmt.Fprintln(os.Stderr, "Session expired. Run `sentinelctl login` to continue.")
}

// newLogger builds the slog logger for this invocation. Verbose enables
// debug; quiet drops everything below error.
func newLogger() *slog.Logger {
	level := slog.LevelWarn

	switch {
	case flagVerbose:
		level = slog.LevelDebug
	case flagQuiet:
		level = slog.LevelError
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})

	return slog.New(handler)
}
