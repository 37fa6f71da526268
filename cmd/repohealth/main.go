package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/schaermu/repohealth/internal/common"
	"github.com/schaermu/repohealth/internal/config"
	"github.com/schaermu/repohealth/internal/git"
	"github.com/schaermu/repohealth/internal/github"
	"github.com/schaermu/repohealth/internal/health"
	"github.com/schaermu/repohealth/internal/report"
	"github.com/spf13/cobra"
)

var (
	// Set by goreleaser
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Global flags
	cfgFile   string
	logLevel  string
	logFormat string
	repoDir   string
	commonDir string
	offline   bool
	output    string
	quiet     bool

	// Check command flags
	skipChecks []string
)

// errUnhealthy makes the process exit non-zero; the report already says why
var errUnhealthy = errors.New("repository health checks failed")

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

// printError reports command errors, staying silent for errUnhealthy
func printError(w io.Writer, err error) {
	if errors.Is(err, errUnhealthy) {
		return
	}
	fmt.Fprintln(w, "Error:", err)
}

var rootCmd = &cobra.Command{
	Use:   "repohealth",
	Short: "Check a repository against the maintainer health checklist",
	Long: `repohealth checks a git repository against a checklist: README badges,
presence of policy files, common boilerplate files that must match a shared
reference set byte for byte, and the GitHub community profile.

Without a subcommand it runs the full checklist.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runCheck,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run the full health checklist",
	Long: `Check runs every enabled check in order and prints one line per check.
A failing check never stops the remaining ones. The exit status is 1 when any
check failed.`,
	RunE: runCheck,
}

var commonCmd = &cobra.Command{
	Use:   "common",
	Short: "Compare common files with the reference set",
	Long: `Common discovers every match.yml below the reference set (COMMON_DIR),
activates the bundles whose rules match this repository and compares each
bundle file with the repository copy by SHA-256 checksum.

Nothing is modified; mismatches come with diff and copy commands to run by hand.`,
	RunE: runCommon,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the available checks",
	Run: func(cmd *cobra.Command, args []string) {
		for _, c := range health.DefaultChecks() {
			fmt.Fprintf(cmd.OutOrStdout(), "%-26s %s\n", c.Name, c.Description)
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("repohealth %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is <repo>/"+config.DefaultFileName+" when present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&repoDir, "repo-dir", "", "repository to check (default is the git top level of the working directory)")
	rootCmd.PersistentFlags().StringVar(&commonDir, "common-dir", "", "reference set of common files (default is $COMMON_DIR or ./common next to the binary)")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "skip checks that need the GitHub API")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "text", "output format (text, json)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only print failing common files")

	// Check command flags
	for _, cmd := range []*cobra.Command{rootCmd, checkCmd} {
		cmd.Flags().StringSliceVar(&skipChecks, "skip", nil, "checks to skip (see 'repohealth list')")
	}

	// Add commands
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(commonCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(versionCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	// Setup logger
	logger := setupLogger()

	format, err := report.ParseFormat(output)
	if err != nil {
		return err
	}

	// Load configuration
	gitClient := git.NewShellClient()
	cfg, err := loadConfig(ctx, cmd, gitClient, logger)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	checks := health.DefaultChecks()
	if err := health.ValidateNames(checks, cfg.Checks.Skip); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Create dependencies
	env := &health.Env{
		Config: cfg,
		Git:    gitClient,
		Logger: logger,
	}
	if !cfg.Offline {
		metadata, err := newGitHubClient(ctx, cfg)
		if err != nil {
			return err
		}
		env.GitHub = metadata
	}

	logger.Info("starting health checks", "repo_dir", cfg.RepoDir, "offline", cfg.Offline)
	summary, err := health.NewRunner(env, checks).Run(ctx)
	if err != nil {
		return err
	}

	if format == report.FormatJSON {
		if err := report.WriteSummaryJSON(cmd.OutOrStdout(), summary); err != nil {
			return err
		}
	} else {
		report.NewPrinter(cmd.OutOrStdout(), quiet).Summary(summary)
	}

	if !summary.Healthy() {
		return errUnhealthy
	}
	return nil
}

func runCommon(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	logger := setupLogger()

	format, err := report.ParseFormat(output)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(ctx, cmd, git.NewShellClient(), logger)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	reconciler, err := common.NewReconciler(cfg.CommonDir, cfg.RepoDir, logger)
	if err != nil {
		return err
	}

	result, err := reconciler.Run(ctx)
	if err != nil {
		logger.Error("common files check failed", "error", err)
		return err
	}

	if format == report.FormatJSON {
		if err := report.WriteCommonJSON(cmd.OutOrStdout(), result); err != nil {
			return err
		}
	} else {
		report.NewPrinter(cmd.OutOrStdout(), quiet).Common(result)
	}

	if !result.Healthy() {
		return errUnhealthy
	}
	return nil
}

func setupLogger() *slog.Logger {
	// Parse log level
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	// Create handler based on format; stdout is reserved for the report
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if logFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}

// resolveRepoDir picks the repository root: the --repo-dir flag, else the
// git top level of the working directory, else the working directory
func resolveRepoDir(ctx context.Context, gitClient git.Client, logger *slog.Logger) (string, error) {
	if repoDir != "" {
		return filepath.Abs(repoDir)
	}

	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}

	top, err := gitClient.TopLevel(ctx, wd)
	if err != nil {
		logger.Debug("not inside a git work tree, using working directory", "dir", wd, "error", err)
		return wd, nil
	}
	return top, nil
}

// loadEnvFiles loads .env.local and .env from dir. godotenv never overrides
// variables that are already set, so .env.local wins over .env.
func loadEnvFiles(dir string, logger *slog.Logger) {
	for _, name := range []string{".env.local", ".env"} {
		path := filepath.Join(dir, name)
		if err := godotenv.Load(path); err == nil {
			logger.Debug("loaded environment file", "path", path)
		}
	}
}

func loadConfig(ctx context.Context, cmd *cobra.Command, gitClient git.Client, logger *slog.Logger) (*config.Config, error) {
	base, err := resolveRepoDir(ctx, gitClient, logger)
	if err != nil {
		return nil, err
	}

	loadEnvFiles(base, logger)

	// Determine config file path
	var cfg *config.Config
	if cfgFile != "" {
		logger.Info("loading configuration", "path", cfgFile)
		cfg, err = config.LoadFile(cfgFile, base)
	} else {
		path := filepath.Join(base, config.DefaultFileName)
		logger.Debug("looking for configuration", "path", path)
		cfg, err = config.LoadOptional(path, base)
	}
	if err != nil {
		return nil, err
	}

	// Flags win over file and environment
	if repoDir != "" {
		cfg.RepoDir = base
	}
	if commonDir != "" {
		if cfg.CommonDir, err = filepath.Abs(commonDir); err != nil {
			return nil, fmt.Errorf("failed to resolve common dir: %w", err)
		}
	}
	if cmd != nil && cmd.Flags().Changed("offline") {
		cfg.Offline = offline
	}
	cfg.Checks.Skip = append(cfg.Checks.Skip, skipChecks...)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Debug("configuration loaded",
		"repo_dir", cfg.RepoDir,
		"common_dir", cfg.CommonDir,
		"offline", cfg.Offline,
		"skip", cfg.Checks.Skip)

	return cfg, nil
}

func newGitHubClient(ctx context.Context, cfg *config.Config) (github.Metadata, error) {
	token, err := cfg.Token()
	if err != nil {
		return nil, err
	}

	client := github.NewClient(ctx, token)
	if cfg.GitHub.APIURL != "" {
		if _, err := client.WithBaseURL(cfg.GitHub.APIURL); err != nil {
			return nil, err
		}
	}
	return client, nil
}

func setupSignalHandler() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
	}()

	return ctx, cancel
}
