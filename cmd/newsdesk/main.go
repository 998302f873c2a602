package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/newsdesk/internal/config"
	"github.com/TobiSchelling/newsdesk/internal/database"
	"github.com/TobiSchelling/newsdesk/internal/domain"
	"github.com/TobiSchelling/newsdesk/internal/logging"
	"github.com/TobiSchelling/newsdesk/internal/newsdesk"
	"github.com/TobiSchelling/newsdesk/internal/notify"
	"github.com/TobiSchelling/newsdesk/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	asUser     string
	cfg        *config.Config
	logger     *slog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "newsdesk",
	Short:   "Editorial workflow for a news platform",
	Long:    "newsdesk manages journalists' articles through editorial review, reader subscriptions and the published feed.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			logger = logging.New("info")
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		logger = logging.New(level)
		slog.SetDefault(logger)
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&asUser, "as", "", "Username to act as")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(publisherCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(reviewCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("newsdesk", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/newsdesk/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to set the public base URL and the notification webhook.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.Stats(cmd.Context())
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Database: %s\n\n", db.Path())
		fmt.Println("Users:")
		fmt.Printf("  Total: %d\n", stats.Users)
		fmt.Printf("  Readers: %d\n", stats.Readers)
		fmt.Printf("  Journalists: %d\n", stats.Journalists)
		fmt.Printf("  Editors: %d\n", stats.Editors)
		fmt.Println("\nArticles:")
		fmt.Printf("  Total: %d\n", stats.Articles)
		fmt.Printf("  Drafts: %d\n", stats.Drafts)
		fmt.Printf("  Approved: %d\n", stats.Approved)
		fmt.Printf("  Declined: %d\n", stats.Declined)
		fmt.Println("\nOther:")
		fmt.Printf("  Publishers: %d\n", stats.Publishers)
		fmt.Printf("  Newsletters: %d\n", stats.Newsletters)
		fmt.Printf("  Subscriptions: %d\n", stats.Subscriptions)
		return nil
	},
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		srv, err := server.New(openDesk(db), server.Options{
			PrincipalHeader: cfg.Server.PrincipalHeader,
			BaseURL:         cfg.Server.BaseURL,
		}, logger)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("Starting server at http://%s\n", cfg.Addr())
		fmt.Println("Press Ctrl+C to stop")
		return srv.ListenAndServe(ctx, cfg.Addr())
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (overrides config)")
}

func openDB() (*database.DB, error) {
	return database.Open(cfg.DatabasePath())
}

// openDesk wires the desk with the configured notifiers.
func openDesk(db *database.DB) *newsdesk.Desk {
	var notifier notify.Notifier = notify.NewLogNotifier(logger)
	if cfg.Notify.WebhookURL != "" {
		notifier = notify.Multi{notifier, notify.NewWebhookNotifier(cfg.Notify.WebhookURL, cfg.Notify.Timeout)}
	}
	dispatcher := notify.NewDispatcher(notifier, cfg.Notify.Timeout, logger)

	return newsdesk.New(db, dispatcher, newsdesk.Options{
		RereviewOnEdit: cfg.Workflow.RereviewOnEdit,
		CompareAndSet:  cfg.Workflow.CompareAndSet,
		ExcerptLength:  cfg.Notify.ExcerptLength,
		BaseURL:        cfg.Server.BaseURL,
	}, logger)
}

// actingAs resolves the --as user.
func actingAs(ctx context.Context, desk *newsdesk.Desk) (*domain.Principal, error) {
	if asUser == "" {
		return nil, fmt.Errorf("this command needs --as <username>")
	}
	p, err := desk.PrincipalByUsername(ctx, asUser)
	if err != nil {
		return nil, fmt.Errorf("resolving --as %s: %w", asUser, err)
	}
	return p, nil
}
