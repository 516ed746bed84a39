package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"warrant-sniper/internal/analysis"
	"warrant-sniper/internal/auth"
	"warrant-sniper/internal/config"
	"warrant-sniper/internal/logging"
	"warrant-sniper/internal/search"
	"warrant-sniper/internal/store"
	"warrant-sniper/internal/transport"
	"warrant-sniper/internal/view"
)

// Version information
const (
	Version = "0.1.0"
)

// App holds the application dependencies.
type App struct {
	Config    *config.Config
	Logger    zerolog.Logger
	Store     store.DataStore
	Transport transport.Transport
	Session   *search.Session
	Gate      *auth.Gate
	Analysis  *analysis.Client
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	// Initialize local store
	dbPath := filepath.Join(config.DefaultConfigDir(), "sniper.db")
	dataStore, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize store, favorites and login gate unavailable")
	} else {
		app.Store = dataStore
		logger.Debug().Msg("SQLite store initialized")
	}

	// Initialize login gate
	if app.Store != nil {
		validator := auth.NewStaticValidator(cfg.Credentials.Passcode, cfg.Credentials.OverrideCode)
		app.Gate = auth.NewGate(app.Store, validator, cfg.Auth.MaxAttempts, cfg.LockoutDuration(), logger)
	}

	// Initialize AI client if an API key is available
	if cfg.Credentials.OpenAI.APIKey != "" {
		app.Analysis = analysis.NewClient(cfg.Credentials.OpenAI.APIKey, cfg.Credentials.OpenAI.Model, logger)
		logger.Debug().Str("model", cfg.Credentials.OpenAI.Model).Msg("AI analysis client initialized")
	}

	rootCmd := &cobra.Command{
		Use:   "warrant-sniper",
		Short: "Warrant Sniper - Taiwanese stock warrant scanner CLI",
		Long: `Warrant Sniper browses Taiwanese stock warrants (權證).

It dispatches search commands to a backend scan engine through a shared
document store, renders the returned warrant list with a strict
high-win-rate filter, and keeps local favorites.

Use 'warrant-sniper help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/warrant-sniper)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().Bool("offline", false, "use the in-memory transport instead of MongoDB")
	rootCmd.PersistentFlags().String("passcode", "", "access passcode for gated commands")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newSearchCmd(app))
	rootCmd.AddCommand(newFavoritesCmd(app))
	rootCmd.AddCommand(newLoginCmd(app))
	rootCmd.AddCommand(newAnalyzeCmd(app))
	rootCmd.AddCommand(newCommentaryCmd(app))

	return rootCmd
}

// ensureTransport lazily builds the document transport and session.
func (app *App) ensureTransport(ctx context.Context, cmd *cobra.Command) error {
	if app.Session != nil {
		return nil
	}

	offline, _ := cmd.Flags().GetBool("offline")
	if offline || !app.Config.HasMongo() {
		app.Transport = transport.NewMemoryTransport()
		app.Logger.Debug().Msg("Using in-memory transport")
	} else {
		tr, err := transport.NewMongoTransport(ctx, transport.MongoConfig{
			URI:               app.Config.Transport.MongoURI,
			Database:          app.Config.Transport.Database,
			CommandCollection: app.Config.Transport.CommandCollection,
			ResultCollection:  app.Config.Transport.ResultCollection,
			ConnectTimeout:    app.Config.Transport.ConnectTimeout,
		}, app.Logger)
		if err != nil {
			return err
		}
		app.Transport = tr
	}

	app.Session = search.NewSession(app.Transport, app.Logger)
	return nil
}

// requireAccess enforces the login gate when a passcode is
// configured. The secret comes from the --passcode flag or the
// WARRANT_PASSCODE environment override already applied to config.
func (app *App) requireAccess(ctx context.Context, cmd *cobra.Command) error {
	if app.Config.Credentials.Passcode == "" || app.Gate == nil {
		return nil
	}
	secret, _ := cmd.Flags().GetString("passcode")
	return app.Gate.Attempt(ctx, secret)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"version": Version})
			} else {
				output.Printf("Warrant Sniper v%s\n", Version)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			return showConfig(output, app.Config)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("✓ Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) error {
	output.Bold("Transport")
	output.Printf("  Mongo URI set:    %v\n", cfg.Transport.MongoURI != "")
	output.Printf("  Database:         %s\n", cfg.Transport.Database)
	output.Printf("  Commands:         %s\n", cfg.Transport.CommandCollection)
	output.Printf("  Results:          %s\n", cfg.Transport.ResultCollection)
	output.Printf("  Offline:          %v\n", cfg.Transport.Offline)
	output.Println()

	output.Bold("Filter")
	output.Printf("  Excluded brokers: %v\n", cfg.Filter.ExcludedBrokers)
	output.Printf("  Min days:         %d\n", cfg.Filter.MinDaysToMaturity)
	output.Printf("  Leverage:         %.1f - %.1f\n", cfg.Filter.MinLeverage, cfg.Filter.MaxLeverage)
	output.Printf("  Max |theta|:      %.1f%%\n", cfg.Filter.MaxThetaPercent)
	output.Printf("  Min volume:       %.0f\n", cfg.Filter.MinVolume)
	output.Printf("  Price band:       %.2f - %.2f\n", cfg.Filter.MinPrice, cfg.Filter.MaxPrice)
	output.Printf("  Max spread:       %.2f\n", cfg.Filter.MaxSpread)
	output.Println()

	output.Bold("Auth")
	output.Printf("  Gate enabled:     %v\n", cfg.Credentials.Passcode != "")
	output.Printf("  Max attempts:     %d\n", cfg.Auth.MaxAttempts)
	output.Printf("  Lockout:          %s\n", cfg.LockoutDuration())

	return nil
}

// filterPolicy builds the view policy from configuration.
func (app *App) filterPolicy() view.FilterPolicy {
	f := app.Config.Filter
	return view.FilterPolicy{
		ExcludedBrokers:   f.ExcludedBrokers,
		MinDaysToMaturity: f.MinDaysToMaturity,
		MinLeverage:       f.MinLeverage,
		MaxLeverage:       f.MaxLeverage,
		MaxThetaPercent:   f.MaxThetaPercent,
		MinVolume:         f.MinVolume,
		MinPrice:          f.MinPrice,
		MaxPrice:          f.MaxPrice,
		MaxSpread:         f.MaxSpread,
	}
}

// Execute sets up config and logging, then runs the root command.
// The --config flag is resolved before cobra parses flags because the
// configuration feeds command construction.
func Execute() error {
	cfg, err := config.Load(configDirFromArgs(os.Args[1:]))
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := logging.NewLogger()
	return NewRootCmd(cfg, logger).Execute()
}

func configDirFromArgs(args []string) string {
	for i, arg := range args {
		if arg == "--config" && i+1 < len(args) {
			return args[i+1]
		}
		if strings.HasPrefix(arg, "--config=") {
			return strings.TrimPrefix(arg, "--config=")
		}
	}
	return ""
}
