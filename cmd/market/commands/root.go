package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bookstore/services/market/internal/config"
	"github.com/bookstore/services/market/internal/obs"
	"github.com/bookstore/services/market/pkg/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version will be set during build
var Version = "dev"

// app carries what every subcommand needs once flags and env are resolved.
type app struct {
	cfg             *config.Config
	log             *zap.Logger
	shutdownTracing func(context.Context) error
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd, _ := newRootCmd()
	return cmd
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "market",
		Short: "Seed and inspect the market store",
		Long: `market manages the sample data of the market store.

Configuration is read from MARKET_* environment variables; flags override them.

Example:
	 market seed --db-dsn=./market.db
	 market list
`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close(cmd.Context())
		},
	}

	rootCmd.PersistentFlags().String("db-driver", "", "Database driver: sqlite or postgres (env MARKET_DB_DRIVER)")
	rootCmd.PersistentFlags().String("db-dsn", "", "Database DSN or sqlite file (env MARKET_DB_DSN)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (env MARKET_LOG_LEVEL)")

	rootCmd.AddCommand(newSeedCmd(a))
	rootCmd.AddCommand(newListCmd(a))
	rootCmd.AddCommand(newServeCmd(a))

	return rootCmd, a
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Parse()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("db-driver") {
		cfg.Database.Driver, _ = flags.GetString("db-driver")
	}
	if flags.Changed("db-dsn") {
		cfg.Database.DSN, _ = flags.GetString("db-dsn")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.cfg = cfg
	a.log = logger.NewLogger(cfg.ServiceName, cfg.LogLevel).With(zap.String("command", cmd.Name()))

	shutdown, err := obs.Setup(cmd.Context(), cfg.ServiceName, cfg.OTelEndpoint)
	if err != nil {
		a.log.Warn("Tracing disabled", zap.Error(err))
	}
	a.shutdownTracing = shutdown
	return nil
}

func (a *app) close(ctx context.Context) error {
	if a.shutdownTracing != nil {
		if err := a.shutdownTracing(ctx); err != nil {
			a.log.Warn("Failed to flush traces", zap.Error(err))
		}
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
	return nil
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd, a := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log := a.log
		if log == nil {
			// Configuration failed before the configured logger existed.
			log = logger.NewLogger("market", "info")
		}
		log.Error("Command failed", zap.Error(err))
		_ = a.close(context.Background())
		_ = log.Sync()
		stop()
		os.Exit(1)
	}
}
