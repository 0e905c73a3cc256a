package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mymmrac/telego"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"fitdew-bot/internal/bot"
	"fitdew-bot/internal/config"
	"fitdew-bot/internal/database"
	"fitdew-bot/internal/logging"
	"fitdew-bot/internal/metrics"
	"fitdew-bot/internal/payment"
	"fitdew-bot/internal/session"
	"fitdew-bot/internal/storage"
	"fitdew-bot/internal/tariff"
	"fitdew-bot/internal/ui"
	"fitdew-bot/internal/utils"
	"fitdew-bot/internal/worker"
)

// Version is set at build time with -ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:          "fitdew-bot",
	Short:        "Telegram bot selling and reminding about training tariffs",
	Version:      Version,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBot(cmd.Context())
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger := bootstrap("migrate")
		db, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer closeDB(db, logger)

		if err := storage.NewUsers(db).Migrate(cmd.Context()); err != nil {
			return err
		}
		logger.Info().Msg("Schema migrated")
		return nil
	},
}

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Run a single reminder cycle and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger := bootstrap("remind")
		api := newTelegram(cfg, logger)

		db, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer closeDB(db, logger)

		reminder := worker.NewReminder(storage.NewUsers(db), api, cfg.ReminderLead(), cfg.ReminderInterval, nil, logger)
		sent, err := reminder.RunOnce(cmd.Context())
		if err != nil {
			return err
		}
		logger.Info().Int("sent", sent).Msg("Reminder cycle complete")
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("fitdew-bot %s\n", Version)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(remindCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runBot(ctx context.Context) error {
	cfg, logger := bootstrap("bot")
	api := newTelegram(cfg, logger)

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer closeDB(db, logger)

	users := storage.NewUsers(db)
	if err := users.Migrate(ctx); err != nil {
		return err
	}

	rdb, err := database.ConnectRedis(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = rdb.Close() }()

	m := metrics.New(prometheus.DefaultRegisterer)
	if cfg.MetricsAddr != "" {
		allowed, err := utils.ParseCIDRs(cfg.MetricsAllowedCIDRs)
		if err != nil {
			return fmt.Errorf("METRICS_ALLOWED_CIDRS: %w", err)
		}
		startMetricsServer(ctx, cfg.MetricsAddr, allowed)
	}

	if cfg.PaymentProviderToken == "" {
		logger.Warn().Msg("PAYMENTS_PROVIDER_TOKEN is empty, purchases are disabled")
	}

	manager := ui.NewManager(api, component(logger, "ui"))
	flow := bot.NewFlow(users, session.NewStore(rdb, cfg.SessionTTL), manager, api, bot.FlowConfig{
		Prices: tariff.Prices{
			tariff.Base:    cfg.PriceBase,
			tariff.Optimal: cfg.PriceOptimal,
			tariff.Maximum: cfg.PriceMaximum,
		},
		ProviderToken: cfg.PaymentProviderToken,
		Currency:      cfg.PaymentCurrency,
		AppURL:        cfg.AppURL,
		AdminURL:      cfg.AdminURL,
	}, m, component(logger, "flow"))
	payments := payment.NewHandler(users, api, manager, m, component(logger, "payment"))
	reminder := worker.NewReminder(users, api, cfg.ReminderLead(), cfg.ReminderInterval, m, component(logger, "reminder")).
		WithLocker(worker.NewRedisLocker(rdb, worker.ReminderLockKey, cfg.ReminderInterval))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return bot.New(api, flow, payments, component(logger, "router")).Run(ctx)
	})
	g.Go(func() error {
		return reminder.Run(ctx)
	})

	logger.Info().Str("version", Version).Msg("Service started successfully")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info().Msg("Service stopped")
	return nil
}

func bootstrap(name string) (*config.Config, zerolog.Logger) {
	cfg := config.LoadConfig()
	logger := logging.Init(logging.Config{
		Format:    cfg.LogFormat,
		Level:     cfg.LogLevel,
		Component: name,
	})
	return cfg, logger
}

// newTelegram exits the process when the token is missing or rejected.
func newTelegram(cfg *config.Config, logger zerolog.Logger) *telego.Bot {
	if cfg.BotToken == "" {
		logger.Fatal().Msg("TELEGRAM_BOT_TOKEN is required")
	}
	api, err := telego.NewBot(cfg.BotToken)
	if err != nil {
		logger.Fatal().Err(err).Msg("Could not create Telegram bot")
	}
	return api
}

func openDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.ConnectPostgres(cfg)
	if err != nil {
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}
	return db, nil
}

func closeDB(db *gorm.DB, logger zerolog.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		logger.Warn().Err(err).Msg("Failed to close database")
	}
}

// component tags a child logger. The process-level "component" field set by
// bootstrap stays untouched.
func component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("module", name).Logger()
}
