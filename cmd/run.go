package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"signalbot/bot"
	"signalbot/bot/features/account"
	"signalbot/bot/features/admin"
	"signalbot/bot/features/signals"
	"signalbot/config"
	"signalbot/database"
	"signalbot/events"
	"signalbot/infrastructure"
	"signalbot/observability"
	"signalbot/repository"
	"signalbot/service"
	"signalbot/session"

	log "github.com/sirupsen/logrus"
)

// ConfigureLogging applies the configured level and format to logrus
func ConfigureLogging(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("Unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

// Run initializes and starts the application
func Run(ctx context.Context) error {
	cfg := config.Get()
	ConfigureLogging(cfg)
	log.Info("Starting signal bot...")

	// Initialize database connection
	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL(), cfg.DatabaseMaxConns)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	log.Info("Database connection established successfully")

	eventBus := events.NewBus()
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	// Initialize services
	policy := service.PolicyFromConfig(cfg)
	ledgerService := service.NewLedgerService(uowFactory, policy)
	referralService := service.NewReferralService(uowFactory, policy)
	promoService := service.NewPromoService(uowFactory, policy)
	signalService := service.NewSignalService(uowFactory, policy)
	settingsService := service.NewSettingsService(uowFactory, cfg.DefaultAPKURL)

	startBonusTimer := service.NewStartBonusTimer(promoService, cfg.StartBonusSweepInterval)
	onboardingService := service.NewOnboardingService(ledgerService, referralService, startBonusTimer)
	log.WithFields(log.Fields{
		"referralTrigger": cfg.ReferralBonusTrigger,
		"referralBonus":   cfg.ReferralBonus,
		"startBonus":      cfg.StartBonus,
		"startBonusDelay": cfg.StartBonusDelay,
	}).Info("Services initialized")

	// Optional event forwarding to NATS JetStream
	var publisher infrastructure.MessagePublisher = infrastructure.NoopPublisher{}
	if cfg.NATSServers != "" {
		natsClient := infrastructure.NewNATSClient(cfg.NATSServers, "signalbot")
		if err := natsClient.Connect(ctx); err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer func() {
			if err := natsClient.Close(); err != nil {
				log.WithError(err).Warn("Error closing NATS connection")
			}
		}()
		if err := natsClient.EnsureStream(cfg.NATSStream, infrastructure.AllSubjects()); err != nil {
			return fmt.Errorf("failed to ensure NATS stream: %w", err)
		}
		publisher = natsClient
		log.WithField("stream", cfg.NATSStream).Info("Forwarding ledger events to NATS")
	} else {
		log.Info("NATS not configured, ledger events stay in process")
	}
	infrastructure.NewEventForwarder(publisher).Attach(eventBus)

	metrics := observability.NewMetrics()
	metrics.Attach(eventBus)
	if cfg.MetricsAddr != "" {
		stopMetrics := metrics.Serve(cfg.MetricsAddr)
		defer stopMetrics()
	}

	// Wizard state lives in Redis when configured so restarts keep it
	var sessions session.Store
	if cfg.RedisURL != "" {
		redisClient, err := session.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer redisClient.Close()
		sessions = session.NewRedisStore(redisClient, cfg.SessionTTL)
		log.Info("Using Redis session store")
	} else {
		memoryStore := session.NewMemoryStore(cfg.SessionTTL)
		stopPruning := memoryStore.StartPruning(ctx, 10*time.Minute)
		defer stopPruning()
		sessions = memoryStore
		log.Info("Using in-memory session store")
	}

	router := bot.NewRouter(
		onboardingService,
		sessions,
		account.New(onboardingService, ledgerService, referralService, promoService, settingsService, sessions, account.Settings{
			BotUsername:     cfg.BotUsername,
			WithdrawSiteURL: cfg.WithdrawSiteURL,
			ReferralBonus:   cfg.ReferralBonus,
			ReferralTrigger: cfg.ReferralBonusTrigger,
			StartBonus:      cfg.StartBonus,
			StartBonusDelay: cfg.StartBonusDelay,
			MinWithdraw:     cfg.MinWithdraw,
		}),
		signals.New(signalService, sessions),
		admin.New(ledgerService, settingsService, sessions),
		cfg.AdminIDs,
	)

	// Initialize Telegram bot
	log.Info("Initializing Telegram bot...")
	telegramBot, err := bot.New(bot.Config{
		Token: cfg.TelegramToken,
		Debug: cfg.Environment == "development" && cfg.LogLevel == "debug",
	}, router, metrics)
	if err != nil {
		return fmt.Errorf("failed to initialize Telegram bot: %w", err)
	}
	bot.NewNotifier(telegramBot).Attach(eventBus)

	// Grants persisted before a restart are picked up by the first sweep
	stopStartBonuses := startBonusTimer.Start(ctx)

	go telegramBot.Start(ctx)
	telegramBot.NotifyAdmins("✅ Bot started")

	log.WithField("environment", cfg.Environment).Info("Bot is running")
	<-ctx.Done()

	log.Info("Shutting down bot...")
	if err := telegramBot.Close(); err != nil {
		log.WithError(err).Warn("Error closing Telegram bot")
	}
	stopStartBonuses()

	// Let in-flight event handlers finish before the pool closes
	done := make(chan struct{})
	go func() {
		eventBus.Wait()
		close(done)
	}()
	select {
	case <-done:
		log.Info("Shutdown completed")
	case <-time.After(10 * time.Second):
		log.Warn("Shutdown timeout exceeded")
	}

	return nil
}

// ImportLegacy loads a legacy export file into the ledger
func ImportLegacy(ctx context.Context, path string) error {
	cfg := config.Get()
	ConfigureLogging(cfg)

	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL(), cfg.DatabaseMaxConns)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	eventBus := events.NewBus()
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)
	importer := service.NewLegacyImporter(uowFactory, service.PolicyFromConfig(cfg))

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open legacy export: %w", err)
	}
	defer file.Close()

	report, err := importer.Import(ctx, file)
	if err != nil {
		return fmt.Errorf("legacy import failed: %w", err)
	}
	eventBus.Wait()

	log.WithFields(log.Fields{
		"records":          report.Records,
		"accounts":         report.Accounts,
		"created":          report.Created,
		"updated":          report.Updated,
		"balanceAdjusted":  report.BalanceAdjusted,
		"referralsLinked":  report.ReferralsLinked,
		"referralsSkipped": report.ReferralsSkipped,
	}).Info("Legacy import completed")
	return nil
}
