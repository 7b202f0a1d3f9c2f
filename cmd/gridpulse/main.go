package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/rewired-gh/gridpulse/internal/alerts"
	"github.com/rewired-gh/gridpulse/internal/analyst"
	"github.com/rewired-gh/gridpulse/internal/config"
	"github.com/rewired-gh/gridpulse/internal/logger"
	"github.com/rewired-gh/gridpulse/internal/market"
	"github.com/rewired-gh/gridpulse/internal/monitor"
	"github.com/rewired-gh/gridpulse/internal/storage"
	"github.com/rewired-gh/gridpulse/internal/telegram"
)

var (
	configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")
	envPath    = flag.String("env", ".env", "Optional dotenv file with GRIDPULSE_* overrides")
)

func main() {
	flag.Parse()

	if err := godotenv.Load(*envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("Failed to load %s: %v", *envPath, err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", *configPath)

	store, err := storage.New(cfg.Storage.DBPath)
	if err != nil {
		logger.Fatal("Failed to initialize storage: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage: %v", err)
		}
	}()

	gen := market.New(market.Config{
		PriceFloor: cfg.Market.PriceFloor,
		Seed:       cfg.Market.Seed,
	})
	mon := monitor.New(gen, alerts.NewEngine(), store, monitor.Config{
		TickInterval: cfg.Market.TickInterval,
		InitDelay:    cfg.Market.InitDelay,
		MaxTicks:     cfg.Storage.MaxTicks,
	})
	logger.Info("Market session %s created (journal: %s)", mon.SessionID(), cfg.Storage.DBPath)

	// Leave the interface nil when disabled so commands can detect it.
	var ai telegram.Analyst
	if cfg.Analyst.Enabled {
		ai = analyst.New(analyst.Config{
			APIKey:            cfg.Analyst.APIKey,
			BaseURL:           cfg.Analyst.BaseURL,
			Model:             cfg.Analyst.Model,
			Timeout:           cfg.Analyst.Timeout,
			RequestsPerSecond: cfg.Analyst.RequestsPerSecond,
			MaxRetries:        cfg.Analyst.MaxRetries,
		})
		logger.Info("AI analyst enabled (model: %s)", cfg.Analyst.Model)
	} else {
		logger.Debug("AI analyst disabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Telegram.Enabled {
		commands := telegram.NewCommands(mon, ai)
		telegramClient, err := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID,
			cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase, commands)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		mon.SetNotifier(telegramClient)
		mon.SetReporter(telegramClient)
		telegramClient.ListenForCommands(ctx)
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cleaning up...")
		cancel()
	}()

	mon.Run(ctx)
}
