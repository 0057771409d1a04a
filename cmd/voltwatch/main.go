package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/rewired-gh/voltwatch/internal/config"
	"github.com/rewired-gh/voltwatch/internal/fmp"
	"github.com/rewired-gh/voltwatch/internal/fundamentals"
	"github.com/rewired-gh/voltwatch/internal/jobs"
	"github.com/rewired-gh/voltwatch/internal/logger"
	"github.com/rewired-gh/voltwatch/internal/monitor"
	"github.com/rewired-gh/voltwatch/internal/notify"
	"github.com/rewired-gh/voltwatch/internal/sentiment"
	"github.com/rewired-gh/voltwatch/internal/storage"
	"github.com/rewired-gh/voltwatch/internal/telegram"
)

var configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	defer logger.Sync()
	logger.Info("Configuration loaded from %s (%d instruments)", *configPath, len(cfg.Instruments))

	app := fx.New(
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Zap()}
		}),
		fx.Supply(cfg),
		fx.Provide(
			newStorage,
			newFMPClient,
			newTelegram,
			newNotifier,
			newScorer,
			newMonitor,
			newScheduler,
		),
		fx.Invoke(register),
	)

	// Run blocks until SIGINT/SIGTERM, then runs the OnStop hooks.
	app.Run()
	logger.Info("Service stopped")
}

func newStorage(lc fx.Lifecycle, cfg *config.Config) (*storage.Storage, error) {
	store, err := storage.New(cfg.Storage.MaxAlerts, cfg.Storage.DBPath)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return store.Close()
		},
	})
	return store, nil
}

func newFMPClient(cfg *config.Config) *fmp.Client {
	return fmp.NewClient(cfg.FMP.BaseURL, cfg.FMP.APIKey, fmp.ClientConfig{
		Timeout:    cfg.FMP.Timeout,
		MaxRetries: cfg.FMP.MaxRetries,
		RetryDelay: cfg.FMP.RetryDelay,
		RateLimit:  cfg.FMP.RateLimit,
	})
}

// newTelegram returns nil when Telegram is disabled.
func newTelegram(cfg *config.Config) (*telegram.Client, error) {
	if !cfg.Telegram.Enabled {
		logger.Info("Telegram notifications disabled, alerts go to the log")
		return nil, nil
	}
	client, err := telegram.NewClient(
		cfg.Telegram.BotToken,
		cfg.Telegram.ChatID,
		cfg.Telegram.MaxRetries,
		cfg.Telegram.RetryDelayBase,
		cfg.Telegram.Timeout,
	)
	if err != nil {
		return nil, err
	}
	logger.Info("Telegram client initialized successfully")
	return client, nil
}

func newNotifier(tg *telegram.Client) notify.Notifier {
	if tg == nil {
		return notify.Log{}
	}
	return tg
}

func newScorer(cfg *config.Config) (*sentiment.Scorer, error) {
	lex := sentiment.DefaultLexicon()
	if cfg.Sentiment.LexiconPath != "" {
		loaded, err := sentiment.LoadLexicon(cfg.Sentiment.LexiconPath)
		if err != nil {
			return nil, err
		}
		lex = loaded
		logger.Info("Loaded %d lexicon phrases from %s", len(lex), cfg.Sentiment.LexiconPath)
	}
	return sentiment.NewScorer(lex, sentiment.Thresholds{
		Bullish: cfg.Sentiment.BullishThreshold,
		Bearish: cfg.Sentiment.BearishThreshold,
	}), nil
}

func newMonitor(cfg *config.Config, client *fmp.Client, n notify.Notifier, store *storage.Storage, scorer *sentiment.Scorer) *monitor.Monitor {
	mc := monitor.DefaultConfig()
	mc.MinuteBarLimit = cfg.FMP.MinuteBarLimit
	mc.NewsLimit = cfg.Sentiment.NewsLimit
	mc.TopDrivers = cfg.Sentiment.TopK

	for _, inst := range cfg.Instruments {
		mc.Instruments = append(mc.Instruments, monitor.Instrument{
			Name:    inst.Name,
			Symbols: inst.Symbols,
			Unit:    inst.Unit,
			Thresholds: monitor.Thresholds{
				Threshold:    inst.Threshold,
				RetriggerGap: inst.RetriggerGap,
				Cooldown:     inst.Cooldown,
			},
			Window:       inst.Window,
			PollInterval: inst.PollInterval,
			TPMultiplier: inst.TPMultiplier,
			TPCap:        inst.TPCap,
			NewsSymbols:  inst.NewsSymbols,
		})
	}
	return monitor.New(mc, client, n, store, scorer)
}

func newScheduler(cfg *config.Config, client *fmp.Client, n notify.Notifier, store *storage.Storage, scorer *sentiment.Scorer) (*jobs.Scheduler, error) {
	s := jobs.NewScheduler()

	sentimentJob := jobs.NewSentimentJob(jobs.SentimentConfig{
		Symbols:        cfg.Sentiment.Symbols,
		NewsLimit:      cfg.Sentiment.NewsLimit,
		TopK:           cfg.Sentiment.TopK,
		AlertThreshold: cfg.Sentiment.AlertThreshold,
	}, client, scorer, n)
	if len(cfg.Sentiment.Symbols) > 0 {
		if err := s.Add("sentiment", cfg.Sentiment.Schedule, sentimentJob.Func()); err != nil {
			return nil, err
		}
	}

	if len(cfg.Bias.Baskets) > 0 {
		biasJob := jobs.NewBiasJob(cfg.Bias, cfg.Sentiment.NewsLimit, client, scorer, n, store)
		if err := s.Add("bias", cfg.Bias.Schedule, biasJob.Func()); err != nil {
			return nil, err
		}
	}

	if len(cfg.Fundamentals.Tickers) > 0 {
		extractor := fundamentals.NewExtractor(client, cfg.Fundamentals.Tickers, cfg.Bias.FundamentalsPath)
		err := s.Add("fundamentals", cfg.Fundamentals.Schedule, func(ctx context.Context) error {
			_, err := extractor.Run(ctx)
			return err
		})
		if err != nil {
			return nil, err
		}
	}
	if cfg.Watchdog.Schedule != "" {
		loc, err := time.LoadLocation(cfg.Watchdog.Timezone)
		if err != nil {
			return nil, err
		}
		watched := make([]jobs.WatchedInstrument, 0, len(cfg.Instruments))
		for _, inst := range cfg.Instruments {
			watched = append(watched, jobs.WatchedInstrument{
				Name:     inst.Name,
				Symbols:  inst.Symbols,
				AlertPct: inst.ChangeAlertPct,
			})
		}
		watchdog := jobs.NewWatchdogJob(jobs.WatchdogConfig{
			Instruments:      watched,
			Location:         loc,
			SessionStartHour: cfg.Watchdog.SessionStartHour,
		}, client, n)
		if err := s.Add("watchdog", cfg.Watchdog.Schedule, watchdog.Func()); err != nil {
			return nil, err
		}
	}

	preopen := jobs.NewPreOpenJob(jobs.PreOpenConfig{Name: cfg.PreOpen.Name, Symbols: cfg.PreOpen.Symbols}, client, n)
	if err := s.Add("preopen", cfg.PreOpen.Schedule, preopen.Func()); err != nil {
		return nil, err
	}
	return s, nil
}

func register(lc fx.Lifecycle, mon *monitor.Monitor, sched *jobs.Scheduler, store *storage.Storage, tg *telegram.Client) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			if err := store.RotateAlerts(); err != nil {
				logger.Warn("Failed to rotate alerts: %v", err)
			}
			if err := mon.Restore(); err != nil {
				logger.Warn("Starting without restored prices: %v", err)
			}

			go func() {
				defer close(done)
				mon.Run(ctx)
			}()
			sched.Start(ctx)

			if tg != nil {
				tg.ListenForCommands(ctx, commandHandlers(mon, store))
			}
			logger.Info("Monitoring service started")
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			logger.Info("Shutdown signal received, cleaning up...")
			cancel()
			sched.Stop(stopCtx)

			select {
			case <-done:
			case <-stopCtx.Done():
				logger.Warn("Timed out waiting for pollers to stop")
			}
			return nil
		},
	})
}
