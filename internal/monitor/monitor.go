// Package monitor detects short-horizon volatility spikes on polled quotes.
package monitor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rewired-gh/voltwatch/internal/logger"
	"github.com/rewired-gh/voltwatch/internal/models"
	"github.com/rewired-gh/voltwatch/internal/notify"
	"github.com/rewired-gh/voltwatch/internal/sentiment"
)

// QuoteSource is the market-data collaborator.
type QuoteSource interface {
	GetFirstQuote(ctx context.Context, symbols []string) (models.Quote, error)
	GetMinuteBars(ctx context.Context, symbol string, limit int) ([]models.MinuteBar, error)
	GetNews(ctx context.Context, symbols []string, limit int) ([]models.NewsItem, error)
}

// Store persists observed prices and emitted alerts.
type Store interface {
	SaveLastPrice(sample models.PriceSample) error
	LoadLastPrices() (map[string]models.PriceSample, error)
	AddSpikeAlert(event *models.SpikeEvent, est *models.RangeEstimate) error
}

type Instrument struct {
	Name         string
	Symbols      []string
	Unit         string
	Thresholds   Thresholds
	Window       time.Duration
	PollInterval time.Duration
	TPMultiplier float64
	TPCap        float64
	NewsSymbols  []string
}

type Config struct {
	Instruments    []Instrument
	MinuteBarLimit int
	NewsLimit      int
	TopDrivers     int
	SendTimeout    time.Duration
}

func DefaultConfig() Config {
	return Config{
		MinuteBarLimit: 60,
		NewsLimit:      20,
		TopDrivers:     3,
		SendTimeout:    notify.DefaultSendTimeout,
	}
}

type Monitor struct {
	source      QuoteSource
	notifier    notify.Notifier
	store       Store
	scorer      *sentiment.Scorer
	tracker     *Tracker
	detector    *Detector
	instruments map[string]Instrument
	order       []string
	config      Config
	now         func() time.Time

	mu       sync.Mutex
	failures map[string]int
}

// New builds a monitor. store and scorer may be nil.
func New(cfg Config, source QuoteSource, notifier notify.Notifier, store Store, scorer *sentiment.Scorer) *Monitor {
	horizons := make(map[string]time.Duration, len(cfg.Instruments))
	thresholds := make(map[string]Thresholds, len(cfg.Instruments))
	instruments := make(map[string]Instrument, len(cfg.Instruments))
	order := make([]string, 0, len(cfg.Instruments))

	for _, inst := range cfg.Instruments {
		horizons[inst.Name] = inst.Window
		thresholds[inst.Name] = inst.Thresholds
		instruments[inst.Name] = inst
		order = append(order, inst.Name)
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = DefaultConfig().SendTimeout
	}

	return &Monitor{
		source:      source,
		notifier:    notifier,
		store:       store,
		scorer:      scorer,
		tracker:     NewTracker(horizons),
		detector:    NewDetector(thresholds),
		instruments: instruments,
		order:       order,
		config:      cfg,
		now:         func() time.Time { return time.Now().UTC() },
		failures:    make(map[string]int),
	}
}

// Restore seeds each window with the last persisted price.
func (m *Monitor) Restore() error {
	if m.store == nil {
		return nil
	}
	samples, err := m.store.LoadLastPrices()
	if err != nil {
		return fmt.Errorf("failed to load last prices: %w", err)
	}

	var restored int
	for _, name := range m.order {
		s, ok := samples[name]
		if !ok {
			continue
		}
		if err := m.tracker.Seed(s); err != nil {
			logger.Warn("Failed to restore %s: %v", name, err)
			continue
		}
		restored++
	}
	logger.Info("Restored last price for %d/%d instruments", restored, len(m.order))
	return nil
}

// Tick polls one instrument once. A non-nil event means an alert was emitted.
// Errors are transient for this tick and leave window and alert state untouched.
func (m *Monitor) Tick(ctx context.Context, name string) (*models.SpikeEvent, error) {
	inst, ok := m.instruments[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrUnknownInstrument)
	}

	quote, err := m.source.GetFirstQuote(ctx, inst.Symbols)
	if err != nil {
		return nil, fmt.Errorf("quote %s: %w", name, err)
	}

	now := m.now()
	delta, err := m.tracker.Observe(name, quote.Price, now)
	if err != nil {
		return nil, err
	}
	m.saveLastPrice(models.PriceSample{Instrument: name, Timestamp: now, Price: quote.Price})

	event, err := m.detector.Evaluate(name, delta, quote.Price, now)
	if err != nil {
		return nil, err
	}
	if event == nil {
		logger.Debug("%s: price=%.2f delta=%+.2f", name, quote.Price, delta)
		return nil, nil
	}

	logger.Info("Spike on %s: %+.2f %s (%s) at %.2f", name, event.Delta, inst.Unit, event.Direction, event.CurrentPrice)

	est := m.estimate(ctx, inst, quote.Symbol)
	drivers := m.drivers(ctx, inst)

	m.send(ctx, notify.Message{Text: FormatSpike(inst, event, est, drivers), Required: true})

	if m.store != nil {
		if err := m.store.AddSpikeAlert(event, est); err != nil {
			logger.Warn("Failed to persist spike alert for %s: %v", name, err)
		}
	}
	return event, nil
}

func (m *Monitor) estimate(ctx context.Context, inst Instrument, symbol string) *models.RangeEstimate {
	bars, err := m.source.GetMinuteBars(ctx, symbol, m.config.MinuteBarLimit)
	if err != nil {
		logger.Warn("Minute bars for %s unavailable: %v", inst.Name, err)
		return nil
	}
	est, err := EstimateRange(inst.Name, bars, inst.TPMultiplier, inst.TPCap, inst.Unit)
	if err != nil {
		logger.Warn("Range estimate for %s unavailable: %v", inst.Name, err)
		return nil
	}
	return est
}

func (m *Monitor) drivers(ctx context.Context, inst Instrument) []models.Driver {
	if m.scorer == nil || len(inst.NewsSymbols) == 0 || m.config.TopDrivers <= 0 {
		return nil
	}
	items, err := m.source.GetNews(ctx, inst.NewsSymbols, m.config.NewsLimit)
	if err != nil {
		logger.Warn("News for %s unavailable: %v", inst.Name, err)
		return nil
	}
	return m.scorer.Summarize(items, m.config.TopDrivers).TopMatches
}

func (m *Monitor) saveLastPrice(s models.PriceSample) {
	if m.store == nil {
		return
	}
	if err := m.store.SaveLastPrice(s); err != nil {
		logger.Warn("Failed to save last price for %s: %v", s.Instrument, err)
	}
}

// send delivers best-effort, detached from ctx cancellation.
func (m *Monitor) send(ctx context.Context, msg notify.Message) {
	if err := notify.Send(ctx, m.notifier, msg, m.config.SendTimeout); err != nil {
		logger.Error("Failed to send notification: %v", err)
	}
}

// Run polls every instrument on its own ticker until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, name := range m.order {
		inst := m.instruments[name]
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.poll(ctx, inst)
		}()
	}
	wg.Wait()
}

func (m *Monitor) poll(ctx context.Context, inst Instrument) {
	logger.Info("Watching %s every %v (window %v, threshold %.2f %s)",
		inst.Name, inst.PollInterval, inst.Window, inst.Thresholds.Threshold, inst.Unit)

	ticker := time.NewTicker(inst.PollInterval)
	defer ticker.Stop()

	m.runTick(ctx, inst.Name)
	for {
		select {
		case <-ctx.Done():
			logger.Info("Stopped watching %s", inst.Name)
			return
		case <-ticker.C:
			m.runTick(ctx, inst.Name)
		}
	}
}

// runTick wraps Tick with consecutive-failure tracking: the first failure and the first
// recovery are notified, everything in between is only logged.
func (m *Monitor) runTick(ctx context.Context, name string) {
	_, err := m.Tick(ctx, name)
	if ctx.Err() != nil {
		return
	}

	m.mu.Lock()
	failures := m.failures[name]
	if err != nil {
		failures++
		m.failures[name] = failures
	} else {
		m.failures[name] = 0
	}
	m.mu.Unlock()

	if err != nil {
		logger.Error("Tick %s failed (consecutive failures: %d): %v", name, failures, err)
		if failures == 1 {
			m.send(ctx, notify.ErrorNotice(name, err))
		}
		return
	}
	if failures > 0 {
		logger.Info("%s recovered after %d consecutive failure(s)", name, failures)
		m.send(ctx, notify.RecoveryNotice(name, failures))
	}
}

// Status renders one line per instrument with the latest price, window delta and phase.
func (m *Monitor) Status() string {
	now := m.now()
	var b strings.Builder
	for _, name := range m.order {
		inst := m.instruments[name]
		latest, ok := m.tracker.Latest(name)
		if !ok {
			fmt.Fprintf(&b, "%s: no data\n", name)
			continue
		}
		fmt.Fprintf(&b, "%s: %s %s | %s %s | %s\n",
			name,
			formatPrice(latest.Price), inst.Unit,
			formatSigned(m.tracker.WindowDelta(name)), inst.Unit,
			m.detector.Phase(name, now))
	}
	if b.Len() == 0 {
		return "no instruments configured"
	}
	return strings.TrimRight(b.String(), "\n")
}
