package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // session timezones must resolve without system zoneinfo

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	FMP          FMPConfig          `mapstructure:"fmp"`
	Instruments  []InstrumentConfig `mapstructure:"instruments"`
	Sentiment    SentimentConfig    `mapstructure:"sentiment"`
	Bias         BiasConfig         `mapstructure:"bias"`
	Fundamentals FundamentalsConfig `mapstructure:"fundamentals"`
	Watchdog     WatchdogConfig     `mapstructure:"watchdog"`
	PreOpen      PreOpenConfig      `mapstructure:"preopen"`
	Telegram     TelegramConfig     `mapstructure:"telegram"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// FMPConfig holds market-data provider configuration
type FMPConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
	RateLimit      int           `mapstructure:"rate_limit"`
	MinuteBarLimit int           `mapstructure:"minute_bar_limit"`
}

// InstrumentConfig holds the thresholds for one watched instrument
type InstrumentConfig struct {
	Name           string        `mapstructure:"name"`
	Symbols        []string      `mapstructure:"symbols"` // first symbol that answers wins
	Unit           string        `mapstructure:"unit"`
	Threshold      float64       `mapstructure:"threshold"`
	RetriggerGap   float64       `mapstructure:"retrigger_gap"`
	Cooldown       time.Duration `mapstructure:"cooldown"`
	Window         time.Duration `mapstructure:"window"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	TPMultiplier   float64       `mapstructure:"tp_multiplier"`
	TPCap          float64       `mapstructure:"tp_cap"`
	NewsSymbols    []string      `mapstructure:"news_symbols"`
	ChangeAlertPct float64       `mapstructure:"change_alert_pct"` // watchdog move vs previous close, 0 disables
}

// SentimentConfig holds lexicon scoring configuration
type SentimentConfig struct {
	LexiconPath      string   `mapstructure:"lexicon_path"`
	BullishThreshold float64  `mapstructure:"bullish_threshold"`
	BearishThreshold float64  `mapstructure:"bearish_threshold"`
	AlertThreshold   float64  `mapstructure:"alert_threshold"`
	TopK             int      `mapstructure:"top_k"`
	NewsLimit        int      `mapstructure:"news_limit"`
	Symbols          []string `mapstructure:"symbols"`
	Schedule         string   `mapstructure:"schedule"`
}

// BiasConfig holds bias fusion configuration
type BiasConfig struct {
	Weights          WeightsConfig   `mapstructure:"weights"`
	StrongThreshold  float64         `mapstructure:"strong_threshold"`
	MildThreshold    float64         `mapstructure:"mild_threshold"`
	SentimentScale   float64         `mapstructure:"sentiment_scale"`
	FundamentalsPath string          `mapstructure:"fundamentals_path"`
	Schedule         string          `mapstructure:"schedule"`
	Baskets          []BasketConfig  `mapstructure:"baskets"`
	Derived          []DerivedConfig `mapstructure:"derived"`
}

// WeightsConfig holds the composite weights
type WeightsConfig struct {
	Fundamentals float64 `mapstructure:"fundamentals"`
	Sentiment    float64 `mapstructure:"sentiment"`
	Technical    float64 `mapstructure:"technical"`
}

// BasketConfig describes a portfolio proxy built from its constituent leaders
type BasketConfig struct {
	Name            string   `mapstructure:"name"`
	Members         []string `mapstructure:"members"`
	TechnicalSymbol string   `mapstructure:"technical_symbol"`
	TechnicalScale  float64  `mapstructure:"technical_scale"` // change % mapped to ±1
}

// DerivedConfig declares a correlated-instrument bias rule:
// value = SourceWeight*bias(Source) + MacroWeight*macro_sentiment
type DerivedConfig struct {
	Name         string   `mapstructure:"name"`
	Source       string   `mapstructure:"source"`
	SourceWeight float64  `mapstructure:"source_weight"`
	MacroWeight  float64  `mapstructure:"macro_weight"`
	MacroSymbols []string `mapstructure:"macro_symbols"`
}

// FundamentalsConfig holds the snapshot extraction job configuration
type FundamentalsConfig struct {
	Tickers  []string `mapstructure:"tickers"`
	Schedule string   `mapstructure:"schedule"`
}

// WatchdogConfig holds the intraday status job configuration
type WatchdogConfig struct {
	Schedule         string `mapstructure:"schedule"`
	Timezone         string `mapstructure:"timezone"`
	SessionStartHour int    `mapstructure:"session_start_hour"` // session runs until midnight
}

// PreOpenConfig holds the pre-open bias job configuration
type PreOpenConfig struct {
	Name     string   `mapstructure:"name"`
	Symbols  []string `mapstructure:"symbols"` // index and futures, changes are summed
	Schedule string   `mapstructure:"schedule"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// StorageConfig holds storage and persistence configuration
type StorageConfig struct {
	MaxAlerts int    `mapstructure:"max_alerts"`
	DBPath    string `mapstructure:"db_path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)

	setDefaults(v)

	// VOLTWATCH_FMP_API_KEY overrides fmp.api_key, and so on
	v.SetEnvPrefix("VOLTWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	for i := range cfg.Instruments {
		if cfg.Instruments[i].TPMultiplier == 0 {
			cfg.Instruments[i].TPMultiplier = DefaultTPMultiplier
		}
	}

	return &cfg, nil
}

// DefaultTPMultiplier is the ATR multiple used for the take-profit estimate.
const DefaultTPMultiplier = 1.5

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	v.SetDefault("fmp.base_url", "https://financialmodelingprep.com/api/v3")
	v.SetDefault("fmp.api_key", "")
	v.SetDefault("fmp.timeout", "15s")
	v.SetDefault("fmp.max_retries", 2)
	v.SetDefault("fmp.retry_delay", "1s")
	v.SetDefault("fmp.rate_limit", 5)
	v.SetDefault("fmp.minute_bar_limit", 60)

	v.SetDefault("sentiment.bullish_threshold", 0.8)
	v.SetDefault("sentiment.bearish_threshold", -0.8)
	v.SetDefault("sentiment.alert_threshold", 2.0)
	v.SetDefault("sentiment.top_k", 3)
	v.SetDefault("sentiment.news_limit", 50)
	v.SetDefault("sentiment.schedule", "*/30 * * * *")

	v.SetDefault("bias.weights.fundamentals", 0.55)
	v.SetDefault("bias.weights.sentiment", 0.30)
	v.SetDefault("bias.weights.technical", 0.15)
	v.SetDefault("bias.strong_threshold", 0.40)
	v.SetDefault("bias.mild_threshold", 0.20)
	v.SetDefault("bias.sentiment_scale", 5.0)
	v.SetDefault("bias.fundamentals_path", "./data/fundamentals.json")
	v.SetDefault("bias.schedule", "20 13 * * 1-5")

	v.SetDefault("fundamentals.schedule", "0 6 * * *")

	v.SetDefault("watchdog.schedule", "*/15 * * * *")
	v.SetDefault("watchdog.timezone", "Europe/Bucharest")
	v.SetDefault("watchdog.session_start_hour", 6)

	v.SetDefault("preopen.name", "US30")
	v.SetDefault("preopen.symbols", []string{"^DJI", "YM=F"})
	v.SetDefault("preopen.schedule", "")

	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.max_retries", 2)
	v.SetDefault("telegram.retry_delay_base", "1s")
	v.SetDefault("telegram.timeout", "10s")

	v.SetDefault("storage.max_alerts", 5000)
	v.SetDefault("storage.db_path", "./data/voltwatch.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.FMP.BaseURL == "" {
		return fmt.Errorf("fmp.base_url is required")
	}
	if c.FMP.APIKey == "" {
		return fmt.Errorf("fmp.api_key is required")
	}
	if c.FMP.Timeout <= 0 {
		return fmt.Errorf("fmp.timeout must be positive")
	}
	if c.FMP.MaxRetries < 1 {
		return fmt.Errorf("fmp.max_retries must be at least 1")
	}
	if c.FMP.RateLimit < 1 {
		return fmt.Errorf("fmp.rate_limit must be at least 1")
	}
	if c.FMP.MinuteBarLimit < 15 {
		return fmt.Errorf("fmp.minute_bar_limit must be at least 15")
	}

	if len(c.Instruments) == 0 {
		return fmt.Errorf("instruments must contain at least one instrument")
	}
	seen := make(map[string]bool)
	for i, inst := range c.Instruments {
		if err := inst.validate(); err != nil {
			return fmt.Errorf("instruments[%d]: %w", i, err)
		}
		if seen[inst.Name] {
			return fmt.Errorf("instruments[%d]: duplicate name %q", i, inst.Name)
		}
		seen[inst.Name] = true
	}

	if c.Sentiment.BullishThreshold <= c.Sentiment.BearishThreshold {
		return fmt.Errorf("sentiment.bullish_threshold must be greater than sentiment.bearish_threshold")
	}
	if c.Sentiment.AlertThreshold <= 0 {
		return fmt.Errorf("sentiment.alert_threshold must be positive")
	}
	if c.Sentiment.TopK < 1 {
		return fmt.Errorf("sentiment.top_k must be at least 1")
	}
	if c.Sentiment.NewsLimit < 1 {
		return fmt.Errorf("sentiment.news_limit must be at least 1")
	}

	w := c.Bias.Weights
	if w.Fundamentals < 0 || w.Sentiment < 0 || w.Technical < 0 {
		return fmt.Errorf("bias.weights must not be negative")
	}
	if sum := w.Fundamentals + w.Sentiment + w.Technical; sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("bias.weights must sum to 1.0, got %.3f", sum)
	}
	if c.Bias.MildThreshold <= 0 || c.Bias.StrongThreshold <= c.Bias.MildThreshold || c.Bias.StrongThreshold > 1 {
		return fmt.Errorf("bias thresholds must satisfy 0 < mild_threshold < strong_threshold <= 1")
	}
	if c.Bias.SentimentScale <= 0 {
		return fmt.Errorf("bias.sentiment_scale must be positive")
	}
	baskets := make(map[string]bool)
	for i, b := range c.Bias.Baskets {
		if b.Name == "" {
			return fmt.Errorf("bias.baskets[%d].name is required", i)
		}
		if len(b.Members) == 0 {
			return fmt.Errorf("bias.baskets[%d].members must not be empty", i)
		}
		if b.TechnicalSymbol != "" && b.TechnicalScale <= 0 {
			return fmt.Errorf("bias.baskets[%d].technical_scale must be positive when technical_symbol is set", i)
		}
		baskets[b.Name] = true
	}
	for i, d := range c.Bias.Derived {
		if d.Name == "" {
			return fmt.Errorf("bias.derived[%d].name is required", i)
		}
		if !baskets[d.Source] {
			return fmt.Errorf("bias.derived[%d].source %q is not a configured basket", i, d.Source)
		}
	}

	schedules := map[string]string{
		"sentiment.schedule":    c.Sentiment.Schedule,
		"bias.schedule":         c.Bias.Schedule,
		"fundamentals.schedule": c.Fundamentals.Schedule,
		"watchdog.schedule":     c.Watchdog.Schedule,
		"preopen.schedule":      c.PreOpen.Schedule,
	}
	for key, spec := range schedules {
		if spec == "" {
			continue
		}
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("%s: invalid cron expression: %w", key, err)
		}
	}

	if c.Watchdog.Schedule != "" {
		if _, err := time.LoadLocation(c.Watchdog.Timezone); err != nil {
			return fmt.Errorf("watchdog.timezone: %w", err)
		}
		if c.Watchdog.SessionStartHour < 0 || c.Watchdog.SessionStartHour > 23 {
			return fmt.Errorf("watchdog.session_start_hour must be between 0 and 23")
		}
	}
	if c.PreOpen.Schedule != "" && len(c.PreOpen.Symbols) == 0 {
		return fmt.Errorf("preopen.symbols must not be empty when preopen.schedule is set")
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	if c.Storage.MaxAlerts < 1 {
		return fmt.Errorf("storage.max_alerts must be at least 1")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}

// validate rejects an instrument that would otherwise run with an unbounded threshold.
func (i InstrumentConfig) validate() error {
	if i.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(i.Symbols) == 0 {
		return fmt.Errorf("%s: symbols must contain at least one symbol", i.Name)
	}
	if i.Threshold <= 0 {
		return fmt.Errorf("%s: threshold is required and must be positive", i.Name)
	}
	if i.RetriggerGap < 0 {
		return fmt.Errorf("%s: retrigger_gap must not be negative", i.Name)
	}
	if i.Cooldown <= 0 {
		return fmt.Errorf("%s: cooldown is required and must be positive", i.Name)
	}
	if i.Window <= 0 {
		return fmt.Errorf("%s: window is required and must be positive", i.Name)
	}
	if i.PollInterval <= 0 || i.PollInterval > i.Window {
		return fmt.Errorf("%s: poll_interval must be positive and not exceed window", i.Name)
	}
	if i.TPMultiplier <= 0 {
		return fmt.Errorf("%s: tp_multiplier must be positive", i.Name)
	}
	if i.TPCap <= 0 {
		return fmt.Errorf("%s: tp_cap is required and must be positive", i.Name)
	}
	if i.ChangeAlertPct < 0 {
		return fmt.Errorf("%s: change_alert_pct must not be negative", i.Name)
	}
	return nil
}

// Instrument returns the configuration of the named instrument.
func (c *Config) Instrument(name string) (InstrumentConfig, bool) {
	for _, inst := range c.Instruments {
		if inst.Name == name {
			return inst, true
		}
	}
	return InstrumentConfig{}, false
}
