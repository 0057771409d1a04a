package jobs

import (
	"context"
	"math"
	"time"

	"github.com/rewired-gh/voltwatch/internal/bias"
	"github.com/rewired-gh/voltwatch/internal/config"
	"github.com/rewired-gh/voltwatch/internal/fundamentals"
	"github.com/rewired-gh/voltwatch/internal/logger"
	"github.com/rewired-gh/voltwatch/internal/models"
	"github.com/rewired-gh/voltwatch/internal/notify"
	"github.com/rewired-gh/voltwatch/internal/sentiment"
)

// MarketSource provides the news and quotes the bias job reads.
type MarketSource interface {
	NewsSource
	QuoteSource
}

// BiasStore persists bias reports.
type BiasStore interface {
	AddBiasScores(scores []models.BiasScore) error
}

// BiasJob fuses the fundamentals snapshot, per-ticker news sentiment and an optional
// technical score into basket and derived biases.
type BiasJob struct {
	source    MarketSource
	scorer    *sentiment.Scorer
	combiner  *bias.Combiner
	notifier  notify.Notifier
	store     BiasStore
	config    config.BiasConfig
	newsLimit int
	timeout   time.Duration
	now       func() time.Time
}

// NewBiasJob builds the job. store may be nil.
func NewBiasJob(cfg config.BiasConfig, newsLimit int, source MarketSource, scorer *sentiment.Scorer,
	notifier notify.Notifier, store BiasStore) *BiasJob {
	combiner := bias.NewCombiner(
		bias.Weights{
			Fundamentals: cfg.Weights.Fundamentals,
			Sentiment:    cfg.Weights.Sentiment,
			Technical:    cfg.Weights.Technical,
		},
		bias.Labels{Strong: cfg.StrongThreshold, Mild: cfg.MildThreshold},
	)
	return &BiasJob{
		source:    source,
		scorer:    scorer,
		combiner:  combiner,
		notifier:  notifier,
		store:     store,
		config:    cfg,
		newsLimit: newsLimit,
		timeout:   notify.DefaultSendTimeout,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run evaluates and sends one report. Degraded inputs fall back to neutral values, so a
// report is always produced.
func (j *BiasJob) Run(ctx context.Context) (*bias.Report, error) {
	records := j.fundamentals()

	var tickers []string
	seen := make(map[string]bool)
	for _, b := range j.config.Baskets {
		for _, t := range b.Members {
			if !seen[t] {
				seen[t] = true
				tickers = append(tickers, t)
			}
		}
	}

	var perTicker map[string]float64
	if items, err := j.source.GetNews(ctx, tickers, j.newsLimit); err != nil {
		logger.Warn("Bias news unavailable, using neutral sentiment: %v", err)
	} else {
		perTicker = j.scorer.BySymbol(items)
	}

	baskets := make([]bias.BasketInput, 0, len(j.config.Baskets))
	for _, b := range j.config.Baskets {
		technical := j.technical(ctx, b)
		in := bias.BasketInput{Name: b.Name}
		for _, t := range b.Members {
			m := bias.MemberInput{Ticker: t, Inputs: bias.Inputs{Technical: technical}}
			if rec, ok := records[t]; ok {
				score := rec.Score
				m.Inputs.Fundamentals = &score
			}
			if total, ok := perTicker[t]; ok {
				s := sentiment.Normalize(total, j.config.SentimentScale)
				m.Inputs.Sentiment = &s
			}
			in.Members = append(in.Members, m)
		}
		baskets = append(baskets, in)
	}

	rules := make([]bias.DerivedRule, 0, len(j.config.Derived))
	for _, d := range j.config.Derived {
		rules = append(rules, bias.DerivedRule{
			Name:         d.Name,
			Source:       d.Source,
			SourceWeight: d.SourceWeight,
			MacroWeight:  d.MacroWeight,
			Macro:        j.macro(ctx, d),
		})
	}

	report := j.combiner.Build(baskets, rules, j.now())

	if j.store != nil {
		if err := j.store.AddBiasScores(report.All()); err != nil {
			logger.Warn("Failed to persist bias report: %v", err)
		}
	}

	msg := notify.Message{Text: bias.FormatReport(report), Required: true}
	if err := notify.Send(ctx, j.notifier, msg, j.timeout); err != nil {
		logger.Error("Failed to send bias report: %v", err)
	}
	return report, nil
}

// Func adapts the job to the scheduler.
func (j *BiasJob) Func() Func {
	return func(ctx context.Context) error {
		_, err := j.Run(ctx)
		return err
	}
}

func (j *BiasJob) fundamentals() map[string]models.FundamentalsRecord {
	if j.config.FundamentalsPath == "" {
		return nil
	}
	snap, err := fundamentals.ReadSnapshot(j.config.FundamentalsPath)
	if err != nil {
		logger.Warn("Fundamentals snapshot unavailable, using neutral scores: %v", err)
		return nil
	}
	return snap.Records()
}

// technical maps the basket symbol's daily change percent onto [-1, 1].
func (j *BiasJob) technical(ctx context.Context, b config.BasketConfig) float64 {
	if b.TechnicalSymbol == "" || b.TechnicalScale <= 0 {
		return 0
	}
	q, err := j.source.GetFirstQuote(ctx, []string{b.TechnicalSymbol})
	if err != nil {
		logger.Warn("Technical quote for %s unavailable: %v", b.Name, err)
		return 0
	}
	return math.Max(-1, math.Min(1, q.ChangePct/b.TechnicalScale))
}

func (j *BiasJob) macro(ctx context.Context, d config.DerivedConfig) float64 {
	if len(d.MacroSymbols) == 0 || d.MacroWeight == 0 {
		return 0
	}
	items, err := j.source.GetNews(ctx, d.MacroSymbols, j.newsLimit)
	if err != nil {
		logger.Warn("Macro news for %s unavailable: %v", d.Name, err)
		return 0
	}
	return sentiment.Normalize(j.scorer.Summarize(items, 0).Total, j.config.SentimentScale)
}
