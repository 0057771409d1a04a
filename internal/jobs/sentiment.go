package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/rewired-gh/voltwatch/internal/logger"
	"github.com/rewired-gh/voltwatch/internal/models"
	"github.com/rewired-gh/voltwatch/internal/notify"
	"github.com/rewired-gh/voltwatch/internal/sentiment"
)

// NewsSource fetches headlines for a set of tickers.
type NewsSource interface {
	GetNews(ctx context.Context, symbols []string, limit int) ([]models.NewsItem, error)
}

type SentimentConfig struct {
	Symbols        []string
	NewsLimit      int
	TopK           int
	AlertThreshold float64
}

// SentimentJob scores the latest headlines and sends a digest when the aggregate is strong enough.
type SentimentJob struct {
	source   NewsSource
	scorer   *sentiment.Scorer
	notifier notify.Notifier
	config   SentimentConfig
	timeout  time.Duration
	now      func() time.Time
}

func NewSentimentJob(cfg SentimentConfig, source NewsSource, scorer *sentiment.Scorer, notifier notify.Notifier) *SentimentJob {
	return &SentimentJob{
		source:   source,
		scorer:   scorer,
		notifier: notifier,
		config:   cfg,
		timeout:  notify.DefaultSendTimeout,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run returns the summary and whether it was dispatched.
func (j *SentimentJob) Run(ctx context.Context) (models.SentimentScore, bool, error) {
	items, err := j.source.GetNews(ctx, j.config.Symbols, j.config.NewsLimit)
	if err != nil {
		return models.SentimentScore{}, false, fmt.Errorf("failed to fetch news: %w", err)
	}

	sum := j.scorer.Summarize(items, j.config.TopK)
	if !sentiment.ShouldAlert(sum.Total, j.config.AlertThreshold) {
		logger.Info("Sentiment %+.2f (%s) over %d headlines below alert threshold %.2f, not sent",
			sum.Total, sum.Label, sum.Items, j.config.AlertThreshold)
		return sum, false, nil
	}

	msg := notify.Message{Text: sentiment.Format(sum, j.now()), Required: true}
	if err := notify.Send(ctx, j.notifier, msg, j.timeout); err != nil {
		logger.Error("Failed to send sentiment digest: %v", err)
	}
	return sum, true, nil
}

// Func adapts the job to the scheduler.
func (j *SentimentJob) Func() Func {
	return func(ctx context.Context) error {
		_, _, err := j.Run(ctx)
		return err
	}
}
