package jobs

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/rewired-gh/voltwatch/internal/logger"
	"github.com/rewired-gh/voltwatch/internal/notify"
)

type PreOpenConfig struct {
	Name    string
	Symbols []string
}

// PreOpenResult is the summed change percent of the quoted symbols and its label.
type PreOpenResult struct {
	Score  float64
	Label  string
	Quoted []string
}

// PreOpenJob labels the session bias from the aggregate change of index and futures.
type PreOpenJob struct {
	source   QuoteSource
	notifier notify.Notifier
	config   PreOpenConfig
	timeout  time.Duration
	now      func() time.Time
}

func NewPreOpenJob(cfg PreOpenConfig, source QuoteSource, notifier notify.Notifier) *PreOpenJob {
	return &PreOpenJob{
		source:   source,
		notifier: notifier,
		config:   cfg,
		timeout:  notify.DefaultSendTimeout,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// PreOpenLabel maps an aggregate change to BULLISH, BEARISH or NEUTRAL by sign.
func PreOpenLabel(score float64) string {
	switch {
	case score > 0:
		return "BULLISH"
	case score < 0:
		return "BEARISH"
	default:
		return "NEUTRAL"
	}
}

func preOpenArrow(score float64) string {
	switch {
	case score > 0:
		return "🟢↑"
	case score < 0:
		return "🔴↓"
	default:
		return "⚪→"
	}
}

// Run quotes every symbol, skipping those that fail, and sends the label.
func (j *PreOpenJob) Run(ctx context.Context) (PreOpenResult, error) {
	var res PreOpenResult
	var quoteLines []string
	for _, s := range j.config.Symbols {
		q, err := j.source.GetFirstQuote(ctx, []string{s})
		if err != nil {
			logger.Warn("Pre-open quote for %s unavailable: %v", s, err)
			continue
		}
		chg := changePct(q)
		res.Score += chg
		res.Quoted = append(res.Quoted, s)
		quoteLines = append(quoteLines, fmt.Sprintf("%s: %s (%+.2f%%)", s, humanize.FormatFloat("#,###.##", q.Price), chg))
	}
	if len(res.Quoted) == 0 {
		return res, fmt.Errorf("pre-open %s: no symbol answered", j.config.Name)
	}
	res.Label = PreOpenLabel(res.Score)

	lines := []string{
		fmt.Sprintf("🕒 %s Pre-open bias", j.now().Format("2006-01-02 15:04 UTC")),
		fmt.Sprintf("%s Bias: %s %s | score %.2f", j.config.Name, preOpenArrow(res.Score), res.Label, math.Abs(res.Score)),
	}
	lines = append(lines, quoteLines...)

	msg := notify.Message{Text: strings.Join(lines, "\n"), Required: true}
	if err := notify.Send(ctx, j.notifier, msg, j.timeout); err != nil {
		logger.Error("Failed to send pre-open bias: %v", err)
	}
	return res, nil
}

// Func adapts the job to the scheduler.
func (j *PreOpenJob) Func() Func {
	return func(ctx context.Context) error {
		_, err := j.Run(ctx)
		return err
	}
}
