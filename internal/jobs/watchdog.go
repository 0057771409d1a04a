package jobs

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/rewired-gh/voltwatch/internal/logger"
	"github.com/rewired-gh/voltwatch/internal/models"
	"github.com/rewired-gh/voltwatch/internal/notify"
)

// QuoteSource returns the first quote that answers among symbols.
type QuoteSource interface {
	GetFirstQuote(ctx context.Context, symbols []string) (models.Quote, error)
}

// WatchedInstrument is one line of the watchdog status.
type WatchedInstrument struct {
	Name     string
	Symbols  []string
	AlertPct float64 // |change| vs previous close that raises an alert, 0 disables
}

type WatchdogConfig struct {
	Instruments      []WatchedInstrument
	Location         *time.Location
	SessionStartHour int
}

// WatchdogJob sends an intraday status with each instrument's change vs previous close,
// flagging moves beyond the instrument's alert percent.
type WatchdogJob struct {
	source   QuoteSource
	notifier notify.Notifier
	config   WatchdogConfig
	timeout  time.Duration
	now      func() time.Time
}

func NewWatchdogJob(cfg WatchdogConfig, source QuoteSource, notifier notify.Notifier) *WatchdogJob {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &WatchdogJob{
		source:   source,
		notifier: notifier,
		config:   cfg,
		timeout:  notify.DefaultSendTimeout,
		now:      time.Now,
	}
}

// InSession reports whether local time t is inside the watch session: from the start
// hour up to and including midnight.
func InSession(t time.Time, startHour int) bool {
	h, m := t.Hour(), t.Minute()
	return h >= startHour || (h == 0 && m == 0)
}

// Run sends one status. It returns the alert lines and whether anything was sent.
func (j *WatchdogJob) Run(ctx context.Context) ([]string, bool, error) {
	local := j.now().In(j.config.Location)
	if !InSession(local, j.config.SessionStartHour) {
		logger.Debug("Watchdog outside session at %s", local.Format("15:04 MST"))
		return nil, false, nil
	}

	lines := []string{fmt.Sprintf("🛰 Watchdog %s", local.Format("2006-01-02 15:04 MST"))}
	var alerts []string
	var answered int
	for _, inst := range j.config.Instruments {
		q, err := j.source.GetFirstQuote(ctx, inst.Symbols)
		if err != nil {
			logger.Warn("Watchdog quote for %s unavailable: %v", inst.Name, err)
			lines = append(lines, fmt.Sprintf("%s: n/a", inst.Name))
			continue
		}
		answered++

		chg := changePct(q)
		line := fmt.Sprintf("%s %s: %s | %+.2f%%", inst.Name, q.Symbol, humanize.FormatFloat("#,###.##", q.Price), chg)
		if q.PreviousClose > 0 {
			line += fmt.Sprintf(" (prev close %s)", humanize.FormatFloat("#,###.##", q.PreviousClose))
		}
		lines = append(lines, line)

		if inst.AlertPct > 0 && math.Abs(chg) >= inst.AlertPct {
			arrow := "⬆️"
			if chg < 0 {
				arrow = "⬇️"
			}
			alerts = append(alerts, fmt.Sprintf("%s %s move %+.2f%% vs prev close", arrow, inst.Name, chg))
		}
	}
	if answered == 0 && len(j.config.Instruments) > 0 {
		return nil, false, fmt.Errorf("no instrument answered")
	}

	if len(alerts) > 0 {
		lines = append(lines, "")
		lines = append(lines, alerts...)
	}

	msg := notify.Message{Text: strings.Join(lines, "\n"), Required: len(alerts) > 0}
	if err := notify.Send(ctx, j.notifier, msg, j.timeout); err != nil {
		logger.Error("Failed to send watchdog status: %v", err)
	}
	return alerts, true, nil
}

// Func adapts the job to the scheduler.
func (j *WatchdogJob) Func() Func {
	return func(ctx context.Context) error {
		_, _, err := j.Run(ctx)
		return err
	}
}

// changePct prefers the provider's change percent and derives it from the previous
// close when the provider left it empty.
func changePct(q models.Quote) float64 {
	if q.ChangePct == 0 && q.PreviousClose > 0 {
		return (q.Price/q.PreviousClose - 1) * 100
	}
	return q.ChangePct
}
