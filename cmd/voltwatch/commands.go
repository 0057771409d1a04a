package main

import (
	"fmt"
	"strings"

	"github.com/rewired-gh/voltwatch/internal/monitor"
	"github.com/rewired-gh/voltwatch/internal/storage"
	"github.com/rewired-gh/voltwatch/internal/telegram"
)

const recentAlertsShown = 5

func commandHandlers(mon *monitor.Monitor, store *storage.Storage) map[string]telegram.CommandHandler {
	return map[string]telegram.CommandHandler{
		"status": mon.Status,
		"bias":   func() string { return latestBias(store) },
		"alerts": func() string { return recentAlerts(store) },
	}
}

func latestBias(store *storage.Storage) string {
	scores, err := store.LatestBiasScores()
	if err != nil {
		return fmt.Sprintf("Failed to load bias: %v", err)
	}
	if len(scores) == 0 {
		return "No bias report yet"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Bias as of %s\n", scores[0].AsOf.Format("2006-01-02 15:04 UTC"))
	for _, s := range scores {
		fmt.Fprintf(&b, "%s (%s): %s %+.2f\n", s.Name, s.Scope, s.Label, s.Value)
	}
	return strings.TrimRight(b.String(), "\n")
}

func recentAlerts(store *storage.Storage) string {
	alerts, err := store.RecentSpikeAlerts(recentAlertsShown)
	if err != nil {
		return fmt.Sprintf("Failed to load alerts: %v", err)
	}
	if len(alerts) == 0 {
		return "No spikes recorded"
	}

	var b strings.Builder
	for _, a := range alerts {
		e := a.Event
		fmt.Fprintf(&b, "%s %s %+.2f (%s) at %.2f",
			e.DetectedAt.Format("01-02 15:04:05"), e.Instrument, e.Delta, e.Direction, e.CurrentPrice)
		if a.TakeProfit != nil {
			fmt.Fprintf(&b, " TP ~%.2f %s", *a.TakeProfit, a.Unit)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
