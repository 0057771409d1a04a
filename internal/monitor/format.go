package monitor

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/rewired-gh/voltwatch/internal/models"
)

// FormatSpike renders a spike alert. est and drivers are optional.
func FormatSpike(inst Instrument, e *models.SpikeEvent, est *models.RangeEstimate, drivers []models.Driver) string {
	icon := "🔺"
	if e.Direction == models.DirectionDown {
		icon = "🔻"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s volatility spike\n", icon, inst.Name)
	b.WriteString(e.DetectedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Move (last %s): %s %s (%s)\n", formatHorizon(inst.Window), formatSigned(e.Delta), inst.Unit, e.Direction)
	fmt.Fprintf(&b, "Price: %s → %s\n", formatPrice(e.WindowStartPrice), formatPrice(e.CurrentPrice))

	if est != nil {
		fmt.Fprintf(&b, "TP est.: ~%.2f %s (ATR %.2f)\n", est.TakeProfit, est.Unit, est.ATR)
	}

	if len(drivers) > 0 {
		b.WriteString("Top drivers:\n")
		for _, d := range drivers {
			if d.Source != "" {
				fmt.Fprintf(&b, "• %+.1f %s (%s)\n", d.Score, d.Title, d.Source)
			} else {
				fmt.Fprintf(&b, "• %+.1f %s\n", d.Score, d.Title)
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatPrice(v float64) string {
	return humanize.FormatFloat("#,###.##", v)
}

func formatSigned(v float64) string {
	return fmt.Sprintf("%+.2f", v)
}

func formatHorizon(d time.Duration) string {
	if d < time.Hour && d%time.Second == 0 {
		return fmt.Sprintf("%ds", int(d/time.Second))
	}
	return d.String()
}
