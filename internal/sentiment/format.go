package sentiment

import (
	"fmt"
	"strings"
	"time"

	"github.com/rewired-gh/voltwatch/internal/models"
)

// Format renders an aggregate sentiment digest.
func Format(sum models.SentimentScore, asOf time.Time) string {
	icon := "⚪"
	switch sum.Label {
	case models.SentimentBullish:
		icon = "🟢"
	case models.SentimentBearish:
		icon = "🔴"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s News sentiment: %s (%+.1f)\n", icon, sum.Label, sum.Total)
	fmt.Fprintf(&b, "%s | %d headlines\n", asOf.UTC().Format("2006-01-02 15:04 UTC"), sum.Items)
	if len(sum.TopMatches) > 0 {
		b.WriteString("Top drivers:\n")
		for _, d := range sum.TopMatches {
			if d.Source != "" {
				fmt.Fprintf(&b, "• %+.1f %s (%s)\n", d.Score, d.Title, d.Source)
			} else {
				fmt.Fprintf(&b, "• %+.1f %s\n", d.Score, d.Title)
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
