package sentiment

import (
	"math"
	"sort"
	"strings"

	"github.com/rewired-gh/voltwatch/internal/models"
)

// Thresholds split a sentiment total into BULLISH / NEUTRAL / BEARISH.
type Thresholds struct {
	Bullish float64
	Bearish float64
}

// DefaultThresholds returns the ±0.8 label thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{Bullish: 0.8, Bearish: -0.8}
}

type entry struct {
	phrase string
	weight float64
}

// Scorer sums lexicon weights over substring matches. Safe for concurrent use.
type Scorer struct {
	entries    []entry
	thresholds Thresholds
}

// NewScorer builds a scorer from lex. Phrases are matched lower-case in a fixed order
// so totals are reproducible.
func NewScorer(lex Lexicon, th Thresholds) *Scorer {
	entries := make([]entry, 0, len(lex))
	for phrase, weight := range lex {
		p := strings.ToLower(phrase)
		if p == "" || weight == 0 {
			continue
		}
		entries = append(entries, entry{phrase: p, weight: weight})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].phrase < entries[j].phrase })
	return &Scorer{entries: entries, thresholds: th}
}

// Score returns the sum of weights of every phrase contained in text.
// Matching is plain substring containment, so a phrase may match inside a longer word
// and overlapping phrases each contribute.
func (s *Scorer) Score(text string) float64 {
	lower := strings.ToLower(text)
	var total float64
	for _, e := range s.entries {
		if strings.Contains(lower, e.phrase) {
			total += e.weight
		}
	}
	return total
}

// Label classifies a total.
func (s *Scorer) Label(total float64) models.SentimentLabel {
	switch {
	case total > s.thresholds.Bullish:
		return models.SentimentBullish
	case total < s.thresholds.Bearish:
		return models.SentimentBearish
	default:
		return models.SentimentNeutral
	}
}

// Summarize scores every item, sums the aggregate and keeps the topK items by absolute
// score as drivers. Ties keep feed order and unscored items sort last.
func (s *Scorer) Summarize(items []models.NewsItem, topK int) models.SentimentScore {
	drivers := make([]models.Driver, 0, len(items))
	var total float64
	for _, item := range items {
		score := s.Score(item.Text())
		total += score
		drivers = append(drivers, models.Driver{Score: score, Title: item.Title, Source: item.Source})
	}

	sort.SliceStable(drivers, func(i, j int) bool {
		return math.Abs(drivers[i].Score) > math.Abs(drivers[j].Score)
	})
	if topK >= 0 && len(drivers) > topK {
		drivers = drivers[:topK]
	}

	return models.SentimentScore{
		Total:      total,
		Label:      s.Label(total),
		TopMatches: drivers,
		Items:      len(items),
	}
}

// BySymbol sums item scores per news symbol.
func (s *Scorer) BySymbol(items []models.NewsItem) map[string]float64 {
	out := make(map[string]float64)
	for _, item := range items {
		if item.Symbol == "" {
			continue
		}
		out[item.Symbol] += s.Score(item.Text())
	}
	return out
}

// ShouldAlert reports whether an aggregate is strong enough to be dispatched.
func ShouldAlert(total, threshold float64) bool {
	return math.Abs(total) >= threshold
}

// Normalize maps an unbounded lexicon total into [-1, 1] by dividing by scale and clamping.
func Normalize(total, scale float64) float64 {
	if scale <= 0 {
		return 0
	}
	v := total / scale
	return math.Max(-1, math.Min(1, v))
}
