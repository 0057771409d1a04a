package sentiment

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewired-gh/voltwatch/internal/models"
)

func testScorer() *Scorer {
	return NewScorer(Lexicon{
		"rate cut": 1.5,
		"dovish":   1.2,
		"hawkish":  -1.2,
		"cut":      0.1,
		"war":      -0.9,
	}, DefaultThresholds())
}

func TestScore_SumsContainedPhrases(t *testing.T) {
	s := NewScorer(Lexicon{"rate cut": 1.5, "dovish": 1.2}, DefaultThresholds())
	assert.InDelta(t, 2.7, s.Score("Fed RATE CUT expected as officials turn Dovish"), 1e-9)
}

func TestScore_OverlappingAndInsideWords(t *testing.T) {
	s := testScorer()

	// "rate cut" and "cut" both match
	assert.InDelta(t, 1.6, s.Score("surprise rate cut"), 1e-9)
	// "war" matches inside "warning"
	assert.InDelta(t, -0.9, s.Score("profit warning"), 1e-9)
	// each phrase counts once regardless of repetitions
	assert.InDelta(t, 1.2, s.Score("dovish, dovish, dovish"), 1e-9)
	assert.Zero(t, s.Score("nothing to see here"))
}

func TestLabel(t *testing.T) {
	s := testScorer()
	tests := []struct {
		total float64
		want  models.SentimentLabel
	}{
		{0.9, models.SentimentBullish},
		{0.8, models.SentimentNeutral},
		{0.0, models.SentimentNeutral},
		{-0.8, models.SentimentNeutral},
		{-0.81, models.SentimentBearish},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, s.Label(tt.total), "total %v", tt.total)
	}
}

func TestSummarize_TopKByAbsoluteScoreStable(t *testing.T) {
	s := testScorer()
	items := []models.NewsItem{
		{Title: "Markets flat", Source: "A"},
		{Title: "Hawkish minutes", Source: "B"},
		{Title: "Dovish tone", Source: "C"},
		{Title: "Rate cut odds rise", Source: "D"},
		{Title: "Another dovish remark", Source: "E"},
	}

	sum := s.Summarize(items, 3)
	assert.InDelta(t, 2.8, sum.Total, 1e-9)
	assert.Equal(t, models.SentimentBullish, sum.Label)
	assert.Equal(t, 5, sum.Items)
	require.Len(t, sum.TopMatches, 3)
	assert.Equal(t, "D", sum.TopMatches[0].Source)
	// equal magnitudes keep feed order
	assert.Equal(t, "B", sum.TopMatches[1].Source)
	assert.Equal(t, "C", sum.TopMatches[2].Source)
}

func TestSummarize_UnscoredItemsRankLast(t *testing.T) {
	items := []models.NewsItem{
		{Title: "Markets flat", Source: "A"},
		{Title: "Hawkish minutes", Source: "B"},
	}

	sum := testScorer().Summarize(items, 5)
	require.Len(t, sum.TopMatches, 2)
	assert.Equal(t, "B", sum.TopMatches[0].Source)
	assert.Equal(t, "A", sum.TopMatches[1].Source)
	assert.Zero(t, sum.TopMatches[1].Score)
}

func TestSummarize_Empty(t *testing.T) {
	sum := testScorer().Summarize(nil, 3)
	assert.Zero(t, sum.Total)
	assert.Equal(t, models.SentimentNeutral, sum.Label)
	assert.Empty(t, sum.TopMatches)
}

func TestBySymbol(t *testing.T) {
	got := testScorer().BySymbol([]models.NewsItem{
		{Symbol: "GS", Title: "Hawkish"},
		{Symbol: "GS", Title: "dovish"},
		{Symbol: "JPM", Title: "rate cut"},
		{Title: "dovish"},
	})
	assert.InDelta(t, 0.0, got["GS"], 1e-9)
	assert.InDelta(t, 1.6, got["JPM"], 1e-9)
	assert.Len(t, got, 2)
}

func TestShouldAlert(t *testing.T) {
	assert.True(t, ShouldAlert(2.0, 2.0))
	assert.True(t, ShouldAlert(-2.5, 2.0))
	assert.False(t, ShouldAlert(1.99, 2.0))
}

func TestNormalize(t *testing.T) {
	assert.InDelta(t, 0.5, Normalize(2.5, 5), 1e-9)
	assert.Equal(t, 1.0, Normalize(12, 5))
	assert.Equal(t, -1.0, Normalize(-12, 5))
	assert.Zero(t, Normalize(3, 0))
}

func TestLoadLexicon(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexicon.yaml")
	content := "phrases:\n  Rate Cut: 1.5\n  hawkish: -1.2\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	lex, err := LoadLexicon(path)
	require.NoError(t, err)
	assert.Equal(t, 1.5, lex["rate cut"])
	assert.Equal(t, -1.2, lex["hawkish"])
}

func TestLoadLexicon_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadLexicon(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("phrases: {}\n"), 0o644))
	_, err = LoadLexicon(empty)
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("phrases: [1, 2"), 0o644))
	_, err = LoadLexicon(bad)
	assert.Error(t, err)
}

func TestShippedLexiconCoversDefaults(t *testing.T) {
	lex, err := LoadLexicon("../../configs/lexicon.yaml")
	require.NoError(t, err)
	for phrase, weight := range DefaultLexicon() {
		assert.Equal(t, weight, lex[phrase], phrase)
	}
}

func TestDefaultLexiconIsUsable(t *testing.T) {
	s := NewScorer(DefaultLexicon(), DefaultThresholds())
	assert.InDelta(t, 2.7, s.Score("rate cut as Fed turns dovish"), 1e-9)
	assert.Equal(t, models.SentimentBearish, s.Label(s.Score("recession fears trigger selloff")))
}

func TestDefaultLexicon_HeadlineTerms(t *testing.T) {
	s := NewScorer(DefaultLexicon(), DefaultThresholds())
	tests := []struct {
		text string
		want float64
	}{
		{"Microsoft announces acquisition", 1.0},
		{"Fed to cut rates in June", 1.0},
		{"ECB could raise rates again", -1.0},
		{"SEC investigation widens", -1.0},
		{"Bank posts guidance cut", -1.0},
		{"Border conflict flares", -1.0},
		{"Chip maker sees AI growth", 1.0},
		{"New CEO appointed", 0.6},
		{"Chairman resigns", -0.3},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.InDelta(t, tt.want, s.Score(tt.text), 1e-9)
		})
	}
}

func TestFormat(t *testing.T) {
	sum := testScorer().Summarize([]models.NewsItem{
		{Title: "Rate cut odds rise", Source: "Reuters"},
		{Title: "Dovish speech"},
	}, 3)

	got := Format(sum, time.Date(2024, 5, 1, 14, 30, 0, 0, time.UTC))
	want := "🟢 News sentiment: BULLISH (+2.8)\n" +
		"2024-05-01 14:30 UTC | 2 headlines\n" +
		"Top drivers:\n" +
		"• +1.6 Rate cut odds rise (Reuters)\n" +
		"• +1.2 Dovish speech"
	assert.Equal(t, want, got)
}
