package models

import "time"

// NewsItem is a read-only headline from the news feed.
type NewsItem struct {
	Symbol      string    `json:"symbol,omitempty"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Source      string    `json:"source"`
	URL         string    `json:"url,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// Text returns the title and body joined for lexicon scoring.
func (n NewsItem) Text() string {
	if n.Body == "" {
		return n.Title
	}
	return n.Title + " " + n.Body
}

// SentimentLabel is the discrete classification of a sentiment total.
type SentimentLabel string

const (
	SentimentBullish SentimentLabel = "BULLISH"
	SentimentBearish SentimentLabel = "BEARISH"
	SentimentNeutral SentimentLabel = "NEUTRAL"
)

// Driver is one scored news item ranked among the top contributors.
type Driver struct {
	Score  float64
	Title  string
	Source string
}

// SentimentScore is the aggregate over a batch of news items.
type SentimentScore struct {
	Total      float64
	Label      SentimentLabel
	TopMatches []Driver
	Items      int
}
