package fundamentals

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"

	"github.com/rewired-gh/voltwatch/internal/logger"
	"github.com/rewired-gh/voltwatch/internal/models"
)

const asOfLayout = "2006-01-02"

// Entry is one ticker of the snapshot file. Failed tickers carry only Error.
type Entry struct {
	Ticker        string   `json:"ticker"`
	AsOf          string   `json:"asof,omitempty"`
	Price         *float64 `json:"price,omitempty"`
	PE            *float64 `json:"pe,omitempty"`
	Margin        *float64 `json:"margin,omitempty"`
	ROE           *float64 `json:"roe,omitempty"`
	RevenueGrowth *float64 `json:"rev_growth,omitempty"`
	EPSGrowth     *float64 `json:"eps_growth,omitempty"`
	DebtToEquity  *float64 `json:"debt_to_equity,omitempty"`
	FCF           *float64 `json:"fcf,omitempty"`
	FCFGrowth     *float64 `json:"fcf_growth,omitempty"`
	FCFMargin     *float64 `json:"fcf_margin,omitempty"`
	Score         *float64 `json:"score,omitempty"`
	Error         string   `json:"error,omitempty"`
}

// Snapshot is the point-in-time fundamentals file.
type Snapshot struct {
	Updated time.Time        `json:"updated"`
	Items   map[string]Entry `json:"items"`
}

// ReadSnapshot loads the snapshot file at path.
func ReadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fundamentals snapshot: %w", err)
	}
	var s Snapshot
	if err := sonic.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode fundamentals snapshot: %w", err)
	}
	if s.Items == nil {
		s.Items = make(map[string]Entry)
	}
	return &s, nil
}

// WriteSnapshot writes s to path through a temporary file and rename.
func WriteSnapshot(path string, s *Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	data, err := sonic.ConfigStd.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode fundamentals snapshot: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write fundamentals snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace fundamentals snapshot: %w", err)
	}
	return nil
}

// Records returns the usable scores keyed by ticker. Failed or out-of-range entries are
// skipped so callers fall back to the neutral score.
func (s *Snapshot) Records() map[string]models.FundamentalsRecord {
	out := make(map[string]models.FundamentalsRecord, len(s.Items))
	for key, e := range s.Items {
		if e.Error != "" || e.Score == nil {
			continue
		}
		ticker := e.Ticker
		if ticker == "" {
			ticker = key
		}

		asOf := s.Updated
		if t, err := time.Parse(asOfLayout, e.AsOf); err == nil {
			asOf = t
		}

		rec := models.FundamentalsRecord{Ticker: ticker, Score: *e.Score, AsOf: asOf}
		if err := rec.Validate(); err != nil {
			logger.Warn("Skipping fundamentals for %s: %v", ticker, err)
			continue
		}
		out[ticker] = rec
	}
	return out
}
