package fundamentals

import (
	"context"
	"errors"
	"time"

	"github.com/rewired-gh/voltwatch/internal/fmp"
	"github.com/rewired-gh/voltwatch/internal/logger"
)

// StatementSource fetches quarterly statements for a ticker.
type StatementSource interface {
	GetStatements(ctx context.Context, ticker string) (*fmp.Statements, error)
}

// Extractor scores every configured ticker and rewrites the snapshot file.
type Extractor struct {
	source  StatementSource
	tickers []string
	path    string
	now     func() time.Time
}

func NewExtractor(source StatementSource, tickers []string, path string) *Extractor {
	return &Extractor{
		source:  source,
		tickers: tickers,
		path:    path,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Run fetches and scores all tickers. A failing ticker is recorded with its error and
// does not abort the run; only a cancelled context or a write failure does.
func (e *Extractor) Run(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{Updated: e.now(), Items: make(map[string]Entry, len(e.tickers))}

	var scored int
	for _, ticker := range e.tickers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		st, err := e.source.GetStatements(ctx, ticker)
		if err != nil {
			msg := err.Error()
			if errors.Is(err, fmp.ErrNoData) {
				msg = "no_data"
			}
			logger.Warn("Fundamentals for %s failed: %v", ticker, err)
			snap.Items[ticker] = Entry{Ticker: ticker, Error: msg}
			continue
		}

		snap.Items[ticker] = entryFor(st)
		scored++
	}

	if err := WriteSnapshot(e.path, snap); err != nil {
		return nil, err
	}
	logger.Info("Fundamentals snapshot written to %s (%d/%d scored)", e.path, scored, len(e.tickers))
	return snap, nil
}

func entryFor(st *fmp.Statements) Entry {
	m := ComputeMetrics(st)
	score := Score(m)

	var asOf string
	if len(st.Income) > 0 {
		asOf = st.Income[0].Date
	}
	return Entry{
		Ticker:        st.Ticker,
		AsOf:          asOf,
		Price:         m.Price,
		PE:            m.PE,
		Margin:        m.Margin,
		ROE:           m.ROE,
		RevenueGrowth: m.RevenueGrowth,
		EPSGrowth:     m.EPSGrowth,
		DebtToEquity:  m.DebtToEquity,
		FCF:           m.FCF,
		FCFGrowth:     m.FCFGrowth,
		FCFMargin:     m.FCFMargin,
		Score:         &score,
	}
}
