// Package fundamentals computes ratio-based fundamentals scores and maintains the snapshot
// file read by the bias job.
package fundamentals

import (
	"math"

	"github.com/rewired-gh/voltwatch/internal/fmp"
)

// Metrics are the ratios derived from the latest two quarters. Nil means not computable.
type Metrics struct {
	Price         *float64
	PE            *float64
	Margin        *float64
	ROE           *float64
	RevenueGrowth *float64
	EPSGrowth     *float64
	DebtToEquity  *float64
	FCF           *float64
	FCFGrowth     *float64
	FCFMargin     *float64
}

// ComputeMetrics derives ratios from statements ordered newest first.
func ComputeMetrics(st *fmp.Statements) Metrics {
	var m Metrics
	m.Price = st.Quote.Price
	m.PE = st.Quote.PE

	var cur, prev fmp.IncomeStatement
	if len(st.Income) > 0 {
		cur = st.Income[0]
	}
	if len(st.Income) > 1 {
		prev = st.Income[1]
	}
	var bal fmp.BalanceSheet
	if len(st.Balance) > 0 {
		bal = st.Balance[0]
	}
	var cf, cfPrev fmp.CashFlowStatement
	if len(st.CashFlow) > 0 {
		cf = st.CashFlow[0]
	}
	if len(st.CashFlow) > 1 {
		cfPrev = st.CashFlow[1]
	}

	net := valueOr(cur.NetIncome, 0)
	if nonZero(cur.Revenue) {
		m.Margin = ratio(net, *cur.Revenue)
		m.FCFMargin = ratio(valueOr(cf.FreeCashFlow, 0), *cur.Revenue)
	}
	if nonZero(bal.TotalStockholdersEquity) {
		m.ROE = ratio(net, *bal.TotalStockholdersEquity)
		m.DebtToEquity = ratio(valueOr(bal.TotalDebt, 0), *bal.TotalStockholdersEquity)
	}
	if nonZero(cur.Revenue) && nonZero(prev.Revenue) {
		m.RevenueGrowth = growth(*cur.Revenue, *prev.Revenue)
	}
	if cur.EPSDiluted != nil && nonZero(prev.EPSDiluted) {
		m.EPSGrowth = growth(*cur.EPSDiluted, *prev.EPSDiluted)
	}
	m.FCF = cf.FreeCashFlow
	if cf.FreeCashFlow != nil && nonZero(cfPrev.FreeCashFlow) {
		m.FCFGrowth = growth(*cf.FreeCashFlow, *cfPrev.FreeCashFlow)
	}
	return m
}

// Score returns the weighted 0..100 fundamentals score rounded to one decimal.
// A missing ratio counts as 0 before its ramp; leverage and valuation fall back to 0.5.
func Score(m Metrics) float64 {
	s := 0.18*ramp(valueOr(m.Margin, 0), 0.25, 0) +
		0.18*ramp(valueOr(m.ROE, 0), 0.25, 0.05) +
		0.12*ramp(valueOr(m.RevenueGrowth, 0), 0.10, -0.10) +
		0.12*ramp(valueOr(m.EPSGrowth, 0), 0.10, -0.10) +
		0.12*ramp(valueOr(m.FCFGrowth, 0), 0.15, -0.10) +
		0.08*ramp(valueOr(m.FCFMargin, 0), 0.15, 0) +
		0.12*leverageScore(m.DebtToEquity) +
		0.08*valuationScore(m.PE)
	return math.Round(s*1000) / 10
}

// ramp maps x linearly from bad (0) to good (1).
func ramp(x, good, bad float64) float64 {
	switch {
	case x <= bad:
		return 0
	case x >= good:
		return 1
	default:
		return (x - bad) / (good - bad)
	}
}

func leverageScore(de *float64) float64 {
	switch {
	case de == nil:
		return 0.5
	case *de <= 0.5:
		return 1
	case *de >= 2:
		return 0
	default:
		return (2 - *de) / 1.5
	}
}

func valuationScore(pe *float64) float64 {
	switch {
	case pe == nil || *pe <= 0:
		return 0.5
	case *pe <= 20:
		return 1
	case *pe >= 40:
		return 0
	default:
		return (40 - *pe) / 20
	}
}

func ratio(a, b float64) *float64 {
	v := a / b
	return &v
}

func growth(cur, prev float64) *float64 {
	v := (cur - prev) / math.Abs(prev)
	return &v
}

func nonZero(v *float64) bool {
	return v != nil && *v != 0
}

func valueOr(v *float64, d float64) float64 {
	if v == nil || math.IsNaN(*v) {
		return d
	}
	return *v
}
