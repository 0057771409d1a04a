package models

import (
	"errors"
	"time"
)

// FundamentalsRecord is one ticker entry of the periodically extracted fundamentals snapshot.
type FundamentalsRecord struct {
	Ticker string    `json:"ticker"`
	Score  float64   `json:"score"`
	AsOf   time.Time `json:"as_of"`
	Error  string    `json:"error,omitempty"`
}

// Validate checks fundamentals record constraints.
func (r *FundamentalsRecord) Validate() error {
	if r.Ticker == "" {
		return errors.New("fundamentals ticker must not be empty")
	}
	if r.Score < 0 || r.Score > 100 {
		return errors.New("fundamentals score must be between 0 and 100")
	}
	return nil
}

// BiasScope tells whether a bias belongs to a single instrument or a basket.
type BiasScope string

const (
	ScopeInstrument BiasScope = "instrument"
	ScopePortfolio  BiasScope = "portfolio"
	ScopeDerived    BiasScope = "derived"
)

// BiasLabel is the discrete classification of a composite bias.
type BiasLabel string

const (
	BiasStrongBull BiasLabel = "STRONG BULL"
	BiasMildBull   BiasLabel = "MILD BULL"
	BiasNeutral    BiasLabel = "NEUTRAL"
	BiasMildBear   BiasLabel = "MILD BEAR"
	BiasStrongBear BiasLabel = "STRONG BEAR"
)

// BiasScore is a composite directional score in [-1, 1]. Recomputed on every evaluation.
type BiasScore struct {
	Name  string
	Scope BiasScope
	Value float64
	Label BiasLabel
	AsOf  time.Time
}
