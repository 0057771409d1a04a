package monitor

import (
	"errors"
	"fmt"
	"math"

	"github.com/rewired-gh/voltwatch/internal/models"
)

const (
	// ATRPeriod is the number of bar-to-bar differences averaged.
	ATRPeriod = 14
	// MinBars is the shortest series ATR accepts.
	MinBars = ATRPeriod + 1
)

var ErrInsufficientHistory = errors.New("insufficient minute-bar history")

// ATR returns the mean absolute close-to-close move over the last ATRPeriod differences.
// Bars must be ordered oldest to newest.
func ATR(bars []models.MinuteBar) (float64, error) {
	if len(bars) < MinBars {
		return 0, fmt.Errorf("got %d bars, need %d: %w", len(bars), MinBars, ErrInsufficientHistory)
	}

	recent := bars[len(bars)-MinBars:]
	var sum float64
	for i := 1; i < len(recent); i++ {
		sum += math.Abs(recent[i].Close - recent[i-1].Close)
	}
	return sum / ATRPeriod, nil
}

// EstimateRange sizes a take-profit target as min(atr*multiplier, tpCap).
func EstimateRange(instrument string, bars []models.MinuteBar, multiplier, tpCap float64, unit string) (*models.RangeEstimate, error) {
	atr, err := ATR(bars)
	if err != nil {
		return nil, err
	}
	return &models.RangeEstimate{
		Instrument: instrument,
		ATR:        atr,
		TakeProfit: math.Min(atr*multiplier, tpCap),
		Unit:       unit,
	}, nil
}
