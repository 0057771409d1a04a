// Package models defines the core domain entities: price samples, spike events, news, and bias scores.
package models

import (
	"errors"
	"time"
)

// Quote is a single latest observation from the market-data provider.
type Quote struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	ChangePct     float64   `json:"change_pct"`
	PreviousClose float64   `json:"previous_close"`
	ObservedAt    time.Time `json:"observed_at"`
}

// Validate checks quote field constraints.
func (q *Quote) Validate() error {
	if q.Symbol == "" {
		return errors.New("quote symbol must not be empty")
	}
	if q.Price <= 0 {
		return errors.New("quote price must be positive")
	}
	if q.PreviousClose < 0 {
		return errors.New("previous close must not be negative")
	}
	return nil
}

// PriceSample is one polled price for an instrument. Immutable once created.
type PriceSample struct {
	Instrument string
	Timestamp  time.Time
	Price      float64
}

// MinuteBar is one 1-minute close. Sequences are ordered oldest to newest.
type MinuteBar struct {
	Instrument string    `json:"instrument"`
	Close      float64   `json:"close"`
	Timestamp  time.Time `json:"timestamp"`
}

// Direction of a windowed move.
type Direction string

const (
	DirectionUp   Direction = "UP"
	DirectionDown Direction = "DOWN"
)

// SpikeEvent is emitted once per qualifying move and never mutated afterwards.
type SpikeEvent struct {
	ID               string
	Instrument       string
	WindowStartPrice float64
	CurrentPrice     float64
	Delta            float64
	Direction        Direction
	DetectedAt       time.Time
}

// AlertState is the anti-spam memory for one instrument.
// A nil LastAlertPrice / zero LastAlertTime means no alert was emitted yet.
type AlertState struct {
	LastAlertPrice *float64
	LastAlertTime  time.Time
}

// HasAlerted reports whether an event was ever emitted for this state.
func (s AlertState) HasAlerted() bool {
	return !s.LastAlertTime.IsZero()
}

// RangeEstimate is the realized-range (ATR-style) estimate used to size a take-profit target.
type RangeEstimate struct {
	Instrument string
	ATR        float64
	TakeProfit float64
	Unit       string
}
