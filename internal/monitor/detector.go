package monitor

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rewired-gh/voltwatch/internal/models"
)

// Thresholds are the per-instrument spike and anti-spam settings.
type Thresholds struct {
	Threshold    float64
	RetriggerGap float64
	Cooldown     time.Duration
}

// Phase of the per-instrument alert state machine.
type Phase string

const (
	PhaseIdle     Phase = "IDLE"
	PhaseCooldown Phase = "COOLDOWN"
)

// Evaluate decides whether a window delta produces an event and returns the next state.
// The threshold is inclusive. After an alert, a repeat needs both the cooldown to have
// elapsed and the price to have moved at least RetriggerGap away from the last alert price.
// The input state is never modified.
func Evaluate(state models.AlertState, th Thresholds, instrument string, delta, price float64, now time.Time) (*models.SpikeEvent, models.AlertState) {
	if math.Abs(delta) < th.Threshold {
		return nil, state
	}

	if state.HasAlerted() {
		if !now.After(state.LastAlertTime) {
			return nil, state
		}
		if now.Sub(state.LastAlertTime) < th.Cooldown {
			return nil, state
		}
	}
	if state.LastAlertPrice != nil && math.Abs(price-*state.LastAlertPrice) < th.RetriggerGap {
		return nil, state
	}

	direction := models.DirectionDown
	if delta > 0 {
		direction = models.DirectionUp
	}

	event := &models.SpikeEvent{
		Instrument:       instrument,
		WindowStartPrice: price - delta,
		CurrentPrice:     price,
		Delta:            delta,
		Direction:        direction,
		DetectedAt:       now,
	}

	p := price
	return event, models.AlertState{LastAlertPrice: &p, LastAlertTime: now}
}

// PhaseAt reports the state machine phase at now.
func PhaseAt(state models.AlertState, cooldown time.Duration, now time.Time) Phase {
	if state.HasAlerted() && now.Sub(state.LastAlertTime) < cooldown {
		return PhaseCooldown
	}
	return PhaseIdle
}

// Detector keeps the AlertState of every instrument and applies Evaluate to it.
type Detector struct {
	mu         sync.Mutex
	thresholds map[string]Thresholds
	states     map[string]models.AlertState
}

func NewDetector(thresholds map[string]Thresholds) *Detector {
	return &Detector{
		thresholds: thresholds,
		states:     make(map[string]models.AlertState, len(thresholds)),
	}
}

// Evaluate runs the gate for instrument and records the state on emission.
func (d *Detector) Evaluate(instrument string, delta, price float64, now time.Time) (*models.SpikeEvent, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	th, ok := d.thresholds[instrument]
	if !ok {
		return nil, fmt.Errorf("%s: %w", instrument, ErrUnknownInstrument)
	}

	event, next := Evaluate(d.states[instrument], th, instrument, delta, price, now)
	if event != nil {
		d.states[instrument] = next
	}
	return event, nil
}

// State returns a copy of the alert state for instrument.
func (d *Detector) State(instrument string) models.AlertState {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.states[instrument]
	if s.LastAlertPrice != nil {
		p := *s.LastAlertPrice
		s.LastAlertPrice = &p
	}
	return s
}

func (d *Detector) Phase(instrument string, now time.Time) Phase {
	d.mu.Lock()
	defer d.mu.Unlock()
	return PhaseAt(d.states[instrument], d.thresholds[instrument].Cooldown, now)
}
