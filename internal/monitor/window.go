package monitor

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rewired-gh/voltwatch/internal/models"
)

var (
	ErrUnknownInstrument = errors.New("unknown instrument")
	ErrOutOfOrder        = errors.New("sample older than latest observation")
)

// Window holds the samples of one instrument inside a trailing horizon, oldest first.
type Window struct {
	horizon time.Duration
	samples []models.PriceSample
}

func NewWindow(horizon time.Duration) *Window {
	return &Window{horizon: horizon}
}

// Observe appends s and evicts every sample older than s.Timestamp minus the horizon.
// A sample older than the latest retained one is rejected and leaves the window untouched.
func (w *Window) Observe(s models.PriceSample) error {
	if n := len(w.samples); n > 0 && s.Timestamp.Before(w.samples[n-1].Timestamp) {
		return ErrOutOfOrder
	}
	w.samples = append(w.samples, s)

	cutoff := s.Timestamp.Add(-w.horizon)
	i := 0
	for i < len(w.samples) && w.samples[i].Timestamp.Before(cutoff) {
		i++
	}
	if i > 0 {
		w.samples = append(w.samples[:0], w.samples[i:]...)
	}
	return nil
}

// Delta is the net move from the oldest retained sample to the latest one.
func (w *Window) Delta() float64 {
	if len(w.samples) == 0 {
		return 0
	}
	return w.samples[len(w.samples)-1].Price - w.samples[0].Price
}

// Latest returns the newest sample.
func (w *Window) Latest() (models.PriceSample, bool) {
	if len(w.samples) == 0 {
		return models.PriceSample{}, false
	}
	return w.samples[len(w.samples)-1], true
}

// Samples returns a copy of the retained samples.
func (w *Window) Samples() []models.PriceSample {
	out := make([]models.PriceSample, len(w.samples))
	copy(out, w.samples)
	return out
}

func (w *Window) Len() int {
	return len(w.samples)
}

// Tracker owns one Window per configured instrument.
type Tracker struct {
	mu      sync.Mutex
	windows map[string]*Window
}

func NewTracker(horizons map[string]time.Duration) *Tracker {
	t := &Tracker{windows: make(map[string]*Window, len(horizons))}
	for name, h := range horizons {
		t.windows[name] = NewWindow(h)
	}
	return t
}

// Observe records a price for instrument and returns the resulting window delta.
func (t *Tracker) Observe(instrument string, price float64, ts time.Time) (float64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	w, ok := t.windows[instrument]
	if !ok {
		return 0, fmt.Errorf("%s: %w", instrument, ErrUnknownInstrument)
	}
	if err := w.Observe(models.PriceSample{Instrument: instrument, Timestamp: ts, Price: price}); err != nil {
		return 0, fmt.Errorf("%s: %w", instrument, err)
	}
	return w.Delta(), nil
}

// Seed restores a previously persisted sample. It is evicted naturally once it falls
// outside the horizon.
func (t *Tracker) Seed(s models.PriceSample) error {
	_, err := t.Observe(s.Instrument, s.Price, s.Timestamp)
	return err
}

// WindowDelta returns the current delta for instrument, 0 when nothing was observed.
func (t *Tracker) WindowDelta(instrument string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if w, ok := t.windows[instrument]; ok {
		return w.Delta()
	}
	return 0
}

// Latest returns the newest sample for instrument.
func (t *Tracker) Latest(instrument string) (models.PriceSample, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if w, ok := t.windows[instrument]; ok {
		return w.Latest()
	}
	return models.PriceSample{}, false
}

// Samples returns a copy of the window for instrument.
func (t *Tracker) Samples(instrument string) []models.PriceSample {
	t.mu.Lock()
	defer t.mu.Unlock()
	if w, ok := t.windows[instrument]; ok {
		return w.Samples()
	}
	return nil
}
