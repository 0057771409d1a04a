package monitor

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/rewired-gh/voltwatch/internal/models"
)

const propHorizon = 60 * time.Second

func samplesFrom(gaps []int, prices []float64) []models.PriceSample {
	n := len(gaps)
	if len(prices) < n {
		n = len(prices)
	}
	out := make([]models.PriceSample, n)
	ts := t0
	for i := 0; i < n; i++ {
		ts = ts.Add(time.Duration(gaps[i]) * time.Second)
		out[i] = models.PriceSample{Instrument: "US30", Timestamp: ts, Price: prices[i]}
	}
	return out
}

func TestWindow_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("window holds exactly the samples within the horizon in order", prop.ForAll(
		func(gaps []int, prices []float64) bool {
			samples := samplesFrom(gaps, prices)
			if len(samples) == 0 {
				return true
			}

			w := NewWindow(propHorizon)
			for _, s := range samples {
				if err := w.Observe(s); err != nil {
					return false
				}
			}

			cutoff := samples[len(samples)-1].Timestamp.Add(-propHorizon)
			var want []models.PriceSample
			for _, s := range samples {
				if !s.Timestamp.Before(cutoff) {
					want = append(want, s)
				}
			}

			got := w.Samples()
			if len(got) != len(want) {
				return false
			}
			for i := range got {
				if got[i] != want[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 40)),
		gen.SliceOf(gen.Float64Range(1, 50000)),
	))

	properties.Property("delta ignores samples evicted before the oldest retained one", prop.ForAll(
		func(gaps []int, prices []float64) bool {
			samples := samplesFrom(gaps, prices)
			if len(samples) == 0 {
				return true
			}

			full := NewWindow(propHorizon)
			for _, s := range samples {
				_ = full.Observe(s)
			}

			retained := NewWindow(propHorizon)
			for _, s := range full.Samples() {
				_ = retained.Observe(s)
			}
			return full.Delta() == retained.Delta()
		},
		gen.SliceOf(gen.IntRange(0, 40)),
		gen.SliceOf(gen.Float64Range(1, 50000)),
	))

	properties.TestingRun(t)
}

func TestDetector_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("emitted events respect cooldown and retrigger gap", prop.ForAll(
		func(gaps []int, prices []float64) bool {
			samples := samplesFrom(gaps, prices)
			var state models.AlertState
			var last *models.SpikeEvent

			for i, s := range samples {
				delta := 0.0
				if i > 0 {
					delta = s.Price - samples[i-1].Price
				}
				e, next := Evaluate(state, testThresholds, "US30", delta, s.Price, s.Timestamp)
				state = next
				if e == nil {
					continue
				}
				if last != nil {
					if e.DetectedAt.Sub(last.DetectedAt) < testThresholds.Cooldown {
						return false
					}
					if math.Abs(e.CurrentPrice-last.CurrentPrice) < testThresholds.RetriggerGap {
						return false
					}
				}
				last = e
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 120)),
		gen.SliceOf(gen.Float64Range(0, 200)),
	))

	properties.Property("re-evaluating unchanged inputs never emits twice", prop.ForAll(
		func(delta, price float64) bool {
			_, next := Evaluate(models.AlertState{}, testThresholds, "US30", delta, price, t0)
			again, _ := Evaluate(next, testThresholds, "US30", delta, price, t0)
			return again == nil
		},
		gen.Float64Range(-100, 100),
		gen.Float64Range(1, 1000),
	))

	properties.Property("threshold is inclusive", prop.ForAll(
		func(delta float64) bool {
			e, _ := Evaluate(models.AlertState{}, testThresholds, "US30", delta, 100, t0)
			return (e != nil) == (math.Abs(delta) >= testThresholds.Threshold)
		},
		gen.Float64Range(-60, 60),
	))

	properties.TestingRun(t)
}
