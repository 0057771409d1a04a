// Package bias fuses fundamentals, sentiment and technical signals into a directional score.
package bias

import (
	"math"
	"time"

	"github.com/rewired-gh/voltwatch/internal/models"
)

const (
	// NeutralFundamentals is used when a ticker has no usable fundamentals score.
	NeutralFundamentals = 50.0
	// NeutralSentiment is used when no news sentiment is available.
	NeutralSentiment = 0.0
)

// Weights of the three signals. They are expected to sum to 1.
type Weights struct {
	Fundamentals float64
	Sentiment    float64
	Technical    float64
}

// Labels holds the symmetric label thresholds.
type Labels struct {
	Strong float64
	Mild   float64
}

func DefaultWeights() Weights {
	return Weights{Fundamentals: 0.55, Sentiment: 0.30, Technical: 0.15}
}

func DefaultLabels() Labels {
	return Labels{Strong: 0.40, Mild: 0.20}
}

// Inputs are the raw signals for one ticker. Nil pointers fall back to neutral values.
type Inputs struct {
	Fundamentals *float64 // 0..100
	Sentiment    *float64 // -1..1
	Technical    float64  // -1..1
}

// Combiner computes composite biases. It holds no mutable state.
type Combiner struct {
	weights Weights
	labels  Labels
}

func NewCombiner(w Weights, l Labels) *Combiner {
	return &Combiner{weights: w, labels: l}
}

// NormalizeFundamentals maps a 0..100 score onto -1..1.
func NormalizeFundamentals(f float64) float64 {
	return clamp(f, 0, 100)/50 - 1
}

// Combine returns the weighted composite clamped to [-1, 1].
func (c *Combiner) Combine(fundamentals, sentiment, technical float64) float64 {
	v := c.weights.Fundamentals*NormalizeFundamentals(fundamentals) +
		c.weights.Sentiment*clamp(sentiment, -1, 1) +
		c.weights.Technical*clamp(technical, -1, 1)
	return clamp(v, -1, 1)
}

// CombineInputs applies neutral defaults for missing signals, then combines.
func (c *Combiner) CombineInputs(in Inputs) float64 {
	f := NeutralFundamentals
	if in.Fundamentals != nil && !math.IsNaN(*in.Fundamentals) {
		f = *in.Fundamentals
	}
	s := NeutralSentiment
	if in.Sentiment != nil && !math.IsNaN(*in.Sentiment) {
		s = *in.Sentiment
	}
	return c.Combine(f, s, in.Technical)
}

// Label classifies v. Boundaries are inclusive on the strong side.
func (c *Combiner) Label(v float64) models.BiasLabel {
	switch {
	case v >= c.labels.Strong:
		return models.BiasStrongBull
	case v >= c.labels.Mild:
		return models.BiasMildBull
	case v <= -c.labels.Strong:
		return models.BiasStrongBear
	case v <= -c.labels.Mild:
		return models.BiasMildBear
	default:
		return models.BiasNeutral
	}
}

// Score wraps a value into a labelled BiasScore.
func (c *Combiner) Score(name string, scope models.BiasScope, v float64, asOf time.Time) models.BiasScore {
	return models.BiasScore{
		Name:  name,
		Scope: scope,
		Value: v,
		Label: c.Label(v),
		AsOf:  asOf,
	}
}

// Mean is the unweighted average of values, 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Derive computes a correlated-instrument bias from a source bias and a macro sentiment term.
func Derive(source, sourceWeight, macro, macroWeight float64) float64 {
	return clamp(sourceWeight*source+macroWeight*clamp(macro, -1, 1), -1, 1)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
