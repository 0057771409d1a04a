// Package sentiment scores free text against a weighted keyword lexicon.
package sentiment

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Lexicon maps a lower-case phrase to its signed weight.
type Lexicon map[string]float64

// DefaultLexicon returns the built-in macro/earnings phrase table.
func DefaultLexicon() Lexicon {
	return Lexicon{
		// monetary policy
		"rate cut":          1.5,
		"dovish":            1.2,
		"easing":            0.8,
		"stimulus":          0.9,
		"rate hike":         -1.5,
		"hawkish":           -1.2,
		"tightening":        -0.8,
		"higher for longer": -1.0,
		// macro
		"soft landing":      1.0,
		"cooling inflation": 1.0,
		"inflation surge":   -1.2,
		"hot inflation":     -1.1,
		"recession":         -1.3,
		"slowdown":          -0.7,
		"layoffs":           -0.8,
		"strong jobs":       0.7,
		"default":           -1.0,
		"shutdown":          -0.6,
		"tariff":            -0.6,
		"trade deal":        0.8,
		"ceasefire":         0.6,
		"escalation":        -0.9,
		"sanctions":         -0.5,
		// corporate
		"beats estimates":  1.0,
		"beat estimates":   1.0,
		"record revenue":   0.9,
		"raises guidance":  1.1,
		"upgrade":          0.6,
		"buyback":          0.5,
		"misses estimates": -1.0,
		"missed estimates": -1.0,
		"cuts guidance":    -1.1,
		"downgrade":        -0.6,
		"probe":            -0.5,
		"lawsuit":          -0.4,
		"plunge":           -0.8,
		"surge":            0.6,
		"rally":            0.6,
		"selloff":          -0.7,
		"sell-off":         -0.7,
		// risk appetite
		"risk-off":   -0.8,
		"risk-on":    0.8,
		"safe haven": -0.3,

		// deals and policy wording
		"beat earnings": 1.0,
		"miss earnings": -1.0,
		"merger":        1.0,
		"acquisition":   1.0,
		"ai growth":     1.0,
		"cut rates":     1.0,
		"raise rates":   -1.0,
		"guidance cut":  -1.0,
		"investigation": -1.0,
		"conflict":      -1.0,

		// management changes
		"ceo":       0.3,
		"cfo":       0.3,
		"appointed": 0.3,
		"resigns":   -0.3,
	}
}

type lexiconFile struct {
	Phrases map[string]float64 `yaml:"phrases"`
}

// LoadLexicon reads a YAML lexicon file of the form:
//
//	phrases:
//	  rate cut: 1.5
//	  hawkish: -1.2
func LoadLexicon(path string) (Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lexicon: %w", err)
	}

	var f lexiconFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse lexicon: %w", err)
	}
	if len(f.Phrases) == 0 {
		return nil, fmt.Errorf("lexicon %s contains no phrases", path)
	}

	lex := make(Lexicon, len(f.Phrases))
	for phrase, weight := range f.Phrases {
		p := strings.ToLower(strings.TrimSpace(phrase))
		if p == "" {
			return nil, fmt.Errorf("lexicon %s contains an empty phrase", path)
		}
		lex[p] += weight
	}
	return lex, nil
}
