package bias

import (
	"fmt"
	"strings"
	"time"

	"github.com/rewired-gh/voltwatch/internal/models"
)

// MemberInput is one basket constituent with its raw signals.
type MemberInput struct {
	Ticker string
	Inputs Inputs
}

// BasketInput groups constituents into a portfolio proxy.
type BasketInput struct {
	Name    string
	Members []MemberInput
}

// DerivedRule declares value = SourceWeight*bias(Source) + MacroWeight*Macro.
type DerivedRule struct {
	Name         string
	Source       string
	SourceWeight float64
	MacroWeight  float64
	Macro        float64 // already normalized to -1..1
}

// Report is the result of one bias evaluation.
type Report struct {
	AsOf       time.Time
	Members    []models.BiasScore
	Portfolios []models.BiasScore
	Derived    []models.BiasScore
}

// All returns every score in the report in display order.
func (r *Report) All() []models.BiasScore {
	out := make([]models.BiasScore, 0, len(r.Members)+len(r.Portfolios)+len(r.Derived))
	out = append(out, r.Members...)
	out = append(out, r.Portfolios...)
	out = append(out, r.Derived...)
	return out
}

// Build evaluates every basket and derived rule. A derived rule whose source basket is
// unknown is skipped.
func (c *Combiner) Build(baskets []BasketInput, rules []DerivedRule, asOf time.Time) *Report {
	r := &Report{AsOf: asOf}
	portfolio := make(map[string]float64, len(baskets))

	for _, b := range baskets {
		values := make([]float64, 0, len(b.Members))
		for _, m := range b.Members {
			v := c.CombineInputs(m.Inputs)
			values = append(values, v)
			r.Members = append(r.Members, c.Score(m.Ticker, models.ScopeInstrument, v, asOf))
		}
		mean := Mean(values)
		portfolio[b.Name] = mean
		r.Portfolios = append(r.Portfolios, c.Score(b.Name, models.ScopePortfolio, mean, asOf))
	}

	for _, rule := range rules {
		src, ok := portfolio[rule.Source]
		if !ok {
			continue
		}
		v := Derive(src, rule.SourceWeight, rule.Macro, rule.MacroWeight)
		r.Derived = append(r.Derived, c.Score(rule.Name, models.ScopeDerived, v, asOf))
	}
	return r
}

// FormatReport renders the report as a plain text block.
func FormatReport(r *Report) string {
	var b strings.Builder
	b.WriteString("📊 Daily Bias\n")
	b.WriteString(r.AsOf.UTC().Format("2006-01-02 15:04 UTC"))
	b.WriteString("\n")

	for _, s := range r.Portfolios {
		fmt.Fprintf(&b, "\n%s: %s (%+.2f)\n", s.Name, s.Label, s.Value)
	}
	if len(r.Members) > 0 {
		b.WriteString("\nLeaders:\n")
		for _, s := range r.Members {
			fmt.Fprintf(&b, "• %s %+.2f %s\n", s.Name, s.Value, s.Label)
		}
	}
	if len(r.Derived) > 0 {
		b.WriteString("\n")
		for _, s := range r.Derived {
			fmt.Fprintf(&b, "%s: %s (%+.2f)\n", s.Name, s.Label, s.Value)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
