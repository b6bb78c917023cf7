package engine

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Summary condenses one parameter's posterior samples.
type Summary struct {
	Mean   float64
	Median float64
	Q05    float64
	Q95    float64
}

func summarize(samples []float64) Summary {
	if len(samples) == 0 {
		return Summary{}
	}
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)
	return Summary{
		Mean:   stat.Mean(sorted, nil),
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		Q05:    stat.Quantile(0.05, stat.Empirical, sorted, nil),
		Q95:    stat.Quantile(0.95, stat.Empirical, sorted, nil),
	}
}

// PhiSummary summarizes the posterior of one gene's synthesis rate.
func (t *Trace) PhiSummary(gene int) Summary { return summarize(t.PhiTrace(gene)) }

// MutationSummary summarizes one mutation parameter's posterior.
func (t *Trace) MutationSummary(category, slot int) Summary {
	return summarize(t.MutationTrace(category, slot))
}

// SelectionSummary summarizes one selection parameter's posterior.
func (t *Trace) SelectionSummary(category, slot int) Summary {
	return summarize(t.SelectionTrace(category, slot))
}

// SphiSummary summarizes one gene-set's prior-scale posterior.
func (t *Trace) SphiSummary(set int) Summary { return summarize(t.SphiTrace(set)) }

// SepsilonSummary summarizes one observation set's noise-scale posterior.
func (t *Trace) SepsilonSummary(obsSet int) Summary { return summarize(t.SepsilonTrace(obsSet)) }
