package engine

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/acope3/AnaCoDa/pkg/genome"
	"golang.org/x/exp/rand"
)

// logNormalLogPdf evaluates the lognormal prior density log f(x; mu, sigma).
func logNormalLogPdf(x, mu, sigma float64) float64 {
	if x <= 0 || sigma <= 0 {
		return math.Inf(-1)
	}
	return distuv.LogNormal{Mu: mu, Sigma: sigma}.LogProb(x)
}

// normalLogPdf evaluates log f(x; mu, sigma).
func normalLogPdf(x, mu, sigma float64) float64 {
	if sigma <= 0 {
		return math.Inf(-1)
	}
	return distuv.Normal{Mu: mu, Sigma: sigma}.LogProb(x)
}

// phiLogPrior scores a synthesis-rate value under the gene-set's lognormal
// prior (mean fixed at -sphi^2/2) plus the observation-noise terms for every
// empirical measurement the gene carries.
func (s *Scheduler) phiLogPrior(gene genome.Gene, phi float64, set int, sphi float64, sepsilon []float64) float64 {
	lp := logNormalLogPdf(phi, -sphi*sphi/2, sphi)
	for o, x := range gene.Observed {
		if math.IsNaN(x) {
			continue
		}
		lp += normalLogPdf(math.Log(x), math.Log(phi), sepsilon[o])
	}
	return lp
}

// degenerateScore reports a numerically broken model evaluation. -Inf is a
// legitimate zero-probability score; +Inf and NaN are not, and the step that
// produced the candidate must reject it before the coin flip.
func degenerateScore(logScore float64) bool {
	return math.IsNaN(logScore) || math.IsInf(logScore, 1)
}

// acceptLog performs the Metropolis-Hastings coin flip for a log acceptance
// ratio. A NaN ratio is treated as probability zero and consumes no draw.
// Callers screen candidate scores with degenerateScore first, so a +Inf ratio
// can only come from a vanished current state and accepts outright. The
// uniform draw is consumed only when the ratio is below zero.
func acceptLog(rng *rand.Rand, logRatio float64) bool {
	if math.IsNaN(logRatio) {
		return false
	}
	if logRatio >= 0 {
		return true
	}
	return rng.Float64() < math.Exp(logRatio)
}

// logSumExp computes log(sum(exp(x))) stably.
func logSumExp(xs []float64) float64 {
	maxVal := math.Inf(-1)
	for _, x := range xs {
		if x > maxVal {
			maxVal = x
		}
	}
	if math.IsInf(maxVal, -1) {
		return maxVal
	}
	var sum float64
	for _, x := range xs {
		sum += math.Exp(x - maxVal)
	}
	return maxVal + math.Log(sum)
}
