// Package roc implements the ribosome-overhead-cost codon model: within each
// synonymous family, codon choice follows a multinomial logit whose weights
// combine a mutation bias term and a selection term scaled by the gene's
// synthesis rate. The alphabetically last codon of each family is the
// reference and contributes weight exp(0).
package roc

import (
	"math"

	"github.com/acope3/AnaCoDa/pkg/genome"
	"github.com/acope3/AnaCoDa/pkg/model"
)

type famCodon struct {
	codon int // dense codon index into Gene.Counts
	slot  int // parameter slot, -1 for the reference codon
}

var families [][]famCodon

func init() {
	for _, fam := range genome.Families {
		codons := make([]famCodon, len(fam.Codons))
		for i, c := range fam.Codons {
			codons[i] = famCodon{codon: genome.CodonIndex(c), slot: genome.ParamIndex(c)}
		}
		families = append(families, codons)
	}
}

// Model is the stateless ROC likelihood. It satisfies model.LikelihoodModel.
type Model struct{}

// New returns the ROC model.
func New() *Model { return &Model{} }

var _ model.LikelihoodModel = (*Model)(nil)

// LogLikelihood scores one gene's codon counts under the parameter view.
// p(codon i | phi) ∝ exp(-ΔM_i - Δη_i·phi), reference terms zero.
func (*Model) LogLikelihood(gene genome.Gene, mutationCategory, selectionCategory, geneIndex int, view model.ParameterView) float64 {
	phi := view.Phi(geneIndex)
	if phi <= 0 || math.IsNaN(phi) || math.IsInf(phi, 0) {
		return math.Inf(-1)
	}
	var ll float64
	terms := make([]float64, 0, 6)
	for _, fam := range families {
		famCount := 0
		for _, fc := range fam {
			famCount += gene.Counts[fc.codon]
		}
		if famCount == 0 {
			continue
		}
		terms = terms[:0]
		maxTerm := math.Inf(-1)
		for _, fc := range fam {
			t := 0.0
			if fc.slot >= 0 {
				t = -view.Mutation(mutationCategory, fc.slot) -
					view.Selection(selectionCategory, fc.slot)*phi
			}
			terms = append(terms, t)
			if t > maxTerm {
				maxTerm = t
			}
		}
		var z float64
		for _, t := range terms {
			z += math.Exp(t - maxTerm)
		}
		logZ := maxTerm + math.Log(z)
		for i, fc := range fam {
			if n := gene.Counts[fc.codon]; n > 0 {
				ll += float64(n) * (terms[i] - logZ)
			}
		}
	}
	return ll
}
