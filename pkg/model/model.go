// Package model declares the capability surface a codon likelihood model must
// satisfy to run inside the estimation engine. The engine never inspects a
// model's internals; it only consumes returned log-likelihood values when
// forming Metropolis-Hastings acceptance ratios.
package model

import "github.com/acope3/AnaCoDa/pkg/genome"

// ParameterView is a read-only window onto the parameter values a likelihood
// evaluation should use. During a Metropolis-Hastings step the engine hands
// the model an overlay view carrying the proposed value in place of the
// committed one.
type ParameterView interface {
	// Phi returns the synthesis-rate value for a gene index.
	Phi(gene int) float64

	// Mutation returns the codon-specific mutation parameter for a slot
	// (see genome.ParamIndex) under a mutation category.
	Mutation(category, slot int) float64

	// Selection returns the codon-specific selection parameter for a slot
	// under a selection category.
	Selection(category, slot int) float64
}

// LikelihoodModel scores one gene under the parameter values visible through
// the view, given the gene-set it is assigned to. Implementations must be
// deterministic given their inputs. A non-finite return is treated by the
// engine as a probability-zero proposal, never as a fatal error.
type LikelihoodModel interface {
	LogLikelihood(gene genome.Gene, mutationCategory, selectionCategory int, geneIndex int, view ParameterView) float64
}
