package engine

import (
	"github.com/acope3/AnaCoDa/internal/mixture"
	"github.com/acope3/AnaCoDa/pkg/genome"
)

// ParameterStore holds the mutable hierarchical parameter state: gene-specific
// synthesis rates, codon-specific values partitioned by mutation/selection
// category, hyperparameters, the per-gene mixture assignment, and the trace.
//
// Codon-specific storage is keyed by category, so a committed category update
// is visible to every gene-set aliasing that category in the same iteration.
type ParameterStore struct {
	def     mixture.Definition
	genes   int
	obsSets int
	slots   int

	phi       []float64
	mutation  [][]float64 // [category][slot]
	selection [][]float64
	sphi      []float64 // per gene-set
	sepsilon  []float64 // per observation set

	assignment  []int       // 0-based gene-set per gene
	assignProb  [][]float64 // per-gene posterior over gene-sets
	mixtureProb []float64   // gene-set weights

	trace *Trace
}

// NewParameterStore allocates state from the genome, mixture definition, and
// normalized configuration. Synthesis rates start at 1 so the structural
// prior mean E[phi]=1 holds from the first sweep; codon-specific values start
// at 0 (the reference anchoring of the multinomial logit).
func NewParameterStore(g *genome.Genome, def mixture.Definition, cfg Config) (*ParameterStore, error) {
	for i, s := range cfg.Sphi {
		if s <= 0 {
			return nil, InvalidPriorError{Name: "sphi", Value: cfg.Sphi[i]}
		}
	}
	for i, s := range cfg.Sepsilon {
		if s <= 0 {
			return nil, InvalidPriorError{Name: "sepsilon", Value: cfg.Sepsilon[i]}
		}
	}
	ps := &ParameterStore{
		def:         def,
		genes:       g.Len(),
		obsSets:     g.ObservationSets(),
		slots:       genome.ParamCount(),
		phi:         make([]float64, g.Len()),
		mutation:    make([][]float64, def.MutationCategories()),
		selection:   make([][]float64, def.SelectionCategories()),
		sphi:        append([]float64(nil), cfg.Sphi...),
		sepsilon:    append([]float64(nil), cfg.Sepsilon...),
		assignment:  make([]int, g.Len()),
		assignProb:  make([][]float64, g.Len()),
		mixtureProb: make([]float64, def.Sets()),
		trace:       &Trace{},
	}
	for i := range ps.phi {
		ps.phi[i] = 1
	}
	for c := range ps.mutation {
		ps.mutation[c] = make([]float64, ps.slots)
	}
	for c := range ps.selection {
		ps.selection[c] = make([]float64, ps.slots)
	}
	for gene, set := range cfg.GeneAssignment {
		ps.assignment[gene] = set - 1
		prob := make([]float64, def.Sets())
		prob[set-1] = 1
		ps.assignProb[gene] = prob
	}
	for k := range ps.mixtureProb {
		ps.mixtureProb[k] = 1 / float64(def.Sets())
	}
	return ps, nil
}

// Definition returns the mixture definition the store was built against.
func (ps *ParameterStore) Definition() mixture.Definition { return ps.def }

// Genes returns the gene count.
func (ps *ParameterStore) Genes() int { return ps.genes }

// Phi returns the synthesis rate of a gene. Keyed reads on the store index
// directly and panic on an out-of-range key, like a slice access; keyed
// writes validate and return OutOfRangeError instead.
func (ps *ParameterStore) Phi(gene int) float64 { return ps.phi[gene] }

// SetPhi commits a synthesis-rate value.
func (ps *ParameterStore) SetPhi(gene int, value float64) error {
	if gene < 0 || gene >= ps.genes {
		return OutOfRangeError{Kind: "gene", Index: gene, Bound: ps.genes}
	}
	ps.phi[gene] = value
	return nil
}

// Mutation returns the codon-specific mutation vector of a category, panicking
// when the category is out of range. The returned slice is live state; callers
// must not retain it across commits.
func (ps *ParameterStore) Mutation(category int) []float64 { return ps.mutation[category] }

// Selection returns the codon-specific selection vector of a category,
// panicking when the category is out of range.
func (ps *ParameterStore) Selection(category int) []float64 { return ps.selection[category] }

// SetMutation commits a full mutation-category vector. Every gene-set aliasing
// the category observes the update atomically.
func (ps *ParameterStore) SetMutation(category int, values []float64) error {
	if category < 0 || category >= len(ps.mutation) {
		return OutOfRangeError{Kind: "mutation category", Index: category, Bound: len(ps.mutation)}
	}
	if len(values) != ps.slots {
		return OutOfRangeError{Kind: "mutation slot", Index: len(values), Bound: ps.slots}
	}
	copy(ps.mutation[category], values)
	return nil
}

// SetSelection commits a full selection-category vector.
func (ps *ParameterStore) SetSelection(category int, values []float64) error {
	if category < 0 || category >= len(ps.selection) {
		return OutOfRangeError{Kind: "selection category", Index: category, Bound: len(ps.selection)}
	}
	if len(values) != ps.slots {
		return OutOfRangeError{Kind: "selection slot", Index: len(values), Bound: ps.slots}
	}
	copy(ps.selection[category], values)
	return nil
}

// Sphi returns the prior-scale hyperparameter of a gene-set, panicking when
// the set is out of range.
func (ps *ParameterStore) Sphi(set int) float64 { return ps.sphi[set] }

// Mphi returns the lognormal prior mean for a gene-set, derived as -sphi^2/2
// so that E[phi]=1 holds structurally; it is never set independently.
func (ps *ParameterStore) Mphi(set int) float64 {
	s := ps.sphi[set]
	return -s * s / 2
}

// SetSphi commits a prior-scale value.
func (ps *ParameterStore) SetSphi(set int, value float64) error {
	if set < 0 || set >= len(ps.sphi) {
		return OutOfRangeError{Kind: "gene-set", Index: set, Bound: len(ps.sphi)}
	}
	if value <= 0 {
		return InvalidPriorError{Name: "sphi", Value: value}
	}
	ps.sphi[set] = value
	return nil
}

// Sepsilon returns the noise scale of an observation set, panicking when the
// set is out of range.
func (ps *ParameterStore) Sepsilon(obsSet int) float64 { return ps.sepsilon[obsSet] }

// ObservationSets returns the number of noise-scale hyperparameters.
func (ps *ParameterStore) ObservationSets() int { return ps.obsSets }

// SetSepsilon commits an observation-noise scale.
func (ps *ParameterStore) SetSepsilon(obsSet int, value float64) error {
	if obsSet < 0 || obsSet >= len(ps.sepsilon) {
		return OutOfRangeError{Kind: "observation set", Index: obsSet, Bound: len(ps.sepsilon)}
	}
	if value <= 0 {
		return InvalidPriorError{Name: "sepsilon", Value: value}
	}
	ps.sepsilon[obsSet] = value
	return nil
}

// Assignment returns the current hard gene-set of a gene, 0-based.
func (ps *ParameterStore) Assignment(gene int) int { return ps.assignment[gene] }

// SetAssignment commits a hard gene-set draw for a gene.
func (ps *ParameterStore) SetAssignment(gene, set int) error {
	if gene < 0 || gene >= ps.genes {
		return OutOfRangeError{Kind: "gene", Index: gene, Bound: ps.genes}
	}
	if set < 0 || set >= ps.def.Sets() {
		return OutOfRangeError{Kind: "gene-set", Index: set, Bound: ps.def.Sets()}
	}
	ps.assignment[gene] = set
	return nil
}

// AssignmentProbabilities returns a copy of the current posterior membership
// vector of a gene.
func (ps *ParameterStore) AssignmentProbabilities(gene int) []float64 {
	return append([]float64(nil), ps.assignProb[gene]...)
}

// SetAssignmentProbabilities commits a posterior membership vector.
func (ps *ParameterStore) SetAssignmentProbabilities(gene int, prob []float64) error {
	if gene < 0 || gene >= ps.genes {
		return OutOfRangeError{Kind: "gene", Index: gene, Bound: ps.genes}
	}
	if len(prob) != ps.def.Sets() {
		return OutOfRangeError{Kind: "gene-set", Index: len(prob), Bound: ps.def.Sets()}
	}
	copy(ps.assignProb[gene], prob)
	return nil
}

// MixtureProbabilities returns a copy of the current gene-set weights.
func (ps *ParameterStore) MixtureProbabilities() []float64 {
	return append([]float64(nil), ps.mixtureProb...)
}

// SetMixtureProbabilities commits the gene-set weight vector.
func (ps *ParameterStore) SetMixtureProbabilities(prob []float64) error {
	if len(prob) != ps.def.Sets() {
		return OutOfRangeError{Kind: "gene-set", Index: len(prob), Bound: ps.def.Sets()}
	}
	copy(ps.mixtureProb, prob)
	return nil
}

// Trace returns the run's trace.
func (ps *ParameterStore) Trace() *Trace { return ps.trace }

// Snapshot deep-copies the full parameter state, appends it to the trace, and
// returns it.
func (ps *ParameterStore) Snapshot(sweep int) Snapshot {
	snap := Snapshot{
		Sweep:       sweep,
		Phi:         append([]float64(nil), ps.phi...),
		Mutation:    copyMatrix(ps.mutation),
		Selection:   copyMatrix(ps.selection),
		Sphi:        append([]float64(nil), ps.sphi...),
		Sepsilon:    append([]float64(nil), ps.sepsilon...),
		Assignment:  append([]int(nil), ps.assignment...),
		AssignProb:  copyMatrix(ps.assignProb),
		MixtureProb: append([]float64(nil), ps.mixtureProb...),
	}
	ps.trace.append(snap)
	return snap
}

func copyMatrix(m [][]float64) [][]float64 {
	out := make([][]float64, len(m))
	for i, row := range m {
		out[i] = append([]float64(nil), row...)
	}
	return out
}

// View returns a read-only window over the committed state, satisfying the
// model.ParameterView capability.
func (ps *ParameterStore) View() View {
	return View{ps: ps, phiGene: -1, mutCat: -1, selCat: -1}
}

// View overlays at most one proposed value family on top of the committed
// state, so a Metropolis-Hastings step can score a candidate without
// committing it.
type View struct {
	ps      *ParameterStore
	phiGene int
	phiVal  float64
	mutCat  int
	mutVals []float64
	selCat  int
	selVals []float64
}

// WithPhi returns a view where one gene's synthesis rate is replaced.
func (v View) WithPhi(gene int, value float64) View {
	v.phiGene, v.phiVal = gene, value
	return v
}

// WithMutation returns a view where one mutation category is replaced.
func (v View) WithMutation(category int, values []float64) View {
	v.mutCat, v.mutVals = category, values
	return v
}

// WithSelection returns a view where one selection category is replaced.
func (v View) WithSelection(category int, values []float64) View {
	v.selCat, v.selVals = category, values
	return v
}

// Phi implements model.ParameterView.
func (v View) Phi(gene int) float64 {
	if gene == v.phiGene {
		return v.phiVal
	}
	return v.ps.phi[gene]
}

// Mutation implements model.ParameterView.
func (v View) Mutation(category, slot int) float64 {
	if category == v.mutCat {
		return v.mutVals[slot]
	}
	return v.ps.mutation[category][slot]
}

// Selection implements model.ParameterView.
func (v View) Selection(category, slot int) float64 {
	if category == v.selCat {
		return v.selVals[slot]
	}
	return v.ps.selection[category][slot]
}
