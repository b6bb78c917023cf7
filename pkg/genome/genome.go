// Package genome holds the immutable per-gene observations the estimation
// engine consumes: codon counts derived from coding sequences and optional
// empirical expression measurements with per-column noise terms.
package genome

import (
	"fmt"
	"math"
	"strings"
)

// DataError reports malformed input data discovered at load time.
type DataError struct {
	Gene   string
	Reason string
}

func (e DataError) Error() string {
	if e.Gene == "" {
		return fmt.Sprintf("genome data: %s", e.Reason)
	}
	return fmt.Sprintf("genome data: gene %s: %s", e.Gene, e.Reason)
}

// Gene is one coding sequence reduced to codon counts, plus any observed
// expression values. Immutable after load.
type Gene struct {
	ID          string
	Description string

	// Counts holds occurrences per sense codon, indexed by CodonIndex.
	Counts []int

	// Observed holds one empirical expression value per observation set;
	// NaN marks a missing measurement.
	Observed []float64
}

// HasObserved reports whether the gene carries a measurement for the given
// observation set.
func (g Gene) HasObserved(set int) bool {
	return set < len(g.Observed) && !math.IsNaN(g.Observed[set])
}

// Genome is the read-only store of genes handed to the engine.
type Genome struct {
	genes           []Gene
	byID            map[string]int
	observationSets int
}

// New returns an empty genome.
func New() *Genome {
	return &Genome{byID: make(map[string]int)}
}

// AddSequence codon-counts a coding sequence and appends it as a gene.
// The sequence length must be divisible by three; codons containing
// unrecognized characters and stop codons are ignored.
func (g *Genome) AddSequence(id, description, seq string) error {
	if id == "" {
		return DataError{Reason: "empty gene id"}
	}
	if _, dup := g.byID[id]; dup {
		return DataError{Gene: id, Reason: "duplicate gene id"}
	}
	seq = strings.ToUpper(strings.TrimSpace(seq))
	if len(seq)%3 != 0 {
		return DataError{Gene: id, Reason: fmt.Sprintf("sequence length %d not divisible by three", len(seq))}
	}
	counts := make([]int, len(Codons))
	for i := 0; i+3 <= len(seq); i += 3 {
		if idx := CodonIndex(seq[i : i+3]); idx >= 0 {
			counts[idx]++
		}
	}
	g.byID[id] = len(g.genes)
	g.genes = append(g.genes, Gene{ID: id, Description: description, Counts: counts})
	return nil
}

// Len returns the number of genes.
func (g *Genome) Len() int { return len(g.genes) }

// Gene returns the gene at index i.
func (g *Genome) Gene(i int) Gene { return g.genes[i] }

// Index returns the dense index of a gene id, or -1 when absent.
func (g *Genome) Index(id string) int {
	if i, ok := g.byID[id]; ok {
		return i
	}
	return -1
}

// ObservationSets reports how many independent empirical measurement columns
// were attached; this fixes the number of noise-scale hyperparameters.
func (g *Genome) ObservationSets() int { return g.observationSets }

func (g *Genome) setObserved(geneIdx int, values []float64) {
	g.genes[geneIdx].Observed = values
}
