package engine

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/acope3/AnaCoDa/internal/mixture"
	"github.com/acope3/AnaCoDa/pkg/genome"
)

// MixtureSampling selects what the mixture-assignment block commits.
type MixtureSampling string

const (
	// SampleHard draws a categorical assignment per gene and commits it, so
	// subsequent codon-specific updates group genes by the fresh draw.
	SampleHard MixtureSampling = "hard"
	// SampleSoft only refreshes the stored posterior membership vector; the
	// hard assignments keep their initial values for the whole run.
	SampleSoft MixtureSampling = "soft"
)

// SnapshotSink receives every recorded trace snapshot as it is taken.
// Implementations live behind this interface so the engine never depends on a
// concrete persistence backend.
type SnapshotSink interface {
	WriteSnapshot(ctx context.Context, snap Snapshot) error
}

// Config carries the full run configuration. The est.* style block toggles
// are explicit fields rather than global state so concurrent runs stay
// reproducible.
type Config struct {
	// Mixtures is the number of gene-sets K. Zero means "derive from the
	// mixture definition"; a non-zero value must agree with it.
	Mixtures int

	// Sphi holds the initial prior-scale hyperparameter per gene-set.
	// A single value is shared across all sets.
	Sphi []float64

	// Sepsilon holds the initial observation-noise scale per empirical
	// observation set. A single value is shared across all sets.
	Sepsilon []float64

	// GeneAssignment maps gene index to initial gene-set, 1-based values in
	// 1..K. Nil defaults to round-robin assignment.
	GeneAssignment []int

	// FixObservationNoise freezes Sepsilon at its initial value.
	FixObservationNoise bool

	// Samples, Thinning, and AdaptiveWidth follow the usual MCMC meaning:
	// Samples*Thinning Gibbs sweeps run in total, one snapshot is recorded
	// every Thinning sweeps, and proposal widths adapt every AdaptiveWidth
	// sweeps while the adaptive phase lasts.
	Samples       int
	Thinning      int
	AdaptiveWidth int

	// AdaptiveSweeps bounds the adaptive phase. Zero defaults to half the
	// total sweep count. Proposal widths freeze once the phase ends.
	AdaptiveSweeps int

	// Block toggles. A disabled block retains its initialized values.
	EstimateExpression bool
	EstimateCSP        bool
	EstimateHyper      bool
	EstimateMixture    bool

	// MixtureSampling selects hard or soft assignment updates (default hard).
	MixtureSampling MixtureSampling

	// Seed drives the master and per-gene random streams. Replaying with the
	// same seed and configuration reproduces the chain bit for bit.
	Seed uint64

	// Threads sizes the per-gene worker pool (default 1).
	Threads int

	// InitialProposalWidth seeds every proposal walker (default 0.1).
	InitialProposalWidth float64

	// Registerer optionally receives the run's prometheus collectors.
	Registerer prometheus.Registerer

	// Sink optionally receives every snapshot as it is recorded.
	Sink SnapshotSink
}

func (c Config) withDefaults(g *genome.Genome, def mixture.Definition) Config {
	totalGenes := g.Len()
	if c.Thinning == 0 {
		c.Thinning = 1
	}
	if c.AdaptiveWidth == 0 {
		c.AdaptiveWidth = 100
	}
	if c.AdaptiveSweeps == 0 {
		c.AdaptiveSweeps = c.Samples * c.Thinning / 2
	}
	if c.MixtureSampling == "" {
		c.MixtureSampling = SampleHard
	}
	if c.Threads < 1 {
		c.Threads = 1
	}
	if c.InitialProposalWidth == 0 {
		c.InitialProposalWidth = 0.1
	}
	if len(c.Sphi) == 0 {
		c.Sphi = []float64{1}
	}
	if len(c.Sepsilon) == 0 {
		c.Sepsilon = []float64{0.1}
	}
	if len(c.Sphi) == 1 && def.Sets() > 1 {
		shared := c.Sphi[0]
		c.Sphi = make([]float64, def.Sets())
		for i := range c.Sphi {
			c.Sphi[i] = shared
		}
	}
	if n := g.ObservationSets(); n > 1 && len(c.Sepsilon) == 1 {
		shared := c.Sepsilon[0]
		c.Sepsilon = make([]float64, n)
		for i := range c.Sepsilon {
			c.Sepsilon[i] = shared
		}
	}
	if c.GeneAssignment == nil {
		c.GeneAssignment = make([]int, totalGenes)
		for i := range c.GeneAssignment {
			c.GeneAssignment[i] = i%def.Sets() + 1
		}
	}
	return c
}

func (c Config) validate(g *genome.Genome, def mixture.Definition) error {
	k := def.Sets()
	if c.Mixtures != 0 && c.Mixtures != k {
		return ConfigError{Field: "num.mixtures", Reason: fmt.Sprintf("%d disagrees with mixture definition (%d sets)", c.Mixtures, k)}
	}
	if c.Samples <= 0 {
		return ConfigError{Field: "samples", Reason: "must be positive"}
	}
	if c.Thinning <= 0 {
		return ConfigError{Field: "thinning", Reason: "must be positive"}
	}
	if c.AdaptiveWidth <= 0 {
		return ConfigError{Field: "adaptive.width", Reason: "must be positive"}
	}
	if len(c.Sphi) != k {
		return ConfigError{Field: "sphi", Reason: fmt.Sprintf("expected 1 or %d values, got %d", k, len(c.Sphi))}
	}
	for i, s := range c.Sphi {
		if s <= 0 {
			return ConfigError{Field: "sphi", Reason: InvalidPriorError{Name: fmt.Sprintf("sphi[%d]", i), Value: s}.Error()}
		}
	}
	if n := g.ObservationSets(); n > 0 {
		if len(c.Sepsilon) != 1 && len(c.Sepsilon) != n {
			return ConfigError{Field: "init.sepsilon", Reason: fmt.Sprintf("expected 1 or %d values, got %d", n, len(c.Sepsilon))}
		}
	}
	for i, s := range c.Sepsilon {
		if s <= 0 {
			return ConfigError{Field: "init.sepsilon", Reason: InvalidPriorError{Name: fmt.Sprintf("sepsilon[%d]", i), Value: s}.Error()}
		}
	}
	if len(c.GeneAssignment) != g.Len() {
		return ConfigError{Field: "geneAssignment", Reason: fmt.Sprintf("expected %d entries, got %d", g.Len(), len(c.GeneAssignment))}
	}
	for i, set := range c.GeneAssignment {
		if set < 1 || set > k {
			return ConfigError{Field: "geneAssignment", Reason: fmt.Sprintf("gene %d assigned to set %d outside 1..%d", i, set, k)}
		}
	}
	if c.MixtureSampling != SampleHard && c.MixtureSampling != SampleSoft {
		return ConfigError{Field: "mixture.sampling", Reason: fmt.Sprintf("unknown mode %q", c.MixtureSampling)}
	}
	return nil
}
