package engine

import (
	"math"
	"sync"
	"sync/atomic"

	"gonum.org/v1/gonum/stat/distmv"

	"github.com/acope3/AnaCoDa/internal/mixture"
	"github.com/acope3/AnaCoDa/pkg/genome"
	"github.com/acope3/AnaCoDa/pkg/model"
	"golang.org/x/exp/rand"
)

// Scheduler cycles one MCMC iteration through the parameter blocks in a fixed
// order: expression, codon-specific (mutation then selection), hyperparameters,
// mixture assignment. Each block is individually skippable; a skipped block
// keeps its committed values for the whole run.
//
// Per-gene work inside a block runs on a worker pool, but every gene owns its
// random stream and results commit in gene-index order, so the chain is
// identical for any thread count.
type Scheduler struct {
	genome *genome.Genome
	def    mixture.Definition
	ps     *ParameterStore
	ctrl   *ProposalController
	model  model.LikelihoodModel
	cfg    Config

	rng     *rand.Rand   // main stream: codon-specific, hyper, mixture weights
	geneRNG []*rand.Rand // one stream per gene: expression and assignment draws
}

// NewScheduler wires a scheduler over already-validated components.
func NewScheduler(g *genome.Genome, def mixture.Definition, m model.LikelihoodModel, ps *ParameterStore, ctrl *ProposalController, cfg Config) *Scheduler {
	s := &Scheduler{
		genome:  g,
		def:     def,
		ps:      ps,
		ctrl:    ctrl,
		model:   m,
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(cfg.Seed)),
		geneRNG: make([]*rand.Rand, g.Len()),
	}
	for i := range s.geneRNG {
		s.geneRNG[i] = rand.New(rand.NewSource(cfg.Seed + uint64(i) + 1))
	}
	return s
}

// Sweep runs one full Gibbs pass.
func (s *Scheduler) Sweep() {
	if s.cfg.EstimateExpression {
		s.updateExpression()
	}
	if s.cfg.EstimateCSP {
		s.updateCodonSpecific(BlockMutation)
		s.updateCodonSpecific(BlockSelection)
	}
	if s.cfg.EstimateHyper {
		s.updateHyper()
	}
	if s.cfg.EstimateMixture {
		s.updateMixture()
	}
}

// parallelGenes applies fn to every gene index using the configured worker
// pool. fn must only touch gene-local state.
func (s *Scheduler) parallelGenes(fn func(gene int)) {
	n := s.genome.Len()
	workers := s.cfg.Threads
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		for g := 0; g < n; g++ {
			fn(g)
		}
		return
	}
	var cursor int64
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				g := int(atomic.AddInt64(&cursor, 1)) - 1
				if g >= n {
					return
				}
				fn(g)
			}
		}()
	}
	wg.Wait()
}

// updateExpression performs one Metropolis-Hastings step per gene on its
// synthesis rate. Proposals walk in log space; the acceptance ratio carries
// the Jacobian term. Acceptance decisions are computed in parallel (each gene
// consumes only its own stream) and committed serially in gene order.
func (s *Scheduler) updateExpression() {
	n := s.genome.Len()
	type step struct {
		cand     float64
		accepted bool
	}
	steps := make([]step, n)
	s.parallelGenes(func(g int) {
		rng := s.geneRNG[g]
		key := ParamKey{Kind: BlockExpression, Index: g}
		cur := s.ps.phi[g]
		cand := s.ctrl.WalkLog(rng, key, cur)
		set := s.ps.assignment[g]
		mc, sc := s.def.MutationCategory(set), s.def.SelectionCategory(set)
		gene := s.genome.Gene(g)
		base := s.ps.View()
		sphi := s.ps.sphi[set]
		logCur := s.model.LogLikelihood(gene, mc, sc, g, base) +
			s.phiLogPrior(gene, cur, set, sphi, s.ps.sepsilon)
		logCand := s.model.LogLikelihood(gene, mc, sc, g, base.WithPhi(g, cand)) +
			s.phiLogPrior(gene, cand, set, sphi, s.ps.sepsilon)
		logRatio := logCand - logCur + math.Log(cand) - math.Log(cur)
		accepted := !degenerateScore(logCand) && acceptLog(rng, logRatio)
		steps[g] = step{cand: cand, accepted: accepted}
	})
	for g := 0; g < n; g++ {
		key := ParamKey{Kind: BlockExpression, Index: g}
		s.ctrl.RecordOutcome(key, steps[g].accepted)
		if steps[g].accepted {
			s.ps.phi[g] = steps[g].cand
		}
	}
}

// updateCodonSpecific performs one block Metropolis-Hastings step per
// category on the given axis. Every gene assigned to any gene-set aliasing
// the category is scored before the single accept/reject decision, since the
// proposal affects all of them. Per-gene likelihood deltas may be evaluated in
// parallel; they are reduced in gene-index order so the floating-point sum is
// reproducible.
func (s *Scheduler) updateCodonSpecific(kind BlockKind) {
	var cats int
	if kind == BlockMutation {
		cats = s.def.MutationCategories()
	} else {
		cats = s.def.SelectionCategories()
	}
	n := s.genome.Len()
	deltas := make([]float64, n)
	for c := 0; c < cats; c++ {
		key := ParamKey{Kind: kind, Index: c}
		var cur []float64
		if kind == BlockMutation {
			cur = s.ps.mutation[c]
		} else {
			cur = s.ps.selection[c]
		}
		cand := make([]float64, len(cur))
		for i, v := range cur {
			cand[i] = s.ctrl.Walk(s.rng, key, v)
		}
		for g := range deltas {
			deltas[g] = 0
		}
		s.parallelGenes(func(g int) {
			set := s.ps.assignment[g]
			mc, sc := s.def.MutationCategory(set), s.def.SelectionCategory(set)
			if kind == BlockMutation && mc != c {
				return
			}
			if kind == BlockSelection && sc != c {
				return
			}
			gene := s.genome.Gene(g)
			base := s.ps.View()
			var candView View
			if kind == BlockMutation {
				candView = base.WithMutation(c, cand)
			} else {
				candView = base.WithSelection(c, cand)
			}
			candLL := s.model.LogLikelihood(gene, mc, sc, g, candView)
			if degenerateScore(candLL) {
				deltas[g] = math.NaN()
				return
			}
			deltas[g] = candLL - s.model.LogLikelihood(gene, mc, sc, g, base)
		})
		var logRatio float64
		for _, d := range deltas {
			logRatio += d
		}
		accepted := acceptLog(s.rng, logRatio)
		s.ctrl.RecordOutcome(key, accepted)
		if accepted {
			if kind == BlockMutation {
				copy(s.ps.mutation[c], cand)
			} else {
				copy(s.ps.selection[c], cand)
			}
		}
	}
}

// updateHyper walks the prior-scale hyperparameter of every gene-set and,
// unless frozen by configuration, the noise scale of every observation set.
func (s *Scheduler) updateHyper() {
	for set := 0; set < s.def.Sets(); set++ {
		key := ParamKey{Kind: BlockSphi, Index: set}
		cur := s.ps.sphi[set]
		cand := s.ctrl.WalkLog(s.rng, key, cur)
		var logCur, logCand float64
		for g := 0; g < s.genome.Len(); g++ {
			if s.ps.assignment[g] != set {
				continue
			}
			phi := s.ps.phi[g]
			logCur += logNormalLogPdf(phi, -cur*cur/2, cur)
			logCand += logNormalLogPdf(phi, -cand*cand/2, cand)
		}
		logRatio := logCand - logCur + math.Log(cand) - math.Log(cur)
		accepted := acceptLog(s.rng, logRatio)
		s.ctrl.RecordOutcome(key, accepted)
		if accepted {
			s.ps.sphi[set] = cand
		}
	}
	if s.cfg.FixObservationNoise {
		return
	}
	for o := 0; o < s.ps.obsSets; o++ {
		key := ParamKey{Kind: BlockSepsilon, Index: o}
		cur := s.ps.sepsilon[o]
		cand := s.ctrl.WalkLog(s.rng, key, cur)
		var logCur, logCand float64
		for g := 0; g < s.genome.Len(); g++ {
			gene := s.genome.Gene(g)
			if !gene.HasObserved(o) {
				continue
			}
			x := math.Log(gene.Observed[o])
			mu := math.Log(s.ps.phi[g])
			logCur += normalLogPdf(x, mu, cur)
			logCand += normalLogPdf(x, mu, cand)
		}
		logRatio := logCand - logCur + math.Log(cand) - math.Log(cur)
		accepted := acceptLog(s.rng, logRatio)
		s.ctrl.RecordOutcome(key, accepted)
		if accepted {
			s.ps.sepsilon[o] = cand
		}
	}
}

// updateMixture recomputes, for every gene, the posterior membership vector
// over the gene-sets via Bayes' rule, then either stores it alone (soft) or
// additionally commits a categorical draw (hard). The gene-set weights are
// refreshed afterwards: a Dirichlet posterior draw under hard sampling, the
// mean membership vector under soft.
func (s *Scheduler) updateMixture() {
	k := s.def.Sets()
	n := s.genome.Len()
	probs := make([][]float64, n)
	draws := make([]int, n)
	s.parallelGenes(func(g int) {
		rng := s.geneRNG[g]
		gene := s.genome.Gene(g)
		base := s.ps.View()
		logw := make([]float64, k)
		for set := 0; set < k; set++ {
			mc, sc := s.def.MutationCategory(set), s.def.SelectionCategory(set)
			ll := s.model.LogLikelihood(gene, mc, sc, g, base)
			if degenerateScore(ll) {
				logw[set] = math.Inf(-1)
				continue
			}
			lp := s.phiLogPrior(gene, s.ps.phi[g], set, s.ps.sphi[set], s.ps.sepsilon)
			logw[set] = math.Log(s.ps.mixtureProb[set]) + ll + lp
		}
		norm := logSumExp(logw)
		p := make([]float64, k)
		if math.IsInf(norm, -1) {
			for set := range p {
				p[set] = 1 / float64(k)
			}
		} else {
			for set := range p {
				p[set] = math.Exp(logw[set] - norm)
			}
		}
		probs[g] = p
		if s.cfg.MixtureSampling == SampleHard {
			draws[g] = drawCategorical(rng, p)
		}
	})
	for g := 0; g < n; g++ {
		copy(s.ps.assignProb[g], probs[g])
		if s.cfg.MixtureSampling == SampleHard {
			s.ps.assignment[g] = draws[g]
		}
	}
	if s.cfg.MixtureSampling == SampleHard {
		alpha := make([]float64, k)
		for set := range alpha {
			alpha[set] = 1
		}
		for g := 0; g < n; g++ {
			alpha[s.ps.assignment[g]]++
		}
		dir := distmv.NewDirichlet(alpha, s.rng)
		copy(s.ps.mixtureProb, dir.Rand(nil))
		return
	}
	for set := 0; set < k; set++ {
		var sum float64
		for g := 0; g < n; g++ {
			sum += probs[g][set]
		}
		s.ps.mixtureProb[set] = sum / float64(n)
	}
}

func drawCategorical(rng *rand.Rand, p []float64) int {
	u := rng.Float64()
	var cum float64
	for i, pi := range p {
		cum += pi
		if u < cum {
			return i
		}
	}
	return len(p) - 1
}
