package engine

import (
	"math"

	"golang.org/x/exp/rand"
)

// BlockKind identifies one Gibbs parameter-block family.
type BlockKind int

const (
	BlockExpression BlockKind = iota
	BlockMutation
	BlockSelection
	BlockSphi
	BlockSepsilon
	numBlockKinds
)

func (k BlockKind) String() string {
	switch k {
	case BlockExpression:
		return "expression"
	case BlockMutation:
		return "mutation"
	case BlockSelection:
		return "selection"
	case BlockSphi:
		return "sphi"
	case BlockSepsilon:
		return "sepsilon"
	}
	return "unknown"
}

// ParamKey addresses one proposal walker: a gene for expression, a category
// for codon-specific blocks, a gene-set or observation set for hyperparameters.
type ParamKey struct {
	Kind  BlockKind
	Index int
}

// Adaptation constants: acceptance above the band widens the walker, below
// narrows it. The band brackets the 0.44 scalar random-walk optimum.
const (
	acceptTargetLow  = 0.39
	acceptTargetHigh = 0.49
	widenFactor      = 1.2
	narrowFactor     = 0.8
)

type walker struct {
	width    float64
	accepted int
	attempts int
}

// ProposalController maintains one adaptive random-walk proposal width per
// scalar parameter (per category block for the codon-specific vectors) and a
// rolling acceptance counter for each.
//
// It is a two-state machine: Adapting until Freeze is called once, Frozen for
// the rest of the run. A frozen controller never changes a width again, which
// keeps the post-adaptive chain time-homogeneous.
//
// All walkers are allocated up front so proposal draws from the per-gene
// worker pool read the width map without synchronization; counters are only
// written from the scheduler's serial commit loop, and Adapt runs strictly
// between sweeps.
type ProposalController struct {
	walkers map[ParamKey]*walker
	frozen  bool
}

// NewProposalController allocates walkers for every scalar parameter the run
// can propose.
func NewProposalController(genes, mutationCats, selectionCats, sets, obsSets int, initialWidth float64) *ProposalController {
	c := &ProposalController{walkers: make(map[ParamKey]*walker)}
	add := func(kind BlockKind, n int) {
		for i := 0; i < n; i++ {
			c.walkers[ParamKey{Kind: kind, Index: i}] = &walker{width: initialWidth}
		}
	}
	add(BlockExpression, genes)
	add(BlockMutation, mutationCats)
	add(BlockSelection, selectionCats)
	add(BlockSphi, sets)
	add(BlockSepsilon, obsSets)
	return c
}

// Width returns the current proposal width of a walker.
func (c *ProposalController) Width(key ParamKey) float64 {
	return c.walkers[key].width
}

// Walk draws a symmetric random-walk candidate centered at current.
func (c *ProposalController) Walk(rng *rand.Rand, key ParamKey, current float64) float64 {
	return current + rng.NormFloat64()*c.walkers[key].width
}

// WalkLog draws a candidate for a strictly positive parameter by walking in
// log space, which respects the support; the acceptance ratio must carry the
// log(candidate/current) Jacobian term.
func (c *ProposalController) WalkLog(rng *rand.Rand, key ParamKey, current float64) float64 {
	return current * math.Exp(rng.NormFloat64()*c.walkers[key].width)
}

// RecordOutcome updates a walker's rolling acceptance counter.
func (c *ProposalController) RecordOutcome(key ParamKey, accepted bool) {
	w := c.walkers[key]
	w.attempts++
	if accepted {
		w.accepted++
	}
}

// Adapt rescales every walker's width toward the target acceptance band and
// resets the counters. It is a no-op once the controller is frozen.
func (c *ProposalController) Adapt() {
	if c.frozen {
		return
	}
	for _, w := range c.walkers {
		if w.attempts == 0 {
			continue
		}
		rate := float64(w.accepted) / float64(w.attempts)
		if rate > acceptTargetHigh {
			w.width *= widenFactor
		} else if rate < acceptTargetLow {
			w.width *= narrowFactor
		}
		w.accepted = 0
		w.attempts = 0
	}
}

// Freeze ends the adaptive phase; widths stay fixed afterwards.
func (c *ProposalController) Freeze() { c.frozen = true }

// Frozen reports whether the adaptive phase has ended.
func (c *ProposalController) Frozen() bool { return c.frozen }

// Rates aggregates the acceptance fraction per block since the last Adapt.
func (c *ProposalController) Rates() map[BlockKind]float64 {
	accepted := make([]int, numBlockKinds)
	attempts := make([]int, numBlockKinds)
	for key, w := range c.walkers {
		accepted[key.Kind] += w.accepted
		attempts[key.Kind] += w.attempts
	}
	out := make(map[BlockKind]float64, numBlockKinds)
	for kind := BlockKind(0); kind < numBlockKinds; kind++ {
		if attempts[kind] > 0 {
			out[kind] = float64(accepted[kind]) / float64(attempts[kind])
		}
	}
	return out
}
