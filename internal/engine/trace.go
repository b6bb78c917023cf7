package engine

import "sync"

// Snapshot is one deep-copied record of every parameter block, taken once per
// thinning interval.
type Snapshot struct {
	Sweep       int           `json:"sweep"`
	Phi         []float64     `json:"phi"`
	Mutation    [][]float64   `json:"mutation"`
	Selection   [][]float64   `json:"selection"`
	Sphi        []float64     `json:"sphi"`
	Sepsilon    []float64     `json:"sepsilon"`
	Assignment  []int         `json:"assignment"`
	AssignProb  [][]float64   `json:"assignment_probabilities"`
	MixtureProb []float64     `json:"mixture_probabilities"`
}

// Trace is the ordered, append-only sequence of snapshots. It is the only
// artifact that survives a run; reporting collaborators read it after the run
// completes or incrementally.
type Trace struct {
	mu        sync.RWMutex
	snapshots []Snapshot
}

func (t *Trace) append(s Snapshot) {
	t.mu.Lock()
	t.snapshots = append(t.snapshots, s)
	t.mu.Unlock()
}

// Len reports the number of recorded snapshots.
func (t *Trace) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.snapshots)
}

// At returns the i-th snapshot.
func (t *Trace) At(i int) Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshots[i]
}

// PhiTrace returns the recorded synthesis-rate series of one gene.
func (t *Trace) PhiTrace(gene int) []float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]float64, len(t.snapshots))
	for i, s := range t.snapshots {
		out[i] = s.Phi[gene]
	}
	return out
}

// MutationTrace returns the recorded series of one mutation parameter.
func (t *Trace) MutationTrace(category, slot int) []float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]float64, len(t.snapshots))
	for i, s := range t.snapshots {
		out[i] = s.Mutation[category][slot]
	}
	return out
}

// SelectionTrace returns the recorded series of one selection parameter.
func (t *Trace) SelectionTrace(category, slot int) []float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]float64, len(t.snapshots))
	for i, s := range t.snapshots {
		out[i] = s.Selection[category][slot]
	}
	return out
}

// SphiTrace returns the recorded series of one gene-set's prior scale.
func (t *Trace) SphiTrace(set int) []float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]float64, len(t.snapshots))
	for i, s := range t.snapshots {
		out[i] = s.Sphi[set]
	}
	return out
}

// SepsilonTrace returns the recorded series of one observation set's noise
// scale.
func (t *Trace) SepsilonTrace(obsSet int) []float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]float64, len(t.snapshots))
	for i, s := range t.snapshots {
		out[i] = s.Sepsilon[obsSet]
	}
	return out
}

// MembershipPosterior averages the recorded membership vectors of one gene.
func (t *Trace) MembershipPosterior(gene int) []float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.snapshots) == 0 {
		return nil
	}
	out := make([]float64, len(t.snapshots[0].AssignProb[gene]))
	for _, s := range t.snapshots {
		for k, p := range s.AssignProb[gene] {
			out[k] += p
		}
	}
	for k := range out {
		out[k] /= float64(len(t.snapshots))
	}
	return out
}
