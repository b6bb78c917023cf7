package roc

import (
	"math"
	"testing"

	"github.com/acope3/AnaCoDa/pkg/genome"
)

// fixedView is a minimal parameter view for direct likelihood checks.
type fixedView struct {
	phi       float64
	mutation  []float64
	selection []float64
}

func (v fixedView) Phi(int) float64               { return v.phi }
func (v fixedView) Mutation(_, slot int) float64  { return v.mutation[slot] }
func (v fixedView) Selection(_, slot int) float64 { return v.selection[slot] }

func zeroView(phi float64) fixedView {
	return fixedView{
		phi:       phi,
		mutation:  make([]float64, genome.ParamCount()),
		selection: make([]float64, genome.ParamCount()),
	}
}

func mustGene(t *testing.T, seq string) genome.Gene {
	t.Helper()
	g := genome.New()
	if err := g.AddSequence("g", "", seq); err != nil {
		t.Fatalf("add sequence: %v", err)
	}
	return g.Gene(0)
}

func TestUniformParametersGiveUniformCodonChoice(t *testing.T) {
	// Two lysine codons (family size 2): with all parameters zero each codon
	// has probability 1/2, so logL = 2*log(1/2).
	gene := mustGene(t, "AAAAAG")
	m := New()
	got := m.LogLikelihood(gene, 0, 0, 0, zeroView(1))
	want := 2 * math.Log(0.5)
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestMutationBiasShiftsChoice(t *testing.T) {
	// Raising a codon's mutation parameter lowers its weight.
	gene := mustGene(t, "AAA")
	slot := genome.ParamIndex("AAA")
	if slot < 0 {
		t.Fatal("AAA must carry a parameter slot")
	}
	m := New()
	view := zeroView(1)
	base := m.LogLikelihood(gene, 0, 0, 0, view)
	view.mutation[slot] = 2
	penalized := m.LogLikelihood(gene, 0, 0, 0, view)
	if penalized >= base {
		t.Fatalf("expected penalized likelihood below %v, got %v", base, penalized)
	}
}

func TestSelectionScalesWithPhi(t *testing.T) {
	// A positive selection parameter hurts more at higher expression.
	gene := mustGene(t, "AAA")
	slot := genome.ParamIndex("AAA")
	m := New()
	view := zeroView(1)
	view.selection[slot] = 1
	low := m.LogLikelihood(gene, 0, 0, 0, view)
	view.phi = 4
	high := m.LogLikelihood(gene, 0, 0, 0, view)
	if high >= low {
		t.Fatalf("expected stronger penalty at high phi: low=%v high=%v", low, high)
	}
}

func TestNonPositivePhiIsImpossible(t *testing.T) {
	gene := mustGene(t, "AAA")
	m := New()
	for _, phi := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if got := m.LogLikelihood(gene, 0, 0, 0, zeroView(phi)); !math.IsInf(got, -1) {
			t.Fatalf("phi=%v: expected -Inf, got %v", phi, got)
		}
	}
}

func TestDeterministic(t *testing.T) {
	gene := mustGene(t, "ATGGCTGCAAAAAAGCTT")
	m := New()
	view := zeroView(1.7)
	for slot := range view.mutation {
		view.mutation[slot] = 0.01 * float64(slot)
		view.selection[slot] = -0.005 * float64(slot)
	}
	a := m.LogLikelihood(gene, 0, 0, 0, view)
	b := m.LogLikelihood(gene, 0, 0, 0, view)
	if a != b {
		t.Fatalf("likelihood not deterministic: %v vs %v", a, b)
	}
}
