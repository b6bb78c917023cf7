package testutil

import (
	"strings"
	"testing"

	"github.com/acope3/AnaCoDa/pkg/genome"
)

// testSequences are short coding sequences biased differently per gene so
// mixture and expression updates have signal to work with.
var testSequences = []struct {
	id  string
	seq string
}{
	{"gene01", "ATGGCTGCTGCAAAAAAGCTTCTCGAA"},
	{"gene02", "ATGGCAGCAGCTAAGAAGCTGCTGGAG"},
	{"gene03", "ATGGCTGCAAAAAAACTTCTTGAAGAA"},
	{"gene04", "ATGGCGGCGAAGAAGCTGCTCGAGGAG"},
	{"gene05", "ATGGCTGCTGCTAAAAAGAAACTTGAA"},
	{"gene06", "ATGGCAGCGAAAAAGCTGCTTGAGGAA"},
}

// SmallGenome builds a deterministic six-gene genome.
func SmallGenome(t testing.TB) *genome.Genome {
	t.Helper()
	g := genome.New()
	for _, s := range testSequences {
		if err := g.AddSequence(s.id, "", s.seq); err != nil {
			t.Fatalf("add %s: %v", s.id, err)
		}
	}
	return g
}

// ObservedGenome builds SmallGenome with two empirical observation sets; one
// value is missing to exercise NaN handling.
func ObservedGenome(t testing.TB) *genome.Genome {
	t.Helper()
	g := SmallGenome(t)
	table := strings.Join([]string{
		"gene,rna,ribo",
		"gene01,1.2,0.9",
		"gene02,0.8,1.1",
		"gene03,2.1,NA",
		"gene04,0.5,0.6",
		"gene05,1.4,1.3",
		"gene06,0.9,1.0",
	}, "\n") + "\n"
	if err := g.AttachExpression(strings.NewReader(table)); err != nil {
		t.Fatalf("attach expression: %v", err)
	}
	return g
}
