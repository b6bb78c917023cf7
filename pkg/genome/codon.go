package genome

import "sort"

// GeneticCode maps DNA codons to single-letter amino acids. '*' marks a stop.
var GeneticCode = map[string]byte{
	"TTT": 'F', "TTC": 'F',
	"TTA": 'L', "TTG": 'L', "CTT": 'L', "CTC": 'L', "CTA": 'L', "CTG": 'L',
	"ATT": 'I', "ATC": 'I', "ATA": 'I',
	"ATG": 'M',
	"GTT": 'V', "GTC": 'V', "GTA": 'V', "GTG": 'V',
	"TCT": 'S', "TCC": 'S', "TCA": 'S', "TCG": 'S', "AGT": 'S', "AGC": 'S',
	"CCT": 'P', "CCC": 'P', "CCA": 'P', "CCG": 'P',
	"ACT": 'T', "ACC": 'T', "ACA": 'T', "ACG": 'T',
	"GCT": 'A', "GCC": 'A', "GCA": 'A', "GCG": 'A',
	"TAT": 'Y', "TAC": 'Y',
	"TAA": '*', "TAG": '*', "TGA": '*',
	"CAT": 'H', "CAC": 'H',
	"CAA": 'Q', "CAG": 'Q',
	"AAT": 'N', "AAC": 'N',
	"AAA": 'K', "AAG": 'K',
	"GAT": 'D', "GAC": 'D',
	"GAA": 'E', "GAG": 'E',
	"TGT": 'C', "TGC": 'C',
	"TGG": 'W',
	"CGT": 'R', "CGC": 'R', "CGA": 'R', "CGG": 'R', "AGA": 'R', "AGG": 'R',
	"GGT": 'G', "GGC": 'G', "GGA": 'G', "GGG": 'G',
}

// Family groups the synonymous codons of one amino acid. The alphabetically
// last codon of each multi-codon family acts as the reference: it carries no
// codon-specific parameters and anchors the multinomial logit at zero.
type Family struct {
	AminoAcid byte
	Codons    []string // sorted; last entry is the reference
}

var (
	// Codons lists all sense codons in alphabetical order.
	Codons []string

	// Families lists the multi-codon synonymous families ordered by amino acid.
	Families []Family

	codonIndex map[string]int
	paramIndex map[string]int
	paramCount int
)

func init() {
	byAA := make(map[byte][]string)
	for codon, aa := range GeneticCode {
		if aa == '*' {
			continue
		}
		Codons = append(Codons, codon)
		byAA[aa] = append(byAA[aa], codon)
	}
	sort.Strings(Codons)
	codonIndex = make(map[string]int, len(Codons))
	for i, c := range Codons {
		codonIndex[c] = i
	}

	var aas []byte
	for aa, codons := range byAA {
		if len(codons) < 2 {
			continue
		}
		aas = append(aas, aa)
	}
	sort.Slice(aas, func(i, j int) bool { return aas[i] < aas[j] })

	paramIndex = make(map[string]int)
	for _, aa := range aas {
		codons := byAA[aa]
		sort.Strings(codons)
		Families = append(Families, Family{AminoAcid: aa, Codons: codons})
		for _, c := range codons[:len(codons)-1] {
			paramIndex[c] = paramCount
			paramCount++
		}
	}
}

// CodonIndex returns the dense index of a sense codon, or -1 when the codon is
// a stop or not part of the genetic code.
func CodonIndex(codon string) int {
	if i, ok := codonIndex[codon]; ok {
		return i
	}
	return -1
}

// ParamIndex returns the codon-specific parameter slot for a non-reference
// codon, or -1 for reference codons, single-codon amino acids, and stops.
func ParamIndex(codon string) int {
	if i, ok := paramIndex[codon]; ok {
		return i
	}
	return -1
}

// ParamCount reports how many codon-specific parameters one category carries.
func ParamCount() int { return paramCount }

// ParamCodons returns the non-reference codons in parameter-slot order.
func ParamCodons() []string {
	out := make([]string, paramCount)
	for _, fam := range Families {
		for _, c := range fam.Codons[:len(fam.Codons)-1] {
			out[paramIndex[c]] = c
		}
	}
	return out
}
