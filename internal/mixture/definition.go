// Package mixture defines the structural map from gene-set index to the
// mutation and selection categories it draws codon-specific parameters from.
// Multiple gene-sets may alias one category on either axis, never across axes.
package mixture

import "fmt"

// Layout selects one of the keyword sharing schemes.
type Layout string

const (
	// AllUnique gives every gene-set its own mutation and selection category.
	AllUnique Layout = "allUnique"
	// MutationShared makes all gene-sets share one mutation category while
	// each keeps a unique selection category.
	MutationShared Layout = "mutationShared"
	// SelectionShared makes all gene-sets share one selection category while
	// each keeps a unique mutation category.
	SelectionShared Layout = "selectionShared"
)

// MalformedMatrixError reports an invalid explicit category matrix or keyword.
type MalformedMatrixError struct {
	Reason string
}

func (e MalformedMatrixError) Error() string {
	return fmt.Sprintf("mixture definition: %s", e.Reason)
}

// element is one resolved gene-set row.
type element struct {
	mutation  int // 0-based category index
	selection int
}

// Definition is the resolved dense category table for K gene-sets.
type Definition struct {
	rows          []element
	numMutation   int
	numSelection  int
	mutationSets  [][]int // category -> gene-sets referencing it
	selectionSets [][]int
}

// FromLayout resolves a keyword scheme for k gene-sets.
func FromLayout(k int, layout Layout) (Definition, error) {
	if k < 1 {
		return Definition{}, MalformedMatrixError{Reason: fmt.Sprintf("need at least one gene-set, got %d", k)}
	}
	rows := make([][2]int, k)
	for i := 0; i < k; i++ {
		switch layout {
		case AllUnique:
			rows[i] = [2]int{i + 1, i + 1}
		case MutationShared:
			rows[i] = [2]int{1, i + 1}
		case SelectionShared:
			rows[i] = [2]int{i + 1, 1}
		default:
			return Definition{}, MalformedMatrixError{Reason: fmt.Sprintf("unknown layout %q", layout)}
		}
	}
	return FromMatrix(rows)
}

// FromMatrix resolves an explicit K×2 matrix whose first column is the
// mutation category id and second column the selection category id, both
// 1-based. Ids on each axis must be positive and densely numbered from 1;
// the distinct id count determines how many parameter arrays are allocated.
func FromMatrix(rows [][2]int) (Definition, error) {
	if len(rows) == 0 {
		return Definition{}, MalformedMatrixError{Reason: "empty matrix"}
	}
	def := Definition{rows: make([]element, len(rows))}
	for i, row := range rows {
		if row[0] <= 0 || row[1] <= 0 {
			return Definition{}, MalformedMatrixError{Reason: fmt.Sprintf("row %d has non-positive category id", i+1)}
		}
		def.rows[i] = element{mutation: row[0] - 1, selection: row[1] - 1}
		if row[0] > def.numMutation {
			def.numMutation = row[0]
		}
		if row[1] > def.numSelection {
			def.numSelection = row[1]
		}
	}
	if err := checkDense(def.rows, true, def.numMutation); err != nil {
		return Definition{}, err
	}
	if err := checkDense(def.rows, false, def.numSelection); err != nil {
		return Definition{}, err
	}
	def.mutationSets = make([][]int, def.numMutation)
	def.selectionSets = make([][]int, def.numSelection)
	for set, row := range def.rows {
		def.mutationSets[row.mutation] = append(def.mutationSets[row.mutation], set)
		def.selectionSets[row.selection] = append(def.selectionSets[row.selection], set)
	}
	return def, nil
}

func checkDense(rows []element, mutation bool, count int) error {
	seen := make([]bool, count)
	for _, row := range rows {
		if mutation {
			seen[row.mutation] = true
		} else {
			seen[row.selection] = true
		}
	}
	axis := "selection"
	if mutation {
		axis = "mutation"
	}
	for id, ok := range seen {
		if !ok {
			return MalformedMatrixError{Reason: fmt.Sprintf("%s category ids not dense: id %d unused", axis, id+1)}
		}
	}
	return nil
}

// Sets returns the number of gene-sets K.
func (d Definition) Sets() int { return len(d.rows) }

// MutationCategories returns the number of distinct mutation categories.
func (d Definition) MutationCategories() int { return d.numMutation }

// SelectionCategories returns the number of distinct selection categories.
func (d Definition) SelectionCategories() int { return d.numSelection }

// MutationCategory returns the 0-based mutation category of a gene-set.
func (d Definition) MutationCategory(set int) int { return d.rows[set].mutation }

// SelectionCategory returns the 0-based selection category of a gene-set.
func (d Definition) SelectionCategory(set int) int { return d.rows[set].selection }

// SetsSharingMutation lists the gene-sets aliasing a mutation category.
func (d Definition) SetsSharingMutation(category int) []int { return d.mutationSets[category] }

// SetsSharingSelection lists the gene-sets aliasing a selection category.
func (d Definition) SetsSharingSelection(category int) []int { return d.selectionSets[category] }
