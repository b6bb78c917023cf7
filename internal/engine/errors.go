package engine

import "fmt"

// ConfigError reports an invalid run configuration. It is raised before any
// sweep executes; a run never starts with a malformed configuration.
type ConfigError struct {
	Field  string
	Reason string
}

func (e ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// OutOfRangeError reports a gene, gene-set, category, or sub-index outside
// the bounds fixed at construction.
type OutOfRangeError struct {
	Kind  string
	Index int
	Bound int
}

func (e OutOfRangeError) Error() string {
	return fmt.Sprintf("%s index %d out of range [0,%d)", e.Kind, e.Index, e.Bound)
}

// InvalidPriorError reports a non-positive prior scale hyperparameter.
type InvalidPriorError struct {
	Name  string
	Value float64
}

func (e InvalidPriorError) Error() string {
	return fmt.Sprintf("invalid prior: %s must be positive, got %v", e.Name, e.Value)
}
