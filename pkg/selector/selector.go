// Package selector implements the rule bodies of reference mappings: ordered
// structures that pick a reference file basename from a set of dataset
// parameter values.
package selector

import (
	"errors"
	"fmt"
)

// Selector chooses a terminal value for a conditioned parameter header.
// Implementations are immutable; Insert and Delete return modified copies.
type Selector interface {
	// Choose returns the terminal selection for header, which maps upper
	// case parameter names to conditioned values.
	Choose(header map[string]string) (string, error)

	// ReferenceNames returns the sorted unique terminal file names.
	ReferenceNames() []string

	// ParkeyMap reports the literal values each parameter matches against.
	ParkeyMap() map[string][]string

	// Validate checks every key against the definitive valid values for
	// each parameter, as loaded from validation templates.
	Validate(valid map[string][]string) error

	// Format renders the selector as canonical mapping source text at the
	// given indent level.
	Format(indent int) string

	// Insert returns a copy with terminal inserted under the key derived
	// from header, replacing any existing entry for that key.
	Insert(header map[string]string, terminal string) (Selector, error)

	// Delete returns a copy with all instances of terminal removed and the
	// number of removals.
	Delete(terminal string) (Selector, int)
}

// Registered call names legal in mapping selector bodies.
var registered = map[string]bool{
	"Match":    true,
	"UseAfter": true,
}

// IsRegistered reports whether name is a legal selector call in mapping text.
func IsRegistered(name string) bool {
	return registered[name]
}

// ErrNoMatch indicates no rule applied to the parameter set.
var ErrNoMatch = errors.New("selector: no match found")

// AmbiguityError reports multiple equally ranked match rules with different
// outcomes. Well formed rmaps never produce one.
type AmbiguityError struct {
	Keys []string
}

func (e *AmbiguityError) Error() string {
	return fmt.Sprintf("selector: ambiguous match between rules %v", e.Keys)
}
