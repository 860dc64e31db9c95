// Package parameter resolves loosely specified parameter requests against a
// provider taxonomy.
package parameter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/stationkit/stationkit/internal/taxonomy"
)

var (
	// ErrMalformedSpec marks a spec with an unsupported shape.
	ErrMalformedSpec = errors.New("malformed parameter spec")

	// ErrUnresolvable marks a spec that matches nothing in the taxonomy.
	// Resolve never returns it; it only appears in Rejection values.
	ErrUnresolvable = errors.New("unresolvable parameter")
)

// Spec is a requested parameter: one token for a bare name, two for a
// (parameter, dataset) pair.
type Spec []string

// Name returns a bare parameter spec.
func Name(name string) Spec {
	return Spec{name}
}

// Pair returns a (parameter, dataset) spec.
func Pair(name, dataset string) Spec {
	return Spec{name, dataset}
}

// ParseSpec parses the textual forms "name" and "name:dataset".
func ParseSpec(s string) Spec {
	return Spec(strings.Split(s, ":"))
}

func (s Spec) String() string {
	return strings.Join(s, ":")
}

func (s Spec) tokens() (param, dataset string, err error) {
	switch len(s) {
	case 1:
		return s[0], s[0], nil
	case 2:
		return s[0], s[1], nil
	default:
		return "", "", fmt.Errorf("%w: %d elements in %q", ErrMalformedSpec, len(s), s.String())
	}
}

// Entry is a resolved (parameter, dataset) pair. A whole dataset request has
// both components set to the dataset node.
type Entry struct {
	Parameter taxonomy.Node `json:"parameter"`
	Dataset   taxonomy.Node `json:"dataset"`
}

// IsDataset reports whether the entry requests every parameter of a dataset.
func (e Entry) IsDataset() bool {
	return e.Parameter.IsDataset()
}

func (e Entry) String() string {
	if e.IsDataset() {
		return e.Dataset.Name
	}
	return e.Parameter.Name + ":" + e.Dataset.Name
}

// Rejection records a spec that was dropped during resolution.
type Rejection struct {
	Spec Spec
	Err  error
}

// Result holds the outcome of a detailed resolution.
type Result struct {
	Entries    []Entry
	Rejections []Rejection
}
