// Package graph implements the logical-plan layer of the dataflow
// system: an immutable graph of Universes (row-identity tokens),
// Columns (one value per row) and Contexts (one node per logical
// operator). User-facing table operations construct Contexts, Contexts
// construct Columns, and the finished graph is the artifact handed to
// the execution engine's compiler.
//
// The graph's only legal evolution is monotonic growth: new nodes
// reference only already-built nodes, and constructors reject
// universe/context mismatches at build time.
package graph

import (
	"fmt"

	"github.com/google/uuid"
)

// NodeHandle addresses a node within one Plan. Handles increase
// monotonically in construction order and are what diagnostics and the
// dependency graph key on.
type NodeHandle uint64

// Universe is an opaque identity token for a row-set. Two columns are
// aligned (combinable without re-keying) iff they share a Universe.
// Equality is by identity, never by content; universes are never
// mutated after creation.
type Universe struct {
	handle NodeHandle
	id     uuid.UUID
}

// Handle returns the universe's plan handle.
func (u *Universe) Handle() NodeHandle { return u.handle }

// ID returns the universe's diagnostic identifier. Identity comparisons
// must use pointer equality, not this value.
func (u *Universe) ID() uuid.UUID { return u.id }

func (u *Universe) String() string {
	return fmt.Sprintf("universe#%d(%s)", u.handle, u.id.String()[:8])
}
