package graph

import (
	"errors"
	"fmt"

	"github.com/tidelake-labs/flowplan/pkg/dtype"
)

// Sentinel errors for build-time invariant violations. These indicate a
// defect in the layer constructing the graph, not user-correctable
// input: callers should abort plan construction rather than continue
// with a partially-built graph.
var (
	ErrUniverseMismatch   = errors.New("columns belong to different universes")
	ErrContextMismatch    = errors.New("columns belong to different contexts")
	ErrEmptyUniverseList  = errors.New("universe list must not be empty")
	ErrLineageAlreadySet  = errors.New("column lineage already set")
	ErrCannotDereference  = errors.New("expression column cannot be dereferenced")
	ErrUnknownColumn      = errors.New("unknown column")
	ErrNotContextColumn   = errors.New("column does not carry a context")
	ErrLineageUnavailable = errors.New("column has no lineage")
)

// TypeError reports a type mismatch found while inferring an
// expression's dtype. Recoverable: the caller may pick different
// operands.
type TypeError struct {
	Message string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("type error: %s", e.Message)
}

// FlattenTypeError reports an attempt to flatten a column whose dtype
// has no element interpretation. It names the offending expression and
// its resolved dtype.
type FlattenTypeError struct {
	Expression Expression
	DType      dtype.DType
}

func (e *FlattenTypeError) Error() string {
	return fmt.Sprintf("cannot flatten column %s of type %s", describeExpr(e.Expression), e.DType)
}
