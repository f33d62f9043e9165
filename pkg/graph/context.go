package graph

import (
	"fmt"

	"github.com/tidelake-labs/flowplan/internal/helpers"
	"github.com/tidelake-labs/flowplan/internal/trace"
	"github.com/tidelake-labs/flowplan/pkg/dtype"
)

// Context describes the evaluation of one logical operator: the columns
// it materializes itself (internal dependencies), the columns it reads
// but does not own (external dependencies), the universes that must
// exist before its output universe can, and the type-inference policy
// for expressions evaluated within it.
//
// Contexts are immutable nodes; they have no internal transitions. The
// state machine is the graph itself, whose only legal evolution is
// monotonic growth.
type Context interface {
	Handle() NodeHandle
	// Universe is the context's resulting universe.
	Universe() *Universe
	// ColumnDependenciesInternal returns the columns this context
	// materializes itself (grouping keys, join keys). They must all
	// share one universe and one context.
	ColumnDependenciesInternal() []Column
	// ColumnDependenciesExternal returns columns read but owned
	// elsewhere.
	ColumnDependenciesExternal() []Column
	// ReferenceColumnDependencies resolves what a named-column
	// reference points to within this context. Empty by default;
	// update-style contexts resolve against their update maps.
	ReferenceColumnDependencies(ref *ColumnRefExpr) *helpers.StableSet[Column]
	// UniverseDependencies returns the input universes of the
	// operator.
	UniverseDependencies() []*Universe
	// IntermediateTables produces the synthetic tables the engine
	// needs to materialize internal dependencies as concrete tuples.
	IntermediateTables() ([]Table, error)
	// ExpressionType infers the dtype of an expression evaluated
	// within this context.
	ExpressionType(e Expression) (dtype.DType, error)
	// ColumnProperties computes the engine-facing properties of a
	// column owned by this context.
	ColumnProperties(c ContextColumn) (Properties, error)
	Trace() trace.Trace

	interpreter() TypeInterpreter
	plan() *Plan
}

// ColumnDependenciesOf returns a context's combined external and
// internal column dependencies. Set semantics; insertion order is kept
// only for determinism.
func ColumnDependenciesOf(ctx Context) *helpers.StableSet[Column] {
	deps := helpers.NewStableSet[Column](ctx.ColumnDependenciesExternal()...)
	deps.Add(ctx.ColumnDependenciesInternal()...)
	return deps
}

// baseContext carries the state shared by every context variant and
// provides the default behaviors. self points back at the variant so
// shared code sees overridden methods.
type baseContext struct {
	p         *Plan
	self      Context
	handle    NodeHandle
	universe  *Universe
	evaluator PropertiesEvaluator
	trc       trace.Trace
}

func (b *baseContext) Handle() NodeHandle  { return b.handle }
func (b *baseContext) Universe() *Universe { return b.universe }
func (b *baseContext) Trace() trace.Trace  { return b.trc }
func (b *baseContext) plan() *Plan         { return b.p }

func (b *baseContext) ColumnDependenciesInternal() []Column { return nil }
func (b *baseContext) ColumnDependenciesExternal() []Column { return nil }

func (b *baseContext) ReferenceColumnDependencies(*ColumnRefExpr) *helpers.StableSet[Column] {
	return helpers.NewStableSet[Column]()
}

func (b *baseContext) UniverseDependencies() []*Universe { return nil }

func (b *baseContext) interpreter() TypeInterpreter {
	return b.p.interpreter
}

func (b *baseContext) ExpressionType(e Expression) (dtype.DType, error) {
	return b.self.interpreter().EvalExpression(e)
}

func (b *baseContext) ColumnProperties(c ContextColumn) (Properties, error) {
	return b.evaluator.Eval(c)
}

// IntermediateTables materializes the internal dependencies, when any,
// as a single synthetic table. All internal dependencies must be
// context columns sharing exactly one universe and one context; a
// violation is a defect in graph construction, not user input.
func (b *baseContext) IntermediateTables() ([]Table, error) {
	deps := b.self.ColumnDependenciesInternal()
	if len(deps) == 0 {
		return nil, nil
	}
	var universe *Universe
	var ctx Context
	columns := make([]Column, 0, len(deps))
	for _, col := range deps {
		cc, ok := col.(ContextColumn)
		if !ok {
			return nil, fmt.Errorf("internal dependency %v: %w", col.Handle(), ErrNotContextColumn)
		}
		if universe != nil && cc.Universe() != universe {
			return nil, fmt.Errorf("internal dependencies: %w", ErrUniverseMismatch)
		}
		if ctx != nil && cc.Context() != ctx {
			return nil, fmt.Errorf("internal dependencies: %w", ErrContextMismatch)
		}
		universe = cc.Universe()
		ctx = cc.Context()
		columns = append(columns, col)
	}
	table, err := createInternalTable(b.p, columns, universe, ctx)
	if err != nil {
		return nil, err
	}
	return []Table{table}, nil
}

// registerContext wires a freshly constructed variant into the plan.
func (p *Plan) registerContext(ctx Context, base *baseContext, universe *Universe, evaluator PropertiesEvaluator) {
	base.p = p
	base.self = ctx
	base.handle = p.nextHandle()
	base.universe = universe
	base.evaluator = evaluator
	base.trc = trace.Capture(1)
	p.contexts = append(p.contexts, ctx)
}
