package graph

import (
	"fmt"

	"github.com/tidelake-labs/flowplan/internal/helpers"
	"github.com/tidelake-labs/flowplan/internal/trace"
	"github.com/tidelake-labs/flowplan/pkg/dtype"
)

// Column is a node producing one value per row of its universe, either
// opaque (materialized) or derived from a context plus an expression.
//
// ColumnDependencies returns the single-level set {self} plus the
// columns declared by the column's context and expression; it is NOT
// transitively closed over those dependencies' own dependencies. Graph
// traversal is the consumer's responsibility.
type Column interface {
	Handle() NodeHandle
	Universe() *Universe
	Properties() (Properties, error)
	DType() (dtype.DType, error)
	ColumnDependencies() *helpers.StableSet[Column]
	Trace() trace.Trace
	Lineage() (ColumnLineage, bool)
	SetLineage(ColumnLineage) error
}

// ContextColumn is a column that owns a context: its properties are
// computed by the context's evaluator and its dtype by the context's
// type inference.
type ContextColumn interface {
	Column
	Context() Context
	ContextDType() (dtype.DType, error)
}

// baseColumn carries the state shared by every column variant.
type baseColumn struct {
	handle   NodeHandle
	universe *Universe
	trc      trace.Trace
	lineage  helpers.SetOnce[ColumnLineage]
}

func (c *baseColumn) Handle() NodeHandle  { return c.handle }
func (c *baseColumn) Universe() *Universe { return c.universe }

// SetLineage attaches lineage to the column. Lineage is set-once: a
// second assignment is an error, never a silent overwrite.
func (c *baseColumn) SetLineage(l ColumnLineage) error {
	if err := c.lineage.Set(l); err != nil {
		return fmt.Errorf("set lineage %q: %w", l.Name, ErrLineageAlreadySet)
	}
	return nil
}

func (c *baseColumn) Lineage() (ColumnLineage, bool) {
	return c.lineage.Get()
}

// Trace returns the lineage trace when lineage is attached, otherwise
// the column's own construction trace.
func (c *baseColumn) Trace() trace.Trace {
	if l, ok := c.lineage.Get(); ok && !l.Trace().IsZero() {
		return l.Trace()
	}
	return c.trc
}

// MaterializedColumn is opaque to evaluation: its values arrive
// externally and its properties are supplied at construction.
type MaterializedColumn struct {
	baseColumn
	props Properties
}

// NewMaterializedColumn creates a materialized column in the given
// universe.
func (p *Plan) NewMaterializedColumn(universe *Universe, props Properties) *MaterializedColumn {
	c := &MaterializedColumn{props: props}
	p.registerColumn(c, &c.baseColumn, universe)
	return c
}

func (c *MaterializedColumn) Properties() (Properties, error) { return c.props, nil }

func (c *MaterializedColumn) DType() (dtype.DType, error) { return c.props.DType, nil }

func (c *MaterializedColumn) ColumnDependencies() *helpers.StableSet[Column] {
	return helpers.NewStableSet[Column](c)
}

// ExternalMaterializedColumn marks a materialized column whose values
// are fed from outside the current iteration scope.
type ExternalMaterializedColumn struct {
	MaterializedColumn
}

func (p *Plan) NewExternalMaterializedColumn(universe *Universe, props Properties) *ExternalMaterializedColumn {
	c := &ExternalMaterializedColumn{MaterializedColumn{props: props}}
	p.registerColumn(c, &c.baseColumn, universe)
	return c
}

func (c *ExternalMaterializedColumn) ColumnDependencies() *helpers.StableSet[Column] {
	return helpers.NewStableSet[Column](c)
}

// MethodColumn represents a derived method output of a row
// transformer. Lineage pointing at a MethodColumn reports IsMethod.
type MethodColumn struct {
	MaterializedColumn
}

func (p *Plan) NewMethodColumn(universe *Universe, props Properties) *MethodColumn {
	c := &MethodColumn{MaterializedColumn{props: props}}
	p.registerColumn(c, &c.baseColumn, universe)
	return c
}

func (c *MethodColumn) ColumnDependencies() *helpers.StableSet[Column] {
	return helpers.NewStableSet[Column](c)
}

// columnWithContext is the shared implementation of ContextColumn.
// Properties are computed once through the context's evaluator and
// memoized; graph construction is single-threaded, so no lock guards
// the memo.
type columnWithContext struct {
	baseColumn
	ctx  Context
	self ContextColumn

	propsDone bool
	props     Properties
	propsErr  error
}

func (c *columnWithContext) Context() Context { return c.ctx }

func (c *columnWithContext) Properties() (Properties, error) {
	if !c.propsDone {
		c.props, c.propsErr = c.ctx.ColumnProperties(c.self)
		c.propsDone = true
	}
	return c.props, c.propsErr
}

func (c *columnWithContext) DType() (dtype.DType, error) {
	props, err := c.Properties()
	if err != nil {
		return nil, err
	}
	return props.DType, nil
}

func (c *columnWithContext) ColumnDependencies() *helpers.StableSet[Column] {
	return helpers.NewStableSet[Column](c.self).Union(ColumnDependenciesOf(c.ctx))
}

// IDColumn is the implicit row-identity column of a context. Its dtype
// is always the untagged Pointer.
type IDColumn struct {
	columnWithContext
}

// NewIDColumn creates the identity column of ctx in the context's
// output universe.
func (p *Plan) NewIDColumn(ctx Context) *IDColumn {
	c := &IDColumn{}
	c.ctx = ctx
	c.self = c
	p.registerColumn(c, &c.baseColumn, ctx.Universe())
	return c
}

func (c *IDColumn) ContextDType() (dtype.DType, error) {
	return c.ctx.plan().Registry().Pointer(), nil
}

// ColumnWithExpression holds a context and an expression; its dtype is
// the context's inferred type of that expression, computed lazily.
type ColumnWithExpression struct {
	columnWithContext
	expression Expression
}

// NewColumnWithExpression creates an expression column. lineage may be
// nil.
func (p *Plan) NewColumnWithExpression(ctx Context, universe *Universe, expression Expression, lineage *ColumnLineage) *ColumnWithExpression {
	c := &ColumnWithExpression{expression: expression}
	c.ctx = ctx
	c.self = c
	p.registerColumn(c, &c.baseColumn, universe)
	if lineage != nil {
		// A freshly registered column cannot have lineage yet.
		_ = c.SetLineage(*lineage)
	}
	return c
}

func (c *ColumnWithExpression) Expression() Expression { return c.expression }

// Dereference fails: a pure expression column does not denote another
// column.
func (c *ColumnWithExpression) Dereference() (Column, error) {
	return nil, fmt.Errorf("dereference %s: %w", describeExpr(c.expression), ErrCannotDereference)
}

func (c *ColumnWithExpression) ContextDType() (dtype.DType, error) {
	return c.ctx.ExpressionType(c.expression)
}

func (c *ColumnWithExpression) ColumnDependencies() *helpers.StableSet[Column] {
	return c.columnWithContext.ColumnDependencies().Union(c.expression.ColumnDependencies())
}

// ColumnWithReference is an expression column whose expression is
// itself a reference to another column. It supports follow-through to
// the referenced column and inherits that column's lineage when safe.
type ColumnWithReference struct {
	ColumnWithExpression
	ref *ColumnRefExpr
}

// NewColumnWithReference creates a reference column. When lineage is
// nil, the referenced column's lineage is inherited if it denotes a
// method output or the universes match.
func (p *Plan) NewColumnWithReference(ctx Context, universe *Universe, ref *ColumnRefExpr, lineage *ColumnLineage) *ColumnWithReference {
	c := &ColumnWithReference{ref: ref}
	c.expression = ref
	c.ctx = ctx
	c.self = c
	p.registerColumn(c, &c.baseColumn, universe)
	switch {
	case lineage != nil:
		_ = c.SetLineage(*lineage)
	default:
		if inherited, ok := ref.Column().Lineage(); ok {
			if inherited.IsMethod() || universe == ref.Column().Universe() {
				_ = c.SetLineage(inherited)
			}
		}
	}
	return c
}

// Dereference follows the reference to the column it denotes.
func (c *ColumnWithReference) Dereference() (Column, error) {
	return c.ref.Column(), nil
}

// ReferenceColumnDependencies resolves what the reference points to
// within this column's context (e.g. the update map of an update
// context).
func (c *ColumnWithReference) ReferenceColumnDependencies() *helpers.StableSet[Column] {
	return c.ctx.ReferenceColumnDependencies(c.ref)
}

func (c *ColumnWithReference) ColumnDependencies() *helpers.StableSet[Column] {
	return c.ColumnWithExpression.ColumnDependencies().Union(c.ReferenceColumnDependencies())
}
