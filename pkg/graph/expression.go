package graph

import (
	"fmt"
	"strings"

	"github.com/tidelake-labs/flowplan/internal/helpers"
)

// Expression is the contract an expression node must satisfy for the
// plan layer: it exposes the set of columns it reads. Evaluation
// semantics live outside this layer; only enough structure exists here
// for type inference to walk the tree.
type Expression interface {
	// ColumnDependencies returns the columns referenced anywhere in
	// this expression tree.
	ColumnDependencies() *helpers.StableSet[Column]
}

// InternalRef is the canonical key of a column reference: the table it
// resolves against and the column name there. Usable as a map key.
type InternalRef struct {
	Table Table
	Name  string
}

// ColumnRefExpr is a reference to a named column of a table. It is the
// one expression form that can be dereferenced to a concrete column.
type ColumnRefExpr struct {
	table  Table
	name   string
	column Column
}

// NewColumnRef builds a reference to table.name resolving to column.
func NewColumnRef(table Table, name string, column Column) *ColumnRefExpr {
	return &ColumnRefExpr{table: table, name: name, column: column}
}

// RefToColumn resolves a table column by name and returns a reference
// to it.
func RefToColumn(table Table, name string) (*ColumnRefExpr, error) {
	var column Column
	if name == IDColumnName {
		column = table.IDColumn()
	} else {
		var err error
		column, err = table.Column(name)
		if err != nil {
			return nil, err
		}
	}
	return NewColumnRef(table, name, column), nil
}

func (e *ColumnRefExpr) Table() Table   { return e.table }
func (e *ColumnRefExpr) Name() string   { return e.name }
func (e *ColumnRefExpr) Column() Column { return e.column }

// ToInternal returns the canonical map key for this reference.
func (e *ColumnRefExpr) ToInternal() InternalRef {
	return InternalRef{Table: e.table, Name: e.name}
}

func (e *ColumnRefExpr) ColumnDependencies() *helpers.StableSet[Column] {
	return helpers.NewStableSet(e.column)
}

// LiteralExpr is a constant value.
type LiteralExpr struct {
	Value any
}

func NewLiteral(value any) *LiteralExpr { return &LiteralExpr{Value: value} }

func (e *LiteralExpr) ColumnDependencies() *helpers.StableSet[Column] {
	return helpers.NewStableSet[Column]()
}

// UnaryOp enumerates unary operators.
type UnaryOp int

const (
	OpNeg UnaryOp = iota
	OpNot
)

// UnaryExpr applies a unary operator.
type UnaryExpr struct {
	Op   UnaryOp
	Expr Expression
}

func (e *UnaryExpr) ColumnDependencies() *helpers.StableSet[Column] {
	return e.Expr.ColumnDependencies()
}

// BinaryOp enumerates binary operators.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
)

// IsComparison reports whether the operator yields a boolean
// comparison result.
func (op BinaryOp) IsComparison() bool {
	switch op {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return true
	default:
		return false
	}
}

// IsBoolean reports whether the operator combines boolean operands.
func (op BinaryOp) IsBoolean() bool {
	return op == OpAnd || op == OpOr
}

// BinaryExpr applies a binary operator.
type BinaryExpr struct {
	Op    BinaryOp
	Left  Expression
	Right Expression
}

func (e *BinaryExpr) ColumnDependencies() *helpers.StableSet[Column] {
	return e.Left.ColumnDependencies().Union(e.Right.ColumnDependencies())
}

// CallExpr applies a callable-typed expression to arguments.
type CallExpr struct {
	Fn   Expression
	Args []Expression
}

func (e *CallExpr) ColumnDependencies() *helpers.StableSet[Column] {
	deps := e.Fn.ColumnDependencies()
	for _, arg := range e.Args {
		deps = deps.Union(arg.ColumnDependencies())
	}
	return deps
}

// IfElseExpr selects between two branches on a boolean condition.
type IfElseExpr struct {
	Cond Expression
	Then Expression
	Else Expression
}

func (e *IfElseExpr) ColumnDependencies() *helpers.StableSet[Column] {
	return e.Cond.ColumnDependencies().
		Union(e.Then.ColumnDependencies(), e.Else.ColumnDependencies())
}

// CoalesceExpr yields the first non-absent operand.
type CoalesceExpr struct {
	Exprs []Expression
}

func (e *CoalesceExpr) ColumnDependencies() *helpers.StableSet[Column] {
	deps := helpers.NewStableSet[Column]()
	for _, sub := range e.Exprs {
		deps = deps.Union(sub.ColumnDependencies())
	}
	return deps
}

// describeExpr renders an expression for error messages.
func describeExpr(e Expression) string {
	switch ex := e.(type) {
	case nil:
		return "<nil>"
	case *ColumnRefExpr:
		return fmt.Sprintf("<%s>.%s", ex.table.Universe(), ex.name)
	case *LiteralExpr:
		return fmt.Sprintf("%v", ex.Value)
	case *UnaryExpr:
		return fmt.Sprintf("(op %s)", describeExpr(ex.Expr))
	case *BinaryExpr:
		return fmt.Sprintf("(%s op %s)", describeExpr(ex.Left), describeExpr(ex.Right))
	case *CallExpr:
		args := make([]string, len(ex.Args))
		for i, a := range ex.Args {
			args[i] = describeExpr(a)
		}
		return fmt.Sprintf("%s(%s)", describeExpr(ex.Fn), strings.Join(args, ", "))
	case *IfElseExpr:
		return fmt.Sprintf("if %s then %s else %s",
			describeExpr(ex.Cond), describeExpr(ex.Then), describeExpr(ex.Else))
	case *CoalesceExpr:
		parts := make([]string, len(ex.Exprs))
		for i, sub := range ex.Exprs {
			parts[i] = describeExpr(sub)
		}
		return fmt.Sprintf("coalesce(%s)", strings.Join(parts, ", "))
	default:
		return fmt.Sprintf("%T", e)
	}
}
