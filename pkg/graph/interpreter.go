package graph

import (
	"fmt"

	"github.com/tidelake-labs/flowplan/pkg/dtype"
)

// TypeInterpreter resolves the dtype of an expression evaluated within
// some context. The default interpreter walks the tree bottom-up;
// join contexts substitute interpreters aware of their input schemas.
type TypeInterpreter interface {
	EvalExpression(e Expression) (dtype.DType, error)
}

// exprTyper is the shared bottom-up walk. refType is the one pluggable
// step: how a column reference resolves to a dtype.
type exprTyper struct {
	reg     *dtype.Registry
	refType func(*ColumnRefExpr) (dtype.DType, error)
}

// NewDefaultTypeInterpreter returns the interpreter used by plain
// contexts: references take their column's dtype as is.
func NewDefaultTypeInterpreter(reg *dtype.Registry) TypeInterpreter {
	return &exprTyper{
		reg: reg,
		refType: func(ref *ColumnRefExpr) (dtype.DType, error) {
			return ref.Column().DType()
		},
	}
}

// NewJoinTypeInterpreter returns the interpreter of a join context.
// A column of the left table is Optional-wrapped when the right side is
// an ear (its unmatched rows survive, leaving the left side absent),
// and symmetrically for the right table.
func NewJoinTypeInterpreter(reg *dtype.Registry, left, right Table, leftEar, rightEar bool) TypeInterpreter {
	return &exprTyper{
		reg: reg,
		refType: func(ref *ColumnRefExpr) (dtype.DType, error) {
			dt, err := ref.Column().DType()
			if err != nil {
				return nil, err
			}
			switch {
			case ref.Table() == left && rightEar:
				return reg.Optional(dt), nil
			case ref.Table() == right && leftEar:
				return reg.Optional(dt), nil
			default:
				return dt, nil
			}
		},
	}
}

// NewJoinRowwiseTypeInterpreter returns the interpreter of a
// JoinRowwiseContext: temporary column references are translated back
// to the original columns they stand for before typing.
func NewJoinRowwiseTypeInterpreter(reg *dtype.Registry, tempToOriginal map[InternalRef]InternalRef, originalToTemp map[InternalRef]*ColumnRefExpr) TypeInterpreter {
	return &exprTyper{
		reg: reg,
		refType: func(ref *ColumnRefExpr) (dtype.DType, error) {
			orig, ok := tempToOriginal[ref.ToInternal()]
			if !ok {
				return ref.Column().DType()
			}
			origRef, err := RefToColumn(orig.Table, orig.Name)
			if err != nil {
				return nil, err
			}
			return origRef.Column().DType()
		},
	}
}

func (t *exprTyper) EvalExpression(e Expression) (dtype.DType, error) {
	switch ex := e.(type) {
	case *ColumnRefExpr:
		return t.refType(ex)
	case *LiteralExpr:
		return t.reg.Wrap(ex.Value), nil
	case *UnaryExpr:
		return t.evalUnary(ex)
	case *BinaryExpr:
		return t.evalBinary(ex)
	case *CallExpr:
		return t.evalCall(ex)
	case *IfElseExpr:
		return t.evalIfElse(ex)
	case *CoalesceExpr:
		return t.evalCoalesce(ex)
	default:
		return nil, &TypeError{Message: fmt.Sprintf("unsupported expression %T", e)}
	}
}

func (t *exprTyper) evalUnary(e *UnaryExpr) (dtype.DType, error) {
	opT, err := t.EvalExpression(e.Expr)
	if err != nil {
		return nil, err
	}
	core := dtype.Unoptionalize(opT)
	switch e.Op {
	case OpNeg:
		switch core.Kind() {
		case dtype.KindInt, dtype.KindFloat, dtype.KindDuration, dtype.KindAny:
			return opT, nil
		}
		return nil, &TypeError{Message: fmt.Sprintf("cannot negate %s in %s", opT, describeExpr(e.Expr))}
	case OpNot:
		switch core.Kind() {
		case dtype.KindBool, dtype.KindAny:
			return t.rewrap(opT, t.reg.Bool()), nil
		}
		return nil, &TypeError{Message: fmt.Sprintf("cannot apply not to %s in %s", opT, describeExpr(e.Expr))}
	default:
		panic("graph: unknown unary operator")
	}
}

func (t *exprTyper) evalBinary(e *BinaryExpr) (dtype.DType, error) {
	lt, err := t.EvalExpression(e.Left)
	if err != nil {
		return nil, err
	}
	rt, err := t.EvalExpression(e.Right)
	if err != nil {
		return nil, err
	}

	if e.Op.IsComparison() {
		return t.rewrap2(lt, rt, t.reg.Bool()), nil
	}
	if e.Op.IsBoolean() {
		for _, opT := range []dtype.DType{lt, rt} {
			switch dtype.Unoptionalize(opT).Kind() {
			case dtype.KindBool, dtype.KindAny:
			default:
				return nil, &TypeError{Message: fmt.Sprintf("boolean operator over %s in %s", opT, describeExpr(e))}
			}
		}
		return t.rewrap2(lt, rt, t.reg.Bool()), nil
	}

	l, r := dtype.UnoptionalizePair(lt, rt)
	result, ok := t.arithmeticType(e.Op, l, r)
	if !ok {
		return nil, &TypeError{
			Message: fmt.Sprintf("incompatible operand types %s and %s in %s", lt, rt, describeExpr(e)),
		}
	}
	return t.rewrap2(lt, rt, result), nil
}

// arithmeticType unifies arithmetic operands. Datetime and duration
// combinations are tabulated; everything else unifies through the LCA
// with Any meaning the operands had no common shape.
func (t *exprTyper) arithmeticType(op BinaryOp, l, r dtype.DType) (dtype.DType, bool) {
	lk, rk := l.Kind(), r.Kind()
	isDateTime := func(k dtype.Kind) bool {
		return k == dtype.KindDateTimeNaive || k == dtype.KindDateTimeUtc
	}
	switch {
	case isDateTime(lk) && lk == rk && op == OpSub:
		return t.reg.Duration(), true
	case isDateTime(lk) && rk == dtype.KindDuration && (op == OpAdd || op == OpSub):
		return l, true
	case lk == dtype.KindDuration && isDateTime(rk) && op == OpAdd:
		return r, true
	case lk == dtype.KindDuration && rk == dtype.KindInt && (op == OpMul || op == OpDiv):
		return l, true
	case lk == dtype.KindInt && rk == dtype.KindDuration && op == OpMul:
		return r, true
	case lk == dtype.KindDuration && rk == dtype.KindDuration && (op == OpAdd || op == OpSub || op == OpMod):
		return l, true
	case lk == dtype.KindDuration && rk == dtype.KindDuration && op == OpDiv:
		return t.reg.Float(), true
	}

	// Temporal combinations not tabulated above are invalid; they must
	// not unify through the lattice (two datetimes are Equal yet cannot
	// be added).
	isTemporal := func(k dtype.Kind) bool {
		return isDateTime(k) || k == dtype.KindDuration
	}
	if (isTemporal(lk) || isTemporal(rk)) && lk != dtype.KindAny && rk != dtype.KindAny {
		return nil, false
	}

	lca := t.reg.TypesLCA(l, r)
	if lca.Kind() == dtype.KindAny && lk != dtype.KindAny && rk != dtype.KindAny {
		return nil, false
	}
	if op == OpDiv && lca.Kind() == dtype.KindInt {
		return t.reg.Float(), true
	}
	return lca, true
}

func (t *exprTyper) evalCall(e *CallExpr) (dtype.DType, error) {
	fnT, err := t.EvalExpression(e.Fn)
	if err != nil {
		return nil, err
	}
	for _, arg := range e.Args {
		if _, err := t.EvalExpression(arg); err != nil {
			return nil, err
		}
	}
	switch fn := fnT.(type) {
	case *dtype.Callable:
		return fn.Ret(), nil
	}
	if fnT.Kind() == dtype.KindAny {
		return t.reg.Any(), nil
	}
	return nil, &TypeError{Message: fmt.Sprintf("calling non-callable %s in %s", fnT, describeExpr(e))}
}

func (t *exprTyper) evalIfElse(e *IfElseExpr) (dtype.DType, error) {
	condT, err := t.EvalExpression(e.Cond)
	if err != nil {
		return nil, err
	}
	switch dtype.Unoptionalize(condT).Kind() {
	case dtype.KindBool, dtype.KindAny:
	default:
		return nil, &TypeError{Message: fmt.Sprintf("if-else condition of type %s in %s", condT, describeExpr(e))}
	}
	thenT, err := t.EvalExpression(e.Then)
	if err != nil {
		return nil, err
	}
	elseT, err := t.EvalExpression(e.Else)
	if err != nil {
		return nil, err
	}
	return t.reg.TypesLCA(thenT, elseT), nil
}

func (t *exprTyper) evalCoalesce(e *CoalesceExpr) (dtype.DType, error) {
	if len(e.Exprs) == 0 {
		return t.reg.None(), nil
	}
	allOptional := true
	var core dtype.DType
	for _, sub := range e.Exprs {
		subT, err := t.EvalExpression(sub)
		if err != nil {
			return nil, err
		}
		switch subT.Kind() {
		case dtype.KindOptional, dtype.KindNone:
		default:
			allOptional = false
		}
		if core == nil {
			core = dtype.Unoptionalize(subT)
			continue
		}
		l, r := dtype.UnoptionalizePair(core, subT)
		core = t.reg.TypesLCA(l, r)
	}
	if core.Kind() == dtype.KindNone {
		return t.reg.None(), nil
	}
	if allOptional {
		return t.reg.Optional(core), nil
	}
	return core, nil
}

// rewrap makes result Optional when the operand was.
func (t *exprTyper) rewrap(operand, result dtype.DType) dtype.DType {
	if operand.Kind() == dtype.KindOptional {
		return t.reg.Optional(result)
	}
	return result
}

// rewrap2 makes result Optional when either operand was Optional or
// None.
func (t *exprTyper) rewrap2(left, right, result dtype.DType) dtype.DType {
	for _, opT := range []dtype.DType{left, right} {
		switch opT.Kind() {
		case dtype.KindOptional, dtype.KindNone:
			return t.reg.Optional(result)
		}
	}
	return result
}
