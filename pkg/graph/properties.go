package graph

import (
	"fmt"

	"github.com/tidelake-labs/flowplan/internal/trace"
	"github.com/tidelake-labs/flowplan/pkg/dtype"
)

// Properties is the engine-facing record derived for every column:
// its dtype, whether the column only ever receives appends (no
// retractions), and the construction trace for diagnostics.
type Properties struct {
	DType      dtype.DType
	AppendOnly bool
	Trace      trace.Trace
}

// Nullable reports whether the column may hold absent values, derived
// from the dtype.
func (p Properties) Nullable() bool {
	k := p.DType.Kind()
	return k == dtype.KindOptional || k == dtype.KindNone || k == dtype.KindAny
}

// PropertiesEvaluator computes a column's engine-facing properties from
// its dependencies. Each context variant selects its evaluator as a
// strategy value at construction time.
type PropertiesEvaluator interface {
	Eval(c ContextColumn) (Properties, error)
}

// DefaultEvaluator derives properties from the context's type inference
// alone; append-only-ness is not assumed because the operator may
// retract rows.
var DefaultEvaluator PropertiesEvaluator = defaultEvaluator{}

// PreserveEvaluator copies properties through from the column's
// dependencies. Used by contexts that do not change cardinality or
// shape (Rowwise, Filter, PromiseSameUniverse): the output column
// behaves exactly like its input.
var PreserveEvaluator PropertiesEvaluator = preserveEvaluator{}

type defaultEvaluator struct{}

func (defaultEvaluator) Eval(c ContextColumn) (Properties, error) {
	dt, err := c.ContextDType()
	if err != nil {
		return Properties{}, fmt.Errorf("evaluate column properties: %w", err)
	}
	return Properties{DType: dt, AppendOnly: false, Trace: c.Trace()}, nil
}

type preserveEvaluator struct{}

func (preserveEvaluator) Eval(c ContextColumn) (Properties, error) {
	dt, err := c.ContextDType()
	if err != nil {
		return Properties{}, fmt.Errorf("evaluate column properties: %w", err)
	}
	appendOnly := true
	for _, dep := range c.ColumnDependencies().Items() {
		if dep == Column(c) {
			continue
		}
		props, err := dep.Properties()
		if err != nil {
			return Properties{}, err
		}
		if !props.AppendOnly {
			appendOnly = false
			break
		}
	}
	return Properties{DType: dt, AppendOnly: appendOnly, Trace: c.Trace()}, nil
}
