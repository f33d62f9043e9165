package graph

import (
	"fmt"

	"github.com/tidelake-labs/flowplan/internal/helpers"
	"github.com/tidelake-labs/flowplan/pkg/dtype"
)

// RowwiseContext evaluates basic per-row expressions over one universe.
type RowwiseContext struct {
	baseContext
}

func (p *Plan) NewRowwiseContext(universe *Universe) *RowwiseContext {
	c := &RowwiseContext{}
	p.registerContext(c, &c.baseContext, universe, PreserveEvaluator)
	return c
}

func (c *RowwiseContext) UniverseDependencies() []*Universe {
	return []*Universe{c.universe}
}

// TableRestrictedRowwiseContext restricts expression evaluation to the
// columns of a specific table.
type TableRestrictedRowwiseContext struct {
	RowwiseContext
	table Table
}

func (p *Plan) NewTableRestrictedRowwiseContext(universe *Universe, table Table) *TableRestrictedRowwiseContext {
	c := &TableRestrictedRowwiseContext{table: table}
	p.registerContext(c, &c.baseContext, universe, PreserveEvaluator)
	return c
}

func (c *TableRestrictedRowwiseContext) Table() Table { return c.table }

// CopyContext is used by operators that pass columns through unchanged.
type CopyContext struct {
	baseContext
}

func (p *Plan) NewCopyContext(universe *Universe) *CopyContext {
	c := &CopyContext{}
	p.registerContext(c, &c.baseContext, universe, DefaultEvaluator)
	return c
}

// GroupedContext is the context of a groupby/reduce operation. The
// grouping-key columns are materialized by this context; they must all
// live in one universe under one context, which is checked at
// construction so a malformed plan can never be produced silently.
type GroupedContext struct {
	baseContext
	table             Table
	groupingRefs      []InternalRef
	groupingColumns   map[InternalRef]Column
	setID             bool
	innerContext      *RowwiseContext
	requestedGrouping *helpers.StableSet[InternalRef]
	sortBy            *ColumnRefExpr
}

func (p *Plan) NewGroupedContext(
	universe *Universe,
	table Table,
	groupingRefs []InternalRef,
	groupingColumns map[InternalRef]Column,
	setID bool,
	innerContext *RowwiseContext,
	requestedGrouping *helpers.StableSet[InternalRef],
	sortBy *ColumnRefExpr,
) (*GroupedContext, error) {
	var groupingUniverse *Universe
	var groupingCtx Context
	for _, ref := range groupingRefs {
		col, ok := groupingColumns[ref]
		if !ok {
			return nil, fmt.Errorf("grouping column %q: %w", ref.Name, ErrUnknownColumn)
		}
		cc, ok := col.(ContextColumn)
		if !ok {
			return nil, fmt.Errorf("grouping column %q: %w", ref.Name, ErrNotContextColumn)
		}
		if groupingUniverse != nil && cc.Universe() != groupingUniverse {
			return nil, fmt.Errorf("grouping column %q: %w", ref.Name, ErrUniverseMismatch)
		}
		if groupingCtx != nil && cc.Context() != groupingCtx {
			return nil, fmt.Errorf("grouping column %q: %w", ref.Name, ErrContextMismatch)
		}
		groupingUniverse = cc.Universe()
		groupingCtx = cc.Context()
	}
	if requestedGrouping == nil {
		requestedGrouping = helpers.NewStableSet[InternalRef]()
	}
	c := &GroupedContext{
		table:             table,
		groupingRefs:      append([]InternalRef(nil), groupingRefs...),
		groupingColumns:   groupingColumns,
		setID:             setID,
		innerContext:      innerContext,
		requestedGrouping: requestedGrouping,
		sortBy:            sortBy,
	}
	p.registerContext(c, &c.baseContext, universe, DefaultEvaluator)
	return c, nil
}

func (c *GroupedContext) Table() Table { return c.table }
func (c *GroupedContext) SetID() bool  { return c.setID }

// GroupingColumn returns the materialized column for a grouping key.
func (c *GroupedContext) GroupingColumn(ref InternalRef) (Column, bool) {
	col, ok := c.groupingColumns[ref]
	return col, ok
}

// RequestedGroupingColumns returns the grouping keys the user asked to
// read back from the reduced table.
func (c *GroupedContext) RequestedGroupingColumns() *helpers.StableSet[InternalRef] {
	return c.requestedGrouping
}

func (c *GroupedContext) ColumnDependenciesInternal() []Column {
	cols := make([]Column, len(c.groupingRefs))
	for i, ref := range c.groupingRefs {
		cols[i] = c.groupingColumns[ref]
	}
	return cols
}

func (c *GroupedContext) ColumnDependenciesExternal() []Column {
	if c.sortBy != nil {
		return []Column{c.sortBy.Column()}
	}
	return nil
}

func (c *GroupedContext) UniverseDependencies() []*Universe {
	return []*Universe{c.innerContext.Universe()}
}

// FilterContext is the context of a filter operation: the output
// universe keeps the rows for which the filtering column is true.
type FilterContext struct {
	baseContext
	filteringColumn  *ColumnWithExpression
	universeToFilter *Universe
}

func (p *Plan) NewFilterContext(universe *Universe, filteringColumn *ColumnWithExpression, universeToFilter *Universe) *FilterContext {
	c := &FilterContext{filteringColumn: filteringColumn, universeToFilter: universeToFilter}
	p.registerContext(c, &c.baseContext, universe, PreserveEvaluator)
	return c
}

func (c *FilterContext) FilteringColumn() *ColumnWithExpression { return c.filteringColumn }

func (c *FilterContext) ColumnDependenciesInternal() []Column {
	return []Column{c.filteringColumn}
}

func (c *FilterContext) UniverseDependencies() []*Universe {
	return []*Universe{c.universeToFilter}
}

// TimeColumnContext is the shared shape of operations driven by a time
// column against a threshold (forget, freeze, buffer).
type TimeColumnContext struct {
	baseContext
	oldUniverse     *Universe
	thresholdColumn *ColumnWithExpression
	timeColumn      *ColumnWithExpression
}

func (c *TimeColumnContext) ColumnDependenciesInternal() []Column {
	return []Column{c.thresholdColumn, c.timeColumn}
}

func (c *TimeColumnContext) UniverseDependencies() []*Universe {
	return []*Universe{c.oldUniverse}
}

// ForgetContext drops rows older than the threshold.
type ForgetContext struct {
	TimeColumnContext
}

func (p *Plan) NewForgetContext(universe, oldUniverse *Universe, thresholdColumn, timeColumn *ColumnWithExpression) *ForgetContext {
	c := &ForgetContext{TimeColumnContext{oldUniverse: oldUniverse, thresholdColumn: thresholdColumn, timeColumn: timeColumn}}
	p.registerContext(c, &c.baseContext, universe, DefaultEvaluator)
	return c
}

// FreezeContext stops updating rows older than the threshold.
type FreezeContext struct {
	TimeColumnContext
}

func (p *Plan) NewFreezeContext(universe, oldUniverse *Universe, thresholdColumn, timeColumn *ColumnWithExpression) *FreezeContext {
	c := &FreezeContext{TimeColumnContext{oldUniverse: oldUniverse, thresholdColumn: thresholdColumn, timeColumn: timeColumn}}
	p.registerContext(c, &c.baseContext, universe, DefaultEvaluator)
	return c
}

// BufferContext delays rows until the threshold passes them.
type BufferContext struct {
	TimeColumnContext
}

func (p *Plan) NewBufferContext(universe, oldUniverse *Universe, thresholdColumn, timeColumn *ColumnWithExpression) *BufferContext {
	c := &BufferContext{TimeColumnContext{oldUniverse: oldUniverse, thresholdColumn: thresholdColumn, timeColumn: timeColumn}}
	p.registerContext(c, &c.baseContext, universe, DefaultEvaluator)
	return c
}

// ReindexContext re-keys a table by the value of the reindex column.
type ReindexContext struct {
	baseContext
	reindexColumn *ColumnWithExpression
}

func (p *Plan) NewReindexContext(universe *Universe, reindexColumn *ColumnWithExpression) *ReindexContext {
	c := &ReindexContext{reindexColumn: reindexColumn}
	p.registerContext(c, &c.baseContext, universe, DefaultEvaluator)
	return c
}

func (c *ReindexContext) ColumnDependenciesInternal() []Column {
	return []Column{c.reindexColumn}
}

func (c *ReindexContext) UniverseDependencies() []*Universe {
	return []*Universe{c.reindexColumn.Universe()}
}

// IxContext looks rows up by key in another universe.
type IxContext struct {
	baseContext
	origUniverse *Universe
	keyColumn    Column
	optional     bool
}

func (p *Plan) NewIxContext(universe, origUniverse *Universe, keyColumn Column, optional bool) *IxContext {
	c := &IxContext{origUniverse: origUniverse, keyColumn: keyColumn, optional: optional}
	p.registerContext(c, &c.baseContext, universe, DefaultEvaluator)
	return c
}

func (c *IxContext) Optional() bool { return c.optional }

func (c *IxContext) ColumnDependenciesExternal() []Column {
	return []Column{c.keyColumn}
}

func (c *IxContext) UniverseDependencies() []*Universe {
	return []*Universe{c.universe, c.origUniverse}
}

// IntersectContext restricts to rows present in every input universe.
type IntersectContext struct {
	baseContext
	intersecting []*Universe
}

func (p *Plan) NewIntersectContext(universe *Universe, intersecting ...*Universe) (*IntersectContext, error) {
	if len(intersecting) == 0 {
		return nil, fmt.Errorf("intersect context: %w", ErrEmptyUniverseList)
	}
	c := &IntersectContext{intersecting: append([]*Universe(nil), intersecting...)}
	p.registerContext(c, &c.baseContext, universe, DefaultEvaluator)
	return c, nil
}

func (c *IntersectContext) UniverseDependencies() []*Universe {
	return append([]*Universe(nil), c.intersecting...)
}

// RestrictContext restricts a table to a subset universe.
type RestrictContext struct {
	baseContext
	origUniverse *Universe
}

func (p *Plan) NewRestrictContext(universe, origUniverse *Universe) *RestrictContext {
	c := &RestrictContext{origUniverse: origUniverse}
	p.registerContext(c, &c.baseContext, universe, DefaultEvaluator)
	return c
}

func (c *RestrictContext) UniverseDependencies() []*Universe {
	return []*Universe{c.origUniverse, c.universe}
}

// DifferenceContext keeps rows of the left universe absent from the
// right one.
type DifferenceContext struct {
	baseContext
	left  *Universe
	right *Universe
}

func (p *Plan) NewDifferenceContext(universe, left, right *Universe) *DifferenceContext {
	c := &DifferenceContext{left: left, right: right}
	p.registerContext(c, &c.baseContext, universe, DefaultEvaluator)
	return c
}

func (c *DifferenceContext) UniverseDependencies() []*Universe {
	return []*Universe{c.left, c.right}
}

// HavingContext keeps the rows of the original universe whose key
// appears in the key column.
type HavingContext struct {
	baseContext
	origUniverse *Universe
	keyColumn    Column
}

func (p *Plan) NewHavingContext(universe, origUniverse *Universe, keyColumn Column) *HavingContext {
	c := &HavingContext{origUniverse: origUniverse, keyColumn: keyColumn}
	p.registerContext(c, &c.baseContext, universe, DefaultEvaluator)
	return c
}

func (c *HavingContext) ColumnDependenciesExternal() []Column {
	return []Column{c.keyColumn}
}

func (c *HavingContext) UniverseDependencies() []*Universe {
	return []*Universe{c.origUniverse}
}

// UpdateRowsContext overlays new rows over a table; a column reference
// within it resolves against the update map.
type UpdateRowsContext struct {
	baseContext
	updates        map[string]Column
	unionUniverses []*Universe
}

func (p *Plan) NewUpdateRowsContext(universe *Universe, updates map[string]Column, unionUniverses []*Universe) (*UpdateRowsContext, error) {
	if len(unionUniverses) == 0 {
		return nil, fmt.Errorf("update rows context: %w", ErrEmptyUniverseList)
	}
	c := &UpdateRowsContext{updates: updates, unionUniverses: append([]*Universe(nil), unionUniverses...)}
	p.registerContext(c, &c.baseContext, universe, DefaultEvaluator)
	return c, nil
}

func (c *UpdateRowsContext) ReferenceColumnDependencies(ref *ColumnRefExpr) *helpers.StableSet[Column] {
	col, ok := c.updates[ref.Name()]
	if !ok {
		panic(fmt.Sprintf("graph: update context has no column %q", ref.Name()))
	}
	return helpers.NewStableSet(col)
}

func (c *UpdateRowsContext) UniverseDependencies() []*Universe {
	return append([]*Universe(nil), c.unionUniverses...)
}

// UpdateCellsContext overlays individual cells: references to columns
// not being updated are pass-throughs and resolve to nothing.
type UpdateCellsContext struct {
	UpdateRowsContext
}

func (p *Plan) NewUpdateCellsContext(universe *Universe, updates map[string]Column, unionUniverses []*Universe) (*UpdateCellsContext, error) {
	if len(unionUniverses) == 0 {
		return nil, fmt.Errorf("update cells context: %w", ErrEmptyUniverseList)
	}
	c := &UpdateCellsContext{UpdateRowsContext{updates: updates, unionUniverses: append([]*Universe(nil), unionUniverses...)}}
	p.registerContext(c, &c.baseContext, universe, DefaultEvaluator)
	return c, nil
}

func (c *UpdateCellsContext) ReferenceColumnDependencies(ref *ColumnRefExpr) *helpers.StableSet[Column] {
	if _, ok := c.updates[ref.Name()]; ok {
		return c.UpdateRowsContext.ReferenceColumnDependencies(ref)
	}
	return helpers.NewStableSet[Column]()
}

// ConcatUnsafeContext stacks tables over disjoint universes; a column
// reference resolves to that column in every concatenated input.
type ConcatUnsafeContext struct {
	baseContext
	updates        []map[string]Column
	unionUniverses []*Universe
}

func (p *Plan) NewConcatUnsafeContext(universe *Universe, updates []map[string]Column, unionUniverses []*Universe) (*ConcatUnsafeContext, error) {
	if len(unionUniverses) == 0 {
		return nil, fmt.Errorf("concat context: %w", ErrEmptyUniverseList)
	}
	c := &ConcatUnsafeContext{updates: updates, unionUniverses: append([]*Universe(nil), unionUniverses...)}
	p.registerContext(c, &c.baseContext, universe, DefaultEvaluator)
	return c, nil
}

func (c *ConcatUnsafeContext) ReferenceColumnDependencies(ref *ColumnRefExpr) *helpers.StableSet[Column] {
	deps := helpers.NewStableSet[Column]()
	for _, update := range c.updates {
		col, ok := update[ref.Name()]
		if !ok {
			panic(fmt.Sprintf("graph: concat input has no column %q", ref.Name()))
		}
		deps.Add(col)
	}
	return deps
}

func (c *ConcatUnsafeContext) UniverseDependencies() []*Universe {
	return append([]*Universe(nil), c.unionUniverses...)
}

// PromiseSameUniverseContext asserts, without proof, that two universes
// are the same row-set.
type PromiseSameUniverseContext struct {
	baseContext
	origUniverse *Universe
}

func (p *Plan) NewPromiseSameUniverseContext(universe, origUniverse *Universe) *PromiseSameUniverseContext {
	c := &PromiseSameUniverseContext{origUniverse: origUniverse}
	p.registerContext(c, &c.baseContext, universe, PreserveEvaluator)
	return c
}

func (c *PromiseSameUniverseContext) UniverseDependencies() []*Universe {
	return []*Universe{c.origUniverse, c.universe}
}

// JoinContext joins two tables on key columns. The "ear" flags mark an
// outer side that may have no match, which forces Optional-wrapping of
// the opposite side's column types during inference.
type JoinContext struct {
	baseContext
	leftTable    Table
	rightTable   Table
	leftContext  *TableRestrictedRowwiseContext
	rightContext *TableRestrictedRowwiseContext
	onLeft       ContextTable
	onRight      ContextTable
	assignID     bool
	leftEar      bool
	rightEar     bool
}

func (p *Plan) NewJoinContext(
	universe *Universe,
	leftTable, rightTable Table,
	leftContext, rightContext *TableRestrictedRowwiseContext,
	onLeft, onRight ContextTable,
	assignID, leftEar, rightEar bool,
) (*JoinContext, error) {
	if onLeft.Universe() != leftContext.Universe() {
		return nil, fmt.Errorf("join left keys: %w", ErrUniverseMismatch)
	}
	if onRight.Universe() != rightContext.Universe() {
		return nil, fmt.Errorf("join right keys: %w", ErrUniverseMismatch)
	}
	c := &JoinContext{
		leftTable:    leftTable,
		rightTable:   rightTable,
		leftContext:  leftContext,
		rightContext: rightContext,
		onLeft:       onLeft,
		onRight:      onRight,
		assignID:     assignID,
		leftEar:      leftEar,
		rightEar:     rightEar,
	}
	p.registerContext(c, &c.baseContext, universe, DefaultEvaluator)
	return c, nil
}

func (c *JoinContext) AssignID() bool { return c.assignID }

func (c *JoinContext) ColumnDependenciesInternal() []Column {
	deps := append([]Column(nil), c.onLeft.Columns()...)
	return append(deps, c.onRight.Columns()...)
}

func (c *JoinContext) UniverseDependencies() []*Universe {
	return []*Universe{c.leftTable.Universe(), c.rightTable.Universe()}
}

func (c *JoinContext) interpreter() TypeInterpreter {
	return NewJoinTypeInterpreter(c.p.Registry(), c.leftTable, c.rightTable, c.leftEar, c.rightEar)
}

// IntermediateTables materializes each side's join keys against that
// side's own restricted context.
func (c *JoinContext) IntermediateTables() ([]Table, error) {
	left, err := createInternalTable(c.p, c.onLeft.Columns(), c.onLeft.Universe(), c.leftContext)
	if err != nil {
		return nil, err
	}
	right, err := createInternalTable(c.p, c.onRight.Columns(), c.onRight.Universe(), c.rightContext)
	if err != nil {
		return nil, err
	}
	return []Table{left, right}, nil
}

// JoinRowwiseContext evaluates expressions over a joined universe in
// which input columns appear under temporary references.
type JoinRowwiseContext struct {
	RowwiseContext
	tempToOriginal map[InternalRef]InternalRef
	originalToTemp map[InternalRef]*ColumnRefExpr
}

// NewJoinRowwiseContextFromMapping builds the context from the mapping
// of original column references to their temporary counterparts.
func (p *Plan) NewJoinRowwiseContextFromMapping(universe *Universe, columnsMapping map[InternalRef]*ColumnRefExpr) *JoinRowwiseContext {
	tempToOriginal := make(map[InternalRef]InternalRef, len(columnsMapping))
	originalToTemp := make(map[InternalRef]*ColumnRefExpr, len(columnsMapping))
	for orig, temp := range columnsMapping {
		tempToOriginal[temp.ToInternal()] = orig
		originalToTemp[orig] = temp
	}
	c := &JoinRowwiseContext{tempToOriginal: tempToOriginal, originalToTemp: originalToTemp}
	p.registerContext(c, &c.baseContext, universe, PreserveEvaluator)
	return c
}

func (c *JoinRowwiseContext) interpreter() TypeInterpreter {
	return NewJoinRowwiseTypeInterpreter(c.p.Registry(), c.tempToOriginal, c.originalToTemp)
}

// FlattenContext unnests a sequence-typed column: the output universe
// has one row per element.
type FlattenContext struct {
	baseContext
	origUniverse        *Universe
	flattenColumn       Column
	flattenResultColumn *MaterializedColumn
}

func (p *Plan) NewFlattenContext(universe, origUniverse *Universe, flattenColumn Column, flattenResultColumn *MaterializedColumn) *FlattenContext {
	c := &FlattenContext{
		origUniverse:        origUniverse,
		flattenColumn:       flattenColumn,
		flattenResultColumn: flattenResultColumn,
	}
	p.registerContext(c, &c.baseContext, universe, DefaultEvaluator)
	return c
}

func (c *FlattenContext) FlattenResultColumn() *MaterializedColumn { return c.flattenResultColumn }

func (c *FlattenContext) ColumnDependenciesExternal() []Column {
	return []Column{c.flattenColumn}
}

func (c *FlattenContext) UniverseDependencies() []*Universe {
	return []*Universe{c.origUniverse}
}

// FlattenColumnDType derives the element type produced by flattening a
// column: List(T) yields T, a fixed tuple yields the LCA of its element
// types, Str yields Str (substrings), and Array or Any yield Any.
// Every other dtype is an unsupported flatten source.
func (c *FlattenContext) FlattenColumnDType(flattenColumn *ColumnWithExpression) (dtype.DType, error) {
	dt, err := flattenColumn.DType()
	if err != nil {
		return nil, err
	}
	reg := c.p.Registry()
	switch t := dt.(type) {
	case *dtype.List:
		if dtype.IsAnyTuple(dt) {
			return reg.Any(), nil
		}
		return t.Elem(), nil
	case *dtype.Tuple:
		elems := t.Elems()
		if len(elems) == 0 {
			return reg.Any(), nil
		}
		result := elems[0]
		for _, elem := range elems[1:] {
			result = reg.TypesLCA(result, elem)
		}
		return result, nil
	}
	switch dt.Kind() {
	case dtype.KindStr:
		return reg.Str(), nil
	case dtype.KindArray, dtype.KindAny:
		return reg.Any(), nil
	default:
		return nil, &FlattenTypeError{Expression: flattenColumn.Expression(), DType: dt}
	}
}

// SortingContext establishes an ordered traversal structure per
// instance group: it materializes the sort key and instance columns and
// pre-allocates prev/next link columns forming a linked order.
type SortingContext struct {
	baseContext
	keyColumn      *ColumnWithExpression
	instanceColumn *ColumnWithExpression
	prevColumn     *MaterializedColumn
	nextColumn     *MaterializedColumn
}

func (p *Plan) NewSortingContext(universe *Universe, keyColumn, instanceColumn *ColumnWithExpression, prevColumn, nextColumn *MaterializedColumn) *SortingContext {
	c := &SortingContext{
		keyColumn:      keyColumn,
		instanceColumn: instanceColumn,
		prevColumn:     prevColumn,
		nextColumn:     nextColumn,
	}
	p.registerContext(c, &c.baseContext, universe, DefaultEvaluator)
	return c
}

func (c *SortingContext) PrevColumn() *MaterializedColumn { return c.prevColumn }
func (c *SortingContext) NextColumn() *MaterializedColumn { return c.nextColumn }

func (c *SortingContext) ColumnDependenciesInternal() []Column {
	return []Column{c.keyColumn, c.instanceColumn}
}

func (c *SortingContext) UniverseDependencies() []*Universe {
	return []*Universe{c.universe}
}
