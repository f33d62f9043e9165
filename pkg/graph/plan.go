package graph

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/tidelake-labs/flowplan/internal/depgraph"
	"github.com/tidelake-labs/flowplan/internal/trace"
	"github.com/tidelake-labs/flowplan/pkg/dtype"
)

// Plan is one plan-construction session: it owns the type registry the
// plan's columns are typed against, allocates node handles, and records
// every universe, column and context built through it. The finished
// plan is the artifact handed to the execution engine's compiler.
//
// Construction is single-threaded and synchronous; a Plan must not be
// shared between goroutines while it is being built.
type Plan struct {
	registry    *dtype.Registry
	interpreter TypeInterpreter
	handles     NodeHandle

	universes []*Universe
	columns   []Column
	contexts  []Context
}

// NewPlan creates an empty plan session. registry may be shared between
// plans; nil creates a fresh one.
func NewPlan(registry *dtype.Registry) *Plan {
	if registry == nil {
		registry = dtype.NewRegistry(nil)
	}
	return &Plan{
		registry:    registry,
		interpreter: NewDefaultTypeInterpreter(registry),
	}
}

// Registry returns the type registry this plan types against.
func (p *Plan) Registry() *dtype.Registry { return p.registry }

func (p *Plan) nextHandle() NodeHandle {
	h := p.handles
	p.handles++
	return h
}

// NewUniverse mints a fresh row-identity universe.
func (p *Plan) NewUniverse() *Universe {
	u := &Universe{handle: p.nextHandle(), id: uuid.New()}
	p.universes = append(p.universes, u)
	return u
}

func (p *Plan) registerColumn(c Column, base *baseColumn, universe *Universe) {
	base.handle = p.nextHandle()
	base.universe = universe
	base.trc = trace.Capture(1)
	p.columns = append(p.columns, c)
}

// Universes returns every universe in creation order.
func (p *Plan) Universes() []*Universe {
	return append([]*Universe(nil), p.universes...)
}

// Columns returns every column in creation order.
func (p *Plan) Columns() []Column {
	return append([]Column(nil), p.columns...)
}

// Contexts returns every context in creation order.
func (p *Plan) Contexts() []Context {
	return append([]Context(nil), p.contexts...)
}

// universeGraph builds the dependency graph over universes: an edge
// runs from each input universe of a context to the context's output
// universe.
func (p *Plan) universeGraph() (*depgraph.Graph[NodeHandle], error) {
	g := depgraph.New[NodeHandle]()
	for _, u := range p.universes {
		g.AddNode(u.Handle())
	}
	for _, ctx := range p.contexts {
		out := ctx.Universe()
		g.AddNode(out.Handle())
		for _, dep := range ctx.UniverseDependencies() {
			g.AddNode(dep.Handle())
			if dep == out {
				continue
			}
			if err := g.AddEdge(dep.Handle(), out.Handle()); err != nil {
				return nil, fmt.Errorf("universe dependencies of context %d: %w", ctx.Handle(), err)
			}
		}
	}
	return g, nil
}

// Check verifies the plan's universe dependencies form a DAG. A cycle
// means a context was built against universes that do not yet exist,
// which the monotonic-growth discipline should make impossible.
func (p *Plan) Check() error {
	g, err := p.universeGraph()
	if err != nil {
		return err
	}
	if cyclic, path := g.HasCycle(); cyclic {
		return fmt.Errorf("universe dependency cycle: %v", path)
	}
	return nil
}

// UniverseOrder returns the plan's universes so that every input
// universe precedes the universes derived from it, which is the order
// the engine compiler materializes them in.
func (p *Plan) UniverseOrder() ([]*Universe, error) {
	g, err := p.universeGraph()
	if err != nil {
		return nil, err
	}
	order, err := g.TopologicalSort()
	if err != nil {
		return nil, err
	}
	byHandle := make(map[NodeHandle]*Universe, len(p.universes))
	for _, u := range p.universes {
		byHandle[u.Handle()] = u
	}
	result := make([]*Universe, 0, len(order))
	for _, h := range order {
		if u, ok := byHandle[h]; ok {
			result = append(result, u)
		}
	}
	return result, nil
}

// ContextOrder returns the plan's contexts so that every context whose
// output universe feeds another context precedes it. Contexts sharing an
// output universe keep construction order.
func (p *Plan) ContextOrder() ([]Context, error) {
	universes, err := p.UniverseOrder()
	if err != nil {
		return nil, err
	}
	rank := make(map[*Universe]int, len(universes))
	for i, u := range universes {
		rank[u] = i
	}
	ordered := append([]Context(nil), p.contexts...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return rank[ordered[i].Universe()] < rank[ordered[j].Universe()]
	})
	return ordered, nil
}
