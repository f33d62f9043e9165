package graph

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/tidelake-labs/flowplan/pkg/dtype"
)

// DescribeTable renders a table's schema (column names, dtypes, engine
// tags, append-only flags) for debugging.
func DescribeTable(w io.Writer, tbl Table) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"column", "dtype", "engine", "append-only"})

	names := append([]string{IDColumnName}, tbl.ColumnNames()...)
	for _, name := range names {
		var col Column
		if name == IDColumnName {
			col = tbl.IDColumn()
		} else {
			var err error
			col, err = tbl.Column(name)
			if err != nil {
				return err
			}
		}
		props, err := col.Properties()
		if err != nil {
			return fmt.Errorf("describe column %q: %w", name, err)
		}
		t.AppendRow(table.Row{name, props.DType.String(), engineTag(props.DType), props.AppendOnly})
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%s)\n", tbl.Universe())
	return nil
}

// DescribePlan renders every context of a plan with its output universe
// and dependency counts.
func DescribePlan(w io.Writer, p *Plan) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"context", "kind", "universe", "universe deps", "column deps"})

	for _, ctx := range p.Contexts() {
		t.AppendRow(table.Row{
			ctx.Handle(),
			fmt.Sprintf("%T", ctx),
			ctx.Universe().String(),
			len(ctx.UniverseDependencies()),
			ColumnDependenciesOf(ctx).Len(),
		})
	}
	t.Render()
}

func engineTag(dt dtype.DType) string {
	tag, ok := dtype.ToEngine(dt)
	if !ok {
		return "-"
	}
	return tag.String()
}
